package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/farm-market/internal/database"
	"github.com/safar/farm-market/internal/models"
)

type NewFarm struct {
	Name        string
	Description string
	Location    string
	ContactInfo string
}

const farmColumns = `id, name, description, location, contact_info, created_at, updated_at, version`

func scanFarm(row interface{ Scan(...any) error }, farm *models.Farm) error {
	return row.Scan(
		&farm.ID,
		&farm.Name,
		&farm.Description,
		&farm.Location,
		&farm.ContactInfo,
		&farm.CreatedAt,
		&farm.UpdatedAt,
		&farm.Version,
	)
}

func CreateFarm(ctx context.Context, q database.Querier, in NewFarm) (*models.Farm, error) {
	farm := &models.Farm{}

	query := `
		INSERT INTO farms (name, description, location, contact_info, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, NOW(), NOW(), 1)
		RETURNING ` + farmColumns

	err := scanFarm(q.QueryRowContext(ctx, query, in.Name, in.Description, in.Location, in.ContactInfo), farm)
	if err != nil {
		return nil, fmt.Errorf("create farm: %w", err)
	}

	return farm, nil
}

func GetFarm(ctx context.Context, q database.Querier, id int64) (*models.Farm, error) {
	farm := &models.Farm{}

	err := scanFarm(q.QueryRowContext(ctx, `SELECT `+farmColumns+` FROM farms WHERE id = $1`, id), farm)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrFarmNotFound
		}
		return nil, fmt.Errorf("get farm: %w", err)
	}

	return farm, nil
}

func UpdateFarm(ctx context.Context, q database.Querier, id int64, update *FarmUpdate) (*models.Farm, error) {
	if update.IsEmpty() {
		return GetFarm(ctx, q, id)
	}

	set := update.clause()
	query := fmt.Sprintf(`
		UPDATE farms
		SET %s, version = version + 1, updated_at = NOW()
		WHERE id = %s
		RETURNING %s`, set.String(), set.arg(id), farmColumns)

	farm := &models.Farm{}
	err := scanFarm(q.QueryRowContext(ctx, query, set.args...), farm)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrFarmNotFound
		}
		return nil, fmt.Errorf("update farm: %w", err)
	}

	return farm, nil
}
