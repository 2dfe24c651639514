package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/safar/farm-market/internal/database"
	"github.com/safar/farm-market/internal/models"
)

type NewUser struct {
	Email        string
	Name         string
	PasswordHash string
	Role         models.Role
	FarmID       *int64
}

const userColumns = `id, email, name, password_hash, role, farm_id, created_at, updated_at, version`

func scanUser(row interface{ Scan(...any) error }, user *models.User) error {
	var farmID sql.NullInt64
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.Role,
		&farmID,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.Version,
	)
	if err != nil {
		return err
	}
	if farmID.Valid {
		user.FarmID = &farmID.Int64
	}
	return nil
}

func CreateUser(ctx context.Context, q database.Querier, in NewUser) (*models.User, error) {
	user := &models.User{}

	query := `
		INSERT INTO users (email, name, password_hash, role, farm_id, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW(), 1)
		RETURNING ` + userColumns

	err := scanUser(q.QueryRowContext(ctx, query,
		normalizeEmail(in.Email), in.Name, in.PasswordHash, in.Role, in.FarmID), user)
	if err != nil {
		if database.IsUniqueViolation(err, "users_email_key") {
			return nil, database.ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func GetUser(ctx context.Context, q database.Querier, id int64) (*models.User, error) {
	user := &models.User{}

	err := scanUser(q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id), user)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}

func GetUserByEmail(ctx context.Context, q database.Querier, email string) (*models.User, error) {
	user := &models.User{}

	err := scanUser(q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, normalizeEmail(email)), user)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
