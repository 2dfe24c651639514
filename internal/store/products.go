package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/safar/farm-market/internal/database"
	"github.com/safar/farm-market/internal/models"
	"github.com/shopspring/decimal"
)

type NewProduct struct {
	FarmID        int64
	SKU           string
	Name          string
	Description   string
	Unit          string
	Price         decimal.Decimal
	StockQuantity int
	IsBox         bool
}

type ProductFilter struct {
	FarmID          *int64
	BoxesOnly       bool
	IncludeInactive bool
}

const productColumns = `
	p.id, p.farm_id, f.name, p.sku, p.name, p.description, p.unit, p.price,
	p.stock_quantity, p.is_box, p.active, p.created_at, p.updated_at, p.version`

const productFrom = `FROM products p JOIN farms f ON f.id = p.farm_id`

func scanProduct(row interface{ Scan(...any) error }, product *models.Product) error {
	return row.Scan(
		&product.ID,
		&product.FarmID,
		&product.FarmName,
		&product.SKU,
		&product.Name,
		&product.Description,
		&product.Unit,
		&product.Price,
		&product.StockQuantity,
		&product.IsBox,
		&product.Active,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
}

func CreateProduct(ctx context.Context, q database.Querier, in NewProduct) (*models.Product, error) {
	if in.Unit == "" {
		in.Unit = "unit"
	}

	var id int64
	err := q.QueryRowContext(ctx,
		`INSERT INTO products (farm_id, sku, name, description, unit, price, stock_quantity, is_box, active, created_at, updated_at, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, NOW(), NOW(), 1)
		 RETURNING id`,
		in.FarmID, in.SKU, in.Name, in.Description, in.Unit, in.Price, in.StockQuantity, in.IsBox).Scan(&id)
	if err != nil {
		if database.IsUniqueViolation(err, "products_sku_key") {
			return nil, database.ErrSKUTaken
		}
		if database.IsForeignKeyViolation(err) {
			return nil, database.ErrFarmNotFound
		}
		return nil, fmt.Errorf("create product: %w", err)
	}

	return GetProduct(ctx, q, id)
}

func GetProduct(ctx context.Context, q database.Querier, id int64) (*models.Product, error) {
	product := &models.Product{}

	query := `SELECT ` + productColumns + ` ` + productFrom + ` WHERE p.id = $1`

	if err := scanProduct(q.QueryRowContext(ctx, query, id), product); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

// GetProductsByIDs returns the requested products keyed by id. Missing ids are simply
// absent from the map. With forUpdate the product rows are locked in id order.
func GetProductsByIDs(ctx context.Context, q database.Querier, ids []int64, forUpdate bool) (map[int64]models.Product, error) {
	products := make(map[int64]models.Product, len(ids))
	if len(ids) == 0 {
		return products, nil
	}

	query := `SELECT ` + productColumns + ` ` + productFrom + ` WHERE p.id = ANY($1) ORDER BY p.id`
	if forUpdate {
		query += ` FOR UPDATE OF p`
	}

	rows, err := q.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var product models.Product
		if err := scanProduct(rows, &product); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products[product.ID] = product
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}

func ListProducts(ctx context.Context, q database.Querier, filter ProductFilter, page, pageSize int) (*OffsetPage, error) {
	page, pageSize = NormalizePage(page, pageSize)

	var where []string
	var args []any
	if !filter.IncludeInactive {
		where = append(where, "p.active")
	}
	if filter.BoxesOnly {
		where = append(where, "p.is_box")
	}
	if filter.FarmID != nil {
		args = append(args, *filter.FarmID)
		where = append(where, fmt.Sprintf("p.farm_id = $%d", len(args)))
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = "WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM products p `+whereSQL, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	offset := (page - 1) * pageSize
	query := fmt.Sprintf(`
		SELECT %s
		%s
		%s
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $%d OFFSET $%d`, productColumns, productFrom, whereSQL, len(args)+1, len(args)+2)

	rows, err := q.QueryContext(ctx, query, append(args, pageSize, offset)...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var product models.Product
		if err := scanProduct(rows, &product); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(products, total, page, pageSize), nil
}

// UpdateProduct applies update to a product owned by farmID. A version of 0 skips the
// optimistic check.
func UpdateProduct(ctx context.Context, q database.Querier, id, farmID int64, version int, update *ProductUpdate) (*models.Product, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}
	if update.IsEmpty() {
		return getOwnedProduct(ctx, q, id, farmID)
	}

	set := update.clause()
	query := fmt.Sprintf(`
		UPDATE products
		SET %s, version = version + 1, updated_at = NOW()
		WHERE id = %s AND farm_id = %s`, set.String(), set.arg(id), set.arg(farmID))
	if version > 0 {
		query += " AND version = " + set.arg(version)
	}

	result, err := q.ExecContext(ctx, query, set.args...)
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		if _, err := getOwnedProduct(ctx, q, id, farmID); err != nil {
			return nil, err
		}
		return nil, database.ErrOptimisticLockFailed
	}

	return GetProduct(ctx, q, id)
}

// DeleteProduct deactivates the product. Orders keep referencing it.
func DeleteProduct(ctx context.Context, q database.Querier, id, farmID int64) error {
	result, err := q.ExecContext(ctx,
		`UPDATE products
		 SET active = FALSE, version = version + 1, updated_at = NOW()
		 WHERE id = $1 AND farm_id = $2 AND active`,
		id, farmID)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrProductNotFound
	}

	return nil
}

func DecrementStock(ctx context.Context, q database.Querier, productID int64, quantity int) error {
	result, err := q.ExecContext(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity - $1,
		     updated_at = NOW()
		 WHERE id = $2
		   AND stock_quantity >= $1`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrInsufficientStock
	}

	return nil
}

func getOwnedProduct(ctx context.Context, q database.Querier, id, farmID int64) (*models.Product, error) {
	product, err := GetProduct(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if product.FarmID != farmID {
		return nil, database.ErrProductNotFound
	}
	return product, nil
}
