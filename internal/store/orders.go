package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/farm-market/internal/database"
	"github.com/safar/farm-market/internal/models"
	"github.com/safar/farm-market/internal/orders"
)

const orderNumberConstraint = "orders_order_number_key"

const orderColumns = `
	o.id, o.order_number, o.checkout_id, o.customer_id, o.farm_id, f.name, o.zone_id, o.status,
	o.subtotal, o.delivery_fee, o.total, o.delivery_address, o.delivery_date, o.payment_method,
	o.notes, o.subscription_id, o.created_at, o.updated_at, o.version`

const orderFrom = `FROM orders o JOIN farms f ON f.id = o.farm_id`

func scanOrder(row interface{ Scan(...any) error }, order *models.Order) error {
	var subscriptionID sql.NullString
	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.CheckoutID,
		&order.CustomerID,
		&order.FarmID,
		&order.FarmName,
		&order.ZoneID,
		&order.Status,
		&order.Subtotal,
		&order.DeliveryFee,
		&order.Total,
		&order.DeliveryAddress,
		&order.DeliveryDate,
		&order.PaymentMethod,
		&order.Notes,
		&subscriptionID,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.Version,
	)
	if err != nil {
		return err
	}
	order.SubscriptionID = subscriptionID.String
	return nil
}

// InsertOrder persists order and its items and fills in the generated ids and timestamps.
// A clash on the order number is reported as *orders.DuplicateOrderNumberError.
func InsertOrder(ctx context.Context, q database.Querier, order *models.Order) error {
	var subscriptionID any
	if order.SubscriptionID != "" {
		subscriptionID = order.SubscriptionID
	}

	err := q.QueryRowContext(ctx,
		`INSERT INTO orders (order_number, checkout_id, customer_id, farm_id, zone_id, status,
		                     subtotal, delivery_fee, total, delivery_address, delivery_date,
		                     payment_method, notes, subscription_id, created_at, updated_at, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW(), 1)
		 RETURNING id, created_at, updated_at, version`,
		order.OrderNumber, order.CheckoutID, order.CustomerID, order.FarmID, order.ZoneID, order.Status,
		order.Subtotal, order.DeliveryFee, order.Total, order.DeliveryAddress, order.DeliveryDate,
		order.PaymentMethod, order.Notes, subscriptionID,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt, &order.Version)
	if err != nil {
		if database.IsUniqueViolation(err, orderNumberConstraint) {
			return &orders.DuplicateOrderNumberError{OrderNumber: order.OrderNumber}
		}
		return fmt.Errorf("create order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		err := q.QueryRowContext(ctx,
			`INSERT INTO order_items (order_id, product_id, product_name, unit, quantity, unit_price, subtotal, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
			 RETURNING id, created_at`,
			order.ID, item.ProductID, item.ProductName, item.Unit, item.Quantity, item.UnitPrice, item.Subtotal,
		).Scan(&item.ID, &item.CreatedAt)
		if err != nil {
			return fmt.Errorf("create order item: %w", err)
		}
	}

	return nil
}

func GetOrderByNumber(ctx context.Context, q database.Querier, number string) (*models.Order, error) {
	order := &models.Order{}

	query := `SELECT ` + orderColumns + ` ` + orderFrom + ` WHERE o.order_number = $1`

	if err := scanOrder(q.QueryRowContext(ctx, query, number), order); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := getOrderItems(ctx, q, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

func getOrderItems(ctx context.Context, q database.Querier, orderID int64) ([]models.OrderItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, order_id, product_id, product_name, unit, quantity, unit_price, subtotal, created_at
		 FROM order_items
		 WHERE order_id = $1
		 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.Unit,
			&item.Quantity,
			&item.UnitPrice,
			&item.Subtotal,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

func ListOrdersCursor(ctx context.Context, q database.Querier, customerID int64, cursor string, limit int) (*CursorPage, error) {
	_, limit = NormalizePage(1, limit)

	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	query, args := ordersPageQuery(customerID, cursorData, limit+1)
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	list := []models.Order{}
	for rows.Next() {
		var order models.Order
		if err := scanOrder(rows, &order); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		list = append(list, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(list) > limit
	if hasMore {
		list = list[:limit]
	}

	var nextCursor string
	if hasMore && len(list) > 0 {
		last := list[len(list)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	return &CursorPage{
		Items:      list,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// ordersPageQuery selects a customer's orders newest first. The first page has no keyset bound.
func ordersPageQuery(customerID int64, cursor OrderCursor, limit int) (string, []any) {
	if cursor.IsZero() {
		return `
		SELECT ` + orderColumns + `
		` + orderFrom + `
		WHERE o.customer_id = $1
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $2`, []any{customerID, limit}
	}

	return `
		SELECT ` + orderColumns + `
		` + orderFrom + `
		WHERE o.customer_id = $1
		  AND (o.created_at, o.id) < ($2, $3)
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $4`, []any{customerID, cursor.CreatedAt, cursor.ID, limit}
}

// UpdateOrderStatus moves an order of farmID to status, enforcing the fulfilment flow.
func UpdateOrderStatus(ctx context.Context, tx *sql.Tx, number string, farmID int64, status string) (*models.Order, error) {
	var current string
	err := tx.QueryRowContext(ctx,
		`SELECT status FROM orders WHERE order_number = $1 AND farm_id = $2 FOR UPDATE`,
		number, farmID).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}

	if !models.CanTransitionOrder(current, status) {
		return nil, &orders.StatusTransitionError{From: current, To: status}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE orders
		 SET status = $1, version = version + 1, updated_at = NOW()
		 WHERE order_number = $2`,
		status, number)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	return GetOrderByNumber(ctx, tx, number)
}
