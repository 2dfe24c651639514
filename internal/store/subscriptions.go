package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/safar/farm-market/internal/database"
	"github.com/safar/farm-market/internal/models"
)

const subscriptionColumns = `
	id, customer_id, box_product_id, farm_id, zone_id, delivery_address, frequency, status,
	next_delivery_date, skip_count, created_at, updated_at, version`

func scanSubscription(row interface{ Scan(...any) error }, sub *models.Subscription) error {
	return row.Scan(
		&sub.ID,
		&sub.CustomerID,
		&sub.BoxProductID,
		&sub.FarmID,
		&sub.ZoneID,
		&sub.DeliveryAddress,
		&sub.Frequency,
		&sub.Status,
		&sub.NextDeliveryDate,
		&sub.SkipCount,
		&sub.CreatedAt,
		&sub.UpdatedAt,
		&sub.Version,
	)
}

// CreateSubscription inserts sub. The caller assigns the id.
func CreateSubscription(ctx context.Context, q database.Querier, sub *models.Subscription) error {
	err := q.QueryRowContext(ctx,
		`INSERT INTO subscriptions (id, customer_id, box_product_id, farm_id, zone_id, delivery_address,
		                            frequency, status, next_delivery_date, skip_count, created_at, updated_at, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW(), 1)
		 RETURNING created_at, updated_at, version`,
		sub.ID, sub.CustomerID, sub.BoxProductID, sub.FarmID, sub.ZoneID, sub.DeliveryAddress,
		sub.Frequency, sub.Status, sub.NextDeliveryDate, sub.SkipCount,
	).Scan(&sub.CreatedAt, &sub.UpdatedAt, &sub.Version)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return database.ErrProductNotFound
		}
		return fmt.Errorf("create subscription: %w", err)
	}

	return nil
}

func GetSubscription(ctx context.Context, q database.Querier, id string) (*models.Subscription, error) {
	sub := &models.Subscription{}

	err := scanSubscription(q.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`, id), sub)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}

	return sub, nil
}

// SaveSubscription writes the mutable lifecycle fields back if nobody else changed the row
// since it was read. On success sub.Version is bumped.
func SaveSubscription(ctx context.Context, q database.Querier, sub *models.Subscription) error {
	err := q.QueryRowContext(ctx,
		`UPDATE subscriptions
		 SET status = $1, next_delivery_date = $2, skip_count = $3, delivery_address = $4,
		     version = version + 1, updated_at = NOW()
		 WHERE id = $5 AND version = $6
		 RETURNING updated_at, version`,
		sub.Status, sub.NextDeliveryDate, sub.SkipCount, sub.DeliveryAddress, sub.ID, sub.Version,
	).Scan(&sub.UpdatedAt, &sub.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, getErr := GetSubscription(ctx, q, sub.ID); getErr != nil {
				return getErr
			}
			return database.ErrOptimisticLockFailed
		}
		return fmt.Errorf("save subscription: %w", err)
	}

	return nil
}

// ClaimDueSubscription locks the oldest ACTIVE subscription due at now. Rows locked by other
// dispatchers are skipped. Returns ErrSubscriptionNotFound when nothing is due.
func ClaimDueSubscription(ctx context.Context, tx *sql.Tx, now time.Time) (*models.Subscription, error) {
	sub := &models.Subscription{}

	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE status = $1
		  AND next_delivery_date <= $2
		ORDER BY next_delivery_date
		FOR UPDATE SKIP LOCKED
		LIMIT 1`

	err := scanSubscription(tx.QueryRowContext(ctx, query, models.SubscriptionActive, now), sub)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("claim due subscription: %w", err)
	}

	return sub, nil
}

// ResetSkipCounts starts a new billing cycle for every subscription.
func ResetSkipCounts(ctx context.Context, q database.Querier) (int64, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE subscriptions
		 SET skip_count = 0, version = version + 1, updated_at = NOW()
		 WHERE skip_count > 0 AND status <> $1`,
		models.SubscriptionCancelled)
	if err != nil {
		return 0, fmt.Errorf("reset skip counts: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}

	return n, nil
}
