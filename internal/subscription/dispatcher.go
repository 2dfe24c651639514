package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/safar/farm-market/internal/database"
	"github.com/safar/farm-market/internal/models"
	"github.com/safar/farm-market/internal/orders"
	"github.com/safar/farm-market/internal/pricing"
	"github.com/safar/farm-market/internal/store"
	"go.uber.org/zap"
)

// Dispatcher materializes due box deliveries into pending orders.
type Dispatcher struct {
	db        *sql.DB
	lifecycle *Lifecycle
	engine    *pricing.Engine
	numbers   orders.NumberGenerator
	interval  time.Duration
	logger    *zap.Logger
}

func NewDispatcher(db *sql.DB, lifecycle *Lifecycle, engine *pricing.Engine, numbers orders.NumberGenerator, interval time.Duration, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		db:        db,
		lifecycle: lifecycle,
		engine:    engine,
		numbers:   numbers,
		interval:  interval,
		logger:    logger,
	}
}

// RunOnce materializes at most one due subscription. It reports false when nothing was due.
// A subscription that can no longer be delivered (box gone or out of stock, zone no longer
// configured) is paused instead.
func (d *Dispatcher) RunOnce(ctx context.Context, now time.Time) (bool, error) {
	var order *models.Order
	var sub *models.Subscription
	var undeliverable error

	err := database.WithRetry(ctx, d.db, database.SerializableTxOptions(3), func(tx *sql.Tx) error {
		order, undeliverable = nil, nil

		var err error
		sub, err = store.ClaimDueSubscription(ctx, tx, now)
		if err != nil {
			return err
		}
		if !d.lifecycle.Due(sub, now) {
			return database.ErrSubscriptionNotFound
		}

		products, err := store.GetProductsByIDs(ctx, tx, []int64{sub.BoxProductID}, true)
		if err != nil {
			return err
		}

		order, err = MaterializeDelivery(ctx, d.engine, orders.NewComposer(orders.StaticCatalog(products), d.numbers), sub, products)
		if err == nil {
			err = store.DecrementStock(ctx, tx, sub.BoxProductID, 1)
		}
		if undeliverableErr(err) {
			undeliverable, order = err, nil
			if err := d.lifecycle.Pause(sub); err != nil {
				return err
			}
			return store.SaveSubscription(ctx, tx, sub)
		}
		if err != nil {
			return err
		}

		if err := store.InsertOrder(ctx, tx, order); err != nil {
			return err
		}

		d.lifecycle.Delivered(sub)
		return store.SaveSubscription(ctx, tx, sub)
	})
	if errors.Is(err, database.ErrSubscriptionNotFound) {
		return false, nil
	}
	if err != nil {
		subID := ""
		if sub != nil {
			subID = sub.ID
		}
		return false, fmt.Errorf("dispatch subscription %s: %w", subID, err)
	}

	if undeliverable != nil {
		d.logger.Warn("subscription paused, delivery cannot be materialized",
			zap.String("subscription_id", sub.ID),
			zap.Int64("box_product_id", sub.BoxProductID),
			zap.String("zone_id", sub.ZoneID),
			zap.Error(undeliverable),
		)
		return true, nil
	}

	d.logger.Info("subscription delivery materialized",
		zap.String("subscription_id", sub.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Time("next_delivery_date", sub.NextDeliveryDate),
	)
	return true, nil
}

func undeliverableErr(err error) bool {
	return orders.IsUnavailableItem(err) ||
		errors.Is(err, database.ErrInsufficientStock) ||
		errors.Is(err, pricing.ErrUnknownZone)
}

// Drain runs RunOnce until nothing is due or a dispatch fails.
func (d *Dispatcher) Drain(ctx context.Context, now time.Time) (int, error) {
	n := 0
	for {
		ok, err := d.RunOnce(ctx, now)
		if err != nil || !ok {
			return n, err
		}
		n++
	}
}

// Run drains due subscriptions on every tick until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		n, err := d.Drain(ctx, d.lifecycle.Now())
		if err != nil && ctx.Err() == nil {
			d.logger.Error("subscription dispatch failed", zap.Error(err))
		}
		if n > 0 {
			d.logger.Info("subscription dispatch round", zap.Int("materialized", n))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// MaterializeDelivery prices one box for the subscription and composes its order.
func MaterializeDelivery(ctx context.Context, engine *pricing.Engine, composer *orders.Composer, sub *models.Subscription, products map[int64]models.Product) (*models.Order, error) {
	box, ok := products[sub.BoxProductID]
	if !ok || !box.Active || box.FarmID != sub.FarmID {
		return nil, &orders.UnavailableItemError{ProductID: sub.BoxProductID, FarmID: sub.FarmID}
	}

	quote, err := engine.Price([]models.LineItem{{
		ProductID:   box.ID,
		ProductName: box.Name,
		FarmID:      box.FarmID,
		FarmName:    box.FarmName,
		UnitPrice:   box.Price,
		Quantity:    1,
		Unit:        box.Unit,
	}}, sub.ZoneID)
	if err != nil {
		return nil, err
	}

	deliveryDate := sub.NextDeliveryDate
	composed, err := composer.Compose(ctx, quote.Groups, orders.DeliveryMeta{
		CheckoutID:     uuid.NewString(),
		CustomerID:     sub.CustomerID,
		ZoneID:         sub.ZoneID,
		Address:        sub.DeliveryAddress,
		DeliveryDate:   &deliveryDate,
		PaymentMethod:  models.PaymentCashOnDelivery,
		SubscriptionID: sub.ID,
	})
	if err != nil {
		return nil, err
	}
	if len(composed) != 1 {
		return nil, fmt.Errorf("expected one box order, composed %d", len(composed))
	}

	return &composed[0], nil
}
