package subscription

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/safar/farm-market/internal/database"
	"github.com/safar/farm-market/internal/models"
	"github.com/safar/farm-market/internal/orders"
	"github.com/safar/farm-market/internal/pricing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingNumbers struct{ n int }

func (c *countingNumbers) Next() string {
	c.n++
	return fmt.Sprintf("BOX-%d", c.n)
}

func boxCatalog() orders.StaticCatalog {
	return orders.StaticCatalog{
		7: {ID: 7, FarmID: 3, FarmName: "Orchard", Name: "Fruit box", Unit: "box", Price: decimal.NewFromInt(40), IsBox: true, Active: true},
	}
}

func boxSub() *models.Subscription {
	return &models.Subscription{
		ID: "sub-7", CustomerID: 11, BoxProductID: 7, FarmID: 3, ZoneID: "ZONE_A",
		DeliveryAddress: "2 Orchard Way", Frequency: models.FrequencyWeekly,
		Status: models.SubscriptionActive, NextDeliveryDate: time.Date(2026, 3, 6, 9, 30, 0, 0, time.UTC),
	}
}

func TestMaterializeDelivery(t *testing.T) {
	catalog := boxCatalog()
	composer := orders.NewComposer(catalog, &countingNumbers{})
	sub := boxSub()

	order, err := MaterializeDelivery(context.Background(), pricing.NewEngine(pricing.DefaultZones()), composer, sub, catalog)
	require.NoError(t, err)

	assert.Equal(t, "BOX-1", order.OrderNumber)
	assert.Equal(t, "sub-7", order.SubscriptionID)
	assert.Equal(t, int64(11), order.CustomerID)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.True(t, order.Subtotal.Equal(decimal.NewFromInt(40)))
	assert.True(t, order.DeliveryFee.Equal(decimal.NewFromInt(5)))
	assert.True(t, order.Total.Equal(decimal.NewFromInt(45)))
	require.NotNil(t, order.DeliveryDate)
	assert.Equal(t, sub.NextDeliveryDate, *order.DeliveryDate)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Fruit box", order.Items[0].ProductName)
}

func TestMaterializeDeliveryUnavailableBox(t *testing.T) {
	engine := pricing.NewEngine(pricing.DefaultZones())

	for name, mutate := range map[string]func(orders.StaticCatalog){
		"withdrawn": func(c orders.StaticCatalog) { p := c[7]; p.Active = false; c[7] = p },
		"moved":     func(c orders.StaticCatalog) { p := c[7]; p.FarmID = 4; c[7] = p },
		"deleted":   func(c orders.StaticCatalog) { delete(c, 7) },
	} {
		t.Run(name, func(t *testing.T) {
			catalog := boxCatalog()
			mutate(catalog)
			composer := orders.NewComposer(catalog, &countingNumbers{})

			_, err := MaterializeDelivery(context.Background(), engine, composer, boxSub(), catalog)
			assert.True(t, orders.IsUnavailableItem(err), "got %v", err)
		})
	}
}

func TestCreateRequestValidate(t *testing.T) {
	valid := CreateRequest{BoxProductID: 7, ZoneID: "ZONE_A", DeliveryAddress: "x", Frequency: models.FrequencyMonthly}
	assert.NoError(t, valid.validate())

	bad := valid
	bad.Frequency = "DAILY"
	assert.ErrorIs(t, bad.validate(), ErrInvalidSubscription)

	bad = valid
	bad.BoxProductID = 0
	assert.ErrorIs(t, bad.validate(), ErrInvalidSubscription)
}

func TestMaterializeDeliveryStrictUnknownZone(t *testing.T) {
	catalog := boxCatalog()
	composer := orders.NewComposer(catalog, &countingNumbers{})
	sub := boxSub()
	sub.ZoneID = "ZONE_X"

	_, err := MaterializeDelivery(context.Background(), pricing.NewEngine(pricing.DefaultZones(), pricing.WithStrictZones()), composer, sub, catalog)
	assert.ErrorIs(t, err, pricing.ErrUnknownZone)
	assert.True(t, undeliverableErr(err))
}

func TestUndeliverableErr(t *testing.T) {
	assert.True(t, undeliverableErr(&orders.UnavailableItemError{ProductID: 7}))
	assert.True(t, undeliverableErr(fmt.Errorf("decrement stock: %w", database.ErrInsufficientStock)))
	assert.True(t, undeliverableErr(pricing.ErrUnknownZone))
	assert.False(t, undeliverableErr(database.ErrOptimisticLockFailed))
	assert.False(t, undeliverableErr(nil))
}

func TestCreateRejectsUnknownZone(t *testing.T) {
	lifecycle := NewLifecycle(2, pricing.DefaultZones(), nil)
	svc := NewService(nil, lifecycle, zap.NewNop())

	_, err := svc.Create(context.Background(), 11, CreateRequest{
		BoxProductID: 7, ZoneID: "ZONE_X", DeliveryAddress: "2 Orchard Way", Frequency: models.FrequencyWeekly,
	})
	assert.ErrorIs(t, err, ErrInvalidSubscription)
	assert.True(t, lifecycle.KnowsZone("ZONE_A"))
	assert.False(t, lifecycle.KnowsZone("ZONE_X"))
}
