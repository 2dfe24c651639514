package checkout

import (
	"context"
	"testing"

	"github.com/safar/farm-market/internal/models"
	"github.com/safar/farm-market/internal/orders"
	"github.com/safar/farm-market/internal/pricing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func catalog() map[int64]models.Product {
	return map[int64]models.Product{
		1: {ID: 1, FarmID: 1, FarmName: "Green Acres", Name: "Carrots", Unit: "kg", Price: decimal.NewFromInt(30), StockQuantity: 10, Active: true},
		2: {ID: 2, FarmID: 1, FarmName: "Green Acres", Name: "Potatoes", Unit: "kg", Price: decimal.NewFromInt(20), StockQuantity: 10, Active: true},
		3: {ID: 3, FarmID: 2, FarmName: "Hill Dairy", Name: "Milk", Unit: "l", Price: decimal.NewFromInt(50), StockQuantity: 10, Active: true},
		4: {ID: 4, FarmID: 2, FarmName: "Hill Dairy", Name: "Cream", Unit: "l", Price: decimal.NewFromInt(8)},
	}
}

func TestMergeItems(t *testing.T) {
	merged := MergeItems([]ItemRequest{
		{ProductID: 3, Quantity: 1},
		{ProductID: 1, Quantity: 2},
		{ProductID: 3, Quantity: 4},
	})

	assert.Equal(t, []ItemRequest{{ProductID: 3, Quantity: 5}, {ProductID: 1, Quantity: 2}}, merged)
}

func TestBuildLineItemsUsesCatalogPrices(t *testing.T) {
	lines, err := BuildLineItems([]ItemRequest{{ProductID: 1, Quantity: 2}, {ProductID: 3, Quantity: 1}}, catalog())
	require.NoError(t, err)
	require.Len(t, lines, 2)

	assert.Equal(t, int64(1), lines[0].FarmID)
	assert.Equal(t, "Green Acres", lines[0].FarmName)
	assert.True(t, lines[0].UnitPrice.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, "l", lines[1].Unit)
}

func TestBuildLineItemsUnavailable(t *testing.T) {
	_, err := BuildLineItems([]ItemRequest{{ProductID: 4, Quantity: 1}}, catalog())
	var ue *orders.UnavailableItemError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, int64(4), ue.ProductID)
	assert.Equal(t, int64(2), ue.FarmID)

	_, err = BuildLineItems([]ItemRequest{{ProductID: 99, Quantity: 1}}, catalog())
	assert.True(t, orders.IsUnavailableItem(err))
}

func TestPlaceOrderValidatesBeforeTouchingTheDatabase(t *testing.T) {
	svc := NewService(nil, pricing.NewEngine(pricing.DefaultZones()), nil, 3, zap.NewNop())
	ctx := context.Background()

	_, err := svc.PlaceOrder(ctx, PlaceOrderRequest{PaymentMethod: models.PaymentCard, Address: "x"})
	assert.ErrorIs(t, err, ErrEmptyCheckout)

	items := []ItemRequest{{ProductID: 1, Quantity: 1}}
	_, err = svc.PlaceOrder(ctx, PlaceOrderRequest{Items: items, PaymentMethod: "IOU", Address: "x"})
	assert.ErrorIs(t, err, ErrInvalidPaymentMethod)

	_, err = svc.PlaceOrder(ctx, PlaceOrderRequest{Items: items, PaymentMethod: models.PaymentCard, Address: "  "})
	assert.ErrorIs(t, err, ErrMissingAddress)
}

func TestPlaceOrderRejectsNonPositiveLinesBeforeMerging(t *testing.T) {
	svc := NewService(nil, pricing.NewEngine(pricing.DefaultZones()), nil, 3, zap.NewNop())

	cases := map[string][]ItemRequest{
		"negative repeat": {{ProductID: 1, Quantity: 5}, {ProductID: 1, Quantity: -3}},
		"zero":            {{ProductID: 2, Quantity: 0}},
	}

	for name, items := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
				Items:         items,
				PaymentMethod: models.PaymentCard,
				Address:       "1 Farm Lane",
			})
			var ve *pricing.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, "quantity", ve.Field)
		})
	}
}

func TestPreviewMatchesEngine(t *testing.T) {
	engine := pricing.NewEngine(pricing.DefaultZones())
	svc := NewService(nil, engine, nil, 3, zap.NewNop())

	lines, err := BuildLineItems([]ItemRequest{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 1}, {ProductID: 3, Quantity: 1}}, catalog())
	require.NoError(t, err)

	preview, err := svc.Preview(lines, "ZONE_A")
	require.NoError(t, err)
	direct, err := engine.Price(lines, "ZONE_A")
	require.NoError(t, err)

	assert.True(t, preview.GrandTotal.Equal(decimal.NewFromInt(135)))
	assert.True(t, preview.GrandTotal.Equal(direct.GrandTotal))
}
