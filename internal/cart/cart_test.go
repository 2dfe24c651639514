package cart

import (
	"context"
	"testing"

	"github.com/safar/farm-market/internal/models"
	"github.com/safar/farm-market/internal/pricing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lineItem(productID, farmID int64, price string, qty int) models.LineItem {
	return models.LineItem{
		ProductID: productID,
		FarmID:    farmID,
		UnitPrice: decimal.RequireFromString(price),
		Quantity:  qty,
	}
}

func TestAddMergesSameProduct(t *testing.T) {
	c := New()

	require.NoError(t, c.Add(lineItem(1, 1, "3.50", 2)))
	require.NoError(t, c.Add(lineItem(2, 2, "1.25", 1)))
	require.NoError(t, c.Add(lineItem(1, 1, "3.50", 3)))

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 5, items[0].Quantity)
	assert.Equal(t, 6, c.ItemCount())
	assert.True(t, c.Subtotal().Equal(decimal.RequireFromString("18.75")))
}

func TestAddRejectsInvalidItems(t *testing.T) {
	c := New()

	err := c.Add(lineItem(1, 1, "2", 0))
	assert.True(t, pricing.IsValidationError(err))

	err = c.Add(lineItem(1, 1, "-2", 1))
	assert.True(t, pricing.IsValidationError(err))

	assert.Equal(t, 0, c.Len())
}

func TestUpdateQuantityNonPositiveRemoves(t *testing.T) {
	c := New()
	require.NoError(t, c.Add(lineItem(1, 1, "2", 1)))
	require.NoError(t, c.Add(lineItem(2, 1, "2", 1)))

	assert.True(t, c.UpdateQuantity(1, 4))
	assert.Equal(t, 4, c.Items()[0].Quantity)

	assert.True(t, c.UpdateQuantity(1, 0))
	require.Equal(t, 1, c.Len())
	assert.Equal(t, int64(2), c.Items()[0].ProductID)

	assert.True(t, c.UpdateQuantity(2, -1))
	assert.Equal(t, 0, c.Len())

	assert.False(t, c.UpdateQuantity(99, 1))
}

func TestRemoveAndClear(t *testing.T) {
	c := New()
	require.NoError(t, c.Add(lineItem(1, 1, "2", 1)))
	require.NoError(t, c.Add(lineItem(2, 1, "2", 1)))

	assert.True(t, c.Remove(2))
	assert.False(t, c.Remove(2))
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.True(t, c.Subtotal().IsZero())
}

func TestItemsReturnsCopy(t *testing.T) {
	c := New()
	require.NoError(t, c.Add(lineItem(1, 1, "2", 1)))

	items := c.Items()
	items[0].Quantity = 100

	assert.Equal(t, 1, c.Items()[0].Quantity)
}

func TestGroupByFarm(t *testing.T) {
	c := New()
	require.NoError(t, c.Add(lineItem(1, 2, "12.50", 2)))
	require.NoError(t, c.Add(lineItem(2, 1, "30", 3)))
	require.NoError(t, c.Add(lineItem(3, 2, "4", 1)))

	groups := c.GroupByFarm()
	require.Len(t, groups, 2)
	assert.Equal(t, int64(2), groups[0].FarmID)
	assert.Len(t, groups[0].Items, 2)
	assert.True(t, groups[0].Subtotal.Equal(decimal.RequireFromString("29")), "farm 2 subtotal %s", groups[0].Subtotal)
	assert.Equal(t, int64(1), groups[1].FarmID)
	assert.True(t, groups[1].Subtotal.Equal(decimal.NewFromInt(90)), "farm 1 subtotal %s", groups[1].Subtotal)
	assert.True(t, groups[0].Subtotal.Add(groups[1].Subtotal).Equal(c.Subtotal()))
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()

	c := New()
	require.NoError(t, c.Add(lineItem(1, 1, "4.20", 2)))
	require.NoError(t, c.Save(ctx, storage))

	loaded, err := Load(ctx, storage, c.ID)
	require.NoError(t, err)
	require.Equal(t, 1, loaded.Len())
	assert.True(t, loaded.Items()[0].UnitPrice.Equal(decimal.RequireFromString("4.20")))

	require.NoError(t, loaded.Discard(ctx, storage))
	empty, err := Load(ctx, storage, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
	assert.Equal(t, c.ID, empty.ID)
}

func TestLoadCorruptCart(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	require.NoError(t, storage.Set(ctx, "cart:broken", []byte("{not json")))

	_, err := Load(ctx, storage, "broken")
	assert.Error(t, err)
}
