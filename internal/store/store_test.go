package store

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductUpdateClause(t *testing.T) {
	u := (&ProductUpdate{}).SetName("Kale").SetDescription("").SetPrice(decimal.NewFromInt(3))
	require.False(t, u.IsEmpty())
	require.NoError(t, u.Validate())

	set := u.clause()
	idArg := set.arg(int64(7))

	assert.Equal(t, "name = $1, description = $2, price = $3", set.String())
	assert.Equal(t, "$4", idArg)
	assert.Len(t, set.args, 4)
	assert.Equal(t, "", set.args[1])
}

func TestProductUpdateValidate(t *testing.T) {
	assert.True(t, (&ProductUpdate{}).IsEmpty())
	assert.Error(t, (&ProductUpdate{}).SetName("  ").Validate())
	assert.Error(t, (&ProductUpdate{}).SetPrice(decimal.NewFromInt(-1)).Validate())
	assert.Error(t, (&ProductUpdate{}).SetStockQuantity(-5).Validate())
	assert.NoError(t, (&ProductUpdate{}).SetActive(false).Validate())
}

func TestFarmUpdateClause(t *testing.T) {
	u := (&FarmUpdate{}).SetLocation("").SetContactInfo("call us")
	set := u.clause()

	assert.Equal(t, "location = $1, contact_info = $2", set.String())
	assert.Error(t, (&FarmUpdate{}).SetName("").Validate())
	assert.True(t, (&FarmUpdate{}).IsEmpty())
}

func TestNormalizePage(t *testing.T) {
	page, size := NormalizePage(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, DefaultPageSize, size)

	page, size = NormalizePage(3, 1000)
	assert.Equal(t, 3, page)
	assert.Equal(t, MaxPageSize, size)
}

func TestNewOffsetPage(t *testing.T) {
	p := newOffsetPage([]int{1, 2}, 21, 2, 10)
	assert.Equal(t, 3, p.TotalPages)

	p = newOffsetPage(nil, 0, 1, 10)
	assert.Equal(t, 0, p.TotalPages)
}

func TestCursorRoundTrip(t *testing.T) {
	in := OrderCursor{CreatedAt: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC), ID: 42}

	out, err := DecodeCursor(EncodeCursor(in))
	require.NoError(t, err)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, in.ID, out.ID)

	start, err := DecodeCursor("")
	require.NoError(t, err)
	assert.True(t, start.IsZero())
	assert.False(t, out.IsZero())

	_, err = DecodeCursor("not base64!")
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestOrdersPageQuery(t *testing.T) {
	first, args := ordersPageQuery(9, OrderCursor{}, 21)
	assert.NotContains(t, first, "created_at, o.id) <")
	assert.Equal(t, []any{int64(9), 21}, args)

	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	next, args := ordersPageQuery(9, OrderCursor{CreatedAt: at, ID: 42}, 21)
	assert.Contains(t, next, "(o.created_at, o.id) < ($2, $3)")
	assert.Equal(t, []any{int64(9), at, int64(42), 21}, args)
}
