package cart

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/safar/farm-market/internal/models"
	"github.com/safar/farm-market/internal/pricing"
	"github.com/shopspring/decimal"
)

// Cart holds the line items of one shopper. It is not safe for concurrent use; callers load,
// mutate and save it within one request.
type Cart struct {
	ID    string
	items []models.LineItem
}

type cartState struct {
	ID    string            `json:"id"`
	Items []models.LineItem `json:"items"`
}

func New() *Cart {
	return &Cart{ID: uuid.NewString()}
}

func storageKey(id string) string {
	return "cart:" + id
}

// Load returns the stored cart, or an empty cart with that id when nothing is stored yet.
func Load(ctx context.Context, storage Storage, id string) (*Cart, error) {
	data, ok, err := storage.Get(ctx, storageKey(id))
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if !ok {
		return &Cart{ID: id}, nil
	}

	var state cartState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return &Cart{ID: id, items: state.Items}, nil
}

func (c *Cart) Save(ctx context.Context, storage Storage) error {
	data, err := json.Marshal(cartState{ID: c.ID, Items: c.items})
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := storage.Set(ctx, storageKey(c.ID), data); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (c *Cart) Discard(ctx context.Context, storage Storage) error {
	c.items = nil
	if err := storage.Delete(ctx, storageKey(c.ID)); err != nil {
		return fmt.Errorf("discard cart: %w", err)
	}
	return nil
}

// Add appends item, or raises the quantity of the line already holding the product.
func (c *Cart) Add(item models.LineItem) error {
	if item.Quantity <= 0 {
		return &pricing.ValidationError{ProductID: item.ProductID, Field: "quantity", Message: "must be positive"}
	}
	if item.UnitPrice.IsNegative() {
		return &pricing.ValidationError{ProductID: item.ProductID, Field: "unit_price", Message: "must not be negative"}
	}

	if i := c.indexOf(item.ProductID); i >= 0 {
		c.items[i].Quantity += item.Quantity
		return nil
	}
	c.items = append(c.items, item)
	return nil
}

// UpdateQuantity sets the quantity of a line. A quantity of zero or less removes it.
func (c *Cart) UpdateQuantity(productID int64, quantity int) bool {
	i := c.indexOf(productID)
	if i < 0 {
		return false
	}
	if quantity <= 0 {
		c.items = append(c.items[:i], c.items[i+1:]...)
		return true
	}
	c.items[i].Quantity = quantity
	return true
}

func (c *Cart) Remove(productID int64) bool {
	return c.UpdateQuantity(productID, 0)
}

func (c *Cart) Clear() {
	c.items = nil
}

func (c *Cart) Items() []models.LineItem {
	out := make([]models.LineItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Len() int {
	return len(c.items)
}

func (c *Cart) ItemCount() int {
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.items {
		total = total.Add(it.Subtotal())
	}
	return total
}

func (c *Cart) GroupByFarm() []pricing.PricedGroup {
	return pricing.Partition(c.Items())
}

func (c *Cart) indexOf(productID int64) int {
	for i, it := range c.items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}
