package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/safar/farm-market/internal/models"
	"github.com/safar/farm-market/internal/pricing"
	"github.com/shopspring/decimal"
)

// Catalog resolves products at composition time. Missing ids are simply absent from the map.
type Catalog interface {
	Products(ctx context.Context, ids []int64) (map[int64]models.Product, error)
}

type CatalogFunc func(ctx context.Context, ids []int64) (map[int64]models.Product, error)

func (f CatalogFunc) Products(ctx context.Context, ids []int64) (map[int64]models.Product, error) {
	return f(ctx, ids)
}

// StaticCatalog serves products that were already loaded, e.g. inside a checkout transaction.
type StaticCatalog map[int64]models.Product

func (s StaticCatalog) Products(_ context.Context, ids []int64) (map[int64]models.Product, error) {
	out := make(map[int64]models.Product, len(ids))
	for _, id := range ids {
		if p, ok := s[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type DeliveryMeta struct {
	CheckoutID     string
	CustomerID     int64
	ZoneID         string
	Address        string
	DeliveryDate   *time.Time
	PaymentMethod  string
	Notes          string
	SubscriptionID string
}

type Composer struct {
	catalog Catalog
	numbers NumberGenerator
}

func NewComposer(catalog Catalog, numbers NumberGenerator) *Composer {
	return &Composer{catalog: catalog, numbers: numbers}
}

// Compose turns priced farm groups into one pending order per non-empty group. Amounts are
// copied from the groups as they are; order items are snapshots detached from the catalog.
func (c *Composer) Compose(ctx context.Context, groups []pricing.PricedGroup, meta DeliveryMeta) ([]models.Order, error) {
	var ids []int64
	for _, g := range groups {
		for _, it := range g.Items {
			ids = append(ids, it.ProductID)
		}
	}
	if len(ids) == 0 {
		return []models.Order{}, nil
	}

	products, err := c.catalog.Products(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve products: %w", err)
	}

	orders := make([]models.Order, 0, len(groups))
	for _, g := range groups {
		if len(g.Items) == 0 {
			continue
		}

		farmName := g.FarmName
		items := make([]models.OrderItem, 0, len(g.Items))
		for _, it := range g.Items {
			p, ok := products[it.ProductID]
			if !ok || !p.Active || p.FarmID != g.FarmID {
				return nil, &UnavailableItemError{ProductID: it.ProductID, FarmID: g.FarmID}
			}
			if farmName == "" {
				farmName = p.FarmName
			}
			items = append(items, snapshotItem(it, p))
		}

		orders = append(orders, models.Order{
			OrderNumber:     c.numbers.Next(),
			CheckoutID:      meta.CheckoutID,
			CustomerID:      meta.CustomerID,
			FarmID:          g.FarmID,
			FarmName:        farmName,
			ZoneID:          meta.ZoneID,
			Status:          models.OrderStatusPending,
			Subtotal:        g.Subtotal,
			DeliveryFee:     g.DeliveryFee,
			Total:           g.Total,
			DeliveryAddress: meta.Address,
			DeliveryDate:    copyTime(meta.DeliveryDate),
			PaymentMethod:   meta.PaymentMethod,
			Notes:           meta.Notes,
			SubscriptionID:  meta.SubscriptionID,
			Items:           items,
		})
	}

	return orders, nil
}

// Renumber gives every order a fresh number after a persistence collision.
func (c *Composer) Renumber(orders []models.Order) {
	for i := range orders {
		orders[i].OrderNumber = c.numbers.Next()
	}
}

func snapshotItem(it models.LineItem, p models.Product) models.OrderItem {
	name := it.ProductName
	if name == "" {
		name = p.Name
	}
	unit := it.Unit
	if unit == "" {
		unit = p.Unit
	}
	return models.OrderItem{
		ProductID:   it.ProductID,
		ProductName: name,
		Unit:        unit,
		Quantity:    it.Quantity,
		UnitPrice:   it.UnitPrice,
		Subtotal:    it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))),
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
