package pricing

import (
	"github.com/safar/farm-market/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PricedGroup struct {
	FarmID               int64             `json:"farm_id"`
	FarmName             string            `json:"farm_name"`
	Items                []models.LineItem `json:"items"`
	Subtotal             decimal.Decimal   `json:"subtotal"`
	DeliveryFee          decimal.Decimal   `json:"delivery_fee"`
	Total                decimal.Decimal   `json:"total"`
	AmountToFreeDelivery decimal.Decimal   `json:"amount_to_free_delivery"`
}

type Quote struct {
	ZoneID               string          `json:"zone_id"`
	Groups               []PricedGroup   `json:"groups"`
	GrandSubtotal        decimal.Decimal `json:"grand_subtotal"`
	GrandDeliveryFee     decimal.Decimal `json:"grand_delivery_fee"`
	GrandTotal           decimal.Decimal `json:"grand_total"`
	AmountToFreeDelivery decimal.Decimal `json:"amount_to_free_delivery"`
}

func (q Quote) ByFarm() map[int64]PricedGroup {
	out := make(map[int64]PricedGroup, len(q.Groups))
	for _, g := range q.Groups {
		out[g.FarmID] = g
	}
	return out
}

func (q Quote) ItemCount() int {
	n := 0
	for _, g := range q.Groups {
		for _, it := range g.Items {
			n += it.Quantity
		}
	}
	return n
}

type Option func(*Engine)

// WithStrictZones makes unknown zone ids fail with ErrUnknownZone instead of pricing delivery at zero.
func WithStrictZones() Option {
	return func(e *Engine) { e.strict = true }
}

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// Engine prices carts. It holds no mutable state and may be shared across goroutines.
type Engine struct {
	zones  *ZoneTable
	strict bool
	logger *zap.Logger
}

func NewEngine(zones *ZoneTable, opts ...Option) *Engine {
	e := &Engine{zones: zones, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Zones() *ZoneTable {
	return e.zones
}

func (e *Engine) Price(items []models.LineItem, zoneID string) (Quote, error) {
	for _, it := range items {
		if err := validateItem(it); err != nil {
			return Quote{}, err
		}
	}

	quote := Quote{ZoneID: zoneID}
	if len(items) == 0 {
		return quote, nil
	}

	zone, known := e.zones.Lookup(zoneID)
	if !known {
		if e.strict {
			return Quote{}, ErrUnknownZone
		}
		e.logger.Warn("pricing with unknown delivery zone, delivery is free",
			zap.String("zone_id", zoneID))
	}

	groups := Partition(items)
	quote.Groups = make([]PricedGroup, 0, len(groups))

	for _, g := range groups {
		subtotal := g.Subtotal

		fee := decimal.Zero
		remaining := decimal.Zero
		if known {
			fee = zone.Fee(subtotal)
			remaining = zone.Remaining(subtotal)
		}

		g.Subtotal = subtotal
		g.DeliveryFee = fee
		g.Total = subtotal.Add(fee)
		g.AmountToFreeDelivery = remaining
		quote.Groups = append(quote.Groups, g)

		quote.GrandSubtotal = quote.GrandSubtotal.Add(subtotal)
		quote.GrandDeliveryFee = quote.GrandDeliveryFee.Add(fee)
	}

	quote.GrandTotal = quote.GrandSubtotal.Add(quote.GrandDeliveryFee)
	if known {
		quote.AmountToFreeDelivery = zone.Remaining(quote.GrandSubtotal)
	}

	return quote, nil
}

// Partition groups items by farm and sums each group's subtotal. Groups appear in order of
// each farm's first item and keep the items' relative order.
func Partition(items []models.LineItem) []PricedGroup {
	index := make(map[int64]int)
	var groups []PricedGroup

	for _, it := range items {
		i, ok := index[it.FarmID]
		if !ok {
			i = len(groups)
			index[it.FarmID] = i
			groups = append(groups, PricedGroup{FarmID: it.FarmID, FarmName: it.FarmName})
		}
		groups[i].Items = append(groups[i].Items, it)
		groups[i].Subtotal = groups[i].Subtotal.Add(it.Subtotal())
	}

	return groups
}

func validateItem(it models.LineItem) error {
	if it.Quantity <= 0 {
		return &ValidationError{ProductID: it.ProductID, Field: "quantity", Message: "must be positive"}
	}
	if it.UnitPrice.IsNegative() {
		return &ValidationError{ProductID: it.ProductID, Field: "unit_price", Message: "must not be negative"}
	}
	return nil
}
