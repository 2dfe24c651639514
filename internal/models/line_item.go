package models

import "github.com/shopspring/decimal"

// LineItem is one product line of a cart, priced at the unit price captured when it was added.
type LineItem struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	FarmID      int64           `json:"farm_id"`
	FarmName    string          `json:"farm_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	Unit        string          `json:"unit,omitempty"`
}

func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}
