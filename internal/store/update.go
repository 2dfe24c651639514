package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// setClause accumulates "column = $n" assignments for a partial UPDATE.
type setClause struct {
	parts []string
	args  []any
}

func (s *setClause) add(column string, value any) {
	s.args = append(s.args, value)
	s.parts = append(s.parts, fmt.Sprintf("%s = $%d", column, len(s.args)))
}

func (s *setClause) empty() bool {
	return len(s.parts) == 0
}

// arg appends a WHERE argument and returns its placeholder.
func (s *setClause) arg(value any) string {
	s.args = append(s.args, value)
	return fmt.Sprintf("$%d", len(s.args))
}

func (s *setClause) String() string {
	return strings.Join(s.parts, ", ")
}

// ProductUpdate carries the fields a farmer changes. Unset fields are left alone, so
// setting a description to "" clears it.
type ProductUpdate struct {
	name          *string
	description   *string
	unit          *string
	price         *decimal.Decimal
	stockQuantity *int
	isBox         *bool
	active        *bool
}

func (u *ProductUpdate) SetName(v string) *ProductUpdate        { u.name = &v; return u }
func (u *ProductUpdate) SetDescription(v string) *ProductUpdate { u.description = &v; return u }
func (u *ProductUpdate) SetUnit(v string) *ProductUpdate        { u.unit = &v; return u }
func (u *ProductUpdate) SetPrice(v decimal.Decimal) *ProductUpdate {
	u.price = &v
	return u
}
func (u *ProductUpdate) SetStockQuantity(v int) *ProductUpdate { u.stockQuantity = &v; return u }
func (u *ProductUpdate) SetIsBox(v bool) *ProductUpdate        { u.isBox = &v; return u }
func (u *ProductUpdate) SetActive(v bool) *ProductUpdate       { u.active = &v; return u }

func (u *ProductUpdate) IsEmpty() bool {
	return u.name == nil && u.description == nil && u.unit == nil && u.price == nil &&
		u.stockQuantity == nil && u.isBox == nil && u.active == nil
}

func (u *ProductUpdate) Validate() error {
	if u.name != nil && strings.TrimSpace(*u.name) == "" {
		return errors.New("name must not be empty")
	}
	if u.price != nil && u.price.IsNegative() {
		return errors.New("price must not be negative")
	}
	if u.stockQuantity != nil && *u.stockQuantity < 0 {
		return errors.New("stock quantity must not be negative")
	}
	return nil
}

func (u *ProductUpdate) clause() *setClause {
	s := &setClause{}
	if u.name != nil {
		s.add("name", *u.name)
	}
	if u.description != nil {
		s.add("description", *u.description)
	}
	if u.unit != nil {
		s.add("unit", *u.unit)
	}
	if u.price != nil {
		s.add("price", *u.price)
	}
	if u.stockQuantity != nil {
		s.add("stock_quantity", *u.stockQuantity)
	}
	if u.isBox != nil {
		s.add("is_box", *u.isBox)
	}
	if u.active != nil {
		s.add("active", *u.active)
	}
	return s
}

type FarmUpdate struct {
	name        *string
	description *string
	location    *string
	contactInfo *string
}

func (u *FarmUpdate) SetName(v string) *FarmUpdate        { u.name = &v; return u }
func (u *FarmUpdate) SetDescription(v string) *FarmUpdate { u.description = &v; return u }
func (u *FarmUpdate) SetLocation(v string) *FarmUpdate    { u.location = &v; return u }
func (u *FarmUpdate) SetContactInfo(v string) *FarmUpdate { u.contactInfo = &v; return u }

func (u *FarmUpdate) IsEmpty() bool {
	return u.name == nil && u.description == nil && u.location == nil && u.contactInfo == nil
}

func (u *FarmUpdate) Validate() error {
	if u.name != nil && strings.TrimSpace(*u.name) == "" {
		return errors.New("name must not be empty")
	}
	return nil
}

func (u *FarmUpdate) clause() *setClause {
	s := &setClause{}
	if u.name != nil {
		s.add("name", *u.name)
	}
	if u.description != nil {
		s.add("description", *u.description)
	}
	if u.location != nil {
		s.add("location", *u.location)
	}
	if u.contactInfo != nil {
		s.add("contact_info", *u.contactInfo)
	}
	return s
}
