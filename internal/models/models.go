package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleFarmer   Role = "FARMER"
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	FarmID       *int64    `json:"farm_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Version      int       `json:"version"`
}

type Farm struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	ContactInfo string    `json:"contact_info,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Version     int       `json:"version"`
}

type Product struct {
	ID            int64           `json:"id"`
	FarmID        int64           `json:"farm_id"`
	FarmName      string          `json:"farm_name,omitempty"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Unit          string          `json:"unit"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	IsBox         bool            `json:"is_box"`
	Active        bool            `json:"active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Version       int             `json:"version"`
}

type Order struct {
	ID              int64           `json:"id"`
	OrderNumber     string          `json:"order_number"`
	CheckoutID      string          `json:"checkout_id"`
	CustomerID      int64           `json:"customer_id"`
	FarmID          int64           `json:"farm_id"`
	FarmName        string          `json:"farm_name"`
	ZoneID          string          `json:"zone_id"`
	Status          string          `json:"status"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DeliveryFee     decimal.Decimal `json:"delivery_fee"`
	Total           decimal.Decimal `json:"total"`
	DeliveryAddress string          `json:"delivery_address"`
	DeliveryDate    *time.Time      `json:"delivery_date,omitempty"`
	PaymentMethod   string          `json:"payment_method"`
	Notes           string          `json:"notes,omitempty"`
	SubscriptionID  string          `json:"subscription_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Version         int             `json:"version"`
	Items           []OrderItem     `json:"items,omitempty"`
}

type OrderItem struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"order_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Unit        string          `json:"unit,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	CreatedAt   time.Time       `json:"created_at"`
}

const (
	OrderStatusPending   = "PENDING"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusShipped   = "SHIPPED"
	OrderStatusDelivered = "DELIVERED"
	OrderStatusCancelled = "CANCELLED"
)

var orderTransitions = map[string][]string{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:   {OrderStatusDelivered},
}

// CanTransitionOrder reports whether a farm may move an order from one status to another.
func CanTransitionOrder(from, to string) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

const (
	PaymentCashOnDelivery = "CASH_ON_DELIVERY"
	PaymentCard           = "CARD"
	PaymentBankTransfer   = "BANK_TRANSFER"
)

func ValidPaymentMethod(method string) bool {
	switch method {
	case PaymentCashOnDelivery, PaymentCard, PaymentBankTransfer:
		return true
	}
	return false
}

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "ACTIVE"
	SubscriptionPaused    SubscriptionStatus = "PAUSED"
	SubscriptionCancelled SubscriptionStatus = "CANCELLED"
)

type Frequency string

const (
	FrequencyWeekly   Frequency = "WEEKLY"
	FrequencyBiweekly Frequency = "BIWEEKLY"
	FrequencyMonthly  Frequency = "MONTHLY"
)

// Advance moves t forward by one delivery cycle.
func (f Frequency) Advance(t time.Time) time.Time {
	switch f {
	case FrequencyBiweekly:
		return t.AddDate(0, 0, 14)
	case FrequencyMonthly:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 7)
	}
}

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
		return true
	}
	return false
}

type Subscription struct {
	ID               string             `json:"id"`
	CustomerID       int64              `json:"customer_id"`
	BoxProductID     int64              `json:"box_product_id"`
	FarmID           int64              `json:"farm_id"`
	ZoneID           string             `json:"zone_id"`
	DeliveryAddress  string             `json:"delivery_address"`
	Frequency        Frequency          `json:"frequency"`
	Status           SubscriptionStatus `json:"status"`
	NextDeliveryDate time.Time          `json:"next_delivery_date"`
	SkipCount        int                `json:"skip_count"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
	Version          int                `json:"version"`
}
