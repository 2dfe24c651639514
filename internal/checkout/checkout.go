package checkout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/safar/farm-market/internal/database"
	"github.com/safar/farm-market/internal/models"
	"github.com/safar/farm-market/internal/orders"
	"github.com/safar/farm-market/internal/pricing"
	"github.com/safar/farm-market/internal/store"
	"go.uber.org/zap"
)

var (
	ErrEmptyCheckout        = errors.New("checkout has no items")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrMissingAddress       = errors.New("delivery address is required")
)

type ItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type PlaceOrderRequest struct {
	CustomerID    int64         `json:"-"`
	Items         []ItemRequest `json:"items"`
	ZoneID        string        `json:"zone_id"`
	Address       string        `json:"delivery_address"`
	DeliveryDate  *time.Time    `json:"delivery_date,omitempty"`
	PaymentMethod string        `json:"payment_method"`
	Notes         string        `json:"notes,omitempty"`
}

type Result struct {
	CheckoutID string         `json:"checkout_id"`
	Quote      pricing.Quote  `json:"quote"`
	Orders     []models.Order `json:"orders"`
}

type Service struct {
	db               *sql.DB
	engine           *pricing.Engine
	numbers          orders.NumberGenerator
	maxNumberRetries int
	logger           *zap.Logger
}

func NewService(db *sql.DB, engine *pricing.Engine, numbers orders.NumberGenerator, maxNumberRetries int, logger *zap.Logger) *Service {
	return &Service{
		db:               db,
		engine:           engine,
		numbers:          numbers,
		maxNumberRetries: maxNumberRetries,
		logger:           logger,
	}
}

// Preview prices items exactly as PlaceOrder would, without touching the database.
func (s *Service) Preview(items []models.LineItem, zoneID string) (pricing.Quote, error) {
	return s.engine.Price(items, zoneID)
}

func (r *PlaceOrderRequest) validate() error {
	if len(r.Items) == 0 {
		return ErrEmptyCheckout
	}
	for _, it := range r.Items {
		if it.Quantity <= 0 {
			return &pricing.ValidationError{ProductID: it.ProductID, Field: "quantity", Message: "must be positive"}
		}
	}
	if !models.ValidPaymentMethod(r.PaymentMethod) {
		return fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, r.PaymentMethod)
	}
	if strings.TrimSpace(r.Address) == "" {
		return ErrMissingAddress
	}
	return nil
}

// PlaceOrder prices the request against current catalog prices and persists one order per
// farm, all sharing a checkout id. Stock is decremented in the same transaction.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	requested := MergeItems(req.Items)
	checkoutID := uuid.NewString()

	var result *Result
	var err error
	for attempt := 0; ; attempt++ {
		result, err = s.placeOnce(ctx, req, requested, checkoutID)
		if err == nil || !orders.IsDuplicateOrderNumber(err) || attempt >= s.maxNumberRetries {
			break
		}
		s.logger.Warn("order number collision, retrying",
			zap.String("checkout_id", checkoutID),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("checkout placed",
		zap.String("checkout_id", checkoutID),
		zap.Int64("customer_id", req.CustomerID),
		zap.Int("orders", len(result.Orders)),
		zap.String("grand_total", result.Quote.GrandTotal.String()),
	)
	return result, nil
}

func (s *Service) placeOnce(ctx context.Context, req PlaceOrderRequest, requested []ItemRequest, checkoutID string) (*Result, error) {
	var result *Result

	opts := database.SerializableTxOptions(3)
	opts.OnRetry = func(attempt int, class database.ErrorClass, err error) {
		s.logger.Debug("checkout transaction retry",
			zap.Int("attempt", attempt),
			zap.Stringer("class", class),
			zap.Error(err),
		)
	}

	err := database.WithRetry(ctx, s.db, opts, func(tx *sql.Tx) error {
		ids := make([]int64, 0, len(requested))
		for _, it := range requested {
			ids = append(ids, it.ProductID)
		}

		products, err := store.GetProductsByIDs(ctx, tx, ids, true)
		if err != nil {
			return err
		}

		lines, err := BuildLineItems(requested, products)
		if err != nil {
			return err
		}

		quote, err := s.engine.Price(lines, req.ZoneID)
		if err != nil {
			return err
		}

		for _, line := range lines {
			if products[line.ProductID].StockQuantity < line.Quantity {
				return fmt.Errorf("product %d: %w", line.ProductID, database.ErrInsufficientStock)
			}
		}

		composer := orders.NewComposer(orders.StaticCatalog(products), s.numbers)
		composed, err := composer.Compose(ctx, quote.Groups, orders.DeliveryMeta{
			CheckoutID:    checkoutID,
			CustomerID:    req.CustomerID,
			ZoneID:        req.ZoneID,
			Address:       req.Address,
			DeliveryDate:  req.DeliveryDate,
			PaymentMethod: req.PaymentMethod,
			Notes:         req.Notes,
		})
		if err != nil {
			return err
		}

		for _, line := range lines {
			if err := store.DecrementStock(ctx, tx, line.ProductID, line.Quantity); err != nil {
				return fmt.Errorf("product %d: %w", line.ProductID, err)
			}
		}

		for i := range composed {
			if err := store.InsertOrder(ctx, tx, &composed[i]); err != nil {
				return err
			}
		}

		result = &Result{CheckoutID: checkoutID, Quote: quote, Orders: composed}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// MergeItems folds repeated product ids into one request line, keeping first-seen order.
// Quantities must already be validated as positive.
func MergeItems(items []ItemRequest) []ItemRequest {
	index := make(map[int64]int, len(items))
	merged := make([]ItemRequest, 0, len(items))
	for _, it := range items {
		if i, ok := index[it.ProductID]; ok {
			merged[i].Quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(merged)
		merged = append(merged, it)
	}
	return merged
}

// BuildLineItems prices requested items from the catalog rows. Products that are gone or
// withdrawn fail with *orders.UnavailableItemError.
func BuildLineItems(requested []ItemRequest, products map[int64]models.Product) ([]models.LineItem, error) {
	lines := make([]models.LineItem, 0, len(requested))
	for _, it := range requested {
		p, ok := products[it.ProductID]
		if !ok || !p.Active {
			return nil, &orders.UnavailableItemError{ProductID: it.ProductID, FarmID: p.FarmID}
		}
		lines = append(lines, models.LineItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			FarmID:      p.FarmID,
			FarmName:    p.FarmName,
			UnitPrice:   p.Price,
			Quantity:    it.Quantity,
			Unit:        p.Unit,
		})
	}
	return lines, nil
}
