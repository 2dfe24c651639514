package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/safar/farm-market/internal/database"
	"github.com/safar/farm-market/internal/models"
	"github.com/safar/farm-market/internal/store"
	"go.uber.org/zap"
)

var ErrInvalidSubscription = errors.New("invalid subscription")

type Action string

const (
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
	ActionSkip   Action = "skip"
	ActionCancel Action = "cancel"
)

type CreateRequest struct {
	BoxProductID    int64            `json:"box_product_id"`
	ZoneID          string           `json:"zone_id"`
	DeliveryAddress string           `json:"delivery_address"`
	Frequency       models.Frequency `json:"frequency"`
}

func (r CreateRequest) validate() error {
	if r.BoxProductID <= 0 {
		return fmt.Errorf("%w: box_product_id is required", ErrInvalidSubscription)
	}
	if r.ZoneID == "" {
		return fmt.Errorf("%w: zone_id is required", ErrInvalidSubscription)
	}
	if r.DeliveryAddress == "" {
		return fmt.Errorf("%w: delivery_address is required", ErrInvalidSubscription)
	}
	if !r.Frequency.Valid() {
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidSubscription, r.Frequency)
	}
	return nil
}

// Service runs customer-initiated lifecycle actions against stored subscriptions.
type Service struct {
	db        *sql.DB
	lifecycle *Lifecycle
	logger    *zap.Logger
}

func NewService(db *sql.DB, lifecycle *Lifecycle, logger *zap.Logger) *Service {
	return &Service{db: db, lifecycle: lifecycle, logger: logger}
}

func (s *Service) Create(ctx context.Context, customerID int64, req CreateRequest) (*models.Subscription, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if !s.lifecycle.KnowsZone(req.ZoneID) {
		return nil, fmt.Errorf("%w: unknown delivery zone %q", ErrInvalidSubscription, req.ZoneID)
	}

	box, err := store.GetProduct(ctx, s.db, req.BoxProductID)
	if err != nil {
		return nil, err
	}
	if !box.IsBox || !box.Active {
		return nil, fmt.Errorf("%w: product %d is not an available box", ErrInvalidSubscription, box.ID)
	}

	sub := &models.Subscription{
		ID:              uuid.NewString(),
		CustomerID:      customerID,
		BoxProductID:    box.ID,
		FarmID:          box.FarmID,
		ZoneID:          req.ZoneID,
		DeliveryAddress: req.DeliveryAddress,
		Frequency:       req.Frequency,
	}
	s.lifecycle.Start(sub)

	if err := store.CreateSubscription(ctx, s.db, sub); err != nil {
		return nil, err
	}

	s.logger.Info("subscription created",
		zap.String("subscription_id", sub.ID),
		zap.Int64("customer_id", customerID),
		zap.Time("next_delivery_date", sub.NextDeliveryDate),
	)
	return sub, nil
}

// Get returns the subscription if it belongs to customerID.
func (s *Service) Get(ctx context.Context, customerID int64, id string) (*models.Subscription, error) {
	return getOwned(ctx, s.db, customerID, id)
}

func (s *Service) Apply(ctx context.Context, customerID int64, id string, action Action) (*models.Subscription, error) {
	var sub *models.Subscription

	err := database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var err error
		sub, err = getOwned(ctx, tx, customerID, id)
		if err != nil {
			return err
		}

		switch action {
		case ActionPause:
			err = s.lifecycle.Pause(sub)
		case ActionResume:
			err = s.lifecycle.Resume(sub)
		case ActionSkip:
			err = s.lifecycle.Skip(sub)
		case ActionCancel:
			err = s.lifecycle.Cancel(sub)
		default:
			err = fmt.Errorf("%w: unknown action %q", ErrInvalidSubscription, action)
		}
		if err != nil {
			return err
		}

		return store.SaveSubscription(ctx, tx, sub)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("subscription updated",
		zap.String("subscription_id", sub.ID),
		zap.String("action", string(action)),
		zap.String("status", string(sub.Status)),
	)
	return sub, nil
}

func getOwned(ctx context.Context, q database.Querier, customerID int64, id string) (*models.Subscription, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, database.ErrSubscriptionNotFound
	}

	sub, err := store.GetSubscription(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if sub.CustomerID != customerID {
		return nil, database.ErrSubscriptionNotFound
	}
	return sub, nil
}
