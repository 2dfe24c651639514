package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/safar/farm-market/internal/database"
	"github.com/safar/farm-market/internal/models"
	"github.com/safar/farm-market/internal/store"
	"go.uber.org/zap"
)

type RegisterRequest struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Name     string      `json:"name"`
	Role     models.Role `json:"role"`
	// Farm fields are required when Role is FARMER.
	FarmName     string `json:"farm_name,omitempty"`
	FarmLocation string `json:"farm_location,omitempty"`
}

type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

type Service struct {
	db         *sql.DB
	issuer     *TokenIssuer
	bcryptCost int
	logger     *zap.Logger
}

func NewService(db *sql.DB, issuer *TokenIssuer, bcryptCost int, logger *zap.Logger) *Service {
	return &Service{db: db, issuer: issuer, bcryptCost: bcryptCost, logger: logger}
}

func (r *RegisterRequest) validate() error {
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return fmt.Errorf("%w: invalid email", ErrInvalidRegistration)
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRegistration)
	}
	switch r.Role {
	case "":
		r.Role = models.RoleCustomer
	case models.RoleCustomer:
	case models.RoleFarmer:
		if strings.TrimSpace(r.FarmName) == "" {
			return fmt.Errorf("%w: farm_name is required for farmers", ErrInvalidRegistration)
		}
	default:
		return fmt.Errorf("%w: unknown role %q", ErrInvalidRegistration, r.Role)
	}
	return nil
}

// Register creates a user. Farmers get their farm created in the same transaction.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	hash, err := HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	var user *models.User
	err = database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		in := store.NewUser{
			Email:        req.Email,
			Name:         req.Name,
			PasswordHash: hash,
			Role:         req.Role,
		}

		if req.Role == models.RoleFarmer {
			farm, err := store.CreateFarm(ctx, tx, store.NewFarm{Name: req.FarmName, Location: req.FarmLocation})
			if err != nil {
				return err
			}
			in.FarmID = &farm.ID
		}

		user, err = store.CreateUser(ctx, tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.Int64("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := store.GetUserByEmail(ctx, s.db, email)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := CheckPassword(user.PasswordHash, password); err != nil {
		return nil, err
	}

	token, expiresAt, err := s.issuer.Issue(user)
	if err != nil {
		return nil, err
	}

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}
