package api

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/safar/farm-market/internal/auth"
	"github.com/safar/farm-market/internal/cart"
	"github.com/safar/farm-market/internal/checkout"
	"github.com/safar/farm-market/internal/models"
	"github.com/safar/farm-market/internal/pricing"
	"github.com/safar/farm-market/internal/store"
	"github.com/safar/farm-market/internal/subscription"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductLookup resolves a catalog product when it is added to a cart.
type ProductLookup func(ctx context.Context, id int64) (*models.Product, error)

type Server struct {
	DB            *sql.DB
	Engine        *pricing.Engine
	Carts         cart.Storage
	Products      ProductLookup
	Auth          *auth.Service
	Tokens        *auth.TokenIssuer
	Checkout      *checkout.Service
	Subscriptions *subscription.Service
	Logger        *zap.Logger
}

func (s *Server) lookupProduct(ctx context.Context, id int64) (*models.Product, error) {
	if s.Products != nil {
		return s.Products(ctx, id)
	}
	return store.GetProduct(ctx, s.DB, id)
}

func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(s.Logger))

	r.Get("/health", s.handleHealth)
	r.Get("/zones", s.handleZones)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", s.handleListProducts)
		r.Get("/{id}", s.handleGetProduct)
	})

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", s.handleGetCart)
		r.Delete("/", s.handleClearCart)
		r.Get("/quote", s.handleCartQuote)
		r.Post("/items", s.handleAddCartItem)
		r.Patch("/items/{productID}", s.handleUpdateCartItem)
		r.Delete("/items/{productID}", s.handleRemoveCartItem)
	})

	r.Post("/checkout/preview", s.handleCheckoutPreview)

	r.Group(func(r chi.Router) {
		r.Use(auth.Authenticate(s.Tokens))

		r.Post("/checkout", s.handleCheckout)
		r.Get("/orders", s.handleListOrders)
		r.Get("/orders/{number}", s.handleGetOrder)

		r.Route("/subscriptions", func(r chi.Router) {
			r.Use(auth.RequireRole(models.RoleCustomer))
			r.Post("/", s.handleCreateSubscription)
			r.Get("/{id}", s.handleGetSubscription)
			r.Post("/{id}/{action}", s.handleSubscriptionAction)
		})

		r.Route("/farmer", func(r chi.Router) {
			r.Use(auth.RequireRole(models.RoleFarmer))
			r.Post("/products", s.handleCreateProduct)
			r.Patch("/products/{id}", s.handleUpdateProduct)
			r.Delete("/products/{id}", s.handleDeleteProduct)
			r.Patch("/profile", s.handleUpdateFarm)
			r.Post("/orders/{number}/status", s.handleUpdateOrderStatus)
		})
	})

	return r
}

// RequestLogger logs one line per request with its status and duration.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	if s.DB != nil {
		if err := s.DB.PingContext(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": err.Error()})
			return
		}
		status["database"] = "ok"
	}
	respondJSON(w, http.StatusOK, status)
}

type zoneView struct {
	ID                    string          `json:"id"`
	Name                  string          `json:"name"`
	FlatFee               decimal.Decimal `json:"flat_fee"`
	FreeDeliveryThreshold decimal.Decimal `json:"free_delivery_threshold"`
	DeliveryDays          []string        `json:"delivery_days"`
}

func (s *Server) handleZones(w http.ResponseWriter, r *http.Request) {
	zones := s.Engine.Zones().All()
	views := make([]zoneView, 0, len(zones))
	for _, z := range zones {
		days := make([]string, 0, len(z.DeliveryDays))
		for _, d := range z.DeliveryDays {
			days = append(days, d.String())
		}
		views = append(views, zoneView{
			ID:                    z.ID,
			Name:                  z.Name,
			FlatFee:               z.FlatFee,
			FreeDeliveryThreshold: z.FreeDeliveryThreshold,
			DeliveryDays:          days,
		})
	}
	respondJSON(w, http.StatusOK, views)
}
