package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/safar/farm-market/internal/auth"
	"github.com/safar/farm-market/internal/cart"
	"github.com/safar/farm-market/internal/checkout"
	"github.com/safar/farm-market/internal/database"
	"github.com/safar/farm-market/internal/models"
	"github.com/safar/farm-market/internal/pricing"
	"github.com/safar/farm-market/internal/store"
	"go.uber.org/zap"
)

func (s *Server) handleCheckoutPreview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ZoneID string            `json:"zone_id"`
		Items  []models.LineItem `json:"items"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var quote pricing.Quote
	var err error
	if s.Checkout != nil {
		quote, err = s.Checkout.Preview(req.Items, req.ZoneID)
	} else {
		quote, err = s.Engine.Price(req.Items, req.ZoneID)
	}
	if err != nil {
		respondErr(w, s.Logger, err)
		return
	}
	respondJSON(w, http.StatusOK, quote)
}

// handleCheckout places the order. With no items in the body, the cart named by
// X-Cart-ID is checked out and discarded on success.
func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkout.PlaceOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	principal, _ := auth.PrincipalFrom(r.Context())
	req.CustomerID = principal.UserID

	var fromCart *cart.Cart
	if len(req.Items) == 0 && r.Header.Get(cartHeader) != "" {
		c, err := cart.Load(r.Context(), s.Carts, r.Header.Get(cartHeader))
		if err != nil {
			respondErr(w, s.Logger, err)
			return
		}
		for _, item := range c.Items() {
			req.Items = append(req.Items, checkout.ItemRequest{ProductID: item.ProductID, Quantity: item.Quantity})
		}
		fromCart = c
	}

	result, err := s.Checkout.PlaceOrder(r.Context(), req)
	if err != nil {
		respondErr(w, s.Logger, err)
		return
	}

	if fromCart != nil {
		if err := fromCart.Discard(r.Context(), s.Carts); err != nil {
			s.Logger.Warn("discard cart after checkout",
				zap.String("cart_id", fromCart.ID),
				zap.String("checkout_id", result.CheckoutID),
				zap.Error(err),
			)
		}
	}
	respondJSON(w, http.StatusCreated, result)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFrom(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	page, err := store.ListOrdersCursor(r.Context(), s.DB, principal.UserID, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		respondErr(w, s.Logger, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFrom(r.Context())

	order, err := store.GetOrderByNumber(r.Context(), s.DB, chi.URLParam(r, "number"))
	if err != nil {
		respondErr(w, s.Logger, err)
		return
	}

	ownsFarm := principal.IsFarmer() && *principal.FarmID == order.FarmID
	if order.CustomerID != principal.UserID && !ownsFarm {
		respondErr(w, s.Logger, database.ErrOrderNotFound)
		return
	}
	respondJSON(w, http.StatusOK, order)
}
