package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/safar/farm-market/internal/cart"
	"github.com/safar/farm-market/internal/models"
	"github.com/safar/farm-market/internal/orders"
	"github.com/shopspring/decimal"
)

const cartHeader = "X-Cart-ID"

type cartView struct {
	ID        string            `json:"id"`
	Items     []models.LineItem `json:"items"`
	ItemCount int               `json:"item_count"`
	Subtotal  decimal.Decimal   `json:"subtotal"`
	Farms     []cartFarm        `json:"farms"`
}

type cartFarm struct {
	FarmID   int64           `json:"farm_id"`
	FarmName string          `json:"farm_name"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

func newCartView(c *cart.Cart) cartView {
	groups := c.GroupByFarm()
	farms := make([]cartFarm, 0, len(groups))
	for _, g := range groups {
		farms = append(farms, cartFarm{FarmID: g.FarmID, FarmName: g.FarmName, Subtotal: g.Subtotal})
	}
	return cartView{
		ID:        c.ID,
		Items:     c.Items(),
		ItemCount: c.ItemCount(),
		Subtotal:  c.Subtotal(),
		Farms:     farms,
	}
}

// loadCart returns the cart named by the X-Cart-ID header, or a fresh one.
func (s *Server) loadCart(r *http.Request) (*cart.Cart, error) {
	id := r.Header.Get(cartHeader)
	if id == "" {
		return cart.New(), nil
	}
	return cart.Load(r.Context(), s.Carts, id)
}

func (s *Server) saveCart(w http.ResponseWriter, r *http.Request, c *cart.Cart) bool {
	if err := c.Save(r.Context(), s.Carts); err != nil {
		respondErr(w, s.Logger, err)
		return false
	}
	w.Header().Set(cartHeader, c.ID)
	return true
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	c, err := s.loadCart(r)
	if err != nil {
		respondErr(w, s.Logger, err)
		return
	}
	w.Header().Set(cartHeader, c.ID)
	respondJSON(w, http.StatusOK, newCartView(c))
}

func (s *Server) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID int64 `json:"product_id"`
		Quantity  int   `json:"quantity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	c, err := s.loadCart(r)
	if err != nil {
		respondErr(w, s.Logger, err)
		return
	}

	product, err := s.lookupProduct(r.Context(), req.ProductID)
	if err != nil {
		respondErr(w, s.Logger, err)
		return
	}
	if !product.Active {
		respondErr(w, s.Logger, &orders.UnavailableItemError{ProductID: product.ID, FarmID: product.FarmID})
		return
	}

	err = c.Add(models.LineItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		FarmID:      product.FarmID,
		FarmName:    product.FarmName,
		UnitPrice:   product.Price,
		Quantity:    req.Quantity,
		Unit:        product.Unit,
	})
	if err != nil {
		respondErr(w, s.Logger, err)
		return
	}

	if !s.saveCart(w, r, c) {
		return
	}
	respondJSON(w, http.StatusOK, newCartView(c))
}

func (s *Server) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	c, err := s.loadCart(r)
	if err != nil {
		respondErr(w, s.Logger, err)
		return
	}
	if !c.UpdateQuantity(productID, req.Quantity) {
		respondError(w, http.StatusNotFound, "product not in cart")
		return
	}

	if !s.saveCart(w, r, c) {
		return
	}
	respondJSON(w, http.StatusOK, newCartView(c))
}

func (s *Server) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	c, err := s.loadCart(r)
	if err != nil {
		respondErr(w, s.Logger, err)
		return
	}
	if !c.Remove(productID) {
		respondError(w, http.StatusNotFound, "product not in cart")
		return
	}

	if !s.saveCart(w, r, c) {
		return
	}
	respondJSON(w, http.StatusOK, newCartView(c))
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	c, err := s.loadCart(r)
	if err != nil {
		respondErr(w, s.Logger, err)
		return
	}
	if err := c.Discard(r.Context(), s.Carts); err != nil {
		respondErr(w, s.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCartQuote(w http.ResponseWriter, r *http.Request) {
	zoneID := r.URL.Query().Get("zone")
	if zoneID == "" {
		respondError(w, http.StatusBadRequest, "zone is required")
		return
	}

	c, err := s.loadCart(r)
	if err != nil {
		respondErr(w, s.Logger, err)
		return
	}

	quote, err := s.Engine.Price(c.Items(), zoneID)
	if err != nil {
		respondErr(w, s.Logger, err)
		return
	}
	respondJSON(w, http.StatusOK, quote)
}
