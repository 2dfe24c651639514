package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/safar/farm-market/internal/auth"
	"github.com/safar/farm-market/internal/database"
	"github.com/safar/farm-market/internal/models"
	"github.com/safar/farm-market/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	filter := store.ProductFilter{BoxesOnly: q.Get("boxes") == "true"}
	if raw := q.Get("farm_id"); raw != "" {
		farmID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid farm ID")
			return
		}
		filter.FarmID = &farmID
	}

	result, err := store.ListProducts(r.Context(), s.DB, filter, page, pageSize)
	if err != nil {
		respondErr(w, s.Logger, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	product, err := s.lookupProduct(r.Context(), id)
	if err != nil {
		respondErr(w, s.Logger, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func farmerOf(r *http.Request) int64 {
	p, _ := auth.PrincipalFrom(r.Context())
	return *p.FarmID
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SKU           string          `json:"sku"`
		Name          string          `json:"name"`
		Description   string          `json:"description"`
		Unit          string          `json:"unit"`
		Price         decimal.Decimal `json:"price"`
		StockQuantity int             `json:"stock_quantity"`
		IsBox         bool            `json:"is_box"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SKU == "" || req.Name == "" || req.Price.IsNegative() || req.StockQuantity < 0 {
		respondError(w, http.StatusBadRequest, "sku, name, non-negative price and stock are required")
		return
	}

	product, err := store.CreateProduct(r.Context(), s.DB, store.NewProduct{
		FarmID:        farmerOf(r),
		SKU:           req.SKU,
		Name:          req.Name,
		Description:   req.Description,
		Unit:          req.Unit,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
		IsBox:         req.IsBox,
	})
	if err != nil {
		respondErr(w, s.Logger, err)
		return
	}

	s.Logger.Info("product created", zap.Int64("product_id", product.ID), zap.Int64("farm_id", product.FarmID))
	respondJSON(w, http.StatusCreated, product)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	var req struct {
		Name          *string          `json:"name"`
		Description   *string          `json:"description"`
		Unit          *string          `json:"unit"`
		Price         *decimal.Decimal `json:"price"`
		StockQuantity *int             `json:"stock_quantity"`
		IsBox         *bool            `json:"is_box"`
		Active        *bool            `json:"active"`
		Version       int              `json:"version"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	update := &store.ProductUpdate{}
	if req.Name != nil {
		update.SetName(*req.Name)
	}
	if req.Description != nil {
		update.SetDescription(*req.Description)
	}
	if req.Unit != nil {
		update.SetUnit(*req.Unit)
	}
	if req.Price != nil {
		update.SetPrice(*req.Price)
	}
	if req.StockQuantity != nil {
		update.SetStockQuantity(*req.StockQuantity)
	}
	if req.IsBox != nil {
		update.SetIsBox(*req.IsBox)
	}
	if req.Active != nil {
		update.SetActive(*req.Active)
	}
	if err := update.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	product, err := store.UpdateProduct(r.Context(), s.DB, id, farmerOf(r), req.Version, update)
	if err != nil {
		respondErr(w, s.Logger, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	if err := store.DeleteProduct(r.Context(), s.DB, id, farmerOf(r)); err != nil {
		respondErr(w, s.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateFarm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Location    *string `json:"location"`
		ContactInfo *string `json:"contact_info"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	update := &store.FarmUpdate{}
	if req.Name != nil {
		update.SetName(*req.Name)
	}
	if req.Description != nil {
		update.SetDescription(*req.Description)
	}
	if req.Location != nil {
		update.SetLocation(*req.Location)
	}
	if req.ContactInfo != nil {
		update.SetContactInfo(*req.ContactInfo)
	}
	if err := update.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	farm, err := store.UpdateFarm(r.Context(), s.DB, farmerOf(r), update)
	if err != nil {
		respondErr(w, s.Logger, err)
		return
	}
	respondJSON(w, http.StatusOK, farm)
}

func (s *Server) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	number := chi.URLParam(r, "number")
	var order *models.Order
	err := database.WithTransaction(r.Context(), s.DB, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var err error
		order, err = store.UpdateOrderStatus(r.Context(), tx, number, farmerOf(r), req.Status)
		return err
	})
	if err != nil {
		respondErr(w, s.Logger, err)
		return
	}

	s.Logger.Info("order status changed", zap.String("order_number", number), zap.String("status", order.Status))
	respondJSON(w, http.StatusOK, order)
}
