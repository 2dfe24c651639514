package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/safar/farm-market/internal/auth"
	"github.com/safar/farm-market/internal/subscription"
)

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscription.CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	principal, _ := auth.PrincipalFrom(r.Context())
	sub, err := s.Subscriptions.Create(r.Context(), principal.UserID, req)
	if err != nil {
		respondErr(w, s.Logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, sub)
}

func (s *Server) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFrom(r.Context())

	sub, err := s.Subscriptions.Get(r.Context(), principal.UserID, chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, s.Logger, err)
		return
	}
	respondJSON(w, http.StatusOK, sub)
}

func (s *Server) handleSubscriptionAction(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFrom(r.Context())
	action := subscription.Action(chi.URLParam(r, "action"))

	sub, err := s.Subscriptions.Apply(r.Context(), principal.UserID, chi.URLParam(r, "id"), action)
	if err != nil {
		respondErr(w, s.Logger, err)
		return
	}
	respondJSON(w, http.StatusOK, sub)
}
