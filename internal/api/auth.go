package api

import (
	"net/http"

	"github.com/safar/farm-market/internal/auth"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := s.Auth.Register(r.Context(), req)
	if err != nil {
		respondErr(w, s.Logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondErr(w, s.Logger, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
