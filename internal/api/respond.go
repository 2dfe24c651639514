package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/safar/farm-market/internal/auth"
	"github.com/safar/farm-market/internal/checkout"
	"github.com/safar/farm-market/internal/database"
	"github.com/safar/farm-market/internal/orders"
	"github.com/safar/farm-market/internal/pricing"
	"github.com/safar/farm-market/internal/store"
	"github.com/safar/farm-market/internal/subscription"
	"go.uber.org/zap"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// errorStatus maps domain and persistence errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case pricing.IsValidationError(err),
		errors.Is(err, pricing.ErrUnknownZone),
		errors.Is(err, checkout.ErrEmptyCheckout),
		errors.Is(err, checkout.ErrInvalidPaymentMethod),
		errors.Is(err, checkout.ErrMissingAddress),
		errors.Is(err, subscription.ErrInvalidSubscription),
		errors.Is(err, auth.ErrInvalidRegistration),
		errors.Is(err, store.ErrInvalidCursor):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, database.ErrProductNotFound),
		errors.Is(err, database.ErrOrderNotFound),
		errors.Is(err, database.ErrSubscriptionNotFound),
		errors.Is(err, database.ErrFarmNotFound),
		errors.Is(err, database.ErrUserNotFound):
		return http.StatusNotFound
	case orders.IsUnavailableItem(err),
		orders.IsStatusTransition(err),
		subscription.IsTransitionError(err),
		errors.Is(err, subscription.ErrSkipLimitExceeded),
		errors.Is(err, database.ErrInsufficientStock),
		errors.Is(err, database.ErrEmailTaken),
		errors.Is(err, database.ErrSKUTaken),
		errors.Is(err, database.ErrOptimisticLockFailed):
		return http.StatusConflict
	case orders.IsDuplicateOrderNumber(err),
		errors.Is(err, database.ErrLockTimeout),
		database.IsRetryable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondErr writes err with its mapped status. Server errors are logged and hidden.
func respondErr(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Int("status", status), zap.Error(err))
		if status == http.StatusInternalServerError {
			respondError(w, status, "internal error")
			return
		}
	}
	respondError(w, status, err.Error())
}
