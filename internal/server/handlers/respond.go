package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/iudanet/docsync/internal/models"
	"github.com/iudanet/docsync/internal/reconcile"
	"github.com/iudanet/docsync/internal/resolver"
	"github.com/iudanet/docsync/internal/server/storage"
	"github.com/iudanet/docsync/pkg/api"
)

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	writeJSON(w, logger, status, api.ErrorResponse{Error: message})
}

// writeExchangeError отображает ошибку обмена в HTTP статус
func writeExchangeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	resp := api.ErrorResponse{Error: err.Error()}

	var exErr *reconcile.ExchangeError
	if errors.As(err, &exErr) {
		resp.Stage = string(exErr.Stage)
		if exErr.RetryAfter > 0 {
			resp.RetryAfter = retryAfterSeconds(exErr.RetryAfter)
			w.Header().Set("Retry-After", strconv.FormatInt(resp.RetryAfter, 10))
		}
	}

	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		// подробности хранилища наружу не отдаем
		resp.Error = http.StatusText(status)
	}
	writeJSON(w, logger, status, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, reconcile.ErrThrottled), errors.Is(err, reconcile.ErrBlocked):
		return http.StatusTooManyRequests
	case errors.Is(err, reconcile.ErrUnknownCollection),
		errors.Is(err, storage.ErrConflictNotFound):
		return http.StatusNotFound
	case errors.Is(err, resolver.ErrOwnershipViolation):
		return http.StatusForbidden
	case errors.Is(err, reconcile.ErrValidationFailed), errors.Is(err, models.ErrInvalidDocument):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// retryAfterSeconds округляет вверх: Retry-After в целых секундах
func retryAfterSeconds(d time.Duration) int64 {
	return int64(math.Ceil(d.Seconds()))
}
