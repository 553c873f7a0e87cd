package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/domainboard/internal/auth"
	"github.com/dmitrymomot/domainboard/internal/plan"
	"github.com/dmitrymomot/domainboard/internal/quota"
	"github.com/dmitrymomot/domainboard/internal/store"
	"github.com/dmitrymomot/domainboard/pkg/validator"
	"github.com/dmitrymomot/domainboard/pkg/webhook"
)

// errorResponse is the uniform error body. Errors carries per-field
// validation messages when present.
type errorResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps domain errors onto HTTP statuses. Everything unrecognized
// is a storage/internal failure: logged with full context, surfaced
// generically so no internal detail leaks.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve       validator.ValidationErrors
		quotaErr *quota.QuotaExceededError
	)

	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Message: "invalid request data",
			Errors:  ve.Fields(),
		})
	case errors.As(err, &quotaErr):
		// The message names the plan and the limit so the caller can decide
		// whether to upgrade.
		writeJSON(w, http.StatusForbidden, errorResponse{Message: quotaErr.Error()})
	case errors.Is(err, store.ErrDuplicateDomain):
		writeJSON(w, http.StatusConflict, errorResponse{Message: "domain already exists"})
	case errors.Is(err, store.ErrTenantNotFound), errors.Is(err, store.ErrSubscriptionNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "tenant not found"})
	case errors.Is(err, plan.ErrUnknownPlan):
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "subscription plan not found"})
	case errors.Is(err, auth.ErrUnauthenticated), errors.Is(err, auth.ErrInvalidToken):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "unauthorized"})
	case errors.Is(err, webhook.ErrMissingHeaders),
		errors.Is(err, webhook.ErrInvalidSignature),
		errors.Is(err, webhook.ErrStaleTimestamp),
		errors.Is(err, webhook.ErrMalformedPayload):
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "webhook verification failed"})
	default:
		h.log.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "internal server error"})
	}
}
