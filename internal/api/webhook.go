package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmitrymomot/domainboard/internal/provisioning"
	"github.com/dmitrymomot/domainboard/pkg/webhook"
)

// maxWebhookBody caps the ingress payload size. Identity events are
// small; anything larger is not a legitimate delivery.
const maxWebhookBody = 1 << 20

// identityCreatedPayload is the event data for identity.created deliveries.
type identityCreatedPayload struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (h *Handler) handleIdentityWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "unreadable request body"})
		return
	}

	hdrs, err := webhook.ExtractHeaders(r.Header)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	evt, err := h.verifier.Verify(body, hdrs)
	if err != nil {
		h.log.WarnContext(r.Context(), "webhook rejected", slog.Any("error", err))
		h.writeError(w, r, err)
		return
	}

	switch evt.Type {
	case "identity.created", "user.created":
		var payload identityCreatedPayload
		if err := json.Unmarshal(evt.Data, &payload); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Message: "malformed event data"})
			return
		}
		tenant, err := h.provisioning.ProvisionIdentity(r.Context(), payload.ID, displayName(payload))
		if err != nil {
			if errors.Is(err, provisioning.ErrMissingExternalID) {
				writeJSON(w, http.StatusBadRequest, errorResponse{Message: "event data missing identity id"})
				return
			}
			h.writeError(w, r, err)
			return
		}
		h.log.InfoContext(r.Context(), "identity provisioned",
			slog.String("event_id", evt.ID),
			slog.String("tenant_id", tenant.ID.String()),
		)
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	default:
		// Unknown event types acknowledge cleanly so the sender does not
		// retry deliveries we will never act on.
		writeJSON(w, http.StatusOK, map[string]string{"message": "ignored"})
	}
}

func displayName(p identityCreatedPayload) string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}
