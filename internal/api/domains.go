package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrymomot/domainboard/internal/auth"
	"github.com/dmitrymomot/domainboard/internal/quota"
	"github.com/dmitrymomot/domainboard/internal/store"
	"github.com/dmitrymomot/domainboard/pkg/validator"
)

type createDomainRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Icon string `json:"icon"`
}

func (req createDomainRequest) Validate() error {
	return validator.Apply(
		validator.RequiredString("name", req.Name),
		validator.MinLenString("name", req.Name, 2),
		validator.MaxLenString("name", req.Name, 64),
		validator.RequiredString("url", req.URL),
		validator.ValidURL("url", req.URL),
		validator.MaxLenString("icon", req.Icon, 2048),
	)
}

type createDomainResponse struct {
	Domain         *store.Domain `json:"domain"`
	RemainingSlots int64         `json:"remaining_slots"`
}

func (h *Handler) handleCreateDomain(w http.ResponseWriter, r *http.Request) {
	tenant, ok := auth.TenantFromContext(r.Context())
	if !ok {
		h.writeError(w, r, auth.ErrUnauthenticated)
		return
	}

	var req createDomainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "malformed request body"})
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}

	domain, remaining, err := h.gate.AddDomain(r.Context(), tenant.ID, req.Name, req.URL, req.Icon)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, createDomainResponse{
		Domain:         domain,
		RemainingSlots: remaining,
	})
}

func (h *Handler) handleListDomains(w http.ResponseWriter, r *http.Request) {
	tenant, ok := auth.TenantFromContext(r.Context())
	if !ok {
		h.writeError(w, r, auth.ErrUnauthenticated)
		return
	}

	domains, err := h.store.DomainsByTenant(r.Context(), tenant.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if domains == nil {
		domains = []store.Domain{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"domains": domains})
}

// handleDomainEvents streams the tenant's change feed as server-sent
// events. The stream is best effort: a consumer that falls behind is
// dropped by the broadcaster and has to reconnect and re-list.
func (h *Handler) handleDomainEvents(w http.ResponseWriter, r *http.Request) {
	tenant, ok := auth.TenantFromContext(r.Context())
	if !ok {
		h.writeError(w, r, auth.ErrUnauthenticated)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "streaming unsupported"})
		return
	}

	// The server's write timeout arms a connection deadline at request start,
	// which would sever a long-lived stream. Lift it for this connection; the
	// stream's lifetime is bounded by the request context instead.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		h.writeError(w, r, err)
		return
	}

	sub, err := h.bus.Subscribe(r.Context(), quota.Channel(tenant.ID))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt, open := <-sub.Events():
			if !open {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, evt.Payload)
			flusher.Flush()
		}
	}
}
