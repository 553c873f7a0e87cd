package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrymomot/domainboard/internal/auth"
	"github.com/dmitrymomot/domainboard/internal/plan"
	"github.com/dmitrymomot/domainboard/pkg/validator"
)

type subscriptionResponse struct {
	PlanID      string    `json:"plan_id"`
	Credits     int64     `json:"credits"`
	DomainLimit int64     `json:"domain_limit"`
	DomainsUsed int64     `json:"domains_used"`
	Features    []string  `json:"features"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (h *Handler) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	tenant, ok := auth.TenantFromContext(r.Context())
	if !ok {
		h.writeError(w, r, auth.ErrUnauthenticated)
		return
	}

	sub, err := h.store.SubscriptionByTenant(r.Context(), tenant.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.plans.Lookup(sub.PlanID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	used, err := h.store.CountDomains(r.Context(), tenant.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, subscriptionResponse{
		PlanID:      sub.PlanID,
		Credits:     sub.Credits,
		DomainLimit: p.DomainLimit,
		DomainsUsed: used,
		Features:    p.Features,
		UpdatedAt:   sub.UpdatedAt,
	})
}

type updateSubscriptionRequest struct {
	Plan string `json:"plan"`
}

func (h *Handler) handleUpdateSubscription(w http.ResponseWriter, r *http.Request) {
	tenant, ok := auth.TenantFromContext(r.Context())
	if !ok {
		h.writeError(w, r, auth.ErrUnauthenticated)
		return
	}

	var req updateSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "malformed request body"})
		return
	}
	if err := validator.Apply(
		validator.RequiredString("plan", req.Plan),
		validator.OneOf("plan", req.Plan, h.plans.IDs()...),
	); err != nil {
		h.writeError(w, r, err)
		return
	}

	p, err := h.plans.Lookup(req.Plan)
	if err != nil {
		// The plan passed validation against the registry's own IDs, so a
		// miss here means the registry changed underneath us.
		if errors.Is(err, plan.ErrUnknownPlan) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Message: "unknown subscription plan"})
			return
		}
		h.writeError(w, r, err)
		return
	}

	// Switching plans resets the credit allowance to the new plan's grant.
	sub, err := h.store.UpdateSubscription(r.Context(), tenant.ID, p.ID, p.MonthlyCredits)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	used, err := h.store.CountDomains(r.Context(), tenant.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, subscriptionResponse{
		PlanID:      sub.PlanID,
		Credits:     sub.Credits,
		DomainLimit: p.DomainLimit,
		DomainsUsed: used,
		Features:    p.Features,
		UpdatedAt:   sub.UpdatedAt,
	})
}
