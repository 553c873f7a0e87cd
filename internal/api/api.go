// Package api exposes the HTTP surface: the identity webhook ingress,
// tenant-scoped domain resources with an SSE change feed, and
// subscription management.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/domainboard/internal/auth"
	"github.com/dmitrymomot/domainboard/internal/plan"
	"github.com/dmitrymomot/domainboard/internal/provisioning"
	"github.com/dmitrymomot/domainboard/internal/quota"
	"github.com/dmitrymomot/domainboard/internal/store"
	"github.com/dmitrymomot/domainboard/pkg/broadcast"
	"github.com/dmitrymomot/domainboard/pkg/webhook"
)

// Handler bundles the services the HTTP layer dispatches into.
type Handler struct {
	log          *slog.Logger
	verifier     *webhook.Verifier
	provisioning *provisioning.Service
	gate         *quota.Gate
	store        store.Store
	plans        *plan.Registry
	bus          broadcast.Broadcaster
}

// NewHandler wires the HTTP layer. All dependencies are required.
func NewHandler(
	log *slog.Logger,
	verifier *webhook.Verifier,
	prov *provisioning.Service,
	gate *quota.Gate,
	st store.Store,
	plans *plan.Registry,
	bus broadcast.Broadcaster,
) *Handler {
	return &Handler{
		log:          log,
		verifier:     verifier,
		provisioning: prov,
		gate:         gate,
		store:        st,
		plans:        plans,
		bus:          bus,
	}
}

// Router assembles the route tree. The webhook ingress is public and
// authenticated by signature; everything under /resources and
// /subscription requires a bearer token resolving to a provisioned tenant.
func (h *Handler) Router(authn *auth.Service, healthcheck http.HandlerFunc) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", healthcheck)
	r.Post("/webhooks/identity", h.handleIdentityWebhook)

	r.Group(func(r chi.Router) {
		r.Use(authn.Middleware())

		r.Route("/resources/domains", func(r chi.Router) {
			r.Get("/", h.handleListDomains)
			r.Post("/", h.handleCreateDomain)
			r.Get("/events", h.handleDomainEvents)
		})

		r.Route("/subscription", func(r chi.Router) {
			r.Get("/", h.handleGetSubscription)
			r.Put("/", h.handleUpdateSubscription)
		})
	})

	return r
}
