// Package quota admits new tenant-owned domains against the tenant's plan
// limit. The check and the insert are delegated to the store as one atomic
// unit, and a successful creation fans out a domain-added event on the
// tenant's channel.
package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/domainboard/internal/plan"
	"github.com/dmitrymomot/domainboard/internal/store"
	"github.com/dmitrymomot/domainboard/pkg/broadcast"
)

// EventDomainAdded is the fan-out event type published after a successful
// domain creation.
const EventDomainAdded = "domain-added"

// Channel returns the broadcast channel for a tenant. One channel per
// tenant keeps subscribers scoped to their own events.
func Channel(tenantID uuid.UUID) string {
	return "tenant-" + tenantID.String()
}

// QuotaExceededError reports a failed admission with enough detail for the
// caller to self-correct: the plan name and its numeric limit.
type QuotaExceededError struct {
	Plan  string
	Limit int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("your %s plan allows a maximum of %d domains, please upgrade your subscription", e.Plan, e.Limit)
}

// Unwrap lets errors.Is match the store sentinel.
func (e *QuotaExceededError) Unwrap() error { return store.ErrQuotaExceeded }

// Gate coordinates plan lookup, atomic admission, and fan-out.
type Gate struct {
	store store.Store
	plans *plan.Registry
	bus   broadcast.Broadcaster
	log   *slog.Logger
}

func NewGate(st store.Store, plans *plan.Registry, bus broadcast.Broadcaster, log *slog.Logger) *Gate {
	return &Gate{store: st, plans: plans, bus: bus, log: log}
}

// AddDomain validates the tenant's quota and creates the domain, returning
// the created domain and the number of slots left on the plan.
//
// Failure modes: store.ErrTenantNotFound / store.ErrSubscriptionNotFound,
// plan.ErrUnknownPlan (a configuration error, not a user error),
// *QuotaExceededError, store.ErrDuplicateDomain. The fan-out publish happens
// strictly after the store commit and its failure never surfaces: the domain
// row is the durable truth and the event is a live-UI convenience.
func (g *Gate) AddDomain(ctx context.Context, tenantID uuid.UUID, name, url, icon string) (*store.Domain, int64, error) {
	sub, err := g.store.SubscriptionByTenant(ctx, tenantID)
	if err != nil {
		return nil, 0, fmt.Errorf("quota: load subscription: %w", err)
	}

	p, err := g.plans.Lookup(sub.PlanID)
	if err != nil {
		return nil, 0, fmt.Errorf("quota: resolve plan %q for tenant %s: %w", sub.PlanID, tenantID, err)
	}

	domain := &store.Domain{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Name:      name,
		URL:       url,
		Icon:      icon,
		CreatedAt: time.Now().UTC(),
	}

	count, err := g.store.CreateDomain(ctx, domain, p.DomainLimit)
	if err != nil {
		if errors.Is(err, store.ErrQuotaExceeded) {
			return nil, 0, &QuotaExceededError{Plan: p.ID, Limit: p.DomainLimit}
		}
		return nil, 0, fmt.Errorf("quota: create domain: %w", err)
	}

	g.notify(ctx, domain)

	g.log.InfoContext(ctx, "domain created",
		"tenant_id", tenantID, "domain", domain.Name, "used", count, "limit", p.DomainLimit)
	return domain, p.DomainLimit - count, nil
}

// notify publishes the fan-out event. Publish failures are logged and
// swallowed so they never fail a creation that already committed.
func (g *Gate) notify(ctx context.Context, domain *store.Domain) {
	evt, err := broadcast.NewEvent(EventDomainAdded, map[string]any{"domain": domain})
	if err != nil {
		g.log.ErrorContext(ctx, "failed to build domain-added event",
			"tenant_id", domain.TenantID, "error", err)
		return
	}
	if err := g.bus.Publish(ctx, Channel(domain.TenantID), evt); err != nil {
		g.log.ErrorContext(ctx, "failed to publish domain-added event",
			"tenant_id", domain.TenantID, "error", err)
	}
}
