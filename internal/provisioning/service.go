// Package provisioning materializes tenants from verified identity-provider
// events. Provisioning is idempotent: the identity provider redelivers
// webhooks on failure, so the same identity.created event may arrive any
// number of times, sequentially or concurrently, and must yield exactly one
// tenant with exactly one subscription.
package provisioning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/domainboard/internal/plan"
	"github.com/dmitrymomot/domainboard/internal/store"
)

// ErrMissingExternalID is returned when the event carries no identity ID.
var ErrMissingExternalID = errors.New("provisioning: external identity id is required")

type Service struct {
	store store.Store
	plans *plan.Registry
	log   *slog.Logger
}

func NewService(st store.Store, plans *plan.Registry, log *slog.Logger) *Service {
	return &Service{store: st, plans: plans, log: log}
}

// ProvisionIdentity returns the tenant for the identity, creating it with a
// default FREE subscription on first sight.
//
// The create path closes the check-then-create race: if a concurrent
// delivery creates the tenant between our fetch and our insert, the insert
// fails with ErrTenantExists and we return the winner's tenant instead of an
// error. Storage failures surface to the caller unmasked; the provider's
// redelivery is the only retry mechanism.
func (s *Service) ProvisionIdentity(ctx context.Context, externalID, displayName string) (*store.Tenant, error) {
	if externalID == "" {
		return nil, ErrMissingExternalID
	}

	existing, err := s.store.TenantByExternalID(ctx, externalID)
	if err == nil {
		s.log.DebugContext(ctx, "duplicate provisioning delivery ignored",
			"external_id", externalID, "tenant_id", existing.ID)
		return existing, nil
	}
	if !errors.Is(err, store.ErrTenantNotFound) {
		return nil, fmt.Errorf("provisioning: fetch tenant: %w", err)
	}

	free, err := s.plans.Lookup(plan.Free)
	if err != nil {
		// The default plan missing from the registry is a deployment bug.
		return nil, fmt.Errorf("provisioning: default plan: %w", err)
	}

	now := time.Now().UTC()
	tenant := &store.Tenant{
		ID:         uuid.New(),
		ExternalID: externalID,
		Name:       displayName,
		CreatedAt:  now,
	}
	sub := &store.Subscription{
		TenantID:  tenant.ID,
		PlanID:    free.ID,
		Credits:   free.MonthlyCredits,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.store.CreateTenant(ctx, tenant, sub)
	if errors.Is(err, store.ErrTenantExists) {
		winner, fetchErr := s.store.TenantByExternalID(ctx, externalID)
		if fetchErr != nil {
			return nil, fmt.Errorf("provisioning: refetch after conflict: %w", fetchErr)
		}
		s.log.DebugContext(ctx, "lost provisioning race, returning winner",
			"external_id", externalID, "tenant_id", winner.ID)
		return winner, nil
	}
	if err != nil {
		return nil, fmt.Errorf("provisioning: create tenant: %w", err)
	}

	s.log.InfoContext(ctx, "tenant provisioned",
		"tenant_id", tenant.ID, "external_id", externalID, "plan", free.ID)
	return tenant, nil
}
