// Package memory implements store.Store in process memory. It backs tests
// and local development without Postgres. A single mutex serializes every
// operation, which trivially satisfies the store's atomicity contracts.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/domainboard/internal/store"
)

type Store struct {
	mu            sync.Mutex
	tenants       map[uuid.UUID]store.Tenant
	byExternalID  map[string]uuid.UUID
	subscriptions map[uuid.UUID]store.Subscription
	domains       map[uuid.UUID][]store.Domain
}

func New() *Store {
	return &Store{
		tenants:       make(map[uuid.UUID]store.Tenant),
		byExternalID:  make(map[string]uuid.UUID),
		subscriptions: make(map[uuid.UUID]store.Subscription),
		domains:       make(map[uuid.UUID][]store.Domain),
	}
}

func (s *Store) CreateTenant(ctx context.Context, t *store.Tenant, sub *store.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byExternalID[t.ExternalID]; exists {
		return store.ErrTenantExists
	}

	s.tenants[t.ID] = *t
	s.byExternalID[t.ExternalID] = t.ID
	s.subscriptions[t.ID] = *sub
	return nil
}

func (s *Store) TenantByExternalID(ctx context.Context, externalID string) (*store.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byExternalID[externalID]
	if !ok {
		return nil, store.ErrTenantNotFound
	}
	t := s.tenants[id]
	return &t, nil
}

func (s *Store) TenantByID(ctx context.Context, id uuid.UUID) (*store.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenants[id]
	if !ok {
		return nil, store.ErrTenantNotFound
	}
	return &t, nil
}

func (s *Store) SubscriptionByTenant(ctx context.Context, tenantID uuid.UUID) (*store.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subscriptions[tenantID]
	if !ok {
		return nil, store.ErrSubscriptionNotFound
	}
	return &sub, nil
}

func (s *Store) UpdateSubscription(ctx context.Context, tenantID uuid.UUID, planID string, credits int64) (*store.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subscriptions[tenantID]
	if !ok {
		return nil, store.ErrSubscriptionNotFound
	}

	sub.PlanID = planID
	sub.Credits = credits
	sub.UpdatedAt = time.Now().UTC()
	s.subscriptions[tenantID] = sub
	return &sub, nil
}

func (s *Store) DomainsByTenant(ctx context.Context, tenantID uuid.UUID) ([]store.Domain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]store.Domain, len(s.domains[tenantID]))
	copy(out, s.domains[tenantID])
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CountDomains(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return int64(len(s.domains[tenantID])), nil
}

func (s *Store) CreateDomain(ctx context.Context, d *store.Domain, limit int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenants[d.TenantID]; !ok {
		return 0, store.ErrTenantNotFound
	}

	owned := s.domains[d.TenantID]
	for _, existing := range owned {
		if strings.EqualFold(existing.Name, d.Name) {
			return 0, store.ErrDuplicateDomain
		}
	}
	if int64(len(owned)) >= limit {
		return 0, store.ErrQuotaExceeded
	}

	s.domains[d.TenantID] = append(owned, *d)
	return int64(len(owned) + 1), nil
}

var _ store.Store = (*Store)(nil)
