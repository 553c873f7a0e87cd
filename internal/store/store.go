// Package store defines the persistent model shared by provisioning and
// quota enforcement: tenants, their single subscription, and their domains.
// Implementations (postgres, memory) must uphold two atomicity contracts:
// tenant-plus-subscription creation is indivisible, and the domain
// check-and-insert in CreateDomain runs as one serialized unit per tenant so
// concurrent requests can never both pass a quota check with one slot left.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Tenant is the account-holding entity, derived 1:1 from an identity
// provider user. ExternalID is the provider's stable user ID and is unique
// across tenants.
type Tenant struct {
	ID         uuid.UUID `json:"id"`
	ExternalID string    `json:"external_id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
}

// Subscription is a tenant's plan membership. Exactly one exists per tenant
// from the moment the tenant is created.
type Subscription struct {
	TenantID  uuid.UUID `json:"tenant_id"`
	PlanID    string    `json:"plan_id"`
	Credits   int64     `json:"credits"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Domain is the quota-limited, tenant-owned resource. Name is unique
// case-insensitively within the owning tenant.
type Domain struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Icon      string    `json:"icon,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the persistence boundary for the provisioning and quota pipeline.
// Update and delete operations for domains are intentionally absent; adding
// them later extends this interface without touching the services.
type Store interface {
	// CreateTenant persists a tenant and its initial subscription as one
	// atomic unit. Returns ErrTenantExists when a tenant with the same
	// external ID already exists; in that case nothing is written.
	CreateTenant(ctx context.Context, t *Tenant, sub *Subscription) error

	// TenantByExternalID fetches a tenant by the identity provider's user ID.
	TenantByExternalID(ctx context.Context, externalID string) (*Tenant, error)

	// TenantByID fetches a tenant by its internal ID.
	TenantByID(ctx context.Context, id uuid.UUID) (*Tenant, error)

	// SubscriptionByTenant fetches the tenant's subscription.
	SubscriptionByTenant(ctx context.Context, tenantID uuid.UUID) (*Subscription, error)

	// UpdateSubscription switches the tenant's plan and resets its credit
	// balance. Returns the updated subscription.
	UpdateSubscription(ctx context.Context, tenantID uuid.UUID, planID string, credits int64) (*Subscription, error)

	// DomainsByTenant lists the tenant's domains ordered by creation time.
	// An unknown tenant yields an empty list, not an error; only writes
	// check tenant existence.
	DomainsByTenant(ctx context.Context, tenantID uuid.UUID) ([]Domain, error)

	// CountDomains returns the tenant's current domain count. An unknown
	// tenant counts as zero.
	CountDomains(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// CreateDomain inserts d if and only if the tenant exists, holds fewer
	// than limit domains, and owns no domain whose name matches d.Name
	// case-insensitively. The checks and the insert are a single atomic unit.
	// Returns the domain count after the insert. Failures: ErrTenantNotFound,
	// ErrQuotaExceeded, ErrDuplicateDomain.
	CreateDomain(ctx context.Context, d *Domain, limit int64) (int64, error)
}
