package store

import "errors"

var (
	// ErrTenantNotFound is returned when no tenant matches the identifier.
	ErrTenantNotFound = errors.New("store: tenant not found")

	// ErrTenantExists is returned by CreateTenant when the external ID is
	// already taken. Callers treat it as "someone else won the race".
	ErrTenantExists = errors.New("store: tenant already exists")

	// ErrSubscriptionNotFound is returned when a tenant has no subscription
	// row. Under the create-tenant invariant this indicates corrupted data.
	ErrSubscriptionNotFound = errors.New("store: subscription not found")

	// ErrDuplicateDomain is returned when the tenant already owns a domain
	// with a case-insensitively equal name.
	ErrDuplicateDomain = errors.New("store: domain name already exists for tenant")

	// ErrQuotaExceeded is returned when the tenant's domain count has reached
	// the limit passed to CreateDomain.
	ErrQuotaExceeded = errors.New("store: domain quota exceeded")
)
