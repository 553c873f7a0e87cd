package auth

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/domainboard/internal/store"
)

// contextKey is unexported so no other package can collide with it.
type contextKey struct{}

// WithTenant attaches the authenticated tenant to the context.
func WithTenant(ctx context.Context, tenant *store.Tenant) context.Context {
	return context.WithValue(ctx, contextKey{}, tenant)
}

// TenantFromContext retrieves the authenticated tenant.
func TenantFromContext(ctx context.Context) (*store.Tenant, bool) {
	tenant, ok := ctx.Value(contextKey{}).(*store.Tenant)
	return tenant, ok && tenant != nil
}

// TenantIDFromContext retrieves just the tenant ID.
func TenantIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	tenant, ok := TenantFromContext(ctx)
	if !ok {
		return uuid.UUID{}, false
	}
	return tenant.ID, true
}

// LoggerExtractor attaches tenant_id to log records when a tenant is in
// context.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id, ok := TenantIDFromContext(ctx); ok {
			return slog.String("tenant_id", id.String()), true
		}
		return slog.Attr{}, false
	}
}
