// Package postgres implements store.Store on a pgx connection pool.
//
// The two atomicity contracts are enforced with transactions: CreateTenant
// inserts the tenant and subscription rows in one transaction, and
// CreateDomain locks the tenant row FOR UPDATE before counting and checking
// names, which serializes concurrent inserts per tenant. Unique indexes on
// tenants.external_id and (tenant_id, lower(name)) back both paths against
// anything the transactions miss.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/domainboard/internal/store"
	"github.com/dmitrymomot/domainboard/pkg/pg"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool, cfg pg.Config, log *slog.Logger) error {
	return pg.Migrate(ctx, pool, migrationsFS, "migrations", cfg, log)
}

func (s *Store) CreateTenant(ctx context.Context, t *store.Tenant, sub *store.Subscription) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO tenants (id, external_id, name, created_at)
			 VALUES ($1, $2, $3, $4)`,
			t.ID, t.ExternalID, t.Name, t.CreatedAt,
		); err != nil {
			return err
		}

		_, err := tx.Exec(ctx,
			`INSERT INTO subscriptions (tenant_id, plan_id, credits, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			sub.TenantID, sub.PlanID, sub.Credits, sub.CreatedAt, sub.UpdatedAt,
		)
		return err
	})
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return store.ErrTenantExists
		}
		return fmt.Errorf("postgres: create tenant: %w", err)
	}
	return nil
}

func (s *Store) TenantByExternalID(ctx context.Context, externalID string) (*store.Tenant, error) {
	return s.tenantBy(ctx, `external_id = $1`, externalID)
}

func (s *Store) TenantByID(ctx context.Context, id uuid.UUID) (*store.Tenant, error) {
	return s.tenantBy(ctx, `id = $1`, id)
}

func (s *Store) tenantBy(ctx context.Context, where string, arg any) (*store.Tenant, error) {
	var t store.Tenant
	err := s.pool.QueryRow(ctx,
		`SELECT id, external_id, name, created_at FROM tenants WHERE `+where,
		arg,
	).Scan(&t.ID, &t.ExternalID, &t.Name, &t.CreatedAt)
	if pg.IsNotFoundError(err) {
		return nil, store.ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch tenant: %w", err)
	}
	return &t, nil
}

func (s *Store) SubscriptionByTenant(ctx context.Context, tenantID uuid.UUID) (*store.Subscription, error) {
	var sub store.Subscription
	err := s.pool.QueryRow(ctx,
		`SELECT tenant_id, plan_id, credits, created_at, updated_at
		 FROM subscriptions WHERE tenant_id = $1`,
		tenantID,
	).Scan(&sub.TenantID, &sub.PlanID, &sub.Credits, &sub.CreatedAt, &sub.UpdatedAt)
	if pg.IsNotFoundError(err) {
		return nil, store.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch subscription: %w", err)
	}
	return &sub, nil
}

func (s *Store) UpdateSubscription(ctx context.Context, tenantID uuid.UUID, planID string, credits int64) (*store.Subscription, error) {
	var sub store.Subscription
	err := s.pool.QueryRow(ctx,
		`UPDATE subscriptions
		 SET plan_id = $2, credits = $3, updated_at = now()
		 WHERE tenant_id = $1
		 RETURNING tenant_id, plan_id, credits, created_at, updated_at`,
		tenantID, planID, credits,
	).Scan(&sub.TenantID, &sub.PlanID, &sub.Credits, &sub.CreatedAt, &sub.UpdatedAt)
	if pg.IsNotFoundError(err) {
		return nil, store.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: update subscription: %w", err)
	}
	return &sub, nil
}

func (s *Store) DomainsByTenant(ctx context.Context, tenantID uuid.UUID) ([]store.Domain, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, name, url, icon, created_at
		 FROM domains WHERE tenant_id = $1
		 ORDER BY created_at`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list domains: %w", err)
	}
	defer rows.Close()

	var out []store.Domain
	for rows.Next() {
		var d store.Domain
		if err := rows.Scan(&d.ID, &d.TenantID, &d.Name, &d.URL, &d.Icon, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan domain: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list domains: %w", err)
	}
	return out, nil
}

func (s *Store) CountDomains(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM domains WHERE tenant_id = $1`, tenantID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count domains: %w", err)
	}
	return count, nil
}

func (s *Store) CreateDomain(ctx context.Context, d *store.Domain, limit int64) (int64, error) {
	var count int64
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		// The tenant row lock serializes concurrent domain creation for this
		// tenant, so the count below cannot go stale before the insert.
		var tenantID uuid.UUID
		err := tx.QueryRow(ctx,
			`SELECT id FROM tenants WHERE id = $1 FOR UPDATE`, d.TenantID,
		).Scan(&tenantID)
		if pg.IsNotFoundError(err) {
			return store.ErrTenantNotFound
		}
		if err != nil {
			return err
		}

		var duplicate bool
		if err := tx.QueryRow(ctx,
			`SELECT count(*),
			        coalesce(bool_or(lower(name) = lower($2)), false)
			 FROM domains WHERE tenant_id = $1`,
			d.TenantID, d.Name,
		).Scan(&count, &duplicate); err != nil {
			return err
		}
		if duplicate {
			return store.ErrDuplicateDomain
		}
		if count >= limit {
			return store.ErrQuotaExceeded
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO domains (id, tenant_id, name, url, icon, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			d.ID, d.TenantID, d.Name, d.URL, d.Icon, d.CreatedAt,
		); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		switch {
		case isStoreError(err):
			return 0, err
		case pg.IsDuplicateKeyError(err):
			return 0, store.ErrDuplicateDomain
		case pg.IsForeignKeyViolationError(err):
			return 0, store.ErrTenantNotFound
		default:
			return 0, fmt.Errorf("postgres: create domain: %w", err)
		}
	}
	return count, nil
}

func isStoreError(err error) bool {
	for _, sentinel := range []error{
		store.ErrTenantNotFound,
		store.ErrDuplicateDomain,
		store.ErrQuotaExceeded,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

var _ store.Store = (*Store)(nil)
