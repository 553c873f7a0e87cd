package quota_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/domainboard/internal/plan"
	"github.com/dmitrymomot/domainboard/internal/quota"
	"github.com/dmitrymomot/domainboard/internal/store"
	"github.com/dmitrymomot/domainboard/internal/store/memory"
	"github.com/dmitrymomot/domainboard/pkg/broadcast"
)

type fixture struct {
	gate  *quota.Gate
	store *memory.Store
	bus   *broadcast.MemoryBroadcaster
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	bus := broadcast.NewMemoryBroadcaster(16)
	t.Cleanup(func() { _ = bus.Close() })

	st := memory.New()
	log := newTestLogger()
	return &fixture{
		gate:  quota.NewGate(st, plan.NewRegistry(), bus, log),
		store: st,
		bus:   bus,
	}
}

func (f *fixture) seedTenant(t *testing.T, planID string) *store.Tenant {
	t.Helper()

	now := time.Now().UTC()
	tenant := &store.Tenant{ID: uuid.New(), ExternalID: uuid.NewString(), CreatedAt: now}
	sub := &store.Subscription{TenantID: tenant.ID, PlanID: planID, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, f.store.CreateTenant(context.Background(), tenant, sub))
	return tenant
}

func TestAddDomain(t *testing.T) {
	t.Parallel()

	t.Run("creates domain and reports remaining slots", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		tenant := f.seedTenant(t, plan.Basic)

		d, remaining, err := f.gate.AddDomain(context.Background(), tenant.ID, "acme", "https://acme.example.com", "")
		require.NoError(t, err)
		assert.Equal(t, "acme", d.Name)
		assert.EqualValues(t, 2, remaining)
	})

	t.Run("duplicate name is case-insensitive", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		tenant := f.seedTenant(t, plan.Basic)
		ctx := context.Background()

		_, _, err := f.gate.AddDomain(ctx, tenant.ID, "Acme", "https://acme.example.com", "")
		require.NoError(t, err)

		_, _, err = f.gate.AddDomain(ctx, tenant.ID, "ACME", "https://acme2.example.com", "")
		assert.ErrorIs(t, err, store.ErrDuplicateDomain)
	})

	t.Run("same name for different tenants", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		ctx := context.Background()
		a := f.seedTenant(t, plan.Free)
		b := f.seedTenant(t, plan.Free)

		_, _, err := f.gate.AddDomain(ctx, a.ID, "Acme", "https://acme.example.com", "")
		require.NoError(t, err)
		_, _, err = f.gate.AddDomain(ctx, b.ID, "Acme", "https://acme.example.com", "")
		assert.NoError(t, err)
	})

	t.Run("quota error names plan and limit", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		tenant := f.seedTenant(t, plan.Free)
		ctx := context.Background()

		_, _, err := f.gate.AddDomain(ctx, tenant.ID, "first", "https://first.example.com", "")
		require.NoError(t, err)

		_, _, err = f.gate.AddDomain(ctx, tenant.ID, "second", "https://second.example.com", "")
		require.ErrorIs(t, err, store.ErrQuotaExceeded)

		var quotaErr *quota.QuotaExceededError
		require.ErrorAs(t, err, &quotaErr)
		assert.Equal(t, plan.Free, quotaErr.Plan)
		assert.EqualValues(t, 1, quotaErr.Limit)
		assert.Contains(t, quotaErr.Error(), "FREE")
		assert.Contains(t, quotaErr.Error(), "1")
	})

	t.Run("concurrent requests admit exactly one at the last slot", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		tenant := f.seedTenant(t, plan.Free)
		ctx := context.Background()

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := range errs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, errs[i] = f.gate.AddDomain(ctx, tenant.ID,
					[]string{"alpha", "beta"}[i],
					"https://race.example.com", "")
			}()
		}
		wg.Wait()

		successes := 0
		for _, err := range errs {
			if err == nil {
				successes++
			} else {
				assert.ErrorIs(t, err, store.ErrQuotaExceeded)
			}
		}
		assert.Equal(t, 1, successes)

		count, err := f.store.CountDomains(ctx, tenant.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		_, _, err := f.gate.AddDomain(context.Background(), uuid.New(), "ghost", "https://ghost.example.com", "")
		assert.ErrorIs(t, err, store.ErrSubscriptionNotFound)
	})

	t.Run("unregistered plan is a configuration error", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		tenant := f.seedTenant(t, "LEGACY")
		_, _, err := f.gate.AddDomain(context.Background(), tenant.ID, "acme", "https://acme.example.com", "")
		assert.ErrorIs(t, err, plan.ErrUnknownPlan)
	})
}

func TestAddDomainFanOut(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	target := f.seedTenant(t, plan.Free)
	bystander := f.seedTenant(t, plan.Free)

	subTarget, err := f.bus.Subscribe(ctx, quota.Channel(target.ID))
	require.NoError(t, err)
	subBystander, err := f.bus.Subscribe(ctx, quota.Channel(bystander.ID))
	require.NoError(t, err)

	created, _, err := f.gate.AddDomain(ctx, target.ID, "acme", "https://acme.example.com", "")
	require.NoError(t, err)

	select {
	case evt := <-subTarget.Events():
		assert.Equal(t, quota.EventDomainAdded, evt.Type)

		var payload struct {
			Domain store.Domain `json:"domain"`
		}
		require.NoError(t, json.Unmarshal(evt.Payload, &payload))
		assert.Equal(t, created.ID, payload.Domain.ID)
		assert.Equal(t, "acme", payload.Domain.Name)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not receive domain-added event")
	}

	select {
	case evt := <-subBystander.Events():
		t.Fatalf("bystander tenant received foreign event %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAddDomainPublishFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	bus := broadcast.NewMemoryBroadcaster(1)
	require.NoError(t, bus.Close()) // publishing now fails with ErrClosed

	st := memory.New()
	gate := quota.NewGate(st, plan.NewRegistry(), bus, newTestLogger())

	now := time.Now().UTC()
	tenant := &store.Tenant{ID: uuid.New(), ExternalID: "idn_pub", CreatedAt: now}
	require.NoError(t, st.CreateTenant(context.Background(), tenant,
		&store.Subscription{TenantID: tenant.ID, PlanID: plan.Free, CreatedAt: now, UpdatedAt: now}))

	d, _, err := gate.AddDomain(context.Background(), tenant.ID, "acme", "https://acme.example.com", "")
	require.NoError(t, err, "publish failure must not fail the committed creation")
	assert.NotNil(t, d)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
