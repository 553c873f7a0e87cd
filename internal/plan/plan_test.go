package plan_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/domainboard/internal/plan"
)

func TestLookup(t *testing.T) {
	t.Parallel()

	registry := plan.NewRegistry()

	tests := []struct {
		id      string
		limit   int64
		credits int64
	}{
		{plan.Free, 1, 1000},
		{plan.Basic, 3, 5000},
		{plan.Premium, 10, 10000},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			t.Parallel()

			p, err := registry.Lookup(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.id, p.ID)
			assert.Equal(t, tt.limit, p.DomainLimit)
			assert.Equal(t, tt.credits, p.MonthlyCredits)
			assert.NotEmpty(t, p.Features)
		})
	}

	t.Run("unknown plan", func(t *testing.T) {
		t.Parallel()

		for _, id := range []string{"GOLD", "free", "", "PREMIUM "} {
			_, err := registry.Lookup(id)
			assert.ErrorIs(t, err, plan.ErrUnknownPlan, "id %q", id)
		}
	})
}

func TestIDs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{plan.Free, plan.Basic, plan.Premium}, plan.NewRegistry().IDs())
}
