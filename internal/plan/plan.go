// Package plan is the single source of truth for subscription tiers: which
// plans exist, how many domains each allows, and how many monthly credits it
// grants. Every quota decision and every credit reset goes through Lookup so
// a limit change happens in exactly one place.
package plan

import (
	"errors"
	"fmt"
)

// ErrUnknownPlan is returned when a plan ID is not in the registry.
// Reaching it from a stored subscription means the deployment configuration
// drifted from the data, which is an operator problem, not a user error.
var ErrUnknownPlan = errors.New("plan: unknown plan")

// Plan IDs form a closed enumeration.
const (
	Free    = "FREE"
	Basic   = "BASIC"
	Premium = "PREMIUM"
)

// Plan describes one subscription tier.
type Plan struct {
	ID             string   `json:"id"`
	DomainLimit    int64    `json:"domain_limit"`
	MonthlyCredits int64    `json:"monthly_credits"`
	Features       []string `json:"features"`
}

// Registry maps plan IDs to their definitions. The map is immutable after
// construction, which is what makes the registry safe for concurrent use.
type Registry struct {
	plans map[string]Plan
	ids   []string
}

// NewRegistry builds the registry with the standard tiers.
func NewRegistry() *Registry {
	return newRegistry(
		Plan{
			ID:             Free,
			DomainLimit:    1,
			MonthlyCredits: 1000,
			Features: []string{
				"1 domain",
				"Up to 1,000 email credits",
				"Basic AI chat capabilities",
				"Standard support",
			},
		},
		Plan{
			ID:             Basic,
			DomainLimit:    3,
			MonthlyCredits: 5000,
			Features: []string{
				"Up to 3 domains",
				"Up to 5,000 email credits",
				"Advanced AI chat capabilities",
				"Priority support",
				"Email campaign scheduling",
			},
		},
		Plan{
			ID:             Premium,
			DomainLimit:    10,
			MonthlyCredits: 10000,
			Features: []string{
				"Up to 10 domains",
				"Up to 10,000 email credits",
				"Premium AI chat capabilities",
				"24/7 priority support",
				"Advanced analytics",
				"Custom integrations",
			},
		},
	)
}

func newRegistry(plans ...Plan) *Registry {
	r := &Registry{plans: make(map[string]Plan, len(plans))}
	for _, p := range plans {
		r.plans[p.ID] = p
		r.ids = append(r.ids, p.ID)
	}
	return r
}

// Lookup resolves a plan by ID.
func (r *Registry) Lookup(id string) (Plan, error) {
	p, ok := r.plans[id]
	if !ok {
		return Plan{}, fmt.Errorf("%w: %q", ErrUnknownPlan, id)
	}
	return p, nil
}

// IDs returns the known plan IDs in registration order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}
