package assignment

import (
	"context"
	"sort"
	"strings"

	"github.com/karimzem/fulfillment-backend/internal/agents"
	"github.com/karimzem/fulfillment-backend/pkg/db/models"
	pkgerrors "github.com/karimzem/fulfillment-backend/pkg/errors"
)

// Resolver computes the set of agents allowed to receive an order based on
// its line-item product names. When no mapping matches, it falls back to the
// full assignable pool so every order stays routable.
type Resolver struct {
	orders OrderRepository
	agents agents.Repository
}

// NewResolver builds an eligibility resolver.
func NewResolver(orders OrderRepository, agentsRepo agents.Repository) (*Resolver, error) {
	if orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "order repository required")
	}
	if agentsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "agents repository required")
	}
	return &Resolver{orders: orders, agents: agentsRepo}, nil
}

// EligibleAgents resolves the ordered, de-duplicated list of assignable
// agents for the given product names. An order with products mapped to
// different agent sets is eligible for the union of those sets.
func (r *Resolver) EligibleAgents(ctx context.Context, productNames []string) ([]models.Agent, error) {
	if len(productNames) > 0 {
		ids, err := r.orders.ListActiveProductAgentIDs(ctx, productNames)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup product assignments")
		}
		if len(ids) > 0 {
			mapped, err := r.agents.ListAssignableByIDs(ctx, ids)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load mapped agents")
			}
			if len(mapped) > 0 {
				return mapped, nil
			}
		}
	}

	// No product metadata or no active mapping: every assignable agent is a
	// candidate.
	pool, err := r.agents.ListAssignable(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assignable agents")
	}
	if len(pool) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNoEligible, "no assignable agents exist")
	}
	return pool, nil
}

// PartitionKey derives the rotation-cursor partition for a product-name set.
// The key is the sorted, joined name list so that orders carrying the same
// eligibility context share one fairness cursor.
func PartitionKey(productNames []string) string {
	if len(productNames) == 0 {
		return "default"
	}
	names := make([]string, 0, len(productNames))
	seen := make(map[string]struct{}, len(productNames))
	for _, name := range productNames {
		cleaned := strings.ToLower(strings.TrimSpace(name))
		if cleaned == "" {
			continue
		}
		if _, ok := seen[cleaned]; ok {
			continue
		}
		seen[cleaned] = struct{}{}
		names = append(names, cleaned)
	}
	if len(names) == 0 {
		return "default"
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}
