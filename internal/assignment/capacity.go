package assignment

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/karimzem/fulfillment-backend/pkg/db/models"
	pkgerrors "github.com/karimzem/fulfillment-backend/pkg/errors"
)

// Tracker derives each agent's authoritative daily load from today's
// assignments. Capacity is advisory: it narrows the rotation pool to agents
// with room but never leaves it empty, so an order always finds an owner even
// when everyone is at ceiling.
type Tracker struct {
	orders OrderRepository
	clock  func() time.Time
}

// NewTracker builds a capacity tracker.
func NewTracker(orders OrderRepository) (*Tracker, error) {
	if orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "order repository required")
	}
	return &Tracker{orders: orders, clock: time.Now}, nil
}

// Loads returns today's assignment count per agent. Agents with no
// assignments today are present with a zero count.
func (t *Tracker) Loads(ctx context.Context, agentIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	from, to := t.todayWindow()
	counts, err := t.orders.CountAssignedBetween(ctx, agentIDs, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count today's assignments")
	}
	if counts == nil {
		counts = make(map[uuid.UUID]int, len(agentIDs))
	}
	for _, id := range agentIDs {
		if _, ok := counts[id]; !ok {
			counts[id] = 0
		}
	}
	return counts, nil
}

// Pool returns the rotation candidates in name order, which stays identical
// between picks so the persisted cursor cycles through every agent before any
// repeat. Agents with remaining capacity are preferred; when everyone is at
// ceiling the whole list is returned. The input slice is not modified.
func (t *Tracker) Pool(candidates []models.Agent, loads map[uuid.UUID]int) []models.Agent {
	sorted := make([]models.Agent, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	withRoom := make([]models.Agent, 0, len(sorted))
	for _, agent := range sorted {
		if loads[agent.ID] < agent.MaxOrders {
			withRoom = append(withRoom, agent)
		}
	}
	if len(withRoom) > 0 {
		return withRoom
	}
	return sorted
}

// todayWindow returns [local midnight, next local midnight).
func (t *Tracker) todayWindow() (time.Time, time.Time) {
	now := t.clock()
	year, month, day := now.Date()
	from := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	return from, from.Add(24 * time.Hour)
}
