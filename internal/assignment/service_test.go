package assignment

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karimzem/fulfillment-backend/pkg/db/models"
	"github.com/karimzem/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/karimzem/fulfillment-backend/pkg/errors"
)

func TestAssignOrderSkipsAgentsAtCapacity(t *testing.T) {
	busy := testAgent("amel", 30)
	idle := testAgent("karim", 30)
	agentsRepo := newStubAgentsRepo(busy, idle)

	orders := newStubOrderRepo()
	orders.counts[busy.ID] = 30
	orders.counts[idle.ID] = 3
	order := testOrder(enums.OrderStatusPending)
	orders.orders[order.ID] = order

	svc, notifier := newTestService(t, orders, agentsRepo)

	result, err := svc.AssignOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, idle.ID, *result.AgentID)
	assert.Equal(t, "karim", result.AgentName)

	assert.Equal(t, enums.OrderStatusAssigned, order.Status)
	require.NotNil(t, order.AssignedAgentID)
	assert.Equal(t, idle.ID, *order.AssignedAgentID)
	assert.NotNil(t, order.AssignedAt)

	assert.Equal(t, 1, agentsRepo.adjust[idle.ID])
	require.Len(t, orders.logs, 1)
	assert.Equal(t, "order.assigned", orders.logs[0].Action)
	assert.Equal(t, []uuid.UUID{idle.ID}, notifier.enqueued)
}

func TestAssignOrderBurstCyclesThroughAllAgents(t *testing.T) {
	first := testAgent("amel", 30)
	second := testAgent("karim", 30)
	agentsRepo := newStubAgentsRepo(first, second)

	orders := newStubOrderRepo()
	pending := make([]*models.Order, 4)
	for i := range pending {
		order := testOrder(enums.OrderStatusPending)
		orders.orders[order.ID] = order
		pending[i] = order
	}

	svc, _ := newTestService(t, orders, agentsRepo)

	// Sequential assignments feed each commit back into the load counts, so
	// the rotation must still hand 2 of 4 orders to each agent.
	var sequence []uuid.UUID
	for _, order := range pending {
		result, err := svc.AssignOrder(context.Background(), order.ID)
		require.NoError(t, err)
		require.True(t, result.Success)
		sequence = append(sequence, *result.AgentID)
	}

	tally := make(map[uuid.UUID]int)
	for _, agentID := range sequence {
		tally[agentID]++
	}
	assert.Equal(t, 2, tally[first.ID])
	assert.Equal(t, 2, tally[second.ID])

	// Both agents are seen before either repeats.
	assert.NotEqual(t, sequence[0], sequence[1])
	assert.NotEqual(t, sequence[2], sequence[3])
}

func TestAssignOrderAlreadyAssignedReportsOwner(t *testing.T) {
	agent := testAgent("amel", 30)
	agentsRepo := newStubAgentsRepo(agent)

	orders := newStubOrderRepo()
	order := testOrder(enums.OrderStatusAssigned)
	owner := agent.ID
	order.AssignedAgentID = &owner
	orders.orders[order.ID] = order

	svc, notifier := newTestService(t, orders, agentsRepo)

	result, err := svc.AssignOrder(context.Background(), order.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeAlreadyAssigned))
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Equal(t, pkgerrors.CodeAlreadyAssigned, result.Code)
	require.NotNil(t, result.AgentID)
	assert.Equal(t, owner, *result.AgentID)
	assert.Empty(t, notifier.enqueued)
	assert.Empty(t, orders.logs)
}

func TestAssignOrderNotFound(t *testing.T) {
	svc, _ := newTestService(t, newStubOrderRepo(), newStubAgentsRepo(testAgent("amel", 30)))

	result, err := svc.AssignOrder(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
	assert.Equal(t, pkgerrors.CodeNotFound, result.Code)
}

func TestAssignOrderNoAssignableAgents(t *testing.T) {
	inactive := testAgent("amel", 30)
	inactive.Active = false
	agentsRepo := newStubAgentsRepo(inactive)

	orders := newStubOrderRepo()
	order := testOrder(enums.OrderStatusPending)
	orders.orders[order.ID] = order

	svc, _ := newTestService(t, orders, agentsRepo)

	result, err := svc.AssignOrder(context.Background(), order.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNoEligible))
	assert.False(t, result.Success)
	assert.Nil(t, order.AssignedAgentID)
}

func TestAssignOrderDeliveredShippingShortCircuits(t *testing.T) {
	agent := testAgent("amel", 30)
	orders := newStubOrderRepo()
	order := testOrder(enums.OrderStatusPending)
	order.ShippingStatus = "LIVRE"
	orders.orders[order.ID] = order

	svc, _ := newTestService(t, orders, newStubAgentsRepo(agent))

	result, err := svc.AssignOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, enums.OrderStatusDelivered, order.Status)
	require.NotNil(t, order.AssignedAgentID)
	assert.Equal(t, agent.ID, *order.AssignedAgentID)
}

func TestAssignOrderOverCapacityStillAssigns(t *testing.T) {
	agent := testAgent("amel", 5)
	orders := newStubOrderRepo()
	orders.counts[agent.ID] = 9
	order := testOrder(enums.OrderStatusPending)
	orders.orders[order.ID] = order

	svc, _ := newTestService(t, orders, newStubAgentsRepo(agent))

	result, err := svc.AssignOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, agent.ID, *result.AgentID)
}

func TestAssignOrdersBatchContinuesPastFailures(t *testing.T) {
	agent := testAgent("amel", 30)
	orders := newStubOrderRepo()

	first := testOrder(enums.OrderStatusPending)
	third := testOrder(enums.OrderStatusPending)
	orders.orders[first.ID] = first
	orders.orders[third.ID] = third
	missing := uuid.New()

	svc, _ := newTestService(t, orders, newStubAgentsRepo(agent))

	batch, err := svc.AssignOrdersBatch(context.Background(), []uuid.UUID{first.ID, missing, third.ID}, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, batch.Processed)
	assert.Equal(t, 2, batch.Succeeded)
	assert.Equal(t, 1, batch.Failed)
	require.Len(t, batch.Results, 3)
	assert.True(t, batch.Results[0].Success)
	assert.Equal(t, pkgerrors.CodeNotFound, batch.Results[1].Code)
	assert.True(t, batch.Results[2].Success)
}

func TestAssignOrdersBatchStopsOnCanceledContext(t *testing.T) {
	agent := testAgent("amel", 30)
	orders := newStubOrderRepo()
	order := testOrder(enums.OrderStatusPending)
	orders.orders[order.ID] = order

	svc, _ := newTestService(t, orders, newStubAgentsRepo(agent))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	batch, err := svc.AssignOrdersBatch(ctx, []uuid.UUID{order.ID}, 1)
	require.NoError(t, err)
	assert.Zero(t, batch.Processed)
	assert.Nil(t, order.AssignedAgentID)
}

func TestManualAssignRejectsInactiveAgent(t *testing.T) {
	agent := testAgent("amel", 30)
	agent.Active = false
	orders := newStubOrderRepo()
	order := testOrder(enums.OrderStatusPending)
	orders.orders[order.ID] = order

	svc, _ := newTestService(t, orders, newStubAgentsRepo(agent))

	result, err := svc.ManualAssign(context.Background(), order.ID, agent.ID, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidAgent))
	assert.Equal(t, pkgerrors.CodeInvalidAgent, result.Code)
	assert.Nil(t, order.AssignedAgentID)
}

func TestManualAssignNoChange(t *testing.T) {
	agent := testAgent("amel", 30)
	orders := newStubOrderRepo()
	order := testOrder(enums.OrderStatusAssigned)
	owner := agent.ID
	order.AssignedAgentID = &owner
	orders.orders[order.ID] = order

	svc, _ := newTestService(t, orders, newStubAgentsRepo(agent))

	_, err := svc.ManualAssign(context.Background(), order.ID, agent.ID, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNoChange))
}

func TestManualAssignReassignsAndAdjustsCounters(t *testing.T) {
	previous := testAgent("amel", 30)
	next := testAgent("karim", 30)
	agentsRepo := newStubAgentsRepo(previous, next)

	orders := newStubOrderRepo()
	order := testOrder(enums.OrderStatusAssigned)
	owner := previous.ID
	order.AssignedAgentID = &owner
	orders.orders[order.ID] = order

	svc, notifier := newTestService(t, orders, agentsRepo)

	actor := uuid.New()
	result, err := svc.ManualAssign(context.Background(), order.ID, next.ID, &actor)
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, next.ID, *order.AssignedAgentID)
	assert.Equal(t, enums.OrderStatusAssigned, order.Status)

	assert.Equal(t, -1, agentsRepo.adjust[previous.ID])
	assert.Equal(t, 1, agentsRepo.adjust[next.ID])
	require.Len(t, orders.logs, 1)
	assert.Equal(t, "order.reassigned", orders.logs[0].Action)
	require.NotNil(t, orders.logs[0].ActorID)
	assert.Equal(t, actor, *orders.logs[0].ActorID)
	assert.Equal(t, []uuid.UUID{next.ID}, notifier.enqueued)
}

func TestRedistributeMovesOnlyOpenOrders(t *testing.T) {
	leaving := testAgent("amel", 30)
	staying := testAgent("karim", 30)
	agentsRepo := newStubAgentsRepo(leaving, staying)

	orders := newStubOrderRepo()
	open1 := testOrder(enums.OrderStatusAssigned)
	open2 := testOrder(enums.OrderStatusAssigned)
	working := testOrder(enums.OrderStatusInProgress)
	for _, order := range []*models.Order{open1, open2, working} {
		id := leaving.ID
		order.AssignedAgentID = &id
		orders.orders[order.ID] = order
	}

	// Redistribution should never hand orders back to the leaving agent.
	leaving.Active = false

	svc, _ := newTestService(t, orders, agentsRepo)

	result, err := svc.Redistribute(context.Background(), leaving.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Freed)
	assert.Equal(t, 2, result.Batch.Succeeded)

	assert.Equal(t, staying.ID, *open1.AssignedAgentID)
	assert.Equal(t, staying.ID, *open2.AssignedAgentID)
	assert.Equal(t, leaving.ID, *working.AssignedAgentID)
	assert.Equal(t, enums.OrderStatusInProgress, working.Status)

	// -1 per freed order, nothing else for the leaving agent.
	assert.Equal(t, -2, agentsRepo.adjust[leaving.ID])
	assert.Equal(t, 2, agentsRepo.adjust[staying.ID])
}

func TestRedistributeNothingToMove(t *testing.T) {
	agent := testAgent("amel", 30)
	svc, _ := newTestService(t, newStubOrderRepo(), newStubAgentsRepo(agent))

	result, err := svc.Redistribute(context.Background(), agent.ID)
	require.NoError(t, err)
	assert.Zero(t, result.Freed)
	assert.Zero(t, result.Batch.Processed)
}

func TestStatsAggregatesLoads(t *testing.T) {
	a := testAgent("amel", 10)
	b := testAgent("karim", 10)
	agentsRepo := newStubAgentsRepo(a, b)

	orders := newStubOrderRepo()
	orders.counts[a.ID] = 10
	orders.counts[b.ID] = 4

	svc, _ := newTestService(t, orders, agentsRepo)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	require.Len(t, stats.Agents, 2)
	assert.Equal(t, 14, stats.TotalAssigned)

	byName := make(map[string]AgentStats, 2)
	for _, row := range stats.Agents {
		byName[row.Name] = row
	}
	assert.False(t, byName["amel"].HasCapacity)
	assert.Equal(t, 1.0, byName["amel"].Utilization)
	assert.True(t, byName["karim"].HasCapacity)
	assert.Equal(t, 0.4, byName["karim"].Utilization)
}
