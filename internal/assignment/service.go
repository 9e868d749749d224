package assignment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/karimzem/fulfillment-backend/internal/agents"
	"github.com/karimzem/fulfillment-backend/pkg/config"
	"github.com/karimzem/fulfillment-backend/pkg/db/models"
	"github.com/karimzem/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/karimzem/fulfillment-backend/pkg/errors"
	"github.com/karimzem/fulfillment-backend/pkg/logger"
	"github.com/karimzem/fulfillment-backend/pkg/maystro"
	"github.com/karimzem/fulfillment-backend/pkg/metrics"
)

// Service defines the order distribution operations exposed to controllers
// and scheduled jobs.
type Service interface {
	AssignOrder(ctx context.Context, orderID uuid.UUID) (*AssignResult, error)
	AssignOrdersBatch(ctx context.Context, orderIDs []uuid.UUID, batchSize int) (*BatchResult, error)
	AutoAssignUnassigned(ctx context.Context) (*BatchResult, error)
	ManualAssign(ctx context.Context, orderID, agentID uuid.UUID, actorID *uuid.UUID) (*AssignResult, error)
	Redistribute(ctx context.Context, agentID uuid.UUID) (*RedistributeResult, error)
	Stats(ctx context.Context) (*Stats, error)
}

// ServiceParams configure the distribution engine.
type ServiceParams struct {
	Logger   *logger.Logger
	DB       txRunner
	Orders   OrderRepository
	Agents   agents.Repository
	Selector *Selector
	Notifier Notifier
	Metrics  *metrics.AssignmentMetrics
	Config   config.AssignmentConfig
}

type service struct {
	logg     *logger.Logger
	db       txRunner
	orders   OrderRepository
	agents   agents.Repository
	selector *Selector
	notifier Notifier
	metrics  *metrics.AssignmentMetrics
	cfg      config.AssignmentConfig
	clock    func() time.Time
	sleep    func(time.Duration)
}

// NewService builds the distribution engine with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if params.Agents == nil {
		return nil, fmt.Errorf("agents repository required")
	}
	if params.Selector == nil {
		return nil, fmt.Errorf("round-robin selector required")
	}
	cfg := params.Config
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.AutoAssignLimit <= 0 {
		cfg.AutoAssignLimit = 200
	}
	if cfg.AutoAssignDays <= 0 {
		cfg.AutoAssignDays = 7
	}
	if cfg.TxTimeout <= 0 {
		cfg.TxTimeout = time.Minute
	}
	return &service{
		logg:     params.Logger,
		db:       params.DB,
		orders:   params.Orders,
		agents:   params.Agents,
		selector: params.Selector,
		notifier: params.Notifier,
		metrics:  params.Metrics,
		cfg:      cfg,
		clock:    time.Now,
		sleep:    time.Sleep,
	}, nil
}

func (s *service) AssignOrder(ctx context.Context, orderID uuid.UUID) (*AssignResult, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	result := &AssignResult{OrderID: orderID}
	var chosen *models.Agent

	txCtx, cancel := context.WithTimeout(ctx, s.cfg.TxTimeout)
	defer cancel()

	err := s.db.WithTx(txCtx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		agentsRepo := s.agents.WithTx(tx)

		order, err := repo.FindOrderWithItems(txCtx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.AssignedAgentID != nil {
			owner := *order.AssignedAgentID
			result.AgentID = &owner
			return pkgerrors.New(pkgerrors.CodeAlreadyAssigned, "order already assigned")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeConflict, "order is not pending")
		}

		titles := order.ProductTitles()
		candidates, err := s.eligibleAgents(txCtx, repo, agentsRepo, titles)
		if err != nil {
			return err
		}

		pool, err := s.candidatePool(txCtx, repo, candidates)
		if err != nil {
			return err
		}

		idx, err := s.selector.Select(txCtx, PartitionKey(titles), len(pool))
		if err != nil {
			return err
		}
		picked := pool[idx]
		chosen = &picked

		now := s.clock()
		status := enums.OrderStatusAssigned
		if maystro.IsDelivered(order.ShippingStatus) {
			// Courier already delivered this one; reconcile directly.
			status = enums.OrderStatusDelivered
		}

		if err := repo.SetAssignment(txCtx, order.ID, picked.ID, now, status); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "commit assignment")
		}
		if err := agentsRepo.AdjustCurrentOrders(txCtx, picked.ID, 1); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment agent load")
		}
		agentID := picked.ID
		entry := &models.ActivityLog{
			Action:  "order.assigned",
			OrderID: &order.ID,
			AgentID: &agentID,
			Detail:  fmt.Sprintf("assigned to %s via rotation", picked.Name),
		}
		if err := repo.CreateActivityLog(txCtx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write activity log")
		}
		return nil
	})
	if err != nil {
		return s.failResult(ctx, result, err), err
	}

	result.Success = true
	result.AgentID = &chosen.ID
	result.AgentName = chosen.Name
	s.metrics.IncOutcome("assigned")
	if s.notifier != nil {
		s.notifier.Enqueue(chosen.ID)
	}
	return result, nil
}

func (s *service) AssignOrdersBatch(ctx context.Context, orderIDs []uuid.UUID, batchSize int) (*BatchResult, error) {
	if batchSize <= 0 {
		batchSize = s.cfg.BatchSize
	}
	out := &BatchResult{Results: make([]AssignResult, 0, len(orderIDs))}

	for start := 0; start < len(orderIDs); start += batchSize {
		if ctx.Err() != nil {
			// Stop between items; everything already processed keeps its result.
			break
		}
		end := start + batchSize
		if end > len(orderIDs) {
			end = len(orderIDs)
		}
		for i, orderID := range orderIDs[start:end] {
			if ctx.Err() != nil {
				break
			}
			result, err := s.AssignOrder(ctx, orderID)
			if result == nil {
				result = &AssignResult{OrderID: orderID, Success: false, Code: pkgerrors.CodeInternal}
				if err != nil {
					result.Message = err.Error()
				}
			}
			out.Processed++
			if result.Success {
				out.Succeeded++
			} else {
				out.Failed++
			}
			out.Results = append(out.Results, *result)

			if i < end-start-1 && s.cfg.ItemPause > 0 {
				s.sleep(s.cfg.ItemPause)
			}
		}
		if end < len(orderIDs) && s.cfg.ChunkPause > 0 {
			s.sleep(s.cfg.ChunkPause)
		}
	}
	return out, nil
}

func (s *service) AutoAssignUnassigned(ctx context.Context) (*BatchResult, error) {
	since := s.clock().AddDate(0, 0, -s.cfg.AutoAssignDays)
	orders, err := s.orders.ListUnassignedSince(ctx, since, s.cfg.AutoAssignLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list unassigned orders")
	}
	ids := make([]uuid.UUID, 0, len(orders))
	for _, order := range orders {
		ids = append(ids, order.ID)
	}
	return s.AssignOrdersBatch(ctx, ids, s.cfg.BatchSize)
}

func (s *service) ManualAssign(ctx context.Context, orderID, agentID uuid.UUID, actorID *uuid.UUID) (*AssignResult, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if agentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent id required")
	}

	result := &AssignResult{OrderID: orderID}

	target, err := s.agents.FindAgent(ctx, agentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = pkgerrors.New(pkgerrors.CodeNotFound, "agent not found")
		} else {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agent")
		}
		return s.failResult(ctx, result, err), err
	}
	if !target.Assignable() {
		err := pkgerrors.New(pkgerrors.CodeInvalidAgent, "agent is inactive or not a follow-up agent")
		return s.failResult(ctx, result, err), err
	}

	txCtx, cancel := context.WithTimeout(ctx, s.cfg.TxTimeout)
	defer cancel()

	err = s.db.WithTx(txCtx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		agentsRepo := s.agents.WithTx(tx)

		order, err := repo.FindOrderWithItems(txCtx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		now := s.clock()
		status := order.Status

		if order.AssignedAgentID != nil {
			previous := *order.AssignedAgentID
			if previous == agentID {
				return pkgerrors.New(pkgerrors.CodeNoChange, "order already assigned to this agent")
			}
			if err := agentsRepo.AdjustCurrentOrders(txCtx, previous, -1); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement previous agent load")
			}
			entry := &models.ActivityLog{
				ActorID: actorID,
				Action:  "order.reassigned",
				OrderID: &order.ID,
				AgentID: &agentID,
				Detail:  fmt.Sprintf("reassigned from %s to %s", previous, target.Name),
			}
			if err := repo.CreateActivityLog(txCtx, entry); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write activity log")
			}
		} else {
			status = enums.OrderStatusAssigned
			if maystro.IsDelivered(order.ShippingStatus) {
				status = enums.OrderStatusDelivered
			}
			entry := &models.ActivityLog{
				ActorID: actorID,
				Action:  "order.assigned",
				OrderID: &order.ID,
				AgentID: &agentID,
				Detail:  fmt.Sprintf("manually assigned to %s", target.Name),
			}
			if err := repo.CreateActivityLog(txCtx, entry); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write activity log")
			}
		}

		if err := repo.SetAssignment(txCtx, order.ID, agentID, now, status); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "commit assignment")
		}
		return agentsRepo.AdjustCurrentOrders(txCtx, agentID, 1)
	})
	if err != nil {
		return s.failResult(ctx, result, err), err
	}

	result.Success = true
	result.AgentID = &target.ID
	result.AgentName = target.Name
	s.metrics.IncOutcome("manual")
	if s.notifier != nil {
		s.notifier.Enqueue(target.ID)
	}
	return result, nil
}

func (s *service) Redistribute(ctx context.Context, agentID uuid.UUID) (*RedistributeResult, error) {
	if agentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent id required")
	}

	// Only orders still waiting on first contact move; anything the agent has
	// started working stays put.
	assigned, err := s.orders.ListAssignedToAgent(ctx, agentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list agent's open orders")
	}

	out := &RedistributeResult{AgentID: agentID}
	if len(assigned) == 0 {
		out.Batch = BatchResult{}
		return out, nil
	}

	txCtx, cancel := context.WithTimeout(ctx, s.cfg.TxTimeout)
	defer cancel()

	err = s.db.WithTx(txCtx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		agentsRepo := s.agents.WithTx(tx)
		for _, order := range assigned {
			if err := repo.ClearAssignment(txCtx, order.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear assignment")
			}
			if err := agentsRepo.AdjustCurrentOrders(txCtx, agentID, -1); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement agent load")
			}
			orderID := order.ID
			entry := &models.ActivityLog{
				Action:  "order.unassigned",
				OrderID: &orderID,
				AgentID: &agentID,
				Detail:  "freed for redistribution",
			}
			if err := repo.CreateActivityLog(txCtx, entry); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write activity log")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	freed := make([]uuid.UUID, 0, len(assigned))
	for _, order := range assigned {
		freed = append(freed, order.ID)
	}
	out.Freed = len(freed)
	out.FreedOrder = freed

	batch, err := s.AssignOrdersBatch(ctx, freed, s.cfg.BatchSize)
	if err != nil {
		return nil, err
	}
	out.Batch = *batch
	s.metrics.IncOutcome("redistributed")
	return out, nil
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	pool, err := s.agents.ListAssignable(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assignable agents")
	}
	tracker, err := NewTracker(s.orders)
	if err != nil {
		return nil, err
	}
	tracker.clock = s.clock

	ids := make([]uuid.UUID, 0, len(pool))
	for _, agent := range pool {
		ids = append(ids, agent.ID)
	}
	loads, err := tracker.Loads(ctx, ids)
	if err != nil {
		return nil, err
	}

	stats := &Stats{Agents: make([]AgentStats, 0, len(pool))}
	for _, agent := range pool {
		count := loads[agent.ID]
		row := AgentStats{
			AgentID:       agent.ID,
			Name:          agent.Name,
			MaxOrders:     agent.MaxOrders,
			AssignedToday: count,
			HasCapacity:   count < agent.MaxOrders,
		}
		if agent.MaxOrders > 0 {
			row.Utilization = float64(count) / float64(agent.MaxOrders)
		}
		stats.Agents = append(stats.Agents, row)
		stats.TotalAssigned += count
	}
	return stats, nil
}

// eligibleAgents resolves candidates through tx-bound repositories.
func (s *service) eligibleAgents(ctx context.Context, repo OrderRepository, agentsRepo agents.Repository, titles []string) ([]models.Agent, error) {
	resolver, err := NewResolver(repo, agentsRepo)
	if err != nil {
		return nil, err
	}
	return resolver.EligibleAgents(ctx, titles)
}

// candidatePool narrows candidates to the stable rotation pool, reading
// today's loads through a tx-bound repo.
func (s *service) candidatePool(ctx context.Context, repo OrderRepository, candidates []models.Agent) ([]models.Agent, error) {
	tracker, err := NewTracker(repo)
	if err != nil {
		return nil, err
	}
	tracker.clock = s.clock

	ids := make([]uuid.UUID, 0, len(candidates))
	for _, agent := range candidates {
		ids = append(ids, agent.ID)
	}
	loads, err := tracker.Loads(ctx, ids)
	if err != nil {
		return nil, err
	}
	return tracker.Pool(candidates, loads), nil
}

// failResult stamps the structured failure shape from an error so batch
// callers never crash mid-loop.
func (s *service) failResult(ctx context.Context, result *AssignResult, err error) *AssignResult {
	typed := pkgerrors.As(err)
	if typed != nil {
		result.Code = typed.Code()
		result.Message = typed.Message()
	} else {
		result.Code = pkgerrors.CodeInternal
		result.Message = "unexpected failure"
		s.logg.Error(ctx, "assignment failed unexpectedly", err)
	}
	result.Success = false
	s.metrics.IncOutcome(string(result.Code))
	return result
}
