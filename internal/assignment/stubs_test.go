package assignment

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/karimzem/fulfillment-backend/internal/agents"
	"github.com/karimzem/fulfillment-backend/pkg/config"
	"github.com/karimzem/fulfillment-backend/pkg/db/models"
	"github.com/karimzem/fulfillment-backend/pkg/enums"
	"github.com/karimzem/fulfillment-backend/pkg/logger"
	"github.com/karimzem/fulfillment-backend/pkg/metrics"
	"github.com/karimzem/fulfillment-backend/pkg/redis"
)

type stubOrderRepo struct {
	orders     map[uuid.UUID]*models.Order
	productIDs []uuid.UUID
	counts     map[uuid.UUID]int
	logs       []models.ActivityLog
}

func newStubOrderRepo() *stubOrderRepo {
	return &stubOrderRepo{
		orders: make(map[uuid.UUID]*models.Order),
		counts: make(map[uuid.UUID]int),
	}
}

func (r *stubOrderRepo) WithTx(tx *gorm.DB) OrderRepository { return r }

func (r *stubOrderRepo) FindOrderWithItems(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := r.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	return &copied, nil
}

func (r *stubOrderRepo) ListUnassignedSince(ctx context.Context, since time.Time, limit int) ([]models.Order, error) {
	var out []models.Order
	for _, order := range r.orders {
		if order.AssignedAgentID == nil && order.Status == enums.OrderStatusPending && !order.CreatedAt.Before(since) {
			out = append(out, *order)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *stubOrderRepo) ListAssignedToAgent(ctx context.Context, agentID uuid.UUID) ([]models.Order, error) {
	var out []models.Order
	for _, order := range r.orders {
		if order.AssignedAgentID != nil && *order.AssignedAgentID == agentID && order.Status == enums.OrderStatusAssigned {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (r *stubOrderRepo) CountAssignedBetween(ctx context.Context, agentIDs []uuid.UUID, from, to time.Time) (map[uuid.UUID]int, error) {
	out := make(map[uuid.UUID]int, len(agentIDs))
	for _, id := range agentIDs {
		if count, ok := r.counts[id]; ok {
			out[id] = count
		}
	}
	return out, nil
}

func (r *stubOrderRepo) SetAssignment(ctx context.Context, orderID, agentID uuid.UUID, at time.Time, status enums.OrderStatus) error {
	order, ok := r.orders[orderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	id := agentID
	stamped := at
	order.AssignedAgentID = &id
	order.AssignedAt = &stamped
	order.Status = status
	r.counts[agentID]++
	return nil
}

func (r *stubOrderRepo) ClearAssignment(ctx context.Context, orderID uuid.UUID) error {
	order, ok := r.orders[orderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if order.AssignedAgentID != nil {
		r.counts[*order.AssignedAgentID]--
	}
	order.AssignedAgentID = nil
	order.AssignedAt = nil
	order.Status = enums.OrderStatusPending
	return nil
}

func (r *stubOrderRepo) ListActiveProductAgentIDs(ctx context.Context, productNames []string) ([]uuid.UUID, error) {
	return r.productIDs, nil
}

func (r *stubOrderRepo) CreateActivityLog(ctx context.Context, entry *models.ActivityLog) error {
	r.logs = append(r.logs, *entry)
	return nil
}

type stubAgentsRepo struct {
	byID   map[uuid.UUID]*models.Agent
	sorted []uuid.UUID
	adjust map[uuid.UUID]int
}

func newStubAgentsRepo(pool ...*models.Agent) *stubAgentsRepo {
	repo := &stubAgentsRepo{
		byID:   make(map[uuid.UUID]*models.Agent),
		adjust: make(map[uuid.UUID]int),
	}
	for _, agent := range pool {
		repo.byID[agent.ID] = agent
		repo.sorted = append(repo.sorted, agent.ID)
	}
	return repo
}

func (r *stubAgentsRepo) WithTx(tx *gorm.DB) agents.Repository { return r }

func (r *stubAgentsRepo) FindAgent(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	agent, ok := r.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *agent
	return &copied, nil
}

func (r *stubAgentsRepo) ListAssignable(ctx context.Context) ([]models.Agent, error) {
	var out []models.Agent
	for _, id := range r.sorted {
		if agent := r.byID[id]; agent.Assignable() {
			out = append(out, *agent)
		}
	}
	return out, nil
}

func (r *stubAgentsRepo) ListAssignableByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Agent, error) {
	wanted := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	var out []models.Agent
	for _, id := range r.sorted {
		agent := r.byID[id]
		if _, ok := wanted[agent.ID]; ok && agent.Assignable() {
			out = append(out, *agent)
		}
	}
	return out, nil
}

func (r *stubAgentsRepo) AdjustCurrentOrders(ctx context.Context, id uuid.UUID, delta int) error {
	r.adjust[id] += delta
	return nil
}

type fakeCursorStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeCursorStore() *fakeCursorStore {
	return &fakeCursorStore{data: make(map[string]string)}
}

func (f *fakeCursorStore) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.data[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (f *fakeCursorStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = fmt.Sprint(value)
	return nil
}

func (f *fakeCursorStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = fmt.Sprint(value)
	return true, nil
}

func (f *fakeCursorStore) Del(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeCursorStore) CursorKey(partition string) string { return "ff:rr:cursor:" + partition }

func (f *fakeCursorStore) LockKey(name string) string { return "ff:lock:" + name }

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubNotifier struct {
	enqueued []uuid.UUID
}

func (n *stubNotifier) Enqueue(agentID uuid.UUID) {
	n.enqueued = append(n.enqueued, agentID)
}

func newTestService(t *testing.T, orders *stubOrderRepo, agentsRepo *stubAgentsRepo) (*service, *stubNotifier) {
	t.Helper()

	selector, err := NewSelector(newFakeCursorStore(), time.Second)
	require.NoError(t, err)

	notifier := &stubNotifier{}
	svc, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		DB:       stubTxRunner{},
		Orders:   orders,
		Agents:   agentsRepo,
		Selector: selector,
		Notifier: notifier,
		Metrics:  metrics.NewAssignmentMetrics(nil),
		Config: config.AssignmentConfig{
			BatchSize: 3,
			TxTimeout: time.Second,
		},
	})
	require.NoError(t, err)

	impl := svc.(*service)
	impl.sleep = func(time.Duration) {}
	impl.clock = func() time.Time {
		return time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC)
	}
	return impl, notifier
}

func testAgent(name string, maxOrders int) *models.Agent {
	return &models.Agent{
		ID:        uuid.New(),
		Name:      name,
		Email:     name + "@example.test",
		Role:      enums.AgentRoleSuivi,
		Active:    true,
		MaxOrders: maxOrders,
	}
}

func testOrder(status enums.OrderStatus) *models.Order {
	return &models.Order{
		ID:        uuid.New(),
		Reference: "REF-" + uuid.NewString()[:8],
		Status:    status,
		CreatedAt: time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC),
	}
}
