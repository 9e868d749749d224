package assignment

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/karimzem/fulfillment-backend/pkg/db/models"
	"github.com/karimzem/fulfillment-backend/pkg/enums"
)

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository builds the GORM-backed order repository.
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) WithTx(tx *gorm.DB) OrderRepository {
	if tx == nil {
		return r
	}
	return &orderRepository{db: tx}
}

func (r *orderRepository) FindOrderWithItems(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) ListUnassignedSince(ctx context.Context, since time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	q := r.db.WithContext(ctx).
		Where("assigned_agent_id IS NULL AND status = ? AND created_at >= ?", enums.OrderStatusPending, since).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ListAssignedToAgent returns only orders the agent has not started working;
// in-progress and terminal orders stay with their owner.
func (r *orderRepository) ListAssignedToAgent(ctx context.Context, agentID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("assigned_agent_id = ? AND status = ?", agentID, enums.OrderStatusAssigned).
		Order("assigned_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) CountAssignedBetween(ctx context.Context, agentIDs []uuid.UUID, from, to time.Time) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(agentIDs))
	if len(agentIDs) == 0 {
		return counts, nil
	}
	type row struct {
		AgentID uuid.UUID
		Total   int
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("assigned_agent_id AS agent_id, COUNT(*) AS total").
		Where("assigned_agent_id IN ? AND assigned_at >= ? AND assigned_at < ?", agentIDs, from, to).
		Group("assigned_agent_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		counts[r.AgentID] = r.Total
	}
	return counts, nil
}

func (r *orderRepository) SetAssignment(ctx context.Context, orderID, agentID uuid.UUID, at time.Time, status enums.OrderStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"assigned_agent_id": agentID,
			"assigned_at":       at,
			"status":            status,
		}).Error
}

func (r *orderRepository) ClearAssignment(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"assigned_agent_id": nil,
			"assigned_at":       nil,
			"status":            enums.OrderStatusPending,
		}).Error
}

func (r *orderRepository) ListActiveProductAgentIDs(ctx context.Context, productNames []string) ([]uuid.UUID, error) {
	if len(productNames) == 0 {
		return nil, nil
	}
	lowered := make([]string, 0, len(productNames))
	for _, name := range productNames {
		cleaned := strings.ToLower(strings.TrimSpace(name))
		if cleaned != "" {
			lowered = append(lowered, cleaned)
		}
	}
	if len(lowered) == 0 {
		return nil, nil
	}
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.ProductAssignment{}).
		Distinct("agent_id").
		Where("active = ? AND LOWER(product_name) IN ?", true, lowered).
		Pluck("agent_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *orderRepository) CreateActivityLog(ctx context.Context, entry *models.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}
