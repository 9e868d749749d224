package agents

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/karimzem/fulfillment-backend/pkg/db/models"
	"github.com/karimzem/fulfillment-backend/pkg/enums"
)

// Repository defines persistence operations for follow-up agents.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindAgent(ctx context.Context, id uuid.UUID) (*models.Agent, error)
	ListAssignable(ctx context.Context) ([]models.Agent, error)
	ListAssignableByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Agent, error)
	AdjustCurrentOrders(ctx context.Context, id uuid.UUID, delta int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an agents repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindAgent(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	var agent models.Agent
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&agent).Error
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *repository) ListAssignable(ctx context.Context) ([]models.Agent, error) {
	var agents []models.Agent
	err := r.db.WithContext(ctx).
		Where("active = ? AND role = ?", true, enums.AgentRoleSuivi).
		Order("name ASC").
		Find(&agents).Error
	if err != nil {
		return nil, err
	}
	return agents, nil
}

func (r *repository) ListAssignableByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Agent, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var agents []models.Agent
	err := r.db.WithContext(ctx).
		Where("id IN ? AND active = ? AND role = ?", ids, true, enums.AgentRoleSuivi).
		Order("name ASC").
		Find(&agents).Error
	if err != nil {
		return nil, err
	}
	return agents, nil
}

// AdjustCurrentOrders applies a relative delta to the denormalized counter,
// clamped at zero.
func (r *repository) AdjustCurrentOrders(ctx context.Context, id uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).
		Model(&models.Agent{}).
		Where("id = ?", id).
		Update("current_orders", gorm.Expr("GREATEST(current_orders + ?, 0)", delta)).Error
}
