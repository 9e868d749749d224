package notifications

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/karimzem/fulfillment-backend/pkg/db/models"
)

// Repository defines persistence operations for agent notifications.
type Repository interface {
	Create(ctx context.Context, notification *models.AgentNotification) error
	ListUnread(ctx context.Context, agentID uuid.UUID, limit int) ([]models.AgentNotification, error)
	MarkRead(ctx context.Context, agentID uuid.UUID, ids []uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds the GORM-backed notifications repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, notification *models.AgentNotification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *repository) ListUnread(ctx context.Context, agentID uuid.UUID, limit int) ([]models.AgentNotification, error) {
	var out []models.AgentNotification
	q := r.db.WithContext(ctx).
		Where("agent_id = ? AND read = ?", agentID, false).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) MarkRead(ctx context.Context, agentID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.AgentNotification{}).
		Where("agent_id = ? AND id IN ?", agentID, ids).
		Update("read", true).Error
}
