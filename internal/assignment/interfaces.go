package assignment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/karimzem/fulfillment-backend/pkg/db/models"
	"github.com/karimzem/fulfillment-backend/pkg/enums"
)

// OrderRepository defines persistence operations the distribution engine needs.
type OrderRepository interface {
	WithTx(tx *gorm.DB) OrderRepository
	FindOrderWithItems(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListUnassignedSince(ctx context.Context, since time.Time, limit int) ([]models.Order, error)
	ListAssignedToAgent(ctx context.Context, agentID uuid.UUID) ([]models.Order, error)
	CountAssignedBetween(ctx context.Context, agentIDs []uuid.UUID, from, to time.Time) (map[uuid.UUID]int, error)
	SetAssignment(ctx context.Context, orderID, agentID uuid.UUID, at time.Time, status enums.OrderStatus) error
	ClearAssignment(ctx context.Context, orderID uuid.UUID) error
	ListActiveProductAgentIDs(ctx context.Context, productNames []string) ([]uuid.UUID, error)
	CreateActivityLog(ctx context.Context, entry *models.ActivityLog) error
}

// Notifier receives fire-and-forget assignment events.
type Notifier interface {
	Enqueue(agentID uuid.UUID)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
