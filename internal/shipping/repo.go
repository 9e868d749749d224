package shipping

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/karimzem/fulfillment-backend/pkg/db/models"
	"github.com/karimzem/fulfillment-backend/pkg/enums"
)

// Repository defines the persistence operations shipping reconciliation needs.
type Repository interface {
	ListOpenWithReference(ctx context.Context, limit int) ([]models.Order, error)
	UpdateShippingStatus(ctx context.Context, orderID uuid.UUID, shippingStatus string) error
	MarkDelivered(ctx context.Context, orderID uuid.UUID, shippingStatus string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds the GORM-backed shipping repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListOpenWithReference(ctx context.Context, limit int) ([]models.Order, error) {
	var orders []models.Order
	q := r.db.WithContext(ctx).
		Where("reference <> '' AND status NOT IN ?", []enums.OrderStatus{
			enums.OrderStatusDelivered,
			enums.OrderStatusReturned,
			enums.OrderStatusCancelled,
		}).
		Order("updated_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) UpdateShippingStatus(ctx context.Context, orderID uuid.UUID, shippingStatus string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("shipping_status", shippingStatus).Error
}

func (r *repository) MarkDelivered(ctx context.Context, orderID uuid.UUID, shippingStatus string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"shipping_status": shippingStatus,
			"status":          enums.OrderStatusDelivered,
		}).Error
}
