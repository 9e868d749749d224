package syncpos

import (
	"context"

	"gorm.io/gorm"

	"github.com/karimzem/fulfillment-backend/internal/repo"
	"github.com/karimzem/fulfillment-backend/pkg/db/models"
)

// Repository reads the imported-order facts needed to rebuild a position.
type Repository interface {
	HighestExternalID(ctx context.Context, store string) (int64, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds the syncpos repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

// HighestExternalID returns the largest feed order id already imported for the
// store, or zero when nothing has been imported yet.
func (r *repository) HighestExternalID(ctx context.Context, store string) (int64, error) {
	var highest *int64
	err := r.DB(ctx).
		Model(&models.Order{}).
		Where("store_identifier = ? AND ecomanager_id IS NOT NULL", store).
		Select("MAX(ecomanager_id)").
		Scan(&highest).Error
	if err != nil {
		return 0, err
	}
	if highest == nil {
		return 0, nil
	}
	return *highest, nil
}
