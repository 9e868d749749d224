package sync

import (
	"context"

	"gorm.io/gorm"

	"github.com/karimzem/fulfillment-backend/pkg/db/models"
)

// Repository defines the persistence operations feed ingestion needs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ExistingExternalIDs(ctx context.Context, store string, ids []int64) (map[int64]struct{}, error)
	FindCustomerByPhone(ctx context.Context, store, phone string) (*models.Customer, error)
	CreateCustomer(ctx context.Context, customer *models.Customer) error
	CreateOrder(ctx context.Context, order *models.Order) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds the GORM-backed ingestion repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ExistingExternalIDs(ctx context.Context, store string, ids []int64) (map[int64]struct{}, error) {
	out := make(map[int64]struct{}, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var found []int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("store_identifier = ? AND ecomanager_id IN ?", store, ids).
		Pluck("ecomanager_id", &found).Error
	if err != nil {
		return nil, err
	}
	for _, id := range found {
		out[id] = struct{}{}
	}
	return out, nil
}

func (r *repository) FindCustomerByPhone(ctx context.Context, store, phone string) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).
		Where("store_identifier = ? AND phone = ?", store, phone).
		First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repository) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}
