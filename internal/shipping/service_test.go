package shipping

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karimzem/fulfillment-backend/pkg/config"
	"github.com/karimzem/fulfillment-backend/pkg/db/models"
	"github.com/karimzem/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/karimzem/fulfillment-backend/pkg/errors"
	"github.com/karimzem/fulfillment-backend/pkg/logger"
)

type stubShippingRepo struct {
	open      []models.Order
	updated   map[uuid.UUID]string
	delivered map[uuid.UUID]string
}

func newStubShippingRepo(open ...models.Order) *stubShippingRepo {
	return &stubShippingRepo{
		open:      open,
		updated:   make(map[uuid.UUID]string),
		delivered: make(map[uuid.UUID]string),
	}
}

func (r *stubShippingRepo) ListOpenWithReference(ctx context.Context, limit int) ([]models.Order, error) {
	if limit > 0 && len(r.open) > limit {
		return r.open[:limit], nil
	}
	return r.open, nil
}

func (r *stubShippingRepo) UpdateShippingStatus(ctx context.Context, orderID uuid.UUID, shippingStatus string) error {
	r.updated[orderID] = shippingStatus
	return nil
}

func (r *stubShippingRepo) MarkDelivered(ctx context.Context, orderID uuid.UUID, shippingStatus string) error {
	r.delivered[orderID] = shippingStatus
	return nil
}

type stubCourier struct {
	statuses map[string]string
	errs     map[string]error
}

func (c *stubCourier) ShipmentStatus(ctx context.Context, reference string) (string, error) {
	if err, ok := c.errs[reference]; ok {
		return "", err
	}
	return c.statuses[reference], nil
}

func newTestShipping(t *testing.T, repo Repository, courier courierClient) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Repo:    repo,
		Courier: courier,
		Config:  config.SyncConfig{ShippingRefresh: 50},
	})
	require.NoError(t, err)
	return svc
}

func shippedOrder(reference, shippingStatus string) models.Order {
	return models.Order{
		ID:             uuid.New(),
		Reference:      reference,
		Status:         enums.OrderStatusShipped,
		ShippingStatus: shippingStatus,
	}
}

func TestRefreshMarksDeliveredOrders(t *testing.T) {
	delivered := shippedOrder("REF-1", "EN_COURS")
	moving := shippedOrder("REF-2", "EN_COURS")
	unchanged := shippedOrder("REF-3", "EN_COURS")

	repo := newStubShippingRepo(delivered, moving, unchanged)
	courier := &stubCourier{statuses: map[string]string{
		"REF-1": "LIVRE",
		"REF-2": "EN_LIVRAISON",
		"REF-3": "EN_COURS",
	}}

	svc := newTestShipping(t, repo, courier)

	result, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Checked)
	assert.Equal(t, 2, result.Updated)
	assert.Equal(t, 1, result.Delivered)

	assert.Equal(t, "LIVRE", repo.delivered[delivered.ID])
	assert.Equal(t, "EN_LIVRAISON", repo.updated[moving.ID])
	assert.NotContains(t, repo.updated, unchanged.ID)
}

func TestRefreshSkipsUnshippedAndContinuesPastErrors(t *testing.T) {
	unshipped := shippedOrder("REF-1", "")
	broken := shippedOrder("REF-2", "")
	fine := shippedOrder("REF-3", "")

	repo := newStubShippingRepo(unshipped, broken, fine)
	courier := &stubCourier{
		statuses: map[string]string{"REF-3": "EN_COURS"},
		errs: map[string]error{
			"REF-1": pkgerrors.New(pkgerrors.CodeNotFound, "shipment not found"),
			"REF-2": pkgerrors.New(pkgerrors.CodeDependency, "courier returned status 500"),
		},
	}

	svc := newTestShipping(t, repo, courier)

	result, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Checked)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, "EN_COURS", repo.updated[fine.ID])
}
