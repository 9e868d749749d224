package shipping

import (
	"context"
	"fmt"

	"github.com/karimzem/fulfillment-backend/pkg/config"
	pkgerrors "github.com/karimzem/fulfillment-backend/pkg/errors"
	"github.com/karimzem/fulfillment-backend/pkg/logger"
	"github.com/karimzem/fulfillment-backend/pkg/maystro"
)

// courierClient is the slice of the Maystro client reconciliation uses.
type courierClient interface {
	ShipmentStatus(ctx context.Context, reference string) (string, error)
}

// Result reports one shipping reconciliation run.
type Result struct {
	Checked   int `json:"checked"`
	Updated   int `json:"updated"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
}

// Service reconciles courier-side shipment statuses into local orders.
type Service interface {
	Refresh(ctx context.Context) (*Result, error)
}

// ServiceParams configure the reconciliation service.
type ServiceParams struct {
	Logger  *logger.Logger
	Repo    Repository
	Courier courierClient
	Config  config.SyncConfig
}

type service struct {
	logg    *logger.Logger
	repo    Repository
	courier courierClient
	limit   int
}

// NewService builds the shipping reconciliation service.
func NewService(params ServiceParams) (Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	if params.Courier == nil {
		return nil, fmt.Errorf("courier client required")
	}
	limit := params.Config.ShippingRefresh
	if limit <= 0 {
		limit = 200
	}
	return &service{
		logg:    params.Logger,
		repo:    params.Repo,
		courier: params.Courier,
		limit:   limit,
	}, nil
}

// Refresh pulls the courier status for every open order and writes back
// changes, closing orders the courier has already delivered.
func (s *service) Refresh(ctx context.Context) (*Result, error) {
	orders, err := s.repo.ListOpenWithReference(ctx, s.limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list open orders")
	}

	result := &Result{}
	for _, order := range orders {
		if ctx.Err() != nil {
			break
		}
		result.Checked++

		status, err := s.courier.ShipmentStatus(ctx, order.Reference)
		if err != nil {
			if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
				// Not shipped yet.
				continue
			}
			s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "courier status fetch failed", err)
			result.Failed++
			continue
		}
		if status == order.ShippingStatus {
			continue
		}

		if maystro.IsDelivered(status) {
			if err := s.repo.MarkDelivered(ctx, order.ID, status); err != nil {
				s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "delivery write failed", err)
				result.Failed++
				continue
			}
			result.Delivered++
		} else {
			if err := s.repo.UpdateShippingStatus(ctx, order.ID, status); err != nil {
				s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "shipping status write failed", err)
				result.Failed++
				continue
			}
		}
		result.Updated++
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"checked":   result.Checked,
		"updated":   result.Updated,
		"delivered": result.Delivered,
		"failed":    result.Failed,
	}), "shipping refresh finished")
	return result, nil
}
