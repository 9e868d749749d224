package cron

import (
	"context"
	"fmt"

	"github.com/karimzem/fulfillment-backend/internal/shipping"
	"github.com/karimzem/fulfillment-backend/pkg/logger"
)

// ShippingJobParams configure the courier reconciliation job.
type ShippingJobParams struct {
	Logger   *logger.Logger
	Shipping shipping.Service
}

// NewShippingJob builds the cron job that refreshes courier statuses.
func NewShippingJob(params ShippingJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Shipping == nil {
		return nil, fmt.Errorf("shipping service required")
	}
	return &shippingJob{logg: params.Logger, shipping: params.Shipping}, nil
}

type shippingJob struct {
	logg     *logger.Logger
	shipping shipping.Service
}

func (j *shippingJob) Name() string { return "shipping-refresh" }

func (j *shippingJob) Run(ctx context.Context) error {
	result, err := j.shipping.Refresh(ctx)
	if err != nil {
		return err
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"checked":   result.Checked,
		"delivered": result.Delivered,
	})
	j.logg.Info(logCtx, "shipping reconciliation loop complete")
	return nil
}
