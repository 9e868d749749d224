package cron

import (
	"context"
	"fmt"

	ordersync "github.com/karimzem/fulfillment-backend/internal/sync"
	"github.com/karimzem/fulfillment-backend/pkg/logger"
)

// SyncJobParams configure the feed ingestion job.
type SyncJobParams struct {
	Logger *logger.Logger
	Sync   ordersync.Service
}

// NewSyncJob builds the cron job that imports new feed orders for every
// active store.
func NewSyncJob(params SyncJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sync == nil {
		return nil, fmt.Errorf("sync service required")
	}
	return &syncJob{logg: params.Logger, sync: params.Sync}, nil
}

type syncJob struct {
	logg *logger.Logger
	sync ordersync.Service
}

func (j *syncJob) Name() string { return "order-sync" }

func (j *syncJob) Run(ctx context.Context) error {
	results, err := j.sync.SyncAll(ctx)
	imported, failed := 0, 0
	for _, result := range results {
		imported += result.Imported
		failed += result.Failed
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"stores":   len(results),
		"imported": imported,
		"failed":   failed,
	})
	j.logg.Info(logCtx, "feed ingestion loop complete")
	return err
}
