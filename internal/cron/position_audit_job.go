package cron

import (
	"context"
	"fmt"

	"github.com/karimzem/fulfillment-backend/internal/syncpos"
	"github.com/karimzem/fulfillment-backend/pkg/enums"
	"github.com/karimzem/fulfillment-backend/pkg/logger"
)

// positionAuditor is the slice of the position store the audit job uses.
type positionAuditor interface {
	Statuses(ctx context.Context, stores []string) []syncpos.Status
}

// PositionAuditJobParams configure the position durability audit.
type PositionAuditJobParams struct {
	Logger    *logger.Logger
	Positions positionAuditor
	Stores    []string
}

// NewPositionAuditJob builds the cron job that checks every store's sync
// position. Resolving a position also rehydrates the degraded tiers, so the
// audit doubles as proactive repair after a cache flush.
func NewPositionAuditJob(params PositionAuditJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Positions == nil {
		return nil, fmt.Errorf("position store required")
	}
	return &positionAuditJob{
		logg:      params.Logger,
		positions: params.Positions,
		stores:    params.Stores,
	}, nil
}

type positionAuditJob struct {
	logg      *logger.Logger
	positions positionAuditor
	stores    []string
}

func (j *positionAuditJob) Name() string { return "position-audit" }

func (j *positionAuditJob) Run(ctx context.Context) error {
	statuses := j.positions.Statuses(ctx, j.stores)

	byHealth := make(map[enums.PositionHealth]int, 4)
	for _, status := range statuses {
		byHealth[status.Health]++
		if status.Health == enums.PositionHealthReset || status.Health == enums.PositionHealthMissing {
			j.logg.Warn(j.logg.WithStore(ctx, status.Store), "sync position lost; store would re-import from page one")
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"healthy":    byHealth[enums.PositionHealthHealthy],
		"missing":    byHealth[enums.PositionHealthMissing],
		"reset":      byHealth[enums.PositionHealthReset],
		"calculated": byHealth[enums.PositionHealthCalculated],
	})
	j.logg.Info(logCtx, "position audit complete")
	return nil
}
