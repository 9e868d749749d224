package cron

import (
	"context"
	"fmt"

	"github.com/karimzem/fulfillment-backend/internal/assignment"
	"github.com/karimzem/fulfillment-backend/pkg/logger"
)

// AutoAssignJobParams configure the automatic distribution job.
type AutoAssignJobParams struct {
	Logger     *logger.Logger
	Assignment assignment.Service
}

// NewAutoAssignJob builds the cron job that distributes recent unassigned
// orders over the agent pool.
func NewAutoAssignJob(params AutoAssignJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Assignment == nil {
		return nil, fmt.Errorf("assignment service required")
	}
	return &autoAssignJob{logg: params.Logger, assignment: params.Assignment}, nil
}

type autoAssignJob struct {
	logg       *logger.Logger
	assignment assignment.Service
}

func (j *autoAssignJob) Name() string { return "auto-assign" }

func (j *autoAssignJob) Run(ctx context.Context) error {
	batch, err := j.assignment.AutoAssignUnassigned(ctx)
	if err != nil {
		return err
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"processed": batch.Processed,
		"succeeded": batch.Succeeded,
		"failed":    batch.Failed,
	})
	j.logg.Info(logCtx, "auto-assignment loop complete")
	return nil
}
