package cron

import (
	"context"
	"errors"
	"time"
)

type syncRunner interface {
	Run(ctx context.Context) (int, error)
}

// OrderSyncJob pulls recently updated marketplace orders on a short cadence.
type OrderSyncJob struct {
	engine   syncRunner
	interval time.Duration
}

// NewOrderSyncJob wires the sync engine into the cron worker.
func NewOrderSyncJob(engine syncRunner, interval time.Duration) (*OrderSyncJob, error) {
	if engine == nil {
		return nil, errors.New("sync engine required")
	}
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &OrderSyncJob{engine: engine, interval: interval}, nil
}

func (j *OrderSyncJob) Name() string { return "order-sync" }

func (j *OrderSyncJob) Interval() time.Duration { return j.interval }

func (j *OrderSyncJob) Run(ctx context.Context) error {
	_, err := j.engine.Run(ctx)
	return err
}
