package cron

import (
	"context"
	"errors"
	"time"

	"github.com/selleropsapp/sellerops-backend/pkg/db/models"
)

type rollupService interface {
	RollupYesterday(ctx context.Context) (*models.DailyMetric, error)
}

type snapshotReader interface {
	Get(ctx context.Context, date string) (*models.DailyMetric, error)
}

// DailyMetricsJob computes yesterday's sales rollup once per local day. The
// job ticks hourly and gates itself: it only fires after the configured local
// hour, and skips once the snapshot for the day already exists.
type DailyMetricsJob struct {
	rollup    rollupService
	snapshots snapshotReader
	location  *time.Location
	hour      int
	now       func() time.Time
}

// NewDailyMetricsJob wires the metrics rollup into the cron worker.
func NewDailyMetricsJob(rollup rollupService, snapshots snapshotReader, location *time.Location, hour int) (*DailyMetricsJob, error) {
	if rollup == nil {
		return nil, errors.New("rollup service required")
	}
	if snapshots == nil {
		return nil, errors.New("snapshot reader required")
	}
	if location == nil {
		return nil, errors.New("timezone location required")
	}
	if hour < 0 || hour > 23 {
		hour = 1
	}
	return &DailyMetricsJob{
		rollup:    rollup,
		snapshots: snapshots,
		location:  location,
		hour:      hour,
		now:       time.Now,
	}, nil
}

func (j *DailyMetricsJob) Name() string { return "daily-metrics" }

func (j *DailyMetricsJob) Interval() time.Duration { return time.Hour }

func (j *DailyMetricsJob) Run(ctx context.Context) error {
	local := j.now().In(j.location)
	if local.Hour() < j.hour {
		return nil
	}

	dateKey := local.AddDate(0, 0, -1).Format("2006-01-02")
	existing, err := j.snapshots.Get(ctx, dateKey)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	_, err = j.rollup.RollupYesterday(ctx)
	return err
}
