package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/selleropsapp/sellerops-backend/pkg/logger"
	"github.com/selleropsapp/sellerops-backend/pkg/metrics"
	"github.com/selleropsapp/sellerops-backend/pkg/redis"
)

const minInterval = time.Minute

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Locks    redis.Locker
	Env      string
	Metrics  *metrics.CronJobMetrics
}

// Service runs each registered job on its own cadence. A per-job redis lock
// keeps multiple workers (or an api-triggered manual run) from overlapping.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	locks    redis.Locker
	env      string
	metrics  *metrics.CronJobMetrics
}

// NewService builds a cron service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Locks == nil {
		return nil, fmt.Errorf("lock store required")
	}
	if params.Env == "" {
		return nil, fmt.Errorf("environment name required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		locks:    params.Locks,
		env:      params.Env,
		metrics:  params.Metrics,
	}, nil
}

// Run starts one ticker per job and blocks until the context is canceled.
// Every job also fires once at startup.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var wg sync.WaitGroup
	for _, job := range s.registry.Jobs() {
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			s.runLoop(ctx, job)
		}(job)
	}
	wg.Wait()
	return ctx.Err()
}

func (s *Service) runLoop(ctx context.Context, job Job) {
	interval := job.Interval()
	if interval < minInterval {
		interval = minInterval
	}

	s.RunJob(ctx, job)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunJob(ctx, job)
		}
	}
}

// RunJob executes one guarded run of the job. The lock TTL matches the job's
// cadence so a crashed holder frees the slot by the next tick.
func (s *Service) RunJob(ctx context.Context, job Job) {
	jobCtx := s.logg.WithJob(ctx, job.Name())

	ttl := job.Interval()
	if ttl < minInterval {
		ttl = minInterval
	}
	key := s.locks.CronLockKey(s.env, job.Name())
	holder := uuid.NewString()

	locked, err := s.locks.AcquireLock(jobCtx, key, holder, ttl)
	if err != nil {
		s.logg.Error(jobCtx, "lock acquire failed", err)
		s.recordFailure(job.Name())
		return
	}
	if !locked {
		s.logg.Info(jobCtx, "another worker holds the job lock; skipping")
		s.recordSkip(job.Name())
		return
	}
	defer func() {
		if relErr := s.locks.ReleaseLock(jobCtx, key); relErr != nil {
			s.logg.Error(jobCtx, "failed to release job lock", relErr)
		}
	}()

	s.logg.Info(jobCtx, "job start")
	start := time.Now()
	err = job.Run(jobCtx)
	duration := time.Since(start)
	s.observeDuration(job.Name(), duration)

	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		s.recordFailure(job.Name())
		return
	}
	s.logg.Info(jobCtx, "job completed")
	s.recordSuccess(job.Name())
}

func (s *Service) observeDuration(job string, duration time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveDuration(job, duration)
}

func (s *Service) recordSuccess(job string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncSuccess(job)
}

func (s *Service) recordFailure(job string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncFailure(job)
}

func (s *Service) recordSkip(job string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncSkipped(job)
}
