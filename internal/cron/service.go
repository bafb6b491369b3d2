package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/magisurprise/backend/pkg/logger"
	"github.com/magisurprise/backend/pkg/metrics"
)

const defaultInterval = 15 * time.Minute

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Service ticks on Interval and, while holding the worker lock, runs every
// job whose cadence has elapsed.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.CronJobMetrics
	interval time.Duration
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	if params.Registry == nil {
		return nil, fmt.Errorf("registry required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		logg:     params.Logger,
		registry: params.Registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
		now:      now,
	}, nil
}

// Run ticks until ctx is canceled. The first tick fires immediately.
func (s *Service) Run(ctx context.Context) error {
	ctx = s.logg.WithField(ctx, "jobs", s.registry.Names())
	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service context canceled")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	ran, err := s.runDue(ctx)
	if err != nil {
		s.logg.Error(ctx, "scheduled run failed", err)
		return
	}
	if ran > 0 {
		s.logg.Info(s.logg.WithField(ctx, "ran", ran), "scheduled run complete")
	}
}

// runDue returns how many jobs ran. Nothing runs when another worker holds
// the lock or no cadence has elapsed.
func (s *Service) runDue(ctx context.Context) (int, error) {
	due := s.registry.Due(s.now())
	if len(due) == 0 {
		return 0, nil
	}

	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.metrics.IncLockContended()
		s.logg.Info(ctx, "another cron worker holds the lock; skipping tick")
		return 0, nil
	}
	defer func() {
		// Release even when shutdown canceled ctx mid-run.
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "failed to release cron lock", err)
		}
	}()

	for _, job := range due {
		if ctx.Err() != nil {
			break
		}
		s.runJob(ctx, job)
	}
	return len(due), nil
}

func (s *Service) runJob(ctx context.Context, job Job) {
	name := job.Name()
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": name, "event": "cron.job"})
	s.logg.Info(jobCtx, "job start")

	start := s.now()
	err := job.Run(jobCtx)
	elapsed := s.now().Sub(start)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", elapsed.Milliseconds())
	s.metrics.ObserveDuration(name, elapsed)

	if err != nil {
		s.logg.Error(jobCtx, "job failed; retrying next tick", err)
		s.metrics.IncFailure(name)
		return
	}
	s.registry.Succeeded(name, start)
	s.logg.Info(jobCtx, "job completed")
	s.metrics.IncSuccess(name, s.now())
}
