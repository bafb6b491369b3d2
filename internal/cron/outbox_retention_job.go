package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/magisurprise/backend/pkg/logger"
)

const (
	outboxRetentionDays = 30
	dlqRetentionDays    = 90
	outboxMinAttempts   = 1
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type OutboxRetentionJobParams struct {
	Logger *logger.Logger
	DB     txRunner
	Events outboxRetentionRepo
	// DeadLetters is optional; without it only outbox rows are purged.
	DeadLetters  dlqRetentionRepo
	Retention    int
	DLQRetention int
	// MinAttempts should match the publisher's max attempts so exhausted
	// rows (already copied to the DLQ) count as finished.
	MinAttempts int
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

type dlqRetentionRepo interface {
	DeleteFailedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = outboxRetentionDays
	}
	dlqRetention := params.DLQRetention
	if dlqRetention <= 0 {
		dlqRetention = dlqRetentionDays
	}
	minAttempts := params.MinAttempts
	if minAttempts <= 0 {
		minAttempts = outboxMinAttempts
	}
	return &outboxRetentionJob{
		logg:         params.Logger,
		db:           params.DB,
		events:       params.Events,
		deadLetters:  params.DeadLetters,
		retention:    retention,
		dlqRetention: dlqRetention,
		minAttempts:  minAttempts,
		now:          time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg         *logger.Logger
	db           txRunner
	events       outboxRetentionRepo
	deadLetters  dlqRetentionRepo
	retention    int
	dlqRetention int
	minAttempts  int
	now          func() time.Time
}

func (j *outboxRetentionJob) Name() string { return JobOutboxRetention }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.Add(-days(j.retention))
	dlqCutoff := now.Add(-days(j.dlqRetention))

	var eventsDeleted, deadDeleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.events.DeletePublishedBefore(ctx, tx, cutoff, j.minAttempts)
		if err != nil {
			return fmt.Errorf("outbox events: %w", err)
		}
		eventsDeleted = rows
		if j.deadLetters == nil {
			return nil
		}
		rows, err = j.deadLetters.DeleteFailedBefore(ctx, tx, dlqCutoff)
		if err != nil {
			return fmt.Errorf("dead letters: %w", err)
		}
		deadDeleted = rows
		return nil
	})
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":               cutoff,
		"dlq_cutoff":           dlqCutoff,
		"min_attempts":         j.minAttempts,
		"events_deleted":       eventsDeleted,
		"dead_letters_deleted": deadDeleted,
	})
	j.logg.Info(logCtx, "outbox retention cleanup complete")
	return nil
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}
