package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/shootpay-backend/pkg/logger"
)

const (
	defaultOutboxRetention = 30 * 24 * time.Hour
	defaultDLQRetention    = 90 * 24 * time.Hour
	defaultMaxAttempts     = 10
	retentionInterval      = 24 * time.Hour
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEventStore interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
	CountUnpublished(ctx context.Context, maxAttempts int) (int64, error)
}

type deadLetterStore interface {
	DeleteBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

// OutboxRetentionJobParams configure daily pruning of relayed escrow events.
type OutboxRetentionJobParams struct {
	Logger       *logger.Logger
	DB           txRunner
	Events       outboxEventStore
	DeadLetters  deadLetterStore
	Retention    time.Duration
	DLQRetention time.Duration
	MaxAttempts  int
	Interval     time.Duration
}

// NewOutboxRetentionJob deletes published and dead-lettered outbox rows once they leave
// their retention windows, in one transaction.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.DB == nil:
		return nil, fmt.Errorf("db runner required")
	case params.Events == nil:
		return nil, fmt.Errorf("outbox repository required")
	case params.DeadLetters == nil:
		return nil, fmt.Errorf("dlq repository required")
	}
	job := &outboxRetentionJob{
		logg:         params.Logger,
		db:           params.DB,
		events:       params.Events,
		deadLetters:  params.DeadLetters,
		retention:    params.Retention,
		dlqRetention: params.DLQRetention,
		maxAttempts:  params.MaxAttempts,
		interval:     params.Interval,
		now:          time.Now,
	}
	if job.retention <= 0 {
		job.retention = defaultOutboxRetention
	}
	if job.dlqRetention <= 0 {
		job.dlqRetention = defaultDLQRetention
	}
	if job.maxAttempts <= 0 {
		job.maxAttempts = defaultMaxAttempts
	}
	if job.interval <= 0 {
		job.interval = retentionInterval
	}
	return job, nil
}

type outboxRetentionJob struct {
	logg         *logger.Logger
	db           txRunner
	events       outboxEventStore
	deadLetters  deadLetterStore
	retention    time.Duration
	dlqRetention time.Duration
	maxAttempts  int
	interval     time.Duration
	now          func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Interval() time.Duration { return j.interval }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	eventCutoff := now.Add(-j.retention)
	dlqCutoff := now.Add(-j.dlqRetention)

	var events, deadLetters int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		if events, err = j.events.DeletePublishedBefore(ctx, tx, eventCutoff, j.maxAttempts); err != nil {
			return fmt.Errorf("prune outbox events: %w", err)
		}
		if deadLetters, err = j.deadLetters.DeleteBefore(ctx, tx, dlqCutoff); err != nil {
			return fmt.Errorf("prune dead letters: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	fields := map[string]any{
		"event_cutoff":         eventCutoff,
		"dlq_cutoff":           dlqCutoff,
		"events_deleted":       events,
		"dead_letters_deleted": deadLetters,
	}
	// Backlog figures are informational; a failed count never fails the run.
	if backlog, err := j.events.CountUnpublished(ctx, j.maxAttempts); err == nil {
		fields["unpublished"] = backlog
	} else {
		j.logg.Warn(j.logg.WithField(ctx, "error", err.Error()), "count unpublished escrow events")
	}
	if recent, err := j.deadLetters.CountSince(ctx, now.Add(-j.interval)); err == nil {
		fields["dead_lettered_last_interval"] = recent
	} else {
		j.logg.Warn(j.logg.WithField(ctx, "error", err.Error()), "count recent dead letters")
	}
	j.logg.Info(j.logg.WithFields(ctx, fields), "outbox retention cleanup complete")
	return nil
}
