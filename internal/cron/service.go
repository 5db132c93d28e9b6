package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/shootpay-backend/pkg/logger"
	"github.com/angelmondragon/shootpay-backend/pkg/metrics"
)

const defaultTick = time.Minute

// Job is a unit of periodic settlement maintenance.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// scheduled jobs run at most once per Interval; other jobs run every tick.
type scheduled interface {
	Interval() time.Duration
}

type ServiceParams struct {
	Logger   *logger.Logger
	Jobs     []Job
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
}

// Service wakes every tick and, while holding the cluster-wide lock, runs each job whose
// own interval has elapsed. The lease is extended after every job so a long sweep does
// not let a second replica start the same work.
type Service struct {
	logg    *logger.Logger
	jobs    []Job
	lock    Lock
	metrics *metrics.CronJobMetrics
	tick    time.Duration
	now     func() time.Time
	lastRun map[string]time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	svc := &Service{
		logg:    params.Logger,
		lock:    params.Lock,
		metrics: params.Metrics,
		tick:    params.Interval,
		now:     time.Now,
		lastRun: map[string]time.Time{},
	}
	if svc.tick <= 0 {
		svc.tick = defaultTick
	}
	for _, job := range params.Jobs {
		svc.Register(job)
	}
	return svc, nil
}

// Register appends a job; jobs run in registration order.
func (s *Service) Register(job Job) {
	if job != nil {
		s.jobs = append(s.jobs, job)
	}
}

// Run executes a cycle immediately and then once per tick until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		if err := s.runCycle(ctx); err != nil {
			s.logg.Error(ctx, "scheduled run failed", err)
		}
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service context canceled")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return err
	}
	if !locked {
		s.metrics.IncSkippedCycle()
		s.logg.Info(ctx, "another cron instance holds the lock; skipping cycle")
		return nil
	}
	defer func() {
		if err := s.lock.Release(ctx); err != nil {
			s.logg.Error(ctx, "failed to release cron lock", err)
		}
	}()

	for _, job := range s.jobs {
		if !s.due(job) {
			continue
		}
		s.runJob(ctx, job)
		if err := s.lock.Extend(ctx); err != nil {
			if errors.Is(err, ErrLockLost) {
				s.logg.Warn(ctx, "cron lock lost mid-cycle; remaining jobs deferred")
				return nil
			}
			return err
		}
	}
	return nil
}

func (s *Service) due(job Job) bool {
	now := s.now()
	if sched, ok := job.(scheduled); ok {
		if last, ran := s.lastRun[job.Name()]; ran && now.Sub(last) < sched.Interval() {
			return false
		}
	}
	s.lastRun[job.Name()] = now
	return true
}

func (s *Service) runJob(ctx context.Context, job Job) {
	name := job.Name()
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": name, "event": "cron.job"})
	start := time.Now()
	err := job.Run(jobCtx)
	elapsed := time.Since(start)

	s.metrics.ObserveRun(name, elapsed, err)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		return
	}
	s.logg.Info(jobCtx, "job completed")
}
