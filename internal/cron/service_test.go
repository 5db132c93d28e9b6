package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/angelmondragon/shootpay-backend/pkg/logger"
)

type fakeLock struct {
	held      bool
	extends   int
	loseAfter int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Extend(context.Context) error {
	f.extends++
	if f.loseAfter > 0 && f.extends >= f.loseAfter {
		return ErrLockLost
	}
	return nil
}

func (f *fakeLock) Release(context.Context) error { f.held = false; return nil }

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

type intervalJob struct {
	testJob
	every time.Duration
}

func (j *intervalJob) Interval() time.Duration { return j.every }

func newTestService(t *testing.T, lock Lock, jobs ...Job) *Service {
	t.Helper()
	service, err := NewService(ServiceParams{
		Logger: logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard}),
		Jobs:   jobs,
		Lock:   lock,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return service
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	success := &testJob{name: "auto-confirm"}
	failure := &testJob{name: "outbox-retention", err: errors.New("boom")}
	lock := &fakeLock{}
	service := newTestService(t, lock, success, failure)

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if success.runs != 1 || failure.runs != 1 {
		t.Fatalf("expected both jobs to run once, got %d and %d", success.runs, failure.runs)
	}
	if lock.extends != 2 {
		t.Fatalf("expected lease extended after each job, got %d", lock.extends)
	}
	if lock.held {
		t.Fatal("lock should be released after the cycle")
	}
}

func TestServiceSkipsCycleWhenLockHeld(t *testing.T) {
	job := &testJob{name: "auto-confirm"}
	service := newTestService(t, &fakeLock{held: true}, job)

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("job must not run without the lock, ran %d", job.runs)
	}
}

func TestServiceStopsCycleWhenLockLost(t *testing.T) {
	first := &testJob{name: "auto-confirm"}
	second := &testJob{name: "outbox-retention"}
	service := newTestService(t, &fakeLock{loseAfter: 1}, first, second)

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("lost lock should not be reported as a failure: %v", err)
	}
	if first.runs != 1 || second.runs != 0 {
		t.Fatalf("expected only the first job to run, got %d and %d", first.runs, second.runs)
	}
}

func TestServiceRunCycleHonorsJobInterval(t *testing.T) {
	hourly := &intervalJob{testJob: testJob{name: "hourly"}, every: time.Hour}
	everyTick := &testJob{name: "tick"}
	service := newTestService(t, &fakeLock{}, hourly, everyTick)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := service.runCycle(ctx); err != nil {
			t.Fatalf("run cycle: %v", err)
		}
		now = now.Add(10 * time.Minute)
	}
	if hourly.runs != 1 {
		t.Fatalf("expected hourly job to run once, ran %d", hourly.runs)
	}
	if everyTick.runs != 3 {
		t.Fatalf("expected tick job to run 3 times, ran %d", everyTick.runs)
	}

	now = now.Add(time.Hour)
	if err := service.runCycle(ctx); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if hourly.runs != 2 {
		t.Fatalf("expected hourly job to run again after interval, ran %d", hourly.runs)
	}
}

func TestRegisterIgnoresNilJobs(t *testing.T) {
	service := newTestService(t, &fakeLock{}, nil, &testJob{name: "a"})
	service.Register(nil)
	if len(service.jobs) != 1 {
		t.Fatalf("expected one job, got %d", len(service.jobs))
	}
}
