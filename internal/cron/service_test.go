package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/magisurprise/backend/pkg/logger"
)

type fakeLock struct {
	held     bool
	acquires int
	releases int
	// releaseCtxErr is the ctx error seen by the last Release.
	releaseCtxErr error
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	f.acquires++
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(ctx context.Context) error {
	f.releases++
	f.releaseCtxErr = ctx.Err()
	f.held = false
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
	// onRun runs inside Run, before err is returned.
	onRun func()
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	if t.onRun != nil {
		t.onRun()
	}
	return t.err
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newCronService(t *testing.T, lock Lock, clock *fakeClock, jobs ...Job) *Service {
	t.Helper()
	registry, err := NewRegistry(jobs...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	service, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: registry,
		Lock:     lock,
		Now:      clock.Now,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return service
}

func TestRunDueRunsAllJobsEvenOnFailure(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)}
	refresh := &testJob{name: JobCatalogRefresh, err: errors.New("redis down")}
	retention := &testJob{name: JobOutboxRetention}
	lock := &fakeLock{}
	service := newCronService(t, lock, clock, refresh, retention)

	ran, err := service.runDue(context.Background())
	if err != nil {
		t.Fatalf("runDue: %v", err)
	}
	if ran != 2 || refresh.runs != 1 || retention.runs != 1 {
		t.Fatalf("expected both jobs to run once, got ran=%d refresh=%d retention=%d", ran, refresh.runs, retention.runs)
	}
	if lock.held || lock.releases != 1 {
		t.Fatalf("lock must be released after the tick")
	}

	// The failed refresh retries next tick; retention waits a day.
	clock.now = clock.now.Add(15 * time.Minute)
	refresh.err = nil
	if _, err := service.runDue(context.Background()); err != nil {
		t.Fatalf("runDue: %v", err)
	}
	if refresh.runs != 2 || retention.runs != 1 {
		t.Fatalf("unexpected runs refresh=%d retention=%d", refresh.runs, retention.runs)
	}
}

func TestRunDueSkipsLockWhenNothingIsDue(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)}
	retention := &testJob{name: JobOutboxRetention}
	lock := &fakeLock{}
	service := newCronService(t, lock, clock, retention)

	if _, err := service.runDue(context.Background()); err != nil {
		t.Fatalf("runDue: %v", err)
	}
	clock.now = clock.now.Add(time.Hour)
	ran, err := service.runDue(context.Background())
	if err != nil {
		t.Fatalf("runDue: %v", err)
	}
	if ran != 0 || lock.acquires != 1 {
		t.Fatalf("idle tick must not touch the lock: ran=%d acquires=%d", ran, lock.acquires)
	}
}

func TestRunDueYieldsToLockHolder(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	job := &testJob{name: JobCatalogRefresh}
	service := newCronService(t, &fakeLock{held: true}, clock, job)

	ran, err := service.runDue(context.Background())
	if err != nil {
		t.Fatalf("runDue: %v", err)
	}
	if ran != 0 || job.runs != 0 {
		t.Fatalf("job must not run without the lock")
	}
}

func TestRunDueReleasesLockAfterShutdown(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	ctx, cancel := context.WithCancel(context.Background())
	first := &testJob{name: JobCatalogRefresh, onRun: cancel}
	second := &testJob{name: JobOutboxRetention}
	lock := &fakeLock{}
	service := newCronService(t, lock, clock, first, second)

	if _, err := service.runDue(ctx); err != nil {
		t.Fatalf("runDue: %v", err)
	}
	if second.runs != 0 {
		t.Fatal("jobs after shutdown must not start")
	}
	if lock.releases != 1 || lock.releaseCtxErr != nil {
		t.Fatalf("lock must be released with a live context, releases=%d err=%v", lock.releases, lock.releaseCtxErr)
	}
}

func TestNewServiceRequiresRegistry(t *testing.T) {
	if _, err := NewService(ServiceParams{Logger: logger.Nop(), Lock: &fakeLock{}}); err == nil {
		t.Fatal("expected missing registry to be rejected")
	}
}
