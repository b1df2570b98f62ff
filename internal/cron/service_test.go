package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/propertyloyalty/points-backend/pkg/logger"
	"github.com/propertyloyalty/points-backend/pkg/metrics"
)

type fakeLock struct {
	held     bool
	acquires int
	releases int
	err      error
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.acquires++
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.releases++
	f.held = false
	return nil
}

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

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func TestRunOnce_RunsEveryJobAndCombinesFailures(t *testing.T) {
	ok := &testJob{name: "ok"}
	failing := &testJob{name: "failing", err: errors.New("boom")}
	registry, err := NewRegistry(failing, ok)
	require.NoError(t, err)
	lock := &fakeLock{}

	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.NewRegistry()),
	})
	require.NoError(t, err)

	err = svc.RunOnce(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "failing: boom")
	require.Equal(t, 1, ok.runs)
	require.Equal(t, 1, failing.runs)
	require.Equal(t, 1, lock.releases)
	require.False(t, lock.held)
}

func TestRunOnce_SkipsWhenLockHeldElsewhere(t *testing.T) {
	job := &testJob{name: "job"}
	registry, err := NewRegistry(job)
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: registry,
		Lock:     &fakeLock{held: true},
	})
	require.NoError(t, err)

	require.NoError(t, svc.RunOnce(context.Background()))
	require.Zero(t, job.runs)
}

func TestRunOnce_LockErrorAborts(t *testing.T) {
	job := &testJob{name: "job"}
	registry, err := NewRegistry(job)
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: registry,
		Lock:     &fakeLock{err: errors.New("redis down")},
	})
	require.NoError(t, err)

	require.Error(t, svc.RunOnce(context.Background()))
	require.Zero(t, job.runs)
}

func TestRun_StopsOnCancel(t *testing.T) {
	job := &testJob{name: "job"}
	registry, err := NewRegistry(job)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{Logger: testLogger(), Registry: registry, Lock: NewLocalLock()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, svc.Run(ctx), context.Canceled)
	require.Equal(t, 1, job.runs)
}

func TestNewService_RequiresCollaborators(t *testing.T) {
	_, err := NewService(ServiceParams{Lock: NewLocalLock()})
	require.Error(t, err)
	_, err = NewService(ServiceParams{Logger: testLogger()})
	require.Error(t, err)
}

type funcJob struct {
	name string
	run  func(context.Context) error
}

func (f funcJob) Name() string                  { return f.name }
func (f funcJob) Run(ctx context.Context) error { return f.run(ctx) }

func TestRunOnce_PanickingJobDoesNotStopOthers(t *testing.T) {
	after := &testJob{name: "after"}
	registry, err := NewRegistry(funcJob{name: "explodes", run: func(context.Context) error { panic("nil map") }}, after)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{Logger: testLogger(), Registry: registry, Lock: NewLocalLock()})
	require.NoError(t, err)

	err = svc.RunOnce(context.Background())
	require.ErrorContains(t, err, "explodes: panic: nil map")
	require.Equal(t, 1, after.runs)
}

func TestRunOnce_JobTimeoutBoundsEachJob(t *testing.T) {
	registry, err := NewRegistry(funcJob{name: "slow", run: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Logger:     testLogger(),
		Registry:   registry,
		Lock:       NewLocalLock(),
		JobTimeout: 10 * time.Millisecond,
	})
	require.NoError(t, err)

	require.ErrorIs(t, svc.RunOnce(context.Background()), context.DeadlineExceeded)
}

func TestParseSchedule(t *testing.T) {
	from := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)

	every, err := ParseSchedule("", 6*time.Hour)
	require.NoError(t, err)
	require.True(t, every.Next(from).Equal(from.Add(6*time.Hour)))

	fallback, err := ParseSchedule("", 0)
	require.NoError(t, err)
	require.True(t, fallback.Next(from).Equal(from.Add(defaultInterval)))

	nightly, err := ParseSchedule("CRON_TZ=UTC 30 3 * * *", 0)
	require.NoError(t, err)
	require.True(t, nightly.Next(from).Equal(time.Date(2026, 10, 19, 3, 30, 0, 0, time.UTC)))

	_, err = ParseSchedule("every tuesday", 0)
	require.Error(t, err)
}
