package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	robfig "github.com/robfig/cron/v3"
	"go.uber.org/multierr"

	"github.com/propertyloyalty/points-backend/pkg/logger"
	"github.com/propertyloyalty/points-backend/pkg/metrics"
)

const defaultInterval = 24 * time.Hour

// ServiceParams configure the cron service. Schedule wins over Interval when both
// are set. Metrics may be nil; JobTimeout zero leaves jobs bounded only by the
// parent context.
type ServiceParams struct {
	Logger     *logger.Logger
	Registry   *Registry
	Lock       Lock
	Metrics    *metrics.CronJobMetrics
	Schedule   robfig.Schedule
	Interval   time.Duration
	JobTimeout time.Duration
}

// Service runs every registered job once per scheduled tick while holding Lock,
// so several workers can be deployed without double-running a cycle.
type Service struct {
	logg       *logger.Logger
	registry   *Registry
	lock       Lock
	metrics    *metrics.CronJobMetrics
	schedule   robfig.Schedule
	jobTimeout time.Duration
	now        func() time.Time
}

// ParseSchedule reads a standard five-field cron spec (CRON_TZ= prefixes and
// descriptors such as @daily are accepted). An empty spec ticks every interval.
func ParseSchedule(spec string, interval time.Duration) (robfig.Schedule, error) {
	if spec == "" {
		if interval <= 0 {
			interval = defaultInterval
		}
		return robfig.Every(interval), nil
	}
	schedule, err := robfig.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("cron: parsing schedule %q: %w", spec, err)
	}
	return schedule, nil
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("cron: logger required")
	case params.Lock == nil:
		return nil, errors.New("cron: lock required")
	}
	svc := &Service{
		logg:       params.Logger,
		registry:   params.Registry,
		lock:       params.Lock,
		metrics:    params.Metrics,
		schedule:   params.Schedule,
		jobTimeout: params.JobTimeout,
		now:        time.Now,
	}
	if svc.registry == nil {
		svc.registry = &Registry{}
	}
	if svc.schedule == nil {
		schedule, err := ParseSchedule("", params.Interval)
		if err != nil {
			return nil, err
		}
		svc.schedule = schedule
	}
	return svc, nil
}

// Run starts with an immediate cycle and then follows the schedule. Cycle
// failures are logged; Run only returns once ctx is done.
func (s *Service) Run(ctx context.Context) error {
	for {
		if err := s.RunOnce(ctx); err != nil {
			s.logg.Error(ctx, "cron cycle failed", err)
		}

		next := s.schedule.Next(s.now())
		s.logg.Debug(s.logg.WithField(ctx, "next_run", next.Format(time.RFC3339)), "cron cycle scheduled")
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logg.Info(ctx, "cron service stopping")
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// RunOnce runs a single cycle. A lock held by another worker is not an error.
func (s *Service) RunOnce(ctx context.Context) (err error) {
	acquired, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("cron: acquiring lock: %w", err)
	}
	if !acquired {
		s.metrics.IncSkippedCycle()
		s.logg.Info(ctx, "cron lock held elsewhere, cycle skipped")
		return nil
	}
	defer func() {
		if releaseErr := s.lock.Release(context.WithoutCancel(ctx)); releaseErr != nil {
			s.logg.Warn(ctx, "cron lock release failed: "+releaseErr.Error())
		}
	}()

	jobs := s.registry.Jobs()
	failed := 0
	started := time.Now()
	for _, job := range jobs {
		if jobErr := s.runJob(ctx, job); jobErr != nil {
			failed++
			err = multierr.Append(err, fmt.Errorf("%s: %w", job.Name(), jobErr))
		}
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"jobs":        len(jobs),
		"failed":      failed,
		"duration_ms": time.Since(started).Milliseconds(),
	}), "cron cycle finished")
	return err
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	ctx = s.logg.WithField(ctx, "job", job.Name())
	if s.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.jobTimeout)
		defer cancel()
	}

	started := time.Now()
	err := runGuarded(ctx, job)
	elapsed := time.Since(started)
	s.metrics.ObserveRun(job.Name(), err, elapsed)

	ctx = s.logg.WithField(ctx, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		s.logg.Error(ctx, "cron job failed", err)
		return err
	}
	s.logg.Info(ctx, "cron job succeeded")
	return nil
}

// runGuarded turns a panicking job into an error so the remaining jobs still run.
func runGuarded(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return job.Run(ctx)
}
