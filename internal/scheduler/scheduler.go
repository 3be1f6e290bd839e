// Package scheduler runs the tracker's background jobs: the periodic price
// catalog refresh and the crontab cloud backup.
package scheduler

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// JobFunc is a background job body. The context is the scheduler's shutdown
// context; a job that blocks must honor it.
type JobFunc func(ctx context.Context) error

type Scheduler struct {
	gocron gocron.Scheduler
}

func New() *Scheduler {
	g, err := gocron.NewScheduler()
	if err != nil {
		panic(err.Error())
	}
	return &Scheduler{gocron: g}
}

func (s *Scheduler) Start() {
	s.gocron.Start()
}

func (s *Scheduler) Stop() {
	if err := s.gocron.Shutdown(); err != nil {
		slog.Error("scheduler shutdown error", slog.String("err", err.Error()))
	}
}

// NewIntervalJob schedules fn every interval. With startImmediately the first
// run fires right away, which keeps the price catalog from staying empty
// until the first tick.
func (s *Scheduler) NewIntervalJob(name string, fn JobFunc, interval time.Duration, startImmediately bool) {
	s.add(gocron.DurationJob(interval), name, fn, startImmediately)
}

// NewCrontabJob schedules fn on a crontab expression (with seconds field).
func (s *Scheduler) NewCrontabJob(name string, fn JobFunc, crontab string, startImmediately bool) {
	s.add(gocron.CronJob(crontab, true), name, fn, startImmediately)
}

func (s *Scheduler) add(definition gocron.JobDefinition, name string, fn JobFunc, startImmediately bool) {
	// singleton mode: a slow catalog refresh or backup never overlaps itself
	opts := []gocron.JobOption{
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}

	if startImmediately {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	if _, err := s.gocron.NewJob(definition, gocron.NewTask(s.run(name, fn)), opts...); err != nil {
		slog.Error("scheduler job registration failed", slog.String("job", name), slog.String("err", err.Error()))
		panic(err.Error())
	}
}

// run wraps a job body with panic recovery and start/finish logging. A
// panicking job must not take the whole process down with it.
func (s *Scheduler) run(name string, fn JobFunc) func(ctx context.Context) {
	return func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				slog.Error(
					"panic recovered in scheduler job",
					slog.String("job", name),
					slog.Any("panic", r),
					slog.String("stacktrace", string(debug.Stack())),
				)
			}
		}()

		slog.Info("job start", slog.String("job", name))

		if err := fn(ctx); err != nil {
			slog.Error("job failed", slog.String("job", name), slog.String("err", err.Error()))
			return
		}

		slog.Info("job completed", slog.String("job", name))
	}
}
