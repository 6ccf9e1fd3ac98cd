package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/erdidoqan/postrella/internal/ports"
)

// Schedule holds the cron expression of each sweep. Empty disables it.
type Schedule struct {
	Jobs        string
	AutoPublish string
	PublishDue  string
}

// Scheduler wires the cron driver with the pipeline sweeps.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	notifier ports.Notifier
	schedule Schedule
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring sweeps. notifier
// may be nil.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, notifier ports.Notifier, schedule Schedule, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		driver:   driver,
		pipeline: pipeline,
		notifier: notifier,
		schedule: schedule,
		logger:   logger.With("component", "scheduler"),
	}
}

// Start registers the sweeps with the driver and starts it. Triggered
// sweeps use default limits and run until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	sweeps := []struct {
		name string
		spec string
		run  func(context.Context, int) (Summary, error)
	}{
		{SweepJobs, s.schedule.Jobs, s.pipeline.ProcessPendingJobs},
		{SweepAutoPublish, s.schedule.AutoPublish, s.pipeline.ProcessPendingTopicsAutoPublish},
		{SweepPublishDue, s.schedule.PublishDue, s.pipeline.PublishDue},
	}
	for _, sw := range sweeps {
		sw := sw
		job := func(time.Time) { s.trigger(ctx, sw.name, sw.run) }
		if err := s.driver.Register(sw.name, sw.spec, job); err != nil {
			return err
		}
	}

	return s.driver.Start(ctx)
}

func (s *Scheduler) trigger(ctx context.Context, name string, run func(context.Context, int) (Summary, error)) {
	sum, err := run(ctx, 0)
	if err != nil {
		s.logger.Warn("scheduled sweep did not run", "sweep", name, "error", err)
		return
	}
	if s.notifier == nil || sum.Processed+sum.Failed == 0 {
		return
	}
	if err := s.notifier.SendSummary(ctx, sum.Text(name)); err != nil {
		s.logger.Warn("send summary failed", "sweep", name, "error", err)
	}
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
