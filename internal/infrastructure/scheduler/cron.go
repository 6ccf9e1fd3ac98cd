package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/erdidoqan/postrella/internal/ports"
	"github.com/erdidoqan/postrella/pkg/logger"
)

// CronScheduler runs registered sweeps on standard five-field cron expressions.
type CronScheduler struct {
	cron    *cron.Cron
	entries map[string]cron.EntryID
	started bool
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler evaluating expressions in loc. Overlapping
// runs of the same entry are skipped rather than queued. log may be nil.
func NewCronScheduler(loc *time.Location, log *slog.Logger) *CronScheduler {
	if loc == nil {
		loc = time.UTC
	}
	l := cron.PrintfLogger(logger.New("cron", log))
	return &CronScheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(l),
			cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
		),
		entries: map[string]cron.EntryID{},
	}
}

// Register adds a named job. An empty spec disables it.
func (c *CronScheduler) Register(name, spec string, job func(time.Time)) error {
	if spec == "" || job == nil {
		return nil
	}
	if _, dup := c.entries[name]; dup {
		return fmt.Errorf("job %s already registered", name)
	}
	id, err := c.cron.AddFunc(spec, func() { job(time.Now()) })
	if err != nil {
		return fmt.Errorf("register %s (%q): %w", name, spec, err)
	}
	c.entries[name] = id
	return nil
}

// Entries returns the registered job names with their next activation.
func (c *CronScheduler) Entries() map[string]time.Time {
	out := make(map[string]time.Time, len(c.entries))
	for name, id := range c.entries {
		out[name] = c.cron.Entry(id).Next
	}
	return out
}

func (c *CronScheduler) Start(ctx context.Context) error {
	if c.started {
		return nil
	}
	c.started = true
	c.cron.Start()
	return nil
}

// Stop waits for running jobs until ctx expires.
func (c *CronScheduler) Stop(ctx context.Context) error {
	if !c.started {
		return nil
	}
	c.started = false
	done := c.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
