package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/erdidoqan/postrella/internal/app"
	"github.com/erdidoqan/postrella/internal/config"
	"github.com/erdidoqan/postrella/internal/logging"
	"github.com/erdidoqan/postrella/internal/publish"
	"github.com/erdidoqan/postrella/internal/usecase"
)

type cli struct {
	out     io.Writer
	cfgPath string
	cfg     config.Config
	logger  *slog.Logger
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}
	root := &cobra.Command{
		Use:   "postrella",
		Short: "Content pipeline: generate, resolve taxonomy, publish",
		Long: `postrella turns trending topics into site articles and social posts.

Example usage:
  postrella serve                          # trigger API plus cron sweeps
  postrella enqueue --topic 12 --targets site,x,reddit
  postrella run-jobs --limit 5             # generate outputs of pending jobs
  postrella auto-publish                   # topic to published article in one pass
  postrella publish --output 40 --platforms x,mastodon --at 2030-01-02T09:00:00Z`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.loadConfig,
	}
	root.PersistentFlags().StringVar(&c.cfgPath, "config", "", "YAML config file (default $"+config.PathEnv+")")

	root.AddCommand(
		c.serveCmd(),
		c.migrateCmd(),
		c.enqueueCmd(),
		c.retryCmd(),
		c.sweepCmd("run-jobs", "Generate the outputs of pending content jobs", usecase.SweepJobs,
			func(p *usecase.Pipeline) sweepFunc { return p.ProcessPendingJobs }),
		c.sweepCmd("auto-publish", "Generate, illustrate and publish pending topics", usecase.SweepAutoPublish,
			func(p *usecase.Pipeline) sweepFunc { return p.ProcessPendingTopicsAutoPublish }),
		c.sweepCmd("publish-due", "Deliver scheduled publishes whose time has come", usecase.SweepPublishDue,
			func(p *usecase.Pipeline) sweepFunc { return p.PublishDue }),
		c.publishCmd(),
	)
	return root
}

func (c *cli) loadConfig(*cobra.Command, []string) error {
	if c.cfgPath != "" {
		if err := os.Setenv(config.PathEnv, c.cfgPath); err != nil {
			return err
		}
	}
	c.cfg = config.Load()
	if err := c.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	c.logger = logging.NewWithWriter(os.Stderr, c.cfg.Logging.Level, c.cfg.Logging.Format)
	return nil
}

func (c *cli) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.Application) error) error {
	ctx := cmd.Context()
	a, err := app.New(ctx, c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			c.logger.Warn("close application", "error", err)
		}
	}()
	return fn(ctx, a)
}

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the trigger API and the scheduled sweeps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				return a.Serve(ctx)
			})
		},
	}
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				if err := a.Migrate(ctx); err != nil {
					return err
				}
				color.New(color.FgGreen).Fprintln(c.out, "schema is up to date")
				return nil
			})
		},
	}
}

func (c *cli) enqueueCmd() *cobra.Command {
	var (
		topicID int64
		targets []string
	)
	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Create a content job for a topic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				job, err := a.Pipeline().EnqueueJob(ctx, topicID, targets)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "job %d queued for topic %d: %v\n", job.ID, job.TopicID, job.Targets)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&topicID, "topic", 0, "topic id")
	cmd.Flags().StringSliceVar(&targets, "targets", []string{"site"}, "comma separated targets")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}

func (c *cli) retryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry-job <id>",
		Short: "Return a failed job with attempts left to pending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid job id %q", args[0])
			}
			return c.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				if err := a.Pipeline().ResubmitJob(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(c.out, "job %d requeued\n", id)
				return nil
			})
		},
	}
}

type sweepFunc func(context.Context, int) (usecase.Summary, error)

func (c *cli) sweepCmd(use, short, sweep string, pick func(*usecase.Pipeline) sweepFunc) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				sum, err := pick(a.Pipeline())(ctx, limit)
				if err != nil {
					return err
				}
				printSummary(c.out, sweep, sum)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "items to process (0 uses the configured default)")
	return cmd
}

func (c *cli) publishCmd() *cobra.Command {
	var (
		outputID  int64
		platforms []string
		at        string
	)
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish one output to several platforms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var scheduledAt *time.Time
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
				scheduledAt = &t
			}
			return c.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				results, err := a.Pipeline().PublishOutput(ctx, outputID, platforms, scheduledAt)
				if err != nil {
					return err
				}
				printResults(c.out, results)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&outputID, "output", 0, "content output id")
	cmd.Flags().StringSliceVar(&platforms, "platforms", nil, "comma separated platforms")
	cmd.Flags().StringVar(&at, "at", "", "RFC3339 time to schedule the publish for")
	_ = cmd.MarkFlagRequired("output")
	_ = cmd.MarkFlagRequired("platforms")
	return cmd
}

func printSummary(w io.Writer, sweep string, sum usecase.Summary) {
	fmt.Fprintf(w, "%s run %s: %s, %s, %s\n", sweep, sum.RunID,
		color.GreenString("%d processed", sum.Processed),
		color.RedString("%d failed", sum.Failed),
		color.YellowString("%d skipped", sum.Skipped),
	)
}

func printResults(w io.Writer, results []publish.Result) {
	for _, res := range results {
		switch {
		case res.Err != nil:
			fmt.Fprintf(w, "%-10s %s %v\n", res.Platform, color.RedString("failed"), res.Err)
		case res.Publish.RemoteURL != "":
			fmt.Fprintf(w, "%-10s %s %s\n", res.Platform, color.GreenString("published"), res.Publish.RemoteURL)
		default:
			fmt.Fprintf(w, "%-10s %s\n", res.Platform, color.YellowString(string(res.Publish.Status)))
		}
	}
}
