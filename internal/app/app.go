package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/erdidoqan/postrella/internal/api"
	"github.com/erdidoqan/postrella/internal/config"
	"github.com/erdidoqan/postrella/internal/domain"
	"github.com/erdidoqan/postrella/internal/infrastructure/cms"
	"github.com/erdidoqan/postrella/internal/infrastructure/image"
	"github.com/erdidoqan/postrella/internal/infrastructure/llm"
	"github.com/erdidoqan/postrella/internal/infrastructure/lock"
	"github.com/erdidoqan/postrella/internal/infrastructure/scheduler"
	"github.com/erdidoqan/postrella/internal/infrastructure/social"
	"github.com/erdidoqan/postrella/internal/infrastructure/storage"
	"github.com/erdidoqan/postrella/internal/infrastructure/telegram"
	"github.com/erdidoqan/postrella/internal/logging"
	"github.com/erdidoqan/postrella/internal/ports"
	"github.com/erdidoqan/postrella/internal/publish"
	"github.com/erdidoqan/postrella/internal/usecase"
)

const shutdownTimeout = 30 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	store     ports.Store
	postgres  *storage.PostgresStore
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
	closers   []func() error
}

// New builds the application from configuration. Close releases the
// database and Redis connections.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	a := &Application{cfg: cfg, logger: baseLogger}

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	var sweepLock ports.SweepLock = lock.NewLocal()
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		a.closers = append(a.closers, client.Close)
		sweepLock = lock.NewRedisLock(client)
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.HTTP.RatePerSecond), cfg.HTTP.Burst)
	cmsClient := cms.NewClient(cfg.Site.BaseURL, cfg.HTTP.Timeout, limiter)

	platformOptions := func(app config.OAuthAppConfig) social.Options {
		return social.Options{
			BaseURL:      app.BaseURL,
			TokenURL:     app.TokenURL,
			ClientID:     app.ClientID,
			ClientSecret: app.ClientSecret,
			Timeout:      cfg.HTTP.Timeout,
			Limiter:      limiter,
		}
	}
	registry := publish.NewRegistry(
		cms.NewSitePublisher(cmsClient),
		social.NewPinterest(platformOptions(cfg.Platforms.Pinterest)),
		social.NewReddit(platformOptions(cfg.Platforms.Reddit)),
		social.NewX(platformOptions(cfg.Platforms.X)),
		social.NewMastodon(social.Options{Timeout: cfg.HTTP.Timeout, Limiter: limiter}),
	)

	deps := usecase.PipelineDeps{
		Store:      a.store,
		Taxonomy:   cmsClient,
		Media:      cmsClient,
		Images:     image.Cloudinary{},
		Dispatcher: publish.NewDispatcher(registry, a.store, a.store, baseLogger.With("component", "publish")),
		Lock:       sweepLock,
		Logger:     baseLogger,
		Limits:     cfg.Pipeline,
		Defaults: domain.Settings{
			Site: domain.SiteCredentials{
				SiteID:    cfg.Site.SiteID,
				APIKey:    cfg.Site.APIKey,
				PublicURL: cfg.Site.PublicURL,
			},
			AuthorID:       cfg.Site.AuthorID,
			BoardMappings:  cfg.Image.BoardMappings,
			ImageCloudName: cfg.Image.CloudName,
		},
		Subreddit: cfg.Platforms.Subreddit,
	}
	if gen := newGenerator(cfg.Generator); gen != nil {
		deps.Generator = gen
	} else {
		baseLogger.Warn("generator credentials missing, generation sweeps are disabled", "provider", cfg.Generator.Provider)
	}
	a.pipeline = usecase.NewPipeline(deps)

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.Enabled() {
		notifier = telegram.NewNotifier("", cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}
	a.scheduler = usecase.NewScheduler(
		scheduler.NewCronScheduler(cfg.Scheduler.Location(), baseLogger),
		a.pipeline,
		notifier,
		usecase.Schedule{
			Jobs:        cfg.Scheduler.Jobs,
			AutoPublish: cfg.Scheduler.AutoPublish,
			PublishDue:  cfg.Scheduler.PublishDue,
		},
		baseLogger,
	)
	return a, nil
}

func (a *Application) openStore(ctx context.Context) error {
	if a.cfg.Database.DSN == config.MemoryDSN {
		a.logger.Warn("using in-memory store, nothing is persisted")
		a.store = storage.NewMemoryStore()
		return nil
	}
	db, err := storage.Open(ctx, a.cfg.Database.DSN, a.cfg.Database.MaxOpenConns)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, db.Close)
	a.postgres = storage.NewPostgresStore(db)
	a.store = a.postgres
	return nil
}

// newGenerator returns nil when the provider has no credentials, so the
// pipeline can report it once per sweep.
func newGenerator(cfg config.GeneratorConfig) ports.ContentGenerator {
	if !cfg.Configured() {
		return nil
	}
	var completer llm.Completer
	switch cfg.Provider {
	case "openai":
		completer = llm.NewChatGPTCompleter(cfg)
	default:
		completer = llm.NewAnthropicCompleter(cfg)
	}
	return llm.NewGenerator(completer)
}

// Pipeline exposes the orchestrator for one-shot commands.
func (a *Application) Pipeline() *usecase.Pipeline { return a.pipeline }

// Migrate applies the embedded schema. It is a no-op for the memory store.
func (a *Application) Migrate(ctx context.Context) error {
	if a.postgres == nil {
		return nil
	}
	return a.postgres.Migrate(ctx)
}

// Serve runs the trigger API and the cron scheduler until ctx is done.
func (a *Application) Serve(ctx context.Context) error {
	server := &http.Server{
		Addr:         a.cfg.Server.Addr,
		Handler:      api.NewHandler(a.pipeline, a.logger).Router(),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := a.scheduler.Stop(shutdownCtx); err != nil {
			a.logger.Warn("scheduler stop", "error", err)
		}
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Close releases every connection opened by New.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}
