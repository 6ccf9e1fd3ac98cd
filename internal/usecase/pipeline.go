package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/erdidoqan/postrella/internal/config"
	"github.com/erdidoqan/postrella/internal/domain"
	"github.com/erdidoqan/postrella/internal/metrics"
	"github.com/erdidoqan/postrella/internal/ports"
	"github.com/erdidoqan/postrella/internal/publish"
)

// Sweep names, used for locks, metrics and logs.
const (
	SweepJobs        = "jobs"
	SweepAutoPublish = "auto-publish"
	SweepPublishDue  = "publish-due"
)

// Keys of the settings table that override static configuration.
const (
	settingSiteID        = "site_id"
	settingSiteAPIKey    = "site_api_key"
	settingSitePublicURL = "site_public_url"
	settingCloudName     = "cloudinary_cloud_name"
	settingBoardMappings = "pinterest_board_mappings"
)

// PipelineDeps wires all driven adapters into the orchestrator.
type PipelineDeps struct {
	Store      ports.Store
	Generator  ports.ContentGenerator
	Taxonomy   ports.TaxonomyClient
	Media      ports.MediaRegistrar
	Images     ports.ImageURLBuilder
	Dispatcher *publish.Dispatcher
	Lock       ports.SweepLock
	Logger     *slog.Logger

	Limits config.PipelineConfig
	// Defaults is the static part of the per-invocation settings.
	Defaults domain.Settings
	// Subreddit is used for reddit outputs without a suggestion.
	Subreddit string
}

// Pipeline sequences generation, taxonomy, covers and publishing over
// Topics, Jobs, Outputs and Publishes. Every batch is processed one item
// at a time; a failing item never stops the next one.
type Pipeline struct {
	store      ports.Store
	generator  ports.ContentGenerator
	taxonomy   ports.TaxonomyClient
	covers     *CoverProducer
	dispatcher *publish.Dispatcher
	lock       ports.SweepLock
	logger     *slog.Logger
	limits     config.PipelineConfig
	defaults   domain.Settings
	subreddit  string
	now        func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var covers *CoverProducer
	if deps.Generator != nil && deps.Images != nil {
		covers = NewCoverProducer(deps.Generator, deps.Images, deps.Media)
	}
	return &Pipeline{
		store:      deps.Store,
		generator:  deps.Generator,
		taxonomy:   deps.Taxonomy,
		covers:     covers,
		dispatcher: deps.Dispatcher,
		lock:       deps.Lock,
		logger:     logger.With("component", "pipeline"),
		limits:     deps.Limits,
		defaults:   deps.Defaults,
		subreddit:  deps.Subreddit,
		now:        time.Now,
	}
}

// Summary is what every sweep reports back to its trigger.
type Summary struct {
	RunID     string `json:"run_id"`
	Processed int    `json:"processed"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
}

// Text renders the summary for operator notifications.
func (s Summary) Text(sweep string) string {
	return fmt.Sprintf("*%s* run %s: %d processed, %d failed, %d skipped",
		sweep, s.RunID, s.Processed, s.Failed, s.Skipped)
}

// errSkipped marks an item another run already took care of.
var errSkipped = errors.New("already handled")

func (s *Summary) count(err error) {
	switch {
	case err == nil:
		s.Processed++
	case errors.Is(err, errSkipped):
		s.Skipped++
	default:
		s.Failed++
	}
}

// normalizeLimit maps non-positive limits to the default and caps the rest.
func normalizeLimit(limit, def, max int) int {
	if limit <= 0 {
		limit = def
	}
	if max > 0 && limit > max {
		limit = max
	}
	return limit
}

// sweep runs fn under the named lock with a fresh run id.
func (p *Pipeline) sweep(ctx context.Context, name string, fn func(ctx context.Context, log *slog.Logger, sum *Summary) error) (Summary, error) {
	sum := Summary{RunID: uuid.NewString()}
	log := p.logger.With("sweep", name, "run_id", sum.RunID)
	started := p.now()

	if p.lock != nil {
		release, err := p.lock.Acquire(ctx, name, p.limits.LockTTL)
		if err != nil {
			return sum, err
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				log.Warn("release sweep lock failed", "error", err)
			}
		}()
	}

	log.Info("sweep started")
	err := fn(ctx, log, &sum)
	metrics.RecordSweep(name, started, sum.Processed, sum.Failed, sum.Skipped)
	if err != nil {
		log.Error("sweep aborted", "error", err)
		return sum, err
	}
	log.Info("sweep finished", "processed", sum.Processed, "failed", sum.Failed, "skipped", sum.Skipped)
	return sum, nil
}

// loadSettings overlays the settings table on the static defaults. A read
// failure keeps the defaults.
func (p *Pipeline) loadSettings(ctx context.Context, log *slog.Logger) domain.Settings {
	s := p.defaults
	s.BoardMappings = make(map[string]string, len(p.defaults.BoardMappings))
	for k, v := range p.defaults.BoardMappings {
		s.BoardMappings[k] = v
	}

	stored, err := p.store.LoadSettings(ctx)
	if err != nil {
		log.Warn("load settings failed, using static configuration", "error", err)
		return s
	}

	override := func(dst *string, key string) {
		if v := strings.TrimSpace(stored[key]); v != "" {
			*dst = v
		}
	}
	override(&s.Site.SiteID, settingSiteID)
	override(&s.Site.APIKey, settingSiteAPIKey)
	override(&s.Site.PublicURL, settingSitePublicURL)
	override(&s.ImageCloudName, settingCloudName)

	if raw := strings.TrimSpace(stored[settingBoardMappings]); raw != "" {
		var boards map[string]string
		if err := json.Unmarshal([]byte(raw), &boards); err != nil {
			log.Warn("invalid board mappings setting", "error", err)
		} else {
			for k, v := range boards {
				s.BoardMappings[k] = v
			}
		}
	}
	return s
}
