package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/erdidoqan/postrella/internal/domain"
	"github.com/erdidoqan/postrella/internal/metrics"
	"github.com/erdidoqan/postrella/internal/publish"
	"github.com/erdidoqan/postrella/internal/taxonomy"
)

// stepPolicy decides what a failing auto-publish step does to its topic.
type stepPolicy int

const (
	// policyFatal marks the topic failed and stops its steps.
	policyFatal stepPolicy = iota
	// policyDegrade logs a warning and continues without the step's result.
	policyDegrade
	// policyIgnore logs and continues; the step is a bonus side effect.
	policyIgnore
)

func (p stepPolicy) String() string {
	switch p {
	case policyFatal:
		return "fatal"
	case policyDegrade:
		return "degrade"
	default:
		return "ignore"
	}
}

// errStop ends a topic's steps without failing it.
var errStop = errors.New("stop")

type step struct {
	name   string
	policy stepPolicy
	run    func(ctx context.Context, r *topicRun) error
}

// topicRun carries the state of one topic through the steps.
type topicRun struct {
	log      *slog.Logger
	topic    domain.Topic
	settings domain.Settings
	resolver *taxonomy.Resolver

	strategy domain.Strategy
	article  domain.Article
	meta     *domain.SiteMetadata
	output   domain.ContentOutput
	siteURL  string
}

func (p *Pipeline) autoPublishSteps() []step {
	return []step{
		{name: "strategy", policy: policyFatal, run: p.stepStrategy},
		{name: "article", policy: policyFatal, run: p.stepArticle},
		{name: "taxonomy", policy: policyDegrade, run: p.stepTaxonomy},
		{name: "persist", policy: policyFatal, run: p.stepPersist},
		{name: "cover", policy: policyDegrade, run: p.stepCover},
		{name: "site-publish", policy: policyFatal, run: p.stepSitePublish},
		{name: "auto-pin", policy: policyIgnore, run: p.stepAutoPin},
	}
}

// ProcessPendingTopicsAutoPublish turns up to limit pending topics into
// published site articles, highest score first.
func (p *Pipeline) ProcessPendingTopicsAutoPublish(ctx context.Context, limit int) (Summary, error) {
	if p.generator == nil {
		return Summary{}, fmt.Errorf("content generator: %w", domain.ErrNotConfigured)
	}
	limit = normalizeLimit(limit, p.limits.SweepLimit, p.limits.SweepCap)

	return p.sweep(ctx, SweepAutoPublish, func(ctx context.Context, log *slog.Logger, sum *Summary) error {
		settings := p.loadSettings(ctx, log)
		if !settings.Site.Configured() {
			return fmt.Errorf("site credentials: %w", domain.ErrNotConfigured)
		}

		topics, err := p.store.PendingTopics(ctx, limit)
		if err != nil {
			return fmt.Errorf("select pending topics: %w", err)
		}
		if len(topics) == 0 {
			return nil
		}

		resolver := taxonomy.NewResolver(p.taxonomy, settings.Site, nil, nil, log)
		if err := resolver.Load(ctx); err != nil {
			log.Warn("taxonomy fetch failed, continuing without context", "error", err)
		}

		steps := p.autoPublishSteps()
		for _, topic := range topics {
			if ctx.Err() != nil {
				log.Warn("sweep cancelled", "error", ctx.Err())
				break
			}
			run := &topicRun{
				log:      log.With("topic_id", topic.ID, "keyword", topic.Keyword),
				topic:    topic,
				settings: settings,
				resolver: resolver,
			}
			sum.count(p.runTopic(ctx, run, steps))
		}
		return nil
	})
}

func (p *Pipeline) runTopic(ctx context.Context, r *topicRun, steps []step) error {
	exists, err := p.store.OutputExists(ctx, r.topic.ID, domain.PlatformSite)
	if err != nil {
		r.log.Error("check existing output failed", "error", err)
		return err
	}
	if exists {
		if err := p.store.TransitionTopic(ctx, r.topic.ID, domain.TopicPublished); err != nil && !errors.Is(err, domain.ErrInvalidTransition) {
			r.log.Warn("advance handled topic failed", "error", err)
		}
		r.log.Info("topic already handled")
		return errSkipped
	}

	switch err := p.store.TransitionTopic(ctx, r.topic.ID, domain.TopicProcessing); {
	case errors.Is(err, domain.ErrInvalidTransition):
		r.log.Info("topic claimed by another run")
		return errSkipped
	case err != nil:
		r.log.Error("mark topic processing failed", "error", err)
		return err
	}

	for _, s := range steps {
		err := s.run(ctx, r)
		if err == nil {
			continue
		}
		if errors.Is(err, errStop) {
			if tErr := p.store.TransitionTopic(ctx, r.topic.ID, domain.TopicPublished); tErr != nil && !errors.Is(tErr, domain.ErrInvalidTransition) {
				r.log.Warn("advance handled topic failed", "error", tErr)
			}
			r.log.Info("topic handled concurrently", "step", s.name)
			return errSkipped
		}

		metrics.StepFailures.WithLabelValues(s.name, s.policy.String()).Inc()
		switch s.policy {
		case policyFatal:
			r.log.Error("step failed", "step", s.name, "error", err)
			if tErr := p.store.TransitionTopic(ctx, r.topic.ID, domain.TopicFailed); tErr != nil {
				r.log.Warn("mark topic failed failed", "error", tErr)
			}
			return fmt.Errorf("%s: %w", s.name, err)
		case policyDegrade:
			r.log.Warn("step degraded", "step", s.name, "error", err)
		default:
			r.log.Info("step skipped after error", "step", s.name, "error", err)
		}
	}
	r.log.Info("topic published", "url", r.siteURL)
	return nil
}

func (p *Pipeline) stepStrategy(ctx context.Context, r *topicRun) error {
	strategy, err := p.generator.Strategy(ctx, r.topic.Keyword)
	if err != nil {
		return err
	}
	r.strategy = strategy
	if err := p.store.SaveTopicStrategy(ctx, r.topic.ID, strategy); err != nil {
		r.log.Warn("save strategy failed", "error", err)
	}
	return nil
}

func (p *Pipeline) stepArticle(ctx context.Context, r *topicRun) error {
	article, err := p.generator.Article(ctx, articleRequest(r.topic, &r.strategy, r.resolver))
	if err != nil {
		return err
	}
	r.article = article
	r.meta = siteMetadata(article, &r.strategy)
	return nil
}

func (p *Pipeline) stepTaxonomy(ctx context.Context, r *topicRun) error {
	return resolveTaxonomy(ctx, r.resolver, r.article, r.meta)
}

func (p *Pipeline) stepPersist(ctx context.Context, r *topicRun) error {
	output, err := p.store.InsertOutput(ctx, domain.ContentOutput{
		TopicID:  r.topic.ID,
		Target:   domain.PlatformSite,
		Title:    r.article.Title,
		Body:     r.article.Body,
		Metadata: r.meta,
		Status:   domain.OutputReady,
	})
	if errors.Is(err, domain.ErrOutputExists) {
		return errStop
	}
	if err != nil {
		return err
	}
	r.output = output
	return nil
}

func (p *Pipeline) stepCover(ctx context.Context, r *topicRun) error {
	if p.covers == nil || !r.settings.CoversEnabled() {
		return nil
	}
	url, err := p.covers.Produce(ctx, r.settings, r.topic.Keyword, r.article.Title, r.meta.Slug)
	if err != nil {
		return err
	}
	r.meta.FeaturedImageURL = url
	if err := p.store.UpdateOutputMetadata(ctx, r.output.ID, r.meta); err != nil {
		return fmt.Errorf("store cover url: %w", err)
	}
	return nil
}

func (p *Pipeline) stepSitePublish(ctx context.Context, r *topicRun) error {
	dest := publish.Destination{Platform: domain.PlatformSite, Site: r.settings.Site}
	receipt, err := p.dispatcher.Send(ctx, dest, sitePayload(r.output.Title, r.output.Body, r.meta, r.settings))
	if err != nil {
		return err
	}
	r.siteURL = receipt.RemoteURL
	// The article is live at this point; a missing record must not fail the topic.
	if _, err := p.dispatcher.Record(ctx, r.output.ID, dest, receipt); err != nil {
		r.log.Error("record site publish failed", "remote_id", receipt.RemoteID, "remote_url", receipt.RemoteURL, "error", err)
	}

	if err := p.store.TransitionOutput(ctx, r.output.ID, domain.OutputPublished); err != nil {
		r.log.Warn("mark output published failed", "error", err)
	}
	if err := p.store.TransitionTopic(ctx, r.topic.ID, domain.TopicPublished); err != nil {
		r.log.Warn("mark topic published failed", "error", err)
	}
	return nil
}

// stepAutoPin pins the cover to the mapped board. Missing prerequisites
// skip it without an error.
func (p *Pipeline) stepAutoPin(ctx context.Context, r *topicRun) error {
	if !p.limits.AutoPin || !p.dispatcher.Registry().Has(domain.PlatformPinterest) {
		return nil
	}
	if r.meta.FeaturedImageURL == "" {
		return nil
	}
	board := r.settings.BoardFor(r.meta.CategoryIDs)
	if board == "" {
		return nil
	}
	account, err := p.store.ActiveAccount(ctx, domain.PlatformPinterest)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	dest := publish.Destination{Platform: domain.PlatformPinterest, Account: &account, Site: r.settings.Site}
	receipt, err := p.dispatcher.Send(ctx, dest, domain.Payload{
		Title:       r.output.Title,
		Description: firstNonEmpty(r.meta.SEO.Description, r.meta.Excerpt),
		Link:        r.siteURL,
		MediaURL:    r.meta.FeaturedImageURL,
		Target:      board,
	})
	if err != nil {
		return err
	}
	if _, err := p.dispatcher.Record(ctx, r.output.ID, dest, receipt); err != nil {
		return fmt.Errorf("record pin: %w", err)
	}
	r.log.Info("cover pinned", "board", board, "pin_url", receipt.RemoteURL)
	return nil
}
