package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/erdidoqan/postrella/internal/domain"
	"github.com/erdidoqan/postrella/internal/markup"
	"github.com/erdidoqan/postrella/internal/ports"
	"github.com/erdidoqan/postrella/internal/taxonomy"
)

const excerptLength = 160

// EnqueueJob creates a pending job for topicID. Targets are normalized and
// must all be known platforms.
func (p *Pipeline) EnqueueJob(ctx context.Context, topicID int64, targets []string) (domain.ContentJob, error) {
	targets = domain.NormalizeTargets(targets)
	if len(targets) == 0 {
		return domain.ContentJob{}, fmt.Errorf("%w: at least one target required", domain.ErrInvalidInput)
	}
	for _, t := range targets {
		if !domain.KnownPlatform(t) {
			return domain.ContentJob{}, fmt.Errorf("target %q: %w", t, domain.ErrUnknownPlatform)
		}
	}
	if _, err := p.store.GetTopic(ctx, topicID); err != nil {
		return domain.ContentJob{}, fmt.Errorf("topic %d: %w", topicID, err)
	}

	job, err := p.store.CreateJob(ctx, domain.ContentJob{
		TopicID:     topicID,
		Targets:     targets,
		Status:      domain.JobPending,
		MaxAttempts: p.limits.MaxAttempts,
	})
	if err != nil {
		return domain.ContentJob{}, fmt.Errorf("create job: %w", err)
	}
	p.logger.Info("job enqueued", "job_id", job.ID, "topic_id", topicID, "targets", targets)
	return job, nil
}

// ResubmitJob returns a failed job to pending. A job that used all of its
// attempts stays failed and yields domain.ErrAttemptsExhausted.
func (p *Pipeline) ResubmitJob(ctx context.Context, jobID int64) error {
	if err := p.store.RequeueJob(ctx, jobID); err != nil {
		return fmt.Errorf("resubmit job %d: %w", jobID, err)
	}
	p.logger.Info("job resubmitted", "job_id", jobID)
	return nil
}

// ProcessPendingJobs generates the outputs of up to limit pending jobs,
// oldest first.
func (p *Pipeline) ProcessPendingJobs(ctx context.Context, limit int) (Summary, error) {
	if p.generator == nil {
		return Summary{}, fmt.Errorf("content generator: %w", domain.ErrNotConfigured)
	}
	limit = normalizeLimit(limit, p.limits.JobLimit, p.limits.JobCap)

	return p.sweep(ctx, SweepJobs, func(ctx context.Context, log *slog.Logger, sum *Summary) error {
		settings := p.loadSettings(ctx, log)

		jobs, err := p.store.PendingJobs(ctx, limit)
		if err != nil {
			return fmt.Errorf("select pending jobs: %w", err)
		}

		for _, job := range jobs {
			if ctx.Err() != nil {
				log.Warn("sweep cancelled", "error", ctx.Err())
				break
			}
			err := p.runJob(ctx, log.With("job_id", job.ID, "topic_id", job.TopicID), settings, job)
			sum.count(err)
		}
		return nil
	})
}

func (p *Pipeline) runJob(ctx context.Context, log *slog.Logger, settings domain.Settings, job domain.ContentJob) error {
	job, err := p.store.StartJob(ctx, job.ID, p.now())
	if errors.Is(err, domain.ErrInvalidTransition) {
		log.Info("job already claimed")
		return errSkipped
	}
	if err != nil {
		log.Error("start job failed", "error", err)
		return err
	}
	log = log.With("attempt", job.Attempts)

	topic, err := p.store.GetTopic(ctx, job.TopicID)
	if err != nil {
		return p.failJob(ctx, log, job, fmt.Errorf("load topic: %w", err))
	}

	var resolver *taxonomy.Resolver
	if job.HasTarget(domain.PlatformSite) {
		resolver = taxonomy.NewResolver(p.taxonomy, settings.Site, nil, nil, log)
		if err := resolver.Load(ctx); err != nil {
			log.Warn("taxonomy fetch failed, continuing without context", "error", err)
		}
	}

	for _, target := range job.Targets {
		if err := p.produceOutput(ctx, log.With("target", target), job, topic, target, resolver); err != nil {
			return p.failJob(ctx, log, job, fmt.Errorf("%s: %w", target, err))
		}
	}

	if err := p.store.FinishJob(ctx, job.ID, domain.JobCompleted, "", p.now()); err != nil {
		log.Error("complete job failed", "error", err)
		return err
	}

	switch err := p.store.TransitionTopic(ctx, topic.ID, domain.TopicCompleted); {
	case errors.Is(err, domain.ErrInvalidTransition):
		log.Warn("topic already terminal, status kept")
	case err != nil:
		log.Warn("advance topic failed", "error", err)
	}
	log.Info("job completed")
	return nil
}

// failJob records cause on the job. The topic is left as is so a
// resubmitted job can try again.
func (p *Pipeline) failJob(ctx context.Context, log *slog.Logger, job domain.ContentJob, cause error) error {
	log.Error("job failed", "error", cause)
	if err := p.store.FinishJob(ctx, job.ID, domain.JobFailed, cause.Error(), p.now()); err != nil {
		log.Error("record job failure failed", "error", err)
	}
	return cause
}

// produceOutput generates and stores the output for one target unless one
// already exists.
func (p *Pipeline) produceOutput(ctx context.Context, log *slog.Logger, job domain.ContentJob, topic domain.Topic, target string, resolver *taxonomy.Resolver) error {
	exists, err := p.store.OutputExists(ctx, topic.ID, target)
	if err != nil {
		return fmt.Errorf("check existing output: %w", err)
	}
	if exists {
		log.Info("output exists, skipping target")
		return nil
	}

	var output domain.ContentOutput
	if target == domain.PlatformSite {
		article, err := p.generator.Article(ctx, articleRequest(topic, topic.Metadata.Strategy, resolver))
		if err != nil {
			return fmt.Errorf("generate article: %w", err)
		}
		meta := siteMetadata(article, topic.Metadata.Strategy)
		if err := resolveTaxonomy(ctx, resolver, article, meta); err != nil {
			log.Warn("taxonomy incomplete", "error", err)
		}
		output = domain.ContentOutput{Title: article.Title, Body: article.Body, Metadata: meta}
	} else {
		post, err := p.generator.ShortPost(ctx, topic.Keyword, target)
		if err != nil {
			return fmt.Errorf("generate post: %w", err)
		}
		meta := post.Metadata
		meta.Platform = target
		if target == domain.PlatformReddit && meta.Subreddit == "" {
			meta.Subreddit = p.subreddit
		}
		output = domain.ContentOutput{Title: post.Title, Body: post.Body, Metadata: &meta}
	}

	jobID := job.ID
	output.JobID = &jobID
	output.TopicID = topic.ID
	output.Target = target
	output.Status = domain.OutputDraft

	stored, err := p.store.InsertOutput(ctx, output)
	if errors.Is(err, domain.ErrOutputExists) {
		log.Info("output created concurrently, keeping existing")
		return nil
	}
	if err != nil {
		return fmt.Errorf("persist output: %w", err)
	}
	log.Info("output stored", "output_id", stored.ID)
	return nil
}

func articleRequest(topic domain.Topic, strategy *domain.Strategy, resolver *taxonomy.Resolver) ports.ArticleRequest {
	req := ports.ArticleRequest{
		Keyword:  topic.Keyword,
		Locale:   topic.LocaleOrDefault(),
		Strategy: strategy,
	}
	if resolver != nil {
		req.Categories = resolver.Categories()
		req.Tags = resolver.Tags()
	}
	return req
}

func siteMetadata(article domain.Article, strategy *domain.Strategy) *domain.SiteMetadata {
	return &domain.SiteMetadata{
		SEO:               article.SEO,
		Slug:              article.Slug,
		SuggestedCategory: article.SuggestedCategory,
		SuggestedTags:     article.SuggestedTags,
		Strategy:          strategy,
		Excerpt:           markup.Excerpt(article.Body, excerptLength),
	}
}

// resolveTaxonomy fills category and tag ids. It reports an unresolved
// suggested category; tags are best effort per item.
func resolveTaxonomy(ctx context.Context, resolver *taxonomy.Resolver, article domain.Article, meta *domain.SiteMetadata) error {
	if resolver == nil {
		return nil
	}
	var err error
	if article.SuggestedCategory != "" {
		if id, ok := resolver.ResolveCategory(ctx, article.SuggestedCategory); ok {
			meta.CategoryIDs = []int64{id}
		} else {
			err = fmt.Errorf("category %q unresolved", article.SuggestedCategory)
		}
	}
	meta.TagIDs = resolver.ResolveTags(ctx, article.SuggestedTags)
	return err
}
