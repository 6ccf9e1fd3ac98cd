package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/erdidoqan/postrella/internal/domain"
	"github.com/erdidoqan/postrella/internal/publish"
)

// PublishOutput delivers one output to each platform. Every platform gets
// its own Publish record and fails on its own. With a future scheduledAt
// the records stay pending until PublishDue picks them up.
func (p *Pipeline) PublishOutput(ctx context.Context, outputID int64, platforms []string, scheduledAt *time.Time) ([]publish.Result, error) {
	platforms = domain.NormalizeTargets(platforms)
	if len(platforms) == 0 {
		return nil, fmt.Errorf("%w: at least one platform required", domain.ErrInvalidInput)
	}
	for _, name := range platforms {
		if !p.dispatcher.Registry().Has(name) {
			return nil, fmt.Errorf("platform %q: %w", name, domain.ErrUnknownPlatform)
		}
	}

	output, err := p.store.GetOutput(ctx, outputID)
	if err != nil {
		return nil, fmt.Errorf("output %d: %w", outputID, err)
	}

	log := p.logger.With("output_id", outputID)
	settings := p.loadSettings(ctx, log)
	canon := p.canonical(ctx, log, output)

	deliveries := make([]publish.Delivery, 0, len(platforms))
	for _, name := range platforms {
		deliveries = append(deliveries, p.delivery(ctx, settings, output, canon, name))
	}

	results := p.dispatcher.FanOut(ctx, output.ID, deliveries, scheduledAt)
	for _, res := range results {
		if res.Err == nil && res.Publish.Status == domain.PublishPublished {
			p.afterPublished(ctx, log, output, res.Platform)
		}
	}
	return results, nil
}

// PublishDue delivers scheduled publishes whose time has come.
func (p *Pipeline) PublishDue(ctx context.Context, limit int) (Summary, error) {
	limit = normalizeLimit(limit, p.limits.PublishLimit, p.limits.PublishCap)

	return p.sweep(ctx, SweepPublishDue, func(ctx context.Context, log *slog.Logger, sum *Summary) error {
		records, err := p.store.DuePublishes(ctx, p.now(), limit)
		if err != nil {
			return fmt.Errorf("select due publishes: %w", err)
		}
		if len(records) == 0 {
			return nil
		}
		settings := p.loadSettings(ctx, log)

		for _, record := range records {
			if ctx.Err() != nil {
				log.Warn("sweep cancelled", "error", ctx.Err())
				break
			}
			rlog := log.With("publish_id", record.ID, "platform", record.Platform, "output_id", record.OutputID)

			output, err := p.store.GetOutput(ctx, record.OutputID)
			if err != nil {
				rlog.Error("load output failed", "error", err)
				sum.count(err)
				continue
			}

			delivery := p.delivery(ctx, settings, output, p.canonical(ctx, rlog, output), record.Platform)
			settled, err := p.dispatcher.Settle(ctx, record, delivery)
			if err != nil {
				rlog.Warn("scheduled publish failed", "error", err)
			} else if settled.Status == domain.PublishPublished {
				p.afterPublished(ctx, rlog, output, record.Platform)
			}
			sum.count(err)
		}
		return nil
	})
}

func (p *Pipeline) afterPublished(ctx context.Context, log *slog.Logger, output domain.ContentOutput, platform string) {
	if platform != domain.PlatformSite || output.Target != domain.PlatformSite {
		return
	}
	if err := p.store.TransitionOutput(ctx, output.ID, domain.OutputPublished); err != nil && !errors.Is(err, domain.ErrInvalidTransition) {
		log.Warn("mark output published failed", "error", err)
	}
}

// canonicalRef is what social payloads borrow from the topic's site article.
type canonicalRef struct {
	link        string
	imageURL    string
	categoryIDs []int64
	excerpt     string
}

// canonical looks up the site output of the same topic and its published URL.
func (p *Pipeline) canonical(ctx context.Context, log *slog.Logger, output domain.ContentOutput) canonicalRef {
	var ref canonicalRef
	site := output
	if output.Target != domain.PlatformSite {
		outputs, err := p.store.ListOutputs(ctx, output.TopicID)
		if err != nil {
			log.Warn("list topic outputs failed", "error", err)
			return ref
		}
		found := false
		for _, o := range outputs {
			if o.Target == domain.PlatformSite {
				site, found = o, true
				break
			}
		}
		if !found {
			return ref
		}
	}

	if meta, ok := site.Site(); ok {
		ref.imageURL = meta.FeaturedImageURL
		ref.categoryIDs = meta.CategoryIDs
		ref.excerpt = firstNonEmpty(meta.SEO.Description, meta.Excerpt)
	}

	records, err := p.store.ListPublishes(ctx, site.ID)
	if err != nil {
		log.Warn("list site publishes failed", "error", err)
		return ref
	}
	for _, rec := range records {
		if rec.Platform == domain.PlatformSite && rec.Status == domain.PublishPublished {
			ref.link = rec.RemoteURL
			break
		}
	}
	return ref
}

// delivery prepares the payload of output for platform. Preparation
// problems are carried in Delivery.Err so the record is stored as failed.
func (p *Pipeline) delivery(ctx context.Context, settings domain.Settings, output domain.ContentOutput, canon canonicalRef, platform string) publish.Delivery {
	d := publish.Delivery{Destination: publish.Destination{Platform: platform, Site: settings.Site}}

	if platform == domain.PlatformSite {
		meta, ok := output.Site()
		if !ok {
			d.Err = errors.New("output has no site metadata")
			return d
		}
		d.Payload = sitePayload(output.Title, output.Body, meta, settings)
		return d
	}

	account, err := p.store.ActiveAccount(ctx, platform)
	if err != nil {
		d.Err = fmt.Errorf("no active %s account: %w", platform, err)
		return d
	}
	d.Destination.Account = &account

	payload := domain.Payload{
		Title:       output.Title,
		Description: canon.excerpt,
		Body:        output.Body,
		Link:        canon.link,
		MediaURL:    canon.imageURL,
	}
	if social, ok := output.Social(); ok {
		payload.Tags = social.Hashtags
		if platform == domain.PlatformReddit {
			payload.Target = social.Subreddit
		}
	}
	if meta, ok := output.Site(); ok && payload.Description == "" {
		payload.Description = firstNonEmpty(meta.SEO.Description, meta.Excerpt)
	}

	switch platform {
	case domain.PlatformReddit:
		if payload.Target == "" {
			payload.Target = p.subreddit
		}
	case domain.PlatformPinterest:
		payload.Target = settings.BoardFor(canon.categoryIDs)
		if payload.Description == "" {
			payload.Description = output.Body
		}
	}
	d.Payload = payload
	return d
}

func sitePayload(title, body string, meta *domain.SiteMetadata, settings domain.Settings) domain.Payload {
	return domain.Payload{
		Title:       title,
		Description: firstNonEmpty(meta.SEO.Description, meta.Excerpt),
		Body:        body,
		MediaURL:    meta.FeaturedImageURL,
		Site: &domain.SitePost{
			Slug:             meta.Slug,
			SEO:              meta.SEO,
			CategoryIDs:      meta.CategoryIDs,
			TagIDs:           meta.TagIDs,
			FeaturedImageURL: meta.FeaturedImageURL,
			AuthorID:         settings.AuthorID,
		},
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
