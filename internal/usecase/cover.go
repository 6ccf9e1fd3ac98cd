package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/erdidoqan/postrella/internal/domain"
	"github.com/erdidoqan/postrella/internal/ports"
)

const coverSlugLength = 50

// CoverProducer turns a keyword into a hosted cover image: a generated
// quote rendered on a gradient, then registered in the CMS media library.
type CoverProducer struct {
	generator ports.ContentGenerator
	images    ports.ImageURLBuilder
	media     ports.MediaRegistrar
	now       func() time.Time
}

// NewCoverProducer wires the producer. media may be nil, in which case the
// rendered URL is used directly.
func NewCoverProducer(generator ports.ContentGenerator, images ports.ImageURLBuilder, media ports.MediaRegistrar) *CoverProducer {
	return &CoverProducer{generator: generator, images: images, media: media, now: time.Now}
}

// Produce returns the URL of the cover for keyword.
func (c *CoverProducer) Produce(ctx context.Context, settings domain.Settings, keyword, title, slug string) (string, error) {
	if !settings.CoversEnabled() {
		return "", fmt.Errorf("cover images: %w", domain.ErrNotConfigured)
	}

	quote, err := c.generator.Quote(ctx, keyword, title)
	if err != nil {
		return "", fmt.Errorf("generate quote: %w", err)
	}
	if strings.TrimSpace(quote) == "" {
		quote = firstNonEmpty(title, keyword)
	}

	url := c.images.BuildImageURL(settings.ImageCloudName, keyword, quote)
	if c.media == nil || !settings.Site.Configured() {
		return url, nil
	}

	media, err := c.media.RegisterMedia(ctx, settings.Site, ports.MediaRequest{
		URL:      url,
		Filename: coverFilename(slug, keyword, c.now()),
		AltText:  "Featured image for " + keyword,
		Caption:  quote,
		MimeType: "image/png",
		Width:    ports.CoverWidth,
		Height:   ports.CoverHeight,
	})
	if err != nil {
		return "", fmt.Errorf("register media: %w", err)
	}
	if media.URL == "" {
		return url, nil
	}
	return media.URL, nil
}

func coverFilename(slug, keyword string, at time.Time) string {
	base := firstNonEmpty(slug, keyword)
	base = strings.ToLower(strings.ReplaceAll(base, " ", "-"))
	if r := []rune(base); len(r) > coverSlugLength {
		base = strings.TrimRight(string(r[:coverSlugLength]), "-")
	}
	return fmt.Sprintf("featured-%s-%d.png", base, at.Unix())
}
