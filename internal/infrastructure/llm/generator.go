package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/erdidoqan/postrella/internal/domain"
	"github.com/erdidoqan/postrella/internal/markup"
	"github.com/erdidoqan/postrella/internal/ports"
	"github.com/erdidoqan/postrella/internal/taxonomy"
)

const maxSlugLength = 40

// ErrMalformed is returned when a reply lacks required sections.
var ErrMalformed = errors.New("malformed generator output")

// Generator turns Completer replies into domain content.
type Generator struct {
	completer Completer
}

var _ ports.ContentGenerator = (*Generator)(nil)

// NewGenerator wraps a completer.
func NewGenerator(c Completer) *Generator {
	return &Generator{completer: c}
}

// Strategy plans an article for keyword.
func (g *Generator) Strategy(ctx context.Context, keyword string) (domain.Strategy, error) {
	reply, err := g.completer.Complete(ctx, systemPrompt, strategyPrompt(keyword))
	if err != nil {
		return domain.Strategy{}, fmt.Errorf("strategy: %w", err)
	}
	s := parseSections(reply)

	strategy := domain.Strategy{
		Intent:         s["INTENT"],
		Angle:          s["ANGLE"],
		Audience:       s["AUDIENCE"],
		Tone:           s["TONE"],
		SEOKeywords:    splitList(s["SEO_KEYWORDS"]),
		SEOTitle:       s["SEO_TITLE"],
		SEODescription: s["SEO_DESCRIPTION"],
		SuggestedTitle: s["SUGGESTED_TITLE"],
		Outline:        splitLines(s["CONTENT_OUTLINE"]),
	}
	strategy.Slug = clampSlug(firstNonEmpty(s["SLUG"], strategy.SuggestedTitle, keyword))

	if strategy.Intent == "" && strategy.SuggestedTitle == "" && len(strategy.Outline) == 0 {
		return domain.Strategy{}, fmt.Errorf("strategy: %w", ErrMalformed)
	}
	return strategy, nil
}

// Article writes the full post. The body is sanitized HTML.
func (g *Generator) Article(ctx context.Context, req ports.ArticleRequest) (domain.Article, error) {
	locale := req.Locale
	if locale == "" {
		locale = "en"
	}
	reply, err := g.completer.Complete(ctx, systemPrompt, articlePrompt(req.Keyword, locale, req.Strategy, req.Categories, req.Tags))
	if err != nil {
		return domain.Article{}, fmt.Errorf("article: %w", err)
	}
	s := parseSections(reply)

	article := domain.Article{
		Title: s["TITLE"],
		Body:  markup.Sanitize(s["BODY"]),
		SEO: domain.SEO{
			Title:       s["SEO_TITLE"],
			Description: s["SEO_DESCRIPTION"],
			Keywords:    splitList(s["SEO_KEYWORDS"]),
		},
		SuggestedCategory: firstLine(s["CATEGORY"]),
		SuggestedTags:     splitList(s["TAGS"]),
	}
	if article.Title == "" || article.Body == "" {
		return domain.Article{}, fmt.Errorf("article: %w", ErrMalformed)
	}

	slugSource := s["SLUG"]
	if slugSource == "" && req.Strategy != nil {
		slugSource = req.Strategy.Slug
	}
	article.Slug = clampSlug(firstNonEmpty(slugSource, article.Title))
	if article.SEO.Title == "" {
		article.SEO.Title = article.Title
	}
	if article.SEO.Description == "" {
		article.SEO.Description = markup.Excerpt(article.Body, 155)
	}
	return article, nil
}

// ShortPost writes a social update for platform.
func (g *Generator) ShortPost(ctx context.Context, keyword, platform string) (domain.ShortPost, error) {
	if platform == domain.PlatformSite {
		return domain.ShortPost{}, fmt.Errorf("short post: %s needs a full article", platform)
	}
	reply, err := g.completer.Complete(ctx, systemPrompt, shortPostPrompt(keyword, platform))
	if err != nil {
		return domain.ShortPost{}, fmt.Errorf("%s post: %w", platform, err)
	}
	s := parseSections(reply)

	post := domain.ShortPost{
		Title: firstNonEmpty(s["TITLE"], keyword),
		Body:  s["BODY"],
		Metadata: domain.SocialMetadata{
			Platform:  platform,
			Hashtags:  splitHashtags(s["HASHTAGS"]),
			Subreddit: strings.TrimPrefix(firstLine(s["SUBREDDIT"]), "r/"),
		},
	}
	if post.Body == "" {
		return domain.ShortPost{}, fmt.Errorf("%s post: %w", platform, ErrMalformed)
	}
	return post, nil
}

// Quote returns a short line for a cover image.
func (g *Generator) Quote(ctx context.Context, keyword, context string) (string, error) {
	reply, err := g.completer.Complete(ctx, "", quotePrompt(keyword, context))
	if err != nil {
		return "", fmt.Errorf("quote: %w", err)
	}
	quote := strings.Trim(firstLine(reply), "\"'“”")
	if quote == "" {
		return "", fmt.Errorf("quote: %w", ErrMalformed)
	}
	return quote, nil
}

func clampSlug(raw string) string {
	slug := taxonomy.Slugify(raw)
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	return slug
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
