package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/erdidoqan/postrella/internal/config"
	"github.com/erdidoqan/postrella/internal/domain"
	"github.com/erdidoqan/postrella/internal/infrastructure/lock"
	"github.com/erdidoqan/postrella/internal/infrastructure/storage"
	"github.com/erdidoqan/postrella/internal/logging"
	"github.com/erdidoqan/postrella/internal/ports"
	"github.com/erdidoqan/postrella/internal/publish"
)

type fakeGenerator struct {
	mu sync.Mutex

	strategyErr error
	articleErr  error
	shortErr    map[string]error
	quoteErr    error
	article     domain.Article
	calls       map[string]int
	// beforeArticle runs inside Article, before the article is returned.
	beforeArticle func()
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		shortErr: map[string]error{},
		calls:    map[string]int{},
		article: domain.Article{
			Title:             "Fall Recipes to Try",
			Slug:              "fall-recipes",
			Body:              "<p>Warm soups and apple pies for cooler evenings.</p>",
			SEO:               domain.SEO{Title: "Fall Recipes", Description: "Seasonal dishes for autumn"},
			SuggestedCategory: "Food",
			SuggestedTags:     []string{"Autumn", "Baking"},
		},
	}
}

func (g *fakeGenerator) called(name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[name]
}

func (g *fakeGenerator) record(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls[name]++
}

func (g *fakeGenerator) Strategy(_ context.Context, keyword string) (domain.Strategy, error) {
	g.record("strategy")
	if g.strategyErr != nil {
		return domain.Strategy{}, g.strategyErr
	}
	return domain.Strategy{Intent: "informational", SuggestedTitle: keyword, Slug: "fall-recipes"}, nil
}

func (g *fakeGenerator) Article(_ context.Context, _ ports.ArticleRequest) (domain.Article, error) {
	g.record("article")
	if g.beforeArticle != nil {
		g.beforeArticle()
	}
	if g.articleErr != nil {
		return domain.Article{}, g.articleErr
	}
	return g.article, nil
}

func (g *fakeGenerator) ShortPost(_ context.Context, keyword, platform string) (domain.ShortPost, error) {
	g.record("short:" + platform)
	if err := g.shortErr[platform]; err != nil {
		return domain.ShortPost{}, err
	}
	return domain.ShortPost{
		Title:    keyword,
		Body:     "Try these " + keyword,
		Metadata: domain.SocialMetadata{Hashtags: []string{"#food"}},
	}, nil
}

func (g *fakeGenerator) Quote(_ context.Context, _, _ string) (string, error) {
	g.record("quote")
	if g.quoteErr != nil {
		return "", g.quoteErr
	}
	return "Cozy food for crisp days", nil
}

type fakeCMS struct {
	mu         sync.Mutex
	categories []domain.Term
	tags       []domain.Term
	listErr    error
	nextID     int64
	created    []string
}

func (c *fakeCMS) ListCategories(context.Context, domain.SiteCredentials) ([]domain.Term, error) {
	if c.listErr != nil {
		return nil, c.listErr
	}
	return c.categories, nil
}

func (c *fakeCMS) ListTags(context.Context, domain.SiteCredentials) ([]domain.Term, error) {
	if c.listErr != nil {
		return nil, c.listErr
	}
	return c.tags, nil
}

func (c *fakeCMS) create(name, slug string) domain.Term {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	c.created = append(c.created, name)
	return domain.Term{ID: 100 + c.nextID, Name: name, Slug: slug}
}

func (c *fakeCMS) CreateCategory(_ context.Context, _ domain.SiteCredentials, name, slug string) (domain.Term, error) {
	return c.create(name, slug), nil
}

func (c *fakeCMS) CreateTag(_ context.Context, _ domain.SiteCredentials, name, slug string) (domain.Term, error) {
	return c.create(name, slug), nil
}

type fakeMedia struct {
	err  error
	last ports.MediaRequest
}

func (m *fakeMedia) RegisterMedia(_ context.Context, _ domain.SiteCredentials, req ports.MediaRequest) (ports.Media, error) {
	m.last = req
	if m.err != nil {
		return ports.Media{}, m.err
	}
	return ports.Media{ID: 7, URL: "https://cdn.example.com/" + req.Filename}, nil
}

type fakeImages struct{}

func (fakeImages) BuildImageURL(cloudName, keyword, text string) string {
	return "https://img.example.com/" + cloudName + "/" + keyword
}

type fakePublisher struct {
	mu       sync.Mutex
	platform string
	receipt  domain.Receipt
	err      error
	calls    int
	payloads []domain.Payload
}

func (p *fakePublisher) Platform() string { return p.platform }

func (p *fakePublisher) Publish(_ context.Context, _ domain.Credentials, payload domain.Payload) (domain.Receipt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.payloads = append(p.payloads, payload)
	if p.err != nil {
		return domain.Receipt{}, p.err
	}
	return p.receipt, nil
}

func (p *fakePublisher) last() domain.Payload {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.payloads) == 0 {
		return domain.Payload{}
	}
	return p.payloads[len(p.payloads)-1]
}

type harness struct {
	store      *storage.MemoryStore
	gen        *fakeGenerator
	cms        *fakeCMS
	media      *fakeMedia
	publishers map[string]*fakePublisher
	deps       PipelineDeps
	pipeline   *Pipeline
}

func newHarness(t *testing.T, mutate ...func(*PipelineDeps)) *harness {
	t.Helper()

	h := &harness{
		store:      storage.NewMemoryStore(),
		gen:        newFakeGenerator(),
		cms:        &fakeCMS{},
		media:      &fakeMedia{},
		publishers: map[string]*fakePublisher{},
	}

	registry := publish.NewRegistry()
	for _, name := range []string{domain.PlatformSite, domain.PlatformX, domain.PlatformReddit, domain.PlatformPinterest, domain.PlatformMastodon} {
		p := &fakePublisher{platform: name, receipt: domain.Receipt{RemoteID: name + "-1", RemoteURL: "https://" + name + ".example.com/1"}}
		h.publishers[name] = p
		registry.Register(p)
	}
	h.publishers[domain.PlatformSite].receipt = domain.Receipt{RemoteID: "101", RemoteURL: "https://blog.example.com/fall-recipes"}

	logger := logging.Discard()
	h.deps = PipelineDeps{
		Store:      h.store,
		Generator:  h.gen,
		Taxonomy:   h.cms,
		Media:      h.media,
		Images:     fakeImages{},
		Dispatcher: publish.NewDispatcher(registry, h.store, h.store, logger),
		Lock:       lock.NewLocal(),
		Logger:     logger,
		Limits: config.PipelineConfig{
			JobLimit: 5, JobCap: 20,
			SweepLimit: 5, SweepCap: 20,
			PublishLimit: 10, PublishCap: 50,
			MaxAttempts: 3,
			AutoPin:     true,
		},
		Defaults: domain.Settings{
			Site:          domain.SiteCredentials{SiteID: "site-1", APIKey: "key", PublicURL: "https://blog.example.com"},
			AuthorID:      1,
			BoardMappings: map[string]string{},
		},
		Subreddit: "cooking",
	}
	for _, m := range mutate {
		m(&h.deps)
	}
	h.pipeline = NewPipeline(h.deps)
	return h
}

func withCovers(d *PipelineDeps) {
	d.Defaults.ImageCloudName = "demo"
	d.Defaults.BoardMappings = map[string]string{domain.DefaultBoardKey: "board-1"}
}

var errBoom = errors.New("boom")
