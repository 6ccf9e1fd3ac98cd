package cms

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/erdidoqan/postrella/internal/domain"
	"github.com/erdidoqan/postrella/internal/infrastructure/httpjson"
	"github.com/erdidoqan/postrella/internal/ports"
)

// DefaultBaseURL is the hosted CMS API.
const DefaultBaseURL = "https://cms.digitexa.com/api/v1"

// Client talks to the CMS REST API. Every call is scoped to a site and
// authorized with that site's API key.
type Client struct {
	api *httpjson.Client
}

var (
	_ ports.TaxonomyClient = (*Client)(nil)
	_ ports.MediaRegistrar = (*Client)(nil)
)

// NewClient builds a CMS client; limiter may be nil.
func NewClient(baseURL string, timeout time.Duration, limiter *rate.Limiter) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	opts := []httpjson.Option{httpjson.WithHeader("User-Agent", "Postrella/1.0")}
	if limiter != nil {
		opts = append(opts, httpjson.WithLimiter(limiter))
	}
	return &Client{api: httpjson.New(baseURL, timeout, opts...)}
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    *T     `json:"data"`
	Error   string `json:"error"`
}

func call[T any](ctx context.Context, c *Client, site domain.SiteCredentials, method, path string, body any, what string) (T, error) {
	var zero T
	if !site.Configured() {
		return zero, fmt.Errorf("%s: %w", what, domain.ErrNotConfigured)
	}

	var env envelope[T]
	err := c.api.Do(ctx, httpjson.Request{
		Method: method,
		Path:   path,
		Query:  url.Values{"site_id": {site.SiteID}},
		JSON:   body,
		Header: http.Header{"X-Api-Key": {site.APIKey}},
	}, &env)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", what, err)
	}
	if !env.Success || env.Data == nil {
		msg := strings.TrimSpace(env.Error)
		if msg == "" {
			msg = "empty response"
		}
		return zero, fmt.Errorf("%s: %w", what, errors.New(msg))
	}
	return *env.Data, nil
}

type termBody struct {
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

// ListCategories returns every category of the site.
func (c *Client) ListCategories(ctx context.Context, site domain.SiteCredentials) ([]domain.Term, error) {
	return call[[]domain.Term](ctx, c, site, http.MethodGet, "categories", nil, "list categories")
}

// CreateCategory creates a category with the given slug.
func (c *Client) CreateCategory(ctx context.Context, site domain.SiteCredentials, name, slug string) (domain.Term, error) {
	return call[domain.Term](ctx, c, site, http.MethodPost, "categories", termBody{Name: name, Slug: slug}, "create category")
}

// ListTags returns every tag of the site.
func (c *Client) ListTags(ctx context.Context, site domain.SiteCredentials) ([]domain.Term, error) {
	return call[[]domain.Term](ctx, c, site, http.MethodGet, "tags", nil, "list tags")
}

// CreateTag creates a tag with the given slug.
func (c *Client) CreateTag(ctx context.Context, site domain.SiteCredentials, name, slug string) (domain.Term, error) {
	return call[domain.Term](ctx, c, site, http.MethodPost, "tags", termBody{Name: name, Slug: slug}, "create tag")
}

type mediaBody struct {
	URL      string `json:"url"`
	Filename string `json:"filename,omitempty"`
	AltText  string `json:"alt_text,omitempty"`
	Caption  string `json:"caption,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

type mediaData struct {
	ID  int64  `json:"id"`
	URL string `json:"url"`
}

// RegisterMedia records an externally hosted image in the site media library.
func (c *Client) RegisterMedia(ctx context.Context, site domain.SiteCredentials, req ports.MediaRequest) (ports.Media, error) {
	data, err := call[mediaData](ctx, c, site, http.MethodPost, "media", mediaBody{
		URL:      req.URL,
		Filename: req.Filename,
		AltText:  req.AltText,
		Caption:  req.Caption,
		MimeType: req.MimeType,
		Width:    req.Width,
		Height:   req.Height,
	}, "register media")
	if err != nil {
		return ports.Media{}, err
	}
	if data.URL == "" {
		data.URL = req.URL
	}
	return ports.Media{ID: data.ID, URL: data.URL}, nil
}

// Post is the CMS create-post body.
type Post struct {
	Title            string  `json:"title"`
	Slug             string  `json:"slug,omitempty"`
	Content          string  `json:"content"`
	Status           string  `json:"status"`
	PublishedAt      int64   `json:"published_at"`
	SEOTitle         string  `json:"seo_title,omitempty"`
	SEODescription   string  `json:"seo_description,omitempty"`
	SEOKeywords      string  `json:"seo_keywords,omitempty"`
	FeaturedImageURL string  `json:"featured_image_url,omitempty"`
	AuthorID         int64   `json:"author_id,omitempty"`
	CategoryIDs      []int64 `json:"category_ids,omitempty"`
	TagIDs           []int64 `json:"tag_ids,omitempty"`
}

// PostResult identifies a created post.
type PostResult struct {
	ID    int64  `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

// CreatePost publishes a post on the site.
func (c *Client) CreatePost(ctx context.Context, site domain.SiteCredentials, post Post) (PostResult, error) {
	if post.Status == "" {
		post.Status = "published"
	}
	return call[PostResult](ctx, c, site, http.MethodPost, "posts", post, "create post")
}
