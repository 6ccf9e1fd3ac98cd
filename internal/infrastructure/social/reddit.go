package social

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/erdidoqan/postrella/internal/domain"
	"github.com/erdidoqan/postrella/internal/infrastructure/httpjson"
	"github.com/erdidoqan/postrella/internal/ports"
)

const (
	redditAPI   = "https://oauth.reddit.com"
	redditToken = "https://www.reddit.com/api/v1/access_token"
)

// Reddit submits self or link posts to a subreddit.
type Reddit struct {
	api       *httpjson.Client
	refresher *tokenRefresher
}

var _ ports.Publisher = (*Reddit)(nil)

// NewReddit builds the adapter.
func NewReddit(o Options) *Reddit {
	api := o.client(redditAPI)
	return &Reddit{api: api, refresher: newTokenRefresher(api, o, redditToken)}
}

func (r *Reddit) Platform() string { return domain.PlatformReddit }

// Publish submits to payload.Target. A payload with a link becomes a link post.
func (r *Reddit) Publish(ctx context.Context, creds domain.Credentials, payload domain.Payload) (domain.Receipt, error) {
	subreddit := strings.TrimPrefix(strings.TrimSpace(payload.Target), "r/")
	if subreddit == "" {
		return domain.Receipt{}, errors.New("reddit: subreddit required")
	}

	form := url.Values{
		"sr":       {subreddit},
		"title":    {truncate(payload.Title, 300)},
		"api_type": {"json"},
	}
	if payload.Link != "" {
		form.Set("kind", "link")
		form.Set("url", payload.Link)
	} else {
		form.Set("kind", "self")
		form.Set("text", payload.Body)
	}

	return withRefresh(ctx, r.refresher, creds, func(token string) (domain.Receipt, error) {
		var out struct {
			JSON struct {
				Errors [][]string `json:"errors"`
				Data   *struct {
					ID   string `json:"id"`
					Name string `json:"name"`
					URL  string `json:"url"`
				} `json:"data"`
			} `json:"json"`
		}
		err := r.api.Do(ctx, httpjson.Request{
			Method: http.MethodPost,
			Path:   "api/submit",
			Form:   form,
			Header: bearer(token),
		}, &out)
		if err != nil {
			return domain.Receipt{}, fmt.Errorf("reddit: %w", err)
		}
		if len(out.JSON.Errors) > 0 {
			return domain.Receipt{}, fmt.Errorf("reddit: %s", strings.Join(out.JSON.Errors[0], ": "))
		}
		if out.JSON.Data == nil {
			return domain.Receipt{}, errors.New("reddit: empty submit response")
		}
		link := out.JSON.Data.URL
		if strings.HasPrefix(link, "/") {
			link = "https://reddit.com" + link
		}
		return domain.Receipt{RemoteID: out.JSON.Data.ID, RemoteURL: link}, nil
	})
}
