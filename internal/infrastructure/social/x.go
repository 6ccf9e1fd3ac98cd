package social

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/erdidoqan/postrella/internal/domain"
	"github.com/erdidoqan/postrella/internal/infrastructure/httpjson"
	"github.com/erdidoqan/postrella/internal/ports"
)

const (
	xAPI      = "https://api.twitter.com/2"
	xToken    = "https://api.twitter.com/2/oauth2/token"
	xMaxChars = 280
)

// X posts tweets with an OAuth2 user token.
type X struct {
	api       *httpjson.Client
	refresher *tokenRefresher
}

var _ ports.Publisher = (*X)(nil)

// NewX builds the adapter.
func NewX(o Options) *X {
	api := o.client(xAPI)
	return &X{api: api, refresher: newTokenRefresher(api, o, xToken)}
}

func (x *X) Platform() string { return domain.PlatformX }

// Publish posts body, hashtags and link, trimmed to the tweet limit.
func (x *X) Publish(ctx context.Context, creds domain.Credentials, payload domain.Payload) (domain.Receipt, error) {
	text := ComposeTweet(payload.Body, payload.Tags, payload.Link)
	if text == "" {
		return domain.Receipt{}, fmt.Errorf("x: empty post")
	}

	return withRefresh(ctx, x.refresher, creds, func(token string) (domain.Receipt, error) {
		var out struct {
			Data struct {
				ID string `json:"id"`
			} `json:"data"`
		}
		err := x.api.Do(ctx, httpjson.Request{
			Method: http.MethodPost,
			Path:   "tweets",
			JSON:   map[string]string{"text": text},
			Header: bearer(token),
		}, &out)
		if err != nil {
			return domain.Receipt{}, fmt.Errorf("x: %w", err)
		}
		receipt := domain.Receipt{RemoteID: out.Data.ID}
		if out.Data.ID != "" {
			receipt.RemoteURL = "https://x.com/i/web/status/" + out.Data.ID
		}
		return receipt, nil
	})
}

// ComposeTweet joins the parts and keeps the result under the length limit,
// dropping hashtags before cutting the body.
func ComposeTweet(body string, hashtags []string, link string) string {
	body = strings.TrimSpace(body)
	tags := make([]string, 0, len(hashtags))
	for _, h := range hashtags {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if !strings.HasPrefix(h, "#") {
			h = "#" + h
		}
		tags = append(tags, h)
	}

	build := func(b string, t []string) string {
		parts := []string{b}
		if len(t) > 0 {
			parts = append(parts, strings.Join(t, " "))
		}
		if link != "" {
			parts = append(parts, link)
		}
		return strings.TrimSpace(strings.Join(parts, "\n\n"))
	}

	for n := len(tags); n >= 0; n-- {
		if s := build(body, tags[:n]); len([]rune(s)) <= xMaxChars {
			return s
		}
	}

	room := xMaxChars
	if link != "" {
		room -= len([]rune(link)) + 2
	}
	return build(truncate(body, room), nil)
}
