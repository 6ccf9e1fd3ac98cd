package social

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/erdidoqan/postrella/internal/domain"
	"github.com/erdidoqan/postrella/internal/infrastructure/httpjson"
	"github.com/erdidoqan/postrella/internal/ports"
)

const (
	pinterestAPI   = "https://api.pinterest.com/v5"
	pinterestToken = "https://api.pinterest.com/v5/oauth/token"
)

// Pinterest creates pins on a board.
type Pinterest struct {
	api       *httpjson.Client
	refresher *tokenRefresher
}

var _ ports.Publisher = (*Pinterest)(nil)

// NewPinterest builds the adapter.
func NewPinterest(o Options) *Pinterest {
	api := o.client(pinterestAPI)
	return &Pinterest{api: api, refresher: newTokenRefresher(api, o, pinterestToken)}
}

func (p *Pinterest) Platform() string { return domain.PlatformPinterest }

// Publish pins payload.MediaURL to the board in payload.Target.
func (p *Pinterest) Publish(ctx context.Context, creds domain.Credentials, payload domain.Payload) (domain.Receipt, error) {
	if payload.Target == "" {
		return domain.Receipt{}, errors.New("pinterest: board id required")
	}
	if payload.MediaURL == "" {
		return domain.Receipt{}, errors.New("pinterest: image url required")
	}

	body := map[string]any{
		"board_id":    payload.Target,
		"title":       truncate(payload.Title, 100),
		"description": truncate(payload.Description, 500),
		"link":        payload.Link,
		"media_source": map[string]string{
			"source_type": "image_url",
			"url":         payload.MediaURL,
		},
	}

	return withRefresh(ctx, p.refresher, creds, func(token string) (domain.Receipt, error) {
		var out struct {
			ID   string `json:"id"`
			Link string `json:"link"`
		}
		err := p.api.Do(ctx, httpjson.Request{
			Method: http.MethodPost,
			Path:   "pins",
			JSON:   body,
			Header: bearer(token),
		}, &out)
		if err != nil {
			return domain.Receipt{}, fmt.Errorf("pinterest: %w", err)
		}
		url := out.Link
		if url == "" && out.ID != "" {
			url = "https://pinterest.com/pin/" + out.ID
		}
		return domain.Receipt{RemoteID: out.ID, RemoteURL: url}, nil
	})
}
