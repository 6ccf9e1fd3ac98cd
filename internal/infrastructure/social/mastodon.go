package social

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/erdidoqan/postrella/internal/domain"
	"github.com/erdidoqan/postrella/internal/infrastructure/httpjson"
	"github.com/erdidoqan/postrella/internal/ports"
)

const mastodonMaxChars = 500

// Mastodon posts statuses to the account's instance. Tokens are long lived
// and never refreshed.
type Mastodon struct {
	opts Options
}

var _ ports.Publisher = (*Mastodon)(nil)

// NewMastodon builds the adapter; the instance comes from the credentials.
func NewMastodon(o Options) *Mastodon {
	o.BaseURL = ""
	return &Mastodon{opts: o}
}

func (m *Mastodon) Platform() string { return domain.PlatformMastodon }

// Publish posts a public status.
func (m *Mastodon) Publish(ctx context.Context, creds domain.Credentials, payload domain.Payload) (domain.Receipt, error) {
	instance := strings.TrimRight(creds.InstanceURL, "/")
	if instance == "" {
		return domain.Receipt{}, errors.New("mastodon: instance url required")
	}

	status := ComposeTweet(payload.Body, payload.Tags, payload.Link)
	status = truncate(status, mastodonMaxChars)

	var out struct {
		ID  string `json:"id"`
		URL string `json:"url"`
		URI string `json:"uri"`
	}
	err := m.opts.client(instance).Do(ctx, httpjson.Request{
		Method: http.MethodPost,
		Path:   "api/v1/statuses",
		JSON:   map[string]string{"status": status, "visibility": "public"},
		Header: bearer(creds.AccessToken),
	}, &out)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("mastodon: %w", err)
	}

	url := out.URL
	if url == "" {
		url = out.URI
	}
	return domain.Receipt{RemoteID: out.ID, RemoteURL: url}, nil
}
