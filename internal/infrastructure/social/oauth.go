package social

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/erdidoqan/postrella/internal/domain"
	"github.com/erdidoqan/postrella/internal/infrastructure/httpjson"
)

const userAgent = "Postrella/1.0"

// Options configures a platform adapter. Empty URLs fall back to the
// platform's public endpoints.
type Options struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	Limiter      *rate.Limiter
}

func (o Options) client(defaultBase string) *httpjson.Client {
	base := o.BaseURL
	if base == "" {
		base = defaultBase
	}
	opts := []httpjson.Option{httpjson.WithHeader("User-Agent", userAgent)}
	if o.Limiter != nil {
		opts = append(opts, httpjson.WithLimiter(o.Limiter))
	}
	return httpjson.New(base, o.Timeout, opts...)
}

// tokenRefresher exchanges a refresh token using HTTP Basic client auth.
type tokenRefresher struct {
	api          *httpjson.Client
	tokenURL     string
	clientID     string
	clientSecret string
}

func newTokenRefresher(api *httpjson.Client, o Options, defaultTokenURL string) *tokenRefresher {
	tokenURL := o.TokenURL
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}
	return &tokenRefresher{api: api, tokenURL: tokenURL, clientID: o.ClientID, clientSecret: o.ClientSecret}
}

func (r *tokenRefresher) refresh(ctx context.Context, creds domain.Credentials) (domain.Credentials, error) {
	if creds.RefreshToken == "" {
		return domain.Credentials{}, errors.New("no refresh token")
	}
	basic := base64.StdEncoding.EncodeToString([]byte(r.clientID + ":" + r.clientSecret))

	var out struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	err := r.api.Do(ctx, httpjson.Request{
		Method: http.MethodPost,
		Path:   r.tokenURL,
		Form: url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {creds.RefreshToken},
		},
		Header: http.Header{"Authorization": {"Basic " + basic}},
	}, &out)
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("refresh token: %w", err)
	}
	if out.AccessToken == "" {
		return domain.Credentials{}, errors.New("refresh token: empty access token")
	}

	rotated := creds
	rotated.AccessToken = out.AccessToken
	if out.RefreshToken != "" {
		rotated.RefreshToken = out.RefreshToken
	}
	return rotated, nil
}

// withRefresh runs call once, and on a 401 refreshes the token and retries
// exactly once. A second failure is returned to the caller together with
// the rotated credentials so they can still be stored.
func withRefresh(ctx context.Context, r *tokenRefresher, creds domain.Credentials, call func(token string) (domain.Receipt, error)) (domain.Receipt, error) {
	receipt, err := call(creds.AccessToken)
	if err == nil || r == nil || !httpjson.IsUnauthorized(err) {
		return receipt, err
	}

	rotated, rerr := r.refresh(ctx, creds)
	if rerr != nil {
		return domain.Receipt{}, fmt.Errorf("%w (%v)", err, rerr)
	}

	receipt, err = call(rotated.AccessToken)
	if err != nil {
		return domain.Receipt{Rotated: &rotated}, err
	}
	receipt.Rotated = &rotated
	return receipt, nil
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": {"Bearer " + token}}
}
