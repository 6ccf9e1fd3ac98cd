package social

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erdidoqan/postrella/internal/domain"
)

func pinterestServer(t *testing.T, rejectAll bool, refreshes *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(refreshes, 1)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client", user)
		assert.Equal(t, "secret", pass)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "old-refresh", r.PostForm.Get("refresh_token"))
		_, _ = w.Write([]byte(`{"access_token":"fresh","refresh_token":"new-refresh"}`))
	})
	mux.HandleFunc("/pins", func(w http.ResponseWriter, r *http.Request) {
		if rejectAll || r.Header.Get("Authorization") != "Bearer fresh" {
			http.Error(w, "expired", http.StatusUnauthorized)
			return
		}
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "board-1", body["board_id"])
		_, _ = w.Write([]byte(`{"id":"p1"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestPinterestRefreshesOnceOn401(t *testing.T) {
	t.Parallel()

	var refreshes int32
	srv := pinterestServer(t, false, &refreshes)
	p := NewPinterest(Options{
		BaseURL:      srv.URL,
		TokenURL:     srv.URL + "/oauth/token",
		ClientID:     "client",
		ClientSecret: "secret",
		Timeout:      time.Second,
	})

	receipt, err := p.Publish(context.Background(),
		domain.Credentials{AccessToken: "stale", RefreshToken: "old-refresh"},
		domain.Payload{Title: "Soup", Target: "board-1", MediaURL: "https://img.example/1.png", Link: "https://site/soup"})
	require.NoError(t, err)
	assert.Equal(t, "p1", receipt.RemoteID)
	assert.Equal(t, "https://pinterest.com/pin/p1", receipt.RemoteURL)
	require.NotNil(t, receipt.Rotated)
	assert.Equal(t, "fresh", receipt.Rotated.AccessToken)
	assert.Equal(t, "new-refresh", receipt.Rotated.RefreshToken)
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshes))
}

func TestPinterestSecondFailurePropagates(t *testing.T) {
	t.Parallel()

	var refreshes int32
	srv := pinterestServer(t, true, &refreshes)
	p := NewPinterest(Options{BaseURL: srv.URL, TokenURL: srv.URL + "/oauth/token", ClientID: "client", ClientSecret: "secret"})

	receipt, err := p.Publish(context.Background(),
		domain.Credentials{AccessToken: "stale", RefreshToken: "old-refresh"},
		domain.Payload{Target: "board-1", MediaURL: "https://img.example/1.png"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshes))

	// the refresh succeeded, so the rotated tokens still come back
	require.NotNil(t, receipt.Rotated)
	assert.Equal(t, "fresh", receipt.Rotated.AccessToken)
	assert.Equal(t, "new-refresh", receipt.Rotated.RefreshToken)
}

func TestPinterestRequiresBoardAndImage(t *testing.T) {
	t.Parallel()

	p := NewPinterest(Options{BaseURL: "http://127.0.0.1:1"})
	_, err := p.Publish(context.Background(), domain.Credentials{}, domain.Payload{MediaURL: "x"})
	assert.Error(t, err)
	_, err = p.Publish(context.Background(), domain.Credentials{}, domain.Payload{Target: "b"})
	assert.Error(t, err)
}

func TestRedditSubmitErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "cooking", r.PostForm.Get("sr"))
		assert.Equal(t, "self", r.PostForm.Get("kind"))
		_, _ = w.Write([]byte(`{"json":{"errors":[["SUBREDDIT_NOEXIST","that subreddit doesn't exist"]]}}`))
	}))
	defer srv.Close()

	_, err := NewReddit(Options{BaseURL: srv.URL}).Publish(context.Background(),
		domain.Credentials{AccessToken: "t"},
		domain.Payload{Title: "Soup", Body: "Try it", Target: "r/cooking"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SUBREDDIT_NOEXIST")
}

func TestRedditSubmitSuccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"json":{"errors":[],"data":{"id":"abc","name":"t3_abc","url":"https://www.reddit.com/r/cooking/comments/abc/"}}}`))
	}))
	defer srv.Close()

	receipt, err := NewReddit(Options{BaseURL: srv.URL}).Publish(context.Background(),
		domain.Credentials{AccessToken: "t"},
		domain.Payload{Title: "Soup", Link: "https://site/soup", Target: "cooking"})
	require.NoError(t, err)
	assert.Equal(t, "abc", receipt.RemoteID)
	assert.Nil(t, receipt.Rotated)
}

func TestMastodonDoesNotRefresh(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "revoked", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewMastodon(Options{}).Publish(context.Background(),
		domain.Credentials{AccessToken: "t", RefreshToken: "r", InstanceURL: srv.URL + "/"},
		domain.Payload{Body: "hello"})
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestXPublish(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tweets", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":{"id":"1799","text":"hi"}}`))
	}))
	defer srv.Close()

	receipt, err := NewX(Options{BaseURL: srv.URL}).Publish(context.Background(),
		domain.Credentials{AccessToken: "t"}, domain.Payload{Body: "hi", Tags: []string{"fall"}})
	require.NoError(t, err)
	assert.Equal(t, "https://x.com/i/web/status/1799", receipt.RemoteURL)
}

func TestComposeTweetDropsHashtagsFirst(t *testing.T) {
	t.Parallel()

	body := strings.Repeat("a", 265)
	got := ComposeTweet(body, []string{"one", "#two", "three"}, "")
	assert.LessOrEqual(t, len([]rune(got)), 280)
	assert.True(t, strings.HasPrefix(got, body))
	assert.Contains(t, got, "#one")
	assert.NotContains(t, got, "#three")

	long := ComposeTweet(strings.Repeat("b", 400), nil, "https://example.com/post")
	assert.LessOrEqual(t, len([]rune(long)), 280)
	assert.True(t, strings.HasSuffix(long, "https://example.com/post"))
}
