package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erdidoqan/postrella/internal/domain"
	"github.com/erdidoqan/postrella/internal/publish"
	"github.com/erdidoqan/postrella/internal/usecase"
)

func memoryEnv(t *testing.T) {
	t.Helper()
	t.Setenv("POSTRELLA_CONFIG", "")
	t.Setenv("DATABASE_DSN", "memory")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("GENERATOR_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("LOG_LEVEL", "error")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCommandTree(t *testing.T) {
	root := newRootCmd(&bytes.Buffer{})
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "migrate", "enqueue", "retry-job", "run-jobs", "auto-publish", "publish-due", "publish"} {
		assert.Contains(t, names, want)
	}
}

func TestMigrateWithMemoryStore(t *testing.T) {
	memoryEnv(t)
	out, err := run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema is up to date")
}

func TestRunJobsWithoutGenerator(t *testing.T) {
	memoryEnv(t)
	_, err := run(t, "run-jobs", "--limit", "2")
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestEnqueueUnknownTopic(t *testing.T) {
	memoryEnv(t)
	_, err := run(t, "enqueue", "--topic", "99", "--targets", "site,x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPublishRejectsBadTime(t *testing.T) {
	memoryEnv(t)
	_, err := run(t, "publish", "--output", "1", "--platforms", "x", "--at", "tomorrow")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --at")
}

func TestPrinters(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var buf bytes.Buffer
	printSummary(&buf, usecase.SweepJobs, usecase.Summary{RunID: "r1", Processed: 3, Failed: 1})
	assert.Equal(t, "jobs run r1: 3 processed, 1 failed, 0 skipped\n", buf.String())

	buf.Reset()
	printResults(&buf, []publish.Result{
		{Platform: "x", Err: errors.New("rate limited")},
		{Platform: "reddit", Publish: domain.Publish{Status: domain.PublishPublished, RemoteURL: "https://reddit.com/r1"}},
		{Platform: "mastodon", Publish: domain.Publish{Status: domain.PublishPending}},
	})
	assert.Contains(t, buf.String(), "failed rate limited")
	assert.Contains(t, buf.String(), "published https://reddit.com/r1")
	assert.Contains(t, buf.String(), "pending")
}
