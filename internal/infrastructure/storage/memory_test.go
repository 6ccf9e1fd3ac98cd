package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erdidoqan/postrella/internal/domain"
)

func TestMemoryStoreOutputUniqueness(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()
	topic := s.AddTopic(domain.Topic{Keyword: "fall recipes"})

	first, err := s.InsertOutput(ctx, domain.ContentOutput{TopicID: topic.ID, Target: "site", Title: "A"})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)
	assert.Equal(t, domain.OutputDraft, first.Status)

	_, err = s.InsertOutput(ctx, domain.ContentOutput{TopicID: topic.ID, Target: "site", Title: "B"})
	assert.ErrorIs(t, err, domain.ErrOutputExists)

	_, err = s.InsertOutput(ctx, domain.ContentOutput{TopicID: topic.ID, Target: "x"})
	require.NoError(t, err)

	exists, err := s.OutputExists(ctx, topic.ID, "site")
	require.NoError(t, err)
	assert.True(t, exists)

	outputs, err := s.ListOutputs(ctx, topic.ID)
	require.NoError(t, err)
	require.Len(t, outputs, 2)
	assert.Equal(t, "A", outputs[0].Title)
}

func TestMemoryStoreTopicForwardOnly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()
	topic := s.AddTopic(domain.Topic{Keyword: "k"})

	require.NoError(t, s.TransitionTopic(ctx, topic.ID, domain.TopicProcessing))
	require.NoError(t, s.TransitionTopic(ctx, topic.ID, domain.TopicPublished))
	assert.ErrorIs(t, s.TransitionTopic(ctx, topic.ID, domain.TopicPending), domain.ErrInvalidTransition)
	assert.ErrorIs(t, s.TransitionTopic(ctx, 999, domain.TopicFailed), domain.ErrNotFound)

	got, err := s.GetTopic(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TopicPublished, got.Status)
}

func TestMemoryStorePendingTopicsOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	low := s.AddTopic(domain.Topic{Keyword: "low", Score: 1, FetchedAt: base})
	older := s.AddTopic(domain.Topic{Keyword: "older", Score: 5, FetchedAt: base})
	newer := s.AddTopic(domain.Topic{Keyword: "newer", Score: 5, FetchedAt: base.Add(time.Hour)})
	s.AddTopic(domain.Topic{Keyword: "done", Score: 9, Status: domain.TopicPublished})

	topics, err := s.PendingTopics(ctx, 10)
	require.NoError(t, err)
	require.Len(t, topics, 3)
	assert.Equal(t, []int64{newer.ID, older.ID, low.ID}, []int64{topics[0].ID, topics[1].ID, topics[2].ID})

	topics, err = s.PendingTopics(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, topics, 1)
}

func TestMemoryStoreJobLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()
	topic := s.AddTopic(domain.Topic{Keyword: "k"})
	now := time.Now()

	job, err := s.CreateJob(ctx, domain.ContentJob{TopicID: topic.ID, Targets: []string{"site"}, MaxAttempts: 2})
	require.NoError(t, err)

	started, err := s.StartJob(ctx, job.ID, now)
	require.NoError(t, err)
	assert.Equal(t, 1, started.Attempts)
	assert.Equal(t, domain.JobRunning, started.Status)

	_, err = s.StartJob(ctx, job.ID, now)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	require.NoError(t, s.FinishJob(ctx, job.ID, domain.JobFailed, "boom", now))
	require.NoError(t, s.RequeueJob(ctx, job.ID))

	_, err = s.StartJob(ctx, job.ID, now)
	require.NoError(t, err)
	require.NoError(t, s.FinishJob(ctx, job.ID, domain.JobFailed, "boom again", now))

	assert.ErrorIs(t, s.RequeueJob(ctx, job.ID), domain.ErrAttemptsExhausted)

	pending, err := s.PendingJobs(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestMemoryStorePendingJobsSkipsExhausted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()
	topic := s.AddTopic(domain.Topic{Keyword: "k"})

	fresh, err := s.CreateJob(ctx, domain.ContentJob{TopicID: topic.ID, Targets: []string{"x"}, MaxAttempts: 3})
	require.NoError(t, err)
	_, err = s.CreateJob(ctx, domain.ContentJob{TopicID: topic.ID, Targets: []string{"x"}, MaxAttempts: 1, Attempts: 1})
	require.NoError(t, err)

	jobs, err := s.PendingJobs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, fresh.ID, jobs[0].ID)
}

func TestMemoryStorePublishSettleAndDue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()
	topic := s.AddTopic(domain.Topic{Keyword: "k"})
	out, err := s.InsertOutput(ctx, domain.ContentOutput{TopicID: topic.ID, Target: "x"})
	require.NoError(t, err)

	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	due, err := s.InsertPublish(ctx, domain.Publish{OutputID: out.ID, Platform: "x", Status: domain.PublishPending, ScheduledAt: &past})
	require.NoError(t, err)
	_, err = s.InsertPublish(ctx, domain.Publish{OutputID: out.ID, Platform: "reddit", Status: domain.PublishPending, ScheduledAt: &future})
	require.NoError(t, err)

	list, err := s.DuePublishes(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, due.ID, list[0].ID)

	rec := list[0]
	require.NoError(t, rec.Fail("rate limited"))
	require.NoError(t, s.SettlePublish(ctx, rec))
	assert.ErrorIs(t, s.SettlePublish(ctx, rec), domain.ErrInvalidTransition)

	all, err := s.ListPublishes(ctx, out.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, domain.PublishFailed, all[0].Status)
	assert.Equal(t, 1, all[0].RetryCount)

	_, err = s.InsertPublish(ctx, domain.Publish{OutputID: 12345, Platform: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryStoreAccountTokens(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()
	s.AddAccount(domain.Account{Platform: "pinterest", AccessToken: "old", RefreshToken: "r1", Active: false})
	acct := s.AddAccount(domain.Account{Platform: "pinterest", AccessToken: "a1", RefreshToken: "r1", Active: true})

	got, err := s.ActiveAccount(ctx, "pinterest")
	require.NoError(t, err)
	assert.Equal(t, acct.ID, got.ID)

	require.NoError(t, s.UpdateAccountTokens(ctx, acct.ID, domain.Credentials{AccessToken: "a2"}))
	got, err = s.ActiveAccount(ctx, "pinterest")
	require.NoError(t, err)
	assert.Equal(t, "a2", got.AccessToken)
	assert.Equal(t, "r1", got.RefreshToken)

	_, err = s.ActiveAccount(ctx, "reddit")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
