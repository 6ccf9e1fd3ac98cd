package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erdidoqan/postrella/internal/domain"
	"github.com/erdidoqan/postrella/internal/infrastructure/storage"
	"github.com/erdidoqan/postrella/internal/logging"
	"github.com/erdidoqan/postrella/internal/publish"
)

func TestAutoPublishFallRecipes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	topic := h.store.AddTopic(domain.Topic{Keyword: "fall recipes", Score: 87})

	sum, err := h.pipeline.ProcessPendingTopicsAutoPublish(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Processed)
	assert.Zero(t, sum.Failed)
	assert.NotEmpty(t, sum.RunID)

	outputs, err := h.store.ListOutputs(ctx, topic.ID)
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.Equal(t, domain.PlatformSite, outputs[0].Target)
	assert.Equal(t, domain.OutputPublished, outputs[0].Status)
	assert.Nil(t, outputs[0].JobID)

	meta, ok := outputs[0].Site()
	require.True(t, ok)
	assert.Len(t, meta.CategoryIDs, 1)
	assert.Len(t, meta.TagIDs, 2)
	assert.Equal(t, []string{"Food", "Autumn", "Baking"}, h.cms.created)

	records, err := h.store.ListPublishes(ctx, outputs[0].ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.PlatformSite, records[0].Platform)
	assert.Equal(t, domain.PublishPublished, records[0].Status)
	assert.Equal(t, "https://blog.example.com/fall-recipes", records[0].RemoteURL)

	got, err := h.store.GetTopic(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TopicPublished, got.Status)
	require.NotNil(t, got.Metadata.Strategy)
	assert.Equal(t, "informational", got.Metadata.Strategy.Intent)

	sitePayload := h.publishers[domain.PlatformSite].last()
	require.NotNil(t, sitePayload.Site)
	assert.Equal(t, "fall-recipes", sitePayload.Site.Slug)
	assert.Equal(t, int64(1), sitePayload.Site.AuthorID)
}

func TestAutoPublishSitePublishFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	h.publishers[domain.PlatformSite].err = errors.New("cms unavailable")
	topic := h.store.AddTopic(domain.Topic{Keyword: "fall recipes", Score: 87})

	sum, err := h.pipeline.ProcessPendingTopicsAutoPublish(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)

	outputs, err := h.store.ListOutputs(ctx, topic.ID)
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.Equal(t, domain.OutputReady, outputs[0].Status)

	records, err := h.store.ListPublishes(ctx, outputs[0].ID)
	require.NoError(t, err)
	assert.Empty(t, records)

	got, err := h.store.GetTopic(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TopicFailed, got.Status)
}

func TestAutoPublishSkipsHandledTopic(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	topic := h.store.AddTopic(domain.Topic{Keyword: "fall recipes"})
	_, err := h.store.InsertOutput(ctx, domain.ContentOutput{TopicID: topic.ID, Target: domain.PlatformSite, Title: "existing"})
	require.NoError(t, err)

	sum, err := h.pipeline.ProcessPendingTopicsAutoPublish(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Skipped)
	assert.Zero(t, h.gen.called("strategy"))
	assert.Zero(t, h.gen.called("article"))

	outputs, err := h.store.ListOutputs(ctx, topic.ID)
	require.NoError(t, err)
	assert.Len(t, outputs, 1)

	got, err := h.store.GetTopic(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TopicPublished, got.Status)

	sum, err = h.pipeline.ProcessPendingTopicsAutoPublish(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, Summary{RunID: sum.RunID}, sum)
}

func TestAutoPublishRunTwiceWithTopicPendingAgain(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	topic := h.store.AddTopic(domain.Topic{Keyword: "fall recipes", Score: 87})

	sum, err := h.pipeline.ProcessPendingTopicsAutoPublish(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 1, sum.Processed)

	// the topic shows up as pending again, as after a re-import
	h.store.AddTopic(domain.Topic{ID: topic.ID, Keyword: topic.Keyword, Score: topic.Score})

	sum, err = h.pipeline.ProcessPendingTopicsAutoPublish(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Skipped)
	assert.Zero(t, sum.Processed)

	assert.Equal(t, 1, h.gen.called("article"))
	assert.Equal(t, 1, h.publishers[domain.PlatformSite].calls)

	outputs, err := h.store.ListOutputs(ctx, topic.ID)
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	records, err := h.store.ListPublishes(ctx, outputs[0].ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	got, err := h.store.GetTopic(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TopicPublished, got.Status)
}

func TestAutoPublishOutputInsertedConcurrently(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	topic := h.store.AddTopic(domain.Topic{Keyword: "fall recipes"})
	h.gen.beforeArticle = func() {
		_, err := h.store.InsertOutput(ctx, domain.ContentOutput{TopicID: topic.ID, Target: domain.PlatformSite, Title: "other run"})
		require.NoError(t, err)
	}

	sum, err := h.pipeline.ProcessPendingTopicsAutoPublish(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Skipped)
	assert.Zero(t, h.publishers[domain.PlatformSite].calls)

	got, err := h.store.GetTopic(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TopicPublished, got.Status)

	sum, err = h.pipeline.ProcessPendingTopicsAutoPublish(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, Summary{RunID: sum.RunID}, sum)
	assert.Equal(t, 1, h.gen.called("article"))
}

type failingPublishes struct {
	*storage.MemoryStore
}

func (failingPublishes) InsertPublish(context.Context, domain.Publish) (domain.Publish, error) {
	return domain.Publish{}, errBoom
}

func TestAutoPublishKeepsLiveArticleWhenRecordFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, func(d *PipelineDeps) {
		store := d.Store.(*storage.MemoryStore)
		d.Dispatcher = publish.NewDispatcher(d.Dispatcher.Registry(), failingPublishes{store}, store, logging.Discard())
	})
	topic := h.store.AddTopic(domain.Topic{Keyword: "fall recipes"})

	sum, err := h.pipeline.ProcessPendingTopicsAutoPublish(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Processed)
	assert.Equal(t, 1, h.publishers[domain.PlatformSite].calls)

	outputs, err := h.store.ListOutputs(ctx, topic.ID)
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.Equal(t, domain.OutputPublished, outputs[0].Status)

	got, err := h.store.GetTopic(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TopicPublished, got.Status)
}

func TestAutoPublishGenerationFailureIsFatal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	h.gen.strategyErr = errBoom
	failing := h.store.AddTopic(domain.Topic{Keyword: "first", Score: 10})
	healthy := h.store.AddTopic(domain.Topic{Keyword: "second", Score: 1})

	sum, err := h.pipeline.ProcessPendingTopicsAutoPublish(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)

	got, err := h.store.GetTopic(ctx, failing.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TopicFailed, got.Status)

	got, err = h.store.GetTopic(ctx, healthy.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TopicPending, got.Status)

	outputs, err := h.store.ListOutputs(ctx, failing.ID)
	require.NoError(t, err)
	assert.Empty(t, outputs)
}

func TestAutoPublishContinuesAfterFailedTopic(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	site := h.publishers[domain.PlatformSite]
	site.err = errBoom
	h.store.AddTopic(domain.Topic{Keyword: "first", Score: 10})
	second := h.store.AddTopic(domain.Topic{Keyword: "second", Score: 1})

	sum, err := h.pipeline.ProcessPendingTopicsAutoPublish(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Failed)
	assert.Equal(t, 2, site.calls)

	got, err := h.store.GetTopic(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TopicFailed, got.Status)
}

func TestAutoPublishCoverAndPin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, withCovers)
	h.store.AddAccount(domain.Account{Platform: domain.PlatformPinterest, AccessToken: "tok", Active: true})
	topic := h.store.AddTopic(domain.Topic{Keyword: "fall recipes", Score: 87})

	sum, err := h.pipeline.ProcessPendingTopicsAutoPublish(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Processed)

	outputs, err := h.store.ListOutputs(ctx, topic.ID)
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	meta, _ := outputs[0].Site()
	assert.Contains(t, meta.FeaturedImageURL, "https://cdn.example.com/featured-fall-recipes-")
	assert.Equal(t, 2, outputs[0].Version)
	assert.Equal(t, "Featured image for fall recipes", h.media.last.AltText)

	records, err := h.store.ListPublishes(ctx, outputs[0].ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, domain.PlatformPinterest, records[1].Platform)
	assert.Equal(t, domain.PublishPublished, records[1].Status)

	pin := h.publishers[domain.PlatformPinterest].last()
	assert.Equal(t, "board-1", pin.Target)
	assert.Equal(t, "https://blog.example.com/fall-recipes", pin.Link)
	assert.Equal(t, meta.FeaturedImageURL, pin.MediaURL)
}

func TestAutoPinFailureLeavesSitePublish(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, withCovers)
	h.store.AddAccount(domain.Account{Platform: domain.PlatformPinterest, AccessToken: "tok", Active: true})
	h.publishers[domain.PlatformPinterest].err = errors.New("pinterest 500")
	topic := h.store.AddTopic(domain.Topic{Keyword: "fall recipes", Score: 87})

	sum, err := h.pipeline.ProcessPendingTopicsAutoPublish(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Processed)
	assert.Zero(t, sum.Failed)

	outputs, err := h.store.ListOutputs(ctx, topic.ID)
	require.NoError(t, err)
	records, err := h.store.ListPublishes(ctx, outputs[0].ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.PlatformSite, records[0].Platform)
	assert.Equal(t, domain.PublishPublished, records[0].Status)

	got, err := h.store.GetTopic(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TopicPublished, got.Status)
}

func TestAutoPinSkippedWithoutBoardOrAccount(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, func(d *PipelineDeps) { d.Defaults.ImageCloudName = "demo" })
	h.store.AddTopic(domain.Topic{Keyword: "fall recipes"})

	sum, err := h.pipeline.ProcessPendingTopicsAutoPublish(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Processed)
	assert.Zero(t, h.publishers[domain.PlatformPinterest].calls)
}

func TestAutoPublishCoverFailureDegrades(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, withCovers)
	h.media.err = errors.New("media endpoint down")
	topic := h.store.AddTopic(domain.Topic{Keyword: "fall recipes"})

	sum, err := h.pipeline.ProcessPendingTopicsAutoPublish(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Processed)

	outputs, err := h.store.ListOutputs(ctx, topic.ID)
	require.NoError(t, err)
	meta, _ := outputs[0].Site()
	assert.Empty(t, meta.FeaturedImageURL)
	assert.Equal(t, domain.OutputPublished, outputs[0].Status)
	assert.Empty(t, h.publishers[domain.PlatformSite].last().Site.FeaturedImageURL)
}

func TestAutoPublishTaxonomyFetchFailureDegrades(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	h.cms.listErr = errors.New("cms list failed")
	h.store.AddTopic(domain.Topic{Keyword: "fall recipes"})

	sum, err := h.pipeline.ProcessPendingTopicsAutoPublish(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Processed)
}

func TestAutoPublishRequiresConfiguration(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	noSite := newHarness(t, func(d *PipelineDeps) { d.Defaults.Site = domain.SiteCredentials{} })
	noSite.store.AddTopic(domain.Topic{Keyword: "k"})
	_, err := noSite.pipeline.ProcessPendingTopicsAutoPublish(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
	assert.Zero(t, noSite.gen.called("strategy"))

	noGen := newHarness(t, func(d *PipelineDeps) { d.Generator = nil })
	_, err = noGen.pipeline.ProcessPendingTopicsAutoPublish(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestAutoPublishUsesStoredSettings(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, func(d *PipelineDeps) { d.Defaults.Site = domain.SiteCredentials{} })
	h.store.PutSetting("site_id", "stored-site")
	h.store.PutSetting("site_api_key", "stored-key")
	h.store.AddTopic(domain.Topic{Keyword: "fall recipes"})

	sum, err := h.pipeline.ProcessPendingTopicsAutoPublish(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Processed)
}
