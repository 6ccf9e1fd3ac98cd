package ports

import (
	"context"
	"time"

	"github.com/erdidoqan/postrella/internal/domain"
)

// TopicRepository reads trending topics and advances their status.
type TopicRepository interface {
	PendingTopics(ctx context.Context, limit int) ([]domain.Topic, error)
	GetTopic(ctx context.Context, id int64) (domain.Topic, error)
	// TransitionTopic fails with domain.ErrInvalidTransition unless the
	// stored status may move to the requested one.
	TransitionTopic(ctx context.Context, id int64, to domain.TopicStatus) error
	SaveTopicStrategy(ctx context.Context, id int64, strategy domain.Strategy) error
}

// JobRepository persists ContentJobs.
type JobRepository interface {
	CreateJob(ctx context.Context, job domain.ContentJob) (domain.ContentJob, error)
	GetJob(ctx context.Context, id int64) (domain.ContentJob, error)
	// PendingJobs returns pending jobs with attempts left, oldest first.
	PendingJobs(ctx context.Context, limit int) ([]domain.ContentJob, error)
	// StartJob moves a pending job to running and increments attempts once.
	StartJob(ctx context.Context, id int64, at time.Time) (domain.ContentJob, error)
	FinishJob(ctx context.Context, id int64, status domain.JobStatus, errText string, at time.Time) error
	// RequeueJob returns a failed job with attempts left to pending.
	RequeueJob(ctx context.Context, id int64) error
}

// OutputRepository persists ContentOutputs. InsertOutput returns
// domain.ErrOutputExists when the (topic, target) pair is taken.
type OutputRepository interface {
	OutputExists(ctx context.Context, topicID int64, target string) (bool, error)
	InsertOutput(ctx context.Context, output domain.ContentOutput) (domain.ContentOutput, error)
	GetOutput(ctx context.Context, id int64) (domain.ContentOutput, error)
	ListOutputs(ctx context.Context, topicID int64) ([]domain.ContentOutput, error)
	UpdateOutputMetadata(ctx context.Context, id int64, metadata domain.OutputMetadata) error
	TransitionOutput(ctx context.Context, id int64, to domain.OutputStatus) error
}

// PublishRepository persists delivery attempts.
type PublishRepository interface {
	InsertPublish(ctx context.Context, publish domain.Publish) (domain.Publish, error)
	// SettlePublish stores the terminal outcome of a pending record.
	SettlePublish(ctx context.Context, publish domain.Publish) error
	DuePublishes(ctx context.Context, now time.Time, limit int) ([]domain.Publish, error)
	ListPublishes(ctx context.Context, outputID int64) ([]domain.Publish, error)
}

// AccountRepository looks up connected platform accounts.
type AccountRepository interface {
	ActiveAccount(ctx context.Context, platform string) (domain.Account, error)
	UpdateAccountTokens(ctx context.Context, id int64, creds domain.Credentials) error
}

// SettingsRepository exposes the key/value settings table.
type SettingsRepository interface {
	LoadSettings(ctx context.Context) (map[string]string, error)
}

// Store bundles every repository the orchestrator uses.
type Store interface {
	TopicRepository
	JobRepository
	OutputRepository
	PublishRepository
	AccountRepository
	SettingsRepository
}

// ArticleRequest is the input of a long-form generation.
type ArticleRequest struct {
	Keyword    string
	Locale     string
	Strategy   *domain.Strategy
	Categories []domain.Term
	Tags       []domain.Term
}

// ContentGenerator wraps the generative-text provider.
type ContentGenerator interface {
	Strategy(ctx context.Context, keyword string) (domain.Strategy, error)
	Article(ctx context.Context, req ArticleRequest) (domain.Article, error)
	ShortPost(ctx context.Context, keyword, platform string) (domain.ShortPost, error)
	Quote(ctx context.Context, keyword, context string) (string, error)
}

// TaxonomyClient lists and creates CMS categories and tags.
type TaxonomyClient interface {
	ListCategories(ctx context.Context, site domain.SiteCredentials) ([]domain.Term, error)
	CreateCategory(ctx context.Context, site domain.SiteCredentials, name, slug string) (domain.Term, error)
	ListTags(ctx context.Context, site domain.SiteCredentials) ([]domain.Term, error)
	CreateTag(ctx context.Context, site domain.SiteCredentials, name, slug string) (domain.Term, error)
}

// MediaRequest describes an external image to register in the CMS library.
type MediaRequest struct {
	URL      string
	Filename string
	AltText  string
	Caption  string
	MimeType string
	Width    int
	Height   int
}

// Media is a registered CMS media item.
type Media struct {
	ID  int64
	URL string
}

// MediaRegistrar registers hosted images with the CMS.
type MediaRegistrar interface {
	RegisterMedia(ctx context.Context, site domain.SiteCredentials, req MediaRequest) (Media, error)
}

// Cover image dimensions shared by the URL builder and media registration.
const (
	CoverWidth  = 1200
	CoverHeight = 630
)

// ImageURLBuilder renders a cover image URL without any network call.
type ImageURLBuilder interface {
	BuildImageURL(cloudName, keyword, text string) string
}

// Publisher is a single platform adapter. Adapters refresh credentials at
// most once per call and report rotated tokens through the receipt.
type Publisher interface {
	Platform() string
	Publish(ctx context.Context, creds domain.Credentials, payload domain.Payload) (domain.Receipt, error)
}

// SweepLock serializes overlapping invocations of the same sweep.
type SweepLock interface {
	// Acquire returns domain.ErrSweepInProgress when the lock is held elsewhere.
	Acquire(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, err error)
}

// Notifier sends run summaries to an operator channel.
type Notifier interface {
	SendSummary(ctx context.Context, text string) error
}

// Scheduler triggers registered jobs on cron expressions.
type Scheduler interface {
	Register(name, spec string, job func(time.Time)) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
