package domain

import (
	"strings"
	"time"
)

// Publish is one delivery attempt of an output to a platform.
type Publish struct {
	ID          int64
	OutputID    int64
	Platform    string
	AccountID   *int64
	Status      PublishStatus
	RemoteID    string
	RemoteURL   string
	ScheduledAt *time.Time
	PublishedAt *time.Time
	Error       string
	RetryCount  int
	CreatedAt   time.Time
}

// Complete moves a pending record to published. A receipt without a remote
// reference is recorded as a failure instead.
func (p *Publish) Complete(r Receipt, at time.Time) error {
	if !p.Status.CanTransition(PublishPublished) {
		return ErrInvalidTransition
	}
	if !r.Valid() {
		return p.Fail(ErrEmptyReceipt.Error())
	}
	p.Status = PublishPublished
	p.RemoteID = r.RemoteID
	p.RemoteURL = r.RemoteURL
	p.PublishedAt = &at
	p.Error = ""
	return nil
}

// Fail moves a pending record to failed with a non-empty reason.
func (p *Publish) Fail(reason string) error {
	if !p.Status.CanTransition(PublishFailed) {
		return ErrInvalidTransition
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown publish error"
	}
	p.Status = PublishFailed
	p.Error = reason
	return nil
}

// Due reports whether a pending record should be delivered at now.
func (p Publish) Due(now time.Time) bool {
	return p.Status == PublishPending && (p.ScheduledAt == nil || !p.ScheduledAt.After(now))
}

// Payload is the platform-neutral content handed to an adapter.
type Payload struct {
	Title       string
	Description string
	Body        string
	Link        string
	MediaURL    string
	// Target is a board id, subreddit or similar destination inside the platform.
	Target string
	Tags   []string
	Site   *SitePost
}

// SitePost carries the CMS-only fields of a site publish.
type SitePost struct {
	Slug             string
	SEO              SEO
	CategoryIDs      []int64
	TagIDs           []int64
	FeaturedImageURL string
	AuthorID         int64
}

// Receipt is what a platform returned for a successful publish.
type Receipt struct {
	RemoteID  string
	RemoteURL string
	// Rotated is set when the adapter refreshed the account tokens.
	Rotated *Credentials
}

// Valid reports whether both remote references are present.
func (r Receipt) Valid() bool {
	return strings.TrimSpace(r.RemoteID) != "" && strings.TrimSpace(r.RemoteURL) != ""
}
