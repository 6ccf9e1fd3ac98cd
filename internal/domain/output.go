package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ContentOutput is the single generated artifact for a (topic, target) pair.
type ContentOutput struct {
	ID        int64
	JobID     *int64
	TopicID   int64
	Target    string
	Title     string
	Body      string
	Metadata  OutputMetadata
	Version   int
	Status    OutputStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Site returns the site metadata when the output targets the CMS.
func (o ContentOutput) Site() (*SiteMetadata, bool) {
	m, ok := o.Metadata.(*SiteMetadata)
	return m, ok && m != nil
}

// Social returns the metadata of a social output.
func (o ContentOutput) Social() (*SocialMetadata, bool) {
	m, ok := o.Metadata.(*SocialMetadata)
	return m, ok && m != nil
}

// OutputMetadata is implemented by SiteMetadata and SocialMetadata only.
type OutputMetadata interface {
	Kind() string
	outputMetadata()
}

const (
	metadataKindSite   = "site"
	metadataKindSocial = "social"
)

// SiteMetadata describes an article bound for the CMS.
type SiteMetadata struct {
	SEO               SEO       `json:"seo"`
	Slug              string    `json:"slug,omitempty"`
	CategoryIDs       []int64   `json:"category_ids,omitempty"`
	TagIDs            []int64   `json:"tag_ids,omitempty"`
	SuggestedCategory string    `json:"suggested_category,omitempty"`
	SuggestedTags     []string  `json:"suggested_tags,omitempty"`
	Strategy          *Strategy `json:"strategy,omitempty"`
	FeaturedImageURL  string    `json:"featured_image_url,omitempty"`
	Excerpt           string    `json:"excerpt,omitempty"`
}

func (*SiteMetadata) Kind() string  { return metadataKindSite }
func (*SiteMetadata) outputMetadata() {}

// SocialMetadata describes a short post for a social network.
type SocialMetadata struct {
	Platform  string   `json:"platform"`
	Hashtags  []string `json:"hashtags,omitempty"`
	Subreddit string   `json:"subreddit,omitempty"`
}

func (*SocialMetadata) Kind() string  { return metadataKindSocial }
func (*SocialMetadata) outputMetadata() {}

type metadataEnvelope struct {
	Kind   string          `json:"kind"`
	Site   *SiteMetadata   `json:"site,omitempty"`
	Social *SocialMetadata `json:"social,omitempty"`
}

// EncodeMetadata serializes metadata as a tagged JSON envelope.
func EncodeMetadata(m OutputMetadata) ([]byte, error) {
	env := metadataEnvelope{}
	switch v := m.(type) {
	case nil:
		return []byte(`{}`), nil
	case *SiteMetadata:
		env.Kind, env.Site = metadataKindSite, v
	case *SocialMetadata:
		env.Kind, env.Social = metadataKindSocial, v
	default:
		return nil, fmt.Errorf("unsupported metadata %T", m)
	}
	return json.Marshal(env)
}

// DecodeMetadata restores metadata written by EncodeMetadata.
func DecodeMetadata(raw []byte) (OutputMetadata, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var env metadataEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode output metadata: %w", err)
	}
	switch env.Kind {
	case "":
		return nil, nil
	case metadataKindSite:
		if env.Site == nil {
			env.Site = &SiteMetadata{}
		}
		return env.Site, nil
	case metadataKindSocial:
		if env.Social == nil {
			env.Social = &SocialMetadata{}
		}
		return env.Social, nil
	default:
		return nil, fmt.Errorf("unknown output metadata kind %q", env.Kind)
	}
}
