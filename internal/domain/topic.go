package domain

import "time"

// Topic is a trending keyword waiting to be turned into content.
type Topic struct {
	ID        int64
	Keyword   string
	Source    string
	Locale    string
	Score     float64
	Metadata  TopicMetadata
	Status    TopicStatus
	FetchedAt time.Time
	UpdatedAt time.Time
}

// TopicMetadata carries trend hints and, once computed, the content strategy.
type TopicMetadata struct {
	Volume         int64     `json:"volume,omitempty"`
	Growth         float64   `json:"growth,omitempty"`
	Category       string    `json:"category,omitempty"`
	RelatedQueries []string  `json:"related_queries,omitempty"`
	Strategy       *Strategy `json:"strategy,omitempty"`
}

// LocaleOrDefault falls back to English when the trend source gave no locale.
func (t Topic) LocaleOrDefault() string {
	if t.Locale == "" {
		return "en"
	}
	return t.Locale
}
