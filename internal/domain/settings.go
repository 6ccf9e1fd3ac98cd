package domain

import (
	"strconv"
	"strings"
)

// SiteCredentials identify a CMS site and authorize calls against it.
type SiteCredentials struct {
	SiteID    string
	APIKey    string
	PublicURL string
}

// Configured reports whether both the site id and key are present.
func (s SiteCredentials) Configured() bool {
	return strings.TrimSpace(s.SiteID) != "" && strings.TrimSpace(s.APIKey) != ""
}

// PostURL builds the public link of a published post.
func (s SiteCredentials) PostURL(slug string) string {
	return strings.TrimRight(s.PublicURL, "/") + "/" + strings.TrimLeft(slug, "/")
}

// DefaultBoardKey is the board mapping fallback.
const DefaultBoardKey = "default"

// Settings is the per-invocation configuration snapshot.
type Settings struct {
	Site           SiteCredentials
	AuthorID       int64
	BoardMappings  map[string]string
	ImageCloudName string
}

// BoardFor resolves a pinning board from the first category id, then the default key.
func (s Settings) BoardFor(categoryIDs []int64) string {
	if len(categoryIDs) > 0 {
		if board := s.BoardMappings[strconv.FormatInt(categoryIDs[0], 10)]; board != "" {
			return board
		}
	}
	return s.BoardMappings[DefaultBoardKey]
}

// CoversEnabled reports whether cover images can be produced.
func (s Settings) CoversEnabled() bool {
	return strings.TrimSpace(s.ImageCloudName) != ""
}
