package domain

import "strings"

// Platform names used as job targets and publish destinations.
const (
	PlatformSite      = "site"
	PlatformX         = "x"
	PlatformReddit    = "reddit"
	PlatformPinterest = "pinterest"
	PlatformMastodon  = "mastodon"
)

var knownPlatforms = map[string]bool{
	PlatformSite:      true,
	PlatformX:         true,
	PlatformReddit:    true,
	PlatformPinterest: true,
	PlatformMastodon:  true,
}

// KnownPlatform reports whether name is a supported target.
func KnownPlatform(name string) bool {
	return knownPlatforms[name]
}

// NormalizeTargets lowercases, trims and de-duplicates targets, keeping first-seen order.
func NormalizeTargets(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
