package taxonomy

import (
	"strings"

	"github.com/erdidoqan/postrella/internal/domain"
)

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func findTerm(name string, terms []domain.Term) (domain.Term, bool) {
	key := normalize(name)
	if key == "" {
		return domain.Term{}, false
	}
	for _, term := range terms {
		if normalize(term.Name) == key || normalize(term.Slug) == key {
			return term, true
		}
	}
	return domain.Term{}, false
}

// MatchCategory returns the id of the first category whose name or slug
// equals suggested, ignoring case. No partial matching is attempted.
func MatchCategory(suggested string, categories []domain.Term) (int64, bool) {
	term, ok := findTerm(suggested, categories)
	return term.ID, ok
}

// MatchTags returns at most one id per suggested tag, never repeating an id.
func MatchTags(suggested []string, tags []domain.Term) []int64 {
	ids := make([]int64, 0, len(suggested))
	seen := map[int64]bool{}
	for _, name := range suggested {
		term, ok := findTerm(name, tags)
		if !ok || seen[term.ID] {
			continue
		}
		seen[term.ID] = true
		ids = append(ids, term.ID)
	}
	return ids
}
