package taxonomy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/erdidoqan/postrella/internal/domain"
	"github.com/erdidoqan/postrella/internal/ports"
)

// Resolver maps suggested category and tag names to CMS ids, creating the
// missing ones. It keeps the term lists of a single invocation; terms it
// creates are appended so later lookups in the same run reuse them.
type Resolver struct {
	client     ports.TaxonomyClient
	site       domain.SiteCredentials
	categories []domain.Term
	tags       []domain.Term
	logger     *slog.Logger
}

// NewResolver builds a resolver seeded with already known terms.
func NewResolver(client ports.TaxonomyClient, site domain.SiteCredentials, categories, tags []domain.Term, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		client:     client,
		site:       site,
		categories: append([]domain.Term(nil), categories...),
		tags:       append([]domain.Term(nil), tags...),
		logger:     logger,
	}
}

// Load fetches the current categories and tags. A failed list leaves the
// corresponding context empty; the error is returned for logging only.
func (r *Resolver) Load(ctx context.Context) error {
	if r.client == nil || !r.site.Configured() {
		return nil
	}

	var errs []error
	categories, err := r.client.ListCategories(ctx, r.site)
	if err != nil {
		errs = append(errs, fmt.Errorf("list categories: %w", err))
	} else {
		r.categories = categories
	}

	tags, err := r.client.ListTags(ctx, r.site)
	if err != nil {
		errs = append(errs, fmt.Errorf("list tags: %w", err))
	} else {
		r.tags = tags
	}

	return errors.Join(errs...)
}

// Categories returns a copy of the known categories.
func (r *Resolver) Categories() []domain.Term {
	return append([]domain.Term(nil), r.categories...)
}

// Tags returns a copy of the known tags.
func (r *Resolver) Tags() []domain.Term {
	return append([]domain.Term(nil), r.tags...)
}

// ResolveCategory returns the id for suggested, creating the category when
// nothing matches. Creation failures are logged and yield no id.
func (r *Resolver) ResolveCategory(ctx context.Context, suggested string) (int64, bool) {
	if strings.TrimSpace(suggested) == "" {
		return 0, false
	}
	if id, ok := MatchCategory(suggested, r.categories); ok {
		return id, true
	}
	if !r.canCreate() {
		return 0, false
	}

	name := strings.TrimSpace(suggested)
	created, err := r.client.CreateCategory(ctx, r.site, name, Slugify(name))
	if err != nil {
		r.logger.Warn("create category failed", "name", name, "error", err)
		return 0, false
	}
	r.categories = append(r.categories, created)
	r.logger.Info("category created", "name", created.Name, "id", created.ID)
	return created.ID, true
}

// ResolveTags resolves every suggestion in order against the growing tag
// list. Each unmatched tag is created on its own; one failed creation only
// drops that tag. The result never repeats an id.
func (r *Resolver) ResolveTags(ctx context.Context, suggested []string) []int64 {
	ids := make([]int64, 0, len(suggested))
	seen := map[int64]bool{}

	for _, raw := range suggested {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}

		term, ok := findTerm(name, r.tags)
		if !ok {
			if !r.canCreate() {
				continue
			}
			created, err := r.client.CreateTag(ctx, r.site, name, Slugify(name))
			if err != nil {
				r.logger.Warn("create tag failed", "name", name, "error", err)
				continue
			}
			r.tags = append(r.tags, created)
			term = created
		}

		if seen[term.ID] {
			continue
		}
		seen[term.ID] = true
		ids = append(ids, term.ID)
	}

	return ids
}

func (r *Resolver) canCreate() bool {
	return r.client != nil && r.site.Configured()
}
