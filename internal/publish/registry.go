package publish

import (
	"fmt"
	"sort"

	"github.com/erdidoqan/postrella/internal/domain"
	"github.com/erdidoqan/postrella/internal/ports"
)

// Registry keeps a mapping from platform names to their adapters.
type Registry struct {
	publishers map[string]ports.Publisher
}

// NewRegistry builds a registry with the given adapters.
func NewRegistry(publishers ...ports.Publisher) *Registry {
	r := &Registry{publishers: map[string]ports.Publisher{}}
	for _, p := range publishers {
		r.Register(p)
	}
	return r
}

// Register adds or replaces an adapter.
func (r *Registry) Register(p ports.Publisher) {
	if r.publishers == nil {
		r.publishers = map[string]ports.Publisher{}
	}
	r.publishers[p.Platform()] = p
}

// Resolve returns the adapter for platform.
func (r *Registry) Resolve(platform string) (ports.Publisher, error) {
	if p, ok := r.publishers[platform]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("publisher %s is not registered: %w", platform, domain.ErrUnknownPlatform)
}

// Has reports whether platform has an adapter.
func (r *Registry) Has(platform string) bool {
	_, ok := r.publishers[platform]
	return ok
}

// Platforms lists registered platform names in order.
func (r *Registry) Platforms() []string {
	names := make([]string, 0, len(r.publishers))
	for name := range r.publishers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
