package search

import (
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/deepsearchstack/deepsearch/internal/core/domain"
	"github.com/deepsearchstack/deepsearch/internal/core/ports"
)

// Registry holds the configured search back-ends keyed by provider name.
type Registry struct {
	adapters *xsync.Map[domain.SearchProvider, ports.SearchAdapter]
}

func NewRegistry() *Registry {
	return &Registry{
		adapters: xsync.NewMap[domain.SearchProvider, ports.SearchAdapter](),
	}
}

func (r *Registry) Register(adapter ports.SearchAdapter) {
	r.adapters.Store(adapter.Name(), adapter)
}

func (r *Registry) Get(name domain.SearchProvider) (ports.SearchAdapter, bool) {
	return r.adapters.Load(name)
}

func (r *Registry) Names() []domain.SearchProvider {
	var names []domain.SearchProvider
	r.adapters.Range(func(key domain.SearchProvider, _ ports.SearchAdapter) bool {
		names = append(names, key)
		return true
	})
	return names
}

// Status maps every known provider to enabled or disabled depending on
// whether an adapter is registered for it.
func (r *Registry) Status() map[string]string {
	known := []domain.SearchProvider{
		domain.SearchProviderWhoogle,
		domain.SearchProviderSearXNG,
		domain.SearchProviderYaCy,
		domain.SearchProviderWikipedia,
		domain.SearchProviderDuckDuckGo,
		domain.SearchProviderStackExchange,
		domain.SearchProviderArxiv,
		domain.SearchProviderBrave,
		domain.SearchProviderQwant,
		domain.SearchProviderGoogleCSE,
	}
	status := make(map[string]string, len(known))
	for _, name := range known {
		if _, ok := r.adapters.Load(name); ok {
			status[name.String()] = "enabled"
		} else {
			status[name.String()] = "disabled"
		}
	}
	return status
}
