package breaker

import (
	"github.com/puzpuzpuz/xsync/v4"
)

// Set keys breakers by provider name. Lock-free lookups; each breaker guards
// its own state independently.
type Set struct {
	breakers *xsync.Map[string, *Breaker]
	cfg      Config
}

func NewSet(cfg Config) *Set {
	return &Set{
		breakers: xsync.NewMap[string, *Breaker](),
		cfg:      cfg,
	}
}

// Get returns the breaker for name, creating it on first use.
func (s *Set) Get(name string) *Breaker {
	if b, ok := s.breakers.Load(name); ok {
		return b
	}
	b, _ := s.breakers.LoadOrStore(name, New(name, s.cfg))
	return b
}

func (s *Set) Lookup(name string) (*Breaker, bool) {
	return s.breakers.Load(name)
}

func (s *Set) Names() []string {
	var names []string
	s.breakers.Range(func(key string, _ *Breaker) bool {
		names = append(names, key)
		return true
	})
	return names
}
