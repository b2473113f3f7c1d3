package endpoint

import (
	"sort"
	"sync"

	"github.com/compresr/ai-request-router/internal/breaker"
	"github.com/compresr/ai-request-router/internal/config"
)

// Registry holds endpoint descriptors, built once at startup and
// treated as read-only thereafter (spec.md §3: "loaded at startup,
// immutable thereafter").
type Registry struct {
	mu        sync.RWMutex
	byName    map[string]*Endpoint
	ordered   []*Endpoint
}

// NewRegistry builds a Registry from configuration, giving each
// endpoint its own circuit breaker.
func NewRegistry(cfgs []config.EndpointConfig, breakerCfg breaker.Config) *Registry {
	r := &Registry{byName: make(map[string]*Endpoint, len(cfgs))}
	for _, c := range cfgs {
		ep := New(c, breaker.New(breakerCfg))
		r.byName[ep.Name] = ep
		r.ordered = append(r.ordered, ep)
	}
	sort.Slice(r.ordered, func(i, j int) bool {
		return r.ordered[i].Priority < r.ordered[j].Priority
	})
	return r
}

// Get returns the named endpoint, or nil if unknown.
func (r *Registry) Get(name string) *Endpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byName[name]
}

// Filter describes an optional predicate over endpoints for List.
type Filter func(*Endpoint) bool

// List returns endpoints ordered by priority ascending, then by
// last-observed latency ascending (spec.md §4.6), optionally filtered.
func (r *Registry) List(filter Filter) []*Endpoint {
	r.mu.RLock()
	all := make([]*Endpoint, len(r.ordered))
	copy(all, r.ordered)
	r.mu.RUnlock()

	var out []*Endpoint
	for _, ep := range all {
		if filter == nil || filter(ep) {
			out = append(out, ep)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].LastLatencyMs() < out[j].LastLatencyMs()
	})
	return out
}

// All returns every registered endpoint, priority order.
func (r *Registry) All() []*Endpoint {
	return r.List(nil)
}
