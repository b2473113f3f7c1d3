// Package endpoint holds the endpoint registry (C8) and health monitor
// (C9).
//
// DESIGN: An Endpoint is an immutable descriptor plus mutable runtime
// state guarded by its own mutex — per spec.md §5, "runtime state for
// each endpoint is mutated only under that endpoint's own mutex."
// Candidate/HealthState shape follows ineyio-inferrouter's Policy
// model; the locked-map-of-pointers-with-background-cleanup idiom
// follows costcontrol.Tracker.
package endpoint

import (
	"sync"
	"time"

	"github.com/compresr/ai-request-router/internal/breaker"
	"github.com/compresr/ai-request-router/internal/config"
)

// Health is the closed set of endpoint health states (spec.md §3).
type Health string

const (
	HealthUnknown   Health = "unknown"
	HealthHealthy   Health = "healthy"
	HealthDegraded  Health = "degraded"
	HealthUnhealthy Health = "unhealthy"
)

// Endpoint is an immutable descriptor plus mutable, mutex-guarded
// runtime state (spec.md §3).
type Endpoint struct {
	// Immutable
	Name              string
	BaseURL           string
	ModelID           string
	MaxContextTokens  int
	MaxResponseTokens int
	Priority          int
	AuthKind          config.AuthKind
	AuthSecret        string
	Capabilities      map[string]bool
	Local             bool

	mu            sync.RWMutex
	health        Health
	lastProbeAt   time.Time
	lastLatencyMs int64
	failureCount  int

	Breaker *breaker.Breaker
}

// New builds an Endpoint from its static configuration.
func New(cfg config.EndpointConfig, br *breaker.Breaker) *Endpoint {
	caps := make(map[string]bool, len(cfg.Capabilities))
	for _, c := range cfg.Capabilities {
		caps[c] = true
	}
	return &Endpoint{
		Name:              cfg.Name,
		BaseURL:           cfg.BaseURL,
		ModelID:           cfg.ModelID,
		MaxContextTokens:  cfg.MaxContextTokens,
		MaxResponseTokens: cfg.MaxResponseTokens,
		Priority:          cfg.Priority,
		AuthKind:          cfg.AuthKind,
		AuthSecret:        cfg.ResolvedAuthSecret(),
		Capabilities:      caps,
		Local:             cfg.Local,
		health:            HealthUnknown,
		Breaker:           br,
	}
}

// HasCapability reports whether the endpoint advertises the given tag.
func (e *Endpoint) HasCapability(tag string) bool {
	if tag == "" {
		return true
	}
	return e.Capabilities[tag]
}

// Snapshot is a point-in-time read of an endpoint's mutable state.
type Snapshot struct {
	Health        Health
	LastProbeAt   time.Time
	LastLatencyMs int64
	FailureCount  int
}

func (e *Endpoint) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Snapshot{
		Health:        e.health,
		LastProbeAt:   e.lastProbeAt,
		LastLatencyMs: e.lastLatencyMs,
		FailureCount:  e.failureCount,
	}
}

func (e *Endpoint) Health() Health {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.health
}

func (e *Endpoint) LastLatencyMs() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastLatencyMs
}

// setHealth is called only by the health monitor.
func (e *Endpoint) setHealth(h Health, latencyMs int64, at time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.health = h
	e.lastLatencyMs = latencyMs
	e.lastProbeAt = at
}

// RecordExecutionFailure increments the endpoint's failure counter. It
// is called both by the health monitor on a failed probe (health.go)
// and by the executor on a failed live attempt, independent of
// breaker bookkeeping (which the breaker tracks itself), so
// status.failure_count reflects both kinds of failure.
func (e *Endpoint) RecordExecutionFailure() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failureCount++
}
