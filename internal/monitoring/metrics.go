// Package monitoring collects operational counters and assembles the
// structured report backing the status tool (spec.md §6: "no input;
// output: per-endpoint health, rolling counters, cache statistics,
// breaker states, empirical top-N success/failure patterns").
//
// DESIGN: adapted field-for-field from the teacher's
// MetricsCollector — atomic counters held for the lifetime of the
// process, read without locking, assembled into a snapshot struct on
// demand rather than pushed anywhere.
package monitoring

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/compresr/ai-request-router/internal/cache"
	"github.com/compresr/ai-request-router/internal/endpoint"
	"github.com/compresr/ai-request-router/internal/learner"
)

// Collector collects operational metrics for the running router.
type Collector struct {
	startedAt time.Time

	requests  atomic.Int64
	successes atomic.Int64

	cacheHits   atomic.Int64
	cacheMisses atomic.Int64

	failovers      atomic.Int64
	breakerTrips   atomic.Int64
	empiricalDemos atomic.Int64

	totalPromptTokens   atomic.Int64
	totalResponseTokens atomic.Int64
}

// NewCollector creates a new, empty Collector.
func NewCollector() *Collector {
	return &Collector{startedAt: time.Now()}
}

// RecordRequest records the outcome of one top-level query.
func (c *Collector) RecordRequest(success bool) {
	c.requests.Add(1)
	if success {
		c.successes.Add(1)
	}
}

// RecordCacheHit records a cache hit on the query path.
func (c *Collector) RecordCacheHit() { c.cacheHits.Add(1) }

// RecordCacheMiss records a cache miss on the query path.
func (c *Collector) RecordCacheMiss() { c.cacheMisses.Add(1) }

// RecordFailover records that the executor moved on to a second or
// later candidate endpoint for a single request.
func (c *Collector) RecordFailover() { c.failovers.Add(1) }

// RecordBreakerTrip records a breaker transitioning from closed (or
// half-open) to open.
func (c *Collector) RecordBreakerTrip() { c.breakerTrips.Add(1) }

// RecordEmpiricalDemotion records the router demoting a top candidate
// on the strength of learner.ShouldDemote.
func (c *Collector) RecordEmpiricalDemotion() { c.empiricalDemos.Add(1) }

// RecordTokenUsage records one request's prompt/response token counts.
func (c *Collector) RecordTokenUsage(promptTokens, responseTokens int) {
	c.totalPromptTokens.Add(int64(promptTokens))
	c.totalResponseTokens.Add(int64(responseTokens))
}

// StartedAt returns when the collector was created.
func (c *Collector) StartedAt() time.Time { return c.startedAt }

// EndpointStatus is one endpoint's row in the status report.
type EndpointStatus struct {
	Name          string  `json:"name"`
	Health        string  `json:"health"`
	BreakerState  string  `json:"breaker_state"`
	LastLatencyMs int64   `json:"last_latency_ms"`
	FailureCount  int     `json:"failure_count"`
	LastProbeAt   *string `json:"last_probe_at,omitempty"`
}

// CacheStats is the cache section of the status report.
type CacheStats struct {
	Entries int     `json:"entries"`
	Bytes   int64   `json:"bytes"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate_percent"`
}

// RequestStats is the request-counter section of the status report.
type RequestStats struct {
	Total      int64 `json:"total"`
	Successful int64 `json:"successful"`
	Failed     int64 `json:"failed"`
	Failovers  int64 `json:"failovers"`
}

// FailurePattern is one row of the empirical top-N report.
type FailurePattern struct {
	FingerprintHash string  `json:"fingerprint_hash"`
	Endpoint        string  `json:"endpoint"`
	SuccessRate     float64 `json:"success_rate"`
	Total           int     `json:"total"`
}

// StatusReport is the structured response for the status tool.
type StatusReport struct {
	Uptime              string           `json:"uptime"`
	UptimeSeconds       int64            `json:"uptime_seconds"`
	StartedAt           string           `json:"started_at"`
	Requests            RequestStats     `json:"requests"`
	Cache               CacheStats       `json:"cache"`
	Endpoints           []EndpointStatus `json:"endpoints"`
	BreakerTrips        int64            `json:"breaker_trips"`
	EmpiricalDemotions  int64            `json:"empirical_demotions"`
	TotalPromptTokens   int64            `json:"total_prompt_tokens"`
	TotalResponseTokens int64            `json:"total_response_tokens"`
	TopFailurePatterns  []FailurePattern `json:"top_failure_patterns"`
}

// Snapshot assembles the full status report from the collector plus
// the live registry, cache, and learner — the report reads through to
// each component's own state rather than duplicating it in counters.
func (c *Collector) Snapshot(reg *endpoint.Registry, ca *cache.Cache, l *learner.Learner, topN int) StatusReport {
	uptime := time.Since(c.startedAt)
	requests := c.requests.Load()
	successes := c.successes.Load()
	hits := c.cacheHits.Load()
	misses := c.cacheMisses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	report := StatusReport{
		Uptime:        formatDuration(uptime),
		UptimeSeconds: int64(uptime.Seconds()),
		StartedAt:     c.startedAt.Format(time.RFC3339),
		Requests: RequestStats{
			Total:      requests,
			Successful: successes,
			Failed:     requests - successes,
			Failovers:  c.failovers.Load(),
		},
		Cache: CacheStats{
			Entries: ca.Len(),
			Bytes:   ca.Bytes(),
			Hits:    hits,
			Misses:  misses,
			HitRate: hitRate,
		},
		BreakerTrips:        c.breakerTrips.Load(),
		EmpiricalDemotions:  c.empiricalDemos.Load(),
		TotalPromptTokens:   c.totalPromptTokens.Load(),
		TotalResponseTokens: c.totalResponseTokens.Load(),
	}

	for _, ep := range reg.All() {
		snap := ep.Snapshot()
		row := EndpointStatus{
			Name:          ep.Name,
			Health:        string(snap.Health),
			BreakerState:  string(ep.Breaker.State()),
			LastLatencyMs: snap.LastLatencyMs,
			FailureCount:  snap.FailureCount,
		}
		if !snap.LastProbeAt.IsZero() {
			s := snap.LastProbeAt.Format(time.RFC3339)
			row.LastProbeAt = &s
		}
		report.Endpoints = append(report.Endpoints, row)
	}

	for _, fp := range l.TopFailurePatterns(topN) {
		report.TopFailurePatterns = append(report.TopFailurePatterns, FailurePattern{
			FingerprintHash: fp.FingerprintHash,
			Endpoint:        fp.Endpoint,
			SuccessRate:     fp.SuccessRate,
			Total:           fp.Total,
		})
	}

	return report
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
