package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/compresr/ai-request-router/internal/config"
)

// Monitor runs background health probes against every registered
// endpoint. It never blocks a request path (spec.md §4.6: "the router
// consults the most recent state only; it never blocks on a probe").
type Monitor struct {
	registry *Registry
	client   *http.Client
	interval time.Duration
	timeout  time.Duration

	// per-endpoint consecutive streak counters, monitor-goroutine only
	successStreak map[string]int
	failureStreak map[string]int
}

// NewMonitor builds a Monitor bound to a Registry and HTTP client.
func NewMonitor(reg *Registry, client *http.Client, cfg *config.Config) *Monitor {
	if client == nil {
		client = &http.Client{Timeout: cfg.ProbeTimeout}
	}
	return &Monitor{
		registry:      reg,
		client:        client,
		interval:      cfg.ProbeInterval,
		timeout:       cfg.ProbeTimeout,
		successStreak: make(map[string]int),
		failureStreak: make(map[string]int),
	}
}

// Run probes every endpoint every interval until ctx is cancelled.
// Intended to be launched as its own goroutine from cmd/router.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.probeAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probeAll(ctx)
		}
	}
}

func (m *Monitor) probeAll(ctx context.Context) {
	for _, ep := range m.registry.All() {
		m.probeOne(ctx, ep)
	}
}

func (m *Monitor) probeOne(ctx context.Context, ep *Endpoint) {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	ok := m.probeHealthURL(probeCtx, ep)
	if !ok {
		ok = m.probeModelsURL(probeCtx, ep)
	}
	latencyMs := time.Since(start).Milliseconds()

	if ok {
		m.failureStreak[ep.Name] = 0
		m.successStreak[ep.Name]++
		cur := ep.Health()
		if cur != HealthHealthy && m.successStreak[ep.Name] >= config.DefaultHealthySuccessStreak {
			ep.setHealth(HealthHealthy, latencyMs, time.Now())
		} else if cur == HealthUnknown {
			ep.setHealth(HealthHealthy, latencyMs, time.Now())
		} else {
			ep.setHealth(cur, latencyMs, time.Now())
		}
		log.Debug().Str("endpoint", ep.Name).Int64("latency_ms", latencyMs).Msg("health probe ok")
		return
	}

	m.successStreak[ep.Name] = 0
	m.failureStreak[ep.Name]++
	cur := ep.Health()
	next := HealthDegraded
	if cur == HealthHealthy {
		next = HealthDegraded
	}
	if m.failureStreak[ep.Name] >= config.DefaultUnhealthyFailureStreak {
		next = HealthUnhealthy
	}
	ep.setHealth(next, latencyMs, time.Now())
	ep.RecordExecutionFailure()
	log.Debug().Str("endpoint", ep.Name).Str("health", string(next)).Msg("health probe failed")
}

func (m *Monitor) probeHealthURL(ctx context.Context, ep *Endpoint) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.BaseURL+"/health", nil)
	if err != nil {
		return false
	}
	m.applyAuth(req, ep)
	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (m *Monitor) probeModelsURL(ctx context.Context, ep *Endpoint) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.BaseURL+"/v1/models", nil)
	if err != nil {
		return false
	}
	m.applyAuth(req, ep)
	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (m *Monitor) applyAuth(req *http.Request, ep *Endpoint) {
	if ep.AuthKind == config.AuthBearer && ep.AuthSecret != "" {
		req.Header.Set("Authorization", "Bearer "+ep.AuthSecret)
	}
}
