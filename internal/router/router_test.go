package router

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compresr/ai-request-router/internal/breaker"
	"github.com/compresr/ai-request-router/internal/classify"
	"github.com/compresr/ai-request-router/internal/config"
	"github.com/compresr/ai-request-router/internal/endpoint"
	"github.com/compresr/ai-request-router/internal/fingerprint"
	"github.com/compresr/ai-request-router/internal/learner"
)

func testBreakerConfig() breaker.Config {
	return breaker.Config{FailureThreshold: 5, OpenCooldown: time.Minute, HalfOpenSuccesses: 3}
}

func newTestRouter(cfgs []config.EndpointConfig, localRatio float64) (*Router, *endpoint.Registry) {
	reg := endpoint.NewRegistry(cfgs, testBreakerConfig())
	l := learner.New(1000, 0.2, 10)
	r := New(reg, l, 25*time.Second, 2.0, localRatio)
	return r, reg
}

func TestRoute_ForceEndpoint_ReturnsItAlone(t *testing.T) {
	r, _ := newTestRouter([]config.EndpointConfig{
		{Name: "a", Priority: 1},
		{Name: "b", Priority: 2},
	}, 0.95)

	dec, err := r.Route(Request{ForceEndpoint: "b"}, fingerprint.Fingerprint{}, classify.Result{})
	require.NoError(t, err)
	require.Len(t, dec.Candidates, 1)
	assert.Equal(t, "b", dec.Candidates[0].Name)
}

func TestRoute_ForceEndpoint_UnknownIsInvalidRequest(t *testing.T) {
	r, _ := newTestRouter([]config.EndpointConfig{{Name: "a", Priority: 1}}, 0.95)

	_, err := r.Route(Request{ForceEndpoint: "missing"}, fingerprint.Fingerprint{}, classify.Result{})
	require.Error(t, err)
}

func TestRoute_OpenBreakerNeverFirstCandidate(t *testing.T) {
	r, reg := newTestRouter([]config.EndpointConfig{
		{Name: "a", Priority: 1},
		{Name: "b", Priority: 2},
	}, 0.95)

	a := reg.Get("a")
	for i := 0; i < 10; i++ {
		a.Breaker.RecordFailure()
	}
	require.Equal(t, breaker.StateOpen, a.Breaker.State())

	dec, err := r.Route(Request{}, fingerprint.Fingerprint{}, classify.Result{})
	require.NoError(t, err)
	require.NotEmpty(t, dec.Candidates)
	assert.NotEqual(t, "a", dec.Candidates[0].Name)
}

func TestRoute_OpenBreakerBecomesSelectableAfterCooldownWithoutPriorAllow(t *testing.T) {
	reg := endpoint.NewRegistry([]config.EndpointConfig{{Name: "a", Priority: 1}}, breaker.Config{
		FailureThreshold: 1,
		OpenCooldown:     time.Millisecond,
	})
	l := learner.New(1000, 0.2, 10)
	r := New(reg, l, 25*time.Second, 2.0, 0.95)

	a := reg.Get("a")
	a.Breaker.RecordFailure()
	require.Equal(t, breaker.StateOpen, a.Breaker.State())

	time.Sleep(5 * time.Millisecond)

	// Nothing has called Allow on this breaker; Route must still find it
	// selectable once its cooldown has elapsed, or it would be stuck
	// open forever with no caller left to promote it.
	dec, err := r.Route(Request{}, fingerprint.Fingerprint{}, classify.Result{})
	require.NoError(t, err)
	require.Len(t, dec.Candidates, 1)
	assert.Equal(t, "a", dec.Candidates[0].Name)
	assert.Equal(t, breaker.StateHalfOpen, a.Breaker.State())
}

func TestRoute_NoSelectableEndpointsIsCapacityError(t *testing.T) {
	r, reg := newTestRouter([]config.EndpointConfig{{Name: "a", Priority: 1}}, 0.95)
	a := reg.Get("a")
	for i := 0; i < 10; i++ {
		a.Breaker.RecordFailure()
	}

	_, err := r.Route(Request{}, fingerprint.Fingerprint{}, classify.Result{})
	require.Error(t, err)
}

func TestRoute_CapabilityFilter(t *testing.T) {
	r, _ := newTestRouter([]config.EndpointConfig{
		{Name: "general", Priority: 1, Capabilities: []string{"code"}},
		{Name: "fim-capable", Priority: 1, Capabilities: []string{"fim"}},
	}, 0.95)

	dec, err := r.Route(Request{TaskHint: "fim"}, fingerprint.Fingerprint{}, classify.Result{})
	require.NoError(t, err)
	require.Len(t, dec.Candidates, 1)
	assert.Equal(t, "fim-capable", dec.Candidates[0].Name)
}

func TestRoute_TimeoutScalesWithComplexityScore(t *testing.T) {
	r, _ := newTestRouter([]config.EndpointConfig{{Name: "a", Priority: 1}}, 0.95)

	low, err := r.Route(Request{}, fingerprint.Fingerprint{}, classify.Result{Score: 0})
	require.NoError(t, err)
	high, err := r.Route(Request{}, fingerprint.Fingerprint{}, classify.Result{Score: 1})
	require.NoError(t, err)

	assert.Greater(t, high.PerEndpointTimeout, low.PerEndpointTimeout)
}

func TestRatioBalancer_BiasesTowardUnderrepresentedSide(t *testing.T) {
	b := newRatioBalancer(0.95)
	local := &endpoint.Endpoint{Name: "local", Local: true}
	cloud := &endpoint.Endpoint{Name: "cloud", Local: false}

	// Simulate a long run of cloud-only decisions; local should now be
	// strongly preferred on the next tie.
	for i := 0; i < 20; i++ {
		b.record([]*endpoint.Endpoint{cloud})
	}
	assert.True(t, b.preferLocal())
	_ = local
}
