package endpoint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compresr/ai-request-router/internal/breaker"
	"github.com/compresr/ai-request-router/internal/config"
)

func testBreakerConfig() breaker.Config {
	return breaker.Config{FailureThreshold: 5, OpenCooldown: time.Minute, HalfOpenSuccesses: 3}
}

func TestNewRegistry_OrdersByPriority(t *testing.T) {
	cfgs := []config.EndpointConfig{
		{Name: "b", Priority: 2, Capabilities: []string{"code"}},
		{Name: "a", Priority: 1, Capabilities: []string{"code"}},
	}
	reg := NewRegistry(cfgs, testBreakerConfig())

	all := reg.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Name)
	assert.Equal(t, "b", all[1].Name)
}

func TestRegistry_Get(t *testing.T) {
	cfgs := []config.EndpointConfig{{Name: "only", Priority: 1}}
	reg := NewRegistry(cfgs, testBreakerConfig())

	assert.NotNil(t, reg.Get("only"))
	assert.Nil(t, reg.Get("missing"))
}

func TestRegistry_ListFilter(t *testing.T) {
	cfgs := []config.EndpointConfig{
		{Name: "local", Priority: 1, Local: true, Capabilities: []string{"code"}},
		{Name: "cloud", Priority: 2, Local: false, Capabilities: []string{"reasoning"}},
	}
	reg := NewRegistry(cfgs, testBreakerConfig())

	locals := reg.List(func(e *Endpoint) bool { return e.Local })
	require.Len(t, locals, 1)
	assert.Equal(t, "local", locals[0].Name)

	withCode := reg.List(func(e *Endpoint) bool { return e.HasCapability("code") })
	require.Len(t, withCode, 1)
	assert.Equal(t, "local", withCode[0].Name)
}

func TestEndpoint_HasCapability_EmptyTagAlwaysTrue(t *testing.T) {
	ep := New(config.EndpointConfig{Name: "e"}, breaker.New(testBreakerConfig()))
	assert.True(t, ep.HasCapability(""))
	assert.False(t, ep.HasCapability("reasoning"))
}

func TestEndpoint_SetHealthVisibleViaSnapshot(t *testing.T) {
	ep := New(config.EndpointConfig{Name: "e"}, breaker.New(testBreakerConfig()))
	assert.Equal(t, HealthUnknown, ep.Health())

	ep.setHealth(HealthHealthy, 42, time.Now())
	snap := ep.Snapshot()
	assert.Equal(t, HealthHealthy, snap.Health)
	assert.EqualValues(t, 42, snap.LastLatencyMs)
}
