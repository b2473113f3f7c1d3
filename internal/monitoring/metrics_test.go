package monitoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compresr/ai-request-router/internal/breaker"
	"github.com/compresr/ai-request-router/internal/cache"
	"github.com/compresr/ai-request-router/internal/config"
	"github.com/compresr/ai-request-router/internal/endpoint"
	"github.com/compresr/ai-request-router/internal/learner"
)

func TestCollector_Snapshot(t *testing.T) {
	c := NewCollector()
	c.RecordRequest(true)
	c.RecordRequest(false)
	c.RecordCacheHit()
	c.RecordCacheMiss()
	c.RecordFailover()
	c.RecordBreakerTrip()
	c.RecordEmpiricalDemotion()
	c.RecordTokenUsage(100, 50)

	reg := endpoint.NewRegistry([]config.EndpointConfig{
		{Name: "ep1", BaseURL: "http://local", Priority: 1, Local: true},
	}, breaker.Config{})

	ca := cache.New(10, 1<<20, time.Minute)
	ca.Put("k", cache.Value{Response: "v"}, time.Minute)

	l := learner.New(100, 0.2, 1)
	l.RecordOutcome("fp1", "ep1", false, 10, "network")

	report := c.Snapshot(reg, ca, l, 5)

	require.Len(t, report.Endpoints, 1)
	assert.Equal(t, "ep1", report.Endpoints[0].Name)
	assert.Equal(t, int64(2), report.Requests.Total)
	assert.Equal(t, int64(1), report.Requests.Successful)
	assert.Equal(t, 1, report.Cache.Entries)
	assert.Equal(t, int64(1), report.Cache.Hits)
	assert.Equal(t, int64(1), report.Cache.Misses)
	assert.Equal(t, int64(1), report.BreakerTrips)
	assert.Equal(t, int64(1), report.EmpiricalDemotions)
	require.Len(t, report.TopFailurePatterns, 1)
	assert.Equal(t, "fp1", report.TopFailurePatterns[0].FingerprintHash)
}

func TestCollector_StartedAtIsCreationTime(t *testing.T) {
	c := NewCollector()
	assert.WithinDuration(t, time.Now(), c.StartedAt(), time.Second)
}
