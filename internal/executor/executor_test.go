package executor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compresr/ai-request-router/internal/breaker"
	"github.com/compresr/ai-request-router/internal/config"
	"github.com/compresr/ai-request-router/internal/endpoint"
)

func testBreakerConfig() breaker.Config {
	return breaker.Config{FailureThreshold: 5, OpenCooldown: time.Minute, HalfOpenSuccesses: 3}
}

func newTestEndpoint(name, baseURL string) *endpoint.Endpoint {
	cfg := config.EndpointConfig{Name: name, BaseURL: baseURL, ModelID: "test-model", MaxResponseTokens: 1024}
	return endpoint.New(cfg, breaker.New(testBreakerConfig()))
}

func TestExecute_SuccessReturnsResponseText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hello world"}}],"usage":{"total_tokens":42}}`))
	}))
	defer srv.Close()

	ep := newTestEndpoint("a", srv.URL)
	ex := New(srv.Client())

	res, err := Execute(context.Background(), ex, []*endpoint.Endpoint{ep}, PromptRequest{Prompt: "hi"}, Budget{
		PerEndpointTimeout: 5 * time.Second,
		ResponseMaxTokens:  100,
		RetryAttempts:      2,
	}, Hooks{})

	require.NoError(t, err)
	assert.Equal(t, "hello world", res.Response)
	assert.Equal(t, 42, res.TokenUsage)
	assert.Equal(t, "a", res.EndpointUsed)
}

func TestExecute_FailsOverToNextCandidateOn5xx(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()
	working := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer working.Close()

	a := newTestEndpoint("a", failing.URL)
	b := newTestEndpoint("b", working.URL)
	ex := New(http.DefaultClient)

	res, err := Execute(context.Background(), ex, []*endpoint.Endpoint{a, b}, PromptRequest{Prompt: "hi"}, Budget{
		PerEndpointTimeout: 5 * time.Second,
		ResponseMaxTokens:  100,
	}, Hooks{})

	require.NoError(t, err)
	assert.Equal(t, "b", res.EndpointUsed)
	assert.Equal(t, breaker.StateClosed, b.Breaker.State())
}

func TestExecute_5xxIncrementsEndpointFailureCount(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	a := newTestEndpoint("a", failing.URL)
	ex := New(http.DefaultClient)

	_, err := Execute(context.Background(), ex, []*endpoint.Endpoint{a}, PromptRequest{Prompt: "hi"}, Budget{
		PerEndpointTimeout: 5 * time.Second,
		ResponseMaxTokens:  100,
	}, Hooks{})

	require.Error(t, err)
	assert.Equal(t, 1, a.Snapshot().FailureCount)
}

func TestExecute_4xxDoesNotCountAsBreakerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	ep := newTestEndpoint("a", srv.URL)
	ex := New(http.DefaultClient)

	_, err := Execute(context.Background(), ex, []*endpoint.Endpoint{ep}, PromptRequest{Prompt: "hi"}, Budget{
		PerEndpointTimeout: 5 * time.Second,
		ResponseMaxTokens:  100,
	}, Hooks{})

	require.Error(t, err)
	assert.Equal(t, breaker.StateClosed, ep.Breaker.State())
}

func TestExecute_CancellationAbortsImmediately(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	ep := newTestEndpoint("a", srv.URL)
	ex := New(http.DefaultClient)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Execute(ctx, ex, []*endpoint.Endpoint{ep}, PromptRequest{Prompt: "hi"}, Budget{
		PerEndpointTimeout: 5 * time.Second,
		ResponseMaxTokens:  100,
	}, Hooks{})

	require.Error(t, err)
}
