package mcptool

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compresr/ai-request-router/internal/breaker"
	"github.com/compresr/ai-request-router/internal/cache"
	"github.com/compresr/ai-request-router/internal/config"
	"github.com/compresr/ai-request-router/internal/endpoint"
	"github.com/compresr/ai-request-router/internal/executor"
	"github.com/compresr/ai-request-router/internal/learner"
	"github.com/compresr/ai-request-router/internal/monitoring"
	"github.com/compresr/ai-request-router/internal/router"
)

func newTestService(t *testing.T, handler http.HandlerFunc) (*Service, *httptest.Server) {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		Endpoints:       []config.EndpointConfig{{Name: "local", BaseURL: srv.URL, Priority: 1, MaxContextTokens: 8192, MaxResponseTokens: 1024, Local: true}},
		LocalFirstRatio: 0.95,
		CacheTTL:        time.Minute,
		CacheMaxEntries: 100,
		CacheMaxBytes:   1 << 20,
		RetryAttempts:   1,
		RetryBaseDelay:  time.Millisecond,
		RetryCapDelay:   10 * time.Millisecond,
		MaxFileBytes:    1 << 20,
		MaxFiles:        20,
		FileConcurrency: 4,
		WorkspaceRoot:   t.TempDir(),
	}

	breakerCfg := breaker.Config{FailureThreshold: 5, OpenCooldown: time.Minute, HalfOpenSuccesses: 3}
	reg := endpoint.NewRegistry(cfg.Endpoints, breakerCfg)
	ca := cache.New(cfg.CacheMaxEntries, cfg.CacheMaxBytes, cfg.CacheTTL)
	l := learner.New(1000, 0.2, 10)
	rtr := router.New(reg, l, 5*time.Second, 2.0, cfg.LocalFirstRatio)
	ex := executor.New(srv.Client())
	collector := monitoring.NewCollector()

	return New(cfg, reg, ca, l, rtr, ex, collector, nil), srv
}

func jsonOK(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func TestQuery_Success(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		jsonOK(w, `{"choices":[{"message":{"content":"hello there"}}],"usage":{"total_tokens":12}}`)
	})

	res, err := svc.Query(t.Context(), QueryInput{Prompt: "how do I write a loop in go?"})
	require.NoError(t, err)
	assert.Equal(t, "hello there", res.Response)
	assert.Equal(t, "local", res.RoutingDecision.EndpointUsed)
	assert.Equal(t, "direct", res.RoutingDecision.Method)
	assert.False(t, res.FromCache)
}

func TestQuery_EmptyPromptIsInvalidRequest(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		jsonOK(w, `{}`)
	})

	_, err := svc.Query(t.Context(), QueryInput{})
	require.Error(t, err)
}

func TestQuery_SecondIdenticalRequestHitsCache(t *testing.T) {
	calls := 0
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		jsonOK(w, `{"choices":[{"message":{"content":"cached response"}}],"usage":{"total_tokens":5}}`)
	})

	in := QueryInput{Prompt: "explain what a circuit breaker does"}
	first, err := svc.Query(t.Context(), in)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := svc.Query(t.Context(), in)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Response, second.Response)
	assert.Equal(t, 1, calls)
}

func TestQuery_ForceEndpointUnknownErrors(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		jsonOK(w, `{}`)
	})

	_, err := svc.Query(t.Context(), QueryInput{Prompt: "hi", ForceEndpoint: "nope"})
	require.Error(t, err)
}

func TestAnalyzeFiles_ReadsDirectory(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		jsonOK(w, `{}`)
	})

	dir := svc.cfg.WorkspaceRoot
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\n\nfunc Foo() {}\n"), 0o644))

	res, err := svc.AnalyzeFiles(t.Context(), AnalyzeFilesInput{Paths: []string{dir}})
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	assert.Equal(t, "go", res.Files[0].Language)
}

func TestStatus_ReportsRegisteredEndpoint(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		jsonOK(w, `{}`)
	})

	report := svc.Status(5)
	require.Len(t, report.Endpoints, 1)
	assert.Equal(t, "local", report.Endpoints[0].Name)
}

func TestCompare_ComputesSimilarity(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		jsonOK(w, `{}`)
	})

	dir := svc.cfg.WorkspaceRoot
	pathA := filepath.Join(dir, "a.go")
	pathB := filepath.Join(dir, "b.go")
	require.NoError(t, os.WriteFile(pathA, []byte("package a\nfunc Foo() {}\n"), 0o644))
	require.NoError(t, os.WriteFile(pathB, []byte("package a\nfunc Foo() {}\n"), 0o644))

	res, err := svc.Compare(t.Context(), CompareInput{PathA: pathA, PathB: pathB})
	require.NoError(t, err)
	assert.Equal(t, float64(100), res.SimilarityPercent)
}

func TestDiagnoseFileAccess_RejectsRestrictedPrefix(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		jsonOK(w, `{}`)
	})

	res := svc.DiagnoseFileAccess("/etc/passwd")
	assert.False(t, res.Passed)
}
