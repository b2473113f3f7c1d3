package mcptool

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/compresr/ai-request-router/internal/cache"
	"github.com/compresr/ai-request-router/internal/classify"
	"github.com/compresr/ai-request-router/internal/executor"
	"github.com/compresr/ai-request-router/internal/fileanalysis"
	"github.com/compresr/ai-request-router/internal/fingerprint"
	"github.com/compresr/ai-request-router/internal/promptasm"
	"github.com/compresr/ai-request-router/internal/router"
	"github.com/compresr/ai-request-router/internal/routererr"
	"github.com/compresr/ai-request-router/internal/tokencount"
)

// QueryInput is the query tool's input (spec.md §6).
type QueryInput struct {
	Prompt           string
	Context          string
	TaskHint         string
	ForceEndpoint    string
	FileInputs       []string
	MaxTokenOverride int
	Temperature      float64
}

// RoutingDecision is the routing_decision metadata block (spec.md §6).
type RoutingDecision struct {
	EndpointUsed      string  `json:"endpoint_used"`
	ReasonCode        string  `json:"reason_code"`
	ConfidencePercent float64 `json:"confidence_percent"`
	Method            string  `json:"method"`
}

// EmpiricalRouting is the empirical_routing metadata block.
type EmpiricalRouting struct {
	FingerprintHash       string   `json:"fingerprint_hash"`
	HistoricalSuccessRate *float64 `json:"historical_success_rate"`
	SampleCount           int      `json:"sample_count"`
	Demoted               bool     `json:"demoted"`
}

// Performance is the performance metadata block.
type Performance struct {
	TotalMs    int64 `json:"total_ms"`
	EndpointMs int64 `json:"endpoint_ms"`
	RoutingMs  int64 `json:"routing_ms"`
}

// Classification is the classification metadata block.
type Classification struct {
	Intent            string  `json:"intent"`
	ScorePercent      float64 `json:"score_percent"`
	ComplexityPercent float64 `json:"complexity_percent"`
}

// AttemptInfo is one entry of attempts[], present when failover occurred.
type AttemptInfo struct {
	Endpoint   string `json:"endpoint"`
	Outcome    string `json:"outcome"`
	DurationMs int64  `json:"duration_ms"`
}

// QueryResult is the query tool's output (spec.md §6).
type QueryResult struct {
	Response         string           `json:"response"`
	RoutingDecision  RoutingDecision  `json:"routing_decision"`
	EmpiricalRouting EmpiricalRouting `json:"empirical_routing"`
	Performance      Performance      `json:"performance"`
	Classification   Classification   `json:"classification"`
	Attempts         []AttemptInfo    `json:"attempts,omitempty"`
	FromCache        bool             `json:"from_cache"`
}

// Query implements the query tool (spec.md §6). A request whose
// fingerprint already has a live cache entry is served without
// touching the router or executor at all (spec.md §4.7).
func (s *Service) Query(ctx context.Context, in QueryInput) (QueryResult, error) {
	totalStart := time.Now()

	if in.Prompt == "" {
		return QueryResult{}, routererr.New(routererr.KindInvalidRequest, "prompt is required")
	}

	fp := fingerprint.Compute(fingerprint.Input{Prompt: in.Prompt, Context: in.Context})
	cls := classify.Classify(classify.Input{Prompt: in.Prompt})

	requestID := uuid.New().String()
	logger := log.With().Str("request_id", requestID).Str("fingerprint_hash", fp.Hash).Logger()

	cacheKey := fp.Hash
	bypassCache := in.ForceEndpoint != ""

	var lastAttempts []executor.Attempt
	var routingMs, endpointMsOut int64

	produce := func() (cache.Value, error) {
		routingStart := time.Now()
		decision, err := s.router.Route(router.Request{TaskHint: in.TaskHint, ForceEndpoint: in.ForceEndpoint}, fp, cls)
		routingMs = time.Since(routingStart).Milliseconds()
		if err != nil {
			return cache.Value{}, err
		}

		promptText := in.Prompt
		if len(in.FileInputs) > 0 {
			promptText = s.assemblePromptWithFiles(ctx, in, decision)
		}

		responseMaxTokens := decision.ResponseMaxTokens
		if in.MaxTokenOverride > 0 && in.MaxTokenOverride < responseMaxTokens {
			responseMaxTokens = in.MaxTokenOverride
		}

		endpointStart := time.Now()
		result, err := executor.Execute(ctx, s.executor, decision.Candidates, executor.PromptRequest{
			Prompt:      promptText,
			Temperature: in.Temperature,
		}, executor.Budget{
			PerEndpointTimeout: decision.PerEndpointTimeout,
			ResponseMaxTokens:  responseMaxTokens,
			RetryAttempts:      s.cfg.RetryAttempts,
			RetryBaseDelay:     s.cfg.RetryBaseDelay,
			RetryCapDelay:      s.cfg.RetryCapDelay,
		}, executor.Hooks{})
		endpointMs := time.Since(endpointStart).Milliseconds()
		endpointMsOut = endpointMs
		lastAttempts = result.Attempts

		success := err == nil
		if success {
			s.learner.RecordOutcome(fp.Hash, result.EndpointUsed, true, float64(endpointMs), "")
		} else if len(result.Attempts) > 0 {
			last := result.Attempts[len(result.Attempts)-1]
			s.learner.RecordOutcome(fp.Hash, last.Endpoint, false, float64(endpointMs), string(last.Outcome))
		}
		s.collector.RecordRequest(success)
		if len(result.Attempts) > 1 {
			s.collector.RecordFailover()
		}
		s.collector.RecordTokenUsage(tokencount.Default.Count(promptText), result.TokenUsage)

		if err != nil {
			return cache.Value{}, err
		}

		logger.Debug().Int64("routing_ms", routingMs).Int64("endpoint_ms", endpointMs).Msg("query routed")

		return cache.Value{
			Response:     result.Response,
			EndpointUsed: result.EndpointUsed,
			CompletedAt:  time.Now(),
			TokenUsage:   result.TokenUsage,
		}, nil
	}

	var value cache.Value
	var err error
	fromCache := false
	if bypassCache {
		value, err = produce()
	} else {
		if _, hit := s.cache.Get(cacheKey); hit {
			fromCache = true
		}
		value, err = s.cache.GetOrCompute(cacheKey, s.cfg.CacheTTL, produce)
		if fromCache {
			s.collector.RecordCacheHit()
		} else {
			s.collector.RecordCacheMiss()
		}
	}
	if err != nil {
		s.collector.RecordRequest(false)
		return QueryResult{}, err
	}

	entry, _ := s.learner.Snapshot(fp.Hash, value.EndpointUsed)
	var successRate *float64
	if entry.Total > 0 {
		r := entry.SuccessRate()
		successRate = &r
	}
	demoted := s.learner.ShouldDemote(fp.Hash, value.EndpointUsed)

	method := "direct"
	switch {
	case in.ForceEndpoint != "":
		method = "forced"
	case len(lastAttempts) > 1:
		method = "failover"
	case demoted:
		method = "empirical"
	}

	var attempts []AttemptInfo
	if len(lastAttempts) > 1 {
		for _, a := range lastAttempts {
			attempts = append(attempts, AttemptInfo{
				Endpoint:   a.Endpoint,
				Outcome:    string(a.Outcome),
				DurationMs: a.DurationMs,
			})
		}
	}

	return QueryResult{
		Response: value.Response,
		RoutingDecision: RoutingDecision{
			EndpointUsed:      value.EndpointUsed,
			ReasonCode:        method,
			ConfidencePercent: confidencePercent(entry.Total, entry.SuccessRate()),
			Method:            method,
		},
		EmpiricalRouting: EmpiricalRouting{
			FingerprintHash:       fp.Hash,
			HistoricalSuccessRate: successRate,
			SampleCount:           entry.Total,
			Demoted:               demoted,
		},
		Performance: Performance{
			TotalMs:    time.Since(totalStart).Milliseconds(),
			EndpointMs: endpointMsOut,
			RoutingMs:  routingMs,
		},
		Classification: Classification{
			Intent:            string(cls.Intent),
			ScorePercent:      cls.Score * 100,
			ComplexityPercent: fp.Complexity * 100,
		},
		Attempts:  attempts,
		FromCache: fromCache,
	}, nil
}

func (s *Service) assemblePromptWithFiles(ctx context.Context, in QueryInput, decision router.Decision) string {
	result := fileanalysis.Analyze(ctx, in.FileInputs, fileanalysis.Options{
		MaxFileBytes:          s.cfg.MaxFileBytes,
		MaxFiles:              s.cfg.MaxFiles,
		AllowedExtensions:     s.cfg.AllowedExtensions,
		Concurrency:           s.cfg.FileConcurrency,
		IncludeProjectContext: false,
		WorkspaceRoot:         s.cfg.WorkspaceRoot,
	})

	top := decision.Candidates[0]
	assembled := promptasm.Assemble(in.Prompt, in.Context, promptasm.EndpointBudget{
		MaxContextTokens:  top.MaxContextTokens,
		MaxResponseTokens: top.MaxResponseTokens,
	}, result.Files, tokencount.Default)
	return assembled.PromptText
}

func confidencePercent(sampleCount int, successRate float64) float64 {
	if sampleCount == 0 {
		return 50
	}
	return successRate * 100
}
