// Package executor issues the outbound HTTP call against a chosen
// endpoint, honoring timeouts/cancellation and driving the
// retry/failover state machine (spec.md §4.10, C14).
//
// DESIGN: the telemetry-struct-plus-forward-with-sticky-retry shape
// follows the teacher's gateway handler (telemetryParams,
// forwardPassthrough); the JSON body here is patched with
// tidwall/sjson rather than marshaled from a Go struct, following the
// same "cheap field patch over a byte-slice body" style the teacher
// used for tool-output compression elsewhere in its pipeline.
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/compresr/ai-request-router/internal/config"
	"github.com/compresr/ai-request-router/internal/endpoint"
	"github.com/compresr/ai-request-router/internal/routererr"
	"github.com/compresr/ai-request-router/internal/utils"
)

// Outcome is the closed set of per-attempt outcomes recorded into an
// ExecutionRecord (spec.md §3).
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeTimeout  Outcome = "timeout"
	OutcomeCapacity Outcome = "capacity"
	OutcomeNetwork  Outcome = "network"
	OutcomePolicy   Outcome = "policy"
	OutcomeOther    Outcome = "other"
)

// Attempt records one try against one endpoint.
type Attempt struct {
	Endpoint   string
	StartedAt  time.Time
	DurationMs int64
	Outcome    Outcome
	Err        error
	BytesOut   int
	BytesIn    int
}

// Result is the execute() output (spec.md §4.10).
type Result struct {
	Response     string
	EndpointUsed string
	TokenUsage   int
	Attempts     []Attempt
}

// Budget parameterizes one execute() call.
type Budget struct {
	PerEndpointTimeout time.Duration
	ResponseMaxTokens  int
	RetryAttempts      int
	RetryBaseDelay     time.Duration
	RetryCapDelay      time.Duration
}

// Hooks lets the executor report per-attempt outcomes without taking
// a hard dependency on the learner/cache packages.
type Hooks struct {
	OnAttempt func(Attempt)
}

// Executor issues chat-completion calls against candidates in order.
type Executor struct {
	client *http.Client
}

// New builds an Executor using the given HTTP client (nil uses a
// sensible default).
func New(client *http.Client) *Executor {
	if client == nil {
		client = &http.Client{}
	}
	return &Executor{client: client}
}

// PromptRequest is the assembled outbound prompt for one execute() call.
type PromptRequest struct {
	ModelOverride string
	Prompt        string
	Temperature   float64
}

// Execute implements the execute() contract of spec.md §4.10.
func Execute(ctx context.Context, ex *Executor, candidates []*endpoint.Endpoint, req PromptRequest, budget Budget, hooks Hooks) (Result, error) {
	var attempts []Attempt
	var mostInformative error

	for _, ep := range candidates {
		if ctx.Err() != nil {
			return Result{Attempts: attempts}, routererr.Wrap(routererr.KindCancelled, "request cancelled", ctx.Err())
		}
		if !ep.Breaker.Allow() {
			continue
		}

		retries := budget.RetryAttempts
		for {
			attempt, response, err := ex.attemptOnce(ctx, ep, req, budget)
			attempts = append(attempts, attempt)
			if hooks.OnAttempt != nil {
				hooks.OnAttempt(attempt)
			}

			if err == nil {
				ep.Breaker.RecordSuccess()
				return Result{
					Response:     response.text,
					EndpointUsed: ep.Name,
					TokenUsage:   response.tokenUsage,
					Attempts:     attempts,
				}, nil
			}

			var rerr *routererr.RouterError
			kind := routererr.KindOther
			if asRouterError(err, &rerr) {
				kind = rerr.Kind
			}

			if kind == routererr.KindCancelled {
				return Result{Attempts: attempts}, err
			}

			if routererr.CountsAsBreakerFailure(kind) {
				ep.Breaker.RecordFailure()
				ep.RecordExecutionFailure()
			}
			mostInformative = routererr.MostInformative(mostInformative, err)

			if routererr.ShouldRetrySameEndpoint(kind) && retries > 0 {
				retries--
				backoff := jitteredBackoff(budget, budget.RetryAttempts-retries)
				select {
				case <-ctx.Done():
					return Result{Attempts: attempts}, routererr.Wrap(routererr.KindCancelled, "request cancelled", ctx.Err())
				case <-time.After(backoff):
				}
				continue
			}
			break
		}
	}

	if mostInformative == nil {
		return Result{Attempts: attempts}, routererr.New(routererr.KindCapacity, "no endpoint accepted the request")
	}
	return Result{Attempts: attempts}, mostInformative
}

type parsedResponse struct {
	text       string
	tokenUsage int
}

func (ex *Executor) attemptOnce(ctx context.Context, ep *endpoint.Endpoint, req PromptRequest, budget Budget) (Attempt, parsedResponse, error) {
	started := time.Now()
	attempt := Attempt{Endpoint: ep.Name, StartedAt: started}

	callCtx, cancel := context.WithTimeout(ctx, budget.PerEndpointTimeout)
	defer cancel()

	body, err := buildBody(ep, req, budget)
	if err != nil {
		attempt.Outcome = OutcomeOther
		attempt.Err = err
		attempt.DurationMs = time.Since(started).Milliseconds()
		return attempt, parsedResponse{}, routererr.Wrap(routererr.KindOther, "failed to build request body", err)
	}
	attempt.BytesOut = len(body)

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, ep.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		attempt.Outcome = OutcomeOther
		attempt.Err = err
		attempt.DurationMs = time.Since(started).Milliseconds()
		return attempt, parsedResponse{}, routererr.Wrap(routererr.KindOther, "failed to build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if ep.AuthKind == config.AuthBearer && ep.AuthSecret != "" {
		httpReq.Header.Set("Authorization", "Bearer "+ep.AuthSecret)
		log.Debug().Str("endpoint", ep.Name).Str("auth_secret", utils.MaskKey(ep.AuthSecret)).Msg("attaching bearer auth")
	}

	resp, err := ex.client.Do(httpReq)
	attempt.DurationMs = time.Since(started).Milliseconds()
	if err != nil {
		kind := routererr.KindNetwork
		if callCtx.Err() == context.DeadlineExceeded {
			kind = routererr.KindTimeout
		}
		if callCtx.Err() == context.Canceled && ctx.Err() == context.Canceled {
			kind = routererr.KindCancelled
		}
		attempt.Outcome = outcomeFor(kind)
		attempt.Err = err
		log.Debug().Str("endpoint", ep.Name).Err(err).Msg("executor attempt failed")
		return attempt, parsedResponse{}, routererr.Wrap(kind, "request to endpoint failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	attempt.BytesIn = len(respBody)
	if err != nil {
		attempt.Outcome = OutcomeNetwork
		attempt.Err = err
		return attempt, parsedResponse{}, routererr.Wrap(routererr.KindNetwork, "failed reading response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		kind := routererr.ClassifyHTTPStatus(resp.StatusCode)
		attempt.Outcome = outcomeFor(kind)
		attempt.Err = routererr.New(kind, "non-2xx upstream response")
		return attempt, parsedResponse{}, routererr.New(kind, "upstream returned status "+http.StatusText(resp.StatusCode))
	}

	parsed := parseResponse(respBody)
	attempt.Outcome = OutcomeSuccess
	return attempt, parsed, nil
}

func buildBody(ep *endpoint.Endpoint, req PromptRequest, budget Budget) ([]byte, error) {
	model := ep.ModelID
	if req.ModelOverride != "" {
		model = req.ModelOverride
	}

	body := []byte(`{}`)
	var err error
	body, err = sjson.SetBytes(body, "model", model)
	if err != nil {
		return nil, err
	}
	body, err = sjson.SetBytes(body, "messages.0.role", "user")
	if err != nil {
		return nil, err
	}
	body, err = sjson.SetBytes(body, "messages.0.content", req.Prompt)
	if err != nil {
		return nil, err
	}
	body, err = sjson.SetBytes(body, "temperature", req.Temperature)
	if err != nil {
		return nil, err
	}
	body, err = sjson.SetBytes(body, "max_tokens", budget.ResponseMaxTokens)
	if err != nil {
		return nil, err
	}
	body, err = sjson.SetBytes(body, "stream", false)
	if err != nil {
		return nil, err
	}
	return body, nil
}

func parseResponse(body []byte) parsedResponse {
	if !json.Valid(body) {
		return parsedResponse{text: string(body)}
	}
	text := gjson.GetBytes(body, "choices.0.message.content").String()
	usage := int(gjson.GetBytes(body, "usage.total_tokens").Int())
	return parsedResponse{text: text, tokenUsage: usage}
}

func outcomeFor(kind routererr.Kind) Outcome {
	switch kind {
	case routererr.KindTimeout:
		return OutcomeTimeout
	case routererr.KindCapacity:
		return OutcomeCapacity
	case routererr.KindNetwork:
		return OutcomeNetwork
	case routererr.KindUpstream4xx, routererr.KindUpstream5xx:
		return OutcomePolicy
	default:
		return OutcomeOther
	}
}

func jitteredBackoff(budget Budget, attemptNum int) time.Duration {
	base := budget.RetryBaseDelay
	capDelay := budget.RetryCapDelay
	if base <= 0 {
		base = config.DefaultRetryBaseBackoff
	}
	if capDelay <= 0 {
		capDelay = config.DefaultRetryCapBackoff
	}
	backoff := base << attemptNum
	if backoff > capDelay || backoff <= 0 {
		backoff = capDelay
	}
	jitter := time.Duration(rand.Int63n(int64(backoff) + 1))
	return jitter
}

func asRouterError(err error, target **routererr.RouterError) bool {
	for err != nil {
		if re, ok := err.(*routererr.RouterError); ok {
			*target = re
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}
