// Package router selects an ordered list of endpoint candidates for a
// request (spec.md §4.9, C12): the selection rules consult the
// endpoint registry, breaker state, local-first balancer, and the
// empirical learner, but — per spec.md — never veto an endpoint on
// predicted grounds alone, only reorder.
package router

import (
	"sort"
	"strconv"
	"time"

	"github.com/compresr/ai-request-router/internal/classify"
	"github.com/compresr/ai-request-router/internal/endpoint"
	"github.com/compresr/ai-request-router/internal/fingerprint"
	"github.com/compresr/ai-request-router/internal/learner"
	"github.com/compresr/ai-request-router/internal/routererr"
)

// Request is the subset of an inbound request the router consumes.
type Request struct {
	TaskHint      string
	ForceEndpoint string
}

// Decision is the route() output (spec.md §4.9).
type Decision struct {
	Candidates         []*endpoint.Endpoint
	PerEndpointTimeout time.Duration
	ResponseMaxTokens  int
	Evaluated          []EvaluatedStep
}

// EvaluatedStep traces one rule's effect on the candidate list. The
// steps are carried on Decision only; the query tool's routing_decision
// block does not include them.
type EvaluatedStep struct {
	Rule   string
	Detail string
}

// taskCapability maps a task hint (or fingerprint domain) to a
// required endpoint capability tag; empty means no requirement.
var taskCapability = map[string]string{
	"coding":     "code",
	"debugging":  "code",
	"generation": "code",
	"fim":        "fim",
	"analysis":   "reasoning",
}

// Router selects and orders endpoint candidates.
type Router struct {
	registry           *endpoint.Registry
	learner            *learner.Learner
	requestTimeoutBase time.Duration
	complexMultiplier  float64
	localFirstRatio    float64

	balancer *ratioBalancer
}

// New builds a Router.
func New(reg *endpoint.Registry, l *learner.Learner, requestTimeoutBase time.Duration, complexMultiplier, localFirstRatio float64) *Router {
	return &Router{
		registry:           reg,
		learner:            l,
		requestTimeoutBase: requestTimeoutBase,
		complexMultiplier:  complexMultiplier,
		localFirstRatio:    localFirstRatio,
		balancer:           newRatioBalancer(localFirstRatio),
	}
}

// Route implements the route() contract of spec.md §4.9.
func (r *Router) Route(req Request, fp fingerprint.Fingerprint, cls classify.Result) (Decision, error) {
	var evaluated []EvaluatedStep

	timeout := time.Duration(float64(r.requestTimeoutBase) * (1 + r.complexMultiplier*cls.Score))
	evaluated = append(evaluated, EvaluatedStep{Rule: "timeout_scaling", Detail: timeout.String()})

	// Rule 1: forced endpoint.
	if req.ForceEndpoint != "" {
		ep := r.registry.Get(req.ForceEndpoint)
		if ep == nil {
			return Decision{}, routererr.New(routererr.KindInvalidRequest, "unknown force_endpoint: "+req.ForceEndpoint)
		}
		if !ep.Breaker.Selectable() {
			return Decision{}, routererr.New(routererr.KindEndpointOpen, "forced endpoint breaker is open: "+req.ForceEndpoint)
		}
		evaluated = append(evaluated, EvaluatedStep{Rule: "force_endpoint", Detail: req.ForceEndpoint})
		return Decision{
			Candidates:         []*endpoint.Endpoint{ep},
			PerEndpointTimeout: timeout,
			ResponseMaxTokens:  ep.MaxResponseTokens,
			Evaluated:          evaluated,
		}, nil
	}

	requiredCap := capabilityFor(req.TaskHint)

	// Rule 2: drop unselectable/incapable endpoints.
	candidates := r.registry.List(func(e *endpoint.Endpoint) bool {
		if !e.Breaker.Selectable() {
			return false
		}
		if e.Health() == endpoint.HealthUnhealthy {
			return false
		}
		if requiredCap != "" && !e.HasCapability(requiredCap) {
			return false
		}
		return true
	})
	evaluated = append(evaluated, EvaluatedStep{Rule: "filter_unselectable", Detail: countDetail(len(candidates))})

	if len(candidates) == 0 {
		return Decision{}, routererr.New(routererr.KindCapacity, "no selectable endpoints")
	}

	// Rule 3: rank by priority, health, latency. registry.List already
	// sorts by priority then latency; stable-sort in health here.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority < candidates[j].Priority
		}
		return healthRank(candidates[i].Health()) < healthRank(candidates[j].Health())
	})
	evaluated = append(evaluated, EvaluatedStep{Rule: "rank_priority_health_latency", Detail: "stable"})

	// Rule 4: local-first ratio balancing among tied leaders.
	candidates = r.balancer.bias(candidates)
	evaluated = append(evaluated, EvaluatedStep{Rule: "local_first_balance", Detail: "applied"})

	// Rule 5: empirical override — demote, never veto.
	if r.learner != nil && fp.Hash != "" {
		candidates = demoteByEmpirical(candidates, r.learner, fp.Hash)
		evaluated = append(evaluated, EvaluatedStep{Rule: "empirical_override", Detail: "applied"})
	}

	responseMaxTokens := candidates[0].MaxResponseTokens
	if cls.Score > 0 {
		responseMaxTokens = int(float64(responseMaxTokens) * (1 - 0.5*cls.Score))
		if responseMaxTokens < 1 {
			responseMaxTokens = candidates[0].MaxResponseTokens
		}
	}

	return Decision{
		Candidates:         candidates,
		PerEndpointTimeout: timeout,
		ResponseMaxTokens:  responseMaxTokens,
		Evaluated:          evaluated,
	}, nil
}

func capabilityFor(taskHint string) string {
	return taskCapability[taskHint]
}

func healthRank(h endpoint.Health) int {
	switch h {
	case endpoint.HealthHealthy:
		return 0
	case endpoint.HealthDegraded:
		return 1
	case endpoint.HealthUnknown:
		return 2
	default:
		return 3
	}
}

// demoteByEmpirical moves the top candidate to the end of the list if
// the learner's entry for (fingerprint, endpoint) shows a success rate
// below the demotion threshold over enough observations. It never
// removes a candidate (spec.md §4.9 rule 5: "never refuses... only
// reorders").
func demoteByEmpirical(candidates []*endpoint.Endpoint, l *learner.Learner, fpHash string) []*endpoint.Endpoint {
	if len(candidates) < 2 {
		return candidates
	}
	top := candidates[0]
	if l.ShouldDemote(fpHash, top.Name) {
		out := make([]*endpoint.Endpoint, len(candidates))
		copy(out, candidates[1:])
		out[len(out)-1] = top
		return out
	}
	return candidates
}

func countDetail(n int) string {
	if n == 1 {
		return "1 candidate remaining"
	}
	return strconv.Itoa(n) + " candidates remaining"
}
