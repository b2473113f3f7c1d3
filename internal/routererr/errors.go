// Package routererr defines the closed error taxonomy shared by the
// router, executor, and breaker.
//
// DESIGN: Every failure a caller can observe reduces to one of the
// sentinel kinds below. ClassifyHTTPStatus and CountsAsBreakerFailure
// centralize the outcome -> kind mapping so the breaker and the
// executor's failover decision never drift apart.
package routererr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is one of the closed set of error categories.
type Kind string

const (
	KindInvalidRequest Kind = "invalid_request"
	KindRejected       Kind = "rejected"
	KindEndpointOpen   Kind = "endpoint_open"
	KindTimeout        Kind = "timeout"
	KindCapacity       Kind = "capacity"
	KindUpstream5xx    Kind = "upstream_5xx"
	KindUpstream4xx    Kind = "upstream_4xx"
	KindNetwork        Kind = "network"
	KindCancelled      Kind = "cancelled"
	KindConfig         Kind = "config"
	KindOther          Kind = "other"
)

// RouterError carries a Kind plus the endpoint(s) attempted and an
// optional routing hint, matching the "always carry kind, message,
// endpoints, routing hint" contract from spec.md §7.
type RouterError struct {
	Kind        Kind
	Message     string
	Endpoints   []string
	RoutingHint string
	Err         error
}

func (e *RouterError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *RouterError) Unwrap() error { return e.Err }

// Is allows errors.Is(err, ErrTimeout) style checks against Kind.
func (e *RouterError) Is(target error) bool {
	t, ok := target.(*RouterError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func New(kind Kind, message string) *RouterError {
	return &RouterError{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *RouterError {
	return &RouterError{Kind: kind, Message: message, Err: err}
}

// Sentinel instances for errors.Is comparisons.
var (
	ErrInvalidRequest = New(KindInvalidRequest, "invalid request")
	ErrRejected       = New(KindRejected, "path rejected")
	ErrEndpointOpen   = New(KindEndpointOpen, "endpoint breaker is open")
	ErrTimeout        = New(KindTimeout, "request timed out")
	ErrCapacity       = New(KindCapacity, "upstream at capacity")
	ErrUpstream5xx    = New(KindUpstream5xx, "upstream server error")
	ErrUpstream4xx    = New(KindUpstream4xx, "upstream client error")
	ErrNetwork        = New(KindNetwork, "network error")
	ErrCancelled      = New(KindCancelled, "request cancelled")
	ErrConfig         = New(KindConfig, "configuration error")
)

// ClassifyHTTPStatus maps an upstream HTTP status code to a Kind,
// per spec.md §4.8 and §7: 429 counts as capacity, other 4xx are
// upstream4xx, 5xx is upstream5xx.
func ClassifyHTTPStatus(status int) Kind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindCapacity
	case status >= 500:
		return KindUpstream5xx
	case status >= 400:
		return KindUpstream4xx
	default:
		return KindOther
	}
}

// CountsAsBreakerFailure reports whether a Kind should increment the
// circuit breaker's failure count, per spec.md §4.8: only timeouts,
// 5xx, capacity (429), and connection errors count.
func CountsAsBreakerFailure(k Kind) bool {
	switch k {
	case KindTimeout, KindCapacity, KindUpstream5xx, KindNetwork:
		return true
	default:
		return false
	}
}

// ShouldRetrySameEndpoint reports whether the executor should retry the
// same endpoint (network errors only, per spec.md §4.10/§7).
func ShouldRetrySameEndpoint(k Kind) bool {
	return k == KindNetwork
}

// ShouldFailover reports whether the executor should move to the next
// candidate after exhausting same-endpoint retries (if any).
func ShouldFailover(k Kind) bool {
	switch k {
	case KindTimeout, KindCapacity, KindUpstream5xx, KindUpstream4xx, KindNetwork:
		return true
	default:
		return false
	}
}

// Precedence orders Kinds for "most informative error wins" (spec.md
// §4.10 step 2): timeout > network > 4xx > other.
func Precedence(k Kind) int {
	switch k {
	case KindTimeout:
		return 4
	case KindNetwork:
		return 3
	case KindUpstream4xx, KindCapacity, KindUpstream5xx:
		return 2
	default:
		return 1
	}
}

// MostInformative returns whichever of a, b ranks higher by Precedence.
func MostInformative(a, b error) error {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	var ra, rb *RouterError
	if !errors.As(a, &ra) {
		return b
	}
	if !errors.As(b, &rb) {
		return a
	}
	if Precedence(rb.Kind) > Precedence(ra.Kind) {
		return b
	}
	return a
}
