// Package breaker implements a per-endpoint circuit breaker (spec.md
// §4.8): closed, open, half-open.
//
// DESIGN: generalized from ineyio-inferrouter's Candidate.HealthState
// enum (Healthy/Unhealthy/HalfOpen) into a full state machine with its
// own mutex, independent of any one candidate-selection call. State
// transitions are driven by RecordSuccess/RecordFailure; Allow and
// Selectable are reads that may themselves trigger the
// open-to-half-open transition once the cooldown has elapsed.
package breaker

import (
	"sync"
	"time"
)

// State is the closed set of circuit breaker states.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Config parameterizes breaker behavior (spec.md §4.8).
type Config struct {
	FailureThreshold  int
	OpenCooldown      time.Duration
	HalfOpenSuccesses int
}

// Breaker is one endpoint's circuit breaker. Safe for concurrent use.
type Breaker struct {
	cfg Config

	mu               sync.Mutex
	state            State
	consecFailures   int
	consecSuccesses  int
	openedAt         time.Time
	halfOpenInFlight bool // at most one probe admitted per half-open token
}

// New builds a Breaker in the closed state.
func New(cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenCooldown <= 0 {
		cfg.OpenCooldown = 60 * time.Second
	}
	if cfg.HalfOpenSuccesses <= 0 {
		cfg.HalfOpenSuccesses = 3
	}
	return &Breaker{cfg: cfg, state: StateClosed}
}

// Allow reports whether a request may be attempted against the
// endpoint this breaker guards. Calling Allow on an open breaker whose
// cooldown has elapsed transitions it to half-open and admits exactly
// one probe; further calls are refused until that probe's outcome is
// recorded (spec.md §4.8: "a bounded number of probe calls allowed").
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateHalfOpen:
		if b.halfOpenInFlight {
			return false
		}
		b.halfOpenInFlight = true
		return true
	case StateOpen:
		if time.Since(b.openedAt) >= b.cfg.OpenCooldown {
			b.state = StateHalfOpen
			b.consecSuccesses = 0
			b.halfOpenInFlight = true
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess reports a successful attempt.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		b.consecSuccesses++
		b.halfOpenInFlight = false
		if b.consecSuccesses >= b.cfg.HalfOpenSuccesses {
			b.state = StateClosed
			b.consecFailures = 0
			b.consecSuccesses = 0
		}
	case StateClosed:
		b.consecFailures = 0
	}
}

// RecordFailure reports a failure that counts toward breaker
// bookkeeping. Callers should gate this on
// routererr.CountsAsBreakerFailure so only timeouts, 5xx, connection
// errors, and 429s move the breaker.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		b.state = StateOpen
		b.openedAt = time.Now()
		b.consecSuccesses = 0
		b.consecFailures = 0
		b.halfOpenInFlight = false
	case StateClosed:
		b.consecFailures++
		if b.consecFailures >= b.cfg.FailureThreshold {
			b.state = StateOpen
			b.openedAt = time.Now()
			b.consecFailures = 0
		}
	}
}

// State returns the breaker's current state, as last recorded by
// Allow/RecordSuccess/RecordFailure. It does not itself perform the
// cooldown-elapsed open->half-open transition — callers that need to
// know whether an open breaker has become selectable again should
// call Selectable, not compare State() against StateOpen.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Selectable reports whether the endpoint this breaker guards may be
// routed to at all. Closed and half-open breakers are selectable
// outright. An open breaker whose cooldown has elapsed lazily
// transitions to half-open here, the same promotion Allow() performs,
// so a breaker that nothing calls Allow() against (because the router
// stopped offering its endpoint as a candidate) can still recover:
// the router calls Selectable() when building the candidate list,
// and the executor's subsequent Allow() call admits the one bounded
// probe once the endpoint is offered again (spec.md §4.8/§4.10.1a).
func (b *Breaker) Selectable() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		if time.Since(b.openedAt) >= b.cfg.OpenCooldown {
			b.state = StateHalfOpen
			b.consecSuccesses = 0
			return true
		}
		return false
	default:
		return false
	}
}

// OpenedAt returns when the breaker last transitioned into the open
// state. Zero if it never has.
func (b *Breaker) OpenedAt() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.openedAt
}
