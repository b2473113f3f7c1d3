package router

import (
	"sync"

	"github.com/compresr/ai-request-router/internal/endpoint"
)

// ratioBalancer maintains the local-first ratio as a token-bucket
// balancer rather than a hard gate (spec.md §9 open question: "the
// source advertises a 95% local ratio but implements it
// probabilistically; the spec mandates a token-bucket balancer so
// that the ratio is maintained over a window even under skewed
// traffic").
//
// DESIGN: tracks total decisions and how many landed local. The
// bucket's "tokens" are the gap between the local share the target
// ratio entitles local to by now (target*decisions) and the local
// share actually delivered; whichever side is behind its entitlement
// is biased to the front of a tie. The counts cover every decision
// since the balancer was built and are never reset or aged out, so
// the ratio is cumulative rather than over a rolling window. It never
// refuses either side outright — it only reorders ties, exactly like
// the empirical override in rule 5.
type ratioBalancer struct {
	mu        sync.Mutex
	target    float64
	decisions int64
	local     int64
}

func newRatioBalancer(targetRatio float64) *ratioBalancer {
	if targetRatio < 0 {
		targetRatio = 0
	}
	if targetRatio > 1 {
		targetRatio = 1
	}
	return &ratioBalancer{target: targetRatio}
}

// bias reorders tied-priority leaders within candidates to favor
// whichever side (local/cloud) is currently under-represented,
// without dropping any candidate.
func (b *ratioBalancer) bias(candidates []*endpoint.Endpoint) []*endpoint.Endpoint {
	if len(candidates) < 2 {
		b.record(candidates)
		return candidates
	}

	leadPriority := candidates[0].Priority
	tieEnd := 1
	for tieEnd < len(candidates) && candidates[tieEnd].Priority == leadPriority {
		tieEnd++
	}
	if tieEnd < 2 {
		b.record(candidates[:1])
		return candidates
	}

	preferLocal := b.preferLocal()
	tied := candidates[:tieEnd]
	reordered := make([]*endpoint.Endpoint, 0, len(tied))
	var others []*endpoint.Endpoint
	for _, e := range tied {
		if e.Local == preferLocal {
			reordered = append(reordered, e)
		} else {
			others = append(others, e)
		}
	}
	reordered = append(reordered, others...)

	out := make([]*endpoint.Endpoint, 0, len(candidates))
	out = append(out, reordered...)
	out = append(out, candidates[tieEnd:]...)

	b.record(out[:1])
	return out
}

func (b *ratioBalancer) preferLocal() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.decisions == 0 {
		return b.target >= 0.5
	}
	actualLocalShare := float64(b.local) / float64(b.decisions)
	return actualLocalShare < b.target
}

// record tallies which side was actually selected as the top
// candidate, growing the window the ratio is measured over.
func (b *ratioBalancer) record(chosen []*endpoint.Endpoint) {
	if len(chosen) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.decisions++
	if chosen[0].Local {
		b.local++
	}
}
