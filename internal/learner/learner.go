// Package learner implements the empirical learner (spec.md §4.9,
// C13): per-fingerprint outcome statistics that bias, but never veto,
// future routing decisions.
//
// DESIGN: the locked map of pointers follows the teacher's
// costcontrol.Tracker; a single sync.RWMutex guards the whole table
// (writes take it exclusively, reads take it shared and return
// copies). Size-capped eviction follows the same file's
// cleanup-goroutine idiom, adapted to evict by least-recently updated
// rather than by age alone.
package learner

import (
	"sync"
	"time"
)

// Entry is one fingerprint's running statistics (spec.md §3:
// EmpiricalEntry).
type Entry struct {
	Total            int
	Successes        int
	AvgLatencyMs     float64
	FailureBreakdown map[string]int
	LastUpdate       time.Time
}

// SuccessRate returns successes/total, or 1.0 with zero observations
// (an unobserved fingerprint is never treated as a demotion signal).
func (e Entry) SuccessRate() float64 {
	if e.Total == 0 {
		return 1.0
	}
	return float64(e.Successes) / float64(e.Total)
}

// perEndpoint holds one fingerprint's stats split by endpoint, since
// the demotion decision in spec.md §4.9 rule 5 is endpoint-specific
// ("the learner's EmpiricalEntry for this fingerprint may demote the
// top candidate").
type perEndpoint map[string]*Entry

// Learner tracks EmpiricalEntry rows keyed by (fingerprint hash,
// endpoint name). Reads take the table's read lock and return a
// snapshot copy; every write takes the single write lock, so writes to
// different fingerprints also serialize.
type Learner struct {
	mu         sync.RWMutex
	byKey      map[string]perEndpoint
	order      []string // update order, least recently updated first, for eviction
	maxEntries int

	demoteThreshold float64
	minObservations int
}

// New builds an empty Learner.
func New(maxEntries int, demoteThreshold float64, minObservations int) *Learner {
	return &Learner{
		byKey:           make(map[string]perEndpoint),
		maxEntries:      maxEntries,
		demoteThreshold: demoteThreshold,
		minObservations: minObservations,
	}
}

const emaAlpha = 0.2

// RecordOutcome updates the fingerprint/endpoint entry with an
// exponentially-weighted running average of latency and a running
// success/failure count.
func (l *Learner) RecordOutcome(fingerprintHash, endpoint string, success bool, latencyMs float64, failureKind string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	byEndpoint, ok := l.byKey[fingerprintHash]
	if !ok {
		byEndpoint = perEndpoint{}
		l.byKey[fingerprintHash] = byEndpoint
		l.order = append(l.order, fingerprintHash)
		l.evictIfNeededLocked()
	} else {
		for i, k := range l.order {
			if k == fingerprintHash {
				l.order = append(append(l.order[:i:i], l.order[i+1:]...), fingerprintHash)
				break
			}
		}
	}

	entry, ok := byEndpoint[endpoint]
	if !ok {
		entry = &Entry{FailureBreakdown: map[string]int{}}
		byEndpoint[endpoint] = entry
	}

	entry.Total++
	if success {
		entry.Successes++
	} else if failureKind != "" {
		entry.FailureBreakdown[failureKind]++
	}

	if entry.Total == 1 {
		entry.AvgLatencyMs = latencyMs
	} else {
		entry.AvgLatencyMs = emaAlpha*latencyMs + (1-emaAlpha)*entry.AvgLatencyMs
	}
	entry.LastUpdate = time.Now()
}

// Snapshot returns a read-only copy of the entry for
// (fingerprintHash, endpoint), or ok=false if unobserved.
func (l *Learner) Snapshot(fingerprintHash, endpoint string) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	byEndpoint, ok := l.byKey[fingerprintHash]
	if !ok {
		return Entry{}, false
	}
	entry, ok := byEndpoint[endpoint]
	if !ok {
		return Entry{}, false
	}
	return copyEntry(*entry), true
}

// KeyedEntry pairs an Entry with the (fingerprint, endpoint) key it
// was recorded under, for snapshot persistence.
type KeyedEntry struct {
	FingerprintHash string
	Endpoint        string
	Entry           Entry
}

// AllEntries returns every tracked entry, for periodic snapshotting.
func (l *Learner) AllEntries() []KeyedEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []KeyedEntry
	for fp, byEndpoint := range l.byKey {
		for ep, entry := range byEndpoint {
			out = append(out, KeyedEntry{FingerprintHash: fp, Endpoint: ep, Entry: copyEntry(*entry)})
		}
	}
	return out
}

// Restore repopulates the table from a prior snapshot, e.g. loaded on
// startup. Existing entries for the same key are overwritten.
func (l *Learner) Restore(entries []KeyedEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, ke := range entries {
		byEndpoint, ok := l.byKey[ke.FingerprintHash]
		if !ok {
			byEndpoint = perEndpoint{}
			l.byKey[ke.FingerprintHash] = byEndpoint
			l.order = append(l.order, ke.FingerprintHash)
		}
		e := ke.Entry
		byEndpoint[ke.Endpoint] = &e
	}
	l.evictIfNeededLocked()
}

// ShouldDemote reports whether endpoint should be demoted in ranking
// for fingerprintHash per spec.md §4.9 rule 5: success rate below the
// demote threshold over at least minObservations observations.
func (l *Learner) ShouldDemote(fingerprintHash, endpoint string) bool {
	entry, ok := l.Snapshot(fingerprintHash, endpoint)
	if !ok {
		return false
	}
	return entry.Total >= l.minObservations && entry.SuccessRate() < l.demoteThreshold
}

// TopFailurePatterns returns, across all tracked fingerprints, the N
// fingerprint/endpoint pairs with the worst success rate among those
// meeting minObservations — used by the status tool.
func (l *Learner) TopFailurePatterns(n int) []FailurePattern {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var all []FailurePattern
	for fp, byEndpoint := range l.byKey {
		for ep, entry := range byEndpoint {
			if entry.Total < l.minObservations {
				continue
			}
			all = append(all, FailurePattern{
				FingerprintHash: fp,
				Endpoint:        ep,
				SuccessRate:     entry.SuccessRate(),
				Total:           entry.Total,
			})
		}
	}

	// simple selection sort over a typically small slice; status is
	// not a hot path.
	for i := 0; i < len(all) && i < n; i++ {
		minIdx := i
		for j := i + 1; j < len(all); j++ {
			if all[j].SuccessRate < all[minIdx].SuccessRate {
				minIdx = j
			}
		}
		all[i], all[minIdx] = all[minIdx], all[i]
	}
	if len(all) > n {
		all = all[:n]
	}
	return all
}

// FailurePattern is one row of the status tool's empirical top-N report.
type FailurePattern struct {
	FingerprintHash string
	Endpoint        string
	SuccessRate     float64
	Total           int
}

func (l *Learner) evictIfNeededLocked() {
	if l.maxEntries <= 0 {
		return
	}
	for len(l.order) > l.maxEntries {
		oldest := l.order[0]
		l.order = l.order[1:]
		delete(l.byKey, oldest)
	}
}

func copyEntry(e Entry) Entry {
	fb := make(map[string]int, len(e.FailureBreakdown))
	for k, v := range e.FailureBreakdown {
		fb[k] = v
	}
	e.FailureBreakdown = fb
	return e
}
