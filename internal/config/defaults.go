// Package config - defaults.go centralizes magic numbers and default
// values.
//
// DESIGN: All default values that appear in multiple places should be
// defined here. This makes configuration more maintainable and
// auditable.
package config

import "time"

// =============================================================================
// TOKEN ESTIMATION
// =============================================================================

// TokenEstimateRatio is the approximate number of characters per token.
// Used for rough token counting when exact counts aren't available.
const TokenEstimateRatio = 4

// =============================================================================
// ROUTING DEFAULTS
// =============================================================================

// DefaultLocalFirstRatio is the target fraction of traffic served by
// local endpoints.
const DefaultLocalFirstRatio = 0.95

// DefaultRequestTimeoutBaseMs is the base per-endpoint timeout before
// classifier-score scaling.
const DefaultRequestTimeoutBaseMs = 25_000

// DefaultComplexMultiplier is the "2" in timeout = base*(1+2*score).
const DefaultComplexMultiplier = 2.0

// DefaultEmpiricalDemoteThreshold is the success-rate floor below which
// the empirical learner demotes a candidate.
const DefaultEmpiricalDemoteThreshold = 0.2

// DefaultEmpiricalMinObservations is the minimum sample size before the
// learner's demotion rule applies.
const DefaultEmpiricalMinObservations = 10

// DefaultSafetyMarginTokens is subtracted from an endpoint's context
// budget before any files are appended.
const DefaultSafetyMarginTokens = 512

// =============================================================================
// HEALTH MONITOR DEFAULTS
// =============================================================================

// DefaultProbeInterval is how often each endpoint is health-checked.
const DefaultProbeInterval = 30 * time.Second

// DefaultProbeTimeout bounds a single health probe.
const DefaultProbeTimeout = 5 * time.Second

// DefaultHealthySuccessStreak is consecutive successful probes required
// to move back to healthy.
const DefaultHealthySuccessStreak = 3

// DefaultUnhealthyFailureStreak is consecutive failed probes required
// to move from degraded to unhealthy.
const DefaultUnhealthyFailureStreak = 3

// =============================================================================
// CIRCUIT BREAKER DEFAULTS
// =============================================================================

// DefaultBreakerFailureThreshold is consecutive failures before open.
const DefaultBreakerFailureThreshold = 5

// DefaultBreakerOpenCooldown is how long a breaker stays open before
// allowing half-open probes.
const DefaultBreakerOpenCooldown = 60 * time.Second

// DefaultBreakerHalfOpenSuccesses is consecutive half-open successes
// required to close the breaker.
const DefaultBreakerHalfOpenSuccesses = 3

// =============================================================================
// CACHE DEFAULTS
// =============================================================================

// DefaultCacheTTL is how long a cache entry remains valid.
const DefaultCacheTTL = 15 * time.Minute

// DefaultCacheMaxEntries bounds the cache's LRU list.
const DefaultCacheMaxEntries = 2000

// DefaultCacheMaxBytes bounds total cached response size.
const DefaultCacheMaxBytes = 64 * 1024 * 1024

// =============================================================================
// FILE PIPELINE DEFAULTS
// =============================================================================

// DefaultMaxFileBytes bounds a single file read.
const DefaultMaxFileBytes = 10 * 1024 * 1024

// DefaultMaxFiles bounds how many files one request may analyze.
const DefaultMaxFiles = 50

// HardMaxFiles is the absolute cap regardless of configuration.
const HardMaxFiles = 50

// DefaultFileConcurrency bounds parallel reads within a batch.
const DefaultFileConcurrency = 5

// HardMaxFileConcurrency is the absolute cap regardless of configuration.
const HardMaxFileConcurrency = 10

// DefaultFileReadTimeout is the per-file read timeout when the request
// carries no deadline.
const DefaultFileReadTimeout = 5 * time.Second

// DefaultMaxWalkDepth bounds directory recursion depth.
const DefaultMaxWalkDepth = 10

// =============================================================================
// SEMANTIC CHUNKER DEFAULTS
// =============================================================================

// DefaultChunkTargetTokens is the preferred chunk size.
const DefaultChunkTargetTokens = 2000

// DefaultChunkMaxTokens is the hard per-chunk cap.
const DefaultChunkMaxTokens = 2500

// DefaultChunkMinTokens is the minimum size before a terminal short
// chunk is merged into its predecessor.
const DefaultChunkMinTokens = 200

// DefaultChunkOverlapTokens is how much of the previous chunk's tail is
// carried into the next chunk.
const DefaultChunkOverlapTokens = 200

// DefaultBoundarySearchLines is the window (in lines) around the target
// cut point within which a semantic boundary is preferred.
const DefaultBoundarySearchLines = 10

// =============================================================================
// RETRY / FAILOVER DEFAULTS
// =============================================================================

// DefaultRetryAttempts is same-endpoint retries for network errors.
const DefaultRetryAttempts = 2

// DefaultRetryBaseBackoff is the base delay of the jittered
// exponential backoff: retry n waits a random duration between zero
// and base*2^n, capped at DefaultRetryCapBackoff.
const DefaultRetryBaseBackoff = 100 * time.Millisecond

// DefaultRetryCapBackoff is the jittered backoff ceiling.
const DefaultRetryCapBackoff = 2 * time.Second

// =============================================================================
// HTTP AND NETWORKING
// =============================================================================

// DefaultBufferSize is the standard I/O buffer size.
const DefaultBufferSize = 4096

// DefaultDialTimeout is the TCP dial timeout.
const DefaultDialTimeout = 10 * time.Second

// MaxRequestBodySize is the maximum allowed inbound request body.
const MaxRequestBodySize = 10 * 1024 * 1024

// =============================================================================
// SHUTDOWN
// =============================================================================

// DefaultDrainOnShutdown bounds graceful drain of in-flight requests.
const DefaultDrainOnShutdown = 3 * time.Second

// =============================================================================
// PERSISTENCE
// =============================================================================

// DefaultSnapshotInterval is how often the empirical table flushes to
// the optional sqlite snapshot.
const DefaultSnapshotInterval = 5 * time.Minute

// DefaultLearnerMaxEntries bounds the in-memory empirical table before
// least-recently-updated eviction kicks in.
const DefaultLearnerMaxEntries = 5000
