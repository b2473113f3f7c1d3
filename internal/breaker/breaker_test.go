package breaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := New(Config{FailureThreshold: 3, OpenCooldown: time.Minute, HalfOpenSuccesses: 2})

	require.True(t, b.Allow())
	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, StateClosed, b.State())
	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}

func TestBreaker_HalfOpenAfterCooldown(t *testing.T) {
	b := New(Config{FailureThreshold: 1, OpenCooldown: 10 * time.Millisecond, HalfOpenSuccesses: 2})

	b.RecordFailure()
	require.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())

	time.Sleep(20 * time.Millisecond)
	assert.True(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.State())
}

func TestBreaker_ClosesAfterHalfOpenSuccesses(t *testing.T) {
	b := New(Config{FailureThreshold: 1, OpenCooldown: time.Millisecond, HalfOpenSuccesses: 2})

	b.RecordFailure()
	time.Sleep(5 * time.Millisecond)
	require.True(t, b.Allow())
	require.Equal(t, StateHalfOpen, b.State())

	b.RecordSuccess()
	assert.Equal(t, StateHalfOpen, b.State())
	b.RecordSuccess()
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := New(Config{FailureThreshold: 1, OpenCooldown: time.Millisecond, HalfOpenSuccesses: 2})

	b.RecordFailure()
	time.Sleep(5 * time.Millisecond)
	require.True(t, b.Allow())
	require.Equal(t, StateHalfOpen, b.State())

	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_SuccessResetsConsecutiveFailures(t *testing.T) {
	b := New(Config{FailureThreshold: 3, OpenCooldown: time.Minute, HalfOpenSuccesses: 2})

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenAdmitsOnlyOneInFlightProbe(t *testing.T) {
	b := New(Config{FailureThreshold: 1, OpenCooldown: time.Millisecond, HalfOpenSuccesses: 2})

	b.RecordFailure()
	time.Sleep(5 * time.Millisecond)
	require.True(t, b.Allow())
	require.Equal(t, StateHalfOpen, b.State())

	assert.False(t, b.Allow(), "a second probe must not be admitted while one is in flight")

	b.RecordSuccess()
	assert.True(t, b.Allow(), "the token is released once the in-flight probe's outcome is recorded")
}

func TestBreaker_SelectablePromotesOpenToHalfOpenAfterCooldownWithoutAllow(t *testing.T) {
	b := New(Config{FailureThreshold: 1, OpenCooldown: 10 * time.Millisecond, HalfOpenSuccesses: 2})

	b.RecordFailure()
	require.Equal(t, StateOpen, b.State())
	assert.False(t, b.Selectable(), "cooldown has not elapsed yet")

	time.Sleep(20 * time.Millisecond)

	// Selectable alone, with no Allow call in between, must perform the
	// same promotion Allow does, or a breaker nothing ever calls Allow
	// against again (because callers use Selectable to decide whether
	// to offer the endpoint at all) would stay open forever.
	assert.True(t, b.Selectable())
	assert.Equal(t, StateHalfOpen, b.State())

	assert.True(t, b.Allow(), "the promoted half-open breaker still admits exactly one probe")
}

func TestBreaker_SelectableTrueForClosedAndHalfOpen(t *testing.T) {
	b := New(Config{FailureThreshold: 1, OpenCooldown: time.Millisecond, HalfOpenSuccesses: 2})
	assert.True(t, b.Selectable())

	b.RecordFailure()
	time.Sleep(5 * time.Millisecond)
	require.True(t, b.Allow())
	require.Equal(t, StateHalfOpen, b.State())
	assert.True(t, b.Selectable())
}

func TestBreaker_DefaultsApplied(t *testing.T) {
	b := New(Config{})
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 5, b.cfg.FailureThreshold)
	assert.Equal(t, 60*time.Second, b.cfg.OpenCooldown)
	assert.Equal(t, 3, b.cfg.HalfOpenSuccesses)
}
