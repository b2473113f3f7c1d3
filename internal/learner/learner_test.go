package learner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLearner_RecordAndSnapshot(t *testing.T) {
	l := New(100, 0.2, 10)
	l.RecordOutcome("fp1", "ep1", true, 120, "")
	l.RecordOutcome("fp1", "ep1", false, 200, "timeout")

	entry, ok := l.Snapshot("fp1", "ep1")
	require.True(t, ok)
	assert.Equal(t, 2, entry.Total)
	assert.Equal(t, 1, entry.Successes)
	assert.Equal(t, 1, entry.FailureBreakdown["timeout"])
}

func TestLearner_ShouldDemote_RequiresMinObservations(t *testing.T) {
	l := New(100, 0.2, 10)
	for i := 0; i < 5; i++ {
		l.RecordOutcome("fp1", "ep1", false, 100, "network")
	}
	assert.False(t, l.ShouldDemote("fp1", "ep1"))

	for i := 0; i < 10; i++ {
		l.RecordOutcome("fp1", "ep1", false, 100, "network")
	}
	assert.True(t, l.ShouldDemote("fp1", "ep1"))
}

func TestLearner_ShouldDemote_FalseAboveThreshold(t *testing.T) {
	l := New(100, 0.2, 10)
	for i := 0; i < 9; i++ {
		l.RecordOutcome("fp1", "ep1", true, 100, "")
	}
	l.RecordOutcome("fp1", "ep1", false, 100, "network")
	assert.False(t, l.ShouldDemote("fp1", "ep1"))
}

func TestLearner_EvictsOldestWhenOverCapacity(t *testing.T) {
	l := New(1, 0.2, 10)
	l.RecordOutcome("fp1", "ep1", true, 100, "")
	l.RecordOutcome("fp2", "ep1", true, 100, "")

	_, ok := l.Snapshot("fp1", "ep1")
	assert.False(t, ok)
	_, ok = l.Snapshot("fp2", "ep1")
	assert.True(t, ok)
}

func TestLearner_TopFailurePatterns(t *testing.T) {
	l := New(100, 0.2, 10)
	for i := 0; i < 10; i++ {
		l.RecordOutcome("fp1", "ep1", false, 100, "network")
	}
	for i := 0; i < 10; i++ {
		l.RecordOutcome("fp2", "ep1", true, 100, "")
	}

	top := l.TopFailurePatterns(5)
	require.NotEmpty(t, top)
	assert.Equal(t, "fp1", top[0].FingerprintHash)
}
