package fsafe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_RejectsTraversalOutsideWorkspace(t *testing.T) {
	_, err := Resolve("../../etc/passwd", "/workspace")
	require.Error(t, err)
}

func TestResolve_AcceptsPlainRelativePath(t *testing.T) {
	abs, err := Resolve("src/main.go", "/workspace")
	require.NoError(t, err)
	assert.Equal(t, "/workspace/src/main.go", abs)
}

func TestResolve_StripsWSLPrefix(t *testing.T) {
	abs, err := Resolve(`\\wsl.localhost\Ubuntu\home\user\proj\main.go`, "/home/user/proj")
	require.NoError(t, err)
	assert.Equal(t, "/home/user/proj/main.go", abs)
}

func TestResolve_RejectsRestrictedPrefix(t *testing.T) {
	_, err := Resolve("/etc/passwd", "/etc")
	require.Error(t, err)
}

func TestResolve_RejectsBlockedSegmentBySegmentEquality(t *testing.T) {
	_, err := Resolve("/workspace/node_modules/pkg/index.js", "/workspace")
	require.Error(t, err)
}

func TestResolve_AllowsSubstringThatIsNotABlockedSegment(t *testing.T) {
	abs, err := Resolve("/workspace/build_scripts.go", "/workspace")
	require.NoError(t, err)
	assert.Equal(t, "/workspace/build_scripts.go", abs)
}

func TestDiagnose_ReportsEachCheckIndependently(t *testing.T) {
	checks := Diagnose("/workspace/.git/config", "/workspace")
	require.NotEmpty(t, checks)

	var sawBlocked bool
	for _, c := range checks {
		if c.Name == "blocked_segment" {
			sawBlocked = true
			assert.False(t, c.Passed)
		}
	}
	assert.True(t, sawBlocked)
}
