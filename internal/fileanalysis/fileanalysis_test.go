package fileanalysis

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestAnalyze_ReadsSingleFile(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "main.go", "package main\n\nfunc main() {\n}\n")

	res := Analyze(context.Background(), []string{"main.go"}, Options{WorkspaceRoot: dir})

	require.Len(t, res.Files, 1)
	assert.Equal(t, "go", res.Files[0].Language)
	assert.Contains(t, res.Files[0].Functions, "main")
}

func TestAnalyze_RejectsDisallowedExtension(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "image.bin", "binary-ish")

	res := Analyze(context.Background(), []string{"."}, Options{WorkspaceRoot: dir})

	assert.Empty(t, res.Files)
}

func TestAnalyze_PartialFailureDoesNotAbortBatch(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "a.go", "package main\n")

	res := Analyze(context.Background(), []string{"a.go", "missing.go"}, Options{WorkspaceRoot: dir})

	require.Len(t, res.Files, 1)
	require.Len(t, res.Errors, 1)
}

func TestAnalyze_ProjectContextRequiresAtLeastTwoFiles(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "a.go", "package main\n\nimport \"fmt\"\n")

	res := Analyze(context.Background(), []string{"a.go"}, Options{WorkspaceRoot: dir, IncludeProjectContext: true})
	assert.Nil(t, res.ProjectContext)

	writeTempFile(t, dir, "b.go", "package main\n\nimport \"os\"\n")
	res = Analyze(context.Background(), []string{"a.go", "b.go"}, Options{WorkspaceRoot: dir, IncludeProjectContext: true})
	require.NotNil(t, res.ProjectContext)
	assert.Equal(t, 2, res.ProjectContext.Languages["go"])
}

func TestBucketComplexity(t *testing.T) {
	assert.Equal(t, ComplexityLow, bucketComplexity(""))
}
