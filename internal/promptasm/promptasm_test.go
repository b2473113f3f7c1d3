package promptasm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/compresr/ai-request-router/internal/fileanalysis"
)

func TestAssemble_IncludesAllFilesWhenBudgetIsLarge(t *testing.T) {
	files := []fileanalysis.FileUnit{
		{Path: "a.go", Content: "package a", Language: "go", ComplexityBucket: fileanalysis.ComplexityHigh, Size: 2000},
		{Path: "b.md", Content: "# readme", Language: "markdown", ComplexityBucket: fileanalysis.ComplexityLow, Size: 500},
	}

	res := Assemble("do something", "", EndpointBudget{MaxContextTokens: 100000, MaxResponseTokens: 4096}, files, nil)

	assert.Contains(t, res.PromptText, "a.go")
	assert.Contains(t, res.PromptText, "b.md")
	assert.NotContains(t, res.PromptText, "omitted")
}

func TestAssemble_PrioritizesHighComplexitySourceFiles(t *testing.T) {
	files := []fileanalysis.FileUnit{
		{Path: "notes.md", Content: "notes", Language: "markdown", ComplexityBucket: fileanalysis.ComplexityLow, Size: 100},
		{Path: "core.go", Content: "package core", Language: "go", ComplexityBucket: fileanalysis.ComplexityHigh, Size: 2000},
	}

	res := Assemble("review", "", EndpointBudget{MaxContextTokens: 100000, MaxResponseTokens: 4096}, files, nil)

	coreIdx := strings.Index(res.PromptText, "core.go")
	notesIdx := strings.Index(res.PromptText, "notes.md")
	assert.Less(t, coreIdx, notesIdx)
}

func TestAssemble_OmitsFilesWhenBudgetExhausted(t *testing.T) {
	bigContent := strings.Repeat("x", 10000)
	files := []fileanalysis.FileUnit{
		{Path: "a.go", Content: bigContent, Language: "go", ComplexityBucket: fileanalysis.ComplexityHigh, Size: 10000},
		{Path: "b.go", Content: bigContent, Language: "go", ComplexityBucket: fileanalysis.ComplexityHigh, Size: 10000},
	}

	res := Assemble("short prompt", "", EndpointBudget{MaxContextTokens: 1000, MaxResponseTokens: 400}, files, nil)

	assert.Contains(t, res.PromptText, "omitted")
}

func TestAssemble_UsesPrecomputedTopRankedChunkOnly(t *testing.T) {
	files := []fileanalysis.FileUnit{
		{Path: "a.go", Content: "full content here", Language: "go", Chunks: []string{"chunk one", "chunk two"}},
	}

	res := Assemble("q", "", EndpointBudget{MaxContextTokens: 100000, MaxResponseTokens: 4096}, files, nil)

	assert.Contains(t, res.PromptText, "chunk one")
	assert.NotContains(t, res.PromptText, "chunk two")
	assert.Contains(t, res.PromptText, "additional chunk(s) withheld")
}
