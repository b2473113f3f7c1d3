package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_FitsInSingleChunk(t *testing.T) {
	text := "package main\n\nfunc main() {}\n"
	chunks := Chunk("a.go", text, "go", Params{MaxTokens: 2500})

	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Text)
	assert.True(t, chunks[0].CutAtBoundary)
}

func TestChunk_SplitsOversizedInputIntoMultipleChunks(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 400; i++ {
		b.WriteString("func handler")
		b.WriteString(strings.Repeat("x", i%7))
		b.WriteString("() {\n\treturn nil\n}\n\n")
	}
	text := b.String()

	chunks := Chunk("big.go", text, "go", Params{
		TargetTokens:  200,
		MaxTokens:     250,
		MinTokens:     20,
		OverlapTokens: 20,
	})

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, c.TokenEstimate, 260)
	}
}

func TestChunk_ConsecutiveChunksOverlap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 300; i++ {
		b.WriteString("def f")
		b.WriteString(strings.Repeat("y", i%5))
		b.WriteString("():\n    pass\n\n")
	}
	text := b.String()

	chunks := Chunk("big.py", text, "python", Params{
		TargetTokens:  150,
		MaxTokens:     200,
		MinTokens:     20,
		OverlapTokens: 30,
	})

	require.Greater(t, len(chunks), 1)
	for i := 1; i < len(chunks); i++ {
		assert.GreaterOrEqual(t, chunks[i].CarryOverTokens, 30)
	}
}

func TestChunk_EmptyInputProducesSingleEmptyChunk(t *testing.T) {
	chunks := Chunk("empty.go", "", "go", Params{})
	require.Len(t, chunks, 1)
	assert.Equal(t, "", chunks[0].Text)
}
