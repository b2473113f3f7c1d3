// Package promptasm builds the outbound prompt for an endpoint within
// its token budget, prioritizing files by complexity and type
// (spec.md §4.4, C5).
package promptasm

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/compresr/ai-request-router/internal/chunker"
	"github.com/compresr/ai-request-router/internal/config"
	"github.com/compresr/ai-request-router/internal/fileanalysis"
	"github.com/compresr/ai-request-router/internal/tokencount"
)

// EndpointBudget is the subset of an Endpoint's descriptor the
// assembler reads.
type EndpointBudget struct {
	MaxContextTokens  int
	MaxResponseTokens int
}

// Assembled is the assemble() output (spec.md §4.4).
type Assembled struct {
	PromptText        string
	AdvisoryMaxTokens int
}

var sourceExtensions = map[string]bool{
	".go": true, ".py": true, ".js": true, ".jsx": true, ".ts": true, ".tsx": true,
	".java": true, ".c": true, ".h": true, ".cpp": true, ".hpp": true, ".cc": true,
	".rs": true, ".rb": true, ".php": true, ".cs": true, ".swift": true, ".kt": true, ".scala": true,
}

const (
	preferredSizeMin = 1024
	preferredSizeMax = 50 * 1024
)

// Assemble implements the assemble() contract of spec.md §4.4.
func Assemble(requestPrompt, context string, budget EndpointBudget, files []fileanalysis.FileUnit, counter tokencount.Counter) Assembled {
	if counter == nil {
		counter = tokencount.Default
	}

	tokenBudget := budget.MaxContextTokens - budget.MaxResponseTokens - config.DefaultSafetyMarginTokens
	if tokenBudget < 0 {
		tokenBudget = 0
	}

	var b strings.Builder
	b.WriteString(requestPrompt)
	if context != "" {
		b.WriteString("\n\n")
		b.WriteString(context)
	}
	used := counter.Count(b.String())

	ordered := orderByPriority(files)
	omitted := 0

	for i, f := range ordered {
		remaining := tokenBudget - used
		if remaining <= 0 {
			omitted = len(ordered) - i
			break
		}

		section := renderFileSection(f, counter)
		sectionTokens := counter.Count(section)

		if sectionTokens <= remaining {
			b.WriteString("\n\n")
			b.WriteString(section)
			used += sectionTokens + 2
			continue
		}

		truncated := truncateToFit(f, remaining, counter)
		if truncated != "" {
			b.WriteString("\n\n")
			b.WriteString(truncated)
			used = tokenBudget
		}
		omitted = len(ordered) - i - 1
		break
	}

	if omitted > 0 {
		b.WriteString(fmt.Sprintf("\n\n[%d file(s) omitted: token budget exhausted]", omitted))
	}

	return Assembled{
		PromptText:        b.String(),
		AdvisoryMaxTokens: budget.MaxResponseTokens,
	}
}

// orderByPriority ranks files descending by complexity bucket, then
// source-language extension over markup, then preferred size window
// (spec.md §4.4).
func orderByPriority(files []fileanalysis.FileUnit) []fileanalysis.FileUnit {
	ordered := make([]fileanalysis.FileUnit, len(files))
	copy(ordered, files)
	sort.SliceStable(ordered, func(i, j int) bool {
		return priorityScore(ordered[i]) > priorityScore(ordered[j])
	})
	return ordered
}

func priorityScore(f fileanalysis.FileUnit) float64 {
	var score float64
	switch f.ComplexityBucket {
	case fileanalysis.ComplexityHigh:
		score += 3
	case fileanalysis.ComplexityMedium:
		score += 2
	case fileanalysis.ComplexityLow:
		score += 1
	}
	if sourceExtensions[strings.ToLower(filepath.Ext(f.Path))] {
		score += 2
	}
	if f.Size >= preferredSizeMin && f.Size <= preferredSizeMax {
		score += 1
	}
	return score
}

func renderFileSection(f fileanalysis.FileUnit, counter tokencount.Counter) string {
	content := f.Content
	note := ""
	if len(f.Chunks) > 0 {
		content = f.Chunks[0]
		if len(f.Chunks) > 1 {
			note = fmt.Sprintf("\n[%d additional chunk(s) withheld: only the first chunk is sent]", len(f.Chunks)-1)
		}
	}
	return fmt.Sprintf("--- file: %s ---\n%s%s", f.Path, content, note)
}

func truncateToFit(f fileanalysis.FileUnit, remaining int, counter tokencount.Counter) string {
	if remaining <= 0 {
		return ""
	}
	chunks := chunker.Chunk(f.Path, f.Content, f.Language, chunker.Params{
		TargetTokens: remaining,
		MaxTokens:    remaining,
		Counter:      counter,
	})
	if len(chunks) == 0 {
		return ""
	}
	return fmt.Sprintf("--- file: %s (truncated) ---\n%s", f.Path, chunks[0].Text)
}
