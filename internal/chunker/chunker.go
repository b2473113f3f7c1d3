// Package chunker splits oversized file content into overlapping,
// token-bounded chunks at language-aware boundaries (spec.md §4.3).
package chunker

import (
	"regexp"
	"strings"

	"github.com/compresr/ai-request-router/internal/config"
	"github.com/compresr/ai-request-router/internal/tokencount"
)

// ChunkResult is a bounded slice of content (spec.md §3).
type ChunkResult struct {
	SourcePath      string
	OrderIndex      int
	TokenEstimate   int
	Text            string
	CutAtBoundary   bool
	CarryOverTokens int
}

// Params parameterizes one chunk() call.
type Params struct {
	TargetTokens  int
	MaxTokens     int
	MinTokens     int
	OverlapTokens int
	Counter       tokencount.Counter
}

func (p Params) withDefaults() Params {
	if p.TargetTokens <= 0 {
		p.TargetTokens = config.DefaultChunkTargetTokens
	}
	if p.MaxTokens <= 0 {
		p.MaxTokens = config.DefaultChunkMaxTokens
	}
	if p.MinTokens <= 0 {
		p.MinTokens = config.DefaultChunkMinTokens
	}
	if p.OverlapTokens <= 0 {
		p.OverlapTokens = config.DefaultChunkOverlapTokens
	}
	if p.Counter == nil {
		p.Counter = tokencount.Default
	}
	return p
}

// boundaryRegexes are language-specific regexes over line starts that
// mark a preferred semantic cut point.
var boundaryRegexes = map[string]*regexp.Regexp{
	"go":         regexp.MustCompile(`^(func |type |import |}\s*$|//)`),
	"python":     regexp.MustCompile(`^(def |class |import |from |#)`),
	"javascript": regexp.MustCompile(`^(function |class |import |export |//)`),
	"typescript": regexp.MustCompile(`^(function |class |import |export |//)`),
	"java":       regexp.MustCompile(`^(public |private |protected |import |}\s*$)`),
	"rust":       regexp.MustCompile(`^(fn |struct |use |pub |//)`),
}

var genericBoundary = regexp.MustCompile(`^(\s*$|#|//)`)

// Chunk splits text into bounded chunks per spec.md §4.3.
func Chunk(sourcePath, text, language string, params Params) []ChunkResult {
	p := params.withDefaults()
	total := p.Counter.Count(text)

	if total <= p.MaxTokens {
		return []ChunkResult{{
			SourcePath:    sourcePath,
			OrderIndex:    0,
			TokenEstimate: total,
			Text:          text,
			CutAtBoundary: true,
		}}
	}

	lines := strings.Split(text, "\n")
	boundaryRe := boundaryRegexes[language]
	if boundaryRe == nil {
		boundaryRe = genericBoundary
	}

	var chunks []ChunkResult
	lineStart := 0
	carryOver := ""
	orderIdx := 0

	for lineStart < len(lines) {
		cut := findCut(lines, lineStart, boundaryRe, p)
		bodyLines := lines[lineStart:cut]
		body := strings.Join(bodyLines, "\n")
		chunkText := carryOver + body
		estimate := p.Counter.Count(chunkText)

		chunks = append(chunks, ChunkResult{
			SourcePath:      sourcePath,
			OrderIndex:      orderIdx,
			TokenEstimate:   estimate,
			Text:            chunkText,
			CutAtBoundary:   cut < len(lines),
			CarryOverTokens: p.Counter.Count(carryOver),
		})
		orderIdx++

		carryOver = overlapTail(bodyLines, p)
		lineStart = cut
	}

	mergeTerminalShortChunk(&chunks, p)
	return chunks
}

// findCut returns the line index (exclusive) at which to end the
// current chunk, preferring a semantic boundary within
// DefaultBoundarySearchLines of the target cut-point.
func findCut(lines []string, start int, boundaryRe *regexp.Regexp, p Params) int {
	target := estimateCutByTokens(lines, start, p.TargetTokens, p.Counter)
	maxCut := estimateCutByTokens(lines, start, p.MaxTokens, p.Counter)
	if maxCut <= start {
		maxCut = start + 1
	}
	if target >= len(lines) {
		return len(lines)
	}

	window := config.DefaultBoundarySearchLines
	best := -1
	bestDist := window + 1
	bestAfterBlank := false

	lo := target - window
	if lo < start {
		lo = start
	}
	hi := target + window
	if hi > maxCut {
		hi = maxCut
	}
	if hi > len(lines) {
		hi = len(lines)
	}

	for i := lo; i < hi; i++ {
		if !boundaryRe.MatchString(lines[i]) {
			continue
		}
		dist := i - target
		if dist < 0 {
			dist = -dist
		}
		afterBlank := i > start && strings.TrimSpace(lines[i-1]) == ""
		if dist < bestDist || (dist == bestDist && afterBlank && !bestAfterBlank) {
			best = i
			bestDist = dist
			bestAfterBlank = afterBlank
		}
	}

	if best >= 0 && best > start {
		return best
	}
	if target > start {
		return target
	}
	return maxCut
}

func estimateCutByTokens(lines []string, start, budget int, counter tokencount.Counter) int {
	used := 0
	for i := start; i < len(lines); i++ {
		used += counter.Count(lines[i]) + 1
		if used > budget {
			if i == start {
				return start + 1
			}
			return i
		}
	}
	return len(lines)
}

// overlapTail returns the trailing slice of bodyLines to carry into the
// next chunk, accumulating lines back-to-front until the carried token
// count is at least p.OverlapTokens (crossing the threshold, not
// stopping short of it), so consecutive chunks always share at least
// the configured overlap. A single trailing line that alone exceeds
// the budget is still carried in full rather than dropped.
func overlapTail(bodyLines []string, p Params) string {
	if p.OverlapTokens <= 0 || len(bodyLines) == 0 {
		return ""
	}
	start := len(bodyLines)
	tail := ""
	for start > 0 {
		start--
		tail = strings.Join(bodyLines[start:], "\n") + "\n"
		if p.Counter.Count(tail) >= p.OverlapTokens {
			break
		}
	}
	return tail
}

func mergeTerminalShortChunk(chunks *[]ChunkResult, p Params) {
	n := len(*chunks)
	if n < 2 {
		return
	}
	last := (*chunks)[n-1]
	if last.TokenEstimate >= p.MinTokens {
		return
	}
	prev := (*chunks)[n-2]
	merged := prev.Text + "\n" + last.Text
	mergedEstimate := p.Counter.Count(merged)
	if mergedEstimate > p.MaxTokens {
		return
	}
	prev.Text = merged
	prev.TokenEstimate = mergedEstimate
	*chunks = append((*chunks)[:n-2], prev)
}
