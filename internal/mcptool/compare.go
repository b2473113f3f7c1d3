package mcptool

import (
	"context"
	"strings"

	"github.com/compresr/ai-request-router/internal/fileanalysis"
)

// CompareInput is the compare tool's input (spec.md §6).
type CompareInput struct {
	PathA, PathB  string
	AttachQuery   bool
	QueryPrompt   string
	ForceEndpoint string
}

// CompareResult is the compare tool's output: size/structure/
// similarity, plus optionally one or more endpoints' analyses.
type CompareResult struct {
	A                 FileMetadata `json:"a"`
	B                 FileMetadata `json:"b"`
	SimilarityPercent float64      `json:"similarity_percent"`
	Query             *QueryResult `json:"query,omitempty"`
}

// Compare implements the compare tool as a combinator over Analyze:
// two single-file analyses plus a Jaccard similarity over the sets of
// distinct trimmed, non-empty lines (spec.md §6's non-goals exclude a full diff algorithm, so
// similarity here is a cheap structural proxy, not a character diff).
func (s *Service) Compare(ctx context.Context, in CompareInput) (CompareResult, error) {
	result := fileanalysis.Analyze(ctx, []string{in.PathA, in.PathB}, fileanalysis.Options{
		MaxFileBytes:      s.cfg.MaxFileBytes,
		MaxFiles:          2,
		AllowedExtensions: s.cfg.AllowedExtensions,
		Concurrency:       2,
		WorkspaceRoot:     s.cfg.WorkspaceRoot,
	})

	var a, b fileanalysis.FileUnit
	for _, f := range result.Files {
		switch {
		case strings.HasSuffix(f.Path, trimToName(in.PathA)):
			a = f
		case strings.HasSuffix(f.Path, trimToName(in.PathB)):
			b = f
		}
	}

	out := CompareResult{
		A:                 toMetadata(a),
		B:                 toMetadata(b),
		SimilarityPercent: jaccardLineSimilarity(a.Content, b.Content) * 100,
	}

	if in.AttachQuery {
		prompt := in.QueryPrompt
		if prompt == "" {
			prompt = "Compare the two attached files and summarize the differences."
		}
		qr, err := s.Query(ctx, QueryInput{
			Prompt:        prompt,
			ForceEndpoint: in.ForceEndpoint,
			FileInputs:    []string{in.PathA, in.PathB},
		})
		if err == nil {
			out.Query = &qr
		}
	}

	return out, nil
}

func trimToName(path string) string {
	idx := strings.LastIndexAny(path, "/\\")
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}

func toMetadata(f fileanalysis.FileUnit) FileMetadata {
	return FileMetadata{
		Path:             f.Path,
		Size:             f.Size,
		Language:         f.Language,
		LineCount:        f.LineCount,
		Imports:          f.Imports,
		Functions:        f.Functions,
		Classes:          f.Classes,
		ComplexityBucket: string(f.ComplexityBucket),
	}
}

// jaccardLineSimilarity computes the Jaccard index between the sets of
// distinct lines in a and b: |intersection| / |union|.
func jaccardLineSimilarity(a, b string) float64 {
	setA := lineSet(a)
	setB := lineSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}

	intersection := 0
	for line := range setA {
		if setB[line] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func lineSet(content string) map[string]bool {
	lines := strings.Split(content, "\n")
	set := make(map[string]bool, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			set[trimmed] = true
		}
	}
	return set
}
