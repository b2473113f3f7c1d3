package mcptool

import (
	"context"
	"path/filepath"

	"github.com/compresr/ai-request-router/internal/fileanalysis"
)

// AnalyzeFilesInput is the analyze_files tool's input (spec.md §6).
type AnalyzeFilesInput struct {
	Paths                 []string
	Pattern               string
	MaxFiles              int
	IncludeProjectContext bool

	// AttachQuery, when set, assembles a prompt from the analyzed files
	// and runs it through Query, attaching the response.
	AttachQuery   bool
	QueryPrompt   string
	TaskHint      string
	ForceEndpoint string
}

// FileMetadata is one analyzed file's public-facing shape.
type FileMetadata struct {
	Path             string   `json:"path"`
	Size             int64    `json:"size"`
	Language         string   `json:"language"`
	LineCount        int      `json:"line_count"`
	Imports          []string `json:"imports"`
	Functions        []string `json:"functions"`
	Classes          []string `json:"classes"`
	ComplexityBucket string   `json:"complexity_bucket"`
}

// AnalyzeFilesResult is the analyze_files tool's output.
type AnalyzeFilesResult struct {
	Files          []FileMetadata              `json:"files"`
	Errors         []string                    `json:"errors,omitempty"`
	ProjectContext *fileanalysis.ProjectContext `json:"project_context,omitempty"`
	Query          *QueryResult                `json:"query,omitempty"`
}

// AnalyzeFiles implements the analyze_files tool.
func (s *Service) AnalyzeFiles(ctx context.Context, in AnalyzeFilesInput) (AnalyzeFilesResult, error) {
	paths := in.Paths
	if in.Pattern != "" {
		paths = expandPattern(paths, in.Pattern)
	}

	maxFiles := in.MaxFiles
	if maxFiles <= 0 {
		maxFiles = s.cfg.MaxFiles
	}

	result := fileanalysis.Analyze(ctx, paths, fileanalysis.Options{
		MaxFileBytes:          s.cfg.MaxFileBytes,
		MaxFiles:              maxFiles,
		AllowedExtensions:     s.cfg.AllowedExtensions,
		Concurrency:           s.cfg.FileConcurrency,
		IncludeProjectContext: in.IncludeProjectContext,
		WorkspaceRoot:         s.cfg.WorkspaceRoot,
	})

	out := AnalyzeFilesResult{ProjectContext: result.ProjectContext}
	for _, f := range result.Files {
		out.Files = append(out.Files, FileMetadata{
			Path:             f.Path,
			Size:             f.Size,
			Language:         f.Language,
			LineCount:        f.LineCount,
			Imports:          f.Imports,
			Functions:        f.Functions,
			Classes:          f.Classes,
			ComplexityBucket: string(f.ComplexityBucket),
		})
	}
	for _, e := range result.Errors {
		out.Errors = append(out.Errors, e.Path+": "+e.Err.Error())
	}

	if in.AttachQuery {
		prompt := in.QueryPrompt
		if prompt == "" {
			prompt = "Analyze the attached files."
		}
		qr, err := s.Query(ctx, QueryInput{
			Prompt:        prompt,
			TaskHint:      in.TaskHint,
			ForceEndpoint: in.ForceEndpoint,
			FileInputs:    in.Paths,
		})
		if err == nil {
			out.Query = &qr
		}
	}

	return out, nil
}

// expandPattern applies a glob pattern under each of the given root
// directories, accumulating any matches. Roots that are already files
// pass through unchanged.
func expandPattern(roots []string, pattern string) []string {
	var out []string
	for _, root := range roots {
		matches, err := filepath.Glob(filepath.Join(root, pattern))
		if err != nil || len(matches) == 0 {
			out = append(out, root)
			continue
		}
		out = append(out, matches...)
	}
	return out
}
