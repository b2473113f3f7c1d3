// Package fileanalysis implements bounded-concurrency file reads plus
// best-effort language/structure extraction (spec.md §4.2).
//
// DESIGN: the batches-of-N-in-parallel idiom follows the teacher's
// costcontrol cleanup-goroutine style of bounding concurrency with a
// simple semaphore channel rather than a full worker-pool package.
package fileanalysis

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/compresr/ai-request-router/internal/config"
	"github.com/compresr/ai-request-router/internal/fsafe"
)

// ComplexityBucket buckets a file's structural complexity.
type ComplexityBucket string

const (
	ComplexityLow    ComplexityBucket = "low"
	ComplexityMedium ComplexityBucket = "medium"
	ComplexityHigh   ComplexityBucket = "high"
)

// FileUnit is one analyzed source file (spec.md §3).
type FileUnit struct {
	Path             string
	Size             int64
	Language         string
	LineCount        int
	Imports          []string
	Functions        []string
	Classes          []string
	ComplexityBucket ComplexityBucket
	Content          string

	// Chunks holds pre-computed chunk texts when the caller has run
	// this unit through the chunker ahead of prompt assembly; nil
	// until then.
	Chunks []string
}

// FileError records a per-file failure without aborting the batch.
type FileError struct {
	Path string
	Err  error
}

// ProjectContext aggregates cross-file signals, requested only when
// include_project_context is set and at least two files were read.
type ProjectContext struct {
	Languages   map[string]int
	Directories map[string]int
	FileTypes   map[string]int
	ImportRoots map[string]int
	Frameworks  []string
}

// Options controls one analyze() call (spec.md §4.2).
type Options struct {
	MaxFileBytes          int64
	MaxFiles              int
	AllowedExtensions     map[string]bool
	Concurrency           int
	IncludeProjectContext bool
	WorkspaceRoot         string
}

// Result is the output of analyze().
type Result struct {
	Files          []FileUnit
	Errors         []FileError
	ProjectContext *ProjectContext
}

var extensionLanguage = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".jsx":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".java": "java",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".hpp":  "cpp",
	".cc":   "cpp",
	".rs":   "rust",
	".rb":   "ruby",
	".php":  "php",
	".cs":   "csharp",
	".swift": "swift",
	".kt":   "kotlin",
	".scala": "scala",
	".md":   "markdown",
	".txt":  "text",
	".json": "json",
	".yaml": "yaml",
	".yml":  "yaml",
	".toml": "toml",
	".sh":   "shell",
	".sql":  "sql",
}

var frameworkKeywords = map[string]string{
	"react":   "react",
	"django":  "django",
	"flask":   "flask",
	"express": "express",
	"gin":     "gin",
	"spring":  "spring",
	"rails":   "rails",
	"vue":     "vue",
}

// Analyze implements the analyze() contract of spec.md §4.2.
func Analyze(ctx context.Context, paths []string, opt Options) Result {
	opt = applyDefaults(opt)

	var candidates []string
	var result Result

	for _, p := range paths {
		abs, err := fsafe.Resolve(p, opt.WorkspaceRoot)
		if err != nil {
			result.Errors = append(result.Errors, FileError{Path: p, Err: err})
			continue
		}
		found, walkErr := walk(abs, opt, len(candidates))
		candidates = append(candidates, found...)
		if walkErr != nil {
			result.Errors = append(result.Errors, FileError{Path: abs, Err: walkErr})
		}
		if len(candidates) >= opt.MaxFiles {
			candidates = candidates[:opt.MaxFiles]
			break
		}
	}

	files, errs := readBatches(ctx, candidates, opt)
	result.Files = append(result.Files, files...)
	result.Errors = append(result.Errors, errs...)

	if opt.IncludeProjectContext && len(result.Files) >= 2 {
		pc := buildProjectContext(result.Files)
		result.ProjectContext = &pc
	}

	return result
}

func applyDefaults(opt Options) Options {
	if opt.MaxFileBytes <= 0 {
		opt.MaxFileBytes = config.DefaultMaxFileBytes
	}
	if opt.MaxFiles <= 0 || opt.MaxFiles > config.HardMaxFiles {
		opt.MaxFiles = config.DefaultMaxFiles
	}
	if opt.Concurrency <= 0 || opt.Concurrency > config.HardMaxFileConcurrency {
		opt.Concurrency = config.DefaultFileConcurrency
	}
	if opt.AllowedExtensions == nil {
		opt.AllowedExtensions = map[string]bool{}
		for ext := range extensionLanguage {
			opt.AllowedExtensions[ext] = true
		}
	}
	return opt
}

// walk returns allowed files under abs (itself, if a file; its
// descendants up to DefaultMaxWalkDepth, if a directory), stopping
// once budget files have already been found elsewhere in the batch.
func walk(abs string, opt Options, alreadyFound int) ([]string, error) {
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if isAllowed(abs, info, opt) {
			return []string{abs}, nil
		}
		return nil, nil
	}

	var found []string
	rootDepth := strings.Count(filepath.ToSlash(abs), "/")
	err = filepath.Walk(abs, func(path string, fi os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // best-effort walk, skip unreadable entries
		}
		if len(found)+alreadyFound >= opt.MaxFiles {
			return filepath.SkipAll
		}
		depth := strings.Count(filepath.ToSlash(path), "/") - rootDepth
		if fi.IsDir() {
			if depth > config.DefaultMaxWalkDepth {
				return filepath.SkipDir
			}
			return nil
		}
		if isAllowed(path, fi, opt) {
			found = append(found, path)
		}
		return nil
	})
	return found, err
}

func isAllowed(path string, info os.FileInfo, opt Options) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if !opt.AllowedExtensions[ext] {
		return false
	}
	return info.Size() <= opt.MaxFileBytes
}

func readBatches(ctx context.Context, paths []string, opt Options) ([]FileUnit, []FileError) {
	type outcome struct {
		unit FileUnit
		err  FileError
		ok   bool
	}

	outcomes := make([]outcome, len(paths))
	sem := make(chan struct{}, opt.Concurrency)
	var wg sync.WaitGroup

	for i, p := range paths {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, p string) {
			defer wg.Done()
			defer func() { <-sem }()

			readCtx, cancel := deadlineFor(ctx)
			defer cancel()

			unit, err := readOne(readCtx, p)
			if err != nil {
				outcomes[i] = outcome{err: FileError{Path: p, Err: err}}
				return
			}
			outcomes[i] = outcome{unit: unit, ok: true}
		}(i, p)
	}
	wg.Wait()

	var files []FileUnit
	var errs []FileError
	for _, o := range outcomes {
		if o.ok {
			files = append(files, o.unit)
		} else if o.err.Path != "" {
			errs = append(errs, o.err)
		}
	}
	return files, errs
}

func deadlineFor(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, config.DefaultFileReadTimeout)
}

func readOne(ctx context.Context, path string) (FileUnit, error) {
	done := make(chan struct{})
	var data []byte
	var err error
	go func() {
		data, err = os.ReadFile(path)
		close(done)
	}()
	select {
	case <-ctx.Done():
		return FileUnit{}, ctx.Err()
	case <-done:
	}
	if err != nil {
		return FileUnit{}, err
	}

	content := string(data)
	lang := languageFor(path)
	unit := FileUnit{
		Path:      path,
		Size:      int64(len(data)),
		Language:  lang,
		LineCount: strings.Count(content, "\n") + 1,
		Content:   content,
	}
	unit.Imports = extractImports(content, lang)
	unit.Functions = extractFunctions(content, lang)
	unit.Classes = extractClasses(content, lang)
	unit.ComplexityBucket = bucketComplexity(content)
	return unit, nil
}

func languageFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := extensionLanguage[ext]; ok {
		return lang
	}
	return "unknown"
}

const maxExtractedMatches = 50

var (
	importRegexes = map[string]*regexp.Regexp{
		"go":         regexp.MustCompile(`(?m)^\s*(?:import\s+)?"([^"]+)"`),
		"python":     regexp.MustCompile(`(?m)^\s*(?:import|from)\s+([\w.]+)`),
		"javascript": regexp.MustCompile(`(?m)^\s*import\s+.*?from\s+['"]([^'"]+)['"]`),
		"typescript": regexp.MustCompile(`(?m)^\s*import\s+.*?from\s+['"]([^'"]+)['"]`),
		"java":       regexp.MustCompile(`(?m)^\s*import\s+([\w.]+);`),
		"rust":       regexp.MustCompile(`(?m)^\s*use\s+([\w:]+)`),
	}
	functionRegexes = map[string]*regexp.Regexp{
		"go":         regexp.MustCompile(`(?m)^func\s+(?:\([^)]*\)\s*)?(\w+)\s*\(`),
		"python":     regexp.MustCompile(`(?m)^\s*def\s+(\w+)\s*\(`),
		"javascript": regexp.MustCompile(`(?m)^\s*(?:export\s+)?(?:async\s+)?function\s+(\w+)\s*\(`),
		"typescript": regexp.MustCompile(`(?m)^\s*(?:export\s+)?(?:async\s+)?function\s+(\w+)\s*\(`),
		"java":       regexp.MustCompile(`(?m)^\s*(?:public|private|protected)\s+[\w<>\[\]]+\s+(\w+)\s*\(`),
		"rust":       regexp.MustCompile(`(?m)^\s*(?:pub\s+)?fn\s+(\w+)\s*\(`),
	}
	classRegexes = map[string]*regexp.Regexp{
		"go":         regexp.MustCompile(`(?m)^type\s+(\w+)\s+struct\b`),
		"python":     regexp.MustCompile(`(?m)^\s*class\s+(\w+)`),
		"javascript": regexp.MustCompile(`(?m)^\s*(?:export\s+)?class\s+(\w+)`),
		"typescript": regexp.MustCompile(`(?m)^\s*(?:export\s+)?class\s+(\w+)`),
		"java":       regexp.MustCompile(`(?m)^\s*(?:public\s+)?class\s+(\w+)`),
		"rust":       regexp.MustCompile(`(?m)^\s*(?:pub\s+)?struct\s+(\w+)`),
	}
)

func extractImports(content, lang string) []string { return extract(importRegexes, content, lang) }
func extractFunctions(content, lang string) []string {
	return extract(functionRegexes, content, lang)
}
func extractClasses(content, lang string) []string { return extract(classRegexes, content, lang) }

func extract(table map[string]*regexp.Regexp, content, lang string) []string {
	re, ok := table[lang]
	if !ok {
		return nil
	}
	matches := re.FindAllStringSubmatch(content, maxExtractedMatches)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if len(m) > 1 {
			out = append(out, m[1])
		}
	}
	return out
}

var commentPrefixes = []string{"//", "#", "*", "/*"}

func bucketComplexity(content string) ComplexityBucket {
	lines := strings.Split(content, "\n")
	total := len(lines)
	if total == 0 {
		return ComplexityLow
	}
	var codeLines int
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		isComment := false
		for _, p := range commentPrefixes {
			if strings.HasPrefix(trimmed, p) {
				isComment = true
				break
			}
		}
		if !isComment {
			codeLines++
		}
	}
	ratio := float64(codeLines) / float64(total)
	switch {
	case ratio > 0.8 && total > 200:
		return ComplexityHigh
	case ratio > 0.5 && total > 50:
		return ComplexityMedium
	default:
		return ComplexityLow
	}
}

func buildProjectContext(files []FileUnit) ProjectContext {
	pc := ProjectContext{
		Languages:   map[string]int{},
		Directories: map[string]int{},
		FileTypes:   map[string]int{},
		ImportRoots: map[string]int{},
	}
	frameworkSet := map[string]bool{}

	for _, f := range files {
		pc.Languages[f.Language]++
		pc.Directories[filepath.Dir(f.Path)]++
		pc.FileTypes[strings.ToLower(filepath.Ext(f.Path))]++
		for _, imp := range f.Imports {
			root := strings.SplitN(imp, "/", 2)[0]
			root = strings.SplitN(root, ".", 2)[0]
			pc.ImportRoots[root]++
			lower := strings.ToLower(imp)
			for kw, tag := range frameworkKeywords {
				if strings.Contains(lower, kw) {
					frameworkSet[tag] = true
				}
			}
		}
	}

	for tag := range frameworkSet {
		pc.Frameworks = append(pc.Frameworks, tag)
	}
	sort.Strings(pc.Frameworks)
	return pc
}
