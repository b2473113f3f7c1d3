// Package fsafe resolves and validates file paths before anything else
// in the file analysis pipeline touches the filesystem.
//
// DESIGN: mirrors the teacher's config/defaults.go habit of
// centralizing closed sets (restricted prefixes, blocked segments) as
// package-level data rather than scattering literals through the
// resolution logic.
package fsafe

import (
	"path/filepath"
	"strings"

	"github.com/compresr/ai-request-router/internal/routererr"
)

const wslPrefix = `\\wsl.localhost\Ubuntu`

// restrictedPrefixes are absolute-path prefixes that are never
// resolvable, regardless of workspace root.
var restrictedPrefixes = []string{"/etc", "/proc", "/sys"}

// blockedSegments are directory names rejected by exact segment
// equality, never substring match.
var blockedSegments = map[string]bool{
	"node_modules": true,
	".git":         true,
	"dist":         true,
	"build":        true,
	"__pycache__":  true,
}

// Resolve normalizes input into an absolute path rooted at
// workspaceRoot, rejecting traversal and restricted locations.
func Resolve(input, workspaceRoot string) (string, error) {
	p, err := normalize(input)
	if err != nil {
		return "", err
	}

	abs, err := toAbsolute(p, workspaceRoot)
	if err != nil {
		// sanctioned fallback: retry once with the original form
		abs2, err2 := toAbsolute(input, workspaceRoot)
		if err2 != nil {
			return "", err
		}
		abs = abs2
	}

	if err := checkRestricted(abs); err != nil {
		return "", err
	}
	if err := checkBlockedSegments(abs); err != nil {
		return "", err
	}
	if err := checkWorkspaceContainment(abs, workspaceRoot); err != nil {
		return "", err
	}
	return abs, nil
}

// normalize strips platform-specific prefixes and folds separators.
func normalize(input string) (string, error) {
	s := input
	if strings.HasPrefix(s, wslPrefix) {
		s = s[len(wslPrefix):]
	}
	s = strings.ReplaceAll(s, `\`, "/")
	for strings.Contains(s, "//") {
		s = strings.ReplaceAll(s, "//", "/")
	}
	if s == "" {
		return "", routererr.New(routererr.KindRejected, "empty path")
	}
	return s, nil
}

func toAbsolute(p, workspaceRoot string) (string, error) {
	if filepath.IsAbs(p) {
		return filepath.Clean(p), nil
	}
	if workspaceRoot == "" {
		return "", routererr.New(routererr.KindRejected, "relative path with no workspace root")
	}
	return filepath.Clean(filepath.Join(workspaceRoot, p)), nil
}

func checkRestricted(abs string) error {
	for _, prefix := range restrictedPrefixes {
		if abs == prefix || strings.HasPrefix(abs, prefix+"/") {
			return routererr.New(routererr.KindRejected, "path under restricted prefix: "+prefix)
		}
	}
	return nil
}

func checkBlockedSegments(abs string) error {
	for _, seg := range strings.Split(filepath.ToSlash(abs), "/") {
		if blockedSegments[seg] {
			return routererr.New(routererr.KindRejected, "path contains blocked directory segment: "+seg)
		}
	}
	return nil
}

func checkWorkspaceContainment(abs, workspaceRoot string) error {
	if workspaceRoot == "" {
		return nil
	}
	root := filepath.Clean(workspaceRoot)
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return routererr.New(routererr.KindRejected, "path escapes workspace root")
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return routererr.New(routererr.KindRejected, "path escapes workspace root")
	}
	return nil
}

// Check is one named safety check and its outcome, used by
// diagnose_file_access to report a structured breakdown.
type Check struct {
	Name   string
	Passed bool
	Detail string
}

// Diagnose runs the safety checks against input and reports each
// outcome. If normalize or resolve_absolute fails it stops there; the
// restricted_prefix, blocked_segment and workspace_containment checks
// all run and are reported independently of one another.
func Diagnose(input, workspaceRoot string) []Check {
	var checks []Check

	norm, err := normalize(input)
	checks = append(checks, Check{Name: "normalize", Passed: err == nil, Detail: errDetail(err)})
	if err != nil {
		return checks
	}

	abs, err := toAbsolute(norm, workspaceRoot)
	checks = append(checks, Check{Name: "resolve_absolute", Passed: err == nil, Detail: errDetail(err)})
	if err != nil {
		return checks
	}

	restrictedErr := checkRestricted(abs)
	checks = append(checks, Check{Name: "restricted_prefix", Passed: restrictedErr == nil, Detail: errDetail(restrictedErr)})

	segErr := checkBlockedSegments(abs)
	checks = append(checks, Check{Name: "blocked_segment", Passed: segErr == nil, Detail: errDetail(segErr)})

	containErr := checkWorkspaceContainment(abs, workspaceRoot)
	checks = append(checks, Check{Name: "workspace_containment", Passed: containErr == nil, Detail: errDetail(containErr)})

	return checks
}

func errDetail(err error) string {
	if err == nil {
		return "ok"
	}
	return err.Error()
}
