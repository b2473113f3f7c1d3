package mcptool

import (
	"github.com/compresr/ai-request-router/internal/fsafe"
)

// DiagnoseResult is the diagnose_file_access tool's output: a
// structured report of each safety check and its pass/fail (spec.md
// §6), plus the supplemental ordered-checks breakdown from SPEC_FULL.
type DiagnoseResult struct {
	Path   string        `json:"path"`
	Checks []fsafe.Check `json:"checks"`
	Passed bool          `json:"passed"`
}

// DiagnoseFileAccess implements the diagnose_file_access tool.
func (s *Service) DiagnoseFileAccess(path string) DiagnoseResult {
	checks := fsafe.Diagnose(path, s.cfg.WorkspaceRoot)

	passed := true
	for _, c := range checks {
		if !c.Passed {
			passed = false
			break
		}
	}

	return DiagnoseResult{
		Path:   path,
		Checks: checks,
		Passed: passed,
	}
}
