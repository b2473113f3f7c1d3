package mcptool

import (
	"github.com/compresr/ai-request-router/internal/monitoring"
)

// defaultTopFailurePatterns bounds the status tool's empirical report
// when the caller doesn't specify a count.
const defaultTopFailurePatterns = 10

// Status implements the status tool (spec.md §6): no input, full
// operational snapshot.
func (s *Service) Status(topN int) monitoring.StatusReport {
	if topN <= 0 {
		topN = defaultTopFailurePatterns
	}
	return s.collector.Snapshot(s.registry, s.cache, s.learner, topN)
}
