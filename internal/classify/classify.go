// Package classify scores a request's complexity and matches
// simple/complex intent patterns (spec.md §4.5, C7).
package classify

import (
	"regexp"
	"strings"
)

// Intent is the closed set of classifier outcomes.
type Intent string

const (
	IntentSimple    Intent = "simple"
	IntentComplex   Intent = "complex"
	IntentAmbiguous Intent = "ambiguous"
)

// Result is the classify() output (spec.md §4.5).
type Result struct {
	Score          float64
	Intent         Intent
	MatchedPatterns []string
	Reason         string
}

type weightedPattern struct {
	name   string
	re     *regexp.Regexp
	weight float64
}

// simplePatterns and complexPatterns are closed, weighted intent sets.
// The highest-weighted match per set is that set's primary signal.
var simplePatterns = []weightedPattern{
	{"what_is", regexp.MustCompile(`(?i)\bwhat is\b`), 0.9},
	{"simple_howto", regexp.MustCompile(`(?i)\bhow do i\b`), 0.8},
	{"syntax_question", regexp.MustCompile(`(?i)\bsyntax for\b`), 0.75},
	{"single_function", regexp.MustCompile(`(?i)\b(write|fix) (a|one) (function|line)\b`), 0.75},
	{"definition", regexp.MustCompile(`(?i)\bdefine\b|\bmeaning of\b`), 0.65},
}

var complexPatterns = []weightedPattern{
	{"system_design", regexp.MustCompile(`(?i)\bsystem design\b|\barchitecture\b`), 0.95},
	{"migration", regexp.MustCompile(`(?i)\bmigrate\b|\blarge refactor\b|\brewrite\b`), 0.9},
	{"multi_service", regexp.MustCompile(`(?i)\bmicroservices?\b|\bdistributed\b`), 0.85},
	{"concurrency_bug", regexp.MustCompile(`(?i)\brace condition\b|\bdeadlock\b|\bmemory leak\b`), 0.85},
	{"security_review", regexp.MustCompile(`(?i)\bsecurity (audit|review)\b|\bvulnerability\b`), 0.8},
	{"end_to_end", regexp.MustCompile(`(?i)\bend[- ]to[- ]end\b|\bfull (stack|pipeline)\b`), 0.75},
}

type indicatorCategory struct {
	name     string
	keywords []string
	weight   float64
}

// complexityIndicators is a closed set of keyword categories that
// contribute additively to the final score (spec.md §4.5).
var complexityIndicators = []indicatorCategory{
	{"architectural", []string{"architecture", "design pattern", "scalability", "system design"}, 0.15},
	{"coordination", []string{"coordinate", "multiple teams", "cross-team", "stakeholders"}, 0.1},
	{"enterprise", []string{"enterprise", "compliance", "audit", "governance"}, 0.1},
	{"integration", []string{"integration", "third-party", "api gateway", "webhook"}, 0.1},
	{"planning", []string{"roadmap", "plan", "milestone", "phased rollout"}, 0.08},
}

// Input is the subset of a request that classify() reads.
type Input struct {
	Prompt string
}

// Classify implements the classify() contract of spec.md §4.5.
func Classify(in Input) Result {
	lower := strings.ToLower(in.Prompt)

	simpleName, simpleConf := bestMatch(simplePatterns, in.Prompt)
	complexName, complexConf := bestMatch(complexPatterns, in.Prompt)

	indicatorScore, matchedIndicators := scoreIndicators(lower)
	lengthFactor := minFloat(float64(len(in.Prompt))/1000.0, 0.3)

	score := clamp(complexConf+indicatorScore+lengthFactor, 0, 1)

	var matched []string
	if complexName != "" {
		matched = append(matched, complexName)
	}
	if simpleName != "" {
		matched = append(matched, simpleName)
	}
	matched = append(matched, matchedIndicators...)

	intent, reason := selectIntent(complexConf, simpleConf, score)

	return Result{
		Score:           score,
		Intent:          intent,
		MatchedPatterns: matched,
		Reason:          reason,
	}
}

func bestMatch(patterns []weightedPattern, prompt string) (string, float64) {
	var bestName string
	var bestWeight float64
	for _, p := range patterns {
		if p.re.MatchString(prompt) && p.weight > bestWeight {
			bestName = p.name
			bestWeight = p.weight
		}
	}
	return bestName, bestWeight
}

func scoreIndicators(lower string) (float64, []string) {
	var total float64
	var matched []string
	for _, cat := range complexityIndicators {
		for _, kw := range cat.keywords {
			if strings.Contains(lower, kw) {
				total += cat.weight
				matched = append(matched, cat.name)
				break
			}
		}
	}
	return total, matched
}

func selectIntent(complexConf, simpleConf, score float64) (Intent, string) {
	switch {
	case complexConf > 0.7:
		return IntentComplex, "complex intent pattern matched with high confidence"
	case score >= 0.6:
		return IntentComplex, "aggregate complexity score at or above threshold"
	case simpleConf > 0.7 && score < 0.3:
		return IntentSimple, "simple intent pattern matched with low aggregate score"
	default:
		return IntentAmbiguous, "no decisive signal from intent patterns or complexity score"
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
