// Package fingerprint derives a stable, deterministic Fingerprint from
// a request (spec.md §4.5, C6).
//
// DESIGN: the domain/keyword trigger tables follow the shape of
// zen-systems-flowgate's TaskType.Triggers keyword lists, closed and
// package-level rather than user-configurable, per spec.md's "fixed
// canonical keyword table."
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
)

// Domain is the closed set of request domains (spec.md §3).
type Domain string

const (
	DomainDataProcessing Domain = "data_processing"
	DomainFrontend       Domain = "frontend"
	DomainBackend        Domain = "backend"
	DomainDebugging      Domain = "debugging"
	DomainArchitecture   Domain = "architecture"
	DomainFileAnalysis   Domain = "file_analysis"
	DomainGeneral        Domain = "general"
)

// QuestionType is the closed set of question shapes (spec.md §3).
type QuestionType string

const (
	QuestionHowTo          QuestionType = "how_to"
	QuestionExplanation    QuestionType = "explanation"
	QuestionTroubleshoot   QuestionType = "troubleshooting"
	QuestionImplementation QuestionType = "implementation"
	QuestionAnalysis       QuestionType = "analysis"
	QuestionGeneral        QuestionType = "general_query"
)

// LengthBucket buckets prompt length.
type LengthBucket string

const (
	LengthSmall  LengthBucket = "small"
	LengthMedium LengthBucket = "medium"
	LengthLarge  LengthBucket = "large"
)

// Fingerprint is a stable, deterministic summary of a request
// (spec.md §3); it keys the cache and empirical table.
type Fingerprint struct {
	Domain       Domain
	QuestionType QuestionType
	Keywords     []string
	Complexity   float64
	LengthBucket LengthBucket
	HasCode      bool
	HasJSON      bool
	Hash         string
}

// Input is the subset of a Request that fingerprinting reads.
type Input struct {
	Prompt  string
	Context string
}

var domainKeywords = map[Domain][]string{
	DomainDataProcessing: {"csv", "parse", "transform", "etl", "pipeline", "dataset", "json", "xml"},
	DomainFrontend:       {"react", "css", "html", "component", "ui", "vue", "dom", "browser"},
	DomainBackend:        {"api", "server", "endpoint", "database", "query", "service", "middleware"},
	DomainDebugging:      {"bug", "error", "exception", "crash", "fix", "stack trace", "panic", "fails"},
	DomainArchitecture:   {"architecture", "design", "system design", "scalability", "microservice", "pattern"},
	DomainFileAnalysis:   {"file", "directory", "codebase", "repository", "analyze files", "project structure"},
}

var questionTypePatterns = []struct {
	typ QuestionType
	re  *regexp.Regexp
}{
	{QuestionHowTo, regexp.MustCompile(`(?i)\bhow (do|to|can|would)\b`)},
	{QuestionTroubleshoot, regexp.MustCompile(`(?i)\b(why (is|does|isn't)|not working|broken|fails?|error)\b`)},
	{QuestionImplementation, regexp.MustCompile(`(?i)\b(implement|write|build|create|add)\b`)},
	{QuestionAnalysis, regexp.MustCompile(`(?i)\b(analyze|review|evaluate|assess|compare)\b`)},
	{QuestionExplanation, regexp.MustCompile(`(?i)\b(what is|explain|describe|meaning of)\b`)},
}

var codeFencePattern = regexp.MustCompile("```|^\\s{4,}\\S|;\\s*$")
var jsonPattern = regexp.MustCompile(`^\s*[\{\[]`)

// Compute implements the fingerprint() contract of spec.md §4.5. It is
// pure: the same input text always yields the same output (P1).
func Compute(in Input) Fingerprint {
	normalized := normalizeWhitespace(in.Prompt + " " + in.Context)
	lower := strings.ToLower(normalized)

	domain := classifyDomain(lower)
	qtype := classifyQuestionType(normalized)
	keywords := matchKeywords(lower, domain)
	complexity := estimateComplexity(normalized)
	lengthBucket := bucketLength(len(normalized))
	hasCode := codeFencePattern.MatchString(in.Prompt) || codeFencePattern.MatchString(in.Context)
	hasJSON := jsonPattern.MatchString(strings.TrimSpace(in.Prompt)) || jsonPattern.MatchString(strings.TrimSpace(in.Context))

	fp := Fingerprint{
		Domain:       domain,
		QuestionType: qtype,
		Keywords:     keywords,
		Complexity:   complexity,
		LengthBucket: lengthBucket,
		HasCode:      hasCode,
		HasJSON:      hasJSON,
	}
	fp.Hash = computeHash(fp)
	return fp
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func classifyDomain(lower string) Domain {
	best := DomainGeneral
	bestCount := 0
	for d, keywords := range domainKeywords {
		count := 0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				count++
			}
		}
		if count > bestCount {
			bestCount = count
			best = d
		}
	}
	return best
}

func classifyQuestionType(text string) QuestionType {
	for _, p := range questionTypePatterns {
		if p.re.MatchString(text) {
			return p.typ
		}
	}
	return QuestionGeneral
}

func matchKeywords(lower string, domain Domain) []string {
	seen := map[string]bool{}
	var out []string
	for _, keywords := range domainKeywords {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) && !seen[kw] {
				seen[kw] = true
				out = append(out, kw)
			}
		}
	}
	sort.Strings(out)
	return out
}

func estimateComplexity(text string) float64 {
	words := strings.Fields(text)
	n := len(words)
	if n == 0 {
		return 0
	}
	score := float64(n) / 200.0
	if score > 1 {
		score = 1
	}
	return score
}

func bucketLength(n int) LengthBucket {
	switch {
	case n < 200:
		return LengthSmall
	case n < 1000:
		return LengthMedium
	default:
		return LengthLarge
	}
}

func computeHash(fp Fingerprint) string {
	var b strings.Builder
	b.WriteString(string(fp.Domain))
	b.WriteString("|")
	b.WriteString(string(fp.QuestionType))
	b.WriteString("|")
	b.WriteString(strings.Join(fp.Keywords, ","))
	b.WriteString("|")
	b.WriteString(string(fp.LengthBucket))
	b.WriteString("|")
	if fp.HasCode {
		b.WriteString("code")
	}
	if fp.HasJSON {
		b.WriteString("json")
	}
	sum := sha256.Sum256([]byte(b.String()))
	h := hex.EncodeToString(sum[:])
	if len(h) > 64 {
		h = h[:64]
	}
	return h
}
