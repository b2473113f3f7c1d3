// Package tokencount provides pluggable token estimation.
//
// DESIGN: spec.md leaves token counting as an open question — the
// default is a crude bytes/4 estimate, but implementers may substitute
// a real tokenizer. Both live behind the Counter interface so callers
// (chunker, prompt assembler) never care which one they got.
package tokencount

import (
	"math"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Counter estimates the number of tokens in text.
type Counter interface {
	Count(text string) int
}

// ByteEstimator implements the spec's default lower-bound estimate:
// ceil(bytes/4). It never errors and needs no model metadata.
type ByteEstimator struct{}

func (ByteEstimator) Count(text string) int {
	if len(text) == 0 {
		return 0
	}
	return int(math.Ceil(float64(len(text)) / 4.0))
}

// Default is the package-level estimator used unless a caller opts
// into a real tokenizer.
var Default Counter = ByteEstimator{}

// TiktokenCounter wraps github.com/pkoukk/tiktoken-go for callers that
// want real BPE-based counts instead of the bytes/4 estimate. Falls
// back to ByteEstimator if the requested encoding can't be loaded.
type TiktokenCounter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
	name string
}

// NewTiktokenCounter builds a counter for the given tiktoken encoding
// name (e.g. "cl100k_base"). The encoding is loaded lazily on first use.
func NewTiktokenCounter(encodingName string) *TiktokenCounter {
	if encodingName == "" {
		encodingName = "cl100k_base"
	}
	return &TiktokenCounter{name: encodingName}
}

func (c *TiktokenCounter) Count(text string) int {
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding(c.name)
		if err == nil {
			c.enc = enc
		}
	})
	if c.enc == nil {
		return ByteEstimator{}.Count(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}
