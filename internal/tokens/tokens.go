// Package tokens counts model tokens for history windowing.
package tokens

import (
	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the tokenizer used by the GPT-3.5/4 model family.
const DefaultEncoding = "cl100k_base"

// Counter counts the tokens a model would see for a piece of text.
type Counter interface {
	Count(text string) int
}

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

func (c *tiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// estimateCounter approximates token counts when no encoding is available.
// Roughly four bytes per token holds for English-like text.
type estimateCounter struct{}

func (estimateCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}

// NewCounter returns a counter for the named encoding. Unknown encodings fall
// back to a byte-length estimate so the chat path never fails on counting.
func NewCounter(encoding string) Counter {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return estimateCounter{}
	}
	return &tiktokenCounter{enc: enc}
}

// NewEstimateCounter returns the byte-length fallback counter directly. Tests
// and offline environments use it to avoid loading encoding data.
func NewEstimateCounter() Counter {
	return estimateCounter{}
}
