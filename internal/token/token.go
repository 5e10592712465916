// Package token wraps tiktoken with a process-wide tokenizer cache.
//
// Tokenizers are cached per provider identifier, populated lazily on first
// use, and never invalidated within the process lifetime. When an encoding
// cannot be initialized the tokenizer degrades to a 4-characters-per-token
// estimate instead of failing the run.
package token

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// HeuristicCharsPerToken is the estimate used when no real encoding is
// available: the average code or English token is about 4 characters.
const HeuristicCharsPerToken = 4

const fallbackEncoding = "cl100k_base"

// Tokenizer counts, encodes, and decodes tokens for one provider's models.
type Tokenizer struct {
	enc *tiktoken.Tiktoken // nil when operating heuristically
}

var (
	cacheMu sync.Mutex
	cache   = map[string]*Tokenizer{}
)

// For returns the cached tokenizer for a provider's model, initializing it on
// first use. Initialization failure is absorbed: the returned tokenizer then
// estimates rather than encodes.
func For(model string) *Tokenizer {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	if t, ok := cache[model]; ok {
		return t
	}

	t := &Tokenizer{}
	if enc, err := tiktoken.EncodingForModel(model); err == nil {
		t.enc = enc
	} else if enc, err := tiktoken.GetEncoding(fallbackEncoding); err == nil {
		t.enc = enc
	}
	cache[model] = t
	return t
}

// Exact reports whether a real encoding backs this tokenizer. When false,
// Count estimates and Encode/Decode are unavailable.
func (t *Tokenizer) Exact() bool {
	return t.enc != nil
}

// Count returns the token count for text, estimating when no encoding is
// available.
func (t *Tokenizer) Count(text string) int {
	if t.enc == nil {
		return len(text) / HeuristicCharsPerToken
	}
	return len(t.enc.Encode(text, nil, nil))
}

// Encode returns the token stream for text, or nil when estimating.
func (t *Tokenizer) Encode(text string) []int {
	if t.enc == nil {
		return nil
	}
	return t.enc.Encode(text, nil, nil)
}

// Decode reassembles text from a token stream produced by Encode.
func (t *Tokenizer) Decode(tokens []int) string {
	if t.enc == nil {
		return ""
	}
	return t.enc.Decode(tokens)
}
