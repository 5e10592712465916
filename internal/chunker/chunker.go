// Package chunker splits oversized documents along token boundaries.
//
// No document handed to the embedding generator may exceed the provider's
// maximum input token count. Code files get a larger ceiling than
// documentation (a configurable multiplier over the base ceiling); documents
// over their ceiling are split into ordered, non-overlapping chunks of
// exactly the base ceiling size, measured on the tokenizer's own token
// stream so no chunk can itself exceed the ceiling.
package chunker

import (
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/dmills/repovec/internal/token"
	"github.com/dmills/repovec/pkg/types"
)

// Chunker enforces the embedding token ceiling.
type Chunker struct {
	log            *zap.Logger
	model          string
	baseCeiling    int
	codeMultiplier float64
}

// New creates a chunker. baseCeiling is the provider's per-call token
// maximum; code documents are allowed baseCeiling*codeMultiplier before
// splitting.
func New(log *zap.Logger, model string, baseCeiling int, codeMultiplier float64) *Chunker {
	if log == nil {
		log = zap.NewNop()
	}
	if codeMultiplier < 1.0 {
		codeMultiplier = 1.0
	}
	return &Chunker{log: log, model: model, baseCeiling: baseCeiling, codeMultiplier: codeMultiplier}
}

// Ceiling returns the effective token ceiling for a document.
func (c *Chunker) Ceiling(doc *types.Document) int {
	if doc.Meta.IsCode {
		return int(float64(c.baseCeiling) * c.codeMultiplier)
	}
	return c.baseCeiling
}

// Split returns the input set with every oversized document replaced by its
// ordered chunks. Chunk indices are contiguous from 0 within one file;
// documents at or under their ceiling pass through untouched.
func (c *Chunker) Split(docs []*types.Document) []*types.Document {
	out := make([]*types.Document, 0, len(docs))
	for _, doc := range docs {
		if doc.Meta.TokenCount <= c.Ceiling(doc) {
			out = append(out, doc)
			continue
		}
		out = append(out, c.splitOne(doc)...)
	}
	return out
}

// splitOne cuts a document into base-ceiling-sized chunks by token stream.
func (c *Chunker) splitOne(doc *types.Document) []*types.Document {
	tk := token.For(c.model)

	var chunks []*types.Document
	if tokens := tk.Encode(doc.Text); tokens != nil {
		for start := 0; start < len(tokens); start += c.baseCeiling {
			end := start + c.baseCeiling
			if end > len(tokens) {
				end = len(tokens)
			}
			piece := tokens[start:end]
			chunks = append(chunks, c.chunkDoc(doc, tk.Decode(piece), len(piece), len(chunks)))
		}
	} else {
		chunks = c.splitHeuristic(doc, tk)
	}

	c.log.Debug("split oversized document",
		zap.String("file_path", doc.Meta.FilePath),
		zap.Int("token_count", doc.Meta.TokenCount),
		zap.Int("chunks", len(chunks)))
	return chunks
}

// splitHeuristic approximates the ceiling without a real encoding. The
// estimating tokenizer counts bytes, so the cut is measured in bytes and
// snapped back to a rune boundary; a rune-based step would let multi-byte
// text exceed the recorded ceiling.
func (c *Chunker) splitHeuristic(doc *types.Document, tk *token.Tokenizer) []*types.Document {
	text := doc.Text
	step := c.baseCeiling * token.HeuristicCharsPerToken

	var chunks []*types.Document
	for start := 0; start < len(text); {
		end := start + step
		if end >= len(text) {
			end = len(text)
		} else {
			for end > start && !utf8.RuneStart(text[end]) {
				end--
			}
			if end == start {
				_, n := utf8.DecodeRuneInString(text[start:])
				end = start + n
			}
		}
		piece := text[start:end]
		chunks = append(chunks, c.chunkDoc(doc, piece, tk.Count(piece), len(chunks)))
		start = end
	}
	return chunks
}

// chunkDoc builds one chunk sharing the parent's file metadata.
func (c *Chunker) chunkDoc(parent *types.Document, text string, tokenCount, index int) *types.Document {
	meta := parent.Meta
	meta.TokenCount = tokenCount
	meta.ChunkIndex = index
	meta.IsChunked = true
	return &types.Document{Text: text, Meta: meta}
}
