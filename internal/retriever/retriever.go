// Package retriever answers similarity queries against a built snapshot.
//
// The query is token-checked against its own ceiling and truncated by
// binary search over rune prefixes when it exceeds it, embedded with the
// same provider as the documents, and scored by cosine similarity. Query
// failures degrade to an empty result rather than an error; retrieval is a
// read path and must never take the process down.
package retriever

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/dmills/repovec/internal/embedder"
	"github.com/dmills/repovec/internal/store"
	"github.com/dmills/repovec/internal/token"
	"github.com/dmills/repovec/pkg/types"
)

// Retriever serves top-K retrieval over one snapshot.
type Retriever struct {
	log            *zap.Logger
	generator      *embedder.Generator
	snapshot       *store.Snapshot
	queryMaxTokens int
	topK           int
}

// New creates a retriever over a snapshot. snapshot may be nil or empty; all
// queries then return empty results.
func New(log *zap.Logger, gen *embedder.Generator, snap *store.Snapshot, queryMaxTokens, topK int) *Retriever {
	if log == nil {
		log = zap.NewNop()
	}
	if queryMaxTokens <= 0 {
		queryMaxTokens = 4096
	}
	if topK <= 0 {
		topK = 20
	}
	return &Retriever{
		log:            log,
		generator:      gen,
		snapshot:       snap,
		queryMaxTokens: queryMaxTokens,
		topK:           topK,
	}
}

// Query returns the top-K most similar documents for text. The result is
// never nil; an empty query, an unbuilt index, or an embedding failure all
// yield an empty match set.
func (r *Retriever) Query(ctx context.Context, text string) *types.RetrievalResult {
	result := &types.RetrievalResult{Query: text, K: r.topK}
	if text == "" || r.snapshot == nil || len(r.snapshot.Documents) == 0 {
		return result
	}

	text = r.truncate(text)

	queryVec, err := r.generator.EmbedQuery(ctx, text)
	if err != nil {
		r.log.Warn("query embedding failed, returning empty result", zap.Error(err))
		return result
	}

	type scored struct {
		doc   *types.Document
		score float64
	}
	candidates := make([]scored, 0, len(r.snapshot.Documents))
	for _, doc := range r.snapshot.Documents {
		if len(doc.Vector) != len(queryVec) {
			continue
		}
		candidates = append(candidates, scored{doc: doc, score: store.CosineSimilarity(queryVec, doc.Vector)})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	limit := r.topK
	if limit > len(candidates) {
		limit = len(candidates)
	}
	for i := 0; i < limit; i++ {
		result.Matches = append(result.Matches, types.Match{
			Document: candidates[i].doc,
			Rank:     i + 1,
			Score:    candidates[i].score,
		})
	}
	return result
}

// truncate cuts an over-long query down to the token ceiling. Binary search
// over rune prefix lengths finds the longest prefix that fits; tokenization
// is not linear in length, so prefix counts must be measured, not scaled.
func (r *Retriever) truncate(text string) string {
	tk := token.For(r.generator.Provider().Model())
	count := tk.Count(text)
	if count <= r.queryMaxTokens {
		return text
	}

	runes := []rune(text)
	lo, hi := 0, len(runes)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if tk.Count(string(runes[:mid])) <= r.queryMaxTokens {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	truncated := string(runes[:lo])

	r.log.Info("truncated over-long query",
		zap.Int("original_tokens", count),
		zap.Int("truncated_tokens", tk.Count(truncated)),
		zap.Int("ceiling", r.queryMaxTokens))
	return truncated
}
