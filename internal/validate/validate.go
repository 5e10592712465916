// Package validate enforces dimensional consistency across an embedded
// document set.
//
// Cosine similarity between vectors of different dimensions is undefined, so
// every vector entering the index must share one dimension. The majority
// dimension wins; documents with a minority dimension are dropped with a
// logged warning. An empty set, or a set with no majority after dropping, is
// a fatal pipeline error.
package validate

import (
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/dmills/repovec/pkg/types"
)

// Fatal validation errors.
var (
	ErrNoEmbeddings           = errors.New("no embeddings were produced")
	ErrInconsistentEmbeddings = errors.New("embeddings have inconsistent dimensions")
)

// Validator checks embedded documents before indexing.
type Validator struct {
	log *zap.Logger
}

// New creates a validator.
func New(log *zap.Logger) *Validator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Validator{log: log}
}

// Check returns the documents whose vectors carry the majority dimension,
// along with that dimension. Ties resolve to the larger dimension so the
// outcome is deterministic for any input ordering.
func (v *Validator) Check(docs []*types.Document) ([]*types.Document, int, error) {
	if len(docs) == 0 {
		return nil, 0, ErrNoEmbeddings
	}

	counts := make(map[int]int)
	for _, d := range docs {
		if !d.HasVector() {
			continue
		}
		counts[len(d.Vector)]++
	}
	if len(counts) == 0 {
		return nil, 0, ErrNoEmbeddings
	}

	dims := make([]int, 0, len(counts))
	for dim := range counts {
		dims = append(dims, dim)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(dims)))

	majority := dims[0]
	for _, dim := range dims[1:] {
		if counts[dim] > counts[majority] {
			majority = dim
		}
	}

	kept := make([]*types.Document, 0, len(docs))
	for _, d := range docs {
		if !d.HasVector() {
			continue
		}
		if len(d.Vector) != majority {
			v.log.Warn("dropping document with minority embedding dimension",
				zap.String("file_path", d.Meta.FilePath),
				zap.Int("dimension", len(d.Vector)),
				zap.Int("majority_dimension", majority))
			continue
		}
		kept = append(kept, d)
	}

	if len(kept) == 0 {
		return nil, 0, ErrInconsistentEmbeddings
	}
	return kept, majority, nil
}
