// Package embedder attaches embedding vectors to documents.
//
// Provider capability determines the strategy: batch-capable providers
// receive documents in bounded batches, single-input providers are called
// once per document. A failed call never aborts the run; the offending
// documents are dropped with a logged reason and processing continues.
// Vectors are plain []float32 at this boundary; no provider-native array
// representation escapes the package.
package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/dmills/repovec/pkg/types"
)

// Common errors.
var (
	ErrInvalidConfig  = errors.New("invalid embedder configuration")
	ErrProviderFailed = errors.New("embedding provider failed")
	ErrEmptyText      = errors.New("text cannot be empty")
)

// Provider is one embedding backend. Implementations convert the provider's
// wire format to plain float32 slices.
type Provider interface {
	// Embed returns one vector per input text, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// SupportsBatch reports whether Embed accepts more than one text.
	SupportsBatch() bool
	// MaxBatch is the provider's safe per-call input cap.
	MaxBatch() int
	// Kind identifies the provider family.
	Kind() Kind
	// Model is the embedding model name.
	Model() string
	// Close releases provider resources.
	Close() error
}

// Status classifies the per-document embedding outcome. Skip-vs-abort is a
// type-level distinction: configuration problems fail at construction, and
// everything at call time is either an attached vector or a logged skip.
type Status int

const (
	StatusEmbedded Status = iota
	StatusSkipped
)

// Outcome reports what happened to one document.
type Outcome struct {
	Doc    *types.Document
	Status Status
	// Reason is set for skipped documents.
	Reason string
}

// Generator drives a Provider over a document set.
type Generator struct {
	provider  Provider
	batchSize int
	cache     *lru.Cache[string, []float32]
	log       *zap.Logger
}

const defaultCacheSize = 10000

// NewGenerator creates a generator. batchSize bounds one batched call and is
// clamped to the provider's own cap.
func NewGenerator(provider Provider, batchSize int, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	if batchSize <= 0 || batchSize > provider.MaxBatch() {
		batchSize = provider.MaxBatch()
	}
	cache, err := lru.New[string, []float32](defaultCacheSize)
	if err != nil {
		// Unreachable with a positive size; keep the generator usable.
		cache, _ = lru.New[string, []float32](defaultCacheSize)
	}
	return &Generator{provider: provider, batchSize: batchSize, cache: cache, log: log}
}

// Provider returns the generator's backend.
func (g *Generator) Provider() Provider {
	return g.provider
}

// EmbedDocuments attaches a vector to every document it can. The returned
// slice contains only documents that received a vector; skipped documents
// are reported in outcomes and logged, never returned with a nil vector.
func (g *Generator) EmbedDocuments(ctx context.Context, docs []*types.Document) ([]*types.Document, []Outcome) {
	outcomes := make([]Outcome, 0, len(docs))

	// Serve cache hits first so provider calls only carry misses.
	var pending []*types.Document
	for _, doc := range docs {
		if vec, ok := g.cache.Get(contentHash(doc.Text)); ok {
			doc.Vector = cloneVector(vec)
			outcomes = append(outcomes, Outcome{Doc: doc, Status: StatusEmbedded})
			continue
		}
		pending = append(pending, doc)
	}

	if g.provider.SupportsBatch() {
		outcomes = append(outcomes, g.embedBatched(ctx, pending)...)
	} else {
		outcomes = append(outcomes, g.embedSequential(ctx, pending)...)
	}

	embedded := make([]*types.Document, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Status == StatusEmbedded {
			embedded = append(embedded, o.Doc)
		}
	}
	return embedded, outcomes
}

// EmbedQuery embeds a single query string with the same provider used for
// documents, guaranteeing dimensional compatibility by construction.
func (g *Generator) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	if vec, ok := g.cache.Get(contentHash(text)); ok {
		return cloneVector(vec), nil
	}
	vecs, err := g.callProvider(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrProviderFailed)
	}
	g.cache.Add(contentHash(text), cloneVector(vecs[0]))
	return vecs[0], nil
}

// embedBatched processes documents in bounded batches. One failed batch is
// skipped wholesale; later batches still run.
func (g *Generator) embedBatched(ctx context.Context, docs []*types.Document) []Outcome {
	outcomes := make([]Outcome, 0, len(docs))
	for start := 0; start < len(docs); start += g.batchSize {
		end := start + g.batchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		texts := make([]string, len(batch))
		for i, d := range batch {
			texts[i] = d.Text
		}

		vecs, err := g.callProvider(ctx, texts)
		if err != nil || len(vecs) != len(batch) {
			if err == nil {
				err = fmt.Errorf("%w: got %d vectors for %d inputs", ErrProviderFailed, len(vecs), len(batch))
			}
			outcomes = append(outcomes, g.skipAll(batch, err)...)
			continue
		}

		for i, d := range batch {
			d.Vector = vecs[i]
			g.cache.Add(contentHash(d.Text), cloneVector(vecs[i]))
			outcomes = append(outcomes, Outcome{Doc: d, Status: StatusEmbedded})
		}
	}
	return outcomes
}

// embedSequential calls the provider once per document for single-input
// backends.
func (g *Generator) embedSequential(ctx context.Context, docs []*types.Document) []Outcome {
	outcomes := make([]Outcome, 0, len(docs))
	for _, d := range docs {
		vecs, err := g.callProvider(ctx, []string{d.Text})
		if err != nil || len(vecs) == 0 {
			if err == nil {
				err = fmt.Errorf("%w: empty response", ErrProviderFailed)
			}
			outcomes = append(outcomes, g.skipAll([]*types.Document{d}, err)...)
			continue
		}
		d.Vector = vecs[0]
		g.cache.Add(contentHash(d.Text), cloneVector(vecs[0]))
		outcomes = append(outcomes, Outcome{Doc: d, Status: StatusEmbedded})
	}
	return outcomes
}

// callProvider wraps one provider call with retry.
func (g *Generator) callProvider(ctx context.Context, texts []string) ([][]float32, error) {
	return retryWithBackoff(ctx, defaultRetryConfig(), func() ([][]float32, error) {
		return g.provider.Embed(ctx, texts)
	})
}

// skipAll marks a set of documents skipped and logs each file path.
func (g *Generator) skipAll(docs []*types.Document, err error) []Outcome {
	outcomes := make([]Outcome, 0, len(docs))
	for _, d := range docs {
		g.log.Warn("dropping document after embedding failure",
			zap.String("file_path", d.Meta.FilePath), zap.Error(err))
		outcomes = append(outcomes, Outcome{Doc: d, Status: StatusSkipped, Reason: err.Error()})
	}
	return outcomes
}

func contentHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
