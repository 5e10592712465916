// Package index keeps the persisted snapshot in step with the repository.
//
// On every sync the manager loads the previous snapshot, diffs the freshly
// loaded documents against it by file modification time, and re-embeds only
// new and changed files; unchanged files reuse their stored vectors verbatim.
// Any failure to load or diff the snapshot degrades to a full rebuild, never
// to an error surfaced to the caller. Only embedding the full set from
// scratch and persistence failures are fatal.
package index

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/dmills/repovec/internal/chunker"
	"github.com/dmills/repovec/internal/embedder"
	"github.com/dmills/repovec/internal/store"
	"github.com/dmills/repovec/internal/validate"
	"github.com/dmills/repovec/pkg/types"
)

// DefaultMtimeTolerance absorbs filesystem timestamp granularity; mtimes
// within this window count as unchanged.
const DefaultMtimeTolerance = time.Second

// Stats summarizes one sync.
type Stats struct {
	TotalFiles     int
	UnchangedFiles int
	NewFiles       int
	ChangedFiles   int
	RemovedFiles   int
	Embedded       int
	Skipped        int
	FullRebuild    bool
	Dimension      int
	Duration       time.Duration
}

// Manager drives incremental index maintenance for one repository.
type Manager struct {
	log            *zap.Logger
	chunker        *chunker.Chunker
	generator      *embedder.Generator
	validator      *validate.Validator
	store          *store.SQLiteStore
	mtimeTolerance time.Duration
}

// NewManager creates a manager over an open snapshot store.
func NewManager(log *zap.Logger, ch *chunker.Chunker, gen *embedder.Generator, st *store.SQLiteStore) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		log:            log,
		chunker:        ch,
		generator:      gen,
		validator:      validate.New(log),
		store:          st,
		mtimeTolerance: DefaultMtimeTolerance,
	}
}

// Sync brings the snapshot up to date with the given freshly loaded
// documents (one per file, pre-chunking) and returns the resulting snapshot.
func (m *Manager) Sync(ctx context.Context, docs []*types.Document) (*store.Snapshot, *Stats, error) {
	start := time.Now()
	stats := &Stats{TotalFiles: len(docs)}

	prev, err := m.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			m.log.Warn("previous snapshot unusable, rebuilding from scratch", zap.Error(err))
		}
		prev = nil
	}

	var snap *store.Snapshot
	if prev == nil {
		stats.FullRebuild = true
		stats.NewFiles = len(docs)
		snap, err = m.rebuild(ctx, docs, stats)
	} else {
		snap, err = m.incremental(ctx, prev, docs, stats)
		if err != nil && !fatal(err) {
			m.log.Warn("incremental sync failed, rebuilding from scratch", zap.Error(err))
			*stats = Stats{TotalFiles: len(docs), FullRebuild: true, NewFiles: len(docs)}
			snap, err = m.rebuild(ctx, docs, stats)
		}
	}
	if err != nil {
		return nil, nil, err
	}

	stats.Duration = time.Since(start)
	m.log.Info("index synced",
		zap.Int("total_files", stats.TotalFiles),
		zap.Int("unchanged", stats.UnchangedFiles),
		zap.Int("new", stats.NewFiles),
		zap.Int("changed", stats.ChangedFiles),
		zap.Int("removed", stats.RemovedFiles),
		zap.Int("embedded", stats.Embedded),
		zap.Int("skipped", stats.Skipped),
		zap.Bool("full_rebuild", stats.FullRebuild),
		zap.Duration("duration", stats.Duration))
	return snap, stats, nil
}

// fatal reports whether an error must abort the sync instead of triggering
// a rebuild. Embedding and validation failures would recur on rebuild.
func fatal(err error) bool {
	return errors.Is(err, validate.ErrNoEmbeddings) ||
		errors.Is(err, validate.ErrInconsistentEmbeddings) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// rebuild embeds every document from scratch and persists the result.
func (m *Manager) rebuild(ctx context.Context, docs []*types.Document, stats *Stats) (*store.Snapshot, error) {
	embedded, err := m.embed(ctx, docs, stats)
	if err != nil {
		return nil, err
	}
	return m.persist(ctx, embedded, stats)
}

// incremental diffs docs against the previous snapshot and re-embeds only
// what moved.
func (m *Manager) incremental(ctx context.Context, prev *store.Snapshot, docs []*types.Document, stats *Stats) (*store.Snapshot, error) {
	prevMtimes := prev.Mtimes()
	prevDocs := prev.DocumentsByFile()

	var toEmbed []*types.Document
	var reused []*types.Document
	seen := make(map[string]bool, len(docs))

	for _, doc := range docs {
		path := doc.Meta.FilePath
		seen[path] = true

		prevMtime, known := prevMtimes[path]
		switch {
		case !known:
			stats.NewFiles++
			toEmbed = append(toEmbed, doc)
		case absDuration(doc.Meta.FileMtime.Sub(prevMtime)) > m.mtimeTolerance:
			stats.ChangedFiles++
			toEmbed = append(toEmbed, doc)
		default:
			stats.UnchangedFiles++
			reused = append(reused, prevDocs[path]...)
		}
	}
	for path := range prevMtimes {
		if !seen[path] {
			stats.RemovedFiles++
		}
	}

	// Nothing moved: the stored snapshot is already current.
	if len(toEmbed) == 0 && stats.RemovedFiles == 0 {
		m.log.Debug("snapshot already current", zap.Int("files", stats.TotalFiles))
		return prev, nil
	}

	var fresh []*types.Document
	if len(toEmbed) > 0 {
		var err error
		fresh, err = m.embed(ctx, toEmbed, stats)
		if err != nil {
			return nil, err
		}
	}

	return m.persist(ctx, append(reused, fresh...), stats)
}

// embed chunks and embeds a document set, keeping only documents that
// received a vector.
func (m *Manager) embed(ctx context.Context, docs []*types.Document, stats *Stats) ([]*types.Document, error) {
	chunks := m.chunker.Split(docs)
	embedded, outcomes := m.generator.EmbedDocuments(ctx, chunks)
	for _, o := range outcomes {
		switch o.Status {
		case embedder.StatusEmbedded:
			stats.Embedded++
		case embedder.StatusSkipped:
			stats.Skipped++
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return embedded, nil
}

// persist validates the merged set and saves it as the new snapshot.
func (m *Manager) persist(ctx context.Context, docs []*types.Document, stats *Stats) (*store.Snapshot, error) {
	kept, dim, err := m.validator.Check(docs)
	if err != nil {
		return nil, err
	}
	stats.Dimension = dim

	provider := m.generator.Provider()
	snap := &store.Snapshot{
		Documents: kept,
		Dimension: dim,
		Provider:  provider.Kind().String(),
		Model:     provider.Model(),
	}
	if err := m.store.Save(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
