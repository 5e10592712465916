package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmills/repovec/pkg/types"
)

func openTemp(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "indices", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func sampleSnapshot() *Snapshot {
	mtime := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	return &Snapshot{
		Dimension: 4,
		Provider:  "local",
		Model:     "local-embeddings",
		Documents: []*types.Document{
			{
				Text: "def main(): pass",
				Meta: types.Meta{
					FilePath: "app.py", Type: types.DocTypeCode, IsCode: true,
					IsImplementation: true, Title: "app.py", TokenCount: 6,
					FileMtime: mtime,
				},
				Vector: []float32{0.1, 0.2, 0.3, 0.4},
			},
			{
				Text: "# part one",
				Meta: types.Meta{
					FilePath: "guide.md", Type: types.DocTypeDoc, Title: "guide.md",
					TokenCount: 3, ChunkIndex: 0, IsChunked: true, FileMtime: mtime,
				},
				Vector: []float32{0.5, 0.6, 0.7, 0.8},
			},
			{
				Text: "# part two",
				Meta: types.Meta{
					FilePath: "guide.md", Type: types.DocTypeDoc, Title: "guide.md",
					TokenCount: 3, ChunkIndex: 1, IsChunked: true, FileMtime: mtime,
				},
				Vector: []float32{0.9, 1.0, 1.1, 1.2},
			},
		},
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, sampleSnapshot()))

	loaded, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, loaded.Dimension)
	assert.Equal(t, "local", loaded.Provider)
	assert.Equal(t, "local-embeddings", loaded.Model)
	require.Len(t, loaded.Documents, 3)

	first := loaded.Documents[0]
	assert.Equal(t, "app.py", first.Meta.FilePath)
	assert.Equal(t, []float32{0.1, 0.2, 0.3, 0.4}, first.Vector)
	assert.True(t, first.Meta.IsImplementation)
	assert.True(t, first.Meta.FileMtime.Equal(sampleSnapshot().Documents[0].Meta.FileMtime))

	// Chunks come back ordered within their file.
	assert.Equal(t, 0, loaded.Documents[1].Meta.ChunkIndex)
	assert.Equal(t, 1, loaded.Documents[2].Meta.ChunkIndex)
}

func TestLoad_EmptyDatabase(t *testing.T) {
	st := openTemp(t)

	_, err := st.Load(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSave_ReplacesPreviousSnapshot(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, sampleSnapshot()))

	small := &Snapshot{
		Dimension: 4,
		Provider:  "local",
		Model:     "local-embeddings",
		Documents: []*types.Document{
			{
				Text:   "only one",
				Meta:   types.Meta{FilePath: "solo.md", Type: types.DocTypeDoc, FileMtime: time.Now()},
				Vector: []float32{1, 2, 3, 4},
			},
		},
	}
	require.NoError(t, st.Save(ctx, small))

	loaded, err := st.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Documents, 1)
	assert.Equal(t, "solo.md", loaded.Documents[0].Meta.FilePath)
}

func TestSnapshot_Mtimes(t *testing.T) {
	snap := sampleSnapshot()
	mtimes := snap.Mtimes()
	assert.Len(t, mtimes, 2)
	assert.Contains(t, mtimes, "app.py")
	assert.Contains(t, mtimes, "guide.md")
}

func TestSnapshotPath(t *testing.T) {
	path := SnapshotPath("/state", "acme_widgets")
	assert.Equal(t, filepath.Join("/state", "indices", "acme_widgets.db"), path)
}

func TestVectorCodec_RoundTrip(t *testing.T) {
	in := []float32{0.0, -1.5, 3.25, 1e-7}
	out := DeserializeVector(SerializeVector(in))
	assert.Equal(t, in, out)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)

	// Mismatched dimensions and zero vectors score 0.
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}
