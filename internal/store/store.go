// Package store persists index snapshots to SQLite, one database file per
// repository identity.
//
// A snapshot is the complete embedded document set for one repository plus
// the embedding provenance (provider, model, dimension). Saves replace the
// previous snapshot atomically in a single transaction; a load that fails
// for any reason is reported to the caller, which treats it as "no usable
// snapshot" and rebuilds from scratch.
package store

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/dmills/repovec/pkg/types"
)

var (
	// ErrNotFound is returned when no snapshot has been saved yet.
	ErrNotFound = errors.New("snapshot not found")
	// ErrCorrupt is returned when a snapshot exists but cannot be decoded.
	ErrCorrupt = errors.New("snapshot is corrupt")
)

// Snapshot is the persisted state of one repository index.
type Snapshot struct {
	Documents []*types.Document
	Dimension int
	Provider  string
	Model     string
	CreatedAt time.Time
}

// Mtimes returns the last known modification time per file path. Chunked
// files contribute one entry; all chunks of a file share the file's mtime.
func (s *Snapshot) Mtimes() map[string]time.Time {
	out := make(map[string]time.Time)
	for _, d := range s.Documents {
		out[d.Meta.FilePath] = d.Meta.FileMtime
	}
	return out
}

// DocumentsByFile groups the snapshot's documents by file path, preserving
// chunk order within each file.
func (s *Snapshot) DocumentsByFile() map[string][]*types.Document {
	out := make(map[string][]*types.Document)
	for _, d := range s.Documents {
		out[d.Meta.FilePath] = append(out[d.Meta.FilePath], d)
	}
	return out
}

// SnapshotPath returns the database file path for a repository identity
// under the given state directory.
func SnapshotPath(stateDir, identity string) string {
	return filepath.Join(stateDir, "indices", identity+".db")
}
