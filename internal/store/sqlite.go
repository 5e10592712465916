package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dmills/repovec/pkg/types"
)

// SQLiteStore persists snapshots in a single SQLite database file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// openDatabase opens a SQLite database with appropriate settings.
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// Open creates or opens the snapshot database at path, applying any pending
// schema migrations. Parent directories are created as needed.
func Open(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := openDatabase(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Save replaces the stored snapshot with snap in one transaction. A failed
// save leaves the previous snapshot intact.
func (s *SQLiteStore) Save(ctx context.Context, snap *Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return fmt.Errorf("failed to clear documents: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_meta`); err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}

	insertDoc := `
		INSERT INTO documents (
			file_path, chunk_index, is_chunked, doc_type, is_code,
			is_implementation, title, token_count, file_mtime_ns,
			content, vector, dimension
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, d := range snap.Documents {
		_, err := tx.ExecContext(ctx, insertDoc,
			d.Meta.FilePath, d.Meta.ChunkIndex, d.Meta.IsChunked,
			d.Meta.Type, d.Meta.IsCode, d.Meta.IsImplementation,
			d.Meta.Title, d.Meta.TokenCount, d.Meta.FileMtime.UnixNano(),
			d.Text, serializeVector(d.Vector), len(d.Vector))
		if err != nil {
			return fmt.Errorf("failed to insert document %s: %w", d.Meta.FilePath, err)
		}
	}

	now := time.Now()
	meta := map[string]string{
		"provider":   snap.Provider,
		"model":      snap.Model,
		"dimension":  fmt.Sprintf("%d", snap.Dimension),
		"created_at": now.UTC().Format(time.RFC3339Nano),
	}
	for key, value := range meta {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO snapshot_meta (key, value) VALUES (?, ?)`, key, value)
		if err != nil {
			return fmt.Errorf("failed to write metadata %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	snap.CreatedAt = now
	return nil
}

// Load reads the stored snapshot. ErrNotFound means no snapshot has been
// saved; ErrCorrupt means one exists but could not be decoded.
func (s *SQLiteStore) Load(ctx context.Context) (*Snapshot, error) {
	meta, err := s.loadMeta(ctx)
	if err != nil {
		return nil, err
	}
	if len(meta) == 0 {
		return nil, ErrNotFound
	}

	snap := &Snapshot{
		Provider: meta["provider"],
		Model:    meta["model"],
	}
	if _, err := fmt.Sscanf(meta["dimension"], "%d", &snap.Dimension); err != nil {
		return nil, fmt.Errorf("%w: bad dimension %q", ErrCorrupt, meta["dimension"])
	}
	if ts, err := time.Parse(time.RFC3339Nano, meta["created_at"]); err == nil {
		snap.CreatedAt = ts
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT file_path, chunk_index, is_chunked, doc_type, is_code,
		       is_implementation, title, token_count, file_mtime_ns,
		       content, vector, dimension
		FROM documents
		ORDER BY file_path, chunk_index
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			doc      types.Document
			mtimeNs  int64
			blob     []byte
			storeDim int
		)
		err := rows.Scan(
			&doc.Meta.FilePath, &doc.Meta.ChunkIndex, &doc.Meta.IsChunked,
			&doc.Meta.Type, &doc.Meta.IsCode, &doc.Meta.IsImplementation,
			&doc.Meta.Title, &doc.Meta.TokenCount, &mtimeNs,
			&doc.Text, &blob, &storeDim)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}

		doc.Meta.FileMtime = time.Unix(0, mtimeNs)
		doc.Vector = deserializeVector(blob)
		if len(doc.Vector) != storeDim {
			return nil, fmt.Errorf("%w: vector blob for %s does not match stored dimension",
				ErrCorrupt, doc.Meta.FilePath)
		}
		snap.Documents = append(snap.Documents, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return snap, nil
}

func (s *SQLiteStore) loadMeta(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM snapshot_meta`)
	if err != nil {
		return nil, fmt.Errorf("failed to query metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	meta := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		meta[key] = value
	}
	return meta, rows.Err()
}
