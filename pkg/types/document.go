package types

import (
	"errors"
	"time"
)

// Document type labels stored in Meta.Type.
const (
	DocTypeCode = "code"
	DocTypeDoc  = "doc"
)

// SourceFile describes a candidate file produced by the repository scanner.
// It is transient; one SourceFile becomes one Document before chunking, or
// N Documents after chunking.
type SourceFile struct {
	AbsPath string
	RelPath string
	Ext     string
	Size    int64
	Mtime   time.Time
}

// Meta is the metadata mapping attached to every Document.
type Meta struct {
	// FilePath is the path relative to the repository root. Chunks of the
	// same file share one FilePath.
	FilePath string

	// Type is DocTypeCode or DocTypeDoc.
	Type string

	// IsCode reports whether the file matched a recognized code extension.
	IsCode bool

	// IsImplementation is true for code files that are not tests or
	// application scaffolding.
	IsImplementation bool

	// Title is the file base name.
	Title string

	// TokenCount is the tokenizer-reported token count for Text.
	TokenCount int

	// ChunkIndex orders chunks of one file, contiguous from 0.
	// Zero and IsChunked=false for unchunked documents.
	ChunkIndex int

	// IsChunked marks documents produced by splitting an oversized file.
	IsChunked bool

	// FileMtime is the source file's modification time, used for
	// incremental diffing.
	FileMtime time.Time
}

// Document is the unit of indexing: text plus metadata plus an optional
// embedding vector. Vector is nil until the embedding generator attaches one;
// after validation it is a plain fixed-length float32 slice with no
// provider-specific representation.
type Document struct {
	Text   string
	Meta   Meta
	Vector []float32
}

// HasVector reports whether an embedding has been attached.
func (d *Document) HasVector() bool {
	return len(d.Vector) > 0
}

// Validate checks structural invariants of a document before persistence.
func (d *Document) Validate() error {
	if d.Meta.FilePath == "" {
		return errors.New("document file path is required")
	}
	if d.Meta.ChunkIndex < 0 {
		return errors.New("chunk index cannot be negative")
	}
	if !d.Meta.IsChunked && d.Meta.ChunkIndex != 0 {
		return errors.New("unchunked document must have chunk index 0")
	}
	return nil
}
