// Package types provides shared type definitions for the repovec indexing pipeline.
//
// This package defines the domain types that flow between pipeline stages:
// discovered source files, indexable documents with their metadata and vectors,
// filter rules, and retrieval results.
//
// # Core Types
//
// Document is the atomic unit of indexing: text, metadata, and an optional
// embedding vector attached later by the embedding generator:
//
//	doc := &types.Document{
//	    Text: content,
//	    Meta: types.Meta{
//	        FilePath:   "internal/server/server.go",
//	        Type:       types.DocTypeCode,
//	        IsCode:     true,
//	        TokenCount: 412,
//	    },
//	}
//
// Once a vector is attached its length must match the index's agreed
// dimensionality; the validate package enforces this before persistence.
//
// RetrievalResult carries the top-K documents answering one query, ordered by
// similarity rank. Result documents reference snapshot documents read-only; no
// new ownership is taken.
package types
