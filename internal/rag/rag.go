// Package rag orchestrates retrieval-augmented question answering.
//
// The pipeline has two halves. Ingestion turns raw documents into embedded
// chunks in the vector index plus a catalog row describing the document.
// Answering embeds a question, retrieves the closest chunks, and asks the
// model to answer strictly from that retrieved context, with optional
// per-session conversation history folded in.
package rag

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/kynahq/kyna/internal/catalog"
	"github.com/kynahq/kyna/internal/index"
)

var (
	// ErrEmptyQuestion indicates the question was blank.
	ErrEmptyQuestion = errors.New("question is empty")
	// ErrRetrieval indicates the vector search failed.
	ErrRetrieval = errors.New("retrieval failed")
	// ErrDuplicateDocument indicates identical content was already ingested.
	ErrDuplicateDocument = errors.New("document already ingested")
	// ErrInvalidURL indicates the URL could not be fetched for ingestion.
	ErrInvalidURL = errors.New("invalid document url")
)

// Retriever searches the vector index.
type Retriever interface {
	Search(ctx context.Context, vector []float32, opts ...index.SearchOption) ([]index.Result, error)
}

// Indexer writes chunk vectors for a document.
type Indexer interface {
	Upsert(ctx context.Context, documentID uuid.UUID, chunks []string, vectors [][]float32) error
	DeleteByDocument(ctx context.Context, documentID uuid.UUID) error
}

// Catalog persists document metadata.
type Catalog interface {
	Create(ctx context.Context, doc catalog.Document) (catalog.Document, error)
	Get(ctx context.Context, id uuid.UUID) (catalog.Document, error)
	GetBySHA(ctx context.Context, sha string) (catalog.Document, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, chunkCount int) error
	MarkFailed(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}
