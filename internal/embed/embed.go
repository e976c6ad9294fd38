// Package embed defines the embedding boundary between document processing
// and the vector index.
//
// The Embedder interface keeps callers provider-agnostic: production code
// uses the Genkit adapter (see genkit.go), tests substitute deterministic
// fakes from internal/testutil.
package embed

import (
	"context"
	"errors"
)

// ErrEmbedding indicates the embedding provider failed or returned an
// unusable response.
var ErrEmbedding = errors.New("embedding failed")

// Embedder converts text into dense vectors.
//
// All vectors returned by one Embedder have the same dimension; query and
// document embeddings live in the same vector space so cosine similarity
// between them is meaningful.
type Embedder interface {
	// EmbedDocuments embeds a batch of chunk texts for indexing.
	// The result has one vector per input, in input order.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery embeds a single question for retrieval.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}
