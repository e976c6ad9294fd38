// Package index implements the vector index on PostgreSQL with pgvector.
//
// Chunks are stored with their embeddings in the chunks table; similarity
// search runs server-side with the cosine distance operator. Scores exposed
// by Search are cosine similarities (1 - distance), so higher is better.
package index

import (
	"errors"

	"github.com/google/uuid"
)

// VectorDimension is the embedding dimension enforced by the schema
// (chunks.embedding vector(768)). Embedders must be configured to produce
// vectors of this size.
const VectorDimension = 768

var (
	// ErrUnavailable indicates the vector index could not be reached or the
	// operation failed at the database level.
	ErrUnavailable = errors.New("vector index unavailable")

	// ErrDimensionMismatch indicates an embedding does not match the schema
	// dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Chunk is one indexed piece of a document.
type Chunk struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	Index      int
	Content    string
	Metadata   map[string]any
}

// Result is a chunk returned by similarity search.
type Result struct {
	Chunk

	// Score is the cosine similarity between the query and the chunk
	// embedding. Normalized embeddings yield scores in [0, 1].
	Score float64
}

// Search modes.
const (
	// ModeSimilarity returns the top-k nearest chunks unconditionally.
	ModeSimilarity = "similarity"

	// ModeScoreThreshold returns only chunks whose similarity reaches the
	// configured threshold; it may return fewer than k results, or none.
	ModeScoreThreshold = "similarity_score_threshold"
)

// searchConfig collects Search options.
type searchConfig struct {
	topK           int
	mode           string
	scoreThreshold float64
}

// SearchOption configures a Search call.
type SearchOption func(*searchConfig)

// WithTopK sets the maximum number of results. Non-positive values keep
// the default of 4.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithMode selects the search mode. Unknown modes keep the default
// ModeSimilarity.
func WithMode(mode string) SearchOption {
	return func(c *searchConfig) {
		if mode == ModeSimilarity || mode == ModeScoreThreshold {
			c.mode = mode
		}
	}
}

// WithScoreThreshold sets the minimum similarity for ModeScoreThreshold.
// Values outside [0, 1] are clamped.
func WithScoreThreshold(threshold float64) SearchOption {
	return func(c *searchConfig) {
		if threshold < 0 {
			threshold = 0
		}
		if threshold > 1 {
			threshold = 1
		}
		c.scoreThreshold = threshold
	}
}

func defaultSearchConfig() searchConfig {
	return searchConfig{
		topK:           4,
		mode:           ModeSimilarity,
		scoreThreshold: 0,
	}
}
