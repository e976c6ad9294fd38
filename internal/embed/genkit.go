package embed

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
)

// GenkitEmbedder adapts a Genkit ai.Embedder to the Embedder interface.
// The underlying embedder is registered by the provider plugin during
// application setup (see internal/app).
type GenkitEmbedder struct {
	embedder ai.Embedder
	options  any
}

// Option configures a GenkitEmbedder.
type Option func(*GenkitEmbedder)

// WithRequestOptions sets provider-specific options attached to every embed
// request, such as genai.EmbedContentConfig for pinning the Gemini output
// dimensionality to the index schema.
func WithRequestOptions(options any) Option {
	return func(e *GenkitEmbedder) {
		e.options = options
	}
}

// NewGenkit wraps a Genkit embedder.
func NewGenkit(embedder ai.Embedder, opts ...Option) *GenkitEmbedder {
	e := &GenkitEmbedder{embedder: embedder}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EmbedDocuments embeds all texts in a single batched request.
func (e *GenkitEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	docs := make([]*ai.Document, len(texts))
	for i, text := range texts {
		docs[i] = ai.DocumentFromText(text, nil)
	}

	resp, err := e.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs, Options: e.options})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts",
			ErrEmbedding, len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		vectors[i] = emb.Embedding
	}
	return vectors, nil
}

// EmbedQuery embeds a single question.
func (e *GenkitEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.embedder.Embed(ctx, &ai.EmbedRequest{
		Input:   []*ai.Document{ai.DocumentFromText(text, nil)},
		Options: e.options,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}

	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", ErrEmbedding)
	}
	return resp.Embeddings[0].Embedding, nil
}
