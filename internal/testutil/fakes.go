package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
	"sync"

	"github.com/kynahq/kyna/internal/llm"
)

// EmbeddingDim matches the vector dimension of the chunks table.
const EmbeddingDim = 768

// FakeEmbedder produces deterministic embeddings derived from the input
// text, so equal strings always embed to equal vectors. Specific texts can
// be pinned to hand-built vectors with SetVector to control similarity
// ordering in retrieval tests.
//
// Thread-safe for concurrent use.
type FakeEmbedder struct {
	mu     sync.Mutex
	pinned map[string][]float32
	err    error
	calls  []string
}

// NewFakeEmbedder creates a deterministic embedder.
func NewFakeEmbedder() *FakeEmbedder {
	return &FakeEmbedder{pinned: make(map[string][]float32)}
}

// SetVector pins a text to a fixed embedding. The vector must have
// EmbeddingDim dimensions; shorter vectors are zero-padded.
func (f *FakeEmbedder) SetVector(text string, vector []float32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	padded := make([]float32, EmbeddingDim)
	copy(padded, vector)
	f.pinned[text] = padded
}

// Fail makes every subsequent call return err. Pass nil to recover.
func (f *FakeEmbedder) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Calls returns every text embedded so far.
func (f *FakeEmbedder) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]string, len(f.calls))
	copy(cp, f.calls)
	return cp
}

// EmbedDocuments embeds a batch of texts.
func (f *FakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		f.calls = append(f.calls, text)
		vectors[i] = f.vector(text)
	}
	return vectors, nil
}

// EmbedQuery embeds a single query string.
func (f *FakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.calls = append(f.calls, text)
	return f.vector(text), nil
}

func (f *FakeEmbedder) vector(text string) []float32 {
	if pinned, ok := f.pinned[text]; ok {
		out := make([]float32, EmbeddingDim)
		copy(out, pinned)
		return out
	}

	// Expand a SHA-256 of the text into a unit-ish vector. Deterministic
	// and well spread, which is all retrieval tests need.
	sum := sha256.Sum256([]byte(text))
	vec := make([]float32, EmbeddingDim)
	var norm float64
	for i := range vec {
		word := binary.BigEndian.Uint32(sum[(i*4)%28 : (i*4)%28+4])
		v := float64(word%2000)/1000 - 1 + float64(i%7)*0.001
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

// FakeModel is an llm.Client returning canned responses. Prompts are
// matched case-insensitively against registered substrings in registration
// order; the fallback is returned when nothing matches.
//
// Thread-safe for concurrent use.
type FakeModel struct {
	mu       sync.Mutex
	rules    []fakeRule
	fallback string
	err      error
	calls    []llm.Request
}

type fakeRule struct {
	pattern  string
	response string
}

// NewFakeModel creates a fake model with the given fallback response.
func NewFakeModel(fallback string) *FakeModel {
	return &FakeModel{fallback: fallback}
}

// AddResponse registers a substring pattern and its response.
func (f *FakeModel) AddResponse(pattern, response string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, fakeRule{pattern: strings.ToLower(pattern), response: response})
}

// Fail makes every subsequent call return err. Pass nil to recover.
func (f *FakeModel) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Calls returns a copy of every request received.
func (f *FakeModel) Calls() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]llm.Request, len(f.calls))
	copy(cp, f.calls)
	return cp
}

// LastCall returns the most recent request, or a zero Request.
func (f *FakeModel) LastCall() llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return llm.Request{}
	}
	return f.calls[len(f.calls)-1]
}

// Generate implements llm.Client.
func (f *FakeModel) Generate(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.err != nil {
		return "", f.err
	}

	lower := strings.ToLower(req.Prompt)
	for _, rule := range f.rules {
		if strings.Contains(lower, rule.pattern) {
			return rule.response, nil
		}
	}
	return f.fallback, nil
}
