package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/kynahq/kyna/internal/log"
)

// Store persists chunk embeddings in PostgreSQL/pgvector.
type Store struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// NewStore creates a vector index store backed by the given pool.
// The pool must have pgvector types registered (see app.Setup).
func NewStore(pool *pgxpool.Pool, logger log.Logger) *Store {
	return &Store{pool: pool, logger: logger}
}

// Upsert writes chunks and their embeddings in one transaction.
// chunks[i] pairs with vectors[i]; re-upserting the same
// (document_id, chunk_index) replaces content and embedding.
// Either every chunk lands or none does.
func (s *Store) Upsert(ctx context.Context, documentID uuid.UUID, chunks []string, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d chunks, %d vectors", len(chunks), len(vectors))
	}
	for i, vec := range vectors {
		if len(vec) != VectorDimension {
			return fmt.Errorf("%w: vector %d has dimension %d, want %d",
				ErrDimensionMismatch, i, len(vec), VectorDimension)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", ErrUnavailable, err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errorsIsTxClosed(err) {
			s.logger.Warn("rolling back upsert transaction", "error", err)
		}
	}()

	const upsertSQL = `
		INSERT INTO chunks (document_id, chunk_index, content, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (document_id, chunk_index)
		DO UPDATE SET content = EXCLUDED.content,
		              embedding = EXCLUDED.embedding,
		              metadata = EXCLUDED.metadata`

	for i, content := range chunks {
		metadata, err := json.Marshal(map[string]any{"chunk_index": i})
		if err != nil {
			return fmt.Errorf("marshaling chunk metadata: %w", err)
		}
		if _, err := tx.Exec(ctx, upsertSQL,
			documentID, i, content, pgvector.NewVector(vectors[i]), metadata); err != nil {
			return fmt.Errorf("%w: upserting chunk %d: %v", ErrUnavailable, i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrUnavailable, err)
	}

	s.logger.Debug("chunks upserted", "document_id", documentID, "count", len(chunks))
	return nil
}

// DeleteByDocument removes every chunk of a document.
// Deleting a document with no chunks is a no-op, not an error.
func (s *Store) DeleteByDocument(ctx context.Context, documentID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return fmt.Errorf("%w: deleting chunks: %v", ErrUnavailable, err)
	}

	s.logger.Debug("chunks deleted", "document_id", documentID, "count", tag.RowsAffected())
	return nil
}

// CountByDocument returns the number of chunks indexed for a document.
func (s *Store) CountByDocument(ctx context.Context, documentID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM chunks WHERE document_id = $1`, documentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: counting chunks: %v", ErrUnavailable, err)
	}
	return count, nil
}

// Search runs cosine similarity search against the index.
// In ModeSimilarity the top-k nearest chunks always come back (possibly with
// low scores); in ModeScoreThreshold chunks below the threshold are filtered
// server-side and the result may be empty.
func (s *Store) Search(ctx context.Context, vector []float32, opts ...SearchOption) ([]Result, error) {
	if len(vector) != VectorDimension {
		return nil, fmt.Errorf("%w: query vector has dimension %d, want %d",
			ErrDimensionMismatch, len(vector), VectorDimension)
	}

	cfg := defaultSearchConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	query := `
		SELECT id, document_id, chunk_index, content, metadata,
		       1 - (embedding <=> $1) AS score
		FROM chunks`
	args := []any{pgvector.NewVector(vector)}

	if cfg.mode == ModeScoreThreshold {
		query += `
		WHERE 1 - (embedding <=> $1) >= $2`
		args = append(args, cfg.scoreThreshold)
	}

	query += fmt.Sprintf(`
		ORDER BY embedding <=> $1
		LIMIT %d`, cfg.topK)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: similarity search: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var metadata []byte
		if err := rows.Scan(&r.ID, &r.DocumentID, &r.Index, &r.Content, &metadata, &r.Score); err != nil {
			return nil, fmt.Errorf("%w: scanning result: %v", ErrUnavailable, err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &r.Metadata); err != nil {
				s.logger.Warn("skipping malformed chunk metadata", "chunk_id", r.ID, "error", err)
			}
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading results: %v", ErrUnavailable, err)
	}

	return results, nil
}

// errorsIsTxClosed reports whether err is the expected rollback-after-commit error.
func errorsIsTxClosed(err error) bool {
	return errors.Is(err, pgx.ErrTxClosed)
}
