// Package catalog stores document metadata in PostgreSQL.
//
// The catalog is the system of record for what has been ingested: one row
// per document, keyed by the SHA-256 of its raw content so re-uploading the
// same bytes is detected before any chunking or embedding work happens.
// Chunk text and embeddings live in internal/index; the two tables are tied
// together by documents.id with ON DELETE CASCADE.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kynahq/kyna/internal/log"
)

// ErrNotFound indicates the requested document does not exist.
var ErrNotFound = errors.New("document not found")

// Document lifecycle states. A document is created pending, moves to
// processed once its chunks are indexed, and to failed when ingestion
// aborted partway. Failed documents have no chunks in the index.
const (
	StatusPending   = "pending"
	StatusProcessed = "processed"
	StatusFailed    = "failed"
)

// Document is one catalog entry.
type Document struct {
	ID          uuid.UUID `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	ContentSHA  string    `json:"content_sha256"`
	IsFAQ       bool      `json:"is_faq"`
	Status      string    `json:"status"`
	ChunkCount  int       `json:"chunk_count"`
	SourceURL   string    `json:"source_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store provides document metadata persistence.
type Store struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// New creates a catalog store.
func New(pool *pgxpool.Pool, logger log.Logger) *Store {
	return &Store{pool: pool, logger: logger}
}

const documentColumns = `id, filename, content_type, content_sha256, is_faq, status, chunk_count,
       COALESCE(source_url, ''), created_at, updated_at`

// Create inserts a new document row and returns it with generated fields.
// A zero Status defaults to pending.
func (s *Store) Create(ctx context.Context, doc Document) (Document, error) {
	var sourceURL any
	if doc.SourceURL != "" {
		sourceURL = doc.SourceURL
	}
	if doc.Status == "" {
		doc.Status = StatusPending
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO documents (filename, content_type, content_sha256, is_faq, status, chunk_count, source_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+documentColumns,
		doc.Filename, doc.ContentType, doc.ContentSHA, doc.IsFAQ, doc.Status, doc.ChunkCount, sourceURL)

	created, err := scanDocument(row)
	if err != nil {
		return Document{}, fmt.Errorf("creating document: %w", err)
	}

	s.logger.Debug("document created", "id", created.ID, "filename", created.Filename)
	return created, nil
}

// Get returns a document by id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Document, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("getting document: %w", err)
	}
	return doc, nil
}

// GetBySHA returns the document with the given content hash, or ErrNotFound.
// Used for idempotent ingestion.
func (s *Store) GetBySHA(ctx context.Context, sha string) (Document, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE content_sha256 = $1`, sha)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("getting document by hash: %w", err)
	}
	return doc, nil
}

// List returns all documents, newest first.
func (s *Store) List(ctx context.Context) ([]Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+documentColumns+` FROM documents ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading documents: %w", err)
	}
	return docs, nil
}

// MarkProcessed records a completed ingestion: the document becomes
// processed with the given chunk count. Called after the vector upsert
// succeeds.
func (s *Store) MarkProcessed(ctx context.Context, id uuid.UUID, chunkCount int) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE documents SET status = $2, chunk_count = $3, updated_at = now() WHERE id = $1`,
		id, StatusProcessed, chunkCount)
	if err != nil {
		return fmt.Errorf("marking document processed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkFailed records an aborted ingestion. The row is kept so the failure
// is visible to callers; its chunks are removed separately.
func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE documents SET status = $2, chunk_count = 0, updated_at = now() WHERE id = $1`,
		id, StatusFailed)
	if err != nil {
		return fmt.Errorf("marking document failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a document row. The chunks table cascades.
// Returns ErrNotFound when the document does not exist.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	s.logger.Debug("document deleted", "id", id)
	return nil
}

func scanDocument(row pgx.Row) (Document, error) {
	var doc Document
	err := row.Scan(
		&doc.ID,
		&doc.Filename,
		&doc.ContentType,
		&doc.ContentSHA,
		&doc.IsFAQ,
		&doc.Status,
		&doc.ChunkCount,
		&doc.SourceURL,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}
