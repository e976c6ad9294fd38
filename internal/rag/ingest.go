package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/kynahq/kyna/internal/catalog"
	"github.com/kynahq/kyna/internal/document"
	"github.com/kynahq/kyna/internal/embed"
	"github.com/kynahq/kyna/internal/log"
)

// maxFetchBytes caps how much of a remote page is read during URL ingestion.
const maxFetchBytes = 10 << 20

// Ingestor turns raw documents into catalog rows and indexed chunks.
//
// A document is created pending, marked processed once all chunks are
// indexed, and marked failed when indexing aborts partway. Chunks written
// before a failure are removed so retrieval never serves a partial
// document; the failed row stays visible in the catalog and is reclaimed
// when the same content is uploaded again.
type Ingestor struct {
	processor *document.Processor
	embedder  embed.Embedder
	idx       Indexer
	docs      Catalog
	client    *http.Client
	logger    log.Logger
}

// NewIngestor creates an ingestion pipeline. The HTTP client is used only
// for URL ingestion; pass nil to use http.DefaultClient.
func NewIngestor(
	processor *document.Processor,
	embedder embed.Embedder,
	idx Indexer,
	docs Catalog,
	client *http.Client,
	logger log.Logger,
) *Ingestor {
	if client == nil {
		client = http.DefaultClient
	}
	return &Ingestor{
		processor: processor,
		embedder:  embedder,
		idx:       idx,
		docs:      docs,
		client:    client,
		logger:    logger,
	}
}

// Ingest processes an uploaded file and indexes its chunks.
//
// Content is deduplicated by SHA-256: re-uploading identical bytes returns
// the existing document wrapped in ErrDuplicateDocument, and nothing is
// reprocessed.
func (ing *Ingestor) Ingest(ctx context.Context, filename string, data []byte) (catalog.Document, error) {
	return ing.ingest(ctx, filename, data, "")
}

// IngestURL fetches a web page, extracts its readable content and indexes
// it like an uploaded document. Deduplication applies to the fetched bytes.
func (ing *Ingestor) IngestURL(ctx context.Context, rawURL string) (catalog.Document, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return catalog.Document{}, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	body, err := ing.fetch(ctx, parsed)
	if err != nil {
		return catalog.Document{}, err
	}

	title, text, err := document.ExtractWebPage(body, parsed)
	if err != nil {
		return catalog.Document{}, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	name := title
	if name == "" {
		name = parsed.Host
	}

	return ing.ingestText(ctx, name, text, document.TypeHTML, sha(body), rawURL)
}

func (ing *Ingestor) ingest(ctx context.Context, filename string, data []byte, sourceURL string) (catalog.Document, error) {
	contentSHA := sha(data)
	if existing, err := ing.checkDuplicate(ctx, contentSHA); err != nil {
		return existing, err
	}

	processed, err := ing.processor.Process(filename, data)
	if err != nil {
		return catalog.Document{}, err
	}

	return ing.store(ctx, filename, processed, contentSHA, sourceURL)
}

func (ing *Ingestor) ingestText(ctx context.Context, filename, text, contentType, contentSHA, sourceURL string) (catalog.Document, error) {
	if existing, err := ing.checkDuplicate(ctx, contentSHA); err != nil {
		return existing, err
	}

	processed, err := ing.processor.ProcessText(text, contentType)
	if err != nil {
		return catalog.Document{}, err
	}

	return ing.store(ctx, filename, processed, contentSHA, sourceURL)
}

// checkDuplicate rejects content that is already ingested. A previous
// failed attempt with the same content is deleted so the retry starts
// with a clean row.
func (ing *Ingestor) checkDuplicate(ctx context.Context, contentSHA string) (catalog.Document, error) {
	existing, err := ing.docs.GetBySHA(ctx, contentSHA)
	if errors.Is(err, catalog.ErrNotFound) {
		return catalog.Document{}, nil
	}
	if err != nil {
		return catalog.Document{}, err
	}

	if existing.Status != catalog.StatusFailed {
		return existing, fmt.Errorf("%w: %s", ErrDuplicateDocument, existing.Filename)
	}

	ing.logger.Info("retrying failed ingestion", "id", existing.ID, "filename", existing.Filename)
	if err := ing.idx.DeleteByDocument(ctx, existing.ID); err != nil {
		return catalog.Document{}, err
	}
	if err := ing.docs.Delete(ctx, existing.ID); err != nil && !errors.Is(err, catalog.ErrNotFound) {
		return catalog.Document{}, err
	}
	return catalog.Document{}, nil
}

func (ing *Ingestor) store(ctx context.Context, filename string, processed *document.Processed, contentSHA, sourceURL string) (catalog.Document, error) {
	doc, err := ing.docs.Create(ctx, catalog.Document{
		Filename:    filename,
		ContentType: processed.ContentType,
		ContentSHA:  contentSHA,
		IsFAQ:       processed.IsFAQ,
		SourceURL:   sourceURL,
	})
	if err != nil {
		return catalog.Document{}, err
	}

	vectors, err := ing.embedder.EmbedDocuments(ctx, processed.Chunks)
	if err != nil {
		ing.fail(ctx, doc.ID)
		return catalog.Document{}, err
	}

	if err := ing.idx.Upsert(ctx, doc.ID, processed.Chunks, vectors); err != nil {
		ing.fail(ctx, doc.ID)
		return catalog.Document{}, err
	}
	if err := ing.docs.MarkProcessed(ctx, doc.ID, len(processed.Chunks)); err != nil {
		ing.fail(ctx, doc.ID)
		return catalog.Document{}, err
	}
	doc.Status = catalog.StatusProcessed
	doc.ChunkCount = len(processed.Chunks)

	ing.logger.Info("document ingested",
		"id", doc.ID,
		"filename", doc.Filename,
		"is_faq", doc.IsFAQ,
		"chunks", doc.ChunkCount,
	)
	return doc, nil
}

// Delete removes a document's chunks and its catalog row.
// Returns catalog.ErrNotFound when the document does not exist.
func (ing *Ingestor) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := ing.docs.Get(ctx, id); err != nil {
		return err
	}
	if err := ing.idx.DeleteByDocument(ctx, id); err != nil {
		return err
	}
	return ing.docs.Delete(ctx, id)
}

// fail marks a half-ingested document as failed and removes any chunks
// written before the failure, so retrieval never serves partial content.
// Failures here are logged, not returned; the original error is the one
// the caller needs.
func (ing *Ingestor) fail(ctx context.Context, id uuid.UUID) {
	if err := ing.idx.DeleteByDocument(ctx, id); err != nil {
		ing.logger.Error("removing chunks of failed ingestion", "document_id", id, "error", err)
	}
	if err := ing.docs.MarkFailed(ctx, id); err != nil && !errors.Is(err, catalog.ErrNotFound) {
		ing.logger.Error("marking document failed", "document_id", id, "error", err)
	}
}

func (ing *Ingestor) fetch(ctx context.Context, u *url.URL) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", "kyna/1.0")

	resp, err := ing.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching %s: %w", ErrInvalidURL, u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: fetching %s: status %d", ErrInvalidURL, u, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrInvalidURL, u, err)
	}
	return body, nil
}

func sha(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
