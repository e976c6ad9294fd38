package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/kynahq/kyna/internal/catalog"
	"github.com/kynahq/kyna/internal/rag"
)

// DocumentCatalog is the read side of document metadata the API needs.
type DocumentCatalog interface {
	Get(ctx context.Context, id uuid.UUID) (catalog.Document, error)
	List(ctx context.Context) ([]catalog.Document, error)
}

// documentHandler serves document ingestion and catalog endpoints.
type documentHandler struct {
	ingestor  *rag.Ingestor
	docs      DocumentCatalog
	maxUpload int64
	logger    *slog.Logger
}

type uploadResponse struct {
	Status   string           `json:"status"`
	Document catalog.Document `json:"document"`
}

// duplicateResponse is the conflict body for re-uploaded content. The
// existing document rides along so the caller learns its id without a
// second lookup.
type duplicateResponse struct {
	Error    string           `json:"error"`
	Message  string           `json:"message"`
	Document catalog.Document `json:"document"`
}

// writeIngestResult renders an ingestion outcome, turning the duplicate
// case into a conflict that carries the already-ingested document.
func (h *documentHandler) writeIngestResult(w http.ResponseWriter, doc catalog.Document, err error) {
	switch {
	case errors.Is(err, rag.ErrDuplicateDocument):
		writeJSON(w, http.StatusConflict, duplicateResponse{
			Error:    "duplicate_document",
			Message:  "identical content was already ingested",
			Document: doc,
		}, h.logger)
	case err != nil:
		writeDomainError(w, err, h.logger)
	default:
		writeJSON(w, http.StatusCreated, uploadResponse{Status: doc.Status, Document: doc}, h.logger)
	}
}

// upload handles POST /api/v1/documents/upload (multipart form, field "file").
func (h *documentHandler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	file, header, err := r.FormFile("file")
	if err != nil {
		if _, tooLarge := err.(*http.MaxBytesError); tooLarge {
			writeError(w, http.StatusRequestEntityTooLarge, "file_too_large", "uploaded file is too large", h.logger)
			return
		}
		writeError(w, http.StatusBadRequest, "missing_file", `multipart field "file" is required`, h.logger)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable_file", "could not read uploaded file", h.logger)
		return
	}

	doc, err := h.ingestor.Ingest(r.Context(), header.Filename, data)
	h.writeIngestResult(w, doc, err)
}

type ingestURLRequest struct {
	URL string `json:"url"`
}

// ingestURL handles POST /api/v1/documents/url.
func (h *documentHandler) ingestURL(w http.ResponseWriter, r *http.Request) {
	var req ingestURLRequest
	body := http.MaxBytesReader(w, r.Body, maxAskBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}

	doc, err := h.ingestor.IngestURL(r.Context(), req.URL)
	h.writeIngestResult(w, doc, err)
}

type listResponse struct {
	Documents []catalog.Document `json:"documents"`
	Total     int                `json:"total"`
}

// list handles GET /api/v1/documents.
func (h *documentHandler) list(w http.ResponseWriter, r *http.Request) {
	docs, err := h.docs.List(r.Context())
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	if docs == nil {
		docs = []catalog.Document{}
	}

	writeJSON(w, http.StatusOK, listResponse{Documents: docs, Total: len(docs)}, h.logger)
}

// get handles GET /api/v1/documents/{id}.
func (h *documentHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.documentID(w, r)
	if !ok {
		return
	}

	doc, err := h.docs.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, doc, h.logger)
}

// remove handles DELETE /api/v1/documents/{id}.
func (h *documentHandler) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := h.documentID(w, r)
	if !ok {
		return
	}

	if err := h.ingestor.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"id":     id.String(),
		"status": "deleted",
	}, h.logger)
}

func (h *documentHandler) documentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "document id must be a UUID", h.logger)
		return uuid.Nil, false
	}
	return id, true
}
