package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/kynahq/kyna/internal/catalog"
	"github.com/kynahq/kyna/internal/document"
	"github.com/kynahq/kyna/internal/embed"
	"github.com/kynahq/kyna/internal/llm"
	"github.com/kynahq/kyna/internal/memory"
	"github.com/kynahq/kyna/internal/rag"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeJSON writes a JSON response with the given status code.
// Encoding happens into a buffer first so headers are only sent after a
// successful encode; a failed encode still gets a proper 500.
func writeJSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		// Client disconnects are common and expected.
		logger.Debug("failed to write response body", "error", err)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string, logger *slog.Logger) {
	writeJSON(w, status, errorBody{Error: code, Message: message}, logger)
}

// writeDomainError maps a pipeline error to an HTTP status and error code.
// Internal detail stays in the log; the client sees a stable code and a
// sanitized message.
func writeDomainError(w http.ResponseWriter, err error, logger *slog.Logger) {
	status, code, message := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "code", code, "error", err)
	} else {
		logger.Debug("request rejected", "code", code, "error", err)
	}
	writeError(w, status, code, message, logger)
}

func classify(err error) (status int, code, message string) {
	switch {
	case errors.Is(err, rag.ErrEmptyQuestion):
		return http.StatusBadRequest, "empty_question", "question must not be empty"
	case errors.Is(err, rag.ErrInvalidURL):
		return http.StatusBadRequest, "invalid_url", "url could not be fetched"
	case errors.Is(err, document.ErrUnsupportedFormat):
		return http.StatusBadRequest, "unsupported_format", "unsupported document format"
	case errors.Is(err, document.ErrEmptyDocument):
		return http.StatusBadRequest, "empty_document", "document contains no extractable text"
	case errors.Is(err, rag.ErrDuplicateDocument):
		return http.StatusConflict, "duplicate_document", "identical content was already ingested"
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound, "not_found", "document not found"
	case errors.Is(err, embed.ErrEmbedding):
		return http.StatusBadGateway, "embedding_failed", "embedding service failed"
	case errors.Is(err, llm.ErrGeneration):
		return http.StatusBadGateway, "generation_failed", "language model failed"
	case errors.Is(err, rag.ErrRetrieval):
		return http.StatusInternalServerError, "retrieval_failed", "vector search failed"
	case errors.Is(err, memory.ErrSession):
		return http.StatusInternalServerError, "session_failed", "session storage failed"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}
