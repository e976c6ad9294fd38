package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/kynahq/kyna/internal/memory"
	"github.com/kynahq/kyna/internal/rag"
)

const maxAskBodyBytes = 64 << 10

// askHandler serves question answering and session management.
type askHandler struct {
	chain  *rag.Chain
	logger *slog.Logger
}

type askRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
}

type askResponse struct {
	Question  string       `json:"question"`
	Answer    string       `json:"answer"`
	SessionID string       `json:"session_id,omitempty"`
	Sources   []rag.Source `json:"sources"`
}

// ask handles POST /api/v1/ask.
func (h *askHandler) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	body := http.MaxBytesReader(w, r.Body, maxAskBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		if _, tooLarge := err.(*http.MaxBytesError); tooLarge {
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large", h.logger)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}

	answer, err := h.chain.Ask(r.Context(), req.Question, req.SessionID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	sources := answer.Sources
	if sources == nil {
		sources = []rag.Source{}
	}
	writeJSON(w, http.StatusOK, askResponse{
		Question:  answer.Question,
		Answer:    answer.Answer,
		SessionID: req.SessionID,
		Sources:   sources,
	}, h.logger)
}

type historyResponse struct {
	SessionID string        `json:"session_id"`
	History   []memory.Turn `json:"history"`
}

// history handles GET /api/v1/sessions/{id}/history.
func (h *askHandler) history(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "invalid_session", "session id is required", h.logger)
		return
	}

	turns, err := h.chain.History(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	if turns == nil {
		turns = []memory.Turn{}
	}

	writeJSON(w, http.StatusOK, historyResponse{SessionID: sessionID, History: turns}, h.logger)
}

// clearSession handles DELETE /api/v1/sessions/{id}.
func (h *askHandler) clearSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "invalid_session", "session id is required", h.logger)
		return
	}

	if err := h.chain.ClearSession(r.Context(), sessionID); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"session_id": sessionID,
		"status":     "cleared",
	}, h.logger)
}
