package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/nesrien2002/livekit-voice-agent/internal/agent"
	"github.com/nesrien2002/livekit-voice-agent/internal/session"
)

type sessionHandler struct {
	registry *agent.Registry
	logger   *slog.Logger
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
}

type historyResponse struct {
	SessionID string         `json:"session_id"`
	Turns     []session.Turn `json:"turns"`
}

// create allocates a session ID eagerly so clients can open a conversation
// before the first query.
func (h *sessionHandler) create(w http.ResponseWriter, r *http.Request) {
	id := uuid.New().String()
	h.registry.Get(id)
	h.logger.Info("session created", "session_id", id)
	writeJSON(w, http.StatusCreated, sessionResponse{SessionID: id})
}

// history returns the session's transcript in chronological order.
func (h *sessionHandler) history(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	a, ok := h.registry.Lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session_not_found", "unknown session")
		return
	}

	turns := a.History().Recent(0)
	if turns == nil {
		turns = []session.Turn{}
	}
	writeJSON(w, http.StatusOK, historyResponse{SessionID: id, Turns: turns})
}

// delete forgets the session and its transcript.
func (h *sessionHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := h.registry.Lookup(id); !ok {
		writeError(w, http.StatusNotFound, "session_not_found", "unknown session")
		return
	}

	h.registry.Drop(id)
	h.logger.Info("session deleted", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}
