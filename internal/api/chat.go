package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/nesrien2002/livekit-voice-agent/internal/agent"
)

// maxChatBodyBytes bounds chat request bodies.
const maxChatBodyBytes = 16 << 10

type chatHandler struct {
	registry *agent.Registry
	logger   *slog.Logger
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	Response  string `json:"response"`
	State     string `json:"state"`
}

// send answers one query. An empty session_id starts a new conversation;
// the assigned ID comes back in the response for follow-up turns.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	} else if _, err := uuid.Parse(req.SessionID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_session", "session_id must be a UUID")
		return
	}

	a := h.registry.Get(req.SessionID)
	answer, err := a.ProcessQuery(r.Context(), req.Query)
	switch {
	case errors.Is(err, agent.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, "empty_query", "query must not be blank")
		return
	case err != nil:
		h.logger.Error("processing query",
			"error", err,
			"session_id", req.SessionID,
			"request_id", requestIDFromContext(r.Context()),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to process query")
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		SessionID: req.SessionID,
		Response:  answer,
		State:     a.State().String(),
	})
}
