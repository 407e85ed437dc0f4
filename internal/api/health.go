package api

import (
	"net/http"

	"github.com/nesrien2002/livekit-voice-agent/internal/agent"
	"github.com/nesrien2002/livekit-voice-agent/internal/rag"
)

// health is a liveness probe. Returns 200 OK with {"status":"ok"}.
func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusHandler struct {
	index    *rag.Index
	registry *agent.Registry
}

type statusResponse struct {
	Status    string `json:"status"`
	Documents int    `json:"documents"`
	Embedder  string `json:"embedder"`
	Sessions  int    `json:"sessions"`
}

// get reports index and session counts for dashboards and smoke tests.
func (h *statusHandler) get(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Status:    "ok",
		Documents: h.index.Len(),
		Embedder:  h.index.EmbedderName(),
		Sessions:  h.registry.Len(),
	})
}
