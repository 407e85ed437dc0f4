package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/nesrien2002/livekit-voice-agent/internal/agent"
	"github.com/nesrien2002/livekit-voice-agent/internal/corpus"
	"github.com/nesrien2002/livekit-voice-agent/internal/log"
	"github.com/nesrien2002/livekit-voice-agent/internal/prompt"
	"github.com/nesrien2002/livekit-voice-agent/internal/rag"
)

type echoGenerator struct{}

func (echoGenerator) Generate(_ context.Context, p string) (string, error) {
	return "answer to: " + p, nil
}

func testIndex(t *testing.T) (*rag.Index, *rag.Retriever) {
	t.Helper()
	texts := []string{
		"Support hours: Mon-Fri 9am-6pm EST.",
		"Pricing: Starter $99/mo.",
	}
	emb := rag.NewKeywordEmbedder(texts)
	docs := make([]corpus.Document, len(texts))
	for i, text := range texts {
		docs[i] = corpus.Document{ID: fmt.Sprintf("kb.txt:%d", i), Source: "kb.txt", Text: text, Chunk: i}
	}
	idx, err := rag.Build(context.Background(), emb, docs)
	if err != nil {
		t.Fatalf("Build() = %v", err)
	}
	retriever, err := rag.NewRetriever(emb, idx, 3, log.NewNop())
	if err != nil {
		t.Fatalf("NewRetriever() = %v", err)
	}
	return idx, retriever
}

func newTestServer(t *testing.T, mutate func(*ServerConfig)) http.Handler {
	t.Helper()
	idx, retriever := testIndex(t)
	registry := agent.NewRegistry(func() *agent.Agent {
		return agent.New(retriever, echoGenerator{}, prompt.NewBuilder(4000, 6),
			"fallback", log.NewNop())
	})

	cfg := ServerConfig{
		Logger:   log.NewNop(),
		Registry: registry,
		Index:    idx,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer() = %v", err)
	}
	return srv.Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	if _, err := NewServer(ServerConfig{}); err == nil {
		t.Error("NewServer() accepted a config with no registry")
	}
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t, nil)
	rec := doJSON(t, h, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /healthz = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestChat_NewSession(t *testing.T) {
	h := newTestServer(t, nil)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/chat",
		`{"query":"What are your business hours?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/v1/chat = %d: %s", rec.Code, rec.Body.String())
	}

	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if _, err := uuid.Parse(resp.SessionID); err != nil {
		t.Errorf("session_id = %q, not a UUID", resp.SessionID)
	}
	if !strings.Contains(resp.Response, "Support hours") {
		t.Errorf("response %q does not reflect retrieved context", resp.Response)
	}
	if resp.State != "complete" {
		t.Errorf("state = %q, want complete", resp.State)
	}
}

func TestChat_FollowUpSharesHistory(t *testing.T) {
	h := newTestServer(t, nil)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/chat", `{"query":"first question"}`)
	var first chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &first); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	body := fmt.Sprintf(`{"session_id":%q,"query":"second question"}`, first.SessionID)
	rec = doJSON(t, h, http.MethodPost, "/api/v1/chat", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("follow-up = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/api/v1/sessions/"+first.SessionID+"/history", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET history = %d", rec.Code)
	}
	var hist historyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &hist); err != nil {
		t.Fatalf("decoding history: %v", err)
	}
	if len(hist.Turns) != 4 {
		t.Errorf("history has %d turns after two exchanges, want 4", len(hist.Turns))
	}
}

func TestChat_BadRequests(t *testing.T) {
	h := newTestServer(t, nil)

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"invalid json", `{"query"`, "bad_request"},
		{"empty query", `{"query":"   "}`, "empty_query"},
		{"bad session id", `{"session_id":"not-a-uuid","query":"hi"}`, "invalid_session"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, "/api/v1/chat", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			var er ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil {
				t.Fatalf("decoding error: %v", err)
			}
			if er.Error != tt.wantCode {
				t.Errorf("error = %q, want %q", er.Error, tt.wantCode)
			}
		})
	}
}

func TestSessions_Lifecycle(t *testing.T) {
	h := newTestServer(t, nil)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/sessions", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/v1/sessions = %d", rec.Code)
	}
	var created sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/v1/sessions/"+created.SessionID+"/history", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET history = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodDelete, "/api/v1/sessions/"+created.SessionID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/v1/sessions/"+created.SessionID+"/history", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET history after delete = %d, want 404", rec.Code)
	}
}

func TestStatus(t *testing.T) {
	h := newTestServer(t, nil)

	rec := doJSON(t, h, http.MethodGet, "/api/v1/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/status = %d", rec.Code)
	}
	var status statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decoding status: %v", err)
	}
	if status.Documents != 2 {
		t.Errorf("documents = %d, want 2", status.Documents)
	}
	if status.Embedder != "keyword" {
		t.Errorf("embedder = %q", status.Embedder)
	}
}

func TestToken_NotRegisteredWithoutCreds(t *testing.T) {
	h := newTestServer(t, nil)

	rec := doJSON(t, h, http.MethodGet, "/api/v1/token?identity=alice&room=demo", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("token endpoint = %d without creds, want 404", rec.Code)
	}
}
