package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/nesrien2002/livekit-voice-agent/internal/agent"
	"github.com/nesrien2002/livekit-voice-agent/internal/rag"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger   *slog.Logger
	Registry *agent.Registry // Required
	Index    *rag.Index      // Required: backs the status endpoint

	CORSOrigins []string
	TrustProxy  bool // Trust X-Real-IP/X-Forwarded-For (behind reverse proxy)
	RateBurst   int  // Rate limiter burst size per IP (0 = default 60)

	// LiveKit room token issuing. The token endpoint is only registered
	// when all three are set.
	LiveKitURL       string
	LiveKitAPIKey    string
	LiveKitAPISecret string
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Registry == nil {
		return nil, errors.New("agent registry is required")
	}
	if cfg.Index == nil {
		return nil, errors.New("index is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ch := &chatHandler{registry: cfg.Registry, logger: logger}
	sh := &sessionHandler{registry: cfg.Registry, logger: logger}
	st := &statusHandler{index: cfg.Index, registry: cfg.Registry}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/chat", ch.send)
	mux.HandleFunc("POST /api/v1/sessions", sh.create)
	mux.HandleFunc("GET /api/v1/sessions/{id}/history", sh.history)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", sh.delete)
	mux.HandleFunc("GET /api/v1/status", st.get)

	if cfg.LiveKitURL != "" && cfg.LiveKitAPIKey != "" && cfg.LiveKitAPISecret != "" {
		th := &tokenHandler{
			apiKey:    cfg.LiveKitAPIKey,
			apiSecret: cfg.LiveKitAPISecret,
			serverURL: cfg.LiveKitURL,
			logger:    logger,
		}
		mux.HandleFunc("GET /api/v1/token", th.issue)
	}

	// Rate limiter: per-IP token bucket (1 token/sec refill).
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Top-level mux keeps health probes out of the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /healthz", health)
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
