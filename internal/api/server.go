package api

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taysluxe/tayai/internal/log"
)

// ServerConfig contains the collaborators and settings for the API
// server.
type ServerConfig struct {
	Logger      log.Logger
	Chat        ChatService      // Required
	Usage       UsageService     // Required
	Knowledge   KnowledgeService // Required
	Pool        *pgxpool.Pool    // Optional: nil disables DB check in /readyz
	CORSOrigins []string
	TrustProxy  bool
	RateRPS     float64 // Tokens refilled per second per IP (0 = default 10)
	RateBurst   int     // Rate limiter burst size per IP (0 = default 20)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates an API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Chat == nil {
		return nil, errors.New("chat service is required")
	}
	if cfg.Usage == nil {
		return nil, errors.New("usage service is required")
	}
	if cfg.Knowledge == nil {
		return nil, errors.New("knowledge service is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.Config{})
	}

	ch := &chatHandler{chat: cfg.Chat, usage: cfg.Usage, logger: logger}
	kh := &knowledgeHandler{svc: cfg.Knowledge, logger: logger}

	mux := http.NewServeMux()

	// Conversation
	mux.HandleFunc("POST /api/v1/chat", ch.send)
	mux.HandleFunc("GET /api/v1/chat/history", ch.history)
	mux.HandleFunc("DELETE /api/v1/chat/history", ch.clearHistory)
	mux.HandleFunc("POST /api/v1/chat/test", ch.personaTest)
	mux.HandleFunc("GET /api/v1/usage", ch.usageStatus)

	// Knowledge administration
	mux.HandleFunc("POST /api/v1/knowledge", kh.create)
	mux.HandleFunc("GET /api/v1/knowledge", kh.list)
	mux.HandleFunc("GET /api/v1/knowledge/search", kh.search)
	mux.HandleFunc("GET /api/v1/knowledge/stats", kh.stats)
	mux.HandleFunc("GET /api/v1/knowledge/categories", kh.categories)
	mux.HandleFunc("POST /api/v1/knowledge/bulk", kh.bulk)
	mux.HandleFunc("POST /api/v1/knowledge/reindex", kh.reindex)
	mux.HandleFunc("GET /api/v1/knowledge/{id}", kh.get)
	mux.HandleFunc("PATCH /api/v1/knowledge/{id}", kh.update)
	mux.HandleFunc("DELETE /api/v1/knowledge/{id}", kh.delete)

	rps := cfg.RateRPS
	if rps <= 0 {
		rps = 10
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 20
	}
	rl := newRateLimiter(rps, burst)

	// Middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Identity → Routes
	// RequestID sits before Logging so request_id appears in log
	// attributes. CORS sits before RateLimit so preflight OPTIONS gets
	// proper headers.
	var handler http.Handler = mux
	handler = identityMiddleware()(handler)
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes bypass the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /healthz", health)
	topMux.Handle("GET /readyz", readiness(cfg.Pool, logger))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
