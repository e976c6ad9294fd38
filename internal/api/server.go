// Package api exposes the question answering and document ingestion
// pipeline as a JSON HTTP API.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kynahq/kyna/internal/rag"
)

// ServerConfig contains everything needed to build the API server.
type ServerConfig struct {
	Logger          *slog.Logger
	Chain           *rag.Chain      // Required
	Ingestor        *rag.Ingestor   // Required
	Catalog         DocumentCatalog // Required
	Pool            *pgxpool.Pool   // Optional: nil disables the DB readiness check
	CORSOrigins     []string        // Allowed origins for CORS
	TrustProxy      bool            // Trust X-Real-IP/X-Forwarded-For (behind reverse proxy)
	RateLimitPerMin int             // Requests per minute per IP (0 = default 60)
	MaxUploadBytes  int64           // Upload size cap (0 = default 32 MiB)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates an API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Chain == nil {
		return nil, errors.New("answer chain is required")
	}
	if cfg.Ingestor == nil {
		return nil, errors.New("ingestor is required")
	}
	if cfg.Catalog == nil {
		return nil, errors.New("document catalog is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 32 << 20
	}

	ah := &askHandler{chain: cfg.Chain, logger: logger}
	dh := &documentHandler{
		ingestor:  cfg.Ingestor,
		docs:      cfg.Catalog,
		maxUpload: maxUpload,
		logger:    logger,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/ask", ah.ask)
	mux.HandleFunc("GET /api/v1/sessions/{id}/history", ah.history)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", ah.clearSession)

	mux.HandleFunc("POST /api/v1/documents/upload", dh.upload)
	mux.HandleFunc("POST /api/v1/documents/url", dh.ingestURL)
	mux.HandleFunc("GET /api/v1/documents", dh.list)
	mux.HandleFunc("GET /api/v1/documents/{id}", dh.get)
	mux.HandleFunc("DELETE /api/v1/documents/{id}", dh.remove)

	perMin := cfg.RateLimitPerMin
	if perMin <= 0 {
		perMin = 60
	}
	rl := newRateLimiter(float64(perMin)/60, perMin)

	// Middleware stack, outermost first:
	//   Recovery -> Logging -> CORS -> RateLimit -> Routes
	// CORS sits before RateLimit so preflight OPTIONS gets proper headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = recoveryMiddleware(logger)(handler)

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w)
		handler.ServeHTTP(w, r)
	})

	// Health probes bypass the middleware stack so rate limiting never
	// starves a load balancer.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health(logger))
	topMux.Handle("GET /ready", readiness(cfg.Pool, logger))
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
