package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"ocrcache/internal/config"
	"ocrcache/internal/jobs"
	"ocrcache/internal/logging"
	"ocrcache/internal/recognition"
	"ocrcache/internal/resultcache"
)

// Dependencies are the services a Server exposes. Jobs may be nil when job
// history is disabled.
type Dependencies struct {
	Cache   *resultcache.Cache
	Runner  *recognition.Runner
	Jobs    *jobs.Store
	Version string
}

// Server is the daemon's HTTP front end.
type Server struct {
	bind      string
	token     string
	defaults  recognition.Settings
	maxUpload int64
	deps      Dependencies
	limiter   *rate.Limiter
	logger    *slog.Logger
	now       func() time.Time

	handler  http.Handler
	listener net.Listener
	server   *http.Server
}

// NewServer wires routes for cfg. The listener is opened by Start.
func NewServer(cfg *config.Config, deps Dependencies, logger *slog.Logger) *Server {
	if cfg == nil {
		defaults := config.Default()
		cfg = &defaults
	}
	s := &Server{
		bind:      strings.TrimSpace(cfg.API.Bind),
		token:     cfg.API.Token,
		defaults:  recognition.SettingsFromConfig(cfg),
		maxUpload: cfg.MaxFileSizeBytes(),
		deps:      deps,
		logger:    logging.NewComponentLogger(logger, "api-server"),
		now:       time.Now,
	}
	if cfg.API.RateLimitPerSecond > 0 {
		burst := cfg.API.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.API.RateLimitPerSecond), burst)
	}

	auth := func(h http.HandlerFunc) http.HandlerFunc { return authMiddleware(s.token, h) }

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /ocr/process", auth(rateLimitMiddleware(s.limiter, s.handleProcess)))
	mux.HandleFunc("GET /cache/stats", auth(s.handleCacheStats))
	mux.HandleFunc("POST /cache/clear", auth(s.handleCacheClear))
	mux.HandleFunc("GET /cache/entries", auth(s.handleCacheEntries))
	mux.HandleFunc("DELETE /cache/entries/{key}", auth(s.handleCacheDelete))
	mux.HandleFunc("GET /jobs", auth(s.handleJobs))
	mux.HandleFunc("GET /jobs/stats", auth(s.handleJobStats))
	mux.HandleFunc("GET /jobs/{id}", auth(s.handleJob))
	s.handler = requestMiddleware(s.logger, mux)

	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and serves until ctx ends.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr reports the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	if s == nil || s.server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Default().Debug("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	id, _ := logging.RequestIDFromContext(r.Context())
	writeJSON(w, status, ErrorResponse{Error: message, RequestID: id})
}
