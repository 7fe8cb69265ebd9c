// Package api serves the local HTTP control surface: engine status, attempt
// history, progress messages, and a manual sync trigger. It binds to
// loopback by default and is optional.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lza6/VPN-to-GitHub/internal/progress"
	"github.com/lza6/VPN-to-GitHub/internal/service"
	"github.com/lza6/VPN-to-GitHub/internal/state"
	"github.com/lza6/VPN-to-GitHub/internal/syncer"
)

// Engine is the slice of the service the API needs.
type Engine interface {
	TriggerSync(ctx context.Context, reason string) (syncer.Result, error)
	Status(ctx context.Context) (service.Status, error)
	History(ctx context.Context, limit int) ([]state.Attempt, error)
	Progress() []progress.Entry
	UpdateInterval(interval time.Duration)
}

// Config holds API server configuration.
type Config struct {
	Listen string
	// APIKey is the bearer token required on /api/v1 routes. When empty,
	// routes are open; the default loopback listen makes that acceptable.
	APIKey string
}

// Server is the HTTP API server.
type Server struct {
	config    Config
	engine    Engine
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
}

// New creates an API server around the engine.
func New(config Config, engine Engine, logger *slog.Logger) *Server {
	return &Server{
		config:    config,
		engine:    engine,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      s.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Minute, // manual sync runs inline and may hit the network
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("api server starting", "listen", s.config.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("api server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// Routes builds the router. Exposed for handler tests.
func (s *Server) Routes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)

	r.Route("/api/v1", func(r chi.Router) {
		if s.config.APIKey != "" {
			r.Use(s.authMiddleware)
		}
		r.Get("/status", s.handleStatus)
		r.Get("/history", s.handleHistory)
		r.Get("/progress", s.handleProgress)
		r.Post("/sync", s.handleSync)
		r.Put("/interval", s.handleInterval)
	})

	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthzResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.engine.Status(r.Context())
	if err != nil {
		s.logger.Error("status read failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read status")
		return
	}
	respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	attempts, err := s.engine.History(r.Context(), limit)
	if err != nil {
		s.logger.Error("history read failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	if attempts == nil {
		attempts = []state.Attempt{}
	}
	respondJSON(w, http.StatusOK, HistoryResponse{Attempts: attempts})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	entries := s.engine.Progress()
	if entries == nil {
		entries = []progress.Entry{}
	}
	respondJSON(w, http.StatusOK, ProgressResponse{Entries: entries})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.TriggerSync(r.Context(), "api request")
	if errors.Is(err, service.ErrSyncInFlight) {
		s.writeError(w, http.StatusConflict, "upload already in progress")
		return
	}
	if err != nil {
		s.logger.Error("manual sync failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "sync failed")
		return
	}

	respondJSON(w, http.StatusOK, SyncResponse{
		AttemptID:    result.AttemptID,
		OK:           result.OK,
		Message:      result.Message,
		ChangedFiles: result.Changed,
	})
}

func (s *Server) handleInterval(w http.ResponseWriter, r *http.Request) {
	var req IntervalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	interval, err := time.ParseDuration(req.Interval)
	if err != nil || interval <= 0 {
		s.writeError(w, http.StatusBadRequest, "interval must be a positive duration like 6h")
		return
	}

	s.engine.UpdateInterval(interval)
	respondJSON(w, http.StatusOK, IntervalResponse{Interval: interval.String()})
}

func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}
