package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tobyward/sitegen/internal/generate"
	"github.com/tobyward/sitegen/internal/sandbox"
	"github.com/tobyward/sitegen/internal/store"
)

// Generator runs one generation request against a response sink.
type Generator interface {
	Run(ctx context.Context, req generate.Request, sink generate.Sink) error
}

// SandboxManager exposes the registry operations the API serves.
type SandboxManager interface {
	Delete(ctx context.Context, id string) error
	List() []sandbox.Info
	Count() int
}

// GenerationReader reads persisted generation records.
type GenerationReader interface {
	GetByID(ctx context.Context, id string) (*store.Generation, error)
	ListRecent(ctx context.Context, limit int) ([]*store.Generation, error)
}

// Config holds API server configuration.
type Config struct {
	Listen string
}

// Server represents the HTTP API server.
type Server struct {
	config    Config
	generator Generator
	sandboxes SandboxManager
	gens      GenerationReader
	ws        http.Handler
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
}

// New creates a new API server instance. ws serves the websocket
// progress endpoint.
func New(config Config, generator Generator, sandboxes SandboxManager, gens GenerationReader, ws http.Handler, logger *slog.Logger) *Server {
	return &Server{
		config:    config,
		generator: generator,
		sandboxes: sandboxes,
		gens:      gens,
		ws:        ws,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Start starts the HTTP server (blocking).
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:        s.config.Listen,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		// Generation responses and websockets are long-lived streams.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("API server starting", "listen", s.config.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("API server shutting down")
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

// setupRoutes configures the HTTP router.
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/prompt", s.handlePrompt)
	r.Delete("/sandbox/{sandbox_id}", s.handleDeleteSandbox)
	r.Get("/sandboxes", s.handleListSandboxes)
	r.Get("/generations", s.handleListGenerations)
	r.Get("/generations/{generation_id}", s.handleGetGeneration)
	r.Get("/ws", s.ws.ServeHTTP)

	return r
}

// loggingMiddleware logs HTTP requests.
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
