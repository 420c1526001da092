// Package web provides the HTTP server and JSON API for the import service.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/bandvault/bandvault/internal/imports"
	"github.com/bandvault/bandvault/internal/web/middleware"
)

// ImportService is the slice of the import service the handlers use.
// Implemented by *imports.Service; tests substitute a fake.
type ImportService interface {
	StartImport(ctx context.Context, data []byte, filename, contentType, owner string) (*imports.Operation, error)
	GetOperation(ctx context.Context, id uuid.UUID) (*imports.Operation, error)
	ListOperations(ctx context.Context, f imports.Filter, p imports.Page) (*imports.OperationPage, error)
	DownloadFile(ctx context.Context, id uuid.UUID) (*imports.FileDownload, error)
	SupportedFormats() []string
}

// Server is the HTTP server for the import API.
type Server struct {
	service     ImportService
	maxFileSize int64
	router      *chi.Mux
	server      *http.Server
	opts        Options
}

// Options configures a Server.
type Options struct {
	Addr        string
	MaxFileSize int64

	// Zero timeouts fall back to 30s/60s/60s.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// NewServer creates a Server with routes and middleware configured.
func NewServer(service ImportService, opts Options) *Server {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 60 * time.Second
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 60 * time.Second
	}
	s := &Server{
		service:     service,
		maxFileSize: opts.MaxFileSize,
		router:      chi.NewRouter(),
		opts:        opts,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	s.router.Use(chimw.Timeout(60 * time.Second))
	s.router.Use(middleware.Owner)
	s.router.Use(securityHeaders)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api/import", func(r chi.Router) {
		r.Post("/", s.handleStartImport)
		r.Get("/supported-formats", s.handleSupportedFormats)
		r.Get("/operations", s.handleListOperations)
		r.Get("/operations/{operationID}", s.handleGetOperation)
		r.Get("/operations/{operationID}/file", s.handleDownloadFile)
	})
}

// Start begins listening for HTTP requests. Blocks until the server stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.router,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  s.opts.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds hardening headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
