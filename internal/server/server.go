// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer — it connects handlers, middleware, and routes.
// Think of it as the control centre that decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// WHY SEPARATE FROM main.go?
// Keeping server setup in its own package makes it:
// - Testable (tests drive Handler() with httptest, no network needed)
// - Reusable (multiple entry points could use the same server config)
// - Clean (main.go stays minimal — just "build the dependencies and start")
//
// DEPENDENCY INJECTION FLOW:
// main.go creates:
//
//	config.Config                → passed to Server
//	repository.Store (database)  → passed to Server, closed by main
//	*slog.Logger                 → passed to everything
//
// This is the "composition root" pattern: all dependencies are wired in one
// place (main + setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/base-backend/internal/apperror"
	"github.com/sakif/base-backend/internal/config"
	"github.com/sakif/base-backend/internal/handler"
	"github.com/sakif/base-backend/internal/middleware"
	"github.com/sakif/base-backend/internal/repository"
	"github.com/sakif/base-backend/internal/requestid"
)

// corsAllowedHeaders are the request headers a browser may send cross-origin.
var corsAllowedHeaders = []string{
	"Accept",
	"Accept-Encoding",
	"Authorization",
	"Content-Type",
	"DNT",
	"Origin",
	"User-Agent",
	"X-CSRFToken",
	"X-Requested-With",
	requestid.Header,
}

// probePaths are served over plain HTTP even when SSL redirect is on.
var probePaths = []string{"/health/", "/health", "/readiness/", "/readiness"}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The store is owned by the caller (main), which closes it after Start
// returns. The server only borrows it for readiness pings.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	store  repository.Pinger
}

// New creates a new Server with the given config.
//
// Returns an apperror.ErrConfiguration error when a CSRF trusted origin is
// not of the form scheme://host[:port].
func New(cfg config.Config, store repository.Pinger, logger *slog.Logger) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}

	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the fully wired router (middleware included).
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /health/        → liveness probe (JSON, never cached)
// GET    /readiness/     → readiness probe: pings the database (JSON, never cached)
// GET    /api/v1/        → API root: name, version, endpoint list
// GET    /static/*       → collected static files, when STATIC_ROOT exists
// *      anything else   → JSON 404 / 405
//
// MIDDLEWARE ORDER MATTERS:
// Middleware executes in the order it's added. Our order:
//  1. requestid  — binds X-Request-ID first, so every later log line and every
//     response (even a 400 for a bad Host or a recovered panic) carries it
//  2. RealIP     — extracts real client IP from proxy headers
//  3. Logger     — logs each request with timing info
//  4. Recover    — catches panics and returns a JSON 500 instead of crashing
//  5. AllowedHosts — rejects unknown Host headers with 400
//  6. Security   — hardening headers, HTTPS redirect, HSTS
//  7. CORS       — answers preflights for CORS_ALLOWED_ORIGINS
//  8. CrossOriginProtection — rejects cross-origin writes not in CSRF_TRUSTED_ORIGINS
func (s *Server) setupRoutes() error {
	csrf, err := s.crossOriginProtection()
	if err != nil {
		return err
	}

	// === Global Middleware ===
	s.router.Use(requestid.Middleware)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Recover(s.logger))
	s.router.Use(middleware.AllowedHosts(s.config.AllowedHosts, s.logger))
	s.router.Use(middleware.Security(s.securityOptions()))
	s.router.Use(cors.Handler(s.corsOptions()))
	s.router.Use(csrf.Handler)

	s.router.NotFound(handler.NotFound)
	s.router.MethodNotAllowed(handler.MethodNotAllowed)

	// === Probes ===
	// Registered with and without the trailing slash: probe configs are
	// written by hand and both spellings show up.
	health := handler.NewHealthHandler(s.store, s.logger)
	s.router.Get("/health/", health.HandleLiveness)
	s.router.Get("/health", health.HandleLiveness)
	s.router.Get("/readiness/", health.HandleReadiness)
	s.router.Get("/readiness", health.HandleReadiness)

	// === API Routes ===
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/", handler.HandleAPIRoot)
	})

	// === Static Files ===
	// http.StripPrefix removes "/static/" before looking up the file, so
	// GET /static/css/site.css → serves {STATIC_ROOT}/css/site.css
	if info, err := os.Stat(s.config.StaticRoot); err == nil && info.IsDir() {
		fileServer := http.FileServer(http.Dir(s.config.StaticRoot))
		s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))
	}

	return nil
}

func (s *Server) securityOptions() middleware.SecurityOptions {
	opts := middleware.SecurityOptions{
		SSLRedirect:    s.config.SecureSSLRedirect,
		RedirectExempt: probePaths,
	}
	if s.config.Profile == config.Production {
		opts.HSTSSeconds = s.config.SecureHSTSSeconds
	}
	return opts
}

func (s *Server) corsOptions() cors.Options {
	opts := cors.Options{
		AllowedOrigins:   s.config.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   corsAllowedHeaders,
		ExposedHeaders:   []string{requestid.Header},
		AllowCredentials: true,
		MaxAge:           86400,
	}
	if len(opts.AllowedOrigins) == 0 {
		// go-chi/cors treats an empty list as "allow all"; we mean "allow none".
		opts.AllowOriginFunc = func(*http.Request, string) bool { return false }
	}
	return opts
}

// crossOriginProtection rejects cross-origin state-changing requests
// (POST, PUT, PATCH, DELETE) unless their Origin is trusted.
func (s *Server) crossOriginProtection() (*http.CrossOriginProtection, error) {
	p := http.NewCrossOriginProtection()
	for _, origin := range s.config.CSRFTrustedOrigins {
		if err := p.AddTrustedOrigin(origin); err != nil {
			return nil, apperror.Configuration("CSRF_TRUSTED_ORIGINS", err.Error())
		}
	}
	p.SetDenyHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.WriteErrorStatus(w, http.StatusForbidden, "csrf_failed", "cross-origin request rejected")
	}))
	return p, nil
}

// Start runs the server until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.config.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (SHUTDOWN_TIMEOUT, 30s by default)
//  3. Return; the caller closes the database afterwards
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("addr", ln.Addr().String()),
			slog.String("profile", string(s.config.Profile)),
			slog.Bool("debug", s.config.Debug),
		)
		serverErrors <- srv.Serve(ln)
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
		return nil
	}
}
