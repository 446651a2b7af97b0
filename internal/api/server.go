// Package api serves the binder over REST and pushes ledger changes to
// rendering clients over a WebSocket.
package api

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ramonehamilton/swu-binder/internal/api/handlers"
	"github.com/ramonehamilton/swu-binder/internal/api/websocket"
	"github.com/ramonehamilton/swu-binder/internal/metrics"
	"github.com/ramonehamilton/swu-binder/internal/session"
)

// Server represents the REST API server.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	cfg        Config

	// WebSocket hub for ledger and catalog events.
	wsHub *websocket.Hub

	sess    *session.Session
	deps    Deps
	running bool
}

// Config holds configuration for the API server.
type Config struct {
	Port           int
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// DefaultConfig returns the default API server configuration.
func DefaultConfig() Config {
	return Config{
		Port:           8787,
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		RequestTimeout: 60 * time.Second,
	}
}

// Deps are the optional services behind history, backup and metrics endpoints.
// A Collector is created when Metrics is nil.
type Deps struct {
	History   handlers.HistoryStore
	Backups   handlers.Backups
	BackupLog handlers.BackupLog
	Metrics   *metrics.Collector
}

// NewServer creates a server over sess. Its WebSocket observer and metrics
// collector are registered with the session's dispatcher.
func NewServer(cfg Config, sess *session.Session, deps Deps) *Server {
	def := DefaultConfig()
	if cfg.Port == 0 {
		cfg.Port = def.Port
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = def.AllowedOrigins
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewCollector()
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		wsHub:  websocket.NewHub(cfg.AllowedOrigins...),
		sess:   sess,
		deps:   deps,
	}
	if sess.Dispatcher != nil {
		sess.Dispatcher.Register(websocket.NewObserver(s.wsHub))
		sess.Dispatcher.Register(deps.Metrics)
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

// jsonContentTypeMiddleware enforces application/json on requests with bodies.
func jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if (r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch) && r.ContentLength != 0 {
			contentType := r.Header.Get("Content-Type")
			if contentType != "application/json" && !strings.HasPrefix(contentType, "application/json;") {
				http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Handler returns the root handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured port and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", s.cfg.Port, err)
	}

	go s.wsHub.Run()

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.running = true

	go func() {
		log.Printf("[API] Server listening on %s", ln.Addr())
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("[API] Server error: %v", err)
		}
	}()
	return nil
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.wsHub.Stop()
	if !s.running {
		return nil
	}
	log.Println("[API] Shutting down server...")
	return s.httpServer.Shutdown(ctx)
}

// Port returns the port the server is configured to listen on.
func (s *Server) Port() int {
	return s.cfg.Port
}

// Metrics returns the server's collector.
func (s *Server) Metrics() *metrics.Collector {
	return s.deps.Metrics
}

// WebSocketHub returns the hub that pushes events to clients.
func (s *Server) WebSocketHub() *websocket.Hub {
	return s.wsHub
}
