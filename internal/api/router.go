package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ramonehamilton/swu-binder/internal/api/handlers"
	"github.com/ramonehamilton/swu-binder/internal/api/response"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.healthCheck)

	// WebSocket endpoint sits outside the request timeout.
	s.router.Get("/ws", s.wsHub.ServeWs)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.deps.Metrics.Middleware)
		r.Use(middleware.Timeout(s.cfg.RequestTimeout))

		setHandler := handlers.NewSetHandler(s.sess)
		ledgerHandler := handlers.NewLedgerHandler(s.sess, s.deps.History)
		searchHandler := handlers.NewSearchHandler(s.sess)
		transferHandler := handlers.NewTransferHandler(s.sess)
		systemHandler := handlers.NewSystemHandler(s.sess, handlers.SystemDeps{
			Backups:   s.deps.Backups,
			BackupLog: s.deps.BackupLog,
			Metrics:   s.deps.Metrics,
			Clients:   s.wsHub.ClientCount,
		})

		r.Get("/search", searchHandler.Search)
		r.Get("/chart", setHandler.CompletionChart)

		r.Route("/sets", func(r chi.Router) {
			r.Get("/", setHandler.ListSets)
			r.Route("/{set}", func(r chi.Router) {
				r.Get("/", setHandler.GetSet)
				r.Get("/cards", setHandler.ListCards)
				r.Get("/cards/{number}", setHandler.GetCard)
				r.Get("/spreads/{spread}", setHandler.GetSpread)
			})
		})

		r.Route("/ledger", func(r chi.Router) {
			r.Route("/{set}", func(r chi.Router) {
				r.Get("/", ledgerHandler.GetCounts)
				r.Delete("/", ledgerHandler.Reset)
				r.Post("/cards/{number}/increment", ledgerHandler.Increment)
				r.Post("/cards/{number}/decrement", ledgerHandler.Decrement)
				r.With(jsonContentTypeMiddleware).Post("/bulk", ledgerHandler.Bulk)
				r.Get("/stats", ledgerHandler.Stats)
				r.Get("/missing", ledgerHandler.Missing)
				r.Get("/history", ledgerHandler.History)
			})
		})

		// Import bodies are raw CSV or snapshot JSON files.
		r.Get("/export", transferHandler.Export)
		r.Post("/import", transferHandler.Import)

		r.Route("/system", func(r chi.Router) {
			r.Get("/status", systemHandler.GetStatus)
			r.Get("/metrics", systemHandler.GetMetrics)
			r.Get("/backups", systemHandler.ListBackups)
			r.Post("/backups", systemHandler.TriggerBackup)
		})
	})
}

// healthCheck returns server health status.
func (s *Server) healthCheck(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "swu-binder-api",
	})
}
