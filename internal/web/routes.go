package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/pose-check/internal/store"
	"github.com/kozaktomas/pose-check/internal/vector"
	"github.com/kozaktomas/pose-check/internal/web/handlers"
	"github.com/kozaktomas/pose-check/internal/web/middleware"
)

func (s *Server) setupRoutes(sessionManager *middleware.SessionManager, checker handlers.Evaluator, st store.Store, ix vector.Index) {
	authHandler := handlers.NewAuthHandler(s.config, sessionManager)
	checkHandler := handlers.NewCheckHandler(checker)
	statsHandler := handlers.NewStatsHandler(st, ix)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/status", authHandler.Status)

		// Everything else needs a session; the session's account becomes
		// the submitter recorded with each scan.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(sessionManager))

			r.Post("/check", checkHandler.Check)
			r.Get("/stats", statsHandler.Get)
		})
	})
}
