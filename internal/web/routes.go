package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/faceauth/internal/web/handlers"
	"github.com/kozaktomas/faceauth/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	// Create handlers
	usersHandler := handlers.NewUsersHandler(s.service)
	authenticateHandler := handlers.NewAuthenticateHandler(s.service)
	statsHandler := handlers.NewStatsHandler(s.service)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Read-only routes
		r.Get("/stats", statsHandler.Get)
		r.Get("/users", usersHandler.List)
		r.Get("/users/{id}", usersHandler.Get)

		// Everything that mutates the store, exposes descriptors or identifies faces requires a token
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireToken(s.config.JWTSecret))

			r.Get("/users/{id}/export", usersHandler.Export)
			r.Post("/users/import", usersHandler.Import)
			r.Post("/users/{id}/samples", usersHandler.AddSample)
			r.Delete("/users/{id}", usersHandler.Remove)

			r.Post("/authenticate", authenticateHandler.Authenticate)
			r.Post("/search", authenticateHandler.Search)

			r.Post("/maintenance/optimize", statsHandler.Optimize)
		})
	})
}
