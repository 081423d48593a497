package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mnperrone/tasks-api/internal/api"
	apiMiddleware "github.com/mnperrone/tasks-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	authHandler := api.NewAuthHandler(
		app.userStore,
		app.jwtService,
		app.passwordHasher,
		app.passwordVerifier,
	)
	taskHandler := api.NewTaskHandler(
		app.taskService,
		app.reconciler,
		app.userStore,
		app.logger,
	)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)
	apiKeyMiddleware := apiMiddleware.NewAPIKeyMiddleware(app.config.Sync.APIKey)

	r.Route("/api", func(r chi.Router) {
		// Authentication endpoints (public)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.RefreshToken)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Get("/auth/me", authHandler.Me)
			r.Post("/auth/logout", authHandler.Logout)

			r.Get("/tasks", taskHandler.Index)
			r.Get("/tasks/all", taskHandler.List)
			r.Post("/tasks", taskHandler.Store)
			r.Get("/tasks/{id}", taskHandler.Show)
			r.Put("/tasks/{id}", taskHandler.Update)
			r.Patch("/tasks/{id}", taskHandler.Update)
			r.Delete("/tasks/{id}", taskHandler.Destroy)
			r.Patch("/tasks/{id}/complete", taskHandler.Complete)
			r.Patch("/tasks/{id}/incomplete", taskHandler.Incomplete)

			// Sync endpoint, additionally gated by the shared API key
			r.With(apiKeyMiddleware.Require).Post("/tasks/populate", taskHandler.Populate)
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
