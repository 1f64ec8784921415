package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"

	"github.com/taskgrid/engine/internal/api/handlers"
	mw "github.com/taskgrid/engine/internal/api/middleware"
)

type Dependencies struct {
	HMACSecret     []byte
	AuthHandler    *handlers.AuthHandler
	TasksHandler   *handlers.TasksHandler
	ProfileHandler *handlers.ProfileHandler
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	// Built-in middleware
	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging)
	r.Use(mw.CORS)
	r.Use(chimid.Compress(5))

	// Health endpoints
	hh := handlers.NewHealthHandler()
	r.Get("/healthz", hh.Liveness)
	r.Get("/readyz", hh.Readiness)

	r.Route("/api/v1", func(api chi.Router) {
		// Auth routes (public)
		api.Route("/auth", func(ar chi.Router) {
			ar.Post("/register", dep.AuthHandler.Register)
			ar.Post("/login", dep.AuthHandler.Login)
			ar.Post("/logout", dep.AuthHandler.Logout)
		})

		// Protected routes
		api.Group(func(protected chi.Router) {
			protected.Use(mw.Auth(dep.HMACSecret))

			protected.Get("/me", dep.ProfileHandler.Me)
			protected.Get("/me/permissions", dep.ProfileHandler.Permissions)

			protected.Route("/tasks", func(tr chi.Router) {
				tr.Get("/", dep.TasksHandler.List)
				tr.Post("/", dep.TasksHandler.Create)
				tr.Get("/{id}", dep.TasksHandler.Get)
				tr.Put("/{id}", dep.TasksHandler.Update)
				tr.Delete("/{id}", dep.TasksHandler.Delete)
				tr.Get("/{id}/dependencies", dep.TasksHandler.Dependencies)
				tr.Post("/{id}/assign", dep.TasksHandler.Assign)
				tr.Patch("/{id}/status", dep.TasksHandler.UpdateStatus)
			})
		})
	})

	return r
}
