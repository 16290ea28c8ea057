package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterConfig struct {
	WebDir   string
	AllowAll bool
}

// Router wires every endpoint. Chat and deploy requests can run long, so the
// request timeout only covers the remaining routes.
func (h *Handler) Router(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
		corsOpts.AllowCredentials = false
	}
	r.Use(cors.Handler(corsOpts))
	h.upgrader = newUpgrader(corsOpts.AllowedOrigins)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/conversations/{id}/messages", h.HandleMessage)
		r.Post("/conversations/{id}/deploy", h.Deploy)
		r.Post("/fileshare", h.Share)
		r.Get("/ui/ws", h.StreamEvents)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			r.Get("/conversations", h.GetConversations)
			r.Post("/conversations", h.CreateConversation)
			r.Put("/conversations/{id}", h.UpdateConversation)
			r.Delete("/conversations/{id}", h.DeleteConversation)
			r.Get("/conversations/{id}/messages", h.GetMessages)
			r.Get("/conversations/{id}/view", h.GetView)

			r.Get("/deployments", h.GetDeployments)

			r.Post("/domain/validate", h.ValidateDomain)
			r.Post("/domain/link", h.LinkDomain)

			r.Get("/ui/state", h.GetState)
			r.Post("/ui/toggle/{panel}", h.TogglePanel)
		})
	})

	if cfg.WebDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(cfg.WebDir)))
	}

	return r
}
