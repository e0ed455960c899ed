package server

import (
	"net/http"

	"github.com/brainnote/paperbase/internal/api"
	"github.com/brainnote/paperbase/internal/api/handlers"
	"github.com/brainnote/paperbase/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	APIKey          string
	DocumentHandler *handlers.DocumentHandler
	AskHandler      *handlers.AskHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		// Auth is optional: with no configured key the API runs open,
		// which suits local single-user setups.
		if cfg.APIKey != "" {
			r.Use(middleware.APIKeyAuth(cfg.APIKey))
		}

		r.Route("/documents", func(r chi.Router) {
			r.Post("/ingest", cfg.DocumentHandler.Ingest)
			r.Post("/upload/init", cfg.DocumentHandler.InitUpload)
			r.Post("/upload/complete", cfg.DocumentHandler.CompleteUpload)
			r.Get("/", cfg.DocumentHandler.List)
			r.Get("/{id}", cfg.DocumentHandler.Get)
			r.Get("/{id}/download", cfg.DocumentHandler.Download)
		})

		r.Post("/ask", cfg.AskHandler.Ask)
	})

	return r
}
