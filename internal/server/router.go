package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/silkworks-ai/docrag/internal/api/handlers"
	"github.com/silkworks-ai/docrag/internal/api/middleware"
)

type RouterConfig struct {
	RetrieveHandler *handlers.RetrieveHandler
	AllowedOrigins  []string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", cfg.RetrieveHandler.Health)
	r.Post("/retrieve", cfg.RetrieveHandler.Retrieve)
	r.Post("/retrieve-for-context", cfg.RetrieveHandler.RetrieveForContext)

	return r
}
