package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"submissionportal/internal/middleware"
	"submissionportal/pkg/logging"
)

type RouterConfig struct {
	Logger         *logging.Logger
	Auth           func(http.Handler) http.Handler
	RequestTimeout time.Duration
	Accounts       *AccountHandler
	Uploads        *UploadHandler
	Health         http.Handler
}

func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger))
	r.Use(middleware.NewRecoverMiddleware())
	r.Use(middleware.NewTimeoutMiddleware(cfg.RequestTimeout))

	r.NotFound(NotFound)
	r.MethodNotAllowed(MethodNotAllowed)

	if cfg.Health != nil {
		r.Method(http.MethodGet, "/health", cfg.Health)
	}

	r.Route("/api", func(r chi.Router) {
		cfg.Accounts.RegisterRoutes(r, cfg.Auth)
		cfg.Uploads.RegisterRoutes(r, cfg.Auth)
	})
	return r
}
