package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prudhvinik1/deltasync/internal/middleware"
	"github.com/rs/cors"
)

type RouterConfig struct {
	SyncHandler    *SyncHandler
	Verifier       *middleware.TokenVerifier
	Metrics        http.Handler
	AllowedOrigins []string
}

func NewRouter(cfg RouterConfig) http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	if cfg.Metrics != nil {
		router.Handle("/metrics", cfg.Metrics)
	}

	router.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(cfg.Verifier))
		r.Post("/sync/{entityType}", cfg.SyncHandler.Sync)
		r.Get("/changes/{entityType}", cfg.SyncHandler.Changes)
	})

	return router
}
