// Package api serves the enrichment core over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dzhechko/B2BSalesAI/internal/crm"
	"github.com/dzhechko/B2BSalesAI/internal/model"
	"github.com/dzhechko/B2BSalesAI/internal/service"
)

// Service is the caller layer behind the HTTP surface.
type Service interface {
	CollectData(ctx context.Context, userID, contactID int64) (*model.Contact, error)
	GenerateRecommendations(ctx context.Context, userID, contactID int64, modelID string) ([]model.Recommendation, error)
	Sync(ctx context.Context, userID int64, source crm.Source) ([]model.Contact, error)
	Contact(ctx context.Context, userID, contactID int64) (*model.Contact, error)
	Contacts(ctx context.Context, userID int64) ([]model.Contact, error)
	Settings(ctx context.Context, userID int64) (*model.UserSettings, error)
	SaveSettings(ctx context.Context, userID int64, in model.UserSettings) (*model.UserSettings, error)
	Keys(ctx context.Context, userID int64) (*service.KeyStatus, error)
	SaveKeys(ctx context.Context, userID int64, in model.Credentials) (*service.KeyStatus, error)
}

var _ Service = (*service.Service)(nil)

// Config tunes the router.
type Config struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	// RequestTimeout bounds every request. Collection runs are the slowest
	// and need several minutes.
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
}

type handler struct {
	svc Service
}

// NewRouter builds the HTTP handler.
func NewRouter(svc Service, cfg Config) http.Handler {
	h := &handler{svc: svc}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", userHeader},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(requireUser)
		r.Use(middleware.Timeout(timeout))

		r.Get("/contacts", h.listContacts)
		r.Post("/contacts/sync", h.syncContacts)
		r.Get("/contacts/{id}", h.getContact)
		r.Post("/contacts/{id}/collect-data", h.collectData)
		r.Post("/contacts/{id}/recommendations", h.generateRecommendations)

		r.Get("/settings", h.getSettings)
		r.Post("/settings", h.saveSettings)
		r.Get("/keys", h.getKeys)
		r.Post("/keys", h.saveKeys)
	})

	return r
}
