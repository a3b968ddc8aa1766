package server

import (
	"net/http"

	"github.com/cloo-solutions/campusguide/internal/api"
	"github.com/cloo-solutions/campusguide/internal/api/handlers"
	"github.com/cloo-solutions/campusguide/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// DefaultMaxBodyBytes bounds request bodies when RouterConfig leaves it unset.
const DefaultMaxBodyBytes int64 = 1 << 20

type RouterConfig struct {
	// APIKeys guard the retrieval and knowledge routes. Empty disables auth.
	APIKeys          []string
	MaxBodyBytes     int64
	Logger           *zap.Logger
	Gatherer         prometheus.Gatherer
	KnowledgeHandler *handlers.KnowledgeHandler
	RetrievalHandler *handlers.RetrievalHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog(cfg.Logger))
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.APIKeys...))

		if cfg.RetrievalHandler != nil {
			r.Post("/retrieve", cfg.RetrievalHandler.Retrieve)
			r.Post("/answer", cfg.RetrievalHandler.Answer)
		}

		if cfg.KnowledgeHandler != nil {
			r.Route("/knowledge", func(r chi.Router) {
				r.Get("/", cfg.KnowledgeHandler.List)
				r.Get("/{id}", cfg.KnowledgeHandler.Get)
			})
		}
	})

	return r
}
