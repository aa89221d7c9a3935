package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/TrollHead15/AstroLiana/internal/http/middleware"
	"github.com/TrollHead15/AstroLiana/internal/leads"
	"github.com/TrollHead15/AstroLiana/internal/pipeline"
	"github.com/TrollHead15/AstroLiana/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Pipeline           *pipeline.Pipeline
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// One route per lead magnet, all served by the same pipeline.
	r.Route("/api/lead-magnets", func(api chi.Router) {
		for _, kind := range leads.Kinds() {
			api.Post("/"+kind.Slug(), cfg.Pipeline.Handler(kind))
		}
	})

	return r
}

// healthCheck returns a simple liveness response.
func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
