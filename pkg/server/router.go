package server

import (
	"fmt"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	httpSwagger "github.com/swaggo/http-swagger"

	rlmiddleware "github.com/lintang-b-s/roadmatch/pkg/server/middleware"
)

// RouterConfig controls optional middleware, mirroring cmd/mapmatch/main.go's
// -ratelimit flag and cmd/engine/main.go's metrics/profiler wiring.
type RouterConfig struct {
	UseRateLimit bool
	Metrics      *prometheus.Registry

	// ExternalURL is the address clients reach this server at (e.g.
	// http://localhost:5050), used to build the /swagger/doc.json URL the
	// swagger-ui page fetches. Defaults to http://localhost:5050 if empty.
	ExternalURL string
}

// NewRouter builds the chi router serving svc, with the same
// Logger/CORS/profiler middleware stack cmd/mapmatch/main.go and
// cmd/engine/main.go assemble ahead of mounting their route groups.
func NewRouter(svc *MatchService, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)

	if cfg.Metrics != nil {
		m := NewMetrics(cfg.Metrics)
		r.Use(m.Middleware)
		r.Handle("/metrics", m.Handler(cfg.Metrics))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if cfg.UseRateLimit {
		r.Use(rlmiddleware.Limit)
	}

	r.Mount("/debug", middleware.Profiler())

	externalURL := cfg.ExternalURL
	if externalURL == "" {
		externalURL = "http://localhost:5050"
	}
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("%s/swagger/doc.json", externalURL)),
	))

	Mount(r, svc)

	return r
}
