// Package httpapi exposes the synthesis service over HTTP: single and batch
// inference, preset and model listings, and a minimal embedded test page.
package httpapi

import (
	"context"
	"embed"
	"net/http"
	"time"

	"github.com/book-expert/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/book-expert/tts-gateway/internal/catalog"
	"github.com/book-expert/tts-gateway/internal/synth"
)

//go:embed web/index.html
var webFS embed.FS

// Server timeouts.
const (
	readHeaderTimeout = 10 * time.Second
	// Synthesis requests can legitimately run for minutes.
	writeTimeout = 10 * time.Minute
	idleTimeout  = 2 * time.Minute
)

// HealthChecker reports whether the inference engine is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server wires the synthesis service and catalogs into an HTTP API.
type Server struct {
	service       *synth.Service
	gptCatalog    *catalog.Catalog
	sovitsCatalog *catalog.Catalog
	health        HealthChecker
	log           *logger.Logger
}

// NewServer creates the HTTP surface over the given collaborators.
func NewServer(
	service *synth.Service,
	gptCatalog *catalog.Catalog,
	sovitsCatalog *catalog.Catalog,
	health HealthChecker,
	log *logger.Logger,
) *Server {
	return &Server{
		service:       service,
		gptCatalog:    gptCatalog,
		sovitsCatalog: sovitsCatalog,
		health:        health,
		log:           log,
	}
}

// Router builds the chi router serving the public API.
func (s *Server) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	router.Get("/", s.handleIndex)
	router.Get("/health", s.handleHealth)

	router.Route("/api/tts", func(api chi.Router) {
		api.Post("/inference", s.handleInference)
		api.Post("/batch_inference", s.handleBatchInference)
		api.Get("/characters", s.handleCharacters)
		api.Get("/models", s.handleModels)
		api.Post("/models/refresh", s.handleModelsRefresh)
	})

	return router
}

// NewHTTPServer wraps the router in an http.Server bound to addr.
func (s *Server) NewHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
}
