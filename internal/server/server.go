// Package server exposes ingestion, selection and the category catalog over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"storydesk/internal/config"
	"storydesk/internal/core"
	"storydesk/internal/logger"
	"storydesk/internal/vectorstore"
)

// Ingestor runs articles through the ingestion pipeline
type Ingestor interface {
	Process(ctx context.Context, article core.IncomingArticle) core.IngestResult
	ProcessBatch(ctx context.Context, articles []core.IncomingArticle) core.BatchSummary
}

// Selector picks representative articles for content generation
type Selector interface {
	SelectBySubcategories(ctx context.Context, subcategories []string, target, minImportance int) ([]core.SelectedArticle, error)
	SelectByCategories(ctx context.Context, categories, subcategories []string, target, minImportance int) ([]core.SelectedArticle, error)
	TopStories(ctx context.Context, limit, minImportance int, window time.Duration) ([]core.SelectedArticle, error)
}

// Catalog reports what the store holds
type Catalog interface {
	Categories(ctx context.Context, window time.Duration) ([]core.CategoryStats, error)
	Stats(ctx context.Context) (*core.ArticleStats, error)
}

// Pinger checks the database connection
type Pinger interface {
	Ping(ctx context.Context) error
}

// VectorStats reports on stored embeddings
type VectorStats interface {
	GetStats(ctx context.Context) (*vectorstore.VectorStoreStats, error)
}

// Services are the components the HTTP handlers call into. Vectors is optional.
type Services struct {
	DB       Pinger
	Ingestor Ingestor
	Selector Selector
	Catalog  Catalog
	Vectors  VectorStats
}

// Server represents the HTTP server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	services   Services
	config     config.Server
	log        *slog.Logger
}

// New creates a new HTTP server instance
func New(services Services, cfg config.Server) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		services: services,
		config:   cfg,
		log:      logger.Get(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// setupMiddleware configures middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(securityHeaders)

	// Batches call the model once per article, so leave room for a full batch
	timeout := s.config.WriteTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	s.router.Use(middleware.Timeout(timeout))

	if s.config.CORS.Enabled {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"Link"},
			AllowCredentials: false,
			MaxAge:           300, // Maximum value not ignored by any major browsers
		}))
	}
}

// setupRoutes configures routes for the server
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAPIKey)
			r.Post("/articles", s.handleIngestArticle)
			r.Post("/articles/batch", s.handleIngestBatch)
		})

		r.Post("/selection", s.handleSelection)
		r.Get("/top-stories", s.handleTopStories)
		r.Get("/categories", s.handleCategories)
		r.Get("/stats", s.handleStats)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info("Starting HTTP server",
		"addr", s.httpServer.Addr,
		"read_timeout", s.config.ReadTimeout,
		"write_timeout", s.config.WriteTimeout,
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server gracefully...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info("HTTP server stopped")
	return nil
}

// Router returns the chi router instance (useful for testing)
func (s *Server) Router() *chi.Mux {
	return s.router
}
