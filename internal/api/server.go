package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/scholarmatch/disambiguate/internal/author"
	"github.com/scholarmatch/disambiguate/internal/engine"
	"github.com/scholarmatch/disambiguate/internal/logging"
	"github.com/scholarmatch/disambiguate/pkg/config"
)

// Server is the optional REST shell over one *engine.Engine. It never
// talks to the repository directly outside of read-only lookups. Gin
// dispatches handlers concurrently, but a Decide call's retrieve-score-
// mutate sequence is not atomic on its own, so decideMu serializes every
// POST /v1/mentions call through the shared engine instance — the same
// single-writer discipline the CLI gets for free by only ever running one
// decide at a time.
type Server struct {
	router     *gin.Engine
	eng        *engine.Engine
	repo       author.Repository
	cfg        *config.Config
	httpServer *http.Server
	log        *logging.Logger
	counters   *decisionCounters
	decideMu   sync.Mutex
}

// NewServer builds a Gin-backed Server around an already-constructed
// engine and the repository it shares with that engine.
func NewServer(eng *engine.Engine, repo author.Repository, cfg *config.Config) *Server {
	log := logging.GetLogger("api")
	log.Info("initializing REST API server")

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLoggingMiddleware(log))

	if cfg.RestAPI.CORS {
		log.Debug("enabling CORS")
		corsConfig := cors.Config{
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-Key"},
			ExposeHeaders: []string{"Content-Length"},
			MaxAge:        12 * time.Hour,
		}
		if cfg.RestAPI.APIKey != "" {
			corsConfig.AllowOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}
			corsConfig.AllowWildcard = true
		} else {
			corsConfig.AllowAllOrigins = true
		}
		router.Use(cors.New(corsConfig))
	}

	if cfg.RestAPI.APIKey != "" {
		log.Info("API key authentication enabled")
		router.Use(APIKeyAuthMiddleware(cfg.RestAPI.APIKey))
	}

	router.Use(MaxBodySizeMiddleware(MentionBodyLimit))

	s := &Server{
		router:   router,
		eng:      eng,
		repo:     repo,
		cfg:      cfg,
		log:      log,
		counters: &decisionCounters{},
	}
	s.setupRoutes()
	return s
}

// setupRoutes wires the health check and the four decision-engine endpoints.
func (s *Server) setupRoutes() {
	v1 := s.router.Group("/v1")
	{
		v1.GET("/health", s.health)
		v1.POST("/mentions", s.decideMention)
		v1.GET("/authors/:id", s.getAuthor)
		v1.GET("/stats", s.stats)
		v1.GET("/review", s.review)
	}
}

// Router exposes the underlying Gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start runs the HTTP server until it errors or is shut down.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.RestAPI.Host, s.cfg.RestAPI.Port)
	s.httpServer = &http.Server{Addr: addr, Handler: s.router}
	s.log.Info("starting REST API server", "address", addr)
	return s.httpServer.ListenAndServe()
}

// StartWithContext runs the server and blocks until ctx is cancelled or the
// server errors, then shuts down gracefully within shutdownTimeout.
func (s *Server) StartWithContext(ctx context.Context, shutdownTimeout time.Duration) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.RestAPI.Host, s.cfg.RestAPI.Port)
	s.httpServer = &http.Server{Addr: addr, Handler: s.router}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("starting REST API server", "address", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("stopping REST API server")
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.log.Error("server shutdown error", "error", err)
		return err
	}
	s.log.Info("REST API server stopped")
	return nil
}
