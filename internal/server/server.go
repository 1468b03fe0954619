// Package server exposes the pipeline over HTTP: SQL text in, the table
// list or a diagram out.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sqlerd/internal/config"
	"sqlerd/internal/erd"
)

const shutdownTimeout = 5 * time.Second

// Server serves the HTTP API.
type Server struct {
	cfg    config.Server
	opts   erd.Options
	log    *zap.Logger
	engine *gin.Engine
}

// New builds the router. A nil logger discards logs.
func New(cfg config.Server, opts erd.Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Logger == nil {
		opts.Logger = logger
	}
	s := &Server{
		cfg:  cfg,
		opts: opts,
		log:  logger,
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(requestID(), accessLog(s.log), recovery(s.log), cors.New(s.corsConfig()))

	router.GET("/healthz", s.health)

	api := router.Group("/api/v1")
	api.POST("/schema", s.interpretSchema)
	api.POST("/diagram", s.renderDiagram)

	return router
}

func (s *Server) corsConfig() cors.Config {
	c := cors.DefaultConfig()
	c.AllowHeaders = append(c.AllowHeaders, requestIDHeader)
	c.ExposeHeaders = []string{requestIDHeader}
	if len(s.cfg.AllowedOrigins) == 0 || slices.Contains(s.cfg.AllowedOrigins, "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = s.cfg.AllowedOrigins
	}
	return c
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// HTTPServer wraps the router in an http.Server listening on the configured
// address.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		IdleTimeout:       time.Minute,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := s.HTTPServer()
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down server gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
