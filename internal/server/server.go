// Package server exposes the feeds, the regional scrape endpoint and saved
// jobs over HTTP with gin.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/jobtrace/jobtrace/internal/model"
	"github.com/jobtrace/jobtrace/internal/saved"
)

// Header names carrying the caller identity.
const (
	HeaderUserID    = "X-User-ID"
	HeaderUserEmail = "X-User-Email"
	HeaderFeedID    = "X-Feed-ID"
)

const scrapeErrorMessage = "Failed to scrape job data."

// Server wires handlers onto a gin engine.
type Server struct {
	engine  *gin.Engine
	scraper model.ListingScraper
	feeds   *Registry
	saved   *saved.Service
	logger  *slog.Logger
}

// New builds the router. scraper backs GET /api/nigeria-jobs.
func New(scraper model.ListingScraper, feeds *Registry, svc *saved.Service, logger *slog.Logger) *Server {
	s := &Server{
		engine:  gin.New(),
		scraper: scraper,
		feeds:   feeds,
		saved:   svc,
		logger:  logger,
	}
	s.routes()
	return s
}

func corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	cfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", HeaderUserID, HeaderUserEmail}
	cfg.ExposeHeaders = []string{HeaderFeedID}
	cfg.OptionsResponseStatusCode = http.StatusOK
	return cfg
}

func (s *Server) routes() {
	r := s.engine
	r.Use(gin.Recovery(), requestLogger(s.logger), cors.New(corsConfig()))

	api := r.Group("/api")
	{
		api.GET("/health", s.health)

		api.GET("/nigeria-jobs", s.scrapeJobs)
		api.OPTIONS("/nigeria-jobs", func(c *gin.Context) { c.Status(http.StatusOK) })

		api.POST("/feeds", s.createFeed)
		api.GET("/feeds/:id", s.getFeed)
		api.PUT("/feeds/:id", s.updateFeed)
		api.DELETE("/feeds/:id", s.deleteFeed)
		api.POST("/feeds/:id/advance", s.advanceFeed)
		api.GET("/feeds/:id/companies", s.feedCompanies)

		authed := api.Group("", requireUser())
		authed.GET("/saved", s.listSaved)
		authed.POST("/saved", s.saveJob)
		authed.DELETE("/saved/:jobID", s.unsaveJob)
		authed.GET("/profile", s.getProfile)
		authed.PUT("/profile", s.updateProfile)
	}
}

// Handler returns the http.Handler for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go s.feeds.runSweeper(sweepCtx, s.logger)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.feeds.CloseAll()
	return err
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(HeaderUserID) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
