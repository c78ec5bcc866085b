// Package server exposes the engine operations over a local HTTP API for
// the webview frontend.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Quanta-Naut/CivicBridge-App/internal/logger"
	"github.com/Quanta-Naut/CivicBridge-App/internal/sync"
)

// Config configures the HTTP surface.
type Config struct {
	// AllowOrigins lists origins permitted by CORS. Empty allows any origin.
	AllowOrigins []string

	// Logger receives request and recovery logs. Defaults to logger.Default().
	Logger *logger.Logger
}

// Server routes HTTP requests to an Engine.
type Server struct {
	engine *sync.Engine
	router *gin.Engine
	log    *logger.Logger
}

// New builds the router.
func New(engine *sync.Engine, cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}

	router := gin.New()
	router.Use(gin.LoggerWithWriter(log.Writer(logger.LevelDebug)))
	router.Use(gin.RecoveryWithWriter(log.Writer(logger.LevelError)))
	router.Use(cors.New(corsConfig(cfg.AllowOrigins)))

	s := &Server{engine: engine, router: router, log: log}
	s.routes()
	return s
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}

func (s *Server) routes() {
	api := s.router.Group("/api")

	api.GET("/health", s.handleHealth)
	api.GET("/endpoints", s.handleEndpoints)

	api.GET("/issues", s.handleListIssues)
	api.POST("/issues", s.handleCreateIssue)
	api.PATCH("/issues/:id/status", s.handleUpdateStatus)
	api.DELETE("/issues/:id", s.handleDeleteIssue)

	remote := api.Group("/remote")
	remote.GET("/issues", s.handleFetchRemote)
	remote.POST("/issues", s.handleSubmitIssue)
	remote.POST("/issues/:id/vouch", s.handleVouch)

	api.POST("/otp/send", s.handleSendOTP)
	api.POST("/otp/verify", s.handleVerifyOTP)
	api.GET("/profile", s.handleProfile)

	api.GET("/selftest/connection", s.handleTestConnection)
	api.POST("/selftest/submission", s.handleTestSubmission)
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server: listening on http://%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: listen on %s: %w", addr, err)
	case <-ctx.Done():
		s.log.Info("server: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: shutdown: %w", err)
		}
		return nil
	}
}
