package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/trenches/ip-venue/internal/api/middleware"
	"github.com/trenches/ip-venue/internal/api/rest"
	"github.com/trenches/ip-venue/internal/engine"
	"github.com/trenches/ip-venue/internal/fanout"
	"github.com/trenches/ip-venue/internal/logger"
	"github.com/trenches/ip-venue/internal/realtime"
)

// Config holds the server configuration
type Config struct {
	Debug        bool
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	Auth         middleware.AuthConfig
}

// Server wraps the HTTP server
type Server struct {
	config     Config
	engine     *engine.Engine
	notifier   fanout.Notifier
	realtime   *realtime.Server
	httpServer *http.Server
}

// New creates a new API server
func New(cfg Config, eng *engine.Engine, notifier fanout.Notifier, rt *realtime.Server) *Server {
	return &Server{
		config:   cfg,
		engine:   eng,
		notifier: notifier,
		realtime: rt,
	}
}

// Start initializes and starts the HTTP server
func (s *Server) Start() error {
	// Set Gin mode based on debug flag
	if s.config.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create Gin router
	router := gin.New()

	// Setup middleware
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.SetupCORS())

	// Create REST handler
	restHandler := rest.NewHandler(s.engine, s.notifier)

	// Setup REST routes
	rest.SetupRoutes(router, restHandler, s.config.Auth)

	// Mount the realtime websocket endpoint. The websocket protocol carries
	// its own room membership, so it sits outside the /api/v1 group.
	router.GET("/ws", gin.WrapF(s.realtime.Handler()))

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	logger.Info("Starting API server",
		zap.String("address", addr),
	)

	// Start server
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down API server")

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}

	return nil
}
