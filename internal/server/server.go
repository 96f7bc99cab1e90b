package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hivechat/config"
	"hivechat/internal/handler"
	"hivechat/internal/middleware"
	"hivechat/internal/redis"
	"hivechat/internal/services"
	"hivechat/internal/ws"
	"hivechat/pkg/logger"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	Rooms       *handler.RoomHandler
	Messages    *handler.MessageHandler
	Attachments *handler.AttachmentHandler
	Auth        *handler.AuthHandler
	Presence    *handler.PresenceHandler
	Health      *handler.HealthHandler
	WS          *ws.Handler
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.AppPort),
			Handler: engine,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

func (s *Server) SetupRoutes(handlers *Handlers, authService *services.AuthService, limiter *redis.RateLimiter) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware())
	s.engine.Use(middleware.MetricsMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))

	s.engine.GET("/health", handlers.Health.Check)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket upgrades authenticate with a ticket or the key in the
	// query string, so they sit outside the bearer-token group.
	s.engine.GET("/ws", handlers.WS.Handle)
	s.engine.GET("/api/rooms/:id/ws", handlers.WS.Handle)

	api := s.engine.Group("/api",
		middleware.AuthMiddleware(authService),
		middleware.RateLimitMiddleware(limiter, s.logger),
	)
	{
		if handlers.Auth != nil {
			api.POST("/auth/ticket", handlers.Auth.Ticket)
		}

		api.POST("/rooms", handlers.Rooms.Create)
		api.GET("/rooms", handlers.Rooms.List)
		api.GET("/rooms/:id", handlers.Rooms.Get)

		api.POST("/rooms/:id/messages", handlers.Messages.Send)
		api.GET("/rooms/:id/messages", handlers.Messages.List)

		api.GET("/rooms/:id/presence", handlers.Presence.List)

		api.POST("/rooms/:id/attachments", handlers.Attachments.Upload)
		api.GET("/attachments/:id", handlers.Attachments.Download)
	}
}

// Handler exposes the routed engine, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Start() error {
	serveErr := make(chan error, 1)
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	select {
	case err := <-serveErr:
		if s.logger != nil {
			s.logger.Errorf("Error in starting the server: %s", err)
		}
		return err
	case <-quit:
	}

	if s.logger != nil {
		s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		if s.logger != nil {
			s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}
	return nil
}
