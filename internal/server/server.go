package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/harshithlanka3/chore-cycle-backend/internal/auth"
	"github.com/harshithlanka3/chore-cycle-backend/internal/config"
	"github.com/harshithlanka3/chore-cycle-backend/internal/handlers"
	"github.com/harshithlanka3/chore-cycle-backend/internal/logger"
	"github.com/harshithlanka3/chore-cycle-backend/internal/metrics"
	"github.com/harshithlanka3/chore-cycle-backend/internal/middleware"
	"github.com/harshithlanka3/chore-cycle-backend/internal/realtime"
	"github.com/harshithlanka3/chore-cycle-backend/internal/storage"
)

// Server wires the HTTP surface, the realtime endpoint, and the fanout
// relay over a shared store.
type Server struct {
	httpServer  *http.Server
	config      *config.Config
	store       storage.Store
	relay       *realtime.Relay
	relayCancel context.CancelFunc
	relayDone   chan struct{}
}

// New creates a new server instance over the given store.
func New(cfg *config.Config, store storage.Store) *Server {
	return &Server{
		config: cfg,
		store:  store,
	}
}

// Start launches the fanout relay and the HTTP server. It blocks until the
// listener fails or the server is stopped.
func (s *Server) Start() error {
	router := s.setupRouter()

	relayCtx, cancel := context.WithCancel(context.Background())
	s.relayCancel = cancel
	s.relayDone = make(chan struct{})
	go func() {
		defer close(s.relayDone)
		if err := s.relay.Run(relayCtx); err != nil && relayCtx.Err() == nil {
			logger.Relay().Error("Fanout relay exited", "error", err)
		}
	}()

	s.httpServer = &http.Server{
		Addr:    ":" + s.config.Server.Port,
		Handler: router,

		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Get().Info("Starting HTTP server", "port", s.config.Server.Port)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server and the relay.
func (s *Server) Stop(ctx context.Context) error {
	logger.Get().Info("Shutting down HTTP server...")

	if s.relayCancel != nil {
		s.relayCancel()
		select {
		case <-s.relayDone:
		case <-ctx.Done():
		}
	}

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// setupRouter configures the HTTP router with middleware and routes
func (s *Server) setupRouter() *gin.Engine {
	if s.config.Server.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if s.config.CORS.AllowOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(s.config.CORS.AllowOrigins, ",")
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = strings.Split(s.config.CORS.AllowMethods, ",")
	corsConfig.AllowHeaders = strings.Split(s.config.CORS.AllowHeaders, ",")
	router.Use(cors.New(corsConfig))

	// Repositories and services over the shared store
	choreRepo := storage.NewChoreRepository(s.store)
	userRepo := storage.NewUserRepository(s.store)
	authService := auth.NewService(userRepo, s.config.Auth.JWTSecret, s.config.Auth.TokenExpiry)

	// Realtime layer
	registry := realtime.NewRegistry()
	s.relay = realtime.NewRelay(s.store, choreRepo, registry)
	wsHandler := realtime.NewWSHandler(registry, authService)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, userRepo, choreRepo, s.relay)
	choreHandler := handlers.NewChoreHandler(choreRepo, userRepo, s.relay)

	// Health check
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Chore Cycle API is running",
			"status":  "healthy",
		})
	})

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/ws", gin.WrapH(wsHandler.Handler()))

	s.setupAPIRoutes(router, authService, userRepo, authHandler, choreHandler)

	return router
}

// setupAPIRoutes configures all API routes
func (s *Server) setupAPIRoutes(
	router *gin.Engine,
	authService *auth.Service,
	userRepo *storage.UserRepository,
	authHandler *handlers.AuthHandler,
	choreHandler *handlers.ChoreHandler,
) {
	api := router.Group("/api")

	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	authenticated := api.Group("")
	authenticated.Use(middleware.Auth(authService, userRepo))
	{
		authenticated.GET("/auth/me", authHandler.Me)
		authenticated.POST("/auth/join-chore", authHandler.JoinChore)

		chores := authenticated.Group("/chores")
		{
			chores.GET("", choreHandler.GetAllChores)
			chores.POST("", choreHandler.CreateChore)
			chores.GET("/:id", choreHandler.GetChore)
			chores.DELETE("/:id", choreHandler.DeleteChore)
			chores.POST("/:id/people", choreHandler.AddPerson)
			chores.DELETE("/:id/people/:person_id", choreHandler.RemovePerson)
			chores.POST("/:id/advance", choreHandler.AdvanceQueue)
		}
	}
}
