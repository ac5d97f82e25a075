package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"pimsync/internal/api/handlers"
	"pimsync/internal/api/middleware"
	"pimsync/internal/cache"
	"pimsync/internal/config"
	"pimsync/internal/logger"
	"pimsync/internal/mapping"
	"pimsync/internal/store"
	syncpkg "pimsync/internal/sync"

	"github.com/gin-gonic/gin"
)

type Server struct {
	config *config.Config
	logger *logger.Logger
	router *gin.Engine
	server *http.Server
}

func New(
	cfg *config.Config,
	logger *logger.Logger,
	orchestrator *syncpkg.Orchestrator,
	mapper *mapping.Mapper,
	mappings *store.MappingStore,
	recorder *store.RunRecorder,
	hashCache *cache.HashCache,
) *Server {
	// Set Gin mode
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS())

	// Initialize handlers
	syncHandler := handlers.NewSyncHandler(orchestrator, recorder, logger)
	mappingsHandler := handlers.NewMappingsHandler(mapper, cfg.FieldMappingFile, hashCache, logger)
	monitoringHandler := handlers.NewMonitoringHandler(mappings, recorder, hashCache, logger)

	// Routes
	v1 := router.Group("/api/v1")
	{
		// Sync
		sync := v1.Group("/sync")
		{
			sync.POST("", syncHandler.Trigger)
			sync.GET("/status", syncHandler.Status)
			sync.GET("/runs", syncHandler.ListRuns)
			sync.GET("/runs/:id", syncHandler.GetRun)
			sync.GET("/runs/:id/errors", syncHandler.GetRunErrors)
		}

		// Field mappings
		fieldMappings := v1.Group("/mappings")
		{
			fieldMappings.GET("", mappingsHandler.Get)
			fieldMappings.GET("/summary", mappingsHandler.Summary)
			fieldMappings.POST("/validate", mappingsHandler.Validate)
			fieldMappings.PUT("", mappingsHandler.Import)
		}

		// Monitoring
		v1.GET("/health", monitoringHandler.Health)
		v1.GET("/stats", monitoringHandler.Stats)
		v1.GET("/products/:id/mapping", monitoringHandler.ProductMapping)
	}

	return &Server{
		config: cfg,
		logger: logger,
		router: router,
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%s", s.config.APIHost, s.config.APIPort)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server on " + addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	return s.server.Shutdown(ctx)
}

// GetRouter returns the Gin router for serverless deployments.
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}
