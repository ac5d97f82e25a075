package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"pimsync/internal/cache"
	"pimsync/internal/clients/pim"
	"pimsync/internal/clients/storefront"
	"pimsync/internal/config"
	"pimsync/internal/database"
	"pimsync/internal/logger"
	"pimsync/internal/mapping"
	"pimsync/internal/store"
	syncpkg "pimsync/internal/sync"
	"pimsync/internal/variants"
	"pimsync/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel)

	// Initialize database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Load field mapping document
	mappingSet, err := mapping.LoadSet(cfg.FieldMappingFile)
	if err != nil {
		logger.Fatal("Failed to load field mappings: %v", err)
	}
	mapper := mapping.NewMapper(mappingSet, logger)

	var orchestratorCache syncpkg.HashCache
	if cfg.RedisURL != "" {
		hashCache, err := cache.NewHashCache(cfg.RedisURL, logger)
		if err != nil {
			logger.Warn("Redis unavailable, change detection falls back to full diffs: %v", err)
		} else {
			defer hashCache.Close()
			orchestratorCache = hashCache
		}
	}

	orchestrator := syncpkg.NewOrchestrator(
		cfg,
		pim.NewClient(cfg, logger),
		storefront.NewClient(cfg, logger),
		mapper,
		variants.NewBuilder(logger),
		store.NewMappingStore(db.DB),
		store.NewRunRecorder(db.DB),
		orchestratorCache,
		logger,
	)

	// Initialize worker
	w := worker.New(cfg, logger, orchestrator)

	// Start worker
	logger.Info("Starting worker...")
	go w.Start()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	w.Stop()
}
