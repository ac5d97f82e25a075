package main

import (
	"log"

	"pimsync/internal/api"
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

	// Redis hash cache (optional)
	var hashCache *cache.HashCache
	if cfg.RedisURL != "" {
		hashCache, err = cache.NewHashCache(cfg.RedisURL, logger)
		if err != nil {
			logger.Warn("Redis unavailable, change detection falls back to full diffs: %v", err)
			hashCache = nil
		} else {
			defer hashCache.Close()
		}
	}

	mappingStore := store.NewMappingStore(db.DB)
	runRecorder := store.NewRunRecorder(db.DB)

	orchestrator := syncpkg.NewOrchestrator(
		cfg,
		pim.NewClient(cfg, logger),
		storefront.NewClient(cfg, logger),
		mapper,
		variants.NewBuilder(logger),
		mappingStore,
		runRecorder,
		orchestratorCache(hashCache),
		logger,
	)

	// Initialize API server
	server := api.New(cfg, logger, orchestrator, mapper, mappingStore, runRecorder, hashCache)

	// Start server
	logger.Info("Starting API server on port " + cfg.APIPort)
	if err := server.Start(); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
}

// orchestratorCache converts a possibly-nil concrete cache into the
// orchestrator's interface without producing a non-nil interface holding a
// nil pointer.
func orchestratorCache(hashCache *cache.HashCache) syncpkg.HashCache {
	if hashCache == nil {
		return nil
	}
	return hashCache
}
