package handlers

import (
	"net/http"
	"time"

	"pimsync/internal/cache"
	"pimsync/internal/logger"
	"pimsync/internal/store"

	"github.com/gin-gonic/gin"
)

type MonitoringHandler struct {
	mappings *store.MappingStore
	recorder *store.RunRecorder
	cache    *cache.HashCache
	logger   *logger.Logger
}

func NewMonitoringHandler(mappings *store.MappingStore, recorder *store.RunRecorder, hashCache *cache.HashCache, logger *logger.Logger) *MonitoringHandler {
	return &MonitoringHandler{
		mappings: mappings,
		recorder: recorder,
		cache:    hashCache,
		logger:   logger,
	}
}

func (h *MonitoringHandler) Health(c *gin.Context) {
	status := "healthy"
	checks := gin.H{}

	if _, err := h.mappings.CountActive(); err != nil {
		status = "degraded"
		checks["database"] = err.Error()
	} else {
		checks["database"] = "ok"
	}

	if h.cache != nil {
		if err := h.cache.Ping(c.Request.Context()); err != nil {
			// Redis is optional; a cache outage degrades to full diffs.
			checks["redis"] = err.Error()
		} else {
			checks["redis"] = "ok"
		}
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "checks": checks, "time": time.Now().UTC()})
}

// ProductMapping returns the correlation row for one source product, with
// its variant rows.
func (h *MonitoringHandler) ProductMapping(c *gin.Context) {
	m, err := h.mappings.GetMapping(c.Param("id"))
	if err != nil {
		h.logger.Error("Failed to load mapping: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load mapping"})
		return
	}
	if m == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No mapping for product"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": m})
}

// Stats summarizes mapping coverage and the latest run.
func (h *MonitoringHandler) Stats(c *gin.Context) {
	activeMappings, err := h.mappings.CountActive()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"})
		return
	}

	runs, err := h.recorder.RecentRuns(1)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"})
		return
	}

	stats := gin.H{"active_mappings": activeMappings}
	if len(runs) > 0 {
		stats["last_run"] = runs[0]
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}
