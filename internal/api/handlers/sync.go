package handlers

import (
	"context"
	"net/http"
	"strconv"

	"pimsync/internal/logger"
	"pimsync/internal/store"
	syncpkg "pimsync/internal/sync"

	"github.com/gin-gonic/gin"
)

type SyncHandler struct {
	orchestrator *syncpkg.Orchestrator
	recorder     *store.RunRecorder
	logger       *logger.Logger
}

func NewSyncHandler(orchestrator *syncpkg.Orchestrator, recorder *store.RunRecorder, logger *logger.Logger) *SyncHandler {
	return &SyncHandler{
		orchestrator: orchestrator,
		recorder:     recorder,
		logger:       logger,
	}
}

// Trigger starts a sync pass in the background. Only one pass runs at a
// time.
func (h *SyncHandler) Trigger(c *gin.Context) {
	if h.orchestrator.Running() {
		c.JSON(http.StatusConflict, gin.H{"error": "A sync pass is already running"})
		return
	}

	fullSync := c.Query("full") == "true"
	go func() {
		_, err := h.orchestrator.Run(context.Background(), syncpkg.RunOptions{FullSync: fullSync})
		if err != nil {
			h.logger.Error("Sync pass failed: %v", err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"status":    "started",
		"full_sync": fullSync,
	})
}

func (h *SyncHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"running": h.orchestrator.Running()})
}

func (h *SyncHandler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	runs, err := h.recorder.RecentRuns(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch runs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": runs})
}

func (h *SyncHandler) GetRun(c *gin.Context) {
	run, err := h.recorder.GetRun(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch run"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": run})
}

func (h *SyncHandler) GetRunErrors(c *gin.Context) {
	run, err := h.recorder.GetRun(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch run"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": run.Errors})
}
