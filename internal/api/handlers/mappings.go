package handlers

import (
	"encoding/json"
	"net/http"
	"os"

	"pimsync/internal/cache"
	"pimsync/internal/logger"
	"pimsync/internal/mapping"

	"github.com/gin-gonic/gin"
)

type MappingsHandler struct {
	mapper   *mapping.Mapper
	filePath string
	cache    *cache.HashCache
	logger   *logger.Logger
}

func NewMappingsHandler(mapper *mapping.Mapper, filePath string, hashCache *cache.HashCache, logger *logger.Logger) *MappingsHandler {
	return &MappingsHandler{
		mapper:   mapper,
		filePath: filePath,
		cache:    hashCache,
		logger:   logger,
	}
}

// Get exports the active mapping set as a mapping document.
func (h *MappingsHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.mapper.Set().Export()})
}

func (h *MappingsHandler) Summary(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.mapper.Set().Summary()})
}

// Validate checks a submitted mapping document without activating it.
func (h *MappingsHandler) Validate(c *gin.Context) {
	var doc mapping.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid mapping document: " + err.Error()})
		return
	}

	set, err := mapping.NewSet(doc)
	if err == nil {
		err = set.Validate()
	}
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "mappings": len(set.Mappings)})
}

// Import validates and activates a new mapping document, persisting it to
// disk so restarts pick it up. An invalid document leaves the active set
// untouched.
func (h *MappingsHandler) Import(c *gin.Context) {
	var doc mapping.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid mapping document: " + err.Error()})
		return
	}

	set, err := mapping.NewSet(doc)
	if err == nil {
		err = set.Validate()
	}
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	if err := h.persist(doc); err != nil {
		h.logger.Error("Failed to persist mapping document: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to persist mapping document"})
		return
	}

	h.mapper.Reload(set)
	if h.cache != nil {
		// Cached hashes were computed under the old field set; keeping them
		// would skip products whose mapped output just changed shape.
		h.cache.InvalidateAll(c.Request.Context())
	}
	h.logger.Info("Imported mapping document with %d mappings", len(set.Mappings))
	c.JSON(http.StatusOK, gin.H{"status": "imported", "mappings": len(set.Mappings)})
}

func (h *MappingsHandler) persist(doc mapping.Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(h.filePath, data, 0644)
}
