package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dockmon/internal/middleware"
	"dockmon/internal/models"
	"dockmon/internal/monitor"
	"dockmon/internal/utils"
)

// StreamHandlers exposes collection stream control.
type StreamHandlers struct {
	registry        *monitor.Registry
	defaultInterval time.Duration
	log             *utils.Logger
}

func NewStreamHandlers(registry *monitor.Registry, defaultInterval time.Duration, logger *utils.Logger) *StreamHandlers {
	return &StreamHandlers{registry: registry, defaultInterval: defaultInterval, log: logger}
}

type startStreamRequest struct {
	IntervalSeconds float64 `json:"interval_seconds" validate:"omitempty,gt=0,lte=3600"`
}

func streamJSON(s models.CollectionStream) gin.H {
	return gin.H{
		"resource_id":      s.ResourceID,
		"interval_seconds": s.IntervalSeconds(),
		"started_at":       s.StartedAt.Format(time.RFC3339),
		"status":           s.Status,
		"last_error":       s.LastError,
	}
}

// APIStreamStart begins metrics collection for one container.
func (h *StreamHandlers) APIStreamStart(c *gin.Context) {
	resourceID := middleware.SanitizeString(c.Param("resource_id"))
	if resourceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Container id required"})
		return
	}

	interval := h.defaultInterval
	var req startStreamRequest
	if !middleware.BindValidatedOptional(c, &req) {
		return
	}
	if req.IntervalSeconds > 0 {
		interval = time.Duration(req.IntervalSeconds * float64(time.Second))
	}

	stream, err := h.registry.Start(resourceID, interval)
	if err != nil {
		if errors.Is(err, monitor.ErrAlreadyActive) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Collection already active for container"})
			return
		}
		h.log.Writef("Stream start failed for %s: %v", resourceID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}
	c.JSON(http.StatusOK, streamJSON(stream))
}

// APIStreamStop ends metrics collection for one container.
func (h *StreamHandlers) APIStreamStop(c *gin.Context) {
	resourceID := middleware.SanitizeString(c.Param("resource_id"))
	if err := h.registry.Stop(resourceID); err != nil {
		if errors.Is(err, monitor.ErrNotActive) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No active collection for container"})
			return
		}
		h.log.Writef("Stream stop failed for %s: %v", resourceID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"resource_id": resourceID, "status": models.StreamStopped})
}

// APIStreamList snapshots every registry entry.
func (h *StreamHandlers) APIStreamList(c *gin.Context) {
	streams := h.registry.Status()
	out := make([]gin.H, 0, len(streams))
	for _, s := range streams {
		out = append(out, streamJSON(s))
	}
	c.JSON(http.StatusOK, gin.H{"streams": out, "count": len(out)})
}

// APIStreamGet snapshots one registry entry.
func (h *StreamHandlers) APIStreamGet(c *gin.Context) {
	resourceID := middleware.SanitizeString(c.Param("resource_id"))
	stream, ok := h.registry.StatusOf(resourceID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No collection stream for container"})
		return
	}
	c.JSON(http.StatusOK, streamJSON(stream))
}
