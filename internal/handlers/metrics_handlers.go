package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"dockmon/internal/docker"
	"dockmon/internal/middleware"
	"dockmon/internal/store"
	"dockmon/internal/telemetry"
	"dockmon/internal/utils"
)

// MetricHandlers serves sample queries, the container list and the host
// telemetry snapshot.
type MetricHandlers struct {
	samples *store.SampleStore
	docker  *docker.Client
	host    *telemetry.Host
	log     *utils.Logger
}

func NewMetricHandlers(samples *store.SampleStore, dc *docker.Client, host *telemetry.Host, logger *utils.Logger) *MetricHandlers {
	return &MetricHandlers{samples: samples, docker: dc, host: host, log: logger}
}

// APIContainerMetrics returns persisted samples for one container,
// newest first, filtered by ?since= (RFC3339) and bounded by ?limit=.
func (h *MetricHandlers) APIContainerMetrics(c *gin.Context) {
	resourceID := middleware.SanitizeString(c.Param("resource_id"))

	var since time.Time
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid since timestamp, want RFC3339"})
			return
		}
		since = parsed
	}
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 1000 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit, want 1-1000"})
			return
		}
		limit = parsed
	}

	samples, err := h.samples.Query(c.Request.Context(), resourceID, since, limit)
	if err != nil {
		h.log.Writef("Sample query failed for %s: %v", resourceID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"resource_id": resourceID, "samples": samples, "count": len(samples)})
}

// APIContainerList passes the engine's container list through.
func (h *MetricHandlers) APIContainerList(c *gin.Context) {
	containers, err := h.docker.List(c.Request.Context())
	if err != nil {
		h.log.Writef("Container list failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Container runtime unavailable"})
		return
	}
	out := make([]gin.H, 0, len(containers))
	for _, ct := range containers {
		out = append(out, gin.H{
			"id":     ct.ID,
			"name":   ct.Name(),
			"image":  ct.Image,
			"state":  ct.State,
			"status": ct.Status,
		})
	}
	c.JSON(http.StatusOK, gin.H{"containers": out, "count": len(out)})
}

// APISystem returns the host telemetry snapshot.
func (h *MetricHandlers) APISystem(c *gin.Context) {
	c.JSON(http.StatusOK, h.host.Snapshot(c.Request.Context()))
}
