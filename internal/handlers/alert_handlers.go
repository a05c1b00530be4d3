package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dockmon/internal/alerts"
	"dockmon/internal/middleware"
	"dockmon/internal/models"
	"dockmon/internal/notify"
	"dockmon/internal/store"
	"dockmon/internal/utils"
)

// AlertHandlers exposes owner-scoped alert CRUD and acknowledgment.
type AlertHandlers struct {
	engine  *alerts.Engine
	service *notify.Service
	log     *utils.Logger
}

func NewAlertHandlers(engine *alerts.Engine, service *notify.Service, logger *utils.Logger) *AlertHandlers {
	return &AlertHandlers{engine: engine, service: service, log: logger}
}

type alertRequest struct {
	ResourceID string  `json:"resource_id" validate:"required,max=128"`
	MetricType string  `json:"metric_type" validate:"required"`
	Threshold  float64 `json:"threshold_value" validate:"gte=0"`
	Operator   string  `json:"comparison_operator" validate:"required"`
	IsActive   *bool   `json:"is_active"`
}

func (r alertRequest) toModel(ownerUserID int64) models.Alert {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return models.Alert{
		OwnerUserID: ownerUserID,
		ResourceID:  middleware.SanitizeString(r.ResourceID),
		MetricType:  r.MetricType,
		Threshold:   r.Threshold,
		Operator:    r.Operator,
		IsActive:    active,
	}
}

// APIAlertCreate registers a new threshold alert owned by the caller.
func (h *AlertHandlers) APIAlertCreate(c *gin.Context) {
	var req alertRequest
	if !middleware.BindValidated(c, &req) {
		return
	}
	a, err := h.engine.Create(c.Request.Context(), req.toModel(middleware.UserID(c)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, a)
}

// APIAlertList returns the caller's alerts.
func (h *AlertHandlers) APIAlertList(c *gin.Context) {
	list, err := h.engine.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.log.Writef("Alert list failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": list, "count": len(list)})
}

// APIAlertGet returns one of the caller's alerts.
func (h *AlertHandlers) APIAlertGet(c *gin.Context) {
	id, ok := alertID(c)
	if !ok {
		return
	}
	a, err := h.engine.Get(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		h.respondAlertError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// APIAlertUpdate rewrites one of the caller's alerts.
func (h *AlertHandlers) APIAlertUpdate(c *gin.Context) {
	id, ok := alertID(c)
	if !ok {
		return
	}
	var req alertRequest
	if !middleware.BindValidated(c, &req) {
		return
	}
	a := req.toModel(middleware.UserID(c))
	a.ID = id
	if err := h.engine.Update(c.Request.Context(), a, middleware.UserID(c)); err != nil {
		if errors.Is(err, store.ErrNotFoundOrForbidden) {
			h.respondAlertError(c, err)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// APIAlertDelete removes one of the caller's alerts.
func (h *AlertHandlers) APIAlertDelete(c *gin.Context) {
	id, ok := alertID(c)
	if !ok {
		return
	}
	if err := h.engine.Delete(c.Request.Context(), id, middleware.UserID(c)); err != nil {
		h.respondAlertError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// APIAlertAcknowledge marks an alert acknowledged and notifies its owner.
func (h *AlertHandlers) APIAlertAcknowledge(c *gin.Context) {
	id, ok := alertID(c)
	if !ok {
		return
	}
	if err := h.service.Acknowledge(c.Request.Context(), id, middleware.UserID(c)); err != nil {
		h.respondAlertError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func alertID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("alert_id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		return 0, false
	}
	return id, true
}

// respondAlertError translates domain errors at the API boundary. The
// not-found and forbidden cases share one 404 on purpose.
func (h *AlertHandlers) respondAlertError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFoundOrForbidden) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		return
	}
	h.log.Writef("Alert operation failed: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
}
