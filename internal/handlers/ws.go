package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"dockmon/internal/middleware"
	"dockmon/internal/models"
	"dockmon/internal/notify"
	"dockmon/internal/store"
	"dockmon/internal/utils"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Configure properly for production
	},
}

// pendingReplayLimit bounds how much buffered history is replayed on
// connect; the client can page deeper with get_notification_history.
const pendingReplayLimit = 50

// WSHandlers runs authenticated WebSocket sessions against the
// notification hub.
type WSHandlers struct {
	auth    *middleware.AuthService
	hub     *notify.Hub
	service *notify.Service
	log     *utils.Logger
}

func NewWSHandlers(auth *middleware.AuthService, hub *notify.Hub, service *notify.Service, logger *utils.Logger) *WSHandlers {
	return &WSHandlers{auth: auth, hub: hub, service: service, log: logger}
}

// clientMessage is the envelope for everything a client may send.
type clientMessage struct {
	Type    string `json:"type"`
	AlertID int64  `json:"alert_id,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

// HandleWebSocket upgrades the connection, registers it with the hub,
// replays buffered notifications and then serves the client's requests
// until the connection drops.
func (h *WSHandlers) HandleWebSocket(c *gin.Context) {
	claims, err := h.auth.ValidateToken(middleware.TokenFromRequest(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Writef("WebSocket upgrade error: %v", err)
		return
	}

	client := h.hub.Register(conn, claims.UserID)
	defer h.hub.Unregister(client)

	sessionID := uuid.NewString()
	_ = client.Send(gin.H{
		"type":         models.WSConnectionEstablished,
		"session_id":   sessionID,
		"user_id":      claims.UserID,
		"connected_at": client.ConnectedAt().Format(time.RFC3339),
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
	h.replayPending(c, client)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Writef("WebSocket error (user %d): %v", claims.UserID, err)
			}
			return
		}
		h.dispatch(c, client, raw)
	}
}

// replayPending pushes buffered notifications to a freshly connected
// client, newest first. Replay is at-least-once: the client may have
// already seen some of these live.
func (h *WSHandlers) replayPending(c *gin.Context, client *notify.Client) {
	pending, err := h.service.History(c.Request.Context(), client.UserID(), pendingReplayLimit)
	if err != nil {
		h.log.Writef("WebSocket pending replay failed (user %d): %v", client.UserID(), err)
		return
	}
	for _, n := range pending {
		if err := client.Send(gin.H{
			"type":         models.WSPendingNotification,
			"notification": n,
		}); err != nil {
			return
		}
	}
}

// dispatch handles one inbound client message. The error message type is
// reserved for malformed or unaddressable client input; backend faults
// are only logged.
func (h *WSHandlers) dispatch(c *gin.Context, client *notify.Client, raw []byte) {
	var msg clientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.sendError(client, "Malformed message")
		return
	}
	switch msg.Type {
	case models.WSPing:
		_ = client.Send(gin.H{
			"type":      models.WSPong,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})

	case models.WSAcknowledgeAlert:
		if msg.AlertID <= 0 {
			h.sendError(client, "acknowledge_alert requires alert_id")
			return
		}
		err := h.service.Acknowledge(c.Request.Context(), msg.AlertID, client.UserID())
		switch {
		case errors.Is(err, store.ErrNotFoundOrForbidden):
			h.sendError(client, "Unknown alert")
		case err != nil:
			h.log.Writef("WebSocket acknowledge failed (alert %d): %v", msg.AlertID, err)
		}

	case models.WSGetHistory:
		history, err := h.service.History(c.Request.Context(), client.UserID(), msg.Limit)
		if err != nil {
			h.log.Writef("WebSocket history failed (user %d): %v", client.UserID(), err)
			return
		}
		_ = client.Send(gin.H{
			"type":          models.WSNotificationHistory,
			"notifications": history,
			"count":         len(history),
		})

	default:
		h.sendError(client, "Unknown message type")
	}
}

func (h *WSHandlers) sendError(client *notify.Client, detail string) {
	_ = client.Send(gin.H{
		"type":  models.WSError,
		"error": detail,
	})
}
