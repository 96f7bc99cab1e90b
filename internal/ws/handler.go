package ws

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"hivechat/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// RoomChecker validates that a room exists before the upgrade is accepted.
type RoomChecker interface {
	Exists(ctx context.Context, roomID string) error
}

// Authorizer validates the credential presented on upgrade. A nil
// Authorizer means the deployment is open.
type Authorizer interface {
	Authorize(token string) error
}

// PresenceTracker records who is connected to a room. Best-effort; a nil
// tracker disables it.
type PresenceTracker interface {
	Join(ctx context.Context, roomID, name string) error
	Leave(ctx context.Context, roomID, name string) error
}

// Handler upgrades HTTP requests to room subscriptions.
type Handler struct {
	hub      *Hub
	rooms    RoomChecker
	poster   Poster
	auth     Authorizer
	presence PresenceTracker
	logger   *logger.Logger
}

func NewHandler(hub *Hub, rooms RoomChecker, poster Poster, auth Authorizer, presence PresenceTracker, l *logger.Logger) *Handler {
	return &Handler{
		hub:      hub,
		rooms:    rooms,
		poster:   poster,
		auth:     auth,
		presence: presence,
		logger:   l,
	}
}

// Handle serves GET /ws?roomId=... and GET /api/rooms/:id/ws. Room
// validation and auth run before the upgrade so refusals are plain HTTP
// error responses, never half-open sockets.
func (h *Handler) Handle(c *gin.Context) {
	roomID := c.Param("id")
	if roomID == "" {
		roomID = c.Query("roomId")
	}
	if roomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "roomId is required"})
		return
	}
	// Tag the request so the completion log line names the room.
	c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), logger.RoomIdKey, roomID))

	if h.auth != nil {
		if err := h.auth.Authorize(h.extractToken(c)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
	}

	if err := h.rooms.Exists(c.Request.Context(), roomID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.logger != nil {
			h.logger.Errorf("websocket upgrade failed for room %s: %s", roomID, err)
		}
		return
	}

	name := strings.TrimSpace(c.Query("name"))
	client := NewClient(h.hub, conn, roomID, name, h.poster)
	if name == "" {
		name = client.ID
	}

	h.hub.Subscribe(roomID, client)
	if h.presence != nil {
		if err := h.presence.Join(c.Request.Context(), roomID, name); err != nil && h.logger != nil {
			h.logger.Warnf("presence join failed: %s", err)
		}
	}

	go client.WritePump()
	client.ReadPump(context.Background())

	if h.presence != nil {
		if err := h.presence.Leave(context.Background(), roomID, name); err != nil && h.logger != nil {
			h.logger.Warnf("presence leave failed: %s", err)
		}
	}
}

func (h *Handler) extractToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	authHeader := c.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
