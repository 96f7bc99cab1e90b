package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hivechat/internal/redis"
	"hivechat/internal/services"
	"hivechat/internal/transport/httpdto"
)

type PresenceHandler struct {
	rooms    *services.RoomService
	presence *redis.Presence
}

func NewPresenceHandler(rooms *services.RoomService, presence *redis.Presence) *PresenceHandler {
	return &PresenceHandler{rooms: rooms, presence: presence}
}

// List handles GET /api/rooms/:id/presence. Presence is best-effort; a
// deployment without redis reports an empty member list.
func (h *PresenceHandler) List(c *gin.Context) {
	roomID := c.Param("id")
	if err := h.rooms.Exists(c.Request.Context(), roomID); err != nil {
		respondError(c, err)
		return
	}

	members := []string{}
	if h.presence != nil {
		found, err := h.presence.List(c.Request.Context(), roomID)
		if err == nil {
			members = found
		}
	}
	c.JSON(http.StatusOK, httpdto.PresenceResponse{RoomID: roomID, Members: members})
}
