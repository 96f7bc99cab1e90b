package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"hivechat/internal/services"
	"hivechat/internal/transport/httpdto"
)

type AuthHandler struct {
	service *services.AuthService
}

func NewAuthHandler(service *services.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

// Ticket handles POST /api/auth/ticket: the shared API key buys a
// short-lived token suitable for WebSocket upgrade query strings.
func (h *AuthHandler) Ticket(c *gin.Context) {
	key := extractBearer(c)
	if err := h.service.CheckKey(key); err != nil {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized"))
		return
	}

	token, ttl, err := h.service.MintTicket()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.TicketResponse{
		Token:     token,
		ExpiresIn: int(ttl.Seconds()),
	})
}

func extractBearer(c *gin.Context) string {
	value := c.GetHeader("Authorization")
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
