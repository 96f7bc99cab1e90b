package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hivechat/internal/store"
	"hivechat/internal/transport/httpdto"
)

type HealthHandler struct {
	store store.Store
}

func NewHealthHandler(s store.Store) *HealthHandler {
	return &HealthHandler{store: s}
}

func (h *HealthHandler) Check(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse("store unavailable"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
