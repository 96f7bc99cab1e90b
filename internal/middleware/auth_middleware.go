package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"hivechat/internal/services"
	"hivechat/internal/transport/httpdto"
)

// AuthMiddleware enforces the shared API key as a bearer token. A nil
// service leaves the deployment open.
func AuthMiddleware(service *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if service == nil {
			c.Next()
			return
		}
		if err := service.CheckKey(extractBearer(c)); err != nil {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized"))
			c.Abort()
			return
		}
		c.Next()
	}
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
