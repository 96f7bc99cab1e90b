package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"hivechat/internal/transport/httpdto"
	hive_errors "hivechat/pkg/errors"
)

// respondError maps the error taxonomy onto status codes. Storage and
// unknown failures surface as an opaque 500; the message text never
// carries internals.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, hive_errors.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("missing or empty required field"))
	case errors.Is(err, hive_errors.ErrNotFound):
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("not found"))
	case errors.Is(err, hive_errors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized"))
	case errors.Is(err, hive_errors.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, httpdto.NewErrorResponse("file too large"))
	default:
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("internal error"))
	}
}
