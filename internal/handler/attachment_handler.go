package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"hivechat/internal/services"
	"hivechat/internal/transport/httpdto"
)

type AttachmentHandler struct {
	service *services.AttachmentService
}

func NewAttachmentHandler(service *services.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{service: service}
}

// Upload handles POST /api/rooms/:id/attachments (multipart form, field
// "file").
func (h *AttachmentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("file is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("file is required"))
		return
	}
	defer file.Close()

	att, err := h.service.Upload(
		c.Request.Context(),
		c.Param("id"),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		fileHeader.Size,
		file,
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, att)
}

// Download handles GET /api/attachments/:id and streams the blob back.
func (h *AttachmentHandler) Download(c *gin.Context) {
	att, body, err := h.service.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	defer body.Close()

	c.Header("Content-Disposition", `attachment; filename="`+att.Filename+`"`)
	c.Header("Content-Length", strconv.FormatInt(att.Size, 10))
	c.Header("Content-Type", att.ContentType)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, body)
}
