package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"hivechat/internal/domain"
	"hivechat/internal/services"
	"hivechat/internal/transport/httpdto"
)

type MessageHandler struct {
	service *services.MessageService
}

func NewMessageHandler(service *services.MessageService) *MessageHandler {
	return &MessageHandler{service: service}
}

// Send handles POST /api/rooms/:id/messages. The committed message comes
// back with its store-assigned seq; live subscribers receive the same
// payload over their sockets.
func (h *MessageHandler) Send(c *gin.Context) {
	var req httpdto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("sender and content are required"))
		return
	}

	msg, err := h.service.Append(c.Request.Context(), c.Param("id"), domain.MessageInput{
		Sender:        req.Sender,
		SenderType:    domain.SenderType(req.SenderType),
		Content:       req.Content,
		Color:         req.Color,
		Type:          domain.MessageType(req.Type),
		ParentID:      req.MessageID,
		AttachmentIDs: req.AttachmentIDs,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// List handles GET /api/rooms/:id/messages. since_seq is the catch-up
// cursor for reconnecting clients; after and exclude serve pollers.
func (h *MessageHandler) List(c *gin.Context) {
	var sinceSeq int64
	if raw := c.Query("since_seq"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid since_seq"))
			return
		}
		sinceSeq = parsed
	}

	msgs, err := h.service.List(c.Request.Context(), c.Param("id"), domain.MessageQuery{
		AfterID:       c.Query("after"),
		SinceSeq:      sinceSeq,
		ExcludeSender: c.Query("exclude"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}
