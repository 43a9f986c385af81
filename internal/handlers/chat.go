package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/davrbek/coursehub-backend/internal/platform/apierr"
	"github.com/davrbek/coursehub-backend/internal/platform/logger"
	"github.com/davrbek/coursehub-backend/internal/requestdata"
	"github.com/davrbek/coursehub-backend/internal/services"
)

type ChatHandler struct {
	log         *logger.Logger
	chatService services.ChatService
}

func NewChatHandler(log *logger.Logger, chatService services.ChatService) *ChatHandler {
	return &ChatHandler{
		log:         log.With("handler", "ChatHandler"),
		chatService: chatService,
	}
}

func (h *ChatHandler) OpenThread(c *gin.Context) {
	lessonID, err := pathInt64(c, "id")
	if err != nil {
		RespondError(c, err)
		return
	}
	var req services.OpenThreadInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Validation("invalid request body"))
		return
	}

	viewer := requestdata.Viewer(c.Request.Context())
	chat, err := h.chatService.ResolveOrCreate(c.Request.Context(), viewer, lessonID, req)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"chat": chat})
}

func (h *ChatHandler) ListThreads(c *gin.Context) {
	lessonID, err := pathInt64(c, "id")
	if err != nil {
		RespondError(c, err)
		return
	}
	viewer := requestdata.Viewer(c.Request.Context())
	threads, err := h.chatService.ListThreads(c.Request.Context(), viewer, lessonID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"threads": threads})
}

func (h *ChatHandler) ListRecipients(c *gin.Context) {
	viewer := requestdata.Viewer(c.Request.Context())
	recipients, err := h.chatService.ListRecipients(c.Request.Context(), viewer)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"recipients": recipients})
}

func (h *ChatHandler) GetMessages(c *gin.Context) {
	chatID, err := pathInt64(c, "id")
	if err != nil {
		RespondError(c, err)
		return
	}
	viewer := requestdata.Viewer(c.Request.Context())
	msgs, err := h.chatService.GetMessages(c.Request.Context(), viewer, chatID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"messages": msgs})
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	chatID, err := pathInt64(c, "id")
	if err != nil {
		RespondError(c, err)
		return
	}
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Validation("invalid request body"))
		return
	}

	viewer := requestdata.Viewer(c.Request.Context())
	msg, err := h.chatService.SendMessage(c.Request.Context(), viewer, chatID, services.MessageInput{
		Content:    req.Content,
		Attachment: req.Attachment,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondCreated(c, gin.H{"message": msg})
}

func (h *ChatHandler) ClearMessages(c *gin.Context) {
	chatID, err := pathInt64(c, "id")
	if err != nil {
		RespondError(c, err)
		return
	}
	viewer := requestdata.Viewer(c.Request.Context())
	if err := h.chatService.ClearMessages(c.Request.Context(), viewer, chatID); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"cleared": true})
}
