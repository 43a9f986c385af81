package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/davrbek/coursehub-backend/internal/platform/logger"
	"github.com/davrbek/coursehub-backend/internal/requestdata"
	"github.com/davrbek/coursehub-backend/internal/services"
)

type NotificationHandler struct {
	log                 *logger.Logger
	notificationService services.NotificationService
}

func NewNotificationHandler(log *logger.Logger, notificationService services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		log:                 log.With("handler", "NotificationHandler"),
		notificationService: notificationService,
	}
}

func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	viewer := requestdata.Viewer(c.Request.Context())
	rows, err := h.notificationService.List(c.Request.Context(), viewer)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"notifications": rows})
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	viewer := requestdata.Viewer(c.Request.Context())
	count, err := h.notificationService.CountUnread(c.Request.Context(), viewer)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"unread": count})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	notificationID, err := pathInt64(c, "id")
	if err != nil {
		RespondError(c, err)
		return
	}
	viewer := requestdata.Viewer(c.Request.Context())
	if err := h.notificationService.MarkRead(c.Request.Context(), viewer, notificationID); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"read": true})
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	viewer := requestdata.Viewer(c.Request.Context())
	if err := h.notificationService.MarkAllRead(c.Request.Context(), viewer); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"read": true})
}
