package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/davrbek/coursehub-backend/internal/platform/apierr"
	"github.com/davrbek/coursehub-backend/internal/platform/logger"
	"github.com/davrbek/coursehub-backend/internal/requestdata"
	"github.com/davrbek/coursehub-backend/internal/services"
)

type MessageHandler struct {
	log            *logger.Logger
	messageService services.MessageService
	storage        services.AttachmentStorage
}

func NewMessageHandler(log *logger.Logger, messageService services.MessageService, storage services.AttachmentStorage) *MessageHandler {
	return &MessageHandler{
		log:            log.With("handler", "MessageHandler"),
		messageService: messageService,
		storage:        storage,
	}
}

type messageRequest struct {
	Content    string                    `json:"content"`
	Attachment *services.AttachmentInput `json:"attachment,omitempty"`
}

func (h *MessageHandler) ListMessages(c *gin.Context) {
	lessonID, err := pathInt64(c, "id")
	if err != nil {
		RespondError(c, err)
		return
	}
	viewer := requestdata.Viewer(c.Request.Context())
	msgs, err := h.messageService.ListLessonMessages(c.Request.Context(), viewer, lessonID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"messages": msgs})
}

func (h *MessageHandler) SendMessage(c *gin.Context) {
	lessonID, err := pathInt64(c, "id")
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
	msg, err := h.messageService.SendLessonMessage(c.Request.Context(), viewer, lessonID, services.MessageInput{
		Content:    req.Content,
		Attachment: req.Attachment,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondCreated(c, gin.H{"message": msg})
}

func (h *MessageHandler) EditMessage(c *gin.Context) {
	messageID, err := pathInt64(c, "id")
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
	input := services.MessageInput{Content: req.Content, Attachment: req.Attachment}
	msg, err := h.messageService.EditLessonMessage(c.Request.Context(), viewer, messageID, input)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": msg})
}

func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	messageID, err := pathInt64(c, "id")
	if err != nil {
		RespondError(c, err)
		return
	}
	viewer := requestdata.Viewer(c.Request.Context())
	if err := h.messageService.DeleteLessonMessage(c.Request.Context(), viewer, messageID); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}

// UploadAttachment accepts a multipart file and returns the stored object's
// public url and metadata; the client then references it in a message send.
func (h *MessageHandler) UploadAttachment(c *gin.Context) {
	viewer := requestdata.Viewer(c.Request.Context())
	if viewer == nil {
		RespondError(c, apierr.Unauthenticated("authentication required"))
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		RespondError(c, apierr.Validation("multipart field 'file' is required"))
		return
	}
	f, err := header.Open()
	if err != nil {
		RespondError(c, apierr.Internal(err))
		return
	}
	defer f.Close()

	stored, err := h.storage.Save(c.Request.Context(), header.Filename, header.Header.Get("Content-Type"), header.Size, f)
	if err != nil {
		h.log.Error("UploadAttachment failed", "error", err, "file_name", header.Filename, "size", header.Size)
		RespondError(c, err)
		return
	}
	RespondCreated(c, gin.H{"file": stored})
}
