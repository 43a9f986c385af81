package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/davrbek/coursehub-backend/internal/normalization"
	"github.com/davrbek/coursehub-backend/internal/platform/apierr"
	"github.com/davrbek/coursehub-backend/internal/platform/logger"
	"github.com/davrbek/coursehub-backend/internal/repos"
	"github.com/davrbek/coursehub-backend/internal/types"
)

// AttachmentInput carries the optional attachment fields of a message write.
type AttachmentInput struct {
	Kind            string   `json:"attachment_kind"`
	URL             string   `json:"attachment_url"`
	FileName        string   `json:"attachment_name"`
	MimeType        string   `json:"attachment_mime"`
	SizeBytes       *int64   `json:"attachment_size"`
	DurationSeconds *float64 `json:"attachment_duration"`
}

func (a *AttachmentInput) empty() bool {
	return a == nil || (a.Kind == "" && a.URL == "" && a.FileName == "" && a.MimeType == "" && a.SizeBytes == nil && a.DurationSeconds == nil)
}

// NormalizeAttachmentKind coerces unknown or absent kinds to "file".
func NormalizeAttachmentKind(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case types.AttachmentKindSticker:
		return types.AttachmentKindSticker
	case types.AttachmentKindImage:
		return types.AttachmentKindImage
	case types.AttachmentKindVideo:
		return types.AttachmentKindVideo
	case types.AttachmentKindAudio:
		return types.AttachmentKindAudio
	default:
		return types.AttachmentKindFile
	}
}

// PreviewText substitutes a short human-readable string for attachment-only
// messages; messages with content keep their content.
func PreviewText(content string, att *types.AttachmentBody) string {
	if strings.TrimSpace(content) != "" {
		return content
	}
	if att == nil {
		return content
	}
	switch att.Kind {
	case types.AttachmentKindSticker:
		return "Sticker sent"
	case types.AttachmentKindImage:
		return "Image sent"
	case types.AttachmentKindVideo:
		return "Video sent"
	case types.AttachmentKindAudio:
		return "Voice message sent"
	default:
		if att.FileName != nil && *att.FileName != "" {
			return "File sent: " + *att.FileName
		}
		return "File sent"
	}
}

// buildAttachmentBody validates and normalizes a message's attachment input.
// Returns nil when no attachment fields are present.
func buildAttachmentBody(in *AttachmentInput) *types.AttachmentBody {
	if in.empty() {
		return nil
	}
	body := &types.AttachmentBody{Kind: NormalizeAttachmentKind(in.Kind)}
	if v := strings.TrimSpace(in.URL); v != "" {
		body.URL = &v
	}
	if v := strings.TrimSpace(in.FileName); v != "" {
		body.FileName = &v
	}
	if v := strings.TrimSpace(in.MimeType); v != "" {
		body.MimeType = &v
	}
	body.SizeBytes = in.SizeBytes
	body.DurationSeconds = in.DurationSeconds
	return body
}

type MessageInput struct {
	Content    string
	Attachment *AttachmentInput
}

type MessageService interface {
	ListLessonMessages(ctx context.Context, viewer *types.User, lessonID int64) ([]*types.LessonMessage, error)
	SendLessonMessage(ctx context.Context, viewer *types.User, lessonID int64, input MessageInput) (*types.LessonMessage, error)
	EditLessonMessage(ctx context.Context, viewer *types.User, messageID int64, input MessageInput) (*types.LessonMessage, error)
	DeleteLessonMessage(ctx context.Context, viewer *types.User, messageID int64) error
}

type messageService struct {
	db          *gorm.DB
	log         *logger.Logger
	lessonRepo  repos.LessonRepo
	messageRepo repos.LessonMessageRepo
	access      AccessService
	notifier    NotificationService
}

func NewMessageService(
	db *gorm.DB,
	baseLog *logger.Logger,
	lessonRepo repos.LessonRepo,
	messageRepo repos.LessonMessageRepo,
	access AccessService,
	notifier NotificationService,
) MessageService {
	return &messageService{
		db:          db,
		log:         baseLog.With("service", "MessageService"),
		lessonRepo:  lessonRepo,
		messageRepo: messageRepo,
		access:      access,
		notifier:    notifier,
	}
}

func (ms *messageService) requireUnlockedLesson(ctx context.Context, viewer *types.User, lessonID int64) (*types.CourseLesson, error) {
	lesson, err := ms.lessonRepo.GetByID(ctx, nil, lessonID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if lesson == nil {
		return nil, apierr.NotFound("lesson %d not found", lessonID)
	}
	locked, err := ms.access.LessonLocked(ctx, viewer, lesson)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if locked {
		return nil, apierr.Forbidden("lesson is locked")
	}
	return lesson, nil
}

func (ms *messageService) ListLessonMessages(ctx context.Context, viewer *types.User, lessonID int64) ([]*types.LessonMessage, error) {
	if _, err := ms.requireUnlockedLesson(ctx, viewer, lessonID); err != nil {
		return nil, err
	}
	msgs, err := ms.messageRepo.ListByLesson(ctx, nil, lessonID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	return msgs, nil
}

func (ms *messageService) SendLessonMessage(ctx context.Context, viewer *types.User, lessonID int64, input MessageInput) (*types.LessonMessage, error) {
	if viewer == nil {
		return nil, apierr.Unauthenticated("authentication required")
	}
	lesson, err := ms.requireUnlockedLesson(ctx, viewer, lessonID)
	if err != nil {
		return nil, err
	}

	content := normalization.ParseInputString(input.Content)
	attachment := buildAttachmentBody(input.Attachment)
	if content == "" && attachment == nil {
		return nil, apierr.Validation("message content or attachment is required")
	}

	sender := types.SenderUser
	if viewer.IsStaff() {
		sender = types.SenderStaff
	}

	msg := &types.LessonMessage{
		LessonID: lessonID,
		UserID:   &viewer.ID,
		Sender:   sender,
		Content:  content,
	}
	if attachment != nil {
		msg.Attachment = &types.LessonMessageAttachment{AttachmentBody: *attachment}
	}

	// The notification fanout shares the insert transaction: either the
	// message and its notifications all land, or none do.
	if err := ms.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ms.messageRepo.Create(ctx, tx, msg); err != nil {
			return err
		}
		if !viewer.IsStaff() {
			if err := ms.notifier.FanOutLessonMessage(ctx, tx, msg, lesson); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, apierr.Internal(err)
	}

	created, err := ms.messageRepo.GetByID(ctx, nil, msg.ID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	return created, nil
}

func (ms *messageService) EditLessonMessage(ctx context.Context, viewer *types.User, messageID int64, input MessageInput) (*types.LessonMessage, error) {
	if viewer == nil {
		return nil, apierr.Unauthenticated("authentication required")
	}
	msg, err := ms.messageRepo.GetByID(ctx, nil, messageID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if msg == nil {
		return nil, apierr.NotFound("message %d not found", messageID)
	}
	if !canModifyMessage(viewer, msg.UserID) {
		return nil, apierr.Forbidden("only the author or staff may edit a message")
	}

	content := normalization.ParseInputString(input.Content)

	// A nil Attachment field leaves the existing attachment alone; a
	// present one replaces it (an empty body removes it).
	var replacement *types.AttachmentBody
	replaceAttachment := input.Attachment != nil
	if replaceAttachment {
		replacement = buildAttachmentBody(input.Attachment)
	}

	remaining := msg.Attachment != nil
	if replaceAttachment {
		remaining = replacement != nil
	}
	if content == "" && !remaining {
		return nil, apierr.Validation("message content or attachment is required")
	}

	if err := ms.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ms.messageRepo.UpdateContent(ctx, tx, messageID, content); err != nil {
			return err
		}
		if replaceAttachment {
			var att *types.LessonMessageAttachment
			if replacement != nil {
				att = &types.LessonMessageAttachment{AttachmentBody: *replacement}
			}
			if err := ms.messageRepo.ReplaceAttachment(ctx, tx, messageID, att); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, apierr.Internal(err)
	}

	updated, err := ms.messageRepo.GetByID(ctx, nil, messageID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	return updated, nil
}

func (ms *messageService) DeleteLessonMessage(ctx context.Context, viewer *types.User, messageID int64) error {
	if viewer == nil {
		return apierr.Unauthenticated("authentication required")
	}
	msg, err := ms.messageRepo.GetByID(ctx, nil, messageID)
	if err != nil {
		return apierr.Internal(err)
	}
	if msg == nil {
		return apierr.NotFound("message %d not found", messageID)
	}
	if !canModifyMessage(viewer, msg.UserID) {
		return apierr.Forbidden("only the author or staff may delete a message")
	}
	if err := ms.messageRepo.Delete(ctx, nil, msg); err != nil {
		return apierr.Internal(err)
	}
	return nil
}

func canModifyMessage(viewer *types.User, authorID *int64) bool {
	if viewer.IsStaff() {
		return true
	}
	return authorID != nil && *authorID == viewer.ID
}
