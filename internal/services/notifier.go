package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/davrbek/coursehub-backend/internal/platform/apierr"
	"github.com/davrbek/coursehub-backend/internal/platform/logger"
	"github.com/davrbek/coursehub-backend/internal/repos"
	"github.com/davrbek/coursehub-backend/internal/types"
)

// NotificationService fans out lesson-chat activity to staff accounts and
// serves each user's notification feed.
type NotificationService interface {
	FanOutLessonMessage(ctx context.Context, tx *gorm.DB, msg *types.LessonMessage, lesson *types.CourseLesson) error
	List(ctx context.Context, viewer *types.User) ([]*types.LessonNotification, error)
	MarkRead(ctx context.Context, viewer *types.User, notificationID int64) error
	MarkAllRead(ctx context.Context, viewer *types.User) error
	CountUnread(ctx context.Context, viewer *types.User) (int64, error)
}

type notificationService struct {
	log              *logger.Logger
	userRepo         repos.UserRepo
	notificationRepo repos.NotificationRepo
}

func NewNotificationService(baseLog *logger.Logger, userRepo repos.UserRepo, notificationRepo repos.NotificationRepo) NotificationService {
	return &notificationService{
		log:              baseLog.With("service", "NotificationService"),
		userRepo:         userRepo,
		notificationRepo: notificationRepo,
	}
}

// FanOutLessonMessage writes one notification row per active staff member,
// excluding the sender. Course and lesson titles are denormalized onto the
// row so the feed renders without joins.
func (ns *notificationService) FanOutLessonMessage(ctx context.Context, tx *gorm.DB, msg *types.LessonMessage, lesson *types.CourseLesson) error {
	recipients, err := ns.userRepo.StaffRecipients(ctx, tx, msg.UserID)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		return nil
	}

	var att *types.AttachmentBody
	if msg.Attachment != nil {
		att = &msg.Attachment.AttachmentBody
	}
	preview := PreviewText(msg.Content, att)

	courseTitle := ""
	courseID := lesson.CourseID
	if lesson.Course != nil {
		courseTitle = lesson.Course.Title
	}

	rows := make([]*types.LessonNotification, 0, len(recipients))
	for _, r := range recipients {
		rows = append(rows, &types.LessonNotification{
			RecipientID:    r.ID,
			SenderID:       msg.UserID,
			MessageID:      msg.ID,
			LessonID:       lesson.ID,
			LessonTitle:    lesson.Title,
			CourseID:       courseID,
			CourseTitle:    courseTitle,
			MessageContent: preview,
		})
	}
	return ns.notificationRepo.CreateBatch(ctx, tx, rows)
}

func (ns *notificationService) List(ctx context.Context, viewer *types.User) ([]*types.LessonNotification, error) {
	if viewer == nil {
		return nil, apierr.Unauthenticated("authentication required")
	}
	rows, err := ns.notificationRepo.ListByRecipient(ctx, nil, viewer.ID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	return rows, nil
}

func (ns *notificationService) MarkRead(ctx context.Context, viewer *types.User, notificationID int64) error {
	if viewer == nil {
		return apierr.Unauthenticated("authentication required")
	}
	affected, err := ns.notificationRepo.MarkRead(ctx, nil, viewer.ID, notificationID)
	if err != nil {
		return apierr.Internal(err)
	}
	if affected == 0 {
		return apierr.NotFound("notification %d not found", notificationID)
	}
	return nil
}

func (ns *notificationService) MarkAllRead(ctx context.Context, viewer *types.User) error {
	if viewer == nil {
		return apierr.Unauthenticated("authentication required")
	}
	if err := ns.notificationRepo.MarkAllRead(ctx, nil, viewer.ID); err != nil {
		return apierr.Internal(err)
	}
	return nil
}

func (ns *notificationService) CountUnread(ctx context.Context, viewer *types.User) (int64, error) {
	if viewer == nil {
		return 0, apierr.Unauthenticated("authentication required")
	}
	n, err := ns.notificationRepo.CountUnread(ctx, nil, viewer.ID)
	if err != nil {
		return 0, apierr.Internal(err)
	}
	return n, nil
}
