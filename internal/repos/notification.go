package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/davrbek/coursehub-backend/internal/platform/logger"
	"github.com/davrbek/coursehub-backend/internal/types"
)

type NotificationRepo interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, rows []*types.LessonNotification) error
	ListByRecipient(ctx context.Context, tx *gorm.DB, recipientID int64) ([]*types.LessonNotification, error)
	MarkRead(ctx context.Context, tx *gorm.DB, recipientID, notificationID int64) (int64, error)
	MarkAllRead(ctx context.Context, tx *gorm.DB, recipientID int64) error
	CountUnread(ctx context.Context, tx *gorm.DB, recipientID int64) (int64, error)
}

type notificationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNotificationRepo(db *gorm.DB, baseLog *logger.Logger) NotificationRepo {
	return &notificationRepo{db: db, log: baseLog.With("repo", "NotificationRepo")}
}

func (nr *notificationRepo) CreateBatch(ctx context.Context, tx *gorm.DB, rows []*types.LessonNotification) error {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}
	if len(rows) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).Create(&rows).Error
}

func (nr *notificationRepo) ListByRecipient(ctx context.Context, tx *gorm.DB, recipientID int64) ([]*types.LessonNotification, error) {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}

	var results []*types.LessonNotification
	if err := transaction.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC, id DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (nr *notificationRepo) MarkRead(ctx context.Context, tx *gorm.DB, recipientID, notificationID int64) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}

	res := transaction.WithContext(ctx).
		Model(&types.LessonNotification{}).
		Where("id = ? AND recipient_id = ?", notificationID, recipientID).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (nr *notificationRepo) MarkAllRead(ctx context.Context, tx *gorm.DB, recipientID int64) error {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.LessonNotification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Update("is_read", true).Error
}

func (nr *notificationRepo) CountUnread(ctx context.Context, tx *gorm.DB, recipientID int64) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.LessonNotification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
