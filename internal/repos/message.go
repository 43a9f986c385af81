package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/davrbek/coursehub-backend/internal/platform/logger"
	"github.com/davrbek/coursehub-backend/internal/types"
)

type LessonMessageRepo interface {
	Create(ctx context.Context, tx *gorm.DB, msg *types.LessonMessage) error
	GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.LessonMessage, error)
	ListByLesson(ctx context.Context, tx *gorm.DB, lessonID int64) ([]*types.LessonMessage, error)
	UpdateContent(ctx context.Context, tx *gorm.DB, id int64, content string) error
	Delete(ctx context.Context, tx *gorm.DB, msg *types.LessonMessage) error
	ReplaceAttachment(ctx context.Context, tx *gorm.DB, messageID int64, att *types.LessonMessageAttachment) error
}

type lessonMessageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonMessageRepo(db *gorm.DB, baseLog *logger.Logger) LessonMessageRepo {
	return &lessonMessageRepo{db: db, log: baseLog.With("repo", "LessonMessageRepo")}
}

func (mr *lessonMessageRepo) Create(ctx context.Context, tx *gorm.DB, msg *types.LessonMessage) error {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}
	return transaction.WithContext(ctx).Create(msg).Error
}

func (mr *lessonMessageRepo) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.LessonMessage, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	var msg types.LessonMessage
	err := transaction.WithContext(ctx).
		Preload("Attachment").
		Preload("User").
		First(&msg, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (mr *lessonMessageRepo) ListByLesson(ctx context.Context, tx *gorm.DB, lessonID int64) ([]*types.LessonMessage, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	var results []*types.LessonMessage
	if err := transaction.WithContext(ctx).
		Preload("Attachment").
		Preload("User").
		Where("lesson_id = ?", lessonID).
		Order("created_at ASC, id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (mr *lessonMessageRepo) UpdateContent(ctx context.Context, tx *gorm.DB, id int64, content string) error {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.LessonMessage{}).
		Where("id = ?", id).
		Update("content", content).Error
}

func (mr *lessonMessageRepo) Delete(ctx context.Context, tx *gorm.DB, msg *types.LessonMessage) error {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}
	// The attachment row goes with it via the FK cascade.
	return transaction.WithContext(ctx).Delete(msg).Error
}

func (mr *lessonMessageRepo) ReplaceAttachment(ctx context.Context, tx *gorm.DB, messageID int64, att *types.LessonMessageAttachment) error {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}
	if err := transaction.WithContext(ctx).
		Where("message_id = ?", messageID).
		Delete(&types.LessonMessageAttachment{}).Error; err != nil {
		return err
	}
	if att == nil {
		return nil
	}
	att.MessageID = messageID
	return transaction.WithContext(ctx).Create(att).Error
}
