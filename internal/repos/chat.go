package repos

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/davrbek/coursehub-backend/internal/platform/logger"
	"github.com/davrbek/coursehub-backend/internal/types"
)

type PrivateChatRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.PrivateChat, error)
	UpsertByTriple(ctx context.Context, tx *gorm.DB, chat *types.PrivateChat) (*types.PrivateChat, error)
	ListByLessonStudent(ctx context.Context, tx *gorm.DB, lessonID, studentID int64) ([]*types.PrivateChat, error)
	ListByLesson(ctx context.Context, tx *gorm.DB, lessonID int64) ([]*types.PrivateChat, error)
	ListByStaff(ctx context.Context, tx *gorm.DB, lessonID, staffID int64) ([]*types.PrivateChat, error)
	Touch(ctx context.Context, tx *gorm.DB, chatID int64, at time.Time) error

	CreateMessage(ctx context.Context, tx *gorm.DB, msg *types.PrivateChatMessage) error
	ListMessages(ctx context.Context, tx *gorm.DB, chatID int64) ([]*types.PrivateChatMessage, error)

	// FetchMessagesMarkingRead returns the full thread and, when readerID
	// is non-nil, flips the other side's unread messages in the same
	// transaction as the read.
	FetchMessagesMarkingRead(ctx context.Context, tx *gorm.DB, chatID int64, readerID *int64) ([]*types.PrivateChatMessage, error)
	DeleteMessages(ctx context.Context, tx *gorm.DB, chatID int64) error
	LastMessageByChatIDs(ctx context.Context, tx *gorm.DB, chatIDs []int64) (map[int64]*types.PrivateChatMessage, error)
	UnreadCountByChatIDs(ctx context.Context, tx *gorm.DB, chatIDs []int64, readerID int64) (map[int64]int64, error)
}

type privateChatRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPrivateChatRepo(db *gorm.DB, baseLog *logger.Logger) PrivateChatRepo {
	return &privateChatRepo{db: db, log: baseLog.With("repo", "PrivateChatRepo")}
}

func (cr *privateChatRepo) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.PrivateChat, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var chat types.PrivateChat
	err := transaction.WithContext(ctx).
		Preload("Student").
		Preload("Teacher").
		First(&chat, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// UpsertByTriple creates the chat if the (lesson, student, teacher) triple
// is new and returns the winning row either way, so concurrent opens
// converge on one chat.
func (cr *privateChatRepo) UpsertByTriple(ctx context.Context, tx *gorm.DB, chat *types.PrivateChat) (*types.PrivateChat, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "lesson_id"}, {Name: "student_id"}, {Name: "teacher_id"}},
			DoNothing: true,
		}).
		Create(chat).Error; err != nil {
		return nil, err
	}
	if chat.ID != 0 {
		return chat, nil
	}

	var existing types.PrivateChat
	if err := transaction.WithContext(ctx).
		First(&existing, "lesson_id = ? AND student_id = ? AND teacher_id = ?",
			chat.LessonID, chat.StudentID, chat.TeacherID).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}

func (cr *privateChatRepo) ListByLessonStudent(ctx context.Context, tx *gorm.DB, lessonID, studentID int64) ([]*types.PrivateChat, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var results []*types.PrivateChat
	if err := transaction.WithContext(ctx).
		Preload("Student").
		Preload("Teacher").
		Preload("Teacher.Roles").
		Where("lesson_id = ? AND student_id = ?", lessonID, studentID).
		Order("updated_at DESC, id DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *privateChatRepo) ListByLesson(ctx context.Context, tx *gorm.DB, lessonID int64) ([]*types.PrivateChat, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var results []*types.PrivateChat
	if err := transaction.WithContext(ctx).
		Preload("Student").
		Preload("Teacher").
		Where("lesson_id = ?", lessonID).
		Order("updated_at DESC, id DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *privateChatRepo) ListByStaff(ctx context.Context, tx *gorm.DB, lessonID, staffID int64) ([]*types.PrivateChat, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var results []*types.PrivateChat
	if err := transaction.WithContext(ctx).
		Preload("Student").
		Preload("Teacher").
		Where("lesson_id = ? AND teacher_id = ?", lessonID, staffID).
		Order("updated_at DESC, id DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *privateChatRepo) Touch(ctx context.Context, tx *gorm.DB, chatID int64, at time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.PrivateChat{}).
		Where("id = ?", chatID).
		Update("updated_at", at).Error
}

func (cr *privateChatRepo) CreateMessage(ctx context.Context, tx *gorm.DB, msg *types.PrivateChatMessage) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	return transaction.WithContext(ctx).Create(msg).Error
}

func (cr *privateChatRepo) ListMessages(ctx context.Context, tx *gorm.DB, chatID int64) ([]*types.PrivateChatMessage, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var results []*types.PrivateChatMessage
	if err := transaction.WithContext(ctx).
		Preload("Attachment").
		Preload("Sender").
		Where("chat_id = ?", chatID).
		Order("created_at ASC, id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *privateChatRepo) markMessagesRead(ctx context.Context, tx *gorm.DB, chatID, readerID int64) error {
	return tx.WithContext(ctx).
		Model(&types.PrivateChatMessage{}).
		Where("chat_id = ? AND sender_id <> ? AND is_read = ?", chatID, readerID, false).
		Update("is_read", true).Error
}

func (cr *privateChatRepo) FetchMessagesMarkingRead(ctx context.Context, tx *gorm.DB, chatID int64, readerID *int64) ([]*types.PrivateChatMessage, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var results []*types.PrivateChatMessage
	if err := transaction.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		if readerID != nil {
			if err := cr.markMessagesRead(ctx, inner, chatID, *readerID); err != nil {
				return err
			}
		}
		var lerr error
		results, lerr = cr.ListMessages(ctx, inner, chatID)
		return lerr
	}); err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *privateChatRepo) DeleteMessages(ctx context.Context, tx *gorm.DB, chatID int64) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	return transaction.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Delete(&types.PrivateChatMessage{}).Error
}

func (cr *privateChatRepo) LastMessageByChatIDs(ctx context.Context, tx *gorm.DB, chatIDs []int64) (map[int64]*types.PrivateChatMessage, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	out := make(map[int64]*types.PrivateChatMessage, len(chatIDs))
	if len(chatIDs) == 0 {
		return out, nil
	}

	var msgs []*types.PrivateChatMessage
	if err := transaction.WithContext(ctx).
		Preload("Attachment").
		Where("chat_id IN ?", chatIDs).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	for _, m := range msgs {
		out[m.ChatID] = m
	}
	return out, nil
}

func (cr *privateChatRepo) UnreadCountByChatIDs(ctx context.Context, tx *gorm.DB, chatIDs []int64, readerID int64) (map[int64]int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	out := make(map[int64]int64, len(chatIDs))
	if len(chatIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		ChatID int64
		Count  int64
	}
	if err := transaction.WithContext(ctx).
		Model(&types.PrivateChatMessage{}).
		Select("chat_id, COUNT(*) AS count").
		Where("chat_id IN ? AND sender_id <> ? AND is_read = ?", chatIDs, readerID, false).
		Group("chat_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ChatID] = r.Count
	}
	return out, nil
}
