package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/davrbek/coursehub-backend/internal/platform/logger"
	"github.com/davrbek/coursehub-backend/internal/types"
)

type LessonRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.CourseLesson, error)
	ListSlides(ctx context.Context, tx *gorm.DB, lessonID int64) ([]*types.LessonSlide, error)
	ListResources(ctx context.Context, tx *gorm.DB, lessonID int64) ([]*types.LessonResource, error)
}

type lessonRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	return &lessonRepo{db: db, log: baseLog.With("repo", "LessonRepo")}
}

func (lr *lessonRepo) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.CourseLesson, error) {
	transaction := tx
	if transaction == nil {
		transaction = lr.db
	}

	var lesson types.CourseLesson
	err := transaction.WithContext(ctx).
		Preload("Course").
		First(&lesson, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (lr *lessonRepo) ListSlides(ctx context.Context, tx *gorm.DB, lessonID int64) ([]*types.LessonSlide, error) {
	transaction := tx
	if transaction == nil {
		transaction = lr.db
	}

	var results []*types.LessonSlide
	if err := transaction.WithContext(ctx).
		Where("lesson_id = ?", lessonID).
		Order("position ASC, id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (lr *lessonRepo) ListResources(ctx context.Context, tx *gorm.DB, lessonID int64) ([]*types.LessonResource, error) {
	transaction := tx
	if transaction == nil {
		transaction = lr.db
	}

	var results []*types.LessonResource
	if err := transaction.WithContext(ctx).
		Where("lesson_id = ?", lessonID).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
