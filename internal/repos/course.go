package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/davrbek/coursehub-backend/internal/platform/logger"
	"github.com/davrbek/coursehub-backend/internal/types"
)

type CourseRepo interface {
	List(ctx context.Context, tx *gorm.DB) ([]*types.Course, error)
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.Course, error)
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return &courseRepo{db: db, log: baseLog.With("repo", "CourseRepo")}
}

func (cr *courseRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var results []*types.Course
	if err := transaction.WithContext(ctx).
		Preload("Lessons", func(q *gorm.DB) *gorm.DB {
			return q.Order("course_lessons.position ASC, course_lessons.id ASC")
		}).
		Order("courses.created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *courseRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var course types.Course
	err := transaction.WithContext(ctx).
		Preload("Lessons", func(q *gorm.DB) *gorm.DB {
			return q.Order("course_lessons.position ASC, course_lessons.id ASC")
		}).
		First(&course, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &course, nil
}
