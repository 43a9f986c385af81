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

type RatingRepo interface {
	UpsertCourseRating(ctx context.Context, tx *gorm.DB, rating *types.CourseRating) error
	UpsertTeacherRating(ctx context.Context, tx *gorm.DB, rating *types.TeacherRating) error
	CourseSummary(ctx context.Context, tx *gorm.DB, courseID string, viewerID *int64) (*types.RatingSummary, error)
	TeacherSummary(ctx context.Context, tx *gorm.DB, teacherName string, viewerID *int64) (*types.RatingSummary, error)
}

type ratingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRatingRepo(db *gorm.DB, baseLog *logger.Logger) RatingRepo {
	return &ratingRepo{db: db, log: baseLog.With("repo", "RatingRepo")}
}

func (rr *ratingRepo) UpsertCourseRating(ctx context.Context, tx *gorm.DB, rating *types.CourseRating) error {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"rating":     rating.Rating,
				"review":     rating.Review,
				"created_at": time.Now(),
			}),
		}).
		Create(rating).Error
}

func (rr *ratingRepo) UpsertTeacherRating(ctx context.Context, tx *gorm.DB, rating *types.TeacherRating) error {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "teacher_name"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"rating":     rating.Rating,
				"review":     rating.Review,
				"created_at": time.Now(),
			}),
		}).
		Create(rating).Error
}

func (rr *ratingRepo) CourseSummary(ctx context.Context, tx *gorm.DB, courseID string, viewerID *int64) (*types.RatingSummary, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var agg struct {
		Average float64
		Count   int64
	}
	if err := transaction.WithContext(ctx).
		Model(&types.CourseRating{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count").
		Where("course_id = ?", courseID).
		Scan(&agg).Error; err != nil {
		return nil, err
	}

	summary := &types.RatingSummary{Average: agg.Average, Count: agg.Count}
	if viewerID != nil {
		var mine types.CourseRating
		err := transaction.WithContext(ctx).
			First(&mine, "course_id = ? AND user_id = ?", courseID, *viewerID).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if err == nil {
			summary.MyRating = &mine.Rating
		}
	}
	return summary, nil
}

func (rr *ratingRepo) TeacherSummary(ctx context.Context, tx *gorm.DB, teacherName string, viewerID *int64) (*types.RatingSummary, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var agg struct {
		Average float64
		Count   int64
	}
	if err := transaction.WithContext(ctx).
		Model(&types.TeacherRating{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count").
		Where("teacher_name = ?", teacherName).
		Scan(&agg).Error; err != nil {
		return nil, err
	}

	summary := &types.RatingSummary{Average: agg.Average, Count: agg.Count}
	if viewerID != nil {
		var mine types.TeacherRating
		err := transaction.WithContext(ctx).
			First(&mine, "teacher_name = ? AND user_id = ?", teacherName, *viewerID).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if err == nil {
			summary.MyRating = &mine.Rating
		}
	}
	return summary, nil
}
