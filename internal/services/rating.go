package services

import (
	"context"

	"github.com/davrbek/coursehub-backend/internal/normalization"
	"github.com/davrbek/coursehub-backend/internal/platform/apierr"
	"github.com/davrbek/coursehub-backend/internal/platform/logger"
	"github.com/davrbek/coursehub-backend/internal/repos"
	"github.com/davrbek/coursehub-backend/internal/types"
)

type RatingService interface {
	RateCourse(ctx context.Context, viewer *types.User, courseID string, rating int, review *string) (*types.RatingSummary, error)
	RateTeacher(ctx context.Context, viewer *types.User, teacherName string, rating int, review *string) (*types.RatingSummary, error)
	CourseSummary(ctx context.Context, viewer *types.User, courseID string) (*types.RatingSummary, error)
	TeacherSummary(ctx context.Context, viewer *types.User, teacherName string) (*types.RatingSummary, error)
}

type ratingService struct {
	log        *logger.Logger
	courseRepo repos.CourseRepo
	ratingRepo repos.RatingRepo
}

func NewRatingService(baseLog *logger.Logger, courseRepo repos.CourseRepo, ratingRepo repos.RatingRepo) RatingService {
	return &ratingService{
		log:        baseLog.With("service", "RatingService"),
		courseRepo: courseRepo,
		ratingRepo: ratingRepo,
	}
}

func validateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return apierr.Validation("rating must be between 1 and 5")
	}
	return nil
}

func (rs *ratingService) RateCourse(ctx context.Context, viewer *types.User, courseID string, rating int, review *string) (*types.RatingSummary, error) {
	if viewer == nil {
		return nil, apierr.Unauthenticated("authentication required")
	}
	if err := validateRating(rating); err != nil {
		return nil, err
	}
	course, err := rs.courseRepo.GetByID(ctx, nil, courseID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if course == nil {
		return nil, apierr.NotFound("course %q not found", courseID)
	}

	if err := rs.ratingRepo.UpsertCourseRating(ctx, nil, &types.CourseRating{
		CourseID: courseID,
		UserID:   viewer.ID,
		Rating:   rating,
		Review:   review,
	}); err != nil {
		return nil, apierr.Internal(err)
	}
	return rs.CourseSummary(ctx, viewer, courseID)
}

func (rs *ratingService) RateTeacher(ctx context.Context, viewer *types.User, teacherName string, rating int, review *string) (*types.RatingSummary, error) {
	if viewer == nil {
		return nil, apierr.Unauthenticated("authentication required")
	}
	if err := validateRating(rating); err != nil {
		return nil, err
	}
	teacherName = normalization.ParseInputString(teacherName)
	if teacherName == "" {
		return nil, apierr.Validation("teacher name is required")
	}

	if err := rs.ratingRepo.UpsertTeacherRating(ctx, nil, &types.TeacherRating{
		TeacherName: teacherName,
		UserID:      viewer.ID,
		Rating:      rating,
		Review:      review,
	}); err != nil {
		return nil, apierr.Internal(err)
	}
	return rs.TeacherSummary(ctx, viewer, teacherName)
}

func (rs *ratingService) CourseSummary(ctx context.Context, viewer *types.User, courseID string) (*types.RatingSummary, error) {
	var viewerID *int64
	if viewer != nil {
		viewerID = &viewer.ID
	}
	summary, err := rs.ratingRepo.CourseSummary(ctx, nil, courseID, viewerID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	return summary, nil
}

func (rs *ratingService) TeacherSummary(ctx context.Context, viewer *types.User, teacherName string) (*types.RatingSummary, error) {
	var viewerID *int64
	if viewer != nil {
		viewerID = &viewer.ID
	}
	summary, err := rs.ratingRepo.TeacherSummary(ctx, nil, normalization.ParseInputString(teacherName), viewerID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	return summary, nil
}
