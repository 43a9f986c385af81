package services

import (
	"context"

	"github.com/davrbek/coursehub-backend/internal/platform/apierr"
	"github.com/davrbek/coursehub-backend/internal/platform/logger"
	"github.com/davrbek/coursehub-backend/internal/repos"
	"github.com/davrbek/coursehub-backend/internal/types"
)

// LessonListItem is a lesson row annotated with the gate decision for the
// viewer. Locked lessons keep their metadata but lose the video url.
type LessonListItem struct {
	*types.CourseLesson
	IsFree   bool `json:"is_free"`
	IsLocked bool `json:"is_locked"`
}

type CourseView struct {
	*types.Course
	IsPurchased bool              `json:"is_purchased"`
	LessonItems []*LessonListItem `json:"lesson_items"`
}

type CourseService interface {
	List(ctx context.Context, viewer *types.User) ([]*CourseView, error)
	Get(ctx context.Context, viewer *types.User, courseID string) (*CourseView, error)
	Purchase(ctx context.Context, viewer *types.User, courseID string) error
	IsPurchased(ctx context.Context, viewer *types.User, courseID string) (bool, error)
}

type courseService struct {
	log        *logger.Logger
	courseRepo repos.CourseRepo
	access     AccessService
}

func NewCourseService(baseLog *logger.Logger, courseRepo repos.CourseRepo, access AccessService) CourseService {
	return &courseService{
		log:        baseLog.With("service", "CourseService"),
		courseRepo: courseRepo,
		access:     access,
	}
}

func (cs *courseService) buildView(viewer *types.User, course *types.Course, purchased bool) *CourseView {
	items := make([]*LessonListItem, 0, len(course.Lessons))
	for _, lesson := range course.Lessons {
		item := &LessonListItem{
			CourseLesson: lesson,
			IsFree:       LessonIsFree(lesson.Position),
			IsLocked:     LessonLockedFor(viewer, lesson, purchased),
		}
		if item.IsLocked {
			// Copy before clearing so the shared row stays intact.
			stripped := *lesson
			stripped.VideoURL = nil
			item.CourseLesson = &stripped
		}
		items = append(items, item)
	}
	return &CourseView{Course: course, IsPurchased: purchased, LessonItems: items}
}

func (cs *courseService) List(ctx context.Context, viewer *types.User) ([]*CourseView, error) {
	courses, err := cs.courseRepo.List(ctx, nil)
	if err != nil {
		return nil, apierr.Internal(err)
	}

	views := make([]*CourseView, 0, len(courses))
	for _, course := range courses {
		purchased, err := cs.access.IsPurchased(ctx, viewer, course.ID)
		if err != nil {
			return nil, apierr.Internal(err)
		}
		views = append(views, cs.buildView(viewer, course, purchased))
	}
	return views, nil
}

func (cs *courseService) Get(ctx context.Context, viewer *types.User, courseID string) (*CourseView, error) {
	course, err := cs.courseRepo.GetByID(ctx, nil, courseID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if course == nil {
		return nil, apierr.NotFound("course %q not found", courseID)
	}
	purchased, err := cs.access.IsPurchased(ctx, viewer, course.ID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	return cs.buildView(viewer, course, purchased), nil
}

func (cs *courseService) Purchase(ctx context.Context, viewer *types.User, courseID string) error {
	if viewer == nil {
		return apierr.Unauthenticated("authentication required")
	}
	course, err := cs.courseRepo.GetByID(ctx, nil, courseID)
	if err != nil {
		return apierr.Internal(err)
	}
	if course == nil {
		return apierr.NotFound("course %q not found", courseID)
	}
	if err := cs.access.RecordPurchase(ctx, viewer, courseID); err != nil {
		return apierr.Internal(err)
	}
	return nil
}

func (cs *courseService) IsPurchased(ctx context.Context, viewer *types.User, courseID string) (bool, error) {
	course, err := cs.courseRepo.GetByID(ctx, nil, courseID)
	if err != nil {
		return false, apierr.Internal(err)
	}
	if course == nil {
		return false, apierr.NotFound("course %q not found", courseID)
	}
	purchased, err := cs.access.IsPurchased(ctx, viewer, courseID)
	if err != nil {
		return false, apierr.Internal(err)
	}
	return purchased, nil
}
