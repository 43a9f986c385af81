package services

import (
	"context"

	"github.com/davrbek/coursehub-backend/internal/platform/apierr"
	"github.com/davrbek/coursehub-backend/internal/platform/logger"
	"github.com/davrbek/coursehub-backend/internal/repos"
	"github.com/davrbek/coursehub-backend/internal/types"
)

// LessonDetail is the full lesson page payload. A locked lesson keeps its
// metadata but ships empty slides, resources and chat history and no video.
type LessonDetail struct {
	*types.CourseLesson
	IsFree    bool                    `json:"is_free"`
	IsLocked  bool                    `json:"is_locked"`
	Slides    []*types.LessonSlide    `json:"slides"`
	Resources []*types.LessonResource `json:"resources"`
	Messages  []*types.LessonMessage  `json:"messages"`
}

type LessonService interface {
	GetDetail(ctx context.Context, viewer *types.User, lessonID int64) (*LessonDetail, error)
}

type lessonService struct {
	log         *logger.Logger
	lessonRepo  repos.LessonRepo
	messageRepo repos.LessonMessageRepo
	access      AccessService
}

func NewLessonService(baseLog *logger.Logger, lessonRepo repos.LessonRepo, messageRepo repos.LessonMessageRepo, access AccessService) LessonService {
	return &lessonService{
		log:         baseLog.With("service", "LessonService"),
		lessonRepo:  lessonRepo,
		messageRepo: messageRepo,
		access:      access,
	}
}

func (ls *lessonService) GetDetail(ctx context.Context, viewer *types.User, lessonID int64) (*LessonDetail, error) {
	lesson, err := ls.lessonRepo.GetByID(ctx, nil, lessonID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if lesson == nil {
		return nil, apierr.NotFound("lesson %d not found", lessonID)
	}

	locked, err := ls.access.LessonLocked(ctx, viewer, lesson)
	if err != nil {
		return nil, apierr.Internal(err)
	}

	detail := &LessonDetail{
		CourseLesson: lesson,
		IsFree:       LessonIsFree(lesson.Position),
		IsLocked:     locked,
		Slides:       []*types.LessonSlide{},
		Resources:    []*types.LessonResource{},
		Messages:     []*types.LessonMessage{},
	}
	if locked {
		stripped := *lesson
		stripped.VideoURL = nil
		detail.CourseLesson = &stripped
		return detail, nil
	}

	if detail.Slides, err = ls.lessonRepo.ListSlides(ctx, nil, lessonID); err != nil {
		return nil, apierr.Internal(err)
	}
	if detail.Resources, err = ls.lessonRepo.ListResources(ctx, nil, lessonID); err != nil {
		return nil, apierr.Internal(err)
	}
	if detail.Messages, err = ls.messageRepo.ListByLesson(ctx, nil, lessonID); err != nil {
		return nil, apierr.Internal(err)
	}
	return detail, nil
}
