package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/davrbek/coursehub-backend/internal/normalization"
	"github.com/davrbek/coursehub-backend/internal/platform/apierr"
	"github.com/davrbek/coursehub-backend/internal/platform/logger"
	"github.com/davrbek/coursehub-backend/internal/repos"
	"github.com/davrbek/coursehub-backend/internal/types"
	"github.com/davrbek/coursehub-backend/internal/ws"
)

// MaxBulkAssignments caps a single bulk create request.
const MaxBulkAssignments = 30

type AssignmentInput struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	MaxRating   int     `json:"max_rating"`
}

// AssignmentView is an assignment annotated for the viewer: staff see
// submission counts, students see their own submission.
type AssignmentView struct {
	*types.LessonAssignment
	SubmissionCount *int64                      `json:"submission_count,omitempty"`
	GradedCount     *int64                      `json:"graded_count,omitempty"`
	MySubmission    *types.AssignmentSubmission `json:"my_submission,omitempty"`
}

type AssignmentService interface {
	Create(ctx context.Context, viewer *types.User, lessonID int64, input AssignmentInput) (*types.LessonAssignment, error)
	BulkCreate(ctx context.Context, viewer *types.User, lessonID int64, inputs []AssignmentInput) ([]*types.LessonAssignment, error)
	List(ctx context.Context, viewer *types.User, lessonID int64) ([]*AssignmentView, error)
	Submit(ctx context.Context, viewer *types.User, assignmentID int64, content string) (*types.AssignmentSubmission, error)
	ListSubmissions(ctx context.Context, viewer *types.User, assignmentID int64) ([]*types.AssignmentSubmission, error)
	Grade(ctx context.Context, viewer *types.User, submissionID int64, rating int, feedback *string) (*types.AssignmentSubmission, error)
}

type assignmentService struct {
	db             *gorm.DB
	log            *logger.Logger
	lessonRepo     repos.LessonRepo
	assignmentRepo repos.AssignmentRepo
	access         AccessService
	hub            *ws.Hub
}

func NewAssignmentService(
	db *gorm.DB,
	baseLog *logger.Logger,
	lessonRepo repos.LessonRepo,
	assignmentRepo repos.AssignmentRepo,
	access AccessService,
	hub *ws.Hub,
) AssignmentService {
	return &assignmentService{
		db:             db,
		log:            baseLog.With("service", "AssignmentService"),
		lessonRepo:     lessonRepo,
		assignmentRepo: assignmentRepo,
		access:         access,
		hub:            hub,
	}
}

// publish pushes a lesson-scoped event best effort. A panicking or failing
// subscriber must never undo a committed write, so everything is swallowed
// here.
func (as *assignmentService) publish(lessonID int64, ev ws.Event) {
	defer func() {
		if r := recover(); r != nil {
			as.log.Error("Event publish panicked", "lesson_id", lessonID, "event", ev.Event, "panic", r)
		}
	}()
	as.hub.Broadcast(lessonID, ev)
}

func (as *assignmentService) requireStaff(viewer *types.User) error {
	if viewer == nil {
		return apierr.Unauthenticated("authentication required")
	}
	if !viewer.IsStaff() {
		return apierr.Forbidden("staff role required")
	}
	return nil
}

func (as *assignmentService) requireLesson(ctx context.Context, lessonID int64) (*types.CourseLesson, error) {
	lesson, err := as.lessonRepo.GetByID(ctx, nil, lessonID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if lesson == nil {
		return nil, apierr.NotFound("lesson %d not found", lessonID)
	}
	return lesson, nil
}

func buildAssignment(lessonID int64, input AssignmentInput) (*types.LessonAssignment, error) {
	title := normalization.ParseInputString(input.Title)
	if title == "" {
		return nil, apierr.Validation("assignment title is required")
	}
	maxRating := input.MaxRating
	if maxRating == 0 {
		maxRating = 5
	}
	if maxRating < 1 {
		return nil, apierr.Validation("max_rating must be positive")
	}
	return &types.LessonAssignment{
		LessonID:    lessonID,
		Title:       title,
		Description: input.Description,
		MaxRating:   maxRating,
	}, nil
}

func (as *assignmentService) Create(ctx context.Context, viewer *types.User, lessonID int64, input AssignmentInput) (*types.LessonAssignment, error) {
	if err := as.requireStaff(viewer); err != nil {
		return nil, err
	}
	if _, err := as.requireLesson(ctx, lessonID); err != nil {
		return nil, err
	}

	a, err := buildAssignment(lessonID, input)
	if err != nil {
		return nil, err
	}
	if err := as.assignmentRepo.Create(ctx, nil, a); err != nil {
		return nil, apierr.Internal(err)
	}

	as.publish(lessonID, ws.Event{Event: ws.EventAssignmentCreated, Data: a})
	return a, nil
}

func (as *assignmentService) BulkCreate(ctx context.Context, viewer *types.User, lessonID int64, inputs []AssignmentInput) ([]*types.LessonAssignment, error) {
	if err := as.requireStaff(viewer); err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, apierr.Validation("at least one assignment is required")
	}
	if len(inputs) > MaxBulkAssignments {
		return nil, apierr.Validation("at most %d assignments per request", MaxBulkAssignments)
	}
	if _, err := as.requireLesson(ctx, lessonID); err != nil {
		return nil, err
	}

	batch := make([]*types.LessonAssignment, 0, len(inputs))
	for _, input := range inputs {
		a, err := buildAssignment(lessonID, input)
		if err != nil {
			return nil, err
		}
		batch = append(batch, a)
	}
	if err := as.assignmentRepo.CreateBatch(ctx, nil, batch); err != nil {
		return nil, apierr.Internal(err)
	}

	as.publish(lessonID, ws.Event{Event: ws.EventAssignmentBulkCreated, Data: map[string]any{
		"lesson_id":   lessonID,
		"assignments": batch,
	}})
	return batch, nil
}

func (as *assignmentService) List(ctx context.Context, viewer *types.User, lessonID int64) ([]*AssignmentView, error) {
	lesson, err := as.requireLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	locked, err := as.access.LessonLocked(ctx, viewer, lesson)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if locked {
		return nil, apierr.Forbidden("lesson is locked")
	}

	assignments, err := as.assignmentRepo.ListByLesson(ctx, nil, lessonID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	ids := make([]int64, 0, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.ID)
	}

	views := make([]*AssignmentView, 0, len(assignments))
	if viewer != nil && viewer.IsStaff() {
		counts, err := as.assignmentRepo.CountsByAssignment(ctx, nil, ids)
		if err != nil {
			return nil, apierr.Internal(err)
		}
		for _, a := range assignments {
			c := counts[a.ID]
			subs, graded := c.Submissions, c.Graded
			views = append(views, &AssignmentView{LessonAssignment: a, SubmissionCount: &subs, GradedCount: &graded})
		}
		return views, nil
	}

	var mine map[int64]*types.AssignmentSubmission
	if viewer != nil {
		mine, err = as.assignmentRepo.SubmissionsForStudent(ctx, nil, ids, viewer.ID)
		if err != nil {
			return nil, apierr.Internal(err)
		}
	}
	for _, a := range assignments {
		views = append(views, &AssignmentView{LessonAssignment: a, MySubmission: mine[a.ID]})
	}
	return views, nil
}

func (as *assignmentService) Submit(ctx context.Context, viewer *types.User, assignmentID int64, content string) (*types.AssignmentSubmission, error) {
	if viewer == nil {
		return nil, apierr.Unauthenticated("authentication required")
	}
	assignment, err := as.assignmentRepo.GetByID(ctx, nil, assignmentID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if assignment == nil {
		return nil, apierr.NotFound("assignment %d not found", assignmentID)
	}
	lesson, err := as.requireLesson(ctx, assignment.LessonID)
	if err != nil {
		return nil, err
	}
	locked, err := as.access.LessonLocked(ctx, viewer, lesson)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if locked {
		return nil, apierr.Forbidden("lesson is locked")
	}

	content = normalization.ParseInputString(content)
	if content == "" {
		return nil, apierr.Validation("submission content is required")
	}

	sub, err := as.assignmentRepo.UpsertSubmission(ctx, nil, &types.AssignmentSubmission{
		AssignmentID: assignmentID,
		StudentID:    viewer.ID,
		Content:      content,
	})
	if err != nil {
		return nil, apierr.Internal(err)
	}

	as.publish(assignment.LessonID, ws.Event{Event: ws.EventSubmissionUpdated, Data: sub})
	return sub, nil
}

func (as *assignmentService) ListSubmissions(ctx context.Context, viewer *types.User, assignmentID int64) ([]*types.AssignmentSubmission, error) {
	if err := as.requireStaff(viewer); err != nil {
		return nil, err
	}
	assignment, err := as.assignmentRepo.GetByID(ctx, nil, assignmentID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if assignment == nil {
		return nil, apierr.NotFound("assignment %d not found", assignmentID)
	}
	subs, err := as.assignmentRepo.ListSubmissions(ctx, nil, assignmentID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	return subs, nil
}

func (as *assignmentService) Grade(ctx context.Context, viewer *types.User, submissionID int64, rating int, feedback *string) (*types.AssignmentSubmission, error) {
	if err := as.requireStaff(viewer); err != nil {
		return nil, err
	}
	sub, err := as.assignmentRepo.GetSubmissionByID(ctx, nil, submissionID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if sub == nil {
		return nil, apierr.NotFound("submission %d not found", submissionID)
	}
	assignment, err := as.assignmentRepo.GetByID(ctx, nil, sub.AssignmentID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if assignment == nil {
		return nil, apierr.NotFound("assignment %d not found", sub.AssignmentID)
	}
	if rating < 1 || rating > assignment.MaxRating {
		return nil, apierr.Validation("rating must be between 1 and %d", assignment.MaxRating)
	}

	now := time.Now().UTC()
	sub.Rating = &rating
	sub.Feedback = feedback
	sub.GradedBy = &viewer.ID
	sub.GradedAt = &now
	if err := as.assignmentRepo.SaveGrade(ctx, nil, sub); err != nil {
		return nil, apierr.Internal(err)
	}
	sub.Grader = viewer

	as.publish(assignment.LessonID, ws.Event{Event: ws.EventGradeUpdated, Data: sub})
	return sub, nil
}
