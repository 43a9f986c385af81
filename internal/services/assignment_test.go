package services

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/davrbek/coursehub-backend/internal/platform/apierr"
	"github.com/davrbek/coursehub-backend/internal/platform/logger"
	"github.com/davrbek/coursehub-backend/internal/repos"
	"github.com/davrbek/coursehub-backend/internal/types"
	"github.com/davrbek/coursehub-backend/internal/ws"
)

type fakeAssignmentRepo struct {
	repos.AssignmentRepo
	assignments map[int64]*types.LessonAssignment
	submissions map[int64]*types.AssignmentSubmission
	savedGrade  *types.AssignmentSubmission
	upserted    *types.AssignmentSubmission
}

func (f *fakeAssignmentRepo) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.LessonAssignment, error) {
	return f.assignments[id], nil
}

func (f *fakeAssignmentRepo) GetSubmissionByID(ctx context.Context, tx *gorm.DB, id int64) (*types.AssignmentSubmission, error) {
	return f.submissions[id], nil
}

func (f *fakeAssignmentRepo) SaveGrade(ctx context.Context, tx *gorm.DB, sub *types.AssignmentSubmission) error {
	f.savedGrade = sub
	return nil
}

func (f *fakeAssignmentRepo) UpsertSubmission(ctx context.Context, tx *gorm.DB, sub *types.AssignmentSubmission) (*types.AssignmentSubmission, error) {
	f.upserted = sub
	return sub, nil
}

func newAssignmentFixture(t *testing.T) (*fakeAssignmentRepo, AssignmentService) {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	repo := &fakeAssignmentRepo{
		assignments: map[int64]*types.LessonAssignment{},
		submissions: map[int64]*types.AssignmentSubmission{},
	}
	lessons := &fakeLessonRepo{lessons: map[int64]*types.CourseLesson{
		10: {ID: 10, CourseID: "go-basics", Position: 1},
	}}
	svc := NewAssignmentService(nil, log, lessons, repo, unlockedAccess{}, ws.NewHub("assignments", log))
	return repo, svc
}

func TestBuildAssignment(t *testing.T) {
	a, err := buildAssignment(10, AssignmentInput{Title: "  Write a parser  "})
	if err != nil {
		t.Fatalf("buildAssignment: %v", err)
	}
	if a.Title != "Write a parser" {
		t.Errorf("Title = %q, want trimmed", a.Title)
	}
	if a.MaxRating != 5 {
		t.Errorf("MaxRating = %d, want default 5", a.MaxRating)
	}

	if _, err := buildAssignment(10, AssignmentInput{Title: "   "}); err == nil {
		t.Error("blank title should be rejected")
	}
	if _, err := buildAssignment(10, AssignmentInput{Title: "x", MaxRating: -1}); err == nil {
		t.Error("negative max_rating should be rejected")
	}
}

func TestGradeRejectsOutOfRangeRating(t *testing.T) {
	repo, svc := newAssignmentFixture(t)
	repo.assignments[1] = &types.LessonAssignment{ID: 1, LessonID: 10, MaxRating: 5}
	repo.submissions[20] = &types.AssignmentSubmission{ID: 20, AssignmentID: 1, StudentID: 2}
	grader := staffUser(3, "teach", types.RoleTeacher)

	for _, rating := range []int{0, 6, -1} {
		_, err := svc.Grade(context.Background(), grader, 20, rating, nil)
		if ae := apierr.From(err); ae == nil || ae.Code != apierr.CodeValidation {
			t.Errorf("rating %d: want validation error, got %v", rating, err)
		}
	}
	if repo.savedGrade != nil {
		t.Fatal("no grade should be persisted for invalid ratings")
	}
}

func TestGradePersistsGraderAndTimestamp(t *testing.T) {
	repo, svc := newAssignmentFixture(t)
	repo.assignments[1] = &types.LessonAssignment{ID: 1, LessonID: 10, MaxRating: 5}
	repo.submissions[20] = &types.AssignmentSubmission{ID: 20, AssignmentID: 1, StudentID: 2}
	grader := staffUser(3, "teach", types.RoleTeacher)
	feedback := "solid work"

	sub, err := svc.Grade(context.Background(), grader, 20, 4, &feedback)
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if sub.Rating == nil || *sub.Rating != 4 {
		t.Errorf("Rating = %v, want 4", sub.Rating)
	}
	if sub.GradedBy == nil || *sub.GradedBy != grader.ID {
		t.Errorf("GradedBy = %v, want %d", sub.GradedBy, grader.ID)
	}
	if sub.GradedAt == nil {
		t.Error("GradedAt should be set")
	}
	if repo.savedGrade == nil {
		t.Fatal("grade should be persisted")
	}
}

func TestGradeRequiresStaff(t *testing.T) {
	_, svc := newAssignmentFixture(t)
	student := staffUser(2, "student", types.RoleUser)

	_, err := svc.Grade(context.Background(), student, 20, 4, nil)
	if ae := apierr.From(err); ae == nil || ae.Code != apierr.CodeForbidden {
		t.Fatalf("want forbidden, got %v", err)
	}

	_, err = svc.Grade(context.Background(), nil, 20, 4, nil)
	if ae := apierr.From(err); ae == nil || ae.Code != apierr.CodeUnauthenticated {
		t.Fatalf("want unauthenticated, got %v", err)
	}
}

func TestBulkCreateEnforcesCap(t *testing.T) {
	_, svc := newAssignmentFixture(t)
	staff := staffUser(3, "teach", types.RoleTeacher)

	inputs := make([]AssignmentInput, MaxBulkAssignments+1)
	for i := range inputs {
		inputs[i] = AssignmentInput{Title: "task"}
	}
	_, err := svc.BulkCreate(context.Background(), staff, 10, inputs)
	if ae := apierr.From(err); ae == nil || ae.Code != apierr.CodeValidation {
		t.Fatalf("want validation error for oversized batch, got %v", err)
	}

	_, err = svc.BulkCreate(context.Background(), staff, 10, nil)
	if ae := apierr.From(err); ae == nil || ae.Code != apierr.CodeValidation {
		t.Fatalf("want validation error for empty batch, got %v", err)
	}
}

func TestSubmitResubmissionStartsUngraded(t *testing.T) {
	repo, svc := newAssignmentFixture(t)
	repo.assignments[1] = &types.LessonAssignment{ID: 1, LessonID: 10, MaxRating: 5}
	student := staffUser(2, "student", types.RoleUser)

	// A graded submission already exists for this (assignment, student).
	rating := 4
	grader := int64(3)
	now := time.Now()
	feedback := "good"
	repo.submissions[20] = &types.AssignmentSubmission{
		ID: 20, AssignmentID: 1, StudentID: 2,
		Rating: &rating, Feedback: &feedback, GradedBy: &grader, GradedAt: &now,
	}

	sub, err := svc.Submit(context.Background(), student, 1, "take two")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if repo.upserted == nil {
		t.Fatal("resubmission must go through the submission upsert")
	}
	if repo.upserted.Rating != nil || repo.upserted.Feedback != nil ||
		repo.upserted.GradedBy != nil || repo.upserted.GradedAt != nil {
		t.Errorf("resubmission carried grade fields: %+v", repo.upserted)
	}
	if repo.savedGrade != nil {
		t.Error("resubmission must not touch the grading path")
	}
	if sub.Content != "take two" {
		t.Errorf("Content = %q, want the resubmitted text", sub.Content)
	}
}
