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

type SubmissionCounts struct {
	Submissions int64
	Graded      int64
}

type AssignmentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, a *types.LessonAssignment) error
	CreateBatch(ctx context.Context, tx *gorm.DB, as []*types.LessonAssignment) error
	GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.LessonAssignment, error)
	ListByLesson(ctx context.Context, tx *gorm.DB, lessonID int64) ([]*types.LessonAssignment, error)

	UpsertSubmission(ctx context.Context, tx *gorm.DB, sub *types.AssignmentSubmission) (*types.AssignmentSubmission, error)
	GetSubmission(ctx context.Context, tx *gorm.DB, assignmentID, studentID int64) (*types.AssignmentSubmission, error)
	GetSubmissionByID(ctx context.Context, tx *gorm.DB, id int64) (*types.AssignmentSubmission, error)
	ListSubmissions(ctx context.Context, tx *gorm.DB, assignmentID int64) ([]*types.AssignmentSubmission, error)
	SaveGrade(ctx context.Context, tx *gorm.DB, sub *types.AssignmentSubmission) error
	CountsByAssignment(ctx context.Context, tx *gorm.DB, assignmentIDs []int64) (map[int64]SubmissionCounts, error)
	SubmissionsForStudent(ctx context.Context, tx *gorm.DB, assignmentIDs []int64, studentID int64) (map[int64]*types.AssignmentSubmission, error)
}

type assignmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) AssignmentRepo {
	return &assignmentRepo{db: db, log: baseLog.With("repo", "AssignmentRepo")}
}

func (ar *assignmentRepo) Create(ctx context.Context, tx *gorm.DB, a *types.LessonAssignment) error {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	return transaction.WithContext(ctx).Create(a).Error
}

func (ar *assignmentRepo) CreateBatch(ctx context.Context, tx *gorm.DB, as []*types.LessonAssignment) error {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	if len(as) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).Create(&as).Error
}

func (ar *assignmentRepo) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.LessonAssignment, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	var a types.LessonAssignment
	err := transaction.WithContext(ctx).First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (ar *assignmentRepo) ListByLesson(ctx context.Context, tx *gorm.DB, lessonID int64) ([]*types.LessonAssignment, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	var results []*types.LessonAssignment
	if err := transaction.WithContext(ctx).
		Where("lesson_id = ?", lessonID).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// UpsertSubmission inserts the student's submission or, on the
// (assignment, student) conflict, replaces the content and clears any prior
// grade so the resubmission starts ungraded.
func (ar *assignmentRepo) UpsertSubmission(ctx context.Context, tx *gorm.DB, sub *types.AssignmentSubmission) (*types.AssignmentSubmission, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	now := time.Now()
	sub.CreatedAt = now
	if err := transaction.WithContext(ctx).
		Clauses(submissionConflict(sub, now)).
		Create(sub).Error; err != nil {
		return nil, err
	}
	return ar.GetSubmission(ctx, transaction, sub.AssignmentID, sub.StudentID)
}

// submissionConflict resolves the (assignment_id, student_id) collision:
// the resubmission replaces the content and nulls every grade field.
func submissionConflict(sub *types.AssignmentSubmission, now time.Time) clause.OnConflict {
	return clause.OnConflict{
		Columns: []clause.Column{{Name: "assignment_id"}, {Name: "student_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"content":    sub.Content,
			"created_at": now,
			"rating":     nil,
			"feedback":   nil,
			"graded_by":  nil,
			"graded_at":  nil,
		}),
	}
}

func (ar *assignmentRepo) GetSubmission(ctx context.Context, tx *gorm.DB, assignmentID, studentID int64) (*types.AssignmentSubmission, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	var sub types.AssignmentSubmission
	err := transaction.WithContext(ctx).
		Preload("Student").
		Preload("Grader").
		First(&sub, "assignment_id = ? AND student_id = ?", assignmentID, studentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (ar *assignmentRepo) GetSubmissionByID(ctx context.Context, tx *gorm.DB, id int64) (*types.AssignmentSubmission, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	var sub types.AssignmentSubmission
	err := transaction.WithContext(ctx).
		Preload("Student").
		Preload("Grader").
		First(&sub, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (ar *assignmentRepo) ListSubmissions(ctx context.Context, tx *gorm.DB, assignmentID int64) ([]*types.AssignmentSubmission, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	var results []*types.AssignmentSubmission
	if err := transaction.WithContext(ctx).
		Preload("Student").
		Preload("Grader").
		Where("assignment_id = ?", assignmentID).
		Order("created_at ASC, id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ar *assignmentRepo) SaveGrade(ctx context.Context, tx *gorm.DB, sub *types.AssignmentSubmission) error {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	return transaction.WithContext(ctx).
		Model(&types.AssignmentSubmission{}).
		Where("id = ?", sub.ID).
		Updates(map[string]interface{}{
			"rating":    sub.Rating,
			"feedback":  sub.Feedback,
			"graded_by": sub.GradedBy,
			"graded_at": sub.GradedAt,
		}).Error
}

func (ar *assignmentRepo) CountsByAssignment(ctx context.Context, tx *gorm.DB, assignmentIDs []int64) (map[int64]SubmissionCounts, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	out := make(map[int64]SubmissionCounts, len(assignmentIDs))
	if len(assignmentIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		AssignmentID int64
		Submissions  int64
		Graded       int64
	}
	if err := transaction.WithContext(ctx).
		Model(&types.AssignmentSubmission{}).
		Select("assignment_id, COUNT(*) AS submissions, COUNT(rating) AS graded").
		Where("assignment_id IN ?", assignmentIDs).
		Group("assignment_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.AssignmentID] = SubmissionCounts{Submissions: r.Submissions, Graded: r.Graded}
	}
	return out, nil
}

func (ar *assignmentRepo) SubmissionsForStudent(ctx context.Context, tx *gorm.DB, assignmentIDs []int64, studentID int64) (map[int64]*types.AssignmentSubmission, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	out := make(map[int64]*types.AssignmentSubmission, len(assignmentIDs))
	if len(assignmentIDs) == 0 {
		return out, nil
	}

	var subs []*types.AssignmentSubmission
	if err := transaction.WithContext(ctx).
		Preload("Grader").
		Where("assignment_id IN ? AND student_id = ?", assignmentIDs, studentID).
		Find(&subs).Error; err != nil {
		return nil, err
	}
	for _, s := range subs {
		out[s.AssignmentID] = s
	}
	return out, nil
}
