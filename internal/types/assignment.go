package types

import (
	"time"
)

type LessonAssignment struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	LessonID    int64     `gorm:"not null;index" json:"lesson_id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	MaxRating   int       `gorm:"not null;default:5" json:"max_rating"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (LessonAssignment) TableName() string { return "lesson_assignments" }

// AssignmentSubmission is unique per (assignment, student). Grade fields are
// cleared whenever the student resubmits.
type AssignmentSubmission struct {
	ID           int64      `gorm:"primaryKey" json:"id"`
	AssignmentID int64      `gorm:"not null;uniqueIndex:uq_assignment_submission" json:"assignment_id"`
	StudentID    int64      `gorm:"not null;uniqueIndex:uq_assignment_submission" json:"student_id"`
	Student      *User      `gorm:"foreignKey:StudentID;references:ID" json:"-"`
	Content      string     `gorm:"type:text;not null" json:"content"`
	CreatedAt    time.Time  `gorm:"not null;default:now()" json:"created_at"`
	Rating       *int       `json:"rating,omitempty"`
	Feedback     *string    `gorm:"type:text" json:"feedback,omitempty"`
	GradedBy     *int64     `json:"graded_by,omitempty"`
	Grader       *User      `gorm:"foreignKey:GradedBy;references:ID" json:"-"`
	GradedAt     *time.Time `json:"graded_at,omitempty"`
}

func (AssignmentSubmission) TableName() string { return "assignment_submissions" }
