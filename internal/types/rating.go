package types

import (
	"time"
)

type CourseRating struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	CourseID  string    `gorm:"size:255;not null;uniqueIndex:uq_course_rating" json:"course_id"`
	UserID    int64     `gorm:"not null;uniqueIndex:uq_course_rating" json:"user_id"`
	Rating    int       `gorm:"not null" json:"rating"`
	Review    *string   `gorm:"type:text" json:"review,omitempty"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (CourseRating) TableName() string { return "course_ratings" }

type TeacherRating struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	TeacherName string    `gorm:"size:255;not null;uniqueIndex:uq_teacher_rating" json:"teacher_name"`
	UserID      int64     `gorm:"not null;uniqueIndex:uq_teacher_rating" json:"user_id"`
	Rating      int       `gorm:"not null" json:"rating"`
	Review      *string   `gorm:"type:text" json:"review,omitempty"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (TeacherRating) TableName() string { return "teacher_ratings" }

type RatingSummary struct {
	Average  float64 `json:"average"`
	Count    int64   `json:"count"`
	MyRating *int    `json:"my_rating,omitempty"`
}
