package types

import (
	"time"
)

type Course struct {
	ID         string    `gorm:"size:255;primaryKey" json:"id"`
	Title      string    `gorm:"size:255;not null" json:"title"`
	Image      string    `gorm:"size:1024;not null" json:"image"`
	Category   string    `gorm:"size:128;not null" json:"category"`
	Duration   string    `gorm:"size:64;not null" json:"duration"`
	Price      string    `gorm:"size:64;not null" json:"price"`
	OldPrice   *string   `gorm:"size:64" json:"old_price,omitempty"`
	Instructor string    `gorm:"size:255;not null" json:"instructor"`
	Summary    string    `gorm:"type:text;not null" json:"summary"`
	Topics     []string  `gorm:"serializer:json" json:"topics"`
	Level      *string   `gorm:"size:64" json:"level,omitempty"`
	Students   *string   `gorm:"size:64" json:"students,omitempty"`
	Language   *string   `gorm:"size:64" json:"language,omitempty"`
	CreatedAt  time.Time `gorm:"not null;default:now()" json:"created_at"`

	Lessons []*CourseLesson `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"lessons,omitempty"`
}

func (Course) TableName() string { return "courses" }

type CourseLesson struct {
	ID       int64   `gorm:"primaryKey" json:"id"`
	CourseID string  `gorm:"size:255;not null;index" json:"course_id"`
	Course   *Course `gorm:"foreignKey:CourseID;references:ID" json:"-"`
	Title    string  `gorm:"size:255;not null" json:"title"`
	Duration string  `gorm:"size:64;not null" json:"duration"`
	Type     *string `gorm:"size:32" json:"type,omitempty"`
	VideoURL *string `gorm:"size:1024" json:"video_url,omitempty"`
	Position int     `gorm:"not null;default:0" json:"position"`
}

func (CourseLesson) TableName() string { return "course_lessons" }

type LessonSlide struct {
	ID       int64   `gorm:"primaryKey" json:"id"`
	LessonID int64   `gorm:"not null;index" json:"lesson_id"`
	Title    string  `gorm:"size:255;not null" json:"title"`
	ImageURL *string `gorm:"size:1024" json:"image_url,omitempty"`
	Content  *string `gorm:"type:text" json:"content,omitempty"`
	Position int     `gorm:"not null;default:0" json:"position"`
}

func (LessonSlide) TableName() string { return "lesson_slides" }

type LessonResource struct {
	ID       int64  `gorm:"primaryKey" json:"id"`
	LessonID int64  `gorm:"not null;index" json:"lesson_id"`
	Title    string `gorm:"size:255;not null" json:"title"`
	URL      string `gorm:"size:1024;not null" json:"url"`
	Kind     string `gorm:"size:64;not null" json:"kind"`
}

func (LessonResource) TableName() string { return "lesson_resources" }

type CoursePurchase struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	UserID      int64     `gorm:"not null;uniqueIndex:uq_course_purchase" json:"user_id"`
	CourseID    string    `gorm:"size:255;not null;uniqueIndex:uq_course_purchase" json:"course_id"`
	PurchasedAt time.Time `gorm:"not null;default:now()" json:"purchased_at"`
}

func (CoursePurchase) TableName() string { return "course_purchases" }
