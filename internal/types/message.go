package types

import (
	"time"
)

// Attachment kinds form a closed set; anything else coerces to KindFile.
const (
	AttachmentKindSticker = "sticker"
	AttachmentKindImage   = "image"
	AttachmentKindVideo   = "video"
	AttachmentKindAudio   = "audio"
	AttachmentKindFile    = "file"
)

const (
	SenderUser  = "user"
	SenderStaff = "staff"
)

// AttachmentBody is the owned payload shared by both attachment tables.
type AttachmentBody struct {
	Kind            string   `gorm:"size:32;not null;default:file" json:"kind"`
	URL             *string  `gorm:"size:1024" json:"url,omitempty"`
	FileName        *string  `gorm:"size:255" json:"file_name,omitempty"`
	MimeType        *string  `gorm:"size:255" json:"mime_type,omitempty"`
	SizeBytes       *int64   `json:"size_bytes,omitempty"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
}

type LessonMessage struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	LessonID  int64     `gorm:"not null;index" json:"lesson_id"`
	UserID    *int64    `gorm:"index" json:"user_id,omitempty"`
	User      *User     `gorm:"foreignKey:UserID;references:ID" json:"-"`
	Sender    string    `gorm:"size:32;not null;default:user" json:"sender"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`

	Attachment *LessonMessageAttachment `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"attachment,omitempty"`
}

func (LessonMessage) TableName() string { return "lesson_messages" }

type LessonMessageAttachment struct {
	ID        int64 `gorm:"primaryKey" json:"id"`
	MessageID int64 `gorm:"not null;uniqueIndex" json:"-"`
	AttachmentBody
	CreatedAt time.Time `gorm:"not null;default:now()" json:"-"`
}

func (LessonMessageAttachment) TableName() string { return "lesson_message_attachments" }

type LessonNotification struct {
	ID             int64     `gorm:"primaryKey" json:"id"`
	RecipientID    int64     `gorm:"not null;index" json:"recipient_id"`
	SenderID       *int64    `json:"sender_id,omitempty"`
	MessageID      int64     `gorm:"not null" json:"message_id"`
	CourseID       string    `gorm:"size:255;not null" json:"course_id"`
	CourseTitle    string    `gorm:"size:255;not null" json:"course_title"`
	LessonID       int64     `gorm:"not null" json:"lesson_id"`
	LessonTitle    string    `gorm:"size:255;not null" json:"lesson_title"`
	MessageContent string    `gorm:"type:text;not null" json:"message_content"`
	IsRead         bool      `gorm:"not null;default:false" json:"is_read"`
	CreatedAt      time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (LessonNotification) TableName() string { return "lesson_notifications" }
