package types

import (
	"time"
)

// PrivateChat is a one student / one staff member thread scoped to a lesson.
// The (lesson, student, teacher) triple is unique; concurrent opens converge
// on one row via upsert.
type PrivateChat struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	LessonID  int64     `gorm:"not null;uniqueIndex:uq_private_lesson_chat;index" json:"lesson_id"`
	StudentID int64     `gorm:"not null;uniqueIndex:uq_private_lesson_chat;index" json:"student_id"`
	TeacherID int64     `gorm:"not null;uniqueIndex:uq_private_lesson_chat;index" json:"teacher_id"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`

	Student *User `gorm:"foreignKey:StudentID;references:ID" json:"-"`
	Teacher *User `gorm:"foreignKey:TeacherID;references:ID" json:"-"`
}

func (PrivateChat) TableName() string { return "private_lesson_chats" }

func (c *PrivateChat) IsParticipant(userID int64) bool {
	return c != nil && (c.StudentID == userID || c.TeacherID == userID)
}

type PrivateChatMessage struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	ChatID    int64     `gorm:"not null;index" json:"chat_id"`
	SenderID  int64     `gorm:"not null;index" json:"sender_id"`
	Sender    *User     `gorm:"foreignKey:SenderID;references:ID" json:"-"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	IsRead    bool      `gorm:"not null;default:false" json:"is_read"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`

	Attachment *PrivateChatMessageAttachment `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"attachment,omitempty"`
}

func (PrivateChatMessage) TableName() string { return "private_lesson_messages" }

type PrivateChatMessageAttachment struct {
	ID        int64 `gorm:"primaryKey" json:"id"`
	MessageID int64 `gorm:"not null;uniqueIndex" json:"-"`
	AttachmentBody
	CreatedAt time.Time `gorm:"not null;default:now()" json:"-"`
}

func (PrivateChatMessageAttachment) TableName() string { return "private_lesson_message_attachments" }
