package services

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/davrbek/coursehub-backend/internal/platform/logger"
	"github.com/davrbek/coursehub-backend/internal/repos"
	"github.com/davrbek/coursehub-backend/internal/types"
)

type fakeStaffRepo struct {
	repos.UserRepo
	staff []*types.User
}

func (f *fakeStaffRepo) StaffRecipients(ctx context.Context, tx *gorm.DB, excludeUserID *int64) ([]*types.User, error) {
	var out []*types.User
	for _, u := range f.staff {
		if excludeUserID != nil && u.ID == *excludeUserID {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

type fakeNotificationRepo struct {
	repos.NotificationRepo
	created []*types.LessonNotification
}

func (f *fakeNotificationRepo) CreateBatch(ctx context.Context, tx *gorm.DB, rows []*types.LessonNotification) error {
	f.created = append(f.created, rows...)
	return nil
}

func newNotifierFixture(t *testing.T, staff ...*types.User) (*fakeNotificationRepo, NotificationService) {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	notifications := &fakeNotificationRepo{}
	return notifications, NewNotificationService(log, &fakeStaffRepo{staff: staff}, notifications)
}

func TestFanOutExcludesSender(t *testing.T) {
	teacher := staffUser(3, "teach", types.RoleTeacher)
	admin := staffUser(4, "root", types.RoleAdmin)
	notifications, svc := newNotifierFixture(t, teacher, admin)

	senderID := int64(3)
	msg := &types.LessonMessage{ID: 8, LessonID: 10, UserID: &senderID, Content: "question about slides"}
	lesson := &types.CourseLesson{ID: 10, Title: "Interfaces", CourseID: "go-basics", Course: &types.Course{ID: "go-basics", Title: "Go Basics"}}

	if err := svc.FanOutLessonMessage(context.Background(), nil, msg, lesson); err != nil {
		t.Fatalf("FanOutLessonMessage: %v", err)
	}
	if len(notifications.created) != 1 {
		t.Fatalf("created %d notifications, want 1 (sender excluded)", len(notifications.created))
	}
	if notifications.created[0].RecipientID != admin.ID {
		t.Fatalf("RecipientID = %d, want %d", notifications.created[0].RecipientID, admin.ID)
	}
}

func TestFanOutDenormalizesTitlesAndPreview(t *testing.T) {
	teacher := staffUser(3, "teach", types.RoleTeacher)
	notifications, svc := newNotifierFixture(t, teacher)

	senderID := int64(2)
	msg := &types.LessonMessage{
		ID:       8,
		LessonID: 10,
		UserID:   &senderID,
		Attachment: &types.LessonMessageAttachment{
			AttachmentBody: types.AttachmentBody{Kind: types.AttachmentKindAudio},
		},
	}
	lesson := &types.CourseLesson{ID: 10, Title: "Interfaces", CourseID: "go-basics", Course: &types.Course{ID: "go-basics", Title: "Go Basics"}}

	if err := svc.FanOutLessonMessage(context.Background(), nil, msg, lesson); err != nil {
		t.Fatalf("FanOutLessonMessage: %v", err)
	}
	if len(notifications.created) != 1 {
		t.Fatalf("created %d notifications, want 1", len(notifications.created))
	}
	row := notifications.created[0]
	if row.CourseTitle != "Go Basics" || row.LessonTitle != "Interfaces" {
		t.Errorf("titles not denormalized: %+v", row)
	}
	if row.MessageContent != "Voice message sent" {
		t.Errorf("MessageContent = %q, want voice preview", row.MessageContent)
	}
	if row.MessageID != msg.ID || row.SenderID == nil || *row.SenderID != senderID {
		t.Errorf("provenance fields wrong: %+v", row)
	}
}

func TestFanOutWithNoRecipients(t *testing.T) {
	notifications, svc := newNotifierFixture(t)

	senderID := int64(2)
	msg := &types.LessonMessage{ID: 8, LessonID: 10, UserID: &senderID, Content: "hello"}
	lesson := &types.CourseLesson{ID: 10, Title: "Interfaces", CourseID: "go-basics"}

	if err := svc.FanOutLessonMessage(context.Background(), nil, msg, lesson); err != nil {
		t.Fatalf("FanOutLessonMessage: %v", err)
	}
	if len(notifications.created) != 0 {
		t.Fatalf("no rows expected, got %d", len(notifications.created))
	}
}
