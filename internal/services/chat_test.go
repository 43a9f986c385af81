package services

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/davrbek/coursehub-backend/internal/platform/apierr"
	"github.com/davrbek/coursehub-backend/internal/platform/logger"
	"github.com/davrbek/coursehub-backend/internal/repos"
	"github.com/davrbek/coursehub-backend/internal/types"
	"github.com/davrbek/coursehub-backend/internal/ws"
)

// The fakes embed the repo interface so only the methods the resolution path
// touches need implementations.

type fakeUserRepo struct {
	repos.UserRepo
	byID         map[int64]*types.User
	byNameRole   map[string]*types.User
	lowestByRole map[string]*types.User
}

func (f *fakeUserRepo) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.User, error) {
	return f.byID[id], nil
}

func (f *fakeUserRepo) FindActiveByNameAndRole(ctx context.Context, tx *gorm.DB, name, role string) (*types.User, error) {
	return f.byNameRole[name+"|"+role], nil
}

func (f *fakeUserRepo) LowestIDActiveByRole(ctx context.Context, tx *gorm.DB, role string) (*types.User, error) {
	return f.lowestByRole[role], nil
}

type fakeLessonRepo struct {
	repos.LessonRepo
	lessons map[int64]*types.CourseLesson
}

func (f *fakeLessonRepo) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.CourseLesson, error) {
	return f.lessons[id], nil
}

type fakeChatRepo struct {
	repos.PrivateChatRepo
	existing  []*types.PrivateChat
	upserted  *types.PrivateChat
	byID      map[int64]*types.PrivateChat
	messages  []*types.PrivateChatMessage
	markedFor []int64
}

func (f *fakeChatRepo) ListByLessonStudent(ctx context.Context, tx *gorm.DB, lessonID, studentID int64) ([]*types.PrivateChat, error) {
	return f.existing, nil
}

func (f *fakeChatRepo) UpsertByTriple(ctx context.Context, tx *gorm.DB, chat *types.PrivateChat) (*types.PrivateChat, error) {
	chat.ID = 101
	f.upserted = chat
	return chat, nil
}

func (f *fakeChatRepo) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.PrivateChat, error) {
	return f.byID[id], nil
}

func (f *fakeChatRepo) FetchMessagesMarkingRead(ctx context.Context, tx *gorm.DB, chatID int64, readerID *int64) ([]*types.PrivateChatMessage, error) {
	if readerID != nil {
		f.markedFor = append(f.markedFor, *readerID)
		for _, m := range f.messages {
			if m.ChatID == chatID && m.SenderID != *readerID {
				m.IsRead = true
			}
		}
	}
	var out []*types.PrivateChatMessage
	for _, m := range f.messages {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out, nil
}

type unlockedAccess struct{}

func (unlockedAccess) IsPurchased(ctx context.Context, viewer *types.User, courseID string) (bool, error) {
	return true, nil
}

func (unlockedAccess) LessonLocked(ctx context.Context, viewer *types.User, lesson *types.CourseLesson) (bool, error) {
	return false, nil
}

func (unlockedAccess) RecordPurchase(ctx context.Context, viewer *types.User, courseID string) error {
	return nil
}

func staffUser(id int64, name string, roles ...string) *types.User {
	u := &types.User{ID: id, Username: name, IsActive: true}
	for _, r := range roles {
		u.Roles = append(u.Roles, &types.Role{Name: r})
	}
	return u
}

type chatFixture struct {
	users   *fakeUserRepo
	lessons *fakeLessonRepo
	chats   *fakeChatRepo
	svc     ChatService
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}

	users := &fakeUserRepo{
		byID:         map[int64]*types.User{},
		byNameRole:   map[string]*types.User{},
		lowestByRole: map[string]*types.User{},
	}
	lessons := &fakeLessonRepo{lessons: map[int64]*types.CourseLesson{
		10: {
			ID:       10,
			CourseID: "go-basics",
			Position: 1,
			Course:   &types.Course{ID: "go-basics", Instructor: "Aliya"},
		},
	}}
	chats := &fakeChatRepo{}

	svc := NewChatService(nil, log, users, lessons, chats, unlockedAccess{}, ws.NewHub("chats", log), ws.NewHub("threads", log))
	return &chatFixture{users: users, lessons: lessons, chats: chats, svc: svc}
}

func TestResolveOrCreateExplicitStaffID(t *testing.T) {
	fx := newChatFixture(t)
	teacher := staffUser(5, "bek", types.RoleTeacher)
	fx.users.byID[5] = teacher
	student := staffUser(2, "student", types.RoleUser)

	chat, err := fx.svc.ResolveOrCreate(context.Background(), student, 10, OpenThreadInput{StaffID: &teacher.ID})
	if err != nil {
		t.Fatalf("ResolveOrCreate: %v", err)
	}
	if chat.TeacherID != 5 || chat.StudentID != 2 || chat.LessonID != 10 {
		t.Fatalf("unexpected triple: %+v", chat)
	}
}

func TestResolveOrCreateUnknownStaffID(t *testing.T) {
	fx := newChatFixture(t)
	student := staffUser(2, "student", types.RoleUser)
	missing := int64(99)

	_, err := fx.svc.ResolveOrCreate(context.Background(), student, 10, OpenThreadInput{StaffID: &missing})
	if ae := apierr.From(err); ae == nil || ae.Code != apierr.CodeNotFound {
		t.Fatalf("want not_found, got %v", err)
	}
}

func TestResolveOrCreateInstructorNameFallback(t *testing.T) {
	fx := newChatFixture(t)
	instructor := staffUser(7, "Aliya", types.RoleTeacher)
	fx.users.byNameRole["Aliya|teacher"] = instructor
	student := staffUser(2, "student", types.RoleUser)

	chat, err := fx.svc.ResolveOrCreate(context.Background(), student, 10, OpenThreadInput{})
	if err != nil {
		t.Fatalf("ResolveOrCreate: %v", err)
	}
	if chat.TeacherID != 7 {
		t.Fatalf("TeacherID = %d, want the course instructor (7)", chat.TeacherID)
	}
}

func TestResolveOrCreateReusesExistingThread(t *testing.T) {
	fx := newChatFixture(t)
	prior := staffUser(9, "prior-teacher", types.RoleTeacher)
	fx.chats.existing = []*types.PrivateChat{{ID: 50, LessonID: 10, StudentID: 2, TeacherID: 9, Teacher: prior}}
	student := staffUser(2, "student", types.RoleUser)

	chat, err := fx.svc.ResolveOrCreate(context.Background(), student, 10, OpenThreadInput{})
	if err != nil {
		t.Fatalf("ResolveOrCreate: %v", err)
	}
	if chat.TeacherID != 9 {
		t.Fatalf("TeacherID = %d, want the prior thread's teacher (9)", chat.TeacherID)
	}
}

func TestResolveOrCreateLowestIDFallback(t *testing.T) {
	fx := newChatFixture(t)
	admin := staffUser(3, "root", types.RoleAdmin)
	fx.users.lowestByRole[types.RoleAdmin] = admin
	student := staffUser(2, "student", types.RoleUser)

	chat, err := fx.svc.ResolveOrCreate(context.Background(), student, 10, OpenThreadInput{Role: types.RoleAdmin})
	if err != nil {
		t.Fatalf("ResolveOrCreate: %v", err)
	}
	if chat.TeacherID != 3 {
		t.Fatalf("TeacherID = %d, want fallback admin (3)", chat.TeacherID)
	}
}

func TestResolveOrCreateNoStaffAvailable(t *testing.T) {
	fx := newChatFixture(t)
	student := staffUser(2, "student", types.RoleUser)

	_, err := fx.svc.ResolveOrCreate(context.Background(), student, 10, OpenThreadInput{})
	ae := apierr.From(err)
	if ae == nil || ae.Code != apierr.CodeNoTeacher {
		t.Fatalf("want %s, got %v", apierr.CodeNoTeacher, err)
	}

	_, err = fx.svc.ResolveOrCreate(context.Background(), student, 10, OpenThreadInput{Role: types.RoleAdmin})
	ae = apierr.From(err)
	if ae == nil || ae.Code != apierr.CodeNoAdmin {
		t.Fatalf("want %s, got %v", apierr.CodeNoAdmin, err)
	}
}

func TestResolveOrCreateRejectsSelfThread(t *testing.T) {
	fx := newChatFixture(t)
	teacher := staffUser(5, "bek", types.RoleTeacher)
	fx.users.byID[5] = teacher

	_, err := fx.svc.ResolveOrCreate(context.Background(), teacher, 10, OpenThreadInput{StaffID: &teacher.ID})
	if ae := apierr.From(err); ae == nil || ae.Code != apierr.CodeValidation {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestResolveOrCreateRejectsUnknownRole(t *testing.T) {
	fx := newChatFixture(t)
	student := staffUser(2, "student", types.RoleUser)

	_, err := fx.svc.ResolveOrCreate(context.Background(), student, 10, OpenThreadInput{Role: "superuser"})
	if ae := apierr.From(err); ae == nil || ae.Code != apierr.CodeValidation {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestNormalizeStaffRole(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", types.RoleTeacher, false},
		{"teacher", types.RoleTeacher, false},
		{"Admin", types.RoleAdmin, false},
		{" ADMIN ", types.RoleAdmin, false},
		{"user", "", true},
	}
	for _, tc := range cases {
		got, err := normalizeStaffRole(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("normalizeStaffRole(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("normalizeStaffRole(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestStaffRoleOf(t *testing.T) {
	if got := staffRoleOf(staffUser(1, "a", types.RoleTeacher, types.RoleAdmin)); got != types.RoleAdmin {
		t.Errorf("admin should win over teacher, got %q", got)
	}
	if got := staffRoleOf(staffUser(1, "a", types.RoleTeacher)); got != types.RoleTeacher {
		t.Errorf("got %q, want teacher", got)
	}
	if got := staffRoleOf(staffUser(1, "a")); got != types.RoleUser {
		t.Errorf("got %q, want user", got)
	}
}

func TestResolveOrCreateExplicitStaffRoleMismatch(t *testing.T) {
	fx := newChatFixture(t)
	teacher := staffUser(5, "bek", types.RoleTeacher)
	fx.users.byID[5] = teacher
	student := staffUser(2, "student", types.RoleUser)

	_, err := fx.svc.ResolveOrCreate(context.Background(), student, 10, OpenThreadInput{
		StaffID: &teacher.ID,
		Role:    types.RoleAdmin,
	})
	if ae := apierr.From(err); ae == nil || ae.Code != apierr.CodeNotFound {
		t.Fatalf("teacher-only id requested as admin: want not_found, got %v", err)
	}
	if fx.chats.upserted != nil {
		t.Fatal("no chat should be opened for a role mismatch")
	}
}

func TestGetMessagesFlipsUnreadForParticipant(t *testing.T) {
	fx := newChatFixture(t)
	fx.chats.byID = map[int64]*types.PrivateChat{
		101: {ID: 101, LessonID: 10, StudentID: 2, TeacherID: 5},
	}
	fx.chats.messages = []*types.PrivateChatMessage{
		{ID: 1, ChatID: 101, SenderID: 5, Content: "hello"},
		{ID: 2, ChatID: 101, SenderID: 5, Content: "still there?"},
		{ID: 3, ChatID: 101, SenderID: 2, Content: "yes", IsRead: true},
	}
	student := staffUser(2, "student", types.RoleUser)

	msgs, err := fx.svc.GetMessages(context.Background(), student, 101)
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	if len(fx.chats.markedFor) != 1 || fx.chats.markedFor[0] != student.ID {
		t.Fatalf("markedFor = %v, want exactly the fetching participant", fx.chats.markedFor)
	}
	for _, m := range msgs {
		if m.SenderID != student.ID && !m.IsRead {
			t.Errorf("message %d from the other side should be read after the fetch", m.ID)
		}
	}
}

func TestGetMessagesDoesNotFlipForAdminObserver(t *testing.T) {
	fx := newChatFixture(t)
	fx.chats.byID = map[int64]*types.PrivateChat{
		101: {ID: 101, LessonID: 10, StudentID: 2, TeacherID: 5},
	}
	fx.chats.messages = []*types.PrivateChatMessage{
		{ID: 1, ChatID: 101, SenderID: 5, Content: "hello"},
	}
	admin := staffUser(9, "root", types.RoleAdmin)

	msgs, err := fx.svc.GetMessages(context.Background(), admin, 101)
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if len(fx.chats.markedFor) != 0 {
		t.Fatalf("an admin outside the chat must not consume unread state, markedFor = %v", fx.chats.markedFor)
	}
	if msgs[0].IsRead {
		t.Error("message should remain unread after an observer fetch")
	}
}
