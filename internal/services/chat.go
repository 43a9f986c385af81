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

// OpenThreadInput narrows who the student wants to talk to. All fields are
// optional; resolution falls back to existing threads, the course instructor
// and finally any active staff member of the requested role.
type OpenThreadInput struct {
	StaffID   *int64 `json:"staff_id,omitempty"`
	StaffName string `json:"staff_name,omitempty"`
	Role      string `json:"role,omitempty"`
}

// ThreadView is the list-row projection of a private chat.
type ThreadView struct {
	ID            int64      `json:"id"`
	LessonID      int64      `json:"lesson_id"`
	StudentID     int64      `json:"student_id"`
	StudentName   string     `json:"student_name"`
	TeacherID     int64      `json:"teacher_id"`
	TeacherName   string     `json:"teacher_name"`
	TeacherRole   string     `json:"teacher_role"`
	LastMessage   string     `json:"last_message"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	UnreadCount   int64      `json:"unread_count"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// RecipientView lists a staff member a student can open a thread with.
type RecipientView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type ChatService interface {
	ResolveOrCreate(ctx context.Context, viewer *types.User, lessonID int64, input OpenThreadInput) (*types.PrivateChat, error)
	ListThreads(ctx context.Context, viewer *types.User, lessonID int64) ([]*ThreadView, error)
	ListRecipients(ctx context.Context, viewer *types.User) ([]*RecipientView, error)
	GetMessages(ctx context.Context, viewer *types.User, chatID int64) ([]*types.PrivateChatMessage, error)
	SendMessage(ctx context.Context, viewer *types.User, chatID int64, input MessageInput) (*types.PrivateChatMessage, error)
	ClearMessages(ctx context.Context, viewer *types.User, chatID int64) error

	// CanSubscribe reports whether viewer may attach a live connection
	// to the given chat.
	CanSubscribe(ctx context.Context, viewer *types.User, chatID int64) (bool, error)
}

type chatService struct {
	db         *gorm.DB
	log        *logger.Logger
	userRepo   repos.UserRepo
	lessonRepo repos.LessonRepo
	chatRepo   repos.PrivateChatRepo
	access     AccessService
	chatHub    *ws.Hub
	threadHub  *ws.Hub
}

func NewChatService(
	db *gorm.DB,
	baseLog *logger.Logger,
	userRepo repos.UserRepo,
	lessonRepo repos.LessonRepo,
	chatRepo repos.PrivateChatRepo,
	access AccessService,
	chatHub *ws.Hub,
	threadHub *ws.Hub,
) ChatService {
	return &chatService{
		db:         db,
		log:        baseLog.With("service", "ChatService"),
		userRepo:   userRepo,
		lessonRepo: lessonRepo,
		chatRepo:   chatRepo,
		access:     access,
		chatHub:    chatHub,
		threadHub:  threadHub,
	}
}

func normalizeStaffRole(role string) (string, error) {
	switch normalization.FoldName(role) {
	case "", types.RoleTeacher:
		return types.RoleTeacher, nil
	case types.RoleAdmin:
		return types.RoleAdmin, nil
	default:
		return "", apierr.Validation("role must be %q or %q", types.RoleTeacher, types.RoleAdmin)
	}
}

// resolveStaff picks the staff side of a new thread. Explicit id wins, then
// the most recently active existing thread with a matching role, then the
// course instructor by name, then the lowest-id active holder of the role.
func (cs *chatService) resolveStaff(ctx context.Context, viewer *types.User, lesson *types.CourseLesson, input OpenThreadInput) (*types.User, error) {
	role, err := normalizeStaffRole(input.Role)
	if err != nil {
		return nil, err
	}

	if input.StaffID != nil {
		staff, err := cs.userRepo.GetByID(ctx, nil, *input.StaffID)
		if err != nil {
			return nil, apierr.Internal(err)
		}
		// The explicit recipient must actually hold the requested role;
		// a teacher-only id asked for as role=admin is treated as no
		// such admin existing.
		if staff == nil || !staff.IsActive || !staff.HasRole(role) {
			return nil, apierr.NotFound("staff member %d not found", *input.StaffID)
		}
		return staff, nil
	}

	// A supplied name is treated as an explicit recipient too, so it is
	// honored before any existing thread is reused.
	if name := normalization.ParseInputString(input.StaffName); name != "" {
		staff, err := cs.userRepo.FindActiveByNameAndRole(ctx, nil, name, role)
		if err != nil {
			return nil, apierr.Internal(err)
		}
		if staff != nil {
			return staff, nil
		}
	}

	existing, err := cs.chatRepo.ListByLessonStudent(ctx, nil, lesson.ID, viewer.ID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	for _, chat := range existing {
		if chat.Teacher != nil && chat.Teacher.IsActive && chat.Teacher.HasRole(role) {
			return chat.Teacher, nil
		}
	}

	if role == types.RoleTeacher && lesson.Course != nil {
		staff, err := cs.userRepo.FindActiveByNameAndRole(ctx, nil, lesson.Course.Instructor, types.RoleTeacher)
		if err != nil {
			return nil, apierr.Internal(err)
		}
		if staff != nil {
			return staff, nil
		}
	}

	staff, err := cs.userRepo.LowestIDActiveByRole(ctx, nil, role)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if staff != nil {
		return staff, nil
	}

	if role == types.RoleAdmin {
		return nil, apierr.Unavailable(apierr.CodeNoAdmin, "no admin is available")
	}
	return nil, apierr.Unavailable(apierr.CodeNoTeacher, "no teacher is available")
}

func (cs *chatService) ResolveOrCreate(ctx context.Context, viewer *types.User, lessonID int64, input OpenThreadInput) (*types.PrivateChat, error) {
	if viewer == nil {
		return nil, apierr.Unauthenticated("authentication required")
	}
	lesson, err := cs.lessonRepo.GetByID(ctx, nil, lessonID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if lesson == nil {
		return nil, apierr.NotFound("lesson %d not found", lessonID)
	}
	locked, err := cs.access.LessonLocked(ctx, viewer, lesson)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if locked {
		return nil, apierr.Forbidden("lesson is locked")
	}

	staff, err := cs.resolveStaff(ctx, viewer, lesson, input)
	if err != nil {
		return nil, err
	}
	if staff.ID == viewer.ID {
		return nil, apierr.Validation("cannot open a thread with yourself")
	}

	chat, err := cs.chatRepo.UpsertByTriple(ctx, nil, &types.PrivateChat{
		LessonID:  lessonID,
		StudentID: viewer.ID,
		TeacherID: staff.ID,
	})
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if chat.Student == nil || chat.Teacher == nil {
		chat.Student = viewer
		chat.Teacher = staff
	}
	return chat, nil
}

func (cs *chatService) ListThreads(ctx context.Context, viewer *types.User, lessonID int64) ([]*ThreadView, error) {
	if viewer == nil {
		return nil, apierr.Unauthenticated("authentication required")
	}

	var (
		chats []*types.PrivateChat
		err   error
	)
	switch {
	case viewer.HasRole(types.RoleAdmin):
		chats, err = cs.chatRepo.ListByLesson(ctx, nil, lessonID)
	case viewer.HasRole(types.RoleTeacher):
		chats, err = cs.chatRepo.ListByStaff(ctx, nil, lessonID, viewer.ID)
	default:
		chats, err = cs.chatRepo.ListByLessonStudent(ctx, nil, lessonID, viewer.ID)
	}
	if err != nil {
		return nil, apierr.Internal(err)
	}

	ids := make([]int64, 0, len(chats))
	for _, c := range chats {
		ids = append(ids, c.ID)
	}
	lastByChat, err := cs.chatRepo.LastMessageByChatIDs(ctx, nil, ids)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	unreadByChat, err := cs.chatRepo.UnreadCountByChatIDs(ctx, nil, ids, viewer.ID)
	if err != nil {
		return nil, apierr.Internal(err)
	}

	views := make([]*ThreadView, 0, len(chats))
	for _, c := range chats {
		views = append(views, buildThreadView(c, lastByChat[c.ID], unreadByChat[c.ID]))
	}
	return views, nil
}

func buildThreadView(chat *types.PrivateChat, last *types.PrivateChatMessage, unread int64) *ThreadView {
	view := &ThreadView{
		ID:          chat.ID,
		LessonID:    chat.LessonID,
		StudentID:   chat.StudentID,
		TeacherID:   chat.TeacherID,
		UnreadCount: unread,
		UpdatedAt:   chat.UpdatedAt,
	}
	if chat.Student != nil {
		view.StudentName = chat.Student.Username
	}
	if chat.Teacher != nil {
		view.TeacherName = chat.Teacher.Username
		view.TeacherRole = staffRoleOf(chat.Teacher)
	}
	if last != nil {
		var att *types.AttachmentBody
		if last.Attachment != nil {
			att = &last.Attachment.AttachmentBody
		}
		view.LastMessage = PreviewText(last.Content, att)
		at := last.CreatedAt
		view.LastMessageAt = &at
	}
	return view
}

func staffRoleOf(u *types.User) string {
	if u.HasRole(types.RoleAdmin) {
		return types.RoleAdmin
	}
	if u.HasRole(types.RoleTeacher) {
		return types.RoleTeacher
	}
	return types.RoleUser
}

func (cs *chatService) ListRecipients(ctx context.Context, viewer *types.User) ([]*RecipientView, error) {
	if viewer == nil {
		return nil, apierr.Unauthenticated("authentication required")
	}
	staff, err := cs.userRepo.StaffRecipients(ctx, nil, &viewer.ID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	views := make([]*RecipientView, 0, len(staff))
	for _, s := range staff {
		views = append(views, &RecipientView{
			ID:       s.ID,
			Username: s.Username,
			Role:     staffRoleOf(s),
		})
	}
	return views, nil
}

func (cs *chatService) requireParticipant(ctx context.Context, viewer *types.User, chatID int64) (*types.PrivateChat, error) {
	if viewer == nil {
		return nil, apierr.Unauthenticated("authentication required")
	}
	chat, err := cs.chatRepo.GetByID(ctx, nil, chatID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if chat == nil {
		return nil, apierr.NotFound("chat %d not found", chatID)
	}
	if !chat.IsParticipant(viewer.ID) && !viewer.HasRole(types.RoleAdmin) {
		return nil, apierr.Forbidden("not a participant of this chat")
	}
	return chat, nil
}

// GetMessages returns the full thread history and flips the other side's
// unread messages to read in the same transaction as the read.
func (cs *chatService) GetMessages(ctx context.Context, viewer *types.User, chatID int64) ([]*types.PrivateChatMessage, error) {
	chat, err := cs.requireParticipant(ctx, viewer, chatID)
	if err != nil {
		return nil, err
	}

	// Admins reading a thread they are not part of must not consume the
	// participants' unread state.
	var readerID *int64
	if chat.IsParticipant(viewer.ID) {
		readerID = &viewer.ID
	}
	msgs, err := cs.chatRepo.FetchMessagesMarkingRead(ctx, nil, chatID, readerID)
	if err != nil {
		return nil, apierr.Internal(err)
	}

	cs.threadHub.Broadcast(chat.LessonID, ws.Event{Event: ws.EventThreadUpdated, Data: map[string]any{"chat_id": chatID}})
	return msgs, nil
}

func (cs *chatService) SendMessage(ctx context.Context, viewer *types.User, chatID int64, input MessageInput) (*types.PrivateChatMessage, error) {
	chat, err := cs.requireParticipant(ctx, viewer, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.IsParticipant(viewer.ID) {
		return nil, apierr.Forbidden("only participants may send messages")
	}

	content := normalization.ParseInputString(input.Content)
	attachment := buildAttachmentBody(input.Attachment)
	if content == "" && attachment == nil {
		return nil, apierr.Validation("message content or attachment is required")
	}

	msg := &types.PrivateChatMessage{
		ChatID:   chatID,
		SenderID: viewer.ID,
		Content:  content,
	}
	if attachment != nil {
		msg.Attachment = &types.PrivateChatMessageAttachment{AttachmentBody: *attachment}
	}

	now := time.Now().UTC()
	if err := cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := cs.chatRepo.CreateMessage(ctx, tx, msg); err != nil {
			return err
		}
		return cs.chatRepo.Touch(ctx, tx, chatID, now)
	}); err != nil {
		return nil, apierr.Internal(err)
	}
	msg.Sender = viewer

	// Live pushes happen only after the transaction commits so a
	// subscriber can never see a message that later rolled back.
	cs.chatHub.Broadcast(chatID, ws.Event{Event: ws.EventPrivateMessageCreated, Data: msg})
	cs.threadHub.Broadcast(chat.LessonID, ws.Event{Event: ws.EventThreadUpdated, Data: map[string]any{"chat_id": chatID}})
	return msg, nil
}

func (cs *chatService) ClearMessages(ctx context.Context, viewer *types.User, chatID int64) error {
	chat, err := cs.requireParticipant(ctx, viewer, chatID)
	if err != nil {
		return err
	}
	if !viewer.IsStaff() {
		return apierr.Forbidden("only staff may clear a thread")
	}

	now := time.Now().UTC()
	if err := cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := cs.chatRepo.DeleteMessages(ctx, tx, chatID); err != nil {
			return err
		}
		return cs.chatRepo.Touch(ctx, tx, chatID, now)
	}); err != nil {
		return apierr.Internal(err)
	}

	cs.threadHub.Broadcast(chat.LessonID, ws.Event{Event: ws.EventThreadUpdated, Data: map[string]any{"chat_id": chatID}})
	return nil
}

func (cs *chatService) CanSubscribe(ctx context.Context, viewer *types.User, chatID int64) (bool, error) {
	if viewer == nil {
		return false, nil
	}
	chat, err := cs.chatRepo.GetByID(ctx, nil, chatID)
	if err != nil {
		return false, err
	}
	if chat == nil {
		return false, apierr.NotFound("chat %d not found", chatID)
	}
	return chat.IsParticipant(viewer.ID) || viewer.HasRole(types.RoleAdmin), nil
}
