package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/davrbek/coursehub-backend/internal/platform/logger"
	"github.com/davrbek/coursehub-backend/internal/types"
	"github.com/davrbek/coursehub-backend/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := utils.GetEnv("POSTGRES_NAME", "coursehub", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	serviceLog.Info("Connecting to Postgres...")
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		serviceLog.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	return &PostgresService{db: gdb, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&types.User{},
		&types.Role{},
		&types.CoursePurchase{},
		&types.Course{},
		&types.CourseLesson{},
		&types.LessonSlide{},
		&types.LessonResource{},
		&types.LessonAssignment{},
		&types.AssignmentSubmission{},
		&types.LessonMessage{},
		&types.LessonMessageAttachment{},
		&types.LessonNotification{},
		&types.PrivateChat{},
		&types.PrivateChatMessage{},
		&types.PrivateChatMessageAttachment{},
		&types.CourseRating{},
		&types.TeacherRating{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}

	// Cascade deletes that AutoMigrate skips with FK creation disabled:
	// an attachment never outlives its owning message, a private message
	// never outlives its chat.
	constraints := []struct {
		name string
		ddl  string
	}{
		{
			name: "fk_lesson_message_attachment_message",
			ddl: `ALTER TABLE "lesson_message_attachments"
				ADD CONSTRAINT "fk_lesson_message_attachment_message"
				FOREIGN KEY ("message_id") REFERENCES "lesson_messages"("id")
				ON DELETE CASCADE`,
		},
		{
			name: "fk_private_message_attachment_message",
			ddl: `ALTER TABLE "private_lesson_message_attachments"
				ADD CONSTRAINT "fk_private_message_attachment_message"
				FOREIGN KEY ("message_id") REFERENCES "private_lesson_messages"("id")
				ON DELETE CASCADE`,
		},
		{
			name: "fk_private_message_chat",
			ddl: `ALTER TABLE "private_lesson_messages"
				ADD CONSTRAINT "fk_private_message_chat"
				FOREIGN KEY ("chat_id") REFERENCES "private_lesson_chats"("id")
				ON DELETE CASCADE`,
		},
	}
	for _, c := range constraints {
		var exists bool
		if err := s.db.Raw(
			`SELECT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = ?)`, c.name,
		).Scan(&exists).Error; err != nil {
			return fmt.Errorf("failed to check constraint %s: %w", c.name, err)
		}
		if exists {
			continue
		}
		if err := s.db.Exec(c.ddl).Error; err != nil {
			return fmt.Errorf("failed to add %s: %w", c.name, err)
		}
	}
	return nil
}

// SeedRoles ensures the fixed role rows exist.
func (s *PostgresService) SeedRoles() error {
	for _, name := range []string{types.RoleUser, types.RoleTeacher, types.RoleAdmin} {
		if err := s.db.Where(types.Role{Name: name}).FirstOrCreate(&types.Role{Name: name}).Error; err != nil {
			return fmt.Errorf("failed to seed role %s: %w", name, err)
		}
	}
	return nil
}

// SeedAdminUser creates a bootstrap admin account from ADMIN_EMAIL /
// ADMIN_USERNAME / ADMIN_PASSWORD when one does not exist yet. No-op when
// ADMIN_EMAIL is unset.
func (s *PostgresService) SeedAdminUser() error {
	email := utils.GetEnv("ADMIN_EMAIL", "", s.log)
	if email == "" {
		return nil
	}
	username := utils.GetEnv("ADMIN_USERNAME", "admin", s.log)
	password := utils.GetEnv("ADMIN_PASSWORD", "", s.log)
	if password == "" {
		return fmt.Errorf("ADMIN_PASSWORD is required when ADMIN_EMAIL is set")
	}

	var count int64
	if err := s.db.Model(&types.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check admin user: %w", err)
	}
	if count > 0 {
		return nil
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	var adminRole types.Role
	if err := s.db.First(&adminRole, "name = ?", types.RoleAdmin).Error; err != nil {
		return fmt.Errorf("admin role missing, run SeedRoles first: %w", err)
	}

	admin := &types.User{
		Email:          email,
		Username:       username,
		HashedPassword: hashed,
		IsActive:       true,
		Roles:          []*types.Role{&adminRole},
	}
	if err := s.db.Create(admin).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}
	s.log.Info("Seeded admin user", "username", username)
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
