package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/davrbek/coursehub-backend/internal/platform/logger"
	"github.com/davrbek/coursehub-backend/internal/types"
)

type UserRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.User, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.User, error)
	GetActiveByRole(ctx context.Context, tx *gorm.DB, role string) ([]*types.User, error)
	FindActiveByNameAndRole(ctx context.Context, tx *gorm.DB, name, role string) (*types.User, error)
	LowestIDActiveByRole(ctx context.Context, tx *gorm.DB, role string) (*types.User, error)
	StaffRecipients(ctx context.Context, tx *gorm.DB, excludeUserID *int64) ([]*types.User, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (ur *userRepo) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}

	var user types.User
	err := transaction.WithContext(ctx).
		Preload("Roles").
		First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (ur *userRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}

	var user types.User
	err := transaction.WithContext(ctx).
		Preload("Roles").
		First(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (ur *userRepo) GetActiveByRole(ctx context.Context, tx *gorm.DB, role string) ([]*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}

	var results []*types.User
	if err := roleScope(transaction.WithContext(ctx), role).
		Preload("Roles").
		Order("users.id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ur *userRepo) FindActiveByNameAndRole(ctx context.Context, tx *gorm.DB, name, role string) (*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}

	var user types.User
	err := roleScope(transaction.WithContext(ctx), role).
		Preload("Roles").
		Where("LOWER(users.username) = LOWER(?)", name).
		Order("users.id ASC").
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (ur *userRepo) LowestIDActiveByRole(ctx context.Context, tx *gorm.DB, role string) (*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}

	var user types.User
	err := roleScope(transaction.WithContext(ctx), role).
		Preload("Roles").
		Order("users.id ASC").
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (ur *userRepo) StaffRecipients(ctx context.Context, tx *gorm.DB, excludeUserID *int64) ([]*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}

	q := transaction.WithContext(ctx).
		Model(&types.User{}).
		Distinct("users.*").
		Joins("JOIN user_roles ur ON ur.user_id = users.id").
		Joins("JOIN roles r ON r.id = ur.role_id").
		Where("r.name IN ?", []string{types.RoleTeacher, types.RoleAdmin}).
		Where("users.is_active = ?", true)
	if excludeUserID != nil {
		q = q.Where("users.id <> ?", *excludeUserID)
	}

	var results []*types.User
	if err := q.Order("users.id ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func roleScope(q *gorm.DB, role string) *gorm.DB {
	return q.Model(&types.User{}).
		Joins("JOIN user_roles ur ON ur.user_id = users.id").
		Joins("JOIN roles r ON r.id = ur.role_id").
		Where("r.name = ?", role).
		Where("users.is_active = ?", true)
}
