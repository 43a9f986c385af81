package repos

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/davrbek/coursehub-backend/internal/platform/logger"
	"github.com/davrbek/coursehub-backend/internal/types"
)

type PurchaseRepo interface {
	IsPurchased(ctx context.Context, tx *gorm.DB, userID int64, courseID string) (bool, error)
	ListCourseIDs(ctx context.Context, tx *gorm.DB, userID int64) ([]string, error)
	Create(ctx context.Context, tx *gorm.DB, purchase *types.CoursePurchase) error
}

type purchaseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPurchaseRepo(db *gorm.DB, baseLog *logger.Logger) PurchaseRepo {
	return &purchaseRepo{db: db, log: baseLog.With("repo", "PurchaseRepo")}
}

func (pr *purchaseRepo) IsPurchased(ctx context.Context, tx *gorm.DB, userID int64, courseID string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.CoursePurchase{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (pr *purchaseRepo) ListCourseIDs(ctx context.Context, tx *gorm.DB, userID int64) ([]string, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var ids []string
	if err := transaction.WithContext(ctx).
		Model(&types.CoursePurchase{}).
		Where("user_id = ?", userID).
		Pluck("course_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (pr *purchaseRepo) Create(ctx context.Context, tx *gorm.DB, purchase *types.CoursePurchase) error {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	// Repeat purchases collapse onto the existing row.
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).
		Create(purchase).Error
}
