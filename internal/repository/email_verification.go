package repository

import (
	"carparts-storefront/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
)

type EmailVerificationRepository interface {
	Create(ctx context.Context, tx *gorm.DB, verification *model.EmailVerification) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.EmailVerification, error)
	MarkUsed(ctx context.Context, tx *gorm.DB, verificationID int64, usedAt time.Time) (bool, error)
}

type emailVerificationRepoImpl struct {
	db *gorm.DB
}

func NewEmailVerificationRepository(db *gorm.DB) EmailVerificationRepository {
	return &emailVerificationRepoImpl{db: db}
}

func (r *emailVerificationRepoImpl) Create(ctx context.Context, tx *gorm.DB, verification *model.EmailVerification) error {
	return conn(r.db, tx).WithContext(ctx).Create(verification).Error
}

func (r *emailVerificationRepoImpl) FindByTokenHash(ctx context.Context, tokenHash string) (*model.EmailVerification, error) {
	var verification model.EmailVerification
	err := r.db.WithContext(ctx).
		Where("token_hash = ?", tokenHash).
		First(&verification).Error

	if err != nil {
		return nil, err
	}

	return &verification, nil
}

// MarkUsed consumes the token at most once.
func (r *emailVerificationRepoImpl) MarkUsed(ctx context.Context, tx *gorm.DB, verificationID int64, usedAt time.Time) (bool, error) {
	res := conn(r.db, tx).WithContext(ctx).Model(&model.EmailVerification{}).
		Where("id = ? AND used_at IS NULL", verificationID).
		Update("used_at", usedAt)
	return res.RowsAffected > 0, res.Error
}
