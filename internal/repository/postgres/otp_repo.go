package postgres

import (
	"context"
	"time"

	"github.com/finscale/finscale-api/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OTPRepository handles database operations for OTP codes
type OTPRepository struct {
	db *gorm.DB
}

func NewOTPRepository(db *gorm.DB) *OTPRepository {
	return &OTPRepository{db: db}
}

// Create inserts a new OTP code
func (r *OTPRepository) Create(ctx context.Context, otp *model.OTPCode) error {
	return r.db.WithContext(ctx).Create(otp).Error
}

// FindValid finds an unused, non-expired OTP code for a user and purpose
func (r *OTPRepository) FindValid(ctx context.Context, userID uuid.UUID, code string, purpose model.OTPPurpose, now time.Time) (*model.OTPCode, error) {
	var otp model.OTPCode
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND code = ? AND purpose = ? AND expires_at > ? AND used_at IS NULL",
			userID, code, purpose, now).
		Order("created_at DESC").
		First(&otp).Error
	if err != nil {
		return nil, translate(err)
	}
	return &otp, nil
}

// MarkUsed marks an OTP code as used
func (r *OTPRepository) MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.OTPCode{}).
		Where("id = ? AND used_at IS NULL", id).
		Update("used_at", at).Error
}

// InvalidateAll burns every pending code so only the newest one works
func (r *OTPRepository) InvalidateAll(ctx context.Context, userID uuid.UUID, purpose model.OTPPurpose, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.OTPCode{}).
		Where("user_id = ? AND purpose = ? AND used_at IS NULL AND expires_at > ?", userID, purpose, at).
		Update("used_at", at).Error
}

// CountSince counts codes issued to a user since a point in time
func (r *OTPRepository) CountSince(ctx context.Context, userID uuid.UUID, purpose model.OTPPurpose, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.OTPCode{}).
		Where("user_id = ? AND purpose = ? AND created_at > ?", userID, purpose, since).
		Count(&count).Error
	return count, err
}

// CleanupExpired removes expired codes older than an hour so the send-rate count still sees them
func (r *OTPRepository) CleanupExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ? AND created_at < ?", now, now.Add(-time.Hour)).
		Delete(&model.OTPCode{})
	return res.RowsAffected, res.Error
}
