package model

import (
	"time"

	"github.com/google/uuid"
)

// OTPPurpose defines what the OTP code is used for
type OTPPurpose string

const OTPPurposePasswordReset OTPPurpose = "password_reset"

// OTPCode represents a one-time password for password reset
type OTPCode struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID    uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	Code      string     `json:"-" gorm:"size:6;not null"` // 6-digit numeric code
	Purpose   OTPPurpose `json:"purpose" gorm:"type:varchar(30);not null"`
	ExpiresAt time.Time  `json:"expires_at" gorm:"not null"`
	UsedAt    *time.Time `json:"used_at"` // NULL = not yet used
	CreatedAt time.Time  `json:"created_at"`
}

func (o *OTPCode) IsUsed() bool {
	return o.UsedAt != nil
}

// IsValidAt checks if the OTP code can still be used at the given instant
func (o *OTPCode) IsValidAt(now time.Time) bool {
	return !o.IsUsed() && now.Before(o.ExpiresAt)
}
