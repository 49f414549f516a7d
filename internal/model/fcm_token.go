package model

import (
	"time"

	"github.com/google/uuid"
)

// Device types accepted when registering a push token
const (
	DeviceAndroid = "android"
	DeviceIOS     = "ios"
	DeviceWeb     = "web"
)

// FCMToken is a device push token; tokens are deactivated, never deleted
type FCMToken struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID       uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	Token        string    `json:"token" gorm:"not null;uniqueIndex"`
	DeviceType   string    `json:"device_type" gorm:"size:20;not null"`
	Active       bool      `json:"active" gorm:"not null"`
	LastActiveAt time.Time `json:"last_active_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (FCMToken) TableName() string {
	return "fcm_tokens"
}
