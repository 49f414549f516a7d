package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// NotificationType categorises entries in a user's notification log
type NotificationType string

const (
	NotificationShiftBooked    NotificationType = "shift_booked"
	NotificationShiftCancelled NotificationType = "shift_cancelled"
	NotificationShiftReminder  NotificationType = "shift_reminder"
	NotificationManual         NotificationType = "manual"
)

// Notification records a push sent to a user
type Notification struct {
	ID        uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID    uuid.UUID         `json:"user_id" gorm:"type:uuid;not null;index"`
	Title     string            `json:"title" gorm:"size:200;not null"`
	Body      string            `json:"body" gorm:"type:text;not null"`
	Type      NotificationType  `json:"type" gorm:"type:varchar(30);not null"`
	Data      datatypes.JSONMap `json:"data" gorm:"type:jsonb"`
	ReadAt    *time.Time        `json:"read_at"`
	CreatedAt time.Time         `json:"created_at"`
}

func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}
