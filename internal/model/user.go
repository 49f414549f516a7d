package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role decides what a user may do with shifts
type Role string

const (
	RoleDoctor  Role = "doctor"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleDoctor, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// CanManageShifts reports whether the role may publish, edit, cancel and delete shifts
func (r Role) CanManageShifts() bool {
	return r == RoleManager || r == RoleAdmin
}

// User represents a registered doctor or coordinator
type User struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Email          string    `json:"email" gorm:"uniqueIndex:idx_users_email,where:deleted_at IS NULL;not null;size:255"`
	Password       string    `json:"-" gorm:"size:255"` // empty for Firebase-only accounts
	DisplayName    string    `json:"display_name" gorm:"size:100;not null"`
	Profession     string    `json:"profession" gorm:"size:100"`
	Specialization string    `json:"specialization" gorm:"size:120;index"`
	CRM            string    `json:"crm" gorm:"column:crm;size:20"`
	PhoneNumber    string    `json:"phone_number" gorm:"size:30"`
	PhotoURL       string    `json:"photo_url" gorm:"size:500"`
	Role           Role      `json:"role" gorm:"type:varchar(20);not null;default:'doctor'"`
	FirebaseUID    *string   `json:"-" gorm:"uniqueIndex:idx_users_firebase_uid,where:deleted_at IS NULL;size:128"`

	// Notification settings
	NotificationsEnabled bool `json:"notifications_enabled" gorm:"not null"`
	ShiftReminders       bool `json:"shift_reminders" gorm:"not null"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// HasPassword is false for accounts created through Firebase sign-in
func (u *User) HasPassword() bool {
	return u.Password != ""
}

// UserResponse is the safe version of User for API responses
type UserResponse struct {
	ID                   uuid.UUID `json:"id"`
	Email                string    `json:"email"`
	DisplayName          string    `json:"display_name"`
	Profession           string    `json:"profession"`
	Specialization       string    `json:"specialization"`
	CRM                  string    `json:"crm"`
	PhoneNumber          string    `json:"phone_number"`
	PhotoURL             string    `json:"photo_url"`
	Role                 Role      `json:"role"`
	NotificationsEnabled bool      `json:"notifications_enabled"`
	ShiftReminders       bool      `json:"shift_reminders"`
	CreatedAt            time.Time `json:"created_at"`
}

// ToResponse converts User to safe UserResponse
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:                   u.ID,
		Email:                u.Email,
		DisplayName:          u.DisplayName,
		Profession:           u.Profession,
		Specialization:       u.Specialization,
		CRM:                  u.CRM,
		PhoneNumber:          u.PhoneNumber,
		PhotoURL:             u.PhotoURL,
		Role:                 u.Role,
		NotificationsEnabled: u.NotificationsEnabled,
		ShiftReminders:       u.ShiftReminders,
		CreatedAt:            u.CreatedAt,
	}
}

func ToUserResponses(users []User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, users[i].ToResponse())
	}
	return out
}
