package model

import (
	"time"

	"github.com/google/uuid"
)

// ========== Auth DTOs ==========

type RegisterRequest struct {
	Email          string `json:"email" binding:"required,email,max=255"`
	Password       string `json:"password" binding:"required,min=6,max=72"`
	DisplayName    string `json:"display_name" binding:"required,min=2,max=100"`
	Profession     string `json:"profession" binding:"max=100"`
	Specialization string `json:"specialization" binding:"max=120"`
	CRM            string `json:"crm" binding:"max=20"`
	PhoneNumber    string `json:"phone_number" binding:"max=30"`
	Role           Role   `json:"role" binding:"omitempty,oneof=doctor manager"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type FirebaseLoginRequest struct {
	IDToken string `json:"id_token" binding:"required"`
}

type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresIn int64        `json:"expires_in"` // seconds
	User      UserResponse `json:"user"`
}

type LogoutRequest struct {
	FCMToken string `json:"fcm_token"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6,max=72"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Code        string `json:"code" binding:"required,len=6,numeric"`
	NewPassword string `json:"new_password" binding:"required,min=6,max=72"`
}

// ========== User DTOs ==========

type UpdateProfileRequest struct {
	DisplayName    *string `json:"display_name" binding:"omitempty,min=2,max=100"`
	Profession     *string `json:"profession" binding:"omitempty,max=100"`
	Specialization *string `json:"specialization" binding:"omitempty,max=120"`
	CRM            *string `json:"crm" binding:"omitempty,max=20"`
	PhoneNumber    *string `json:"phone_number" binding:"omitempty,max=30"`
}

type UpdateNotificationSettingsRequest struct {
	NotificationsEnabled *bool `json:"notifications_enabled"`
	ShiftReminders       *bool `json:"shift_reminders"`
}

// ========== Shift DTOs ==========

type CreateShiftRequest struct {
	Institution string    `json:"institution" binding:"required,max=200"`
	Department  string    `json:"department" binding:"max=120"`
	Specialty   string    `json:"specialty" binding:"required,max=120"`
	Date        time.Time `json:"date" binding:"required"`
	Duration    int       `json:"duration" binding:"required,min=1,max=48"`
	Value       float64   `json:"value" binding:"gte=0,lte=99999999.99"`
	Notes       string    `json:"notes" binding:"max=1000"`
}

type UpdateShiftRequest struct {
	Institution *string    `json:"institution" binding:"omitempty,min=1,max=200"`
	Department  *string    `json:"department" binding:"omitempty,max=120"`
	Specialty   *string    `json:"specialty" binding:"omitempty,min=1,max=120"`
	Date        *time.Time `json:"date"`
	Duration    *int       `json:"duration" binding:"omitempty,min=1,max=48"`
	Value       *float64   `json:"value" binding:"omitempty,gte=0,lte=99999999.99"`
	Notes       *string    `json:"notes" binding:"omitempty,max=1000"`
}

// ShiftListQuery is the raw query string of shift listings
type ShiftListQuery struct {
	Status      string `form:"status"` // comma separated
	Specialty   string `form:"specialty"`
	Institution string `form:"institution"`
	DoctorID    string `form:"doctor_id"`
	From        string `form:"from"`
	To          string `form:"to"`
	Page        int    `form:"page" binding:"omitempty,min=1"`
	Limit       int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

type PageResponse struct {
	Data  interface{} `json:"data"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

// ========== Notification DTOs ==========

type RegisterTokenRequest struct {
	Token      string `json:"token" binding:"required,max=4096"`
	DeviceType string `json:"device_type" binding:"required,oneof=android ios web"`
}

type UnregisterTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// SendNotificationRequest targets either a user (all active devices) or a raw token
type SendNotificationRequest struct {
	UserID *uuid.UUID        `json:"user_id"`
	Token  string            `json:"token"`
	Title  string            `json:"title" binding:"required,max=200"`
	Body   string            `json:"body" binding:"required,max=1000"`
	Data   map[string]string `json:"data"`
}

type SendNotificationResponse struct {
	SuccessCount int  `json:"success_count"`
	FailureCount int  `json:"failure_count"`
	Deactivated  int  `json:"deactivated"`
	Skipped      bool `json:"skipped,omitempty"` // user has notifications disabled
}

type NotificationListResponse struct {
	Data   []Notification `json:"data"`
	Unread int64          `json:"unread"`
}

// ========== WebSocket Event DTOs ==========

type WSEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// WebSocket event types
const (
	WSEventShiftCreated   = "shift_created"
	WSEventShiftUpdated   = "shift_updated"
	WSEventShiftBooked    = "shift_booked"
	WSEventShiftReleased  = "shift_released"
	WSEventShiftCompleted = "shift_completed"
	WSEventShiftCancelled = "shift_cancelled"
	WSEventShiftDeleted   = "shift_deleted"
	WSEventPing           = "ping"
	WSEventPong           = "pong"
)

type ShiftDeletedEvent struct {
	ID uuid.UUID `json:"id"`
}

// ========== Common ==========

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
