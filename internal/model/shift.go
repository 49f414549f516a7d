package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ShiftStatus is the lifecycle state of a shift
type ShiftStatus string

const (
	ShiftAvailable ShiftStatus = "available"
	ShiftBooked    ShiftStatus = "booked"
	ShiftCompleted ShiftStatus = "completed"
	ShiftCancelled ShiftStatus = "cancelled"
)

const (
	MinShiftHours = 1
	MaxShiftHours = 48
)

var shiftTransitions = map[ShiftStatus][]ShiftStatus{
	ShiftAvailable: {ShiftBooked, ShiftCancelled},
	ShiftBooked:    {ShiftAvailable, ShiftCompleted, ShiftCancelled},
}

func (s ShiftStatus) Valid() bool {
	switch s {
	case ShiftAvailable, ShiftBooked, ShiftCompleted, ShiftCancelled:
		return true
	}
	return false
}

// IsTerminal is true for completed and cancelled shifts
func (s ShiftStatus) IsTerminal() bool {
	return s == ShiftCompleted || s == ShiftCancelled
}

// CanTransition reports whether a shift may move from one status to another
func CanTransition(from, to ShiftStatus) bool {
	for _, next := range shiftTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Shift is a single plantão published by a coordinator
type Shift struct {
	ID          uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Institution string      `json:"institution" gorm:"size:200;not null"`
	Department  string      `json:"department" gorm:"size:120"`
	Specialty   string      `json:"specialty" gorm:"size:120;not null;index"`
	Date        time.Time   `json:"date" gorm:"type:timestamptz;not null;index"`
	Duration    int         `json:"duration" gorm:"not null"` // hours
	Value       float64     `json:"value" gorm:"type:numeric(10,2);not null"`
	Status      ShiftStatus `json:"status" gorm:"type:varchar(20);not null;default:'available';index"`
	DoctorID    *uuid.UUID  `json:"doctor_id" gorm:"type:uuid;index"`
	CreatedBy   *uuid.UUID  `json:"created_by" gorm:"type:uuid"`
	Notes       string      `json:"notes" gorm:"type:text"`

	BookedAt       *time.Time `json:"booked_at"`
	CompletedAt    *time.Time `json:"completed_at"`
	CancelledAt    *time.Time `json:"cancelled_at"`
	ReminderSentAt *time.Time `json:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// EndsAt is the instant the shift is over
func (s *Shift) EndsAt() time.Time {
	return s.Date.Add(time.Duration(s.Duration) * time.Hour)
}

func (s *Shift) HasStarted(now time.Time) bool {
	return !now.Before(s.Date)
}

// IsHeldBy reports whether userID is the doctor who booked the shift
func (s *Shift) IsHeldBy(userID uuid.UUID) bool {
	return s.DoctorID != nil && *s.DoctorID == userID
}

// ApplyTransition updates status, doctor and timestamps for a move to `to` at `at`.
// Callers must have checked CanTransition.
func (s *Shift) ApplyTransition(to ShiftStatus, doctorID *uuid.UUID, at time.Time) {
	switch to {
	case ShiftBooked:
		s.DoctorID = nil
		if doctorID != nil {
			id := *doctorID
			s.DoctorID = &id
		}
		s.BookedAt = &at
	case ShiftAvailable:
		s.DoctorID = nil
		s.BookedAt = nil
		s.ReminderSentAt = nil
	case ShiftCompleted:
		s.CompletedAt = &at
	case ShiftCancelled:
		s.CancelledAt = &at
	}
	s.Status = to
	s.UpdatedAt = at
}
