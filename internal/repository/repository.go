// Package repository declares the persistence contracts shared by the
// postgres, firestore and memory stores.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/finscale/finscale-api/internal/model"
	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrConflict  = errors.New("record state conflict")
	ErrDuplicate = errors.New("duplicate record")
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxUserList     = 50
)

// UserFilter narrows user listings
type UserFilter struct {
	Query          string // matches display name or email
	Specialization string
	Profession     string
	Limit          int
}

type UserRepository interface {
	// Create returns ErrDuplicate when the email or firebase uid is taken
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByFirebaseUID(ctx context.Context, uid string) (*model.User, error)
	List(ctx context.Context, filter UserFilter) ([]model.User, error)
	// Save writes every profile field of user
	Save(ctx context.Context, user *model.User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	UpdateRole(ctx context.Context, id uuid.UUID, role model.Role) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ShiftFilter narrows shift listings; zero values mean "any"
type ShiftFilter struct {
	Statuses    []model.ShiftStatus
	Specialty   string
	Institution string
	DoctorID    *uuid.UUID
	From        *time.Time
	To          *time.Time
	Page        int
	Limit       int
}

// Normalize applies paging defaults and bounds
func (f *ShiftFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
}

func (f ShiftFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Matches reports whether s passes the filter, for stores that filter in Go
func (f ShiftFilter) Matches(s *model.Shift) bool {
	if len(f.Statuses) > 0 {
		found := false
		for _, st := range f.Statuses {
			if s.Status == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Specialty != "" && s.Specialty != f.Specialty {
		return false
	}
	if f.Institution != "" && s.Institution != f.Institution {
		return false
	}
	if f.DoctorID != nil && !s.IsHeldBy(*f.DoctorID) {
		return false
	}
	if f.From != nil && s.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && s.Date.After(*f.To) {
		return false
	}
	return true
}

// Transition is a compare-and-set status change. It only applies while the
// shift is in one of From (and, when ExpectDoctor is set, held by that doctor).
type Transition struct {
	ShiftID      uuid.UUID
	From         []model.ShiftStatus
	To           model.ShiftStatus
	DoctorID     *uuid.UUID // assigned when booking
	ExpectDoctor *uuid.UUID
	At           time.Time
}

// Allows reports whether s currently satisfies the transition's preconditions
func (t Transition) Allows(s *model.Shift) bool {
	ok := false
	for _, st := range t.From {
		if s.Status == st {
			ok = true
			break
		}
	}
	if !ok {
		return false
	}
	if t.ExpectDoctor != nil && !s.IsHeldBy(*t.ExpectDoctor) {
		return false
	}
	return true
}

// StatsFilter scopes statistics; a nil DoctorID means platform-wide
type StatsFilter struct {
	DoctorID *uuid.UUID
	From     *time.Time
	To       *time.Time
}

type ShiftRepository interface {
	Create(ctx context.Context, shift *model.Shift) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Shift, error)
	// List returns one page ordered by date ascending plus the total match count
	List(ctx context.Context, filter ShiftFilter) ([]model.Shift, int64, error)
	// Update writes the editable fields; ErrConflict unless the shift is available
	Update(ctx context.Context, shift *model.Shift) error
	// Delete soft-deletes; ErrConflict while the shift is booked
	Delete(ctx context.Context, id uuid.UUID) error
	// Transition returns the updated shift, ErrNotFound or ErrConflict
	Transition(ctx context.Context, t Transition) (*model.Shift, error)
	// DueForReminder lists booked shifts starting in (now, now+window] with no reminder sent
	DueForReminder(ctx context.Context, now time.Time, window time.Duration) ([]model.Shift, error)
	MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error
	// Ended lists booked shifts whose end is at or before now
	Ended(ctx context.Context, now time.Time) ([]model.Shift, error)
	Stats(ctx context.Context, filter StatsFilter, now time.Time) (*model.ShiftStats, error)
}

type TokenRepository interface {
	// Register upserts the token for userID and marks it active
	Register(ctx context.Context, userID uuid.UUID, token, deviceType string) error
	// Deactivate returns ErrNotFound when userID has no such token
	Deactivate(ctx context.Context, userID uuid.UUID, token string) error
	DeactivateTokens(ctx context.Context, tokens []string) error
	ActiveTokens(ctx context.Context, userID uuid.UUID) ([]string, error)
}

type OTPRepository interface {
	Create(ctx context.Context, otp *model.OTPCode) error
	FindValid(ctx context.Context, userID uuid.UUID, code string, purpose model.OTPPurpose, now time.Time) (*model.OTPCode, error)
	MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) error
	InvalidateAll(ctx context.Context, userID uuid.UUID, purpose model.OTPPurpose, at time.Time) error
	CountSince(ctx context.Context, userID uuid.UUID, purpose model.OTPPurpose, since time.Time) (int64, error)
	CleanupExpired(ctx context.Context, now time.Time) (int64, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.Notification, error)
	// MarkRead returns ErrNotFound when the notification is not userID's
	MarkRead(ctx context.Context, userID, id uuid.UUID, at time.Time) error
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Repositories bundles one store implementation per entity
type Repositories struct {
	Users         UserRepository
	Shifts        ShiftRepository
	Tokens        TokenRepository
	OTPs          OTPRepository
	Notifications NotificationRepository
}
