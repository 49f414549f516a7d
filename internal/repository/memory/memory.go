// Package memory keeps every repository in process memory. Nothing persists
// across restarts; it backs DATA_SOURCE=memory and the test suites.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/finscale/finscale-api/internal/model"
	"github.com/finscale/finscale-api/internal/repository"
	"github.com/google/uuid"
)

// New returns a fresh set of in-memory repositories
func New() repository.Repositories {
	return repository.Repositories{
		Users:         NewUserRepository(),
		Shifts:        NewShiftRepository(),
		Tokens:        NewTokenRepository(),
		OTPs:          NewOTPRepository(),
		Notifications: NewNotificationRepository(),
	}
}

// ==================== Users ====================

type UserRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*model.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[uuid.UUID]*model.User)}
}

func (r *UserRepository) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(user.Email)
	for _, u := range r.users {
		if u.Email == email {
			return repository.ErrDuplicate
		}
		if user.FirebaseUID != nil && u.FirebaseUID != nil && *u.FirebaseUID == *user.FirebaseUID {
			return repository.ErrDuplicate
		}
	}

	now := time.Now().UTC()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Role == "" {
		user.Role = model.RoleDoctor
	}
	user.Email = email
	user.CreatedAt = now
	user.UpdatedAt = now

	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *UserRepository) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*model.User, error) {
	return r.findOne(func(u *model.User) bool { return u.Email == strings.ToLower(email) })
}

func (r *UserRepository) FindByFirebaseUID(_ context.Context, uid string) (*model.User, error) {
	return r.findOne(func(u *model.User) bool { return u.FirebaseUID != nil && *u.FirebaseUID == uid })
}

func (r *UserRepository) findOne(match func(*model.User) bool) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepository) List(_ context.Context, filter repository.UserFilter) ([]model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	limit := filter.Limit
	if limit < 1 || limit > repository.MaxUserList {
		limit = repository.MaxUserList
	}
	q := strings.ToLower(filter.Query)

	out := []model.User{}
	for _, u := range r.users {
		if q != "" && !strings.Contains(strings.ToLower(u.DisplayName), q) && !strings.Contains(u.Email, q) {
			continue
		}
		if filter.Specialization != "" && u.Specialization != filter.Specialization {
			continue
		}
		if filter.Profession != "" && u.Profession != filter.Profession {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *UserRepository) Save(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if user.FirebaseUID != nil {
		for id, other := range r.users {
			if id != user.ID && other.FirebaseUID != nil && *other.FirebaseUID == *user.FirebaseUID {
				return repository.ErrDuplicate
			}
		}
	}
	u.DisplayName = user.DisplayName
	u.Profession = user.Profession
	u.Specialization = user.Specialization
	u.CRM = user.CRM
	u.PhoneNumber = user.PhoneNumber
	u.PhotoURL = user.PhotoURL
	u.FirebaseUID = user.FirebaseUID
	u.NotificationsEnabled = user.NotificationsEnabled
	u.ShiftReminders = user.ShiftReminders
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *UserRepository) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Password = hash
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *UserRepository) UpdateRole(_ context.Context, id uuid.UUID, role model.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Role = role
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *UserRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

// ==================== Shifts ====================

type ShiftRepository struct {
	mu     sync.RWMutex
	shifts map[uuid.UUID]*model.Shift
}

func NewShiftRepository() *ShiftRepository {
	return &ShiftRepository{shifts: make(map[uuid.UUID]*model.Shift)}
}

func (r *ShiftRepository) Create(_ context.Context, shift *model.Shift) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if shift.ID == uuid.Nil {
		shift.ID = uuid.New()
	}
	if shift.Status == "" {
		shift.Status = model.ShiftAvailable
	}
	shift.CreatedAt = now
	shift.UpdatedAt = now

	cp := *shift
	r.shifts[shift.ID] = &cp
	return nil
}

func (r *ShiftRepository) FindByID(_ context.Context, id uuid.UUID) (*model.Shift, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.shifts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *ShiftRepository) List(_ context.Context, filter repository.ShiftFilter) ([]model.Shift, int64, error) {
	filter.Normalize()
	matched := r.filter(filter.Matches)
	sortByDate(matched)

	total := int64(len(matched))
	start := filter.Offset()
	if start >= len(matched) {
		return []model.Shift{}, total, nil
	}
	end := start + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *ShiftRepository) Update(_ context.Context, shift *model.Shift) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.shifts[shift.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if s.Status != model.ShiftAvailable {
		return repository.ErrConflict
	}
	s.Institution = shift.Institution
	s.Department = shift.Department
	s.Specialty = shift.Specialty
	s.Date = shift.Date
	s.Duration = shift.Duration
	s.Value = shift.Value
	s.Notes = shift.Notes
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *ShiftRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.shifts[id]
	if !ok {
		return repository.ErrNotFound
	}
	if s.Status == model.ShiftBooked {
		return repository.ErrConflict
	}
	delete(r.shifts, id)
	return nil
}

// Transition checks and applies under one lock, which makes it a compare-and-set
func (r *ShiftRepository) Transition(_ context.Context, t repository.Transition) (*model.Shift, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.shifts[t.ShiftID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !t.Allows(s) {
		return nil, repository.ErrConflict
	}
	s.ApplyTransition(t.To, t.DoctorID, t.At)

	cp := *s
	return &cp, nil
}

func (r *ShiftRepository) DueForReminder(_ context.Context, now time.Time, window time.Duration) ([]model.Shift, error) {
	limit := now.Add(window)
	due := r.filter(func(s *model.Shift) bool {
		return s.Status == model.ShiftBooked && s.ReminderSentAt == nil &&
			s.Date.After(now) && !s.Date.After(limit)
	})
	sortByDate(due)
	return due, nil
}

func (r *ShiftRepository) MarkReminded(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.shifts[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.ReminderSentAt = &at
	return nil
}

func (r *ShiftRepository) Ended(_ context.Context, now time.Time) ([]model.Shift, error) {
	ended := r.filter(func(s *model.Shift) bool {
		return s.Status == model.ShiftBooked && !s.EndsAt().After(now)
	})
	sortByDate(ended)
	return ended, nil
}

func (r *ShiftRepository) Stats(_ context.Context, filter repository.StatsFilter, now time.Time) (*model.ShiftStats, error) {
	scope := repository.ShiftFilter{DoctorID: filter.DoctorID, From: filter.From, To: filter.To}
	stats := model.Summarize(r.filter(scope.Matches), now)
	return &stats, nil
}

func (r *ShiftRepository) filter(match func(*model.Shift) bool) []model.Shift {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []model.Shift{}
	for _, s := range r.shifts {
		if match(s) {
			out = append(out, *s)
		}
	}
	return out
}

func sortByDate(shifts []model.Shift) {
	sort.Slice(shifts, func(i, j int) bool {
		if shifts[i].Date.Equal(shifts[j].Date) {
			return shifts[i].ID.String() < shifts[j].ID.String()
		}
		return shifts[i].Date.Before(shifts[j].Date)
	})
}

// ==================== FCM tokens ====================

type TokenRepository struct {
	mu     sync.RWMutex
	tokens map[string]*model.FCMToken
}

func NewTokenRepository() *TokenRepository {
	return &TokenRepository{tokens: make(map[string]*model.FCMToken)}
}

func (r *TokenRepository) Register(_ context.Context, userID uuid.UUID, token, deviceType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	t, ok := r.tokens[token]
	if !ok {
		t = &model.FCMToken{ID: uuid.New(), Token: token, CreatedAt: now}
		r.tokens[token] = t
	}
	t.UserID = userID
	t.DeviceType = deviceType
	t.Active = true
	t.LastActiveAt = now
	t.UpdatedAt = now
	return nil
}

func (r *TokenRepository) Deactivate(_ context.Context, userID uuid.UUID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[token]
	if !ok || t.UserID != userID {
		return repository.ErrNotFound
	}
	t.Active = false
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *TokenRepository) DeactivateTokens(_ context.Context, tokens []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, token := range tokens {
		if t, ok := r.tokens[token]; ok {
			t.Active = false
		}
	}
	return nil
}

func (r *TokenRepository) ActiveTokens(_ context.Context, userID uuid.UUID) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var active []*model.FCMToken
	for _, t := range r.tokens {
		if t.UserID == userID && t.Active {
			active = append(active, t)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].LastActiveAt.After(active[j].LastActiveAt) })

	out := make([]string, 0, len(active))
	for _, t := range active {
		out = append(out, t.Token)
	}
	return out, nil
}

// ==================== OTP codes ====================

type OTPRepository struct {
	mu    sync.Mutex
	codes []*model.OTPCode
}

func NewOTPRepository() *OTPRepository {
	return &OTPRepository{}
}

func (r *OTPRepository) Create(_ context.Context, otp *model.OTPCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if otp.ID == uuid.Nil {
		otp.ID = uuid.New()
	}
	if otp.CreatedAt.IsZero() {
		otp.CreatedAt = time.Now().UTC()
	}
	cp := *otp
	r.codes = append(r.codes, &cp)
	return nil
}

func (r *OTPRepository) FindValid(_ context.Context, userID uuid.UUID, code string, purpose model.OTPPurpose, now time.Time) (*model.OTPCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.codes) - 1; i >= 0; i-- {
		o := r.codes[i]
		if o.UserID == userID && o.Code == code && o.Purpose == purpose && o.IsValidAt(now) {
			cp := *o
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *OTPRepository) MarkUsed(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, o := range r.codes {
		if o.ID == id && o.UsedAt == nil {
			o.UsedAt = &at
		}
	}
	return nil
}

func (r *OTPRepository) InvalidateAll(_ context.Context, userID uuid.UUID, purpose model.OTPPurpose, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, o := range r.codes {
		if o.UserID == userID && o.Purpose == purpose && o.IsValidAt(at) {
			used := at
			o.UsedAt = &used
		}
	}
	return nil
}

func (r *OTPRepository) CountSince(_ context.Context, userID uuid.UUID, purpose model.OTPPurpose, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, o := range r.codes {
		if o.UserID == userID && o.Purpose == purpose && o.CreatedAt.After(since) {
			n++
		}
	}
	return n, nil
}

func (r *OTPRepository) CleanupExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := now.Add(-time.Hour)
	kept := r.codes[:0]
	var removed int64
	for _, o := range r.codes {
		if o.ExpiresAt.Before(now) && o.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, o)
	}
	r.codes = kept
	return removed, nil
}

// ==================== Notifications ====================

type NotificationRepository struct {
	mu    sync.RWMutex
	items []*model.Notification
}

func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{}
}

func (r *NotificationRepository) Create(_ context.Context, n *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	cp := *n
	r.items = append(r.items, &cp)
	return nil
}

// ListByUser returns newest first
func (r *NotificationRepository) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]model.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []model.Notification{}
	for i := len(r.items) - 1; i >= 0 && len(out) < limit; i-- {
		if r.items[i].UserID == userID {
			out = append(out, *r.items[i])
		}
	}
	return out, nil
}

func (r *NotificationRepository) MarkRead(_ context.Context, userID, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, n := range r.items {
		if n.ID == id && n.UserID == userID {
			if n.ReadAt == nil {
				n.ReadAt = &at
			}
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *NotificationRepository) UnreadCount(_ context.Context, userID uuid.UUID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, item := range r.items {
		if item.UserID == userID && item.ReadAt == nil {
			n++
		}
	}
	return n, nil
}
