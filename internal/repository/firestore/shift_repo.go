// Package firestore keeps shifts in the Cloud Firestore "shifts" collection,
// the same documents the mobile app reads when it talks to Firebase directly.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	fs "cloud.google.com/go/firestore"
	"github.com/finscale/finscale-api/internal/model"
	"github.com/finscale/finscale-api/internal/repository"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const collection = "shifts"

type shiftDoc struct {
	Institution    string     `firestore:"institution"`
	Department     string     `firestore:"department"`
	Specialty      string     `firestore:"specialty"`
	Date           time.Time  `firestore:"date"`
	Duration       int64      `firestore:"duration"`
	Value          float64    `firestore:"value"`
	Status         string     `firestore:"status"`
	DoctorID       string     `firestore:"doctor_id"`
	CreatedBy      string     `firestore:"created_by"`
	Notes          string     `firestore:"notes"`
	BookedAt       *time.Time `firestore:"booked_at"`
	CompletedAt    *time.Time `firestore:"completed_at"`
	CancelledAt    *time.Time `firestore:"cancelled_at"`
	ReminderSentAt *time.Time `firestore:"reminder_sent_at"`
	CreatedAt      time.Time  `firestore:"created_at"`
	UpdatedAt      time.Time  `firestore:"updated_at"`
	DeletedAt      *time.Time `firestore:"deleted_at"`
}

// ShiftRepository implements repository.ShiftRepository on Firestore.
// Status changes run inside Firestore transactions, so concurrent bookings
// are serialized by the database.
type ShiftRepository struct {
	client *fs.Client
	now    func() time.Time
}

func NewShiftRepository(client *fs.Client) *ShiftRepository {
	return &ShiftRepository{client: client, now: time.Now}
}

func (r *ShiftRepository) col() *fs.CollectionRef {
	return r.client.Collection(collection)
}

func (r *ShiftRepository) Create(ctx context.Context, shift *model.Shift) error {
	now := r.now().UTC()
	if shift.ID == uuid.Nil {
		shift.ID = uuid.New()
	}
	if shift.Status == "" {
		shift.Status = model.ShiftAvailable
	}
	shift.CreatedAt = now
	shift.UpdatedAt = now

	_, err := r.col().Doc(shift.ID.String()).Create(ctx, toDoc(shift))
	if status.Code(err) == codes.AlreadyExists {
		return repository.ErrDuplicate
	}
	return err
}

func (r *ShiftRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Shift, error) {
	snap, err := r.col().Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	s, err := fromSnapshot(snap)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, repository.ErrNotFound
	}
	return s, nil
}

func (r *ShiftRepository) List(ctx context.Context, filter repository.ShiftFilter) ([]model.Shift, int64, error) {
	filter.Normalize()

	q := r.col().Query
	if filter.DoctorID != nil {
		q = q.Where("doctor_id", "==", filter.DoctorID.String())
	}
	switch len(filter.Statuses) {
	case 0:
	case 1:
		q = q.Where("status", "==", string(filter.Statuses[0]))
	default:
		q = q.Where("status", "in", statusValues(filter.Statuses))
	}

	shifts, err := r.collect(ctx, q, filter.Matches)
	if err != nil {
		return nil, 0, err
	}
	sortByDate(shifts)

	total := int64(len(shifts))
	start := filter.Offset()
	if start >= len(shifts) {
		return []model.Shift{}, total, nil
	}
	end := start + filter.Limit
	if end > len(shifts) {
		end = len(shifts)
	}
	return shifts[start:end], total, nil
}

func (r *ShiftRepository) Update(ctx context.Context, shift *model.Shift) error {
	_, err := r.mutate(ctx, shift.ID, func(current *model.Shift) error {
		if current.Status != model.ShiftAvailable {
			return repository.ErrConflict
		}
		current.Institution = shift.Institution
		current.Department = shift.Department
		current.Specialty = shift.Specialty
		current.Date = shift.Date
		current.Duration = shift.Duration
		current.Value = shift.Value
		current.Notes = shift.Notes
		current.UpdatedAt = r.now().UTC()
		return nil
	})
	return err
}

// Delete marks the document deleted; it stays in the collection
func (r *ShiftRepository) Delete(ctx context.Context, id uuid.UUID) error {
	now := r.now().UTC()
	_, err := r.mutate(ctx, id, func(current *model.Shift) error {
		if current.Status == model.ShiftBooked {
			return repository.ErrConflict
		}
		current.UpdatedAt = now
		return nil
	}, func(d *shiftDoc) { d.DeletedAt = &now })
	return err
}

func (r *ShiftRepository) Transition(ctx context.Context, t repository.Transition) (*model.Shift, error) {
	return r.mutate(ctx, t.ShiftID, func(current *model.Shift) error {
		if !t.Allows(current) {
			return repository.ErrConflict
		}
		current.ApplyTransition(t.To, t.DoctorID, t.At)
		return nil
	})
}

func (r *ShiftRepository) DueForReminder(ctx context.Context, now time.Time, window time.Duration) ([]model.Shift, error) {
	limit := now.Add(window)
	q := r.col().Where("status", "==", string(model.ShiftBooked))
	due, err := r.collect(ctx, q, func(s *model.Shift) bool {
		return s.ReminderSentAt == nil && s.Date.After(now) && !s.Date.After(limit)
	})
	if err != nil {
		return nil, err
	}
	sortByDate(due)
	return due, nil
}

func (r *ShiftRepository) MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.col().Doc(id.String()).Update(ctx, []fs.Update{
		{Path: "reminder_sent_at", Value: at},
	})
	if status.Code(err) == codes.NotFound {
		return repository.ErrNotFound
	}
	return err
}

func (r *ShiftRepository) Ended(ctx context.Context, now time.Time) ([]model.Shift, error) {
	q := r.col().Where("status", "==", string(model.ShiftBooked))
	ended, err := r.collect(ctx, q, func(s *model.Shift) bool {
		return !s.EndsAt().After(now)
	})
	if err != nil {
		return nil, err
	}
	sortByDate(ended)
	return ended, nil
}

// Stats loads the scoped shifts and summarizes them in Go
func (r *ShiftRepository) Stats(ctx context.Context, filter repository.StatsFilter, now time.Time) (*model.ShiftStats, error) {
	scope := repository.ShiftFilter{DoctorID: filter.DoctorID, From: filter.From, To: filter.To}
	q := r.col().Query
	if filter.DoctorID != nil {
		q = q.Where("doctor_id", "==", filter.DoctorID.String())
	}
	shifts, err := r.collect(ctx, q, scope.Matches)
	if err != nil {
		return nil, err
	}
	stats := model.Summarize(shifts, now)
	return &stats, nil
}

// mutate reads, changes and writes one shift inside a transaction. A sentinel
// returned by change aborts the transaction and is passed through unwrapped.
func (r *ShiftRepository) mutate(ctx context.Context, id uuid.UUID, change func(*model.Shift) error, extra ...func(*shiftDoc)) (*model.Shift, error) {
	ref := r.col().Doc(id.String())
	var result *model.Shift

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *fs.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return repository.ErrNotFound
			}
			return err
		}
		current, err := fromSnapshot(snap)
		if err != nil {
			return err
		}
		if current == nil {
			return repository.ErrNotFound
		}
		if err := change(current); err != nil {
			return err
		}

		doc := toDoc(current)
		for _, fn := range extra {
			fn(doc)
		}
		result = current
		return tx.Set(ref, doc)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrConflict) {
			return nil, unwrapSentinel(err)
		}
		return nil, fmt.Errorf("firestore transaction: %w", err)
	}
	return result, nil
}

func (r *ShiftRepository) collect(ctx context.Context, q fs.Query, match func(*model.Shift) bool) ([]model.Shift, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	out := []model.Shift{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		s, err := fromSnapshot(snap)
		if err != nil {
			return nil, err
		}
		if s != nil && match(s) {
			out = append(out, *s)
		}
	}
	return out, nil
}

// fromSnapshot returns nil for soft-deleted documents
func fromSnapshot(snap *fs.DocumentSnapshot) (*model.Shift, error) {
	var doc shiftDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode shift %s: %w", snap.Ref.ID, err)
	}
	if doc.DeletedAt != nil {
		return nil, nil
	}
	id, err := uuid.Parse(snap.Ref.ID)
	if err != nil {
		return nil, fmt.Errorf("shift document id %q: %w", snap.Ref.ID, err)
	}
	return fromDoc(id, &doc), nil
}

func toDoc(s *model.Shift) *shiftDoc {
	doc := &shiftDoc{
		Institution:    s.Institution,
		Department:     s.Department,
		Specialty:      s.Specialty,
		Date:           s.Date.UTC(),
		Duration:       int64(s.Duration),
		Value:          s.Value,
		Status:         string(s.Status),
		Notes:          s.Notes,
		BookedAt:       s.BookedAt,
		CompletedAt:    s.CompletedAt,
		CancelledAt:    s.CancelledAt,
		ReminderSentAt: s.ReminderSentAt,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
	if s.DoctorID != nil {
		doc.DoctorID = s.DoctorID.String()
	}
	if s.CreatedBy != nil {
		doc.CreatedBy = s.CreatedBy.String()
	}
	return doc
}

func fromDoc(id uuid.UUID, d *shiftDoc) *model.Shift {
	s := &model.Shift{
		ID:             id,
		Institution:    d.Institution,
		Department:     d.Department,
		Specialty:      d.Specialty,
		Date:           d.Date,
		Duration:       int(d.Duration),
		Value:          d.Value,
		Status:         model.ShiftStatus(d.Status),
		Notes:          d.Notes,
		BookedAt:       d.BookedAt,
		CompletedAt:    d.CompletedAt,
		CancelledAt:    d.CancelledAt,
		ReminderSentAt: d.ReminderSentAt,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	if parsed, err := uuid.Parse(d.DoctorID); err == nil {
		s.DoctorID = &parsed
	}
	if parsed, err := uuid.Parse(d.CreatedBy); err == nil {
		s.CreatedBy = &parsed
	}
	return s
}

func unwrapSentinel(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return repository.ErrNotFound
	}
	return repository.ErrConflict
}

func statusValues(statuses []model.ShiftStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
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
