package postgres

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/finscale/finscale-api/internal/model"
	"github.com/finscale/finscale-api/internal/repository"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ShiftRepository handles database operations for Shift
type ShiftRepository struct {
	db *gorm.DB
}

func NewShiftRepository(db *gorm.DB) *ShiftRepository {
	return &ShiftRepository{db: db}
}

func (r *ShiftRepository) Create(ctx context.Context, shift *model.Shift) error {
	return translate(r.db.WithContext(ctx).Create(shift).Error)
}

func (r *ShiftRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Shift, error) {
	var shift model.Shift
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&shift).Error; err != nil {
		return nil, translate(err)
	}
	return &shift, nil
}

// List returns a page of shifts ordered by date and the total number of matches
func (r *ShiftRepository) List(ctx context.Context, filter repository.ShiftFilter) ([]model.Shift, int64, error) {
	filter.Normalize()

	q := r.db.WithContext(ctx).Model(&model.Shift{})
	if len(filter.Statuses) > 0 {
		q = q.Where("status = ANY(?)", pq.Array(statusStrings(filter.Statuses)))
	}
	if filter.Specialty != "" {
		q = q.Where("specialty = ?", filter.Specialty)
	}
	if filter.Institution != "" {
		q = q.Where("institution = ?", filter.Institution)
	}
	if filter.DoctorID != nil {
		q = q.Where("doctor_id = ?", *filter.DoctorID)
	}
	if filter.From != nil {
		q = q.Where("date >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("date <= ?", *filter.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var shifts []model.Shift
	err := q.Order("date ASC").Order("id ASC").
		Offset(filter.Offset()).
		Limit(filter.Limit).
		Find(&shifts).Error
	return shifts, total, err
}

// Update writes the editable columns, only while the shift is still available
func (r *ShiftRepository) Update(ctx context.Context, shift *model.Shift) error {
	res := r.db.WithContext(ctx).Model(&model.Shift{}).
		Where("id = ? AND status = ?", shift.ID, model.ShiftAvailable).
		Updates(map[string]interface{}{
			"institution": shift.Institution,
			"department":  shift.Department,
			"specialty":   shift.Specialty,
			"date":        shift.Date,
			"duration":    shift.Duration,
			"value":       shift.Value,
			"notes":       shift.Notes,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.missingOrConflict(ctx, shift.ID)
	}
	return nil
}

// Delete soft-deletes a shift unless a doctor holds it
func (r *ShiftRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND status <> ?", id, model.ShiftBooked).
		Delete(&model.Shift{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.missingOrConflict(ctx, id)
	}
	return nil
}

// Transition performs a compare-and-set on status so two concurrent bookings
// cannot both win.
func (r *ShiftRepository) Transition(ctx context.Context, t repository.Transition) (*model.Shift, error) {
	updates := map[string]interface{}{
		"status":     t.To,
		"updated_at": t.At,
	}
	switch t.To {
	case model.ShiftBooked:
		updates["doctor_id"] = t.DoctorID
		updates["booked_at"] = t.At
	case model.ShiftAvailable:
		updates["doctor_id"] = nil
		updates["booked_at"] = nil
		updates["reminder_sent_at"] = nil
	case model.ShiftCompleted:
		updates["completed_at"] = t.At
	case model.ShiftCancelled:
		updates["cancelled_at"] = t.At
	}

	q := r.db.WithContext(ctx).Model(&model.Shift{}).
		Where("id = ? AND status = ANY(?)", t.ShiftID, pq.Array(statusStrings(t.From)))
	if t.ExpectDoctor != nil {
		q = q.Where("doctor_id = ?", *t.ExpectDoctor)
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, r.missingOrConflict(ctx, t.ShiftID)
	}
	return r.FindByID(ctx, t.ShiftID)
}

func (r *ShiftRepository) DueForReminder(ctx context.Context, now time.Time, window time.Duration) ([]model.Shift, error) {
	var shifts []model.Shift
	err := r.db.WithContext(ctx).
		Where("status = ? AND reminder_sent_at IS NULL AND date > ? AND date <= ?",
			model.ShiftBooked, now, now.Add(window)).
		Order("date ASC").
		Find(&shifts).Error
	return shifts, err
}

func (r *ShiftRepository) MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Shift{}).
		Where("id = ?", id).
		Update("reminder_sent_at", at).Error
}

func (r *ShiftRepository) Ended(ctx context.Context, now time.Time) ([]model.Shift, error) {
	var shifts []model.Shift
	err := r.db.WithContext(ctx).
		Where("status = ? AND date + (duration * INTERVAL '1 hour') <= ?", model.ShiftBooked, now).
		Order("date ASC").
		Find(&shifts).Error
	return shifts, err
}

type statsRow struct {
	TotalShifts     int64
	Available       int64
	Booked          int64
	Completed       int64
	Cancelled       int64
	Upcoming        int64
	TotalHours      int64
	TotalEarnings   float64
	PendingEarnings float64
}

type monthRow struct {
	Month    string
	Shifts   int64
	Hours    int64
	Earnings float64
}

// Stats aggregates in SQL; results match model.Summarize
func (r *ShiftRepository) Stats(ctx context.Context, filter repository.StatsFilter, now time.Time) (*model.ShiftStats, error) {
	where, args := statsWhere(filter)

	var row statsRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) AS total_shifts,
			COUNT(*) FILTER (WHERE status = 'available') AS available,
			COUNT(*) FILTER (WHERE status = 'booked') AS booked,
			COUNT(*) FILTER (WHERE status = 'completed') AS completed,
			COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled,
			COUNT(*) FILTER (WHERE status = 'booked' AND date > ?) AS upcoming,
			COALESCE(SUM(duration) FILTER (WHERE status = 'completed'), 0) AS total_hours,
			COALESCE(SUM(value) FILTER (WHERE status = 'completed'), 0) AS total_earnings,
			COALESCE(SUM(value) FILTER (WHERE status = 'booked'), 0) AS pending_earnings
		FROM shifts
		WHERE `+where, append([]interface{}{now}, args...)...).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}

	var months []monthRow
	err = r.db.WithContext(ctx).Raw(`
		SELECT
			to_char(date AT TIME ZONE 'UTC', 'YYYY-MM') AS month,
			COUNT(*) AS shifts,
			SUM(duration) AS hours,
			SUM(value) AS earnings
		FROM shifts
		WHERE status = 'completed' AND `+where+`
		GROUP BY 1
		ORDER BY 1`, args...).
		Scan(&months).Error
	if err != nil {
		return nil, err
	}

	stats := &model.ShiftStats{
		TotalShifts:     int(row.TotalShifts),
		Available:       int(row.Available),
		Booked:          int(row.Booked),
		Completed:       int(row.Completed),
		Cancelled:       int(row.Cancelled),
		Upcoming:        int(row.Upcoming),
		TotalHours:      int(row.TotalHours),
		TotalEarnings:   cents(row.TotalEarnings),
		PendingEarnings: cents(row.PendingEarnings),
		Monthly:         make([]model.MonthlyStats, 0, len(months)),
	}
	for _, m := range months {
		stats.Monthly = append(stats.Monthly, model.MonthlyStats{
			Month:    m.Month,
			Shifts:   int(m.Shifts),
			Hours:    int(m.Hours),
			Earnings: cents(m.Earnings),
		})
	}
	return stats, nil
}

func (r *ShiftRepository) missingOrConflict(ctx context.Context, id uuid.UUID) error {
	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}
	return repository.ErrConflict
}

func statsWhere(f repository.StatsFilter) (string, []interface{}) {
	conds := []string{"deleted_at IS NULL"}
	var args []interface{}
	if f.DoctorID != nil {
		conds = append(conds, "doctor_id = ?")
		args = append(args, *f.DoctorID)
	}
	if f.From != nil {
		conds = append(conds, "date >= ?")
		args = append(args, *f.From)
	}
	if f.To != nil {
		conds = append(conds, "date <= ?")
		args = append(args, *f.To)
	}
	return strings.Join(conds, " AND "), args
}

func statusStrings(statuses []model.ShiftStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func cents(v float64) float64 {
	return math.Round(v*100) / 100
}
