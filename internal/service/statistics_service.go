package service

import (
	"context"
	"io"
	"time"

	"github.com/finscale/finscale-api/internal/model"
	"github.com/finscale/finscale-api/internal/repository"
	"github.com/finscale/finscale-api/pkg/apperrors"
	"github.com/finscale/finscale-api/pkg/report"
	"github.com/google/uuid"
)

// exportLimit caps the number of shifts in one statement
const exportLimit = 5000

var statusLabels = map[model.ShiftStatus]string{
	model.ShiftAvailable: "Disponível",
	model.ShiftBooked:    "Reservado",
	model.ShiftCompleted: "Concluído",
	model.ShiftCancelled: "Cancelado",
}

// StatisticsService computes earnings and hour summaries
type StatisticsService struct {
	shifts repository.ShiftRepository
	loc    *time.Location
	now    func() time.Time
}

func NewStatisticsService(shifts repository.ShiftRepository, loc *time.Location) *StatisticsService {
	if loc == nil {
		loc = time.UTC
	}
	return &StatisticsService{shifts: shifts, loc: loc, now: time.Now}
}

// Mine summarizes the shifts held by userID within [from, to]
func (s *StatisticsService) Mine(ctx context.Context, userID uuid.UUID, from, to *time.Time) (*model.ShiftStats, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	stats, err := s.shifts.Stats(ctx, repository.StatsFilter{DoctorID: &userID, From: from, To: to}, s.now())
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return stats, nil
}

// Overview summarizes every shift on the platform
func (s *StatisticsService) Overview(ctx context.Context, from, to *time.Time) (*model.ShiftStats, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	stats, err := s.shifts.Stats(ctx, repository.StatsFilter{From: from, To: to}, s.now())
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return stats, nil
}

// Export writes the caller's statement as an XLSX workbook. Totals cover
// completed shifts only, like the earnings in Mine.
func (s *StatisticsService) Export(ctx context.Context, userID uuid.UUID, from, to *time.Time, w io.Writer) error {
	if err := checkRange(from, to); err != nil {
		return err
	}

	filter := repository.ShiftFilter{DoctorID: &userID, From: from, To: to, Limit: repository.MaxPageSize}
	filter.Normalize()

	var rows []report.Row
	var totals report.Totals
	for {
		page, total, err := s.shifts.List(ctx, filter)
		if err != nil {
			return apperrors.Internal(err)
		}
		for _, sh := range page {
			rows = append(rows, report.Row{
				Date:        sh.Date,
				Institution: sh.Institution,
				Department:  sh.Department,
				Specialty:   sh.Specialty,
				Hours:       sh.Duration,
				Value:       sh.Value,
				Status:      statusLabels[sh.Status],
			})
			if sh.Status == model.ShiftCompleted {
				totals.Shifts++
				totals.Hours += sh.Duration
				totals.Earnings += sh.Value
			}
		}
		if len(page) == 0 || int64(filter.Page*filter.Limit) >= total || len(rows) >= exportLimit {
			break
		}
		filter.Page++
	}

	if err := report.WriteStatement(w, rows, totals, s.loc); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

func checkRange(from, to *time.Time) error {
	if from != nil && to != nil && to.Before(*from) {
		return apperrors.BadRequest("'to' must not be before 'from'")
	}
	return nil
}
