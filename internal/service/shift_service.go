package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/finscale/finscale-api/internal/model"
	"github.com/finscale/finscale-api/internal/repository"
	"github.com/finscale/finscale-api/pkg/apperrors"
	"github.com/google/uuid"
)

var errNotManager = apperrors.Forbidden("only managers can manage shifts")

// ShiftService implements the shift lifecycle:
//
//	available -> booked -> completed
//	    |          |  \
//	    |          |   -> available (release)
//	    +----------+-> cancelled
type ShiftService struct {
	shifts   repository.ShiftRepository
	notifier Notifier
	events   EventPublisher
	loc      *time.Location
	now      func() time.Time
}

func NewShiftService(shifts repository.ShiftRepository, notifier Notifier, events EventPublisher, loc *time.Location) *ShiftService {
	if events == nil {
		events = nopPublisher{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ShiftService{
		shifts:   shifts,
		notifier: notifier,
		events:   events,
		loc:      loc,
		now:      time.Now,
	}
}

// ==================== Queries ====================

func (s *ShiftService) List(ctx context.Context, filter repository.ShiftFilter) (*model.PageResponse, error) {
	if err := checkRange(filter.From, filter.To); err != nil {
		return nil, err
	}
	filter.Normalize()
	shifts, total, err := s.shifts.List(ctx, filter)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &model.PageResponse{Data: shifts, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// Mine lists the shifts booked (now or in the past) by userID
func (s *ShiftService) Mine(ctx context.Context, userID uuid.UUID, filter repository.ShiftFilter) (*model.PageResponse, error) {
	filter.DoctorID = &userID
	return s.List(ctx, filter)
}

func (s *ShiftService) Get(ctx context.Context, id uuid.UUID) (*model.Shift, error) {
	shift, err := s.shifts.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "shift not found")
	}
	return shift, nil
}

// ==================== Management ====================

func (s *ShiftService) Create(ctx context.Context, actor Actor, req model.CreateShiftRequest) (*model.Shift, error) {
	if !actor.Role.CanManageShifts() {
		return nil, errNotManager
	}
	if req.Date.IsZero() {
		return nil, apperrors.BadRequest("date is required")
	}

	shift := &model.Shift{
		Institution: req.Institution,
		Department:  req.Department,
		Specialty:   req.Specialty,
		Date:        req.Date.UTC(),
		Duration:    req.Duration,
		Value:       req.Value,
		Notes:       req.Notes,
		Status:      model.ShiftAvailable,
		CreatedBy:   &actor.ID,
	}
	if err := s.shifts.Create(ctx, shift); err != nil {
		return nil, apperrors.Internal(err)
	}

	log.Printf("🩺 Shift %s published at %s (%s)", shift.ID, shift.Institution, shift.Specialty)
	s.publish(model.WSEventShiftCreated, shift)
	return shift, nil
}

// Update edits a shift that nobody has booked yet
func (s *ShiftService) Update(ctx context.Context, actor Actor, id uuid.UUID, req model.UpdateShiftRequest) (*model.Shift, error) {
	if !actor.Role.CanManageShifts() {
		return nil, errNotManager
	}

	shift, err := s.shifts.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "shift not found")
	}
	if shift.Status != model.ShiftAvailable {
		return nil, apperrors.Conflict("only available shifts can be edited")
	}

	if req.Institution != nil {
		shift.Institution = *req.Institution
	}
	if req.Department != nil {
		shift.Department = *req.Department
	}
	if req.Specialty != nil {
		shift.Specialty = *req.Specialty
	}
	if req.Date != nil {
		shift.Date = req.Date.UTC()
	}
	if req.Duration != nil {
		shift.Duration = *req.Duration
	}
	if req.Value != nil {
		shift.Value = *req.Value
	}
	if req.Notes != nil {
		shift.Notes = *req.Notes
	}

	if err := s.shifts.Update(ctx, shift); err != nil {
		return nil, s.stateError(err, "only available shifts can be edited")
	}

	updated, err := s.shifts.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "shift not found")
	}
	s.publish(model.WSEventShiftUpdated, updated)
	return updated, nil
}

func (s *ShiftService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if !actor.Role.CanManageShifts() {
		return errNotManager
	}
	if err := s.shifts.Delete(ctx, id); err != nil {
		return s.stateError(err, "booked shifts cannot be deleted")
	}

	log.Printf("🗑️  Shift %s deleted", id)
	s.publish(model.WSEventShiftDeleted, model.ShiftDeletedEvent{ID: id})
	return nil
}

// ==================== Lifecycle ====================

// Book claims an available shift for the caller. Concurrent bookings of the
// same shift are decided by the store; losers get 409.
func (s *ShiftService) Book(ctx context.Context, actor Actor, id uuid.UUID) (*model.Shift, error) {
	shift, err := s.shifts.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "shift not found")
	}
	if shift.Status != model.ShiftAvailable {
		return nil, apperrors.Conflict("shift is no longer available")
	}
	now := s.now()
	if shift.HasStarted(now) {
		return nil, apperrors.Conflict("shift has already started")
	}

	booked, err := s.shifts.Transition(ctx, repository.Transition{
		ShiftID:  id,
		From:     []model.ShiftStatus{model.ShiftAvailable},
		To:       model.ShiftBooked,
		DoctorID: &actor.ID,
		At:       now.UTC(),
	})
	if err != nil {
		return nil, s.stateError(err, "shift is no longer available")
	}

	log.Printf("✅ Shift %s booked by %s", id, actor.ID)
	s.publish(model.WSEventShiftBooked, booked)
	s.notify(ctx, actor.ID, model.NotificationShiftBooked, "Plantão confirmado",
		fmt.Sprintf("Você reservou o plantão em %s, %s.", booked.Institution, s.formatDate(booked.Date)), booked)
	return booked, nil
}

// Release gives a booked shift back to the board; only its doctor may do it
func (s *ShiftService) Release(ctx context.Context, actor Actor, id uuid.UUID) (*model.Shift, error) {
	shift, err := s.shifts.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "shift not found")
	}
	if shift.Status != model.ShiftBooked {
		return nil, apperrors.Conflict("shift is not booked")
	}
	if !shift.IsHeldBy(actor.ID) {
		return nil, apperrors.Forbidden("only the booked doctor can release this shift")
	}

	released, err := s.shifts.Transition(ctx, repository.Transition{
		ShiftID:      id,
		From:         []model.ShiftStatus{model.ShiftBooked},
		To:           model.ShiftAvailable,
		ExpectDoctor: &actor.ID,
		At:           s.now().UTC(),
	})
	if err != nil {
		return nil, s.stateError(err, "shift is not booked")
	}

	log.Printf("↩️  Shift %s released by %s", id, actor.ID)
	s.publish(model.WSEventShiftReleased, released)
	return released, nil
}

// Complete closes a booked shift once it has started
func (s *ShiftService) Complete(ctx context.Context, actor Actor, id uuid.UUID) (*model.Shift, error) {
	shift, err := s.shifts.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "shift not found")
	}
	if shift.Status != model.ShiftBooked {
		return nil, apperrors.Conflict("only booked shifts can be completed")
	}
	if !shift.IsHeldBy(actor.ID) && !actor.Role.CanManageShifts() {
		return nil, apperrors.Forbidden("only the booked doctor or a manager can complete this shift")
	}
	now := s.now()
	if !shift.HasStarted(now) {
		return nil, apperrors.Conflict("shift has not started yet")
	}

	return s.complete(ctx, id, now)
}

// Cancel withdraws an available or booked shift and warns the booked doctor
func (s *ShiftService) Cancel(ctx context.Context, actor Actor, id uuid.UUID) (*model.Shift, error) {
	if !actor.Role.CanManageShifts() {
		return nil, errNotManager
	}

	shift, err := s.shifts.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "shift not found")
	}
	if !model.CanTransition(shift.Status, model.ShiftCancelled) {
		return nil, apperrors.Conflict("shift can no longer be cancelled")
	}

	cancelled, err := s.shifts.Transition(ctx, repository.Transition{
		ShiftID: id,
		From:    []model.ShiftStatus{model.ShiftAvailable, model.ShiftBooked},
		To:      model.ShiftCancelled,
		At:      s.now().UTC(),
	})
	if err != nil {
		return nil, s.stateError(err, "shift can no longer be cancelled")
	}

	log.Printf("❌ Shift %s cancelled by %s", id, actor.ID)
	s.publish(model.WSEventShiftCancelled, cancelled)
	if cancelled.DoctorID != nil {
		s.notify(ctx, *cancelled.DoctorID, model.NotificationShiftCancelled, "Plantão cancelado",
			fmt.Sprintf("O plantão em %s, %s, foi cancelado.", cancelled.Institution, s.formatDate(cancelled.Date)), cancelled)
	}
	return cancelled, nil
}

// AutoComplete completes every booked shift that has ended; used by the scheduler
func (s *ShiftService) AutoComplete(ctx context.Context) (int, error) {
	now := s.now()
	ended, err := s.shifts.Ended(ctx, now)
	if err != nil {
		return 0, err
	}

	done := 0
	for _, shift := range ended {
		if _, err := s.complete(ctx, shift.ID, now); err != nil {
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) && appErr.Code == apperrors.CodeConflict {
				continue // changed concurrently
			}
			return done, err
		}
		done++
	}
	return done, nil
}

func (s *ShiftService) complete(ctx context.Context, id uuid.UUID, now time.Time) (*model.Shift, error) {
	completed, err := s.shifts.Transition(ctx, repository.Transition{
		ShiftID: id,
		From:    []model.ShiftStatus{model.ShiftBooked},
		To:      model.ShiftCompleted,
		At:      now.UTC(),
	})
	if err != nil {
		return nil, s.stateError(err, "only booked shifts can be completed")
	}

	log.Printf("🏁 Shift %s completed", id)
	s.publish(model.WSEventShiftCompleted, completed)
	return completed, nil
}

// ==================== Helpers ====================

func (s *ShiftService) stateError(err error, conflictMessage string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFound("shift not found")
	case errors.Is(err, repository.ErrConflict):
		return apperrors.Conflict(conflictMessage)
	default:
		return apperrors.Internal(err)
	}
}

func (s *ShiftService) publish(eventType string, payload interface{}) {
	s.events.Broadcast(&model.WSEvent{Type: eventType, Payload: payload})
}

// notify is best effort: push failures never fail the request
func (s *ShiftService) notify(ctx context.Context, userID uuid.UUID, kind model.NotificationType, title, body string, shift *model.Shift) {
	if s.notifier == nil {
		return
	}
	data := map[string]string{"shift_id": shift.ID.String(), "type": string(kind)}
	if _, err := s.notifier.NotifyUser(ctx, userID, kind, title, body, data); err != nil {
		log.Printf("⚠️  Failed to notify %s about shift %s: %v", userID, shift.ID, err)
	}
}

func (s *ShiftService) formatDate(t time.Time) string {
	return t.In(s.loc).Format("02/01/2006 às 15:04")
}
