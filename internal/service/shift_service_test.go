package service

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/finscale/finscale-api/internal/model"
	"github.com/finscale/finscale-api/internal/repository"
	"github.com/finscale/finscale-api/internal/repository/memory"
	"github.com/finscale/finscale-api/pkg/apperrors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type shiftFixture struct {
	repos    repository.Repositories
	svc      *ShiftService
	events   *recordingPublisher
	sender   *fakeSender
	doctor   Actor
	other    Actor
	manager  Actor
	now      time.Time
	tomorrow time.Time
}

func newShiftFixture(t *testing.T) *shiftFixture {
	t.Helper()
	repos := memory.New()
	events := &recordingPublisher{}
	sender := &fakeSender{}
	notifier := NewNotificationService(repos, sender)

	doctor := createUser(t, repos, "ana@finscale.app", model.RoleDoctor)
	other := createUser(t, repos, "bruno@finscale.app", model.RoleDoctor)
	manager := createUser(t, repos, "coord@finscale.app", model.RoleManager)
	require.NoError(t, repos.Tokens.Register(context.Background(), doctor.ID, "token-ana", model.DeviceAndroid))

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc := NewShiftService(repos.Shifts, notifier, events, time.UTC)
	svc.now = fixedClock(now)

	return &shiftFixture{
		repos:    repos,
		svc:      svc,
		events:   events,
		sender:   sender,
		doctor:   Actor{ID: doctor.ID, Role: doctor.Role},
		other:    Actor{ID: other.ID, Role: other.Role},
		manager:  Actor{ID: manager.ID, Role: manager.Role},
		now:      now,
		tomorrow: now.Add(24 * time.Hour),
	}
}

func TestCreateShiftRequiresManager(t *testing.T) {
	f := newShiftFixture(t)
	req := model.CreateShiftRequest{
		Institution: "Hospital das Clínicas",
		Specialty:   "Pediatria",
		Date:        f.tomorrow,
		Duration:    6,
		Value:       900,
	}

	_, err := f.svc.Create(context.Background(), f.doctor, req)
	requireStatus(t, err, http.StatusForbidden)

	shift, err := f.svc.Create(context.Background(), f.manager, req)
	require.NoError(t, err)
	assert.Equal(t, model.ShiftAvailable, shift.Status)
	assert.Equal(t, f.manager.ID, *shift.CreatedBy)
	assert.Equal(t, []string{model.WSEventShiftCreated}, f.events.types())
}

func TestBookShiftNotifiesDoctor(t *testing.T) {
	f := newShiftFixture(t)
	shift := createShift(t, f.repos.Shifts, f.tomorrow, 1500)

	booked, err := f.svc.Book(context.Background(), f.doctor, shift.ID)
	require.NoError(t, err)

	assert.Equal(t, model.ShiftBooked, booked.Status)
	assert.True(t, booked.IsHeldBy(f.doctor.ID))
	require.NotNil(t, booked.BookedAt)
	assert.Equal(t, []string{model.WSEventShiftBooked}, f.events.types())

	require.Equal(t, 1, f.sender.count())
	assert.Equal(t, []string{"token-ana"}, f.sender.sent[0].tokens)
	assert.Equal(t, shift.ID.String(), f.sender.sent[0].msg.Data["shift_id"])

	log, err := f.repos.Notifications.ListByUser(context.Background(), f.doctor.ID, 10)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, model.NotificationShiftBooked, log[0].Type)
}

func TestBookShiftTwiceConflicts(t *testing.T) {
	f := newShiftFixture(t)
	shift := createShift(t, f.repos.Shifts, f.tomorrow, 1500)

	_, err := f.svc.Book(context.Background(), f.doctor, shift.ID)
	require.NoError(t, err)

	_, err = f.svc.Book(context.Background(), f.other, shift.ID)
	requireStatus(t, err, http.StatusConflict)
}

func TestBookShiftConcurrentlyHasOneWinner(t *testing.T) {
	f := newShiftFixture(t)
	shift := createShift(t, f.repos.Shifts, f.tomorrow, 1500)

	var wins, conflicts int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Book(context.Background(), Actor{ID: uuid.New(), Role: model.RoleDoctor}, shift.ID)
			if err == nil {
				atomic.AddInt32(&wins, 1)
				return
			}
			if apperrors.StatusOf(err) == http.StatusConflict {
				atomic.AddInt32(&conflicts, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
	assert.Equal(t, int32(15), conflicts)
}

func TestBookStartedShiftConflicts(t *testing.T) {
	f := newShiftFixture(t)
	shift := createShift(t, f.repos.Shifts, f.now.Add(-time.Hour), 1500)

	_, err := f.svc.Book(context.Background(), f.doctor, shift.ID)
	requireStatus(t, err, http.StatusConflict)
}

func TestBookMissingShift(t *testing.T) {
	f := newShiftFixture(t)

	_, err := f.svc.Book(context.Background(), f.doctor, uuid.New())
	requireStatus(t, err, http.StatusNotFound)
}

func TestReleaseShift(t *testing.T) {
	f := newShiftFixture(t)
	shift := createShift(t, f.repos.Shifts, f.tomorrow, 1500)
	_, err := f.svc.Book(context.Background(), f.doctor, shift.ID)
	require.NoError(t, err)

	_, err = f.svc.Release(context.Background(), f.other, shift.ID)
	requireStatus(t, err, http.StatusForbidden)

	released, err := f.svc.Release(context.Background(), f.doctor, shift.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ShiftAvailable, released.Status)
	assert.Nil(t, released.DoctorID)

	_, err = f.svc.Release(context.Background(), f.doctor, shift.ID)
	requireStatus(t, err, http.StatusConflict)
}

func TestCompleteShift(t *testing.T) {
	f := newShiftFixture(t)
	shift := createShift(t, f.repos.Shifts, f.tomorrow, 1500)
	_, err := f.svc.Book(context.Background(), f.doctor, shift.ID)
	require.NoError(t, err)

	_, err = f.svc.Complete(context.Background(), f.doctor, shift.ID)
	requireStatus(t, err, http.StatusConflict)

	f.svc.now = fixedClock(f.tomorrow.Add(time.Hour))

	_, err = f.svc.Complete(context.Background(), f.other, shift.ID)
	requireStatus(t, err, http.StatusForbidden)

	completed, err := f.svc.Complete(context.Background(), f.manager, shift.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ShiftCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)

	_, err = f.svc.Cancel(context.Background(), f.manager, shift.ID)
	requireStatus(t, err, http.StatusConflict)
}

func TestCancelBookedShiftNotifiesDoctor(t *testing.T) {
	f := newShiftFixture(t)
	shift := createShift(t, f.repos.Shifts, f.tomorrow, 1500)
	_, err := f.svc.Book(context.Background(), f.doctor, shift.ID)
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), f.doctor, shift.ID)
	requireStatus(t, err, http.StatusForbidden)

	cancelled, err := f.svc.Cancel(context.Background(), f.manager, shift.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ShiftCancelled, cancelled.Status)

	require.Equal(t, 2, f.sender.count())
	assert.Equal(t, "Plantão cancelado", f.sender.sent[1].msg.Title)
	assert.Equal(t, []string{model.WSEventShiftBooked, model.WSEventShiftCancelled}, f.events.types())
}

func TestCancelAvailableShiftSendsNothing(t *testing.T) {
	f := newShiftFixture(t)
	shift := createShift(t, f.repos.Shifts, f.tomorrow, 1500)

	_, err := f.svc.Cancel(context.Background(), f.manager, shift.ID)
	require.NoError(t, err)
	assert.Zero(t, f.sender.count())
}

func TestPushFailureDoesNotFailBooking(t *testing.T) {
	f := newShiftFixture(t)
	f.sender.err = assert.AnError
	shift := createShift(t, f.repos.Shifts, f.tomorrow, 1500)

	booked, err := f.svc.Book(context.Background(), f.doctor, shift.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ShiftBooked, booked.Status)
}

func TestUpdateShiftOnlyWhileAvailable(t *testing.T) {
	f := newShiftFixture(t)
	shift := createShift(t, f.repos.Shifts, f.tomorrow, 1500)

	value := 1800.0
	notes := "Levar jaleco"
	updated, err := f.svc.Update(context.Background(), f.manager, shift.ID, model.UpdateShiftRequest{Value: &value, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, 1800.0, updated.Value)
	assert.Equal(t, "Levar jaleco", updated.Notes)
	assert.Equal(t, "Hospital Santa Casa", updated.Institution)

	_, err = f.svc.Book(context.Background(), f.doctor, shift.ID)
	require.NoError(t, err)

	_, err = f.svc.Update(context.Background(), f.manager, shift.ID, model.UpdateShiftRequest{Value: &value})
	requireStatus(t, err, http.StatusConflict)
}

func TestDeleteShift(t *testing.T) {
	f := newShiftFixture(t)
	booked := createShift(t, f.repos.Shifts, f.tomorrow, 1500)
	free := createShift(t, f.repos.Shifts, f.tomorrow, 1500)
	_, err := f.svc.Book(context.Background(), f.doctor, booked.ID)
	require.NoError(t, err)

	requireStatus(t, f.svc.Delete(context.Background(), f.manager, booked.ID), http.StatusConflict)
	requireStatus(t, f.svc.Delete(context.Background(), f.doctor, free.ID), http.StatusForbidden)
	require.NoError(t, f.svc.Delete(context.Background(), f.manager, free.ID))

	_, err = f.svc.Get(context.Background(), free.ID)
	requireStatus(t, err, http.StatusNotFound)
}

func TestMineListsOnlyCallerShifts(t *testing.T) {
	f := newShiftFixture(t)
	mine := createShift(t, f.repos.Shifts, f.tomorrow, 1500)
	createShift(t, f.repos.Shifts, f.tomorrow.Add(time.Hour), 1500)
	_, err := f.svc.Book(context.Background(), f.doctor, mine.ID)
	require.NoError(t, err)

	page, err := f.svc.Mine(context.Background(), f.doctor.ID, repository.ShiftFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, repository.DefaultPageSize, page.Limit)

	all, err := f.svc.List(context.Background(), repository.ShiftFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Total)
}

func TestAutoCompleteEndedShifts(t *testing.T) {
	f := newShiftFixture(t)
	ended := createShift(t, f.repos.Shifts, f.now.Add(-13*time.Hour), 1500)
	running := createShift(t, f.repos.Shifts, f.now.Add(-time.Hour), 1500)
	for _, id := range []uuid.UUID{ended.ID, running.ID} {
		_, err := f.repos.Shifts.Transition(context.Background(), repository.Transition{
			ShiftID:  id,
			From:     []model.ShiftStatus{model.ShiftAvailable},
			To:       model.ShiftBooked,
			DoctorID: &f.doctor.ID,
			At:       f.now.Add(-48 * time.Hour),
		})
		require.NoError(t, err)
	}

	done, err := f.svc.AutoComplete(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, done)

	got, err := f.svc.Get(context.Background(), ended.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ShiftCompleted, got.Status)

	got, err = f.svc.Get(context.Background(), running.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ShiftBooked, got.Status)
}
