package postgres

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/finscale/finscale-api/internal/model"
	"github.com/finscale/finscale-api/internal/repository"
	"github.com/finscale/finscale-api/migrations"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB migrates and connects to TEST_DATABASE_URL, skipping when unset
func openTestDB(t *testing.T) repository.Repositories {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	require.NoError(t, migrations.Run(url))

	db, err := Open(url, true)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return New(db)
}

func createDoctor(t *testing.T, repos repository.Repositories) *model.User {
	t.Helper()
	u := &model.User{Email: uuid.NewString() + "@finscale.app", DisplayName: "Dra. Teste"}
	require.NoError(t, repos.Users.Create(context.Background(), u))
	return u
}

func createShift(t *testing.T, repos repository.Repositories, date time.Time, hours int, value float64) *model.Shift {
	t.Helper()
	s := &model.Shift{
		Institution: "Hospital São Lucas",
		Specialty:   "Emergência",
		Date:        date,
		Duration:    hours,
		Value:       value,
		Status:      model.ShiftAvailable,
	}
	require.NoError(t, repos.Shifts.Create(context.Background(), s))
	return s
}

func book(ctx context.Context, repos repository.Repositories, id, doctor uuid.UUID) (*model.Shift, error) {
	return repos.Shifts.Transition(ctx, repository.Transition{
		ShiftID:  id,
		From:     []model.ShiftStatus{model.ShiftAvailable},
		To:       model.ShiftBooked,
		DoctorID: &doctor,
		At:       time.Now().UTC(),
	})
}

func TestConcurrentBookingHasOneWinner(t *testing.T) {
	repos := openTestDB(t)
	ctx := context.Background()

	s := createShift(t, repos, time.Now().Add(72*time.Hour), 12, 1500)
	doctors := []*model.User{createDoctor(t, repos), createDoctor(t, repos)}

	var wg sync.WaitGroup
	errs := make([]error, len(doctors))
	for i, d := range doctors {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = book(ctx, repos, s.ID, id)
		}(i, d.ID)
	}
	wg.Wait()

	won, lost := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, repository.ErrConflict):
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, lost)

	stored, err := repos.Shifts.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ShiftBooked, stored.Status)
	require.NotNil(t, stored.DoctorID)

	// booked shifts cannot be deleted; a missing one is not found
	assert.ErrorIs(t, repos.Shifts.Delete(ctx, s.ID), repository.ErrConflict)
	assert.ErrorIs(t, repos.Shifts.Delete(ctx, uuid.New()), repository.ErrNotFound)

	_, err = book(ctx, repos, uuid.New(), doctors[0].ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestReleaseRequiresHolder(t *testing.T) {
	repos := openTestDB(t)
	ctx := context.Background()

	s := createShift(t, repos, time.Now().Add(48*time.Hour), 6, 700)
	holder, other := createDoctor(t, repos), createDoctor(t, repos)
	_, err := book(ctx, repos, s.ID, holder.ID)
	require.NoError(t, err)

	release := repository.Transition{
		ShiftID:      s.ID,
		From:         []model.ShiftStatus{model.ShiftBooked},
		To:           model.ShiftAvailable,
		ExpectDoctor: &other.ID,
		At:           time.Now().UTC(),
	}
	_, err = repos.Shifts.Transition(ctx, release)
	assert.ErrorIs(t, err, repository.ErrConflict)

	release.ExpectDoctor = &holder.ID
	released, err := repos.Shifts.Transition(ctx, release)
	require.NoError(t, err)
	assert.Nil(t, released.DoctorID)
	assert.Nil(t, released.BookedAt)
}

func TestStatsMatchSummarize(t *testing.T) {
	repos := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	doctor := createDoctor(t, repos)

	finish := func(s *model.Shift, to model.ShiftStatus) *model.Shift {
		_, err := book(ctx, repos, s.ID, doctor.ID)
		require.NoError(t, err)
		if to == model.ShiftBooked {
			got, err := repos.Shifts.FindByID(ctx, s.ID)
			require.NoError(t, err)
			return got
		}
		got, err := repos.Shifts.Transition(ctx, repository.Transition{
			ShiftID: s.ID,
			From:    []model.ShiftStatus{model.ShiftBooked},
			To:      to,
			At:      now,
		})
		require.NoError(t, err)
		return got
	}

	fixtures := []model.Shift{
		*finish(createShift(t, repos, now.AddDate(0, -2, 0), 12, 1200.10), model.ShiftCompleted),
		*finish(createShift(t, repos, now.AddDate(0, -1, 0), 6, 600.20), model.ShiftCompleted),
		*finish(createShift(t, repos, now.AddDate(0, -1, 2), 24, 2400.35), model.ShiftCompleted),
		*finish(createShift(t, repos, now.Add(24*time.Hour), 12, 1350.50), model.ShiftBooked),
		*finish(createShift(t, repos, now.Add(96*time.Hour), 12, 900), model.ShiftCancelled),
	}

	got, err := repos.Shifts.Stats(ctx, repository.StatsFilter{DoctorID: &doctor.ID}, now)
	require.NoError(t, err)

	want := model.Summarize(fixtures, now)
	assert.Equal(t, want, *got)
	assert.Equal(t, 3, got.Completed)
	assert.Equal(t, 1, got.Upcoming)
}

func TestDeletedEmailCanRegisterAgain(t *testing.T) {
	repos := openTestDB(t)
	ctx := context.Background()

	first := createDoctor(t, repos)
	require.NoError(t, repos.Users.Delete(ctx, first.ID))

	again := &model.User{Email: first.Email, DisplayName: "Dra. Teste"}
	require.NoError(t, repos.Users.Create(ctx, again))
	assert.NotEqual(t, first.ID, again.ID)

	found, err := repos.Users.FindByEmail(ctx, first.Email)
	require.NoError(t, err)
	assert.Equal(t, again.ID, found.ID)

	dup := &model.User{Email: first.Email, DisplayName: "Outra"}
	assert.ErrorIs(t, repos.Users.Create(ctx, dup), repository.ErrDuplicate)

	require.NoError(t, repos.Users.UpdateRole(ctx, again.ID, model.RoleManager))
	found, err = repos.Users.FindByID(ctx, again.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleManager, found.Role)
}
