package firestore

import (
	"context"
	"os"
	"testing"
	"time"

	fs "cloud.google.com/go/firestore"
	"github.com/finscale/finscale-api/internal/model"
	"github.com/finscale/finscale-api/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocConversionKeepsAssignments(t *testing.T) {
	doctor := uuid.New()
	booked := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	s := &model.Shift{
		ID:          uuid.New(),
		Institution: "Hospital Moinhos",
		Specialty:   "Ortopedia",
		Date:        time.Date(2026, 8, 3, 19, 0, 0, 0, time.UTC),
		Duration:    12,
		Value:       1800,
		Status:      model.ShiftBooked,
		DoctorID:    &doctor,
		BookedAt:    &booked,
	}

	doc := toDoc(s)
	assert.Equal(t, doctor.String(), doc.DoctorID)
	assert.Empty(t, doc.CreatedBy)

	back := fromDoc(s.ID, doc)
	assert.True(t, back.IsHeldBy(doctor))
	assert.Nil(t, back.CreatedBy)
	assert.Equal(t, s.EndsAt(), back.EndsAt())
}

// Runs against the Firestore emulator when FIRESTORE_EMULATOR_HOST is set
func TestTransitionAgainstEmulator(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx := context.Background()
	client, err := fs.NewClient(ctx, "finscale-test")
	require.NoError(t, err)
	defer client.Close()

	repo := NewShiftRepository(client)
	s := &model.Shift{Institution: "HC", Specialty: "UTI", Date: time.Now().Add(48 * time.Hour), Duration: 12, Value: 1000}
	require.NoError(t, repo.Create(ctx, s))

	doctor := uuid.New()
	book := repository.Transition{
		ShiftID:  s.ID,
		From:     []model.ShiftStatus{model.ShiftAvailable},
		To:       model.ShiftBooked,
		DoctorID: &doctor,
		At:       time.Now().UTC(),
	}
	got, err := repo.Transition(ctx, book)
	require.NoError(t, err)
	assert.True(t, got.IsHeldBy(doctor))

	_, err = repo.Transition(ctx, book)
	assert.ErrorIs(t, err, repository.ErrConflict)
	assert.ErrorIs(t, repo.Delete(ctx, s.ID), repository.ErrConflict)

	mine, total, err := repo.List(ctx, repository.ShiftFilter{DoctorID: &doctor})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, s.ID, mine[0].ID)
}
