package repository

import (
	"testing"
	"time"

	"github.com/finscale/finscale-api/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestShiftFilterNormalize(t *testing.T) {
	f := ShiftFilter{}
	f.Normalize()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, DefaultPageSize, f.Limit)
	assert.Equal(t, 0, f.Offset())

	f = ShiftFilter{Page: 3, Limit: 500}
	f.Normalize()
	assert.Equal(t, MaxPageSize, f.Limit)
	assert.Equal(t, 200, f.Offset())
}

func TestShiftFilterMatches(t *testing.T) {
	doctor := uuid.New()
	day := time.Date(2026, 6, 1, 7, 0, 0, 0, time.UTC)
	s := &model.Shift{Status: model.ShiftBooked, Specialty: "Pediatria", Institution: "HC", Date: day, DoctorID: &doctor}

	assert.True(t, ShiftFilter{}.Matches(s))
	assert.True(t, ShiftFilter{Statuses: []model.ShiftStatus{model.ShiftAvailable, model.ShiftBooked}}.Matches(s))
	assert.False(t, ShiftFilter{Statuses: []model.ShiftStatus{model.ShiftAvailable}}.Matches(s))
	assert.False(t, ShiftFilter{Specialty: "Cardiologia"}.Matches(s))

	other := uuid.New()
	assert.False(t, ShiftFilter{DoctorID: &other}.Matches(s))

	before := day.Add(-time.Hour)
	after := day.Add(time.Hour)
	assert.True(t, ShiftFilter{From: &before, To: &after}.Matches(s))
	assert.False(t, ShiftFilter{From: &after}.Matches(s))
}

func TestTransitionAllows(t *testing.T) {
	doctor := uuid.New()
	s := &model.Shift{Status: model.ShiftBooked, DoctorID: &doctor}

	release := Transition{From: []model.ShiftStatus{model.ShiftBooked}, To: model.ShiftAvailable, ExpectDoctor: &doctor}
	assert.True(t, release.Allows(s))

	stranger := uuid.New()
	release.ExpectDoctor = &stranger
	assert.False(t, release.Allows(s))

	book := Transition{From: []model.ShiftStatus{model.ShiftAvailable}, To: model.ShiftBooked}
	assert.False(t, book.Allows(s))
}
