package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/finscale/finscale-api/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	got, err := parseDate("", loc, false)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseDate("2026-03-10T12:30:00Z", loc, true)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2026, 3, 10, 12, 30, 0, 0, time.UTC)))

	got, err = parseDate("2026-03-10", loc, false)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)), got.UTC())

	got, err = parseDate("2026-03-10", loc, true)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2026, 3, 11, 2, 59, 59, 999999999, time.UTC)), got.UTC())

	_, err = parseDate("10/03/2026", loc, false)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apperrors.StatusOf(err))
}

func TestDateRange(t *testing.T) {
	from, to, err := dateRange("2026-03-01", "2026-03-31", time.UTC)
	require.NoError(t, err)
	require.NotNil(t, from)
	require.NotNil(t, to)
	assert.Equal(t, "2026-03-01T00:00:00Z", from.Format(time.RFC3339))
	assert.Equal(t, "2026-03-31T23:59:59Z", to.Format(time.RFC3339))

	from, to, err = dateRange("", "", time.UTC)
	require.NoError(t, err)
	assert.Nil(t, from)
	assert.Nil(t, to)

	_, _, err = dateRange("2026-03-01", "tomorrow", time.UTC)
	assert.Error(t, err)
}
