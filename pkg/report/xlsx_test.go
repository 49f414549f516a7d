package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteStatement(t *testing.T) {
	rows := []Row{
		{
			Date:        time.Date(2026, 3, 10, 19, 0, 0, 0, time.UTC),
			Institution: "Hospital São Lucas",
			Department:  "UTI",
			Specialty:   "Clínica Médica",
			Hours:       12,
			Value:       1500,
			Status:      "completed",
		},
		{
			Date:        time.Date(2026, 3, 12, 7, 0, 0, 0, time.UTC),
			Institution: "Santa Casa",
			Department:  "PS",
			Specialty:   "Pediatria",
			Hours:       6,
			Value:       800.5,
			Status:      "booked",
		},
	}

	var buf bytes.Buffer
	err := WriteStatement(&buf, rows, Totals{Shifts: 1, Hours: 12, Earnings: 1500}, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, got, 5)

	assert.Equal(t, "Instituição", got[0][1])
	assert.Equal(t, "10/03/2026 19:00", got[1][0])
	assert.Equal(t, "Santa Casa", got[2][1])
	assert.Equal(t, "Total", got[4][0])
	assert.Equal(t, "12", got[4][4])
}

func TestWriteStatementEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteStatement(&buf, nil, Totals{}, time.UTC))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Equal(t, "Data", got[0][0])
	assert.Equal(t, "Total", got[len(got)-1][0])
}
