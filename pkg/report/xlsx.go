// Package report renders shift statements as spreadsheets.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the statement
const SheetName = "Plantões"

var header = []interface{}{"Data", "Instituição", "Setor", "Especialidade", "Horas", "Valor", "Status"}

// Row is one shift line of a statement
type Row struct {
	Date        time.Time
	Institution string
	Department  string
	Specialty   string
	Hours       int
	Value       float64
	Status      string
}

// Totals closes the statement
type Totals struct {
	Shifts   int
	Hours    int
	Earnings float64
}

// WriteStatement writes rows and totals as an XLSX workbook to w
func WriteStatement(w io.Writer, rows []Row, totals Totals, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", "G1", bold); err != nil {
		return err
	}

	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		line := []interface{}{
			r.Date.In(loc).Format("02/01/2006 15:04"),
			r.Institution,
			r.Department,
			r.Specialty,
			r.Hours,
			r.Value,
			r.Status,
		}
		if err := f.SetSheetRow(SheetName, cell, &line); err != nil {
			return err
		}
	}

	last := len(rows) + 1
	if last > 1 {
		from, _ := excelize.CoordinatesToCellName(6, 2)
		to, _ := excelize.CoordinatesToCellName(6, last)
		if err := f.SetCellStyle(SheetName, from, to, money); err != nil {
			return err
		}
	}

	// blank line, then totals
	totalRow := last + 2
	cell, _ := excelize.CoordinatesToCellName(1, totalRow)
	summary := []interface{}{"Total", fmt.Sprintf("%d plantões", totals.Shifts), "", "", totals.Hours, totals.Earnings}
	if err := f.SetSheetRow(SheetName, cell, &summary); err != nil {
		return err
	}
	end, _ := excelize.CoordinatesToCellName(6, totalRow)
	if err := f.SetCellStyle(SheetName, cell, end, bold); err != nil {
		return err
	}

	if err := f.SetColWidth(SheetName, "A", "A", 18); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "B", "D", 24); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}
