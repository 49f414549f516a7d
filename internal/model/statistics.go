package model

import (
	"math"
	"sort"
	"time"
)

// MonthlyStats aggregates completed shifts of one calendar month (UTC)
type MonthlyStats struct {
	Month    string  `json:"month"` // YYYY-MM
	Shifts   int     `json:"shifts"`
	Hours    int     `json:"hours"`
	Earnings float64 `json:"earnings"`
}

// ShiftStats summarizes a set of shifts
type ShiftStats struct {
	TotalShifts     int            `json:"total_shifts"`
	Available       int            `json:"available"`
	Booked          int            `json:"booked"`
	Completed       int            `json:"completed"`
	Cancelled       int            `json:"cancelled"`
	Upcoming        int            `json:"upcoming"`
	TotalHours      int            `json:"total_hours"`
	TotalEarnings   float64        `json:"total_earnings"`
	PendingEarnings float64        `json:"pending_earnings"`
	Monthly         []MonthlyStats `json:"monthly"`
}

// Summarize computes ShiftStats in Go for stores that cannot aggregate server-side
func Summarize(shifts []Shift, now time.Time) ShiftStats {
	stats := ShiftStats{Monthly: []MonthlyStats{}}
	months := map[string]*MonthlyStats{}

	for i := range shifts {
		s := &shifts[i]
		stats.TotalShifts++

		switch s.Status {
		case ShiftAvailable:
			stats.Available++
		case ShiftBooked:
			stats.Booked++
			stats.PendingEarnings += s.Value
			if now.Before(s.Date) {
				stats.Upcoming++
			}
		case ShiftCompleted:
			stats.Completed++
			stats.TotalHours += s.Duration
			stats.TotalEarnings += s.Value

			key := s.Date.UTC().Format("2006-01")
			m, ok := months[key]
			if !ok {
				m = &MonthlyStats{Month: key}
				months[key] = m
			}
			m.Shifts++
			m.Hours += s.Duration
			m.Earnings += s.Value
		case ShiftCancelled:
			stats.Cancelled++
		}
	}

	for _, m := range months {
		m.Earnings = roundCents(m.Earnings)
		stats.Monthly = append(stats.Monthly, *m)
	}
	sort.Slice(stats.Monthly, func(i, j int) bool {
		return stats.Monthly[i].Month < stats.Monthly[j].Month
	})

	stats.TotalEarnings = roundCents(stats.TotalEarnings)
	stats.PendingEarnings = roundCents(stats.PendingEarnings)
	return stats
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
