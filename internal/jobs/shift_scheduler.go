// Package jobs runs the periodic shift housekeeping: reminders, auto-completion
// and expired reset-code cleanup.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/finscale/finscale-api/internal/model"
	"github.com/finscale/finscale-api/internal/repository"
	"github.com/finscale/finscale-api/internal/service"
)

// Completer moves ended shifts to completed
type Completer interface {
	AutoComplete(ctx context.Context) (int, error)
}

// Report summarizes one scheduler pass
type Report struct {
	Reminded    int
	Completed   int
	OTPsRemoved int64
}

// ShiftScheduler handles shift reminders and auto-completion
type ShiftScheduler struct {
	users     repository.UserRepository
	shifts    repository.ShiftRepository
	otps      repository.OTPRepository
	notifier  service.Notifier
	completer Completer
	interval  time.Duration
	window    time.Duration
	loc       *time.Location
	now       func() time.Time
}

// NewShiftScheduler creates a scheduler; a zero interval falls back to one minute
func NewShiftScheduler(repos repository.Repositories, notifier service.Notifier, completer Completer,
	interval, window time.Duration, loc *time.Location) *ShiftScheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ShiftScheduler{
		users:     repos.Users,
		shifts:    repos.Shifts,
		otps:      repos.OTPs,
		notifier:  notifier,
		completer: completer,
		interval:  interval,
		window:    window,
		loc:       loc,
		now:       time.Now,
	}
}

// Run executes a pass immediately and then on every tick until ctx is done
func (j *ShiftScheduler) Run(ctx context.Context) {
	log.Printf("🚀 Shift scheduler started (every %s)", j.interval)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.RunOnce(ctx)
	for {
		select {
		case <-ticker.C:
			j.RunOnce(ctx)
		case <-ctx.Done():
			log.Println("🛑 Shift scheduler stopped")
			return
		}
	}
}

// RunOnce performs a single pass. Each task is independent: a failing one is
// logged and the others still run.
func (j *ShiftScheduler) RunOnce(ctx context.Context) Report {
	var report Report

	reminded, err := j.sendReminders(ctx)
	if err != nil {
		log.Printf("❌ Error sending shift reminders: %v", err)
	}
	report.Reminded = reminded

	if j.completer != nil {
		completed, err := j.completer.AutoComplete(ctx)
		if err != nil {
			log.Printf("❌ Error auto-completing shifts: %v", err)
		}
		report.Completed = completed
	}

	if j.otps != nil {
		removed, err := j.otps.CleanupExpired(ctx, j.now().UTC())
		if err != nil {
			log.Printf("❌ Error cleaning up reset codes: %v", err)
		}
		report.OTPsRemoved = removed
	}

	if report.Reminded > 0 || report.Completed > 0 {
		log.Printf("⏰ Scheduler pass: %d reminder(s), %d shift(s) completed", report.Reminded, report.Completed)
	}
	return report
}

// sendReminders returns how many pushes were attempted. Every due shift is
// marked reminded, even when its doctor opted out, so it is never picked up twice.
func (j *ShiftScheduler) sendReminders(ctx context.Context) (int, error) {
	if j.window <= 0 {
		return 0, nil
	}

	now := j.now().UTC()
	due, err := j.shifts.DueForReminder(ctx, now, j.window)
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range due {
		shift := &due[i]
		if j.remind(ctx, shift) {
			sent++
		}
		if err := j.shifts.MarkReminded(ctx, shift.ID, now); err != nil && !errors.Is(err, repository.ErrNotFound) {
			log.Printf("⚠️  Failed to mark shift %s as reminded: %v", shift.ID, err)
		}
	}
	return sent, nil
}

func (j *ShiftScheduler) remind(ctx context.Context, shift *model.Shift) bool {
	if shift.DoctorID == nil || j.notifier == nil {
		return false
	}

	doctor, err := j.users.FindByID(ctx, *shift.DoctorID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Printf("⚠️  Failed to load doctor of shift %s: %v", shift.ID, err)
		}
		return false
	}
	if !doctor.ShiftReminders {
		return false
	}

	body := fmt.Sprintf("Seu plantão em %s começa em %s.",
		shift.Institution, shift.Date.In(j.loc).Format("02/01/2006 às 15:04"))
	data := map[string]string{
		"shift_id": shift.ID.String(),
		"type":     string(model.NotificationShiftReminder),
	}
	if _, err := j.notifier.NotifyUser(ctx, doctor.ID, model.NotificationShiftReminder, "Lembrete de plantão", body, data); err != nil {
		log.Printf("⚠️  Failed to send reminder for shift %s: %v", shift.ID, err)
		return false
	}
	return true
}
