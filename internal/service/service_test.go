package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/finscale/finscale-api/internal/model"
	"github.com/finscale/finscale-api/internal/repository"
	"github.com/finscale/finscale-api/pkg/apperrors"
	"github.com/finscale/finscale-api/pkg/firebase"
	"github.com/finscale/finscale-api/pkg/notification"
	"github.com/stretchr/testify/require"
)

// ==================== Fakes ====================

type recordingPublisher struct {
	mu     sync.Mutex
	events []*model.WSEvent
}

func (p *recordingPublisher) Broadcast(event *model.WSEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type sentPush struct {
	tokens []string
	msg    notification.Message
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []sentPush
	invalid map[string]bool
	err     error
}

func (f *fakeSender) Send(_ context.Context, tokens []string, msg notification.Message) (*notification.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, sentPush{tokens: tokens, msg: msg})
	res := &notification.SendResult{}
	for _, t := range tokens {
		if f.invalid[t] {
			res.FailureCount++
			res.InvalidTokens = append(res.InvalidTokens, t)
		} else {
			res.SuccessCount++
		}
	}
	return res, nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type resetMail struct {
	email, name, code string
	expiry            int
}

type fakeMailer struct {
	sent chan resetMail
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{sent: make(chan resetMail, 10)}
}

func (m *fakeMailer) SendPasswordReset(toEmail, name, code string, expiryMinutes int) error {
	m.sent <- resetMail{email: toEmail, name: name, code: code, expiry: expiryMinutes}
	return nil
}

type fakeVerifier struct {
	identities map[string]*firebase.Identity
}

func (v *fakeVerifier) Verify(_ context.Context, idToken string) (*firebase.Identity, error) {
	id, ok := v.identities[idToken]
	if !ok {
		return nil, errors.New("token signature invalid")
	}
	return id, nil
}

// ==================== Helpers ====================

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, status, apperrors.StatusOf(err), "unexpected error: %v", err)
}

func createUser(t *testing.T, repos repository.Repositories, email string, role model.Role) *model.User {
	t.Helper()
	u := &model.User{
		Email:                email,
		DisplayName:          "Dr. " + email,
		Role:                 role,
		NotificationsEnabled: true,
		ShiftReminders:       true,
	}
	require.NoError(t, repos.Users.Create(context.Background(), u))
	return u
}

func createShift(t *testing.T, shifts repository.ShiftRepository, date time.Time, value float64) *model.Shift {
	t.Helper()
	s := &model.Shift{
		Institution: "Hospital Santa Casa",
		Department:  "Emergência",
		Specialty:   "Clínica Médica",
		Date:        date,
		Duration:    12,
		Value:       value,
		Status:      model.ShiftAvailable,
	}
	require.NoError(t, shifts.Create(context.Background(), s))
	return s
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
