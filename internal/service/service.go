package service

import (
	"context"
	"errors"

	"github.com/finscale/finscale-api/internal/model"
	"github.com/finscale/finscale-api/internal/repository"
	"github.com/finscale/finscale-api/pkg/apperrors"
	"github.com/finscale/finscale-api/pkg/firebase"
	"github.com/google/uuid"
)

// Actor is the authenticated caller of an operation
type Actor struct {
	ID   uuid.UUID
	Role model.Role
}

// EventPublisher fans shift events out to connected WebSocket clients
type EventPublisher interface {
	Broadcast(event *model.WSEvent)
}

// Notifier pushes a notification to every active device of a user
type Notifier interface {
	NotifyUser(ctx context.Context, userID uuid.UUID, kind model.NotificationType, title, body string, data map[string]string) (*model.SendNotificationResponse, error)
}

// Mailer delivers password-reset codes
type Mailer interface {
	SendPasswordReset(toEmail, name, code string, expiryMinutes int) error
}

// IdentityVerifier checks Firebase Auth ID tokens
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (*firebase.Identity, error)
}

type nopPublisher struct{}

func (nopPublisher) Broadcast(*model.WSEvent) {}

// notFound converts repository.ErrNotFound into a 404 and anything else into a 500
func notFound(err error, message string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound(message)
	}
	return apperrors.Internal(err)
}
