package service

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/finscale/finscale-api/internal/model"
	"github.com/finscale/finscale-api/internal/repository"
	"github.com/finscale/finscale-api/pkg/apperrors"
	"github.com/finscale/finscale-api/pkg/notification"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const notificationListLimit = 50

// NotificationService manages device tokens and pushes notifications
type NotificationService struct {
	users         repository.UserRepository
	tokens        repository.TokenRepository
	notifications repository.NotificationRepository
	sender        notification.Sender
	now           func() time.Time
}

func NewNotificationService(repos repository.Repositories, sender notification.Sender) *NotificationService {
	if sender == nil {
		sender = notification.LogSender{}
	}
	return &NotificationService{
		users:         repos.Users,
		tokens:        repos.Tokens,
		notifications: repos.Notifications,
		sender:        sender,
		now:           time.Now,
	}
}

// ==================== Tokens ====================

// RegisterToken activates token for userID, taking it over from any previous owner
func (s *NotificationService) RegisterToken(ctx context.Context, userID uuid.UUID, req model.RegisterTokenRequest) error {
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return apperrors.BadRequest("token is required")
	}
	if err := s.tokens.Register(ctx, userID, token, req.DeviceType); err != nil {
		return apperrors.Internal(err)
	}
	log.Printf("📱 Push token registered for %s (%s)", userID, req.DeviceType)
	return nil
}

func (s *NotificationService) UnregisterToken(ctx context.Context, userID uuid.UUID, req model.UnregisterTokenRequest) error {
	if err := s.tokens.Deactivate(ctx, userID, strings.TrimSpace(req.Token)); err != nil {
		return notFound(err, "token not found")
	}
	return nil
}

// ==================== Sending ====================

// Send delivers a manual notification to a user or a single raw token
func (s *NotificationService) Send(ctx context.Context, req model.SendNotificationRequest) (*model.SendNotificationResponse, error) {
	hasUser := req.UserID != nil
	hasToken := strings.TrimSpace(req.Token) != ""
	if hasUser == hasToken {
		return nil, apperrors.BadRequest("exactly one of user_id or token is required")
	}

	if hasUser {
		return s.NotifyUser(ctx, *req.UserID, model.NotificationManual, req.Title, req.Body, req.Data)
	}

	result, err := s.sender.Send(ctx, []string{strings.TrimSpace(req.Token)}, notification.Message{
		Title: req.Title,
		Body:  req.Body,
		Data:  req.Data,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnavailable, "failed to send notification", http.StatusBadGateway)
	}
	return &model.SendNotificationResponse{
		SuccessCount: result.SuccessCount,
		FailureCount: result.FailureCount,
	}, nil
}

// NotifyUser records a notification for userID and pushes it to every active
// device, unless the user turned notifications off
func (s *NotificationService) NotifyUser(ctx context.Context, userID uuid.UUID, kind model.NotificationType, title, body string, data map[string]string) (*model.SendNotificationResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user not found")
	}

	entry := &model.Notification{
		UserID:    userID,
		Title:     title,
		Body:      body,
		Type:      kind,
		Data:      toJSONMap(data),
		CreatedAt: s.now(),
	}
	if err := s.notifications.Create(ctx, entry); err != nil {
		return nil, apperrors.Internal(err)
	}

	if !user.NotificationsEnabled {
		return &model.SendNotificationResponse{Skipped: true}, nil
	}

	tokens, err := s.tokens.ActiveTokens(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if len(tokens) == 0 {
		return &model.SendNotificationResponse{}, nil
	}

	result, err := s.sender.Send(ctx, tokens, notification.Message{Title: title, Body: body, Data: data})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnavailable, "failed to send notification", http.StatusBadGateway)
	}

	resp := &model.SendNotificationResponse{
		SuccessCount: result.SuccessCount,
		FailureCount: result.FailureCount,
	}
	if len(result.InvalidTokens) > 0 {
		if err := s.tokens.DeactivateTokens(ctx, result.InvalidTokens); err != nil {
			log.Printf("⚠️  Failed to deactivate invalid tokens: %v", err)
		} else {
			resp.Deactivated = len(result.InvalidTokens)
			log.Printf("🧹 Deactivated %d invalid push token(s) of %s", resp.Deactivated, userID)
		}
	}
	return resp, nil
}

// ==================== Log ====================

func (s *NotificationService) List(ctx context.Context, userID uuid.UUID) (*model.NotificationListResponse, error) {
	items, err := s.notifications.ListByUser(ctx, userID, notificationListLimit)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	unread, err := s.notifications.UnreadCount(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if items == nil {
		items = []model.Notification{}
	}
	return &model.NotificationListResponse{Data: items, Unread: unread}, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.notifications.MarkRead(ctx, userID, id, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("notification not found")
		}
		return apperrors.Internal(err)
	}
	return nil
}

func toJSONMap(data map[string]string) datatypes.JSONMap {
	m := datatypes.JSONMap{}
	for k, v := range data {
		m[k] = v
	}
	return m
}
