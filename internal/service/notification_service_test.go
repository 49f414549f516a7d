package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/finscale/finscale-api/internal/model"
	"github.com/finscale/finscale-api/internal/repository/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndUnregisterToken(t *testing.T) {
	repos := memory.New()
	svc := NewNotificationService(repos, &fakeSender{})
	user := createUser(t, repos, "ana@finscale.app", model.RoleDoctor)
	ctx := context.Background()

	require.NoError(t, svc.RegisterToken(ctx, user.ID, model.RegisterTokenRequest{Token: " tok-1 ", DeviceType: model.DeviceWeb}))
	active, err := repos.Tokens.ActiveTokens(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"tok-1"}, active)

	requireStatus(t, svc.UnregisterToken(ctx, uuid.New(), model.UnregisterTokenRequest{Token: "tok-1"}), http.StatusNotFound)
	require.NoError(t, svc.UnregisterToken(ctx, user.ID, model.UnregisterTokenRequest{Token: "tok-1"}))

	active, err = repos.Tokens.ActiveTokens(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestNotifyUserDeactivatesInvalidTokens(t *testing.T) {
	repos := memory.New()
	sender := &fakeSender{invalid: map[string]bool{"stale": true}}
	svc := NewNotificationService(repos, sender)
	user := createUser(t, repos, "ana@finscale.app", model.RoleDoctor)
	ctx := context.Background()
	require.NoError(t, repos.Tokens.Register(ctx, user.ID, "fresh", model.DeviceAndroid))
	require.NoError(t, repos.Tokens.Register(ctx, user.ID, "stale", model.DeviceIOS))

	resp, err := svc.NotifyUser(ctx, user.ID, model.NotificationManual, "Olá", "Teste", map[string]string{"k": "v"})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.SuccessCount)
	assert.Equal(t, 1, resp.FailureCount)
	assert.Equal(t, 1, resp.Deactivated)

	active, err := repos.Tokens.ActiveTokens(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, active)

	list, err := svc.List(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.Equal(t, int64(1), list.Unread)
	assert.Equal(t, "v", list.Data[0].Data["k"])
}

func TestNotifyUserRespectsOptOut(t *testing.T) {
	repos := memory.New()
	sender := &fakeSender{}
	svc := NewNotificationService(repos, sender)
	user := createUser(t, repos, "ana@finscale.app", model.RoleDoctor)
	user.NotificationsEnabled = false
	ctx := context.Background()
	require.NoError(t, repos.Users.Save(ctx, user))
	require.NoError(t, repos.Tokens.Register(ctx, user.ID, "fresh", model.DeviceAndroid))

	resp, err := svc.NotifyUser(ctx, user.ID, model.NotificationManual, "Olá", "Teste", nil)
	require.NoError(t, err)
	assert.True(t, resp.Skipped)
	assert.Zero(t, sender.count())

	// still recorded in the log
	list, err := svc.List(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, list.Data, 1)
}

func TestSendRequiresExactlyOneTarget(t *testing.T) {
	repos := memory.New()
	sender := &fakeSender{}
	svc := NewNotificationService(repos, sender)
	userID := uuid.New()
	ctx := context.Background()

	_, err := svc.Send(ctx, model.SendNotificationRequest{Title: "t", Body: "b"})
	requireStatus(t, err, http.StatusBadRequest)

	_, err = svc.Send(ctx, model.SendNotificationRequest{UserID: &userID, Token: "x", Title: "t", Body: "b"})
	requireStatus(t, err, http.StatusBadRequest)

	_, err = svc.Send(ctx, model.SendNotificationRequest{UserID: &userID, Title: "t", Body: "b"})
	requireStatus(t, err, http.StatusNotFound)

	resp, err := svc.Send(ctx, model.SendNotificationRequest{Token: "raw-token", Title: "t", Body: "b"})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.SuccessCount)
	assert.Equal(t, []string{"raw-token"}, sender.sent[0].tokens)
}

func TestSendSurfacesPushFailure(t *testing.T) {
	repos := memory.New()
	svc := NewNotificationService(repos, &fakeSender{err: assert.AnError})

	_, err := svc.Send(context.Background(), model.SendNotificationRequest{Token: "raw-token", Title: "t", Body: "b"})
	requireStatus(t, err, http.StatusBadGateway)
}

func TestMarkRead(t *testing.T) {
	repos := memory.New()
	svc := NewNotificationService(repos, &fakeSender{})
	user := createUser(t, repos, "ana@finscale.app", model.RoleDoctor)
	ctx := context.Background()

	_, err := svc.NotifyUser(ctx, user.ID, model.NotificationManual, "Olá", "Teste", nil)
	require.NoError(t, err)
	list, err := svc.List(ctx, user.ID)
	require.NoError(t, err)
	id := list.Data[0].ID

	requireStatus(t, svc.MarkRead(ctx, uuid.New(), id), http.StatusNotFound)
	require.NoError(t, svc.MarkRead(ctx, user.ID, id))

	list, err = svc.List(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, list.Unread)
	assert.True(t, list.Data[0].IsRead())
}
