package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/finscale/finscale-api/internal/model"
	"github.com/finscale/finscale-api/internal/repository/memory"
	"github.com/finscale/finscale-api/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAdminCreatesAccount(t *testing.T) {
	users := memory.NewUserRepository()
	opts := adminOptions{email: " Admin@Finscale.app ", name: "Admin", password: "secret123", role: "admin"}
	require.NoError(t, opts.validate())

	user, created, err := createAdmin(context.Background(), users, opts)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, model.RoleAdmin, user.Role)
	assert.Equal(t, "admin@finscale.app", user.Email)
	assert.True(t, auth.CheckPassword(user.Password, "secret123"))
}

func TestCreateAdminPromotesExistingAccount(t *testing.T) {
	users := memory.NewUserRepository()
	require.NoError(t, users.Create(context.Background(), &model.User{
		Email: "coord@finscale.app", DisplayName: "Coord", Role: model.RoleDoctor,
	}))

	user, created, err := createAdmin(context.Background(), users, adminOptions{email: "coord@finscale.app", role: "manager"})
	require.NoError(t, err)
	assert.False(t, created)

	stored, err := users.FindByEmail(context.Background(), "coord@finscale.app")
	require.NoError(t, err)
	assert.Equal(t, model.RoleManager, stored.Role)
	assert.Equal(t, user.ID, stored.ID)
}

func TestCreateAdminRequiresPasswordForNewAccount(t *testing.T) {
	_, _, err := createAdmin(context.Background(), memory.NewUserRepository(), adminOptions{email: "x@finscale.app", role: "admin"})
	assert.Error(t, err)
}

func TestAdminOptionsRejectDoctorRole(t *testing.T) {
	opts := adminOptions{email: "x@finscale.app", role: "doctor"}
	assert.Error(t, opts.validate())
}

func TestCreateAdminFlagsRequired(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"create-admin"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email")
}
