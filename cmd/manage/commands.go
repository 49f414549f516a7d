package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/finscale/finscale-api/internal/config"
	"github.com/finscale/finscale-api/internal/model"
	"github.com/finscale/finscale-api/internal/repository"
	"github.com/finscale/finscale-api/internal/repository/postgres"
	"github.com/finscale/finscale-api/migrations"
	"github.com/finscale/finscale-api/pkg/auth"
	"github.com/spf13/cobra"
)

const minPasswordLength = 6

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "manage",
		Short:         "Finscale operator commands",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newMigrateCmd(), newCreateAdminCmd())
	return root
}

// ==================== migrate ====================

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return migrations.Run(config.Load().DB.URL())
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Revert the last migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return migrations.Rollback(config.Load().DB.URL(), steps)
		},
	}
	down.Flags().IntVarP(&steps, "steps", "n", 1, "number of migrations to revert")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, dirty, ok, err := migrations.Version(config.Load().DB.URL())
			if err != nil {
				return err
			}
			if !ok {
				cmd.Println("no migrations applied")
				return nil
			}
			cmd.Printf("version %d (dirty: %v)\n", v, dirty)
			return nil
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}

// ==================== create-admin ====================

type adminOptions struct {
	email    string
	name     string
	password string
	role     string
}

func newCreateAdminCmd() *cobra.Command {
	opts := adminOptions{}
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin or manager account, or promote an existing one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.validate(); err != nil {
				return err
			}

			cfg := config.Load()
			db, err := postgres.Open(cfg.DB.DSN(), true)
			if err != nil {
				return err
			}
			log.Println("✅ Connected to Database")

			user, created, err := createAdmin(cmd.Context(), postgres.New(db).Users, opts)
			if err != nil {
				return err
			}
			if created {
				cmd.Printf("created %s %s (%s)\n", user.Role, user.Email, user.ID)
			} else {
				cmd.Printf("promoted %s to %s\n", user.Email, user.Role)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.email, "email", "", "account email (required)")
	cmd.Flags().StringVar(&opts.name, "name", "Administrador", "display name for a new account")
	cmd.Flags().StringVar(&opts.password, "password", "", "password for a new account")
	cmd.Flags().StringVar(&opts.role, "role", string(model.RoleAdmin), "admin or manager")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (o *adminOptions) validate() error {
	o.email = strings.ToLower(strings.TrimSpace(o.email))
	if !strings.Contains(o.email, "@") {
		return fmt.Errorf("invalid email %q", o.email)
	}
	role := model.Role(o.role)
	if role != model.RoleAdmin && role != model.RoleManager {
		return fmt.Errorf("role must be admin or manager, got %q", o.role)
	}
	return nil
}

// createAdmin promotes the account with opts.email, or creates it when missing
func createAdmin(ctx context.Context, users repository.UserRepository, opts adminOptions) (*model.User, bool, error) {
	role := model.Role(opts.role)

	existing, err := users.FindByEmail(ctx, opts.email)
	switch {
	case err == nil:
		if err := users.UpdateRole(ctx, existing.ID, role); err != nil {
			return nil, false, fmt.Errorf("failed to promote user: %w", err)
		}
		existing.Role = role
		return existing, false, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, false, err
	}

	if len(opts.password) < minPasswordLength {
		return nil, false, fmt.Errorf("--password must have at least %d characters for a new account", minPasswordLength)
	}
	hash, err := auth.HashPassword(opts.password)
	if err != nil {
		return nil, false, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Email:                opts.email,
		Password:             hash,
		DisplayName:          opts.name,
		Role:                 role,
		NotificationsEnabled: true,
		ShiftReminders:       true,
	}
	if err := users.Create(ctx, user); err != nil {
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}
	return user, true, nil
}
