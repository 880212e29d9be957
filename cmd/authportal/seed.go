// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/letsworkapps/authportal/internal/platform/config"
	"github.com/letsworkapps/authportal/internal/platform/constants"
	"github.com/letsworkapps/authportal/internal/platform/migration"
	"github.com/letsworkapps/authportal/internal/platform/sec"
	"github.com/letsworkapps/authportal/internal/users/account"
)

const seedActor = "seed-admin"

type seedOptions struct {
	username    string
	password    string
	displayName string
}

// newSeedAdminCommand creates the initial administrator account.
func newSeedAdminCommand() *cobra.Command {
	options := seedOptions{}

	command := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the administrator account if it does not exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return seedAdmin(ctx, options)
		},
	}

	command.Flags().StringVar(&options.username, "username", "lwa_admin", "administrator username")
	command.Flags().StringVar(&options.password, "password", "", "administrator password")
	command.Flags().StringVar(&options.displayName, "display-name", "LetsWorkApps_Admin", "administrator display name")
	_ = command.MarkFlagRequired("password")

	return command
}

func seedAdmin(ctx context.Context, options seedOptions) error {
	log := newLogger(false)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	startupCtx, cancel := context.WithTimeout(ctx, constants.StartupTimeout)
	defer cancel()

	db, err := openDatabase(startupCtx, cfg, log)
	if err != nil {
		return err
	}
	defer db.close()

	if err := migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log); err != nil {
		return err
	}

	return createAdmin(ctx, account.NewService(db.repository, sec.NewPasswordHasher(sec.DefaultArgon2Params)), options, log)
}

// createAdmin registers the administrator. An existing username is reported, not an error.
func createAdmin(ctx context.Context, accounts *account.Service, options seedOptions, log *slog.Logger) error {
	user, err := accounts.Register(ctx, account.RegisterInput{
		Username:    options.username,
		Password:    options.password,
		DisplayName: options.displayName,
		CreatedBy:   seedActor,
	})
	if errors.Is(err, account.ErrDuplicateUsername) {
		log.Info("admin_already_exists", slog.String("username", options.username))
		return nil
	}
	if err != nil {
		return err
	}

	log.Info("admin_created",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
		slog.String("display_name", user.DisplayName),
	)
	return nil
}
