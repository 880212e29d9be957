// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"github.com/spf13/cobra"

	"github.com/letsworkapps/authportal/internal/platform/config"
	"github.com/letsworkapps/authportal/internal/platform/migration"
)

// newMigrateCommand groups the schema migration subcommands.
func newMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	migrateUpCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all up migrations",
		RunE: func(*cobra.Command, []string) error {
			log := newLogger(false)
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log)
		},
	}

	var steps int
	migrateDownCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back the last migrations",
		RunE: func(*cobra.Command, []string) error {
			log := newLogger(false)
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return migration.RunDown(cfg.DatabaseURL, cfg.MigrationPath, steps, log)
		},
	}
	migrateDownCmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
	return migrateCmd
}
