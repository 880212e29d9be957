// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command authportal is the entry point of the LetsWorkApps sign-in portal.
//
// # Commands
//
//   - serve       : Run the HTTP server.
//   - migrate up  : Apply pending schema migrations.
//   - migrate down: Roll back schema migrations.
//   - seed-admin  : Create the initial administrator account.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/letsworkapps/authportal/internal/platform/constants"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           constants.AppName,
		Short:         "Username/password and enterprise sign-in portal",
		Version:       constants.AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(*cobra.Command, []string) {
			slog.Default().Debug("command_finished")
		},
	}

	root.AddCommand(newServeCommand(), newMigrateCommand(), newSeedAdminCommand())
	return root
}

// newLogger builds the JSON logger shared by every command. Every record
// carries the app attribute.
func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).
		With(slog.String("app", constants.AppName))
	slog.SetDefault(log)
	return log
}
