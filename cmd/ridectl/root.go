package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"rideshare/internal/app"
	"rideshare/internal/config"
)

type env struct {
	cfg *config.Config
	db  *sql.DB
}

func newRootCmd() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:           "ridectl",
		Short:         "Maintenance commands for the rideshare database",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			e.cfg = config.Load()
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			db, err := app.NewDatabase(ctx, e.cfg.Database, nil)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			e.db = db
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if e.db != nil {
				return e.db.Close()
			}
			return nil
		},
	}

	root.AddCommand(newMigrateCmd(e), newRidesCmd(e))
	return root
}

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.Migrate(cmd.Context(), e.db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
