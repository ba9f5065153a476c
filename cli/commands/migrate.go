package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/recordql/recordql/cli/internal/config"
	"github.com/recordql/recordql/cli/internal/ui"
	"github.com/recordql/recordql/cli/internal/watch"
	"github.com/recordql/recordql/migrate"
	"github.com/recordql/recordql/runtime/client"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database migrations",
	Long: `Manage database migrations.

Migrations are plain .sql files applied in name order. Applied
migrations are tracked in a history table with content checksums.`,
}

var showNotes bool

func init() {
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(func(ctx context.Context, r *migrate.Runner) error {
				spinner, _ := ui.Spinner("Applying migrations")
				applied, err := r.Up(ctx)
				if spinner != nil {
					_ = spinner.Stop()
				}
				if err != nil {
					return err
				}
				if len(applied) == 0 {
					ui.Info("Nothing to apply")
					return nil
				}
				for _, name := range applied {
					ui.Success("applied %s", name)
				}
				return nil
			})
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(func(ctx context.Context, r *migrate.Runner) error {
				statuses, err := r.Status(ctx)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(statuses))
				for _, s := range statuses {
					state := "pending"
					if s.Applied {
						state = "applied " + s.AppliedAt.Format(time.RFC3339)
					}
					rows = append(rows, []string{s.Name, state})
				}
				ui.StatusTable(rows)
				if showNotes {
					return printNotes(statuses)
				}
				return nil
			})
		},
	}
	statusCmd.Flags().BoolVar(&showNotes, "notes", false, "render markdown notes next to migration files")

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear the recorded migration history",
		RunE: func(cmd *cobra.Command, args []string) error {
			confirmed := false
			prompt := &survey.Confirm{
				Message: "Clear the migration history table? Schema objects are not touched.",
			}
			if err := survey.AskOne(prompt, &confirmed); err != nil {
				return err
			}
			if !confirmed {
				ui.Info("Aborted")
				return nil
			}
			return withRunner(func(ctx context.Context, r *migrate.Runner) error {
				if err := r.Reset(ctx); err != nil {
					return err
				}
				ui.Success("history cleared")
				return nil
			})
		},
	}

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Apply migrations whenever the migration directory changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(func(ctx context.Context, r *migrate.Runner) error {
				w, err := watch.New(cfg.MigrationsDir, func() error {
					applied, err := r.Up(ctx)
					if err != nil {
						ui.Error("%v", err)
						return nil // keep watching after a bad migration
					}
					for _, name := range applied {
						ui.Success("applied %s", name)
					}
					return nil
				})
				if err != nil {
					return err
				}
				ui.Info("Watching %s", cfg.MigrationsDir)
				return w.Start()
			})
		},
	}

	migrateCmd.AddCommand(upCmd, statusCmd, resetCmd, watchCmd)
	rootCmd.AddCommand(migrateCmd)
}

// withRunner connects, verifies the server when a minimum version is
// configured, and hands a runner to fn.
func withRunner(fn func(ctx context.Context, r *migrate.Runner) error) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}
	ctx := context.Background()
	c, err := client.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer c.Close()
	if err := c.Connect(ctx); err != nil {
		return err
	}
	if cfg.MinServerVersion != "" {
		if err := c.RequireServerVersion(ctx, cfg.MinServerVersion); err != nil {
			return err
		}
	}
	return fn(ctx, migrate.NewRunner(config.AppFs, cfg.MigrationsDir, c))
}

// printNotes renders the markdown file next to each migration, when one
// exists.
func printNotes(statuses []migrate.Status) error {
	for _, s := range statuses {
		notesPath := strings.TrimSuffix(s.Path, ".sql") + ".md"
		contents, err := afero.ReadFile(config.AppFs, notesPath)
		if err != nil {
			continue
		}
		rendered, err := ui.Markdown(string(contents))
		if err != nil {
			return err
		}
		ui.Info("notes for %s", filepath.Base(s.Path))
		fmt.Print(rendered)
	}
	return nil
}
