// Package commands implements the recordql CLI.
package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/recordql/recordql/cli/internal/config"
	"github.com/recordql/recordql/cli/internal/ui"
	"github.com/recordql/recordql/cli/internal/version"
	"github.com/recordql/recordql/internal/debug"
)

var rootCmd = &cobra.Command{
	Use:   "recordql",
	Short: "PostgreSQL record mapper tooling",
	Long: `recordql is a minimal object-relational mapper for PostgreSQL.

This CLI manages the database side of a recordql project:
- applying plain .sql migration files in order
- inspecting migration status
- checking database connectivity and server version`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var cfg *config.Config

func init() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if cfg.Debug {
			debug.Init(slog.LevelDebug)
		}
		return nil
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(version.String())
		},
	})
}

// Execute runs the CLI.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		ui.Error("%v", err)
		return err
	}
	return nil
}
