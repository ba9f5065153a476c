package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/recordql/recordql/cli/internal/ui"
	"github.com/recordql/recordql/runtime/client"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Inspect the database connection",
}

func init() {
	pingCmd := &cobra.Command{
		Use:   "ping",
		Short: "Check connectivity and report the server version",
		RunE: func(cmd *cobra.Command, args []string) error {
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
			v, err := c.ServerVersion(ctx)
			if err != nil {
				return err
			}
			if cfg.MinServerVersion != "" {
				if err := c.RequireServerVersion(ctx, cfg.MinServerVersion); err != nil {
					return err
				}
			}
			ui.Success("connected, server version %s", v)
			return nil
		},
	}

	dbCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(dbCmd)
}
