package cmd

import (
	"fmt"

	"churndb/internal/database"
	"churndb/internal/ui"

	"github.com/spf13/cobra"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Test the database connection",
	Args:  cobra.NoArgs,
	RunE:  runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
}

func runPing(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd, cfg)
	defer cancel()

	session, err := openSession(ctx, cfg)
	if err != nil {
		ui.ShowFailure("Database connection failed")
		return err
	}
	defer session.Close()

	if err := session.Ping(ctx); err != nil {
		ui.ShowFailure("Database connection failed")
		return err
	}

	ui.ShowSuccess(fmt.Sprintf("Connected to %s", database.Describe(cfg.Database)))
	return nil
}
