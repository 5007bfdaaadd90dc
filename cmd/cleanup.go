package cmd

import (
	"fmt"

	"churndb/internal/cleanup"
	"churndb/internal/ui"
	apperrors "churndb/pkg/errors"

	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Drop every churn view and table",
	Long: `Drop the five feature views and the four customer tables so that the
next 'churndb load' starts from an empty database.`,
	Args: cobra.NoArgs,
	RunE: runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	ui.ShowHeader("Database Cleanup Utility")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd, cfg)
	defer cancel()

	session, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer session.Close()

	ui.ShowInfo(fmt.Sprintf("Connected to database: %s", cfg.Database.Database))
	result := cleanup.New(session).Run(ctx)
	ui.ShowCleanup(result)

	if result.FKError != nil {
		return apperrors.SQLError("Failed to re-enable foreign key checks", "", result.FKError)
	}
	if n := result.Failed(); n > 0 {
		return apperrors.New(apperrors.ErrCodeSQLExecution, fmt.Sprintf("Cleanup incomplete: %d of %d objects could not be dropped", n, len(result.Objects)))
	}

	ui.ShowSuccess("Cleanup complete. You can now run: churndb load")
	return nil
}
