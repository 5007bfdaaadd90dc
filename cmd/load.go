package cmd

import (
	"fmt"

	"churndb/internal/database"
	"churndb/internal/pipeline"
	"churndb/internal/ui"

	"github.com/spf13/cobra"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Create the schema, load the processed CSV and build the views",
	Long: `Run the full database load:

  [1/4] execute the schema file
  [2/4] upsert the processed CSV into the customer tables
  [3/4] execute the feature extraction views file
  [4/4] verify table row counts

The database is created first when it does not exist. Loading is
idempotent: rerunning it updates rows in place.`,
	Args: cobra.NoArgs,
	RunE: runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	ui.ShowHeader("Customer Churn Database Setup")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd, cfg)
	defer cancel()

	if err := database.EnsureDatabase(ctx, cfg.Database, logger); err != nil {
		return err
	}

	session, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer session.Close()

	result, err := pipeline.New(session, cfg).Run(ctx)
	if err != nil {
		return err
	}

	ui.ShowHeader("Database Setup Complete!")
	ui.PrintKeyValue("Customers", ui.FormatCount(int64(result.Load.Customers)))
	ui.PrintKeyValue("Duration", ui.FormatDuration(result.Duration))

	ui.PrintSection("Next Steps")
	fmt.Fprintln(ui.Output(), "  1. Run 'churndb validate' to check data quality")
	fmt.Fprintln(ui.Output(), "  2. Query the feature views for analysis")
	return nil
}
