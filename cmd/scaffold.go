package cmd

import (
	"fmt"

	"churndb/internal/schema"
	"churndb/internal/ui"

	"github.com/spf13/cobra"
)

var scaffoldForce bool

var scaffoldCmd = &cobra.Command{
	Use:   "scaffold",
	Short: "Write the default SQL files into paths.sql_queries",
	Long: `Write the built-in schema (db_init.sql) and feature view
(feature_extraction.sql) scripts into the configured SQL directory.
Existing files are kept unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: runScaffold,
}

func init() {
	scaffoldCmd.Flags().BoolVar(&scaffoldForce, "force", false, "overwrite existing SQL files")
	rootCmd.AddCommand(scaffoldCmd)
}

func runScaffold(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	results, err := schema.WriteDefaults(cfg.Paths.SQLQueries, scaffoldForce)
	for _, r := range results {
		if r.Written {
			ui.ShowSuccess(fmt.Sprintf("Wrote %s", r.Path))
		} else {
			ui.ShowWarning(fmt.Sprintf("Kept existing %s (use --force to overwrite)", r.Path))
		}
	}
	return err
}
