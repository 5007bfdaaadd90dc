package cmd

import (
	"fmt"

	"churndb/internal/ui"
	"churndb/internal/validate"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run data quality checks on the loaded database",
	Long: `Run row count, data quality, business logic, feature matrix and view
checks and print a report. Failed checks are reported but do not change the
exit status; only an unreachable database or missing tables do.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	ui.ShowHeader("Database Validation Report")

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

	report, err := validate.New(session, cfg.Validation.ChargeRatioThreshold).Run(ctx)
	if report != nil {
		ui.ShowReport(report)
	}
	if err != nil {
		return err
	}

	if report.Passed() {
		ui.ShowSuccess("Validation complete")
	} else {
		ui.ShowWarning(fmt.Sprintf("Validation complete with %d failed checks", report.Count(validate.StatusFail)))
	}
	return nil
}
