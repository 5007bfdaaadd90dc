package cmd

import (
	"context"
	"os"
	"os/signal"

	"churndb/internal/config"
	"churndb/internal/database"
	"churndb/internal/observability"
	"churndb/internal/ui"
	"churndb/pkg/models"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
	noColor   bool

	runID  = uuid.NewString()
	logger = observability.GetDefaultLogger()

	rootCmd = &cobra.Command{
		Use:   "churndb",
		Short: "Load and validate the customer churn database",
		Long: `churndb - Builds the customer churn database from the processed CSV,
creates the feature extraction views and checks the loaded data.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				ui.DisableColor()
			}
			configureLogger(models.Logging{})
		},
	}
)

// Execute runs the root command and exits 1 on failure
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.ShowError(err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $"+config.EnvConfigFile+" or ./"+config.DefaultConfigFile+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// configureLogger installs the process logger; flags win over config values
func configureLogger(settings models.Logging) {
	logger = observability.NewLogger(observability.LoggerConfig{
		Level:   observability.LogLevelFromString(firstNonEmpty(logLevel, settings.Level, "warn")),
		Output:  os.Stderr,
		Service: "churndb",
		Encoder: observability.EncoderFromString(firstNonEmpty(logFormat, settings.Format, "text")),
	}).WithField("run_id", runID)
	observability.SetDefaultLogger(logger)
}

// loadConfig reads the config file and resolves a keyring password
func loadConfig() (*models.Config, error) {
	path := config.GetConfigFile(cfgFile)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	configureLogger(cfg.Logging)
	logger.DebugWithFields("Loaded configuration", map[string]interface{}{
		"path":   path,
		"target": database.Describe(cfg.Database),
	})

	if err := config.ResolvePassword(cfg, nil); err != nil {
		return nil, err
	}
	return cfg, nil
}

// commandContext bounds ctx by database.query_timeout when one is set
func commandContext(cmd *cobra.Command, cfg *models.Config) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout, err := config.QueryTimeout(cfg); err == nil && timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

func openSession(ctx context.Context, cfg *models.Config) (*database.Session, error) {
	return database.Open(ctx, cfg.Database, database.Options{
		SelectDatabase: true,
		Logger:         logger,
	})
}
