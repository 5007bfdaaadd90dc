package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"churndb/internal/common"
	"churndb/internal/config"
	"churndb/internal/database"
	"churndb/internal/security"
	"churndb/internal/ui"
	apperrors "churndb/pkg/errors"
	"churndb/pkg/models"

	"github.com/spf13/cobra"
)

var setupOpts struct {
	baseDir  string
	driver   string
	host     string
	port     int
	user     string
	password string
	database string
	keyring  bool
	output   string
	force    bool
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Initial configuration setup",
	Long: `Write the configuration file and create the project data directories.

The password can be kept out of the file with --keyring, which stores it in
the operating system keyring instead.`,
	Args: cobra.NoArgs,
	RunE: runSetup,
}

func init() {
	f := setupCmd.Flags()
	f.StringVar(&setupOpts.baseDir, "base-dir", ".", "project directory holding data/ and sql_queries/")
	f.StringVar(&setupOpts.driver, "driver", models.DriverMySQL, "database driver: mysql, postgres, sqlite")
	f.StringVar(&setupOpts.host, "host", "localhost", "database host")
	f.IntVar(&setupOpts.port, "port", 0, "database port (default depends on driver)")
	f.StringVar(&setupOpts.user, "user", "root", "database user")
	f.StringVar(&setupOpts.password, "password", "", "database password")
	f.StringVar(&setupOpts.database, "database", "", "database name, or file path for sqlite")
	f.BoolVar(&setupOpts.keyring, "keyring", false, "store the password in the OS keyring")
	f.StringVar(&setupOpts.output, "output", "", "config file to write (default <base-dir>/config.json)")
	f.BoolVar(&setupOpts.force, "force", false, "overwrite an existing config file")
	rootCmd.AddCommand(setupCmd)
}

// setupConfig builds the config from the setup flags
func setupConfig(baseDir string) (*models.Config, error) {
	dialect, err := database.ForDriver(setupOpts.driver)
	if err != nil {
		return nil, err
	}

	cfg := config.Default(baseDir)
	cfg.Database.Driver = dialect.Name()
	cfg.Database.Port = setupOpts.port
	if cfg.Database.Port == 0 {
		cfg.Database.Port = models.DefaultPort(cfg.Database.Driver)
	}
	cfg.Database.Database = firstNonEmpty(setupOpts.database, config.DefaultDatabaseName)

	if cfg.Database.Driver == models.DriverSQLite {
		cfg.Database.Host = ""
		cfg.Database.User = ""
		if setupOpts.database == "" {
			cfg.Database.Database = filepath.Join(baseDir, "data", config.DefaultDatabaseName+".db")
		}
		return cfg, nil
	}

	cfg.Database.Host = setupOpts.host
	cfg.Database.User = setupOpts.user
	cfg.Database.Password = setupOpts.password
	return cfg, nil
}

func setupOutput(baseDir string) string {
	if setupOpts.output != "" {
		return setupOpts.output
	}
	if cfgFile != "" || os.Getenv(config.EnvConfigFile) != "" {
		return config.GetConfigFile(cfgFile)
	}
	return filepath.Join(baseDir, config.DefaultConfigFile)
}

func runSetup(cmd *cobra.Command, args []string) error {
	ui.ShowHeader("Customer Churn Configuration Setup")

	baseDir, err := common.CleanPath(setupOpts.baseDir)
	if err != nil {
		return apperrors.ConfigError(err.Error(), "base-dir")
	}

	output := setupOutput(baseDir)
	if config.Exists(output) && !setupOpts.force {
		return apperrors.New(apperrors.ErrCodeConfigInvalid, fmt.Sprintf("Config file already exists: %s", output)).
			WithSuggestions("Use --force to overwrite it")
	}

	cfg, err := setupConfig(baseDir)
	if err != nil {
		return err
	}

	if setupOpts.keyring && cfg.Database.Driver != models.DriverSQLite {
		if setupOpts.password == "" {
			return apperrors.ConfigError("--keyring needs a password to store", "password")
		}
		if err := security.NewCredentialManager().StorePassword(cfg.Database.User, cfg.Database.Host, setupOpts.password); err != nil {
			return err
		}
		cfg.Database.UseKeyring = true
		cfg.Database.Password = ""
		ui.ShowSuccess(fmt.Sprintf("Password stored in keyring for %s", security.Account(cfg.Database.User, cfg.Database.Host)))
	}

	if err := common.EnsureDirs(cfg.Paths.RawData, cfg.Paths.ProcessedData, cfg.Paths.SQLQueries, cfg.Paths.Notebooks); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeFileOperation, "Failed to create project directories")
	}

	if err := config.Save(cfg, output); err != nil {
		return err
	}
	logger.InfoWithFields("Wrote configuration", map[string]interface{}{"path": output})

	ui.ShowSuccess(fmt.Sprintf("Configuration saved to: %s", output))
	ui.PrintSection("Database")
	ui.PrintKeyValue("Driver", cfg.Database.Driver)
	if cfg.Database.Driver != models.DriverSQLite {
		ui.PrintKeyValue("Host", cfg.Database.Host)
		ui.PrintKeyValue("Port", strconv.Itoa(cfg.Database.Port))
		ui.PrintKeyValue("User", cfg.Database.User)
	}
	ui.PrintKeyValue("Database", cfg.Database.Database)

	ui.PrintSection("Next Steps")
	fmt.Fprintln(ui.Output(), "  1. Run 'churndb scaffold' to write the default SQL files")
	fmt.Fprintf(ui.Output(), "  2. Place %s in %s\n", cfg.Load.ProcessedCSV, cfg.Paths.ProcessedData)
	fmt.Fprintln(ui.Output(), "  3. Run 'churndb load'")
	return nil
}
