package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"churndb/internal/common"
	"churndb/internal/database"
	"churndb/internal/security"
	apperrors "churndb/pkg/errors"
	"churndb/pkg/models"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// EnvConfigFile overrides the config file location
	EnvConfigFile = "CHURNDB_CONFIG"
	// EnvPrefix is prepended to every key-based environment override
	EnvPrefix = "CHURNDB"
	// DefaultConfigFile is used when neither flag nor environment name a file
	DefaultConfigFile = "config.json"
)

// Defaults for optional keys
const (
	DefaultDatabaseName         = "customer_churn_db"
	DefaultBatchSize            = 500
	DefaultSchemaFile           = "db_init.sql"
	DefaultViewsFile            = "feature_extraction.sql"
	DefaultProcessedCSV         = "customer_churn_processed.csv"
	DefaultChargeRatioThreshold = 0.5
)

// GetConfigFile resolves the config file from the flag value, then
// $CHURNDB_CONFIG, then ./config.json
func GetConfigFile(flagValue string) string {
	candidate := flagValue
	if candidate == "" {
		candidate = os.Getenv(EnvConfigFile)
	}
	if candidate == "" {
		candidate = DefaultConfigFile
	}

	cleaned, err := common.CleanPath(candidate)
	if err != nil {
		return candidate
	}
	return cleaned
}

func requiredKeys(driver string) []string {
	keys := []string{"database.database"}
	if driver != models.DriverSQLite {
		keys = append(keys, "database.host", "database.user")
	}
	return append(keys,
		"paths.raw_data",
		"paths.processed_data",
		"paths.sql_queries",
		"paths.notebooks",
	)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("database.driver", models.DriverMySQL)
	v.SetDefault("database.use_keyring", false)
	v.SetDefault("database.query_timeout", "")
	v.SetDefault("load.batch_size", DefaultBatchSize)
	v.SetDefault("load.schema_file", DefaultSchemaFile)
	v.SetDefault("load.views_file", DefaultViewsFile)
	v.SetDefault("load.processed_csv", DefaultProcessedCSV)
	v.SetDefault("validation.charge_ratio_threshold", DefaultChargeRatioThreshold)
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "text")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads and validates the config file at path
func Load(path string) (*models.Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.New(apperrors.ErrCodeConfigNotFound, fmt.Sprintf("Config file not found: %s", path)).
				WithContext("path", path).
				WithSuggestions("Run 'churndb setup' to create it", fmt.Sprintf("Or point %s at an existing file", EnvConfigFile))
		}
		return nil, apperrors.FileError(path, err)
	}

	v := newViper()
	v.SetConfigFile(path)
	if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext == "" {
		v.SetConfigType("json")
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeConfigInvalid, fmt.Sprintf("Failed to parse config file %s", path)).
			WithContext("path", path)
	}

	dialect, err := database.ForDriver(v.GetString("database.driver"))
	if err != nil {
		return nil, err
	}
	driver := dialect.Name()

	for _, key := range requiredKeys(driver) {
		if !v.IsSet(key) {
			return nil, apperrors.ConfigError(fmt.Sprintf("Missing required configuration key: %s", key), key).
				WithContext("path", path)
		}
	}

	var cfg models.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeConfigInvalid, "Failed to decode configuration").
			WithContext("path", path)
	}

	cfg.Database.Driver = driver
	if cfg.Database.Port == 0 {
		cfg.Database.Port = models.DefaultPort(driver)
	}
	if cfg.Load.BatchSize <= 0 {
		cfg.Load.BatchSize = DefaultBatchSize
	}
	if _, err := QueryTimeout(&cfg); err != nil {
		return nil, err
	}
	if cfg.Validation.ChargeRatioThreshold < 0 {
		return nil, apperrors.ConfigError(
			fmt.Sprintf("Invalid charge ratio threshold %g", cfg.Validation.ChargeRatioThreshold),
			"validation.charge_ratio_threshold").
			WithSuggestions("Use a value between 0 and 1; 0 disables the check")
	}

	return &cfg, nil
}

// QueryTimeout parses database.query_timeout; zero means no limit
func QueryTimeout(cfg *models.Config) (time.Duration, error) {
	raw := strings.TrimSpace(cfg.Database.QueryTimeout)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, apperrors.ConfigError(fmt.Sprintf("Invalid query timeout %q", raw), "database.query_timeout")
	}
	return d, nil
}

// Default returns a config with the conventional project layout under baseDir
func Default(baseDir string) *models.Config {
	return &models.Config{
		Database: models.Database{
			Driver:   models.DriverMySQL,
			Host:     "localhost",
			Port:     models.DefaultPort(models.DriverMySQL),
			User:     "root",
			Database: DefaultDatabaseName,
		},
		Paths: models.Paths{
			RawData:       filepath.Join(baseDir, "data", "raw"),
			ProcessedData: filepath.Join(baseDir, "data", "processed"),
			SQLQueries:    filepath.Join(baseDir, "sql_queries"),
			Notebooks:     filepath.Join(baseDir, "notebooks"),
		},
		Load: models.LoadSettings{
			BatchSize:    DefaultBatchSize,
			SchemaFile:   DefaultSchemaFile,
			ViewsFile:    DefaultViewsFile,
			ProcessedCSV: DefaultProcessedCSV,
		},
		Validation: models.ValidationSettings{ChargeRatioThreshold: DefaultChargeRatioThreshold},
		Logging:    models.Logging{Level: "warn", Format: "text"},
	}
}

// Save writes cfg to path as JSON, or YAML for .yaml/.yml files
func Save(cfg *models.Config, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, common.DirPermissionNormal); err != nil {
			return apperrors.FileError(dir, err)
		}
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(cfg)
	default:
		data, err = json.MarshalIndent(cfg, "", "    ")
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to marshal config")
	}

	if err := os.WriteFile(path, append(data, '\n'), common.FilePermissionSecure); err != nil {
		return apperrors.FileError(path, err)
	}
	return nil
}

// Exists reports whether the config file is present
func Exists(path string) bool {
	return common.FileExists(path)
}

// PasswordStore reads stored database passwords
type PasswordStore interface {
	GetPassword(user, host string) (string, error)
}

// ResolvePassword fills an empty password from the keyring when use_keyring is set
func ResolvePassword(cfg *models.Config, store PasswordStore) error {
	db := &cfg.Database
	if !db.UseKeyring || db.Password != "" {
		return nil
	}
	if store == nil {
		store = security.NewCredentialManager()
	}

	password, err := store.GetPassword(db.User, db.Host)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeCredentialLookup, "Failed to read database password from keyring").
			WithContext("account", security.Account(db.User, db.Host)).
			WithSuggestions("Run 'churndb setup --keyring --password ...' to store it")
	}
	db.Password = password
	return nil
}
