package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"churndb/internal/testutil"
	apperrors "churndb/pkg/errors"
	"churndb/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalConfig = `{
    "database": {
        "host": "localhost",
        "port": 3306,
        "user": "root",
        "password": "secret",
        "database": "customer_churn_db"
    },
    "paths": {
        "raw_data": "/project/data/raw",
        "processed_data": "/project/data/processed",
        "sql_queries": "/project/sql_queries",
        "notebooks": "/project/notebooks"
    }
}`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestGetConfigFile(t *testing.T) {
	t.Setenv(EnvConfigFile, "")

	cwd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, DefaultConfigFile), GetConfigFile(""))

	t.Setenv(EnvConfigFile, "/etc/churndb/config.json")
	assert.Equal(t, "/etc/churndb/config.json", GetConfigFile(""))
	assert.Equal(t, "/tmp/other.json", GetConfigFile("/tmp/other.json"))
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "config.json", minimalConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, models.DriverMySQL, cfg.Database.Driver)
	assert.Equal(t, "secret", cfg.Database.Password)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, DefaultBatchSize, cfg.Load.BatchSize)
	assert.Equal(t, DefaultSchemaFile, cfg.Load.SchemaFile)
	assert.Equal(t, DefaultViewsFile, cfg.Load.ViewsFile)
	assert.Equal(t, DefaultProcessedCSV, cfg.Load.ProcessedCSV)
	assert.Equal(t, DefaultChargeRatioThreshold, cfg.Validation.ChargeRatioThreshold)
	assert.Equal(t, "/project/sql_queries", cfg.Paths.SQLQueries)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "config.json", minimalConfig)
	t.Setenv("CHURNDB_DATABASE_PASSWORD", "from-env")
	t.Setenv("CHURNDB_LOAD_BATCH_SIZE", "50")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Database.Password)
	assert.Equal(t, 50, cfg.Load.BatchSize)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeConfigNotFound))
}

func TestLoadMissingKeys(t *testing.T) {
	tests := []struct {
		name    string
		content string
		key     string
	}{
		{
			name:    "no host",
			content: `{"database": {"user": "root", "database": "db"}, "paths": {"raw_data": "a", "processed_data": "b", "sql_queries": "c", "notebooks": "d"}}`,
			key:     "database.host",
		},
		{
			name:    "no paths",
			content: `{"database": {"host": "h", "user": "root", "database": "db"}}`,
			key:     "paths.raw_data",
		},
		{
			name:    "no notebooks",
			content: `{"database": {"host": "h", "user": "root", "database": "db"}, "paths": {"raw_data": "a", "processed_data": "b", "sql_queries": "c"}}`,
			key:     "paths.notebooks",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, "config.json", tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), fmt.Sprintf("Missing required configuration key: %s", tt.key))
			assert.Equal(t, apperrors.ErrCodeConfigInvalid, apperrors.GetErrorCode(err))
		})
	}
}

func TestLoadSQLiteNeedsNoHost(t *testing.T) {
	content := `{"database": {"driver": "sqlite", "database": "/tmp/churn.db"},
  "paths": {"raw_data": "a", "processed_data": "b", "sql_queries": "c", "notebooks": "d"}}`

	cfg, err := Load(writeConfig(t, "config.json", content))
	require.NoError(t, err)
	assert.Equal(t, models.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 0, cfg.Database.Port)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	content := `{"database": {"driver": "oracle", "host": "h", "user": "u", "database": "d"}}`
	_, err := Load(writeConfig(t, "config.json", content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unsupported database driver")
}

func TestLoadNormalizesDriverAliases(t *testing.T) {
	tests := []struct {
		driver   string
		expected string
		port     int
	}{
		{"postgresql", models.DriverPostgres, 5432},
		{"pgx", models.DriverPostgres, 5432},
		{"MySQL", models.DriverMySQL, 3306},
		{"sqlite3", models.DriverSQLite, 0},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			content := fmt.Sprintf(`{"database": {"driver": %q, "host": "h", "user": "u", "database": "d"},
  "paths": {"raw_data": "a", "processed_data": "b", "sql_queries": "c", "notebooks": "d"}}`, tt.driver)

			cfg, err := Load(writeConfig(t, "config.json", content))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cfg.Database.Driver)
			assert.Equal(t, tt.port, cfg.Database.Port)
		})
	}
}

func TestLoadChargeRatioThreshold(t *testing.T) {
	const tmpl = `{"database": {"host": "h", "user": "u", "database": "d"},
  "paths": {"raw_data": "a", "processed_data": "b", "sql_queries": "c", "notebooks": "d"},
  "validation": {"charge_ratio_threshold": %s}}`

	cfg, err := Load(writeConfig(t, "config.json", fmt.Sprintf(tmpl, "0")))
	require.NoError(t, err)
	assert.Zero(t, cfg.Validation.ChargeRatioThreshold)

	cfg, err = Load(writeConfig(t, "config.json", fmt.Sprintf(tmpl, "0.3")))
	require.NoError(t, err)
	assert.Equal(t, 0.3, cfg.Validation.ChargeRatioThreshold)

	_, err = Load(writeConfig(t, "config.json", fmt.Sprintf(tmpl, "-0.5")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid charge ratio threshold")
	assert.Equal(t, apperrors.ErrCodeConfigInvalid, apperrors.GetErrorCode(err))
}

func TestLoadRejectsBadTimeout(t *testing.T) {
	content := `{"database": {"host": "h", "user": "u", "database": "d", "query_timeout": "soon"},
  "paths": {"raw_data": "a", "processed_data": "b", "sql_queries": "c", "notebooks": "d"}}`
	_, err := Load(writeConfig(t, "config.json", content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid query timeout")
}

func TestQueryTimeout(t *testing.T) {
	cfg := Default(t.TempDir())
	d, err := QueryTimeout(cfg)
	require.NoError(t, err)
	assert.Zero(t, d)

	cfg.Database.QueryTimeout = "90s"
	d, err = QueryTimeout(cfg)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)
}

func TestSaveAndLoad(t *testing.T) {
	for _, name := range []string{"config.json", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "nested", name)

			cfg := Default(dir)
			cfg.Database.Password = "pw"
			require.NoError(t, Save(cfg, path))
			assert.True(t, Exists(path))

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestSaveUsesFourSpaceIndent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, Save(Default("/project"), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "{\n    \"database\": {\n        \"driver\": \"mysql\"")
}

func TestDefault(t *testing.T) {
	cfg := Default("/project")
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, "root", cfg.Database.User)
	assert.Equal(t, "customer_churn_db", cfg.Database.Database)
	assert.Equal(t, filepath.Join("/project", "data", "raw"), cfg.Paths.RawData)
	assert.Equal(t, filepath.Join("/project", "data", "processed"), cfg.Paths.ProcessedData)
	assert.Equal(t, filepath.Join("/project", "sql_queries"), cfg.Paths.SQLQueries)
	assert.Equal(t, filepath.Join("/project", "notebooks"), cfg.Paths.Notebooks)
}

func TestResolvePassword(t *testing.T) {
	t.Run("keyring disabled", func(t *testing.T) {
		cfg := Default("/p")
		store := testutil.NewMockPasswordStore("root", "localhost", "kr")
		require.NoError(t, ResolvePassword(cfg, store))
		assert.Empty(t, cfg.Database.Password)
		assert.Zero(t, store.Calls)
	})

	t.Run("explicit password wins", func(t *testing.T) {
		cfg := Default("/p")
		cfg.Database.UseKeyring = true
		cfg.Database.Password = "inline"
		store := testutil.NewMockPasswordStore("root", "localhost", "kr")
		require.NoError(t, ResolvePassword(cfg, store))
		assert.Equal(t, "inline", cfg.Database.Password)
	})

	t.Run("read from keyring", func(t *testing.T) {
		cfg := Default("/p")
		cfg.Database.UseKeyring = true
		require.NoError(t, ResolvePassword(cfg, testutil.NewMockPasswordStore("root", "localhost", "kr")))
		assert.Equal(t, "kr", cfg.Database.Password)
	})

	t.Run("lookup failure", func(t *testing.T) {
		cfg := Default("/p")
		cfg.Database.UseKeyring = true
		err := ResolvePassword(cfg, &testutil.MockPasswordStore{Err: fmt.Errorf("locked")})
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeCredentialLookup, apperrors.GetErrorCode(err))
	})
}
