package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigJSONKeys(t *testing.T) {
	raw := `{
    "database": {"host": "localhost", "port": 3306, "user": "root", "password": "", "database": "customer_churn_db"},
    "paths": {"raw_data": "/p/data/raw", "processed_data": "/p/data/processed", "sql_queries": "/p/sql_queries", "notebooks": "/p/notebooks"}
}`

	var cfg Config
	require.NoError(t, json.Unmarshal([]byte(raw), &cfg))

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, "customer_churn_db", cfg.Database.Database)
	assert.Equal(t, "/p/sql_queries", cfg.Paths.SQLQueries)
	assert.Empty(t, cfg.Database.Driver)
}

func TestDefaultPort(t *testing.T) {
	assert.Equal(t, 3306, DefaultPort(DriverMySQL))
	assert.Equal(t, 3306, DefaultPort(""))
	assert.Equal(t, 5432, DefaultPort(DriverPostgres))
	assert.Equal(t, 0, DefaultPort(DriverSQLite))
}
