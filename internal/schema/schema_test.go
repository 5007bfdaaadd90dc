package schema

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"churndb/internal/sqlfile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedSchemaStatements(t *testing.T) {
	text, err := SQL(SchemaFile)
	require.NoError(t, err)

	script := sqlfile.Parse(text, true)
	assert.Empty(t, script.Trailing)
	// four tables and two indexes
	require.Len(t, script.Statements, 6)

	for i, table := range Tables {
		assert.True(t, strings.HasPrefix(script.Statements[i], "CREATE TABLE IF NOT EXISTS "+table+" ("), script.Statements[i])
	}
}

func TestEmbeddedViewStatements(t *testing.T) {
	text, err := SQL(ViewsFile)
	require.NoError(t, err)

	script := sqlfile.Parse(text, true)
	assert.Empty(t, script.Trailing)
	require.Len(t, script.Statements, 10)

	drops := script.Statements[:5]
	for i, obj := range DropOrder()[:5] {
		assert.Equal(t, "DROP VIEW IF EXISTS "+obj.Name, drops[i])
	}

	creates := script.Statements[5:]
	for i, view := range Views {
		assert.True(t, strings.HasPrefix(creates[i], "CREATE VIEW "+view+" AS"), creates[i])
	}
}

func TestDropOrder(t *testing.T) {
	names := make([]string, 0, 9)
	for _, obj := range DropOrder() {
		names = append(names, obj.Name)
	}

	assert.Equal(t, []string{
		"at_risk_customers",
		"ml_feature_matrix",
		"high_risk_customers",
		"churn_statistics",
		"customer_complete_profile",
		"churn_features",
		"billing_info",
		"service_subscriptions",
		"customers",
	}, names)
	assert.Equal(t, ObjectTypeView, DropOrder()[0].Type)
	assert.Equal(t, ObjectTypeTable, DropOrder()[8].Type)
}

func TestSQLUnknownFile(t *testing.T) {
	_, err := SQL("nope.sql")
	assert.Error(t, err)
}

func TestWriteDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sql_queries")

	results, err := WriteDefaults(dir, false)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Written)
	assert.True(t, results[1].Written)

	custom := filepath.Join(dir, SchemaFile)
	require.NoError(t, os.WriteFile(custom, []byte("-- mine\n"), 0644))

	results, err = WriteDefaults(dir, false)
	require.NoError(t, err)
	assert.False(t, results[0].Written)
	data, err := os.ReadFile(custom)
	require.NoError(t, err)
	assert.Equal(t, "-- mine\n", string(data))

	results, err = WriteDefaults(dir, true)
	require.NoError(t, err)
	assert.True(t, results[0].Written)
	data, err = os.ReadFile(custom)
	require.NoError(t, err)
	assert.Contains(t, string(data), "CREATE TABLE IF NOT EXISTS customers")
}
