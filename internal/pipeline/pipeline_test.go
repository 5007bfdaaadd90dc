package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"churndb/internal/config"
	"churndb/internal/database"
	"churndb/internal/observability"
	"churndb/internal/schema"
	"churndb/internal/testutil"
	"churndb/internal/ui"
	"churndb/internal/validate"
	apperrors "churndb/pkg/errors"
	"churndb/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	cfg     *models.Config
	session *database.Session
	output  *bytes.Buffer
}

func newFixture(t *testing.T, withSQL, withCSV bool) *fixture {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default(base)
	cfg.Database = models.Database{Driver: models.DriverSQLite, Database: filepath.Join(base, "churn.db")}
	require.NoError(t, os.MkdirAll(cfg.Paths.SQLQueries, 0o755))
	require.NoError(t, os.MkdirAll(cfg.Paths.ProcessedData, 0o755))

	if withSQL {
		_, err := schema.WriteDefaults(cfg.Paths.SQLQueries, false)
		require.NoError(t, err)
	}
	if withCSV {
		testutil.WriteFile(t, cfg.Paths.ProcessedData, cfg.Load.ProcessedCSV, testutil.ProcessedCSV())
	}

	session, err := database.Open(context.Background(), cfg.Database, database.Options{
		SelectDatabase: true,
		Logger:         observability.NewNopLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })

	var buf bytes.Buffer
	ui.SetOutput(&buf)
	t.Cleanup(func() { ui.SetOutput(nil) })

	return &fixture{cfg: cfg, session: session, output: &buf}
}

func TestFilesFor(t *testing.T) {
	cfg := config.Default("/srv/churn")
	cfg.Load.ViewsFile = "/opt/views.sql"

	files := FilesFor(cfg)
	assert.Equal(t, filepath.Join("/srv/churn", "sql_queries", "db_init.sql"), files.Schema)
	assert.Equal(t, filepath.Join("/srv/churn", "data", "processed", "customer_churn_processed.csv"), files.Data)
	assert.Equal(t, "/opt/views.sql", files.Views)
}

func TestRunLoadsEverything(t *testing.T) {
	f := newFixture(t, true, true)

	result, err := New(f.session, f.cfg).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 6, result.Schema.Statements)
	assert.Equal(t, 3, result.Load.Customers)
	assert.Equal(t, 10, result.Views.Statements)
	require.Len(t, result.Stats, 4)
	for _, s := range result.Stats {
		assert.Equal(t, int64(3), s.Rows, s.Table)
	}

	require.Len(t, result.Samples, 2)
	for _, s := range result.Samples {
		require.NoError(t, s.Err, s.Title)
	}
	assert.Len(t, result.Samples[0].Table.Rows, 3)
	assert.Equal(t, [][]string{{"High Risk", "1"}, {"Medium Risk", "1"}, {"Low Risk", "1"}}, result.Samples[1].Table.Rows)

	output := f.output.String()
	for _, step := range []string{"[1/4]", "[2/4]", "[3/4]", "[4/4]"} {
		assert.Contains(t, output, step)
	}
	assert.Contains(t, output, "All tables populated successfully")
	assert.Contains(t, output, "Risk Distribution:")
}

func TestRunTwiceKeepsCounts(t *testing.T) {
	f := newFixture(t, true, true)
	ctx := context.Background()

	_, err := New(f.session, f.cfg).Run(ctx)
	require.NoError(t, err)
	result, err := New(f.session, f.cfg).Run(ctx)
	require.NoError(t, err)

	for _, s := range result.Stats {
		assert.Equal(t, int64(3), s.Rows, s.Table)
	}
}

func TestRunMissingSchemaFile(t *testing.T) {
	f := newFixture(t, false, true)

	result, err := New(f.session, f.cfg).Run(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeFileNotFound))
	assert.Nil(t, result.Schema)
	assert.Nil(t, result.Load)
	assert.Contains(t, f.output.String(), "SQL file not found")

	_, err = f.session.Count(context.Background(), "SELECT COUNT(*) FROM "+schema.TableCustomers)
	assert.Error(t, err)
}

func TestRunMissingDataFile(t *testing.T) {
	f := newFixture(t, true, false)

	result, err := New(f.session, f.cfg).Run(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeFileNotFound))
	require.NotNil(t, result.Schema)
	assert.Nil(t, result.Load)
	assert.Nil(t, result.Views)
	assert.Contains(t, f.output.String(), "Processed data file not found")

	n, err := f.session.Count(context.Background(), "SELECT COUNT(*) FROM "+schema.TableCustomers)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRunBadData(t *testing.T) {
	f := newFixture(t, true, false)
	path := filepath.Join(f.cfg.Paths.ProcessedData, f.cfg.Load.ProcessedCSV)
	require.NoError(t, os.WriteFile(path, []byte("customerID,tenure\n1000-ABCD,5\n"), 0o644))

	_, err := New(f.session, f.cfg).Run(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMissingColumns))
	assert.Contains(t, f.output.String(), "Failed to load data")
}

func TestPopulated(t *testing.T) {
	assert.False(t, populated(nil))
	assert.True(t, populated([]validate.TableCount{{Table: "a", Rows: 1}}))
	assert.False(t, populated([]validate.TableCount{{Table: "a", Rows: 1}, {Table: "b", Rows: 0}}))
}
