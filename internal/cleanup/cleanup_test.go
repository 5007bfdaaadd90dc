package cleanup

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"churndb/internal/database"
	"churndb/internal/loader"
	"churndb/internal/schema"
	"churndb/internal/sqlfile"
	"churndb/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockCleaner(t *testing.T, dialect database.Dialect) (*Cleaner, sqlmock.Sqlmock) {
	t.Helper()
	session, mock := testutil.MockSession(t, dialect)
	return New(session), mock
}

func TestRunMySQLSequence(t *testing.T) {
	cleaner, mock := mockCleaner(t, database.MySQL{})

	mock.ExpectExec(regexp.QuoteMeta("SET FOREIGN_KEY_CHECKS = 0")).WillReturnResult(sqlmock.NewResult(0, 0))
	for _, obj := range schema.DropOrder() {
		kind := "TABLE"
		if obj.Type == schema.ObjectTypeView {
			kind = "VIEW"
		}
		mock.ExpectExec(regexp.QuoteMeta(fmt.Sprintf("DROP %s IF EXISTS %s", kind, obj.Name))).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectExec(regexp.QuoteMeta("SET FOREIGN_KEY_CHECKS = 1")).WillReturnResult(sqlmock.NewResult(0, 0))

	result := cleaner.Run(context.Background())
	assert.Len(t, result.Objects, 9)
	assert.Zero(t, result.Failed())
	assert.NoError(t, result.FKError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunContinuesAfterFailure(t *testing.T) {
	cleaner, mock := mockCleaner(t, database.MySQL{})

	mock.ExpectExec("SET FOREIGN_KEY_CHECKS = 0").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DROP VIEW IF EXISTS at_risk_customers").WillReturnError(fmt.Errorf("DROP command denied to user"))
	for _, obj := range schema.DropOrder()[1:] {
		mock.ExpectExec("DROP .* IF EXISTS " + obj.Name).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectExec("SET FOREIGN_KEY_CHECKS = 1").WillReturnResult(sqlmock.NewResult(0, 0))

	result := cleaner.Run(context.Background())
	assert.Equal(t, 1, result.Failed())
	assert.Error(t, result.Objects[0].Err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunReenableFailure(t *testing.T) {
	cleaner, mock := mockCleaner(t, database.MySQL{})

	mock.ExpectExec("SET FOREIGN_KEY_CHECKS = 0").WillReturnResult(sqlmock.NewResult(0, 0))
	for _, obj := range schema.DropOrder() {
		mock.ExpectExec("DROP .* IF EXISTS " + obj.Name).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectExec("SET FOREIGN_KEY_CHECKS = 1").WillReturnError(fmt.Errorf("connection lost"))

	result := cleaner.Run(context.Background())
	assert.EqualError(t, result.FKError, "connection lost")
}

func TestRunPostgresCascades(t *testing.T) {
	cleaner, mock := mockCleaner(t, database.Postgres{})

	for _, obj := range schema.DropOrder() {
		mock.ExpectExec("DROP .* IF EXISTS " + obj.Name + " CASCADE").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	result := cleaner.Run(context.Background())
	assert.Zero(t, result.Failed())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func loadAll(t *testing.T, session *database.Session) {
	t.Helper()
	ctx := context.Background()

	text, err := schema.SQL(schema.SchemaFile)
	require.NoError(t, err)
	_, err = sqlfile.NewExecutor(session).ExecuteScript(ctx, schema.SchemaFile, text)
	require.NoError(t, err)

	records, err := loader.Read(strings.NewReader(testutil.ProcessedCSV(testutil.SampleRows[0])))
	require.NoError(t, err)
	_, err = loader.New(session, 0).Load(ctx, records)
	require.NoError(t, err)

	text, err = schema.SQL(schema.ViewsFile)
	require.NoError(t, err)
	_, err = sqlfile.NewExecutor(session).ExecuteScript(ctx, schema.ViewsFile, text)
	require.NoError(t, err)
}

func TestCleanupThenReloadSQLite(t *testing.T) {
	session := testutil.OpenSQLite(t)
	ctx := context.Background()

	loadAll(t, session)

	result := New(session).Run(ctx)
	require.Zero(t, result.Failed())
	require.NoError(t, result.FKError)

	for _, obj := range schema.DropOrder() {
		_, err := session.Count(ctx, "SELECT COUNT(*) FROM "+obj.Name)
		require.Error(t, err, obj.Name)
		assert.True(t, session.Dialect().IsBenign(err), "%s: %v", obj.Name, err)
	}

	fk, err := session.Count(ctx, "PRAGMA foreign_keys")
	require.NoError(t, err)
	assert.Equal(t, int64(1), fk)

	// a second cleanup on an empty database is harmless
	assert.Zero(t, New(session).Run(ctx).Failed())

	loadAll(t, session)
	n, err := session.Count(ctx, "SELECT COUNT(*) FROM "+schema.ViewAtRiskCustomers)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
