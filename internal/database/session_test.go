package database

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"churndb/internal/observability"
	apperrors "churndb/pkg/errors"
	"churndb/pkg/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockSession(t *testing.T, dialect Dialect) (*Session, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, err := NewSession(context.Background(), db, dialect, observability.NewNopLogger())
	require.NoError(t, err)
	return s, mock
}

func TestQueryTable(t *testing.T) {
	s, mock := newMockSession(t, MySQL{})

	rows := sqlmock.NewRows([]string{"contract_type", "total_customers", "churn_rate"}).
		AddRow("Month-to-month", 3875, 42.71).
		AddRow("Two year", 1695, nil)
	mock.ExpectQuery("SELECT \\* FROM churn_statistics").WillReturnRows(rows)

	table, err := s.QueryTable(context.Background(), "SELECT * FROM churn_statistics")
	require.NoError(t, err)
	assert.Equal(t, []string{"contract_type", "total_customers", "churn_rate"}, table.Columns)
	assert.Equal(t, [][]string{
		{"Month-to-month", "3875", "42.71"},
		{"Two year", "1695", "NULL"},
	}, table.Rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryTableError(t *testing.T) {
	s, mock := newMockSession(t, MySQL{})
	mock.ExpectQuery("SELECT").WillReturnError(fmt.Errorf("Table 'churn_statistics' doesn't exist"))

	_, err := s.QueryTable(context.Background(), "SELECT * FROM churn_statistics")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeSQLExecution, apperrors.GetErrorCode(err))
}

func TestCount(t *testing.T) {
	s, mock := newMockSession(t, MySQL{})
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM customers").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7043))

	n, err := s.Count(context.Background(), "SELECT COUNT(*) FROM customers")
	require.NoError(t, err)
	assert.Equal(t, int64(7043), n)
}

func TestSessionClose(t *testing.T) {
	s, mock := newMockSession(t, MySQL{})
	mock.ExpectClose()

	require.NoError(t, s.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "churn.db")
	cfg := models.Database{Driver: models.DriverSQLite, Database: path}

	s, err := Open(context.Background(), cfg, Options{SelectDatabase: true, Logger: observability.NewNopLogger()})
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "sqlite", s.Dialect().Name())
	require.NoError(t, s.Ping(context.Background()))

	n, err := s.Count(context.Background(), "PRAGMA foreign_keys")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// no-op for sqlite
	require.NoError(t, EnsureDatabase(context.Background(), cfg, observability.NewNopLogger()))
}

func TestOpenConnectionFailure(t *testing.T) {
	cfg := models.Database{Driver: models.DriverMySQL, Host: "127.0.0.1", Port: 1, User: "root", Database: "customer_churn_db"}

	_, err := Open(context.Background(), cfg, Options{SelectDatabase: true, Logger: observability.NewNopLogger()})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.SeverityCritical, appErr.Severity)
	assert.Equal(t, "127.0.0.1", appErr.Context["host"])
}
