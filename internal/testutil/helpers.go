// Package testutil holds fixtures shared by package tests: sample processed
// CSV rows, SQLite and sqlmock sessions, and small file helpers.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"churndb/internal/common"
	"churndb/internal/database"
	"churndb/internal/observability"
	"churndb/pkg/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

// Header is the required column row of the processed CSV
const Header = "customerID,gender_encoded,SeniorCitizen,partner_encoded,dependents_encoded,tenure," +
	"phone_service_encoded,internet_service_encoded,contract_encoded,paperless_billing_encoded," +
	"total_services,has_streaming,has_security,has_support,MonthlyCharges,TotalCharges,auto_payment," +
	"avg_monthly_spend,charge_per_tenure,is_long_term,has_partner_or_dependent,churn_encoded"

// SampleRows are three customers, one per contract type. 3000-IJKL has a
// total below half of monthly * tenure.
var SampleRows = []string{
	// customerID, gender, senior, partner, dependents, tenure, phone, internet, contract, paperless,
	// services, streaming, security, support, monthly, total, auto, avg, per_tenure, long_term, p_or_d, churn
	"1000-ABCD,1,0,1,0,5,1,2,0,1,4,1,0,0,70.70,353.50,0,70.70,14.14,0,1,1",
	"2000-EFGH,0,1,0,1,40,1,1,2,0,6,0,1,1,55.20,2208.00,1,55.20,1.38,1,1,0",
	"3000-IJKL,1,0,0,0,10,0,0,1,0,1,0,0,0,20.00,50.00,0,20.00,2.00,0,0,0",
}

// ProcessedCSV returns a processed CSV document; no rows means SampleRows
func ProcessedCSV(rows ...string) string {
	if len(rows) == 0 {
		rows = SampleRows
	}
	return Header + "\n" + strings.Join(rows, "\n") + "\n"
}

// WriteFile writes content to dir/name, creating parents, and returns the path
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), common.DirPermissionNormal))
	require.NoError(t, os.WriteFile(path, []byte(content), common.FilePermissionNormal))
	return path
}

// SQLiteConfig points at a fresh database file in a test directory
func SQLiteConfig(t *testing.T) models.Database {
	t.Helper()
	return models.Database{
		Driver:   models.DriverSQLite,
		Database: filepath.Join(t.TempDir(), "churn.db"),
	}
}

// OpenSQLite opens a session on a fresh SQLite file, closed at test end
func OpenSQLite(t *testing.T) *database.Session {
	t.Helper()
	session, err := database.Open(context.Background(), SQLiteConfig(t), database.Options{
		SelectDatabase: true,
		Logger:         observability.NewNopLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

// MockSession returns a session over sqlmock speaking dialect
func MockSession(t *testing.T, dialect database.Dialect) (*database.Session, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	session, err := database.NewSession(context.Background(), db, dialect, observability.NewNopLogger())
	require.NoError(t, err)
	return session, mock
}
