package database

import (
	"database/sql"
	"fmt"
	"strings"

	apperrors "churndb/pkg/errors"
	"churndb/pkg/models"

	_ "modernc.org/sqlite"
)

// SQLite is the embedded file database dialect; database.database is the file path
type SQLite struct{}

func (SQLite) Name() string { return models.DriverSQLite }

func sqliteDSN(path string) string {
	return fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
}

func (SQLite) Open(cfg models.Database, _ bool) (*sql.DB, error) {
	if strings.TrimSpace(cfg.Database) == "" {
		return nil, apperrors.ConfigError("SQLite database path is empty", "database.database")
	}
	return sql.Open("sqlite", sqliteDSN(cfg.Database))
}

func (SQLite) Placeholder(int) string { return "?" }

func (SQLite) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (SQLite) UpsertClause(key string, update []string) string {
	return conflictUpdate(key, update)
}

func (SQLite) CreateDatabaseSQL(string) string { return "" }

func (SQLite) ForeignKeyToggles() (string, string) {
	return "PRAGMA foreign_keys = OFF", "PRAGMA foreign_keys = ON"
}

func (SQLite) DropViewSQL(name string) string {
	return fmt.Sprintf("DROP VIEW IF EXISTS %s", name)
}

func (SQLite) DropTableSQL(name string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", name)
}

func (SQLite) StatementSavepoints() bool { return false }

func (SQLite) BackslashEscapes() bool { return false }

func (SQLite) IsBenign(err error) bool { return messageIsBenign(err) }

func (SQLite) ConnectErrorCode(err error) apperrors.ErrorCode {
	if strings.Contains(strings.ToLower(fmt.Sprint(err)), "unable to open") {
		return apperrors.ErrCodeDatabaseMissing
	}
	return apperrors.ErrCodeConnectionFailed
}
