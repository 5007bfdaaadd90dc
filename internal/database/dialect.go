package database

import (
	"database/sql"
	"fmt"
	"strings"

	apperrors "churndb/pkg/errors"
	"churndb/pkg/models"
)

// Dialect captures the SQL differences between supported databases
type Dialect interface {
	// Name is the config driver name ("mysql", "postgres", "sqlite")
	Name() string

	// Open returns a pool for cfg; selectDatabase controls whether the
	// configured database is the connection default
	Open(cfg models.Database, selectDatabase bool) (*sql.DB, error)

	// Placeholder returns the bind marker for the n-th (1-based) argument
	Placeholder(n int) string

	QuoteIdent(name string) string

	// UpsertClause returns the conflict clause appended to a multi-row
	// INSERT so that rows matching key refresh every column in update
	UpsertClause(key string, update []string) string

	// CreateDatabaseSQL returns "" when the dialect has no server-side databases
	CreateDatabaseSQL(name string) string

	// ForeignKeyToggles returns the statements that disable and re-enable
	// foreign key enforcement; both empty when drops cascade instead
	ForeignKeyToggles() (disable, enable string)

	DropViewSQL(name string) string
	DropTableSQL(name string) string

	// StatementSavepoints reports whether a failed statement aborts the
	// surrounding transaction unless wrapped in a savepoint
	StatementSavepoints() bool

	// BackslashEscapes reports whether a backslash escapes the next
	// character inside a single-quoted string literal
	BackslashEscapes() bool

	// IsBenign reports "already exists" and "does not exist" failures
	IsBenign(err error) bool

	// ConnectErrorCode maps a connection failure to an error code
	ConnectErrorCode(err error) apperrors.ErrorCode
}

// ForDriver returns the dialect for a config driver name
func ForDriver(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", models.DriverMySQL:
		return MySQL{}, nil
	case models.DriverPostgres, "postgresql", "pgx":
		return Postgres{}, nil
	case models.DriverSQLite, "sqlite3":
		return SQLite{}, nil
	default:
		return nil, apperrors.ConfigError(fmt.Sprintf("Unsupported database driver %q", driver), "database.driver")
	}
}

var benignMessages = []string{
	"already exists",
	"doesn't exist",
	"does not exist",
	"no such table",
	"no such view",
	"no such index",
}

// messageIsBenign matches the textual forms every driver uses
func messageIsBenign(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range benignMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

func conflictUpdate(key string, update []string) string {
	sets := make([]string, len(update))
	for i, col := range update {
		sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", col, col)
	}
	return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", key, strings.Join(sets, ", "))
}

// Describe renders a connection target for logs without the password
func Describe(cfg models.Database) string {
	if cfg.Driver == models.DriverSQLite {
		return fmt.Sprintf("sqlite:%s", cfg.Database)
	}
	return fmt.Sprintf("%s://%s@%s:%d/%s", cfg.Driver, cfg.User, cfg.Host, cfg.Port, cfg.Database)
}
