package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "churndb/pkg/errors"
	"churndb/pkg/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
)

// maintenanceDB is used when no database is selected
const maintenanceDB = "postgres"

// PostgreSQL SQLSTATE codes
const (
	pgDuplicateDatabase = "42P04"
	pgDuplicateSchema   = "42P06"
	pgDuplicateTable    = "42P07"
	pgDuplicateObject   = "42710"
	pgUndefinedTable    = "42P01"
	pgUndefinedObject   = "42704"
	pgInvalidPassword   = "28P01"
	pgInvalidAuth       = "28000"
	pgInvalidCatalog    = "3D000"
)

// Postgres is the PostgreSQL dialect served through pgx
type Postgres struct{}

func (Postgres) Name() string { return models.DriverPostgres }

func pgConfig(cfg models.Database, selectDatabase bool) (*pgx.ConnConfig, error) {
	cc, err := pgx.ParseConfig("")
	if err != nil {
		return nil, err
	}
	cc.Host = cfg.Host
	port := cfg.Port
	if port == 0 {
		port = models.DefaultPort(models.DriverPostgres)
	}
	cc.Port = uint16(port)
	cc.User = cfg.User
	cc.Password = cfg.Password
	cc.Database = maintenanceDB
	if selectDatabase {
		cc.Database = cfg.Database
	}
	cc.ConnectTimeout = 30 * time.Second
	cc.Fallbacks = nil
	return cc, nil
}

func (Postgres) Open(cfg models.Database, selectDatabase bool) (*sql.DB, error) {
	cc, err := pgConfig(cfg, selectDatabase)
	if err != nil {
		return nil, err
	}
	return stdlib.OpenDB(*cc), nil
}

func (Postgres) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (Postgres) QuoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func (Postgres) UpsertClause(key string, update []string) string {
	return conflictUpdate(key, update)
}

func (d Postgres) CreateDatabaseSQL(name string) string {
	return fmt.Sprintf("CREATE DATABASE %s", d.QuoteIdent(name))
}

func (Postgres) ForeignKeyToggles() (string, string) { return "", "" }

func (Postgres) DropViewSQL(name string) string {
	return fmt.Sprintf("DROP VIEW IF EXISTS %s CASCADE", name)
}

func (Postgres) DropTableSQL(name string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", name)
}

func (Postgres) StatementSavepoints() bool { return true }

// BackslashEscapes is false under standard_conforming_strings, the server default
func (Postgres) BackslashEscapes() bool { return false }

func (Postgres) IsBenign(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgDuplicateDatabase, pgDuplicateSchema, pgDuplicateTable, pgDuplicateObject,
			pgUndefinedTable, pgUndefinedObject:
			return true
		}
		return false
	}
	return messageIsBenign(err)
}

func (Postgres) ConnectErrorCode(err error) apperrors.ErrorCode {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgInvalidPassword, pgInvalidAuth:
			return apperrors.ErrCodeAuthenticationFailed
		case pgInvalidCatalog:
			return apperrors.ErrCodeDatabaseMissing
		}
	}
	if pgconn.Timeout(err) || strings.Contains(strings.ToLower(fmt.Sprint(err)), "timeout") {
		return apperrors.ErrCodeConnectionTimeout
	}
	return apperrors.ErrCodeConnectionFailed
}
