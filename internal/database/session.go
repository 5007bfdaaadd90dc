package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"churndb/internal/observability"
	apperrors "churndb/pkg/errors"
	"churndb/pkg/models"
)

// ConnectTimeout bounds the initial ping
const ConnectTimeout = 30 * time.Second

// Options control how a session is opened
type Options struct {
	// SelectDatabase makes the configured database the connection default.
	// It is false only while creating that database.
	SelectDatabase bool
	Logger         *observability.Logger
}

// Session is one pinned connection shared by every step of a command
type Session struct {
	db      *sql.DB
	conn    *sql.Conn
	dialect Dialect
	logger  *observability.Logger
}

// Open connects to the configured database and pins a single connection
func Open(ctx context.Context, cfg models.Database, opts Options) (*Session, error) {
	dialect, err := ForDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = observability.GetDefaultLogger()
	}

	db, err := dialect.Open(cfg, opts.SelectDatabase)
	if err != nil {
		return nil, connectionError(dialect, cfg, err)
	}

	connCtx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()

	s, err := newSession(connCtx, db, dialect, logger)
	if err != nil {
		_ = db.Close()
		return nil, connectionError(dialect, cfg, err)
	}

	logger.DebugWithFields("Database connection established", map[string]interface{}{
		"target":          Describe(cfg),
		"select_database": opts.SelectDatabase,
	})
	return s, nil
}

// NewSession wraps an existing pool, typically a sqlmock one in tests
func NewSession(ctx context.Context, db *sql.DB, dialect Dialect, logger *observability.Logger) (*Session, error) {
	if logger == nil {
		logger = observability.GetDefaultLogger()
	}
	s, err := newSession(ctx, db, dialect, logger)
	if err != nil {
		return nil, apperrors.ConnectionError("Failed to acquire database connection", err)
	}
	return s, nil
}

func newSession(ctx context.Context, db *sql.DB, dialect Dialect, logger *observability.Logger) (*Session, error) {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &Session{db: db, conn: conn, dialect: dialect, logger: logger}, nil
}

func connectionError(dialect Dialect, cfg models.Database, err error) error {
	appErr := apperrors.ConnectionError(fmt.Sprintf("Failed to connect to %s", Describe(cfg)), err).
		WithContext("driver", dialect.Name()).
		WithContext("host", cfg.Host).
		WithContext("database", cfg.Database)
	appErr.Code = dialect.ConnectErrorCode(err)
	return appErr
}

// Conn returns the pinned connection
func (s *Session) Conn() *sql.Conn { return s.conn }

// Dialect returns the SQL dialect of the session
func (s *Session) Dialect() Dialect { return s.dialect }

// Logger returns the session logger
func (s *Session) Logger() *observability.Logger { return s.logger }

// Ping checks that the pinned connection is alive
func (s *Session) Ping(ctx context.Context) error {
	if err := s.conn.PingContext(ctx); err != nil {
		return apperrors.ConnectionError("Database ping failed", err)
	}
	return nil
}

// Close releases the connection and the pool
func (s *Session) Close() error {
	connErr := s.conn.Close()
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	if connErr != nil && connErr != sql.ErrConnDone {
		return fmt.Errorf("failed to close connection: %w", connErr)
	}
	return nil
}

// Table is a fully materialized query result rendered as text
type Table struct {
	Columns []string
	Rows    [][]string
}

// QueryTable runs query and collects every row; NULL renders as "NULL"
func (s *Session) QueryTable(ctx context.Context, query string, args ...interface{}) (*Table, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.SQLError("Query failed", query, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeResultParsing, "Failed to read result columns")
	}

	table := &Table{Columns: columns}
	for rows.Next() {
		values := make([]sql.NullString, len(columns))
		dest := make([]interface{}, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeResultParsing, "Failed to scan result row")
		}

		row := make([]string, len(columns))
		for i, v := range values {
			if v.Valid {
				row[i] = v.String
			} else {
				row[i] = "NULL"
			}
		}
		table.Rows = append(table.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.SQLError("Query failed", query, err)
	}

	return table, nil
}

// Count runs a single-value COUNT style query
func (s *Session) Count(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var n int64
	if err := s.conn.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, apperrors.SQLError("Count query failed", query, err)
	}
	return n, nil
}

// EnsureDatabase creates the configured database when the dialect has
// server-side databases; an existing database is not an error
func EnsureDatabase(ctx context.Context, cfg models.Database, logger *observability.Logger) error {
	dialect, err := ForDriver(cfg.Driver)
	if err != nil {
		return err
	}
	stmt := dialect.CreateDatabaseSQL(cfg.Database)
	if stmt == "" {
		return nil
	}

	s, err := Open(ctx, cfg, Options{SelectDatabase: false, Logger: logger})
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
		if dialect.IsBenign(err) {
			s.logger.DebugWithFields("Database already exists", map[string]interface{}{"database": cfg.Database})
			return nil
		}
		return apperrors.SQLError(fmt.Sprintf("Failed to create database %s", cfg.Database), stmt, err)
	}

	s.logger.InfoWithFields("Database ready", map[string]interface{}{"database": cfg.Database})
	return nil
}
