package sqlfile

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"unicode/utf8"

	"churndb/internal/database"
	"churndb/internal/observability"
	apperrors "churndb/pkg/errors"
)

const savepointName = "churndb_stmt"

// StatementWarning records a statement that failed without aborting the file
type StatementWarning struct {
	Index     int
	Statement string
	Err       error
}

// Result summarizes one executed file
type Result struct {
	File       string
	Statements int
	Executed   int
	Skipped    int
	Warnings   []StatementWarning
	Trailing   string
}

// Executor runs SQL files inside a single transaction on a session
type Executor struct {
	session      *database.Session
	logger       *observability.Logger
	errorHandler *apperrors.ErrorHandler
}

// NewExecutor creates an executor bound to session
func NewExecutor(session *database.Session) *Executor {
	logger := session.Logger()
	return &Executor{
		session:      session,
		logger:       logger,
		errorHandler: apperrors.NewErrorHandler(logger),
	}
}

// ExecuteFile reads path and executes its statements
func (e *Executor) ExecuteFile(ctx context.Context, path string) (*Result, error) {
	content, err := os.ReadFile(path) // #nosec G304 - path comes from config
	if err != nil {
		return nil, apperrors.FileError(path, err)
	}
	return e.ExecuteScript(ctx, path, string(content))
}

// ExecuteScript executes text statement by statement. "Already exists" and
// "does not exist" failures are skipped, other statement failures are
// logged and execution continues. Everything commits once at the end.
func (e *Executor) ExecuteScript(ctx context.Context, name, text string) (*Result, error) {
	script := Parse(text, e.session.Dialect().BackslashEscapes())
	result := &Result{
		File:       name,
		Statements: len(script.Statements),
		Trailing:   script.Trailing,
	}
	log := e.logger.WithField("file", name)

	if script.Trailing != "" {
		log.WarnWithFields("Ignoring text after the last semicolon", map[string]interface{}{
			"text": truncate(script.Trailing, 80),
		})
	}

	tx, err := e.session.Conn().BeginTx(ctx, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeSQLTransaction, "Failed to begin transaction").
			WithContext("file", name)
	}

	txHandler := e.errorHandler.NewTransactionHandler(tx.Rollback)
	err = txHandler.Execute(func() error {
		for i, stmt := range script.Statements {
			if err := ctx.Err(); err != nil {
				return apperrors.Wrap(err, apperrors.ErrCodeSQLTimeout, "SQL file execution interrupted").
					WithContext("file", name).
					WithContext("statement_index", i+1)
			}

			execErr := e.execStatement(ctx, tx, stmt)
			if apperrors.HasCode(execErr, apperrors.ErrCodeSQLTransaction) {
				return execErr
			}

			switch {
			case execErr == nil:
				result.Executed++
			case e.session.Dialect().IsBenign(execErr):
				result.Skipped++
				log.DebugWithFields("Skipped statement", map[string]interface{}{
					"statement_index": i + 1,
					"reason":          execErr.Error(),
				})
			default:
				if ctx.Err() != nil {
					return apperrors.SQLError("SQL file execution interrupted", stmt, execErr).
						WithContext("file", name)
				}
				result.Warnings = append(result.Warnings, StatementWarning{Index: i + 1, Statement: stmt, Err: execErr})
				log.WarnWithFields("Statement failed", map[string]interface{}{
					"statement_index": i + 1,
					"statement":       truncate(stmt, 120),
					"error":           execErr.Error(),
				})
			}
		}

		if err := tx.Commit(); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeSQLTransaction, "Failed to commit transaction").
				WithContext("file", name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.InfoWithFields("Executed SQL file", map[string]interface{}{
		"statements": result.Statements,
		"executed":   result.Executed,
		"skipped":    result.Skipped,
		"warnings":   len(result.Warnings),
	})
	return result, nil
}

// execStatement runs stmt, inside a savepoint when the dialect needs one.
// Savepoint failures come back with ErrCodeSQLTransaction.
func (e *Executor) execStatement(ctx context.Context, tx *sql.Tx, stmt string) error {
	if !e.session.Dialect().StatementSavepoints() {
		_, err := tx.ExecContext(ctx, stmt)
		return err
	}

	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+savepointName); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeSQLTransaction, "Failed to create savepoint")
	}

	if _, execErr := tx.ExecContext(ctx, stmt); execErr != nil {
		if _, err := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+savepointName); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeSQLTransaction, "Failed to roll back to savepoint")
		}
		return execErr
	}

	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+savepointName); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeSQLTransaction, "Failed to release savepoint")
	}
	return nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return fmt.Sprintf("%s...", s[:n])
}
