package loader

import (
	"context"
	"fmt"
	"strings"

	"churndb/internal/database"
	"churndb/internal/observability"
	apperrors "churndb/pkg/errors"
)

// DefaultBatchSize is the number of rows per INSERT statement
const DefaultBatchSize = 500

// maxParams keeps statements under the lowest bind-parameter limit of
// the supported drivers
const maxParams = 32766

// Result summarizes a load
type Result struct {
	Records    int
	Customers  int
	Duplicates int
	Statements int
	Tables     map[string]int
}

// Loader upserts records into the four customer tables
type Loader struct {
	session      *database.Session
	batchSize    int
	logger       *observability.Logger
	errorHandler *apperrors.ErrorHandler
}

// New creates a loader; batchSize <= 0 selects DefaultBatchSize
func New(session *database.Session, batchSize int) *Loader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	logger := session.Logger()
	return &Loader{
		session:      session,
		batchSize:    batchSize,
		logger:       logger,
		errorHandler: apperrors.NewErrorHandler(logger),
	}
}

// LoadFile reads the CSV at path and loads it
func (l *Loader) LoadFile(ctx context.Context, path string) (*Result, error) {
	records, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return l.Load(ctx, records)
}

// Load upserts records in one transaction, customers first. Repeated
// customer IDs collapse to their last occurrence.
func (l *Loader) Load(ctx context.Context, records []Record) (*Result, error) {
	unique := dedupe(records)
	result := &Result{
		Records:    len(records),
		Customers:  len(unique),
		Duplicates: len(records) - len(unique),
		Tables:     make(map[string]int, len(tableSpecs)),
	}

	if result.Duplicates > 0 {
		l.logger.WarnWithFields("Duplicate customer IDs in input, keeping the last row of each", map[string]interface{}{
			"duplicates": result.Duplicates,
		})
	}
	if len(unique) == 0 {
		l.logger.Warn("No records to load")
		return result, nil
	}

	tx, err := l.session.Conn().BeginTx(ctx, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeSQLTransaction, "Failed to begin transaction")
	}

	txHandler := l.errorHandler.NewTransactionHandler(tx.Rollback)
	err = txHandler.Execute(func() error {
		for _, spec := range tableSpecs {
			size := l.batchSize
			if limit := maxParams / len(spec.columns); size > limit {
				size = limit
			}

			for start := 0; start < len(unique); start += size {
				end := start + size
				if end > len(unique) {
					end = len(unique)
				}
				batch := unique[start:end]

				query, args := l.buildUpsert(spec, batch)
				if _, err := tx.ExecContext(ctx, query, args...); err != nil {
					return apperrors.SQLError(fmt.Sprintf("Failed to load %s", spec.name), query, err).
						WithContext("table", spec.name).
						WithContext("first_customer", batch[0].CustomerID).
						WithContext("rows", len(batch))
				}
				result.Statements++
				result.Tables[spec.name] += len(batch)
			}

			l.logger.DebugWithFields("Upserted table", map[string]interface{}{
				"table": spec.name,
				"rows":  result.Tables[spec.name],
			})
		}

		if err := tx.Commit(); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeSQLTransaction, "Failed to commit load")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.InfoWithFields("Loaded records", map[string]interface{}{
		"records":    result.Records,
		"customers":  result.Customers,
		"statements": result.Statements,
	})
	return result, nil
}

// buildUpsert renders one multi-row upsert for batch
func (l *Loader) buildUpsert(spec tableSpec, batch []*Record) (string, []interface{}) {
	dialect := l.session.Dialect()
	width := len(spec.columns)
	args := make([]interface{}, 0, width*len(batch))

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", spec.name, strings.Join(spec.columns, ", "))

	n := 1
	for i, rec := range batch {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := 0; j < width; j++ {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(dialect.Placeholder(n))
			n++
		}
		b.WriteString(")")
		args = append(args, spec.values(rec)...)
	}

	b.WriteString(" ")
	b.WriteString(dialect.UpsertClause(keyColumn, spec.columns[1:]))
	return b.String(), args
}

// dedupe keeps first-seen order and the values of the last occurrence
func dedupe(records []Record) []*Record {
	index := make(map[string]int, len(records))
	unique := make([]*Record, 0, len(records))
	for i := range records {
		rec := &records[i]
		if pos, ok := index[rec.CustomerID]; ok {
			unique[pos] = rec
			continue
		}
		index[rec.CustomerID] = len(unique)
		unique = append(unique, rec)
	}
	return unique
}
