// Package pipeline runs the full database load: schema, data, views and a
// row count check, followed by sample queries over the derived views.
package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"churndb/internal/common"
	"churndb/internal/database"
	"churndb/internal/loader"
	"churndb/internal/observability"
	"churndb/internal/schema"
	"churndb/internal/sqlfile"
	"churndb/internal/ui"
	"churndb/internal/validate"
	apperrors "churndb/pkg/errors"
	"churndb/pkg/models"
)

const totalSteps = 4

// Sample is a query shown after a successful load
type Sample struct {
	Title string
	Query string
}

// SampleQueries are run in order once every step has succeeded
var SampleQueries = []Sample{
	{
		Title: "Churn Statistics",
		Query: "SELECT * FROM " + schema.ViewChurnStatistics,
	},
	{
		Title: "Risk Distribution",
		Query: `SELECT risk_category, COUNT(*) AS count
FROM ` + schema.ViewAtRiskCustomers + `
GROUP BY risk_category
ORDER BY
    CASE risk_category
        WHEN 'High Risk' THEN 1
        WHEN 'Medium Risk' THEN 2
        ELSE 3
    END`,
	},
}

// SampleResult is the outcome of one sample query
type SampleResult struct {
	Sample
	Table *database.Table
	Err   error
}

// Files are the resolved inputs of a run
type Files struct {
	Schema string
	Data   string
	Views  string
}

// FilesFor resolves the configured file names against their directories
func FilesFor(cfg *models.Config) Files {
	return Files{
		Schema: common.ResolveIn(cfg.Paths.SQLQueries, cfg.Load.SchemaFile),
		Data:   common.ResolveIn(cfg.Paths.ProcessedData, cfg.Load.ProcessedCSV),
		Views:  common.ResolveIn(cfg.Paths.SQLQueries, cfg.Load.ViewsFile),
	}
}

// Result collects the outcome of every step
type Result struct {
	Schema   *sqlfile.Result
	Load     *loader.Result
	Views    *sqlfile.Result
	Stats    []validate.TableCount
	Samples  []SampleResult
	Duration time.Duration
}

// Pipeline loads one database over a single session
type Pipeline struct {
	session   *database.Session
	files     Files
	batchSize int
	logger    *observability.Logger
}

// New creates a pipeline for cfg
func New(session *database.Session, cfg *models.Config) *Pipeline {
	return &Pipeline{
		session:   session,
		files:     FilesFor(cfg),
		batchSize: cfg.Load.BatchSize,
		logger:    session.Logger(),
	}
}

// Run executes the four steps in order and stops at the first failure
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{}
	var err error

	ui.PrintStep(1, totalSteps, "Initializing database schema...")
	if result.Schema, err = p.executeFile(ctx, p.files.Schema); err != nil {
		ui.ShowFailure("Failed to create database schema")
		return result, err
	}
	ui.ShowSuccess("Database schema created successfully")

	ui.PrintStep(2, totalSteps, "Loading processed data into database...")
	if !common.FileExists(p.files.Data) {
		ui.ShowFailure(fmt.Sprintf("Processed data file not found: %s", p.files.Data))
		return result, apperrors.FileError(p.files.Data, fs.ErrNotExist).
			WithSuggestions("Run the preprocessing notebook first")
	}
	if result.Load, err = loader.New(p.session, p.batchSize).LoadFile(ctx, p.files.Data); err != nil {
		ui.ShowFailure("Failed to load data")
		return result, err
	}
	ui.ShowSuccess(fmt.Sprintf("Data loaded successfully (%s customers)", ui.FormatCount(int64(result.Load.Customers))))
	if result.Load.Duplicates > 0 {
		ui.ShowWarning(fmt.Sprintf("%d duplicate customer rows collapsed", result.Load.Duplicates))
	}

	ui.PrintStep(3, totalSteps, "Creating feature extraction views...")
	if result.Views, err = p.executeFile(ctx, p.files.Views); err != nil {
		ui.ShowFailure("Failed to create views")
		return result, err
	}
	ui.ShowSuccess("Feature extraction views created")

	ui.PrintStep(4, totalSteps, "Verifying data integrity...")
	if result.Stats, err = validate.TableStats(ctx, p.session); err != nil {
		ui.ShowFailure("Could not retrieve table statistics")
		return result, err
	}
	ui.ShowTableStats(result.Stats)
	if populated(result.Stats) {
		ui.ShowSuccess("All tables populated successfully")
	} else {
		ui.ShowWarning("Some tables are empty")
	}

	result.Samples = p.runSamples(ctx)
	result.Duration = time.Since(start)

	p.logger.InfoWithFields("Load pipeline finished", map[string]interface{}{
		"customers": result.Load.Customers,
		"duration":  result.Duration.String(),
	})
	return result, nil
}

func (p *Pipeline) executeFile(ctx context.Context, path string) (*sqlfile.Result, error) {
	if !common.FileExists(path) {
		ui.ShowFailure(fmt.Sprintf("SQL file not found: %s", path))
		return nil, apperrors.FileError(path, fs.ErrNotExist).
			WithSuggestions("Run 'churndb scaffold' to write the default SQL files")
	}

	res, err := sqlfile.NewExecutor(p.session).ExecuteFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if n := len(res.Warnings); n > 0 {
		ui.ShowWarning(fmt.Sprintf("%d of %d statements in %s failed", n, res.Statements, path))
	}
	if res.Trailing != "" {
		ui.ShowWarning(fmt.Sprintf("Text after the last semicolon in %s was not executed", path))
	}
	return res, nil
}

// runSamples prints each sample query; failures are logged and skipped
func (p *Pipeline) runSamples(ctx context.Context) []SampleResult {
	results := make([]SampleResult, 0, len(SampleQueries))
	for _, sample := range SampleQueries {
		table, err := p.session.QueryTable(ctx, sample.Query)
		results = append(results, SampleResult{Sample: sample, Table: table, Err: err})
		if err != nil {
			p.logger.WarnWithFields("Sample query failed", map[string]interface{}{
				"sample": sample.Title,
				"error":  err,
			})
			continue
		}
		ui.ShowQueryTable(sample.Title, table)
	}
	return results
}

func populated(stats []validate.TableCount) bool {
	for _, s := range stats {
		if s.Rows == 0 {
			return false
		}
	}
	return len(stats) > 0
}
