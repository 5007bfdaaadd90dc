// Package validate runs read-only data quality checks over the loaded
// tables and derived views.
package validate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"churndb/internal/database"
	"churndb/internal/observability"
	"churndb/internal/schema"
	apperrors "churndb/pkg/errors"
)

// DefaultChargeRatio flags totals below half of monthly * tenure
const DefaultChargeRatio = 0.5

// TableCount is the row count of one table
type TableCount struct {
	Table string
	Rows  int64
}

// TableStats counts the rows of every table in creation order
func TableStats(ctx context.Context, session *database.Session) ([]TableCount, error) {
	stats := make([]TableCount, 0, len(schema.Tables))
	for _, table := range schema.Tables {
		n, err := session.Count(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table))
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeSQLExecution, "Could not retrieve table statistics").
				WithContext("table", table)
		}
		stats = append(stats, TableCount{Table: table, Rows: n})
	}
	return stats, nil
}

// Consistent reports whether every table holds as many rows as the first
func Consistent(stats []TableCount) bool {
	for _, s := range stats {
		if s.Rows != stats[0].Rows {
			return false
		}
	}
	return true
}

// Validator runs the checks over one session
type Validator struct {
	session     *database.Session
	chargeRatio float64
	logger      *observability.Logger
}

// New creates a validator; chargeRatio <= 0 disables the charge
// consistency check
func New(session *database.Session, chargeRatio float64) *Validator {
	return &Validator{
		session:     session,
		chargeRatio: chargeRatio,
		logger:      session.Logger(),
	}
}

// Run executes every check. Only a failure to count tables is returned as
// an error; other failing queries become FAIL checks.
func (v *Validator) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	stats, err := TableStats(ctx, v.session)
	if err != nil {
		return nil, err
	}
	report.add(countsCheck(stats))
	customers := stats[0].Rows

	report.add(v.NullFields(ctx))
	report.add(v.Duplicates(ctx))
	report.add(v.Orphans(ctx))
	report.add(v.Ranges(ctx))
	report.add(v.ChargeConsistency(ctx))
	report.add(v.ServiceCounts(ctx))
	report.add(v.FeatureMatrix(ctx, customers))
	report.add(v.Distributions(ctx))
	for _, c := range v.Views(ctx) {
		report.add(c)
	}

	v.logger.InfoWithFields("Validation finished", map[string]interface{}{
		"checks": len(report.Checks),
		"failed": report.Count(StatusFail),
		"warned": report.Count(StatusWarn),
	})
	return report, nil
}

func countsCheck(stats []TableCount) Check {
	c := Check{Section: SectionCounts, Name: "Table row counts", Status: StatusPass,
		Message: "All tables have consistent record counts"}
	for _, s := range stats {
		c.Details = append(c.Details, fmt.Sprintf("%-30s : %6d rows", s.Table, s.Rows))
	}
	if !Consistent(stats) {
		c.Status = StatusWarn
		c.Message = "Inconsistent record counts detected"
	}
	return c
}

func failed(section Section, name string, err error) Check {
	return Check{Section: section, Name: name, Status: StatusFail, Message: fmt.Sprintf("Query failed: %v", rootCause(err))}
}

func rootCause(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Cause != nil {
		return appErr.Cause
	}
	return err
}

// NullFields counts NULLs in the critical profile columns
func (v *Validator) NullFields(ctx context.Context) Check {
	const name = "NULL values in critical fields"
	query := fmt.Sprintf(`SELECT
    SUM(CASE WHEN tenure_months IS NULL THEN 1 ELSE 0 END),
    SUM(CASE WHEN monthly_charges IS NULL THEN 1 ELSE 0 END),
    SUM(CASE WHEN total_charges IS NULL THEN 1 ELSE 0 END),
    SUM(CASE WHEN churn IS NULL THEN 1 ELSE 0 END)
FROM %s`, schema.ViewCompleteProfile)

	var counts [4]sql.NullInt64
	if err := v.session.Conn().QueryRowContext(ctx, query).Scan(&counts[0], &counts[1], &counts[2], &counts[3]); err != nil {
		return failed(SectionQuality, name, err)
	}

	c := Check{Section: SectionQuality, Name: name, Status: StatusPass, Message: "No NULL values in critical fields"}
	for i, field := range []string{"tenure_months", "monthly_charges", "total_charges", "churn"} {
		if counts[i].Int64 > 0 {
			c.Status = StatusWarn
			c.Message = "Found NULL values"
			c.Details = append(c.Details, fmt.Sprintf("%s: %d nulls", field, counts[i].Int64))
		}
	}
	return c
}

// Duplicates counts repeated customer IDs in every table
func (v *Validator) Duplicates(ctx context.Context) Check {
	const name = "Duplicate customer IDs"
	c := Check{Section: SectionQuality, Name: name, Status: StatusPass, Message: "No duplicate customer IDs"}

	var total int64
	for _, table := range schema.Tables {
		n, err := v.session.Count(ctx, fmt.Sprintf("SELECT COUNT(*) - COUNT(DISTINCT customer_id) FROM %s", table))
		if err != nil {
			return failed(SectionQuality, name, err)
		}
		if n > 0 {
			c.Details = append(c.Details, fmt.Sprintf("%s: %d duplicates", table, n))
		}
		total += n
	}

	if total > 0 {
		c.Status = StatusFail
		c.Message = fmt.Sprintf("Found %d duplicate customer IDs", total)
	}
	return c
}

// Orphans counts customers missing a row in each child table
func (v *Validator) Orphans(ctx context.Context) Check {
	const name = "Customers missing child rows"
	c := Check{Section: SectionQuality, Name: name, Status: StatusPass, Message: "Every customer has a row in each child table"}

	for _, table := range schema.ChildTables {
		query := fmt.Sprintf(`SELECT COUNT(*) FROM %s c
LEFT JOIN %s x ON c.customer_id = x.customer_id
WHERE x.customer_id IS NULL`, schema.TableCustomers, table)
		n, err := v.session.Count(ctx, query)
		if err != nil {
			return failed(SectionQuality, name, err)
		}
		if n > 0 {
			c.Status = StatusWarn
			c.Message = "Some customers are missing child rows"
			c.Details = append(c.Details, fmt.Sprintf("%s: %d missing", table, n))
		}
	}
	return c
}

// Ranges reports min and max of tenure and charges
func (v *Validator) Ranges(ctx context.Context) Check {
	const name = "Data ranges"
	query := fmt.Sprintf(`SELECT
    MIN(tenure_months), MAX(tenure_months),
    MIN(monthly_charges), MAX(monthly_charges),
    MIN(total_charges), MAX(total_charges)
FROM %s`, schema.ViewCompleteProfile)

	var r [6]sql.NullFloat64
	if err := v.session.Conn().QueryRowContext(ctx, query).Scan(&r[0], &r[1], &r[2], &r[3], &r[4], &r[5]); err != nil {
		return failed(SectionQuality, name, err)
	}
	if !r[0].Valid {
		return Check{Section: SectionQuality, Name: name, Status: StatusWarn, Message: "No rows to check"}
	}

	return Check{
		Section: SectionQuality,
		Name:    name,
		Status:  StatusPass,
		Message: "Data ranges validated",
		Details: []string{
			fmt.Sprintf("Tenure: %.0f - %.0f months", r[0].Float64, r[1].Float64),
			fmt.Sprintf("Monthly charges: $%.2f - $%.2f", r[2].Float64, r[3].Float64),
			fmt.Sprintf("Total charges: $%.2f - $%.2f", r[4].Float64, r[5].Float64),
		},
	}
}

// ChargeConsistency flags totals well below monthly charges times tenure
func (v *Validator) ChargeConsistency(ctx context.Context) Check {
	const name = "Total charges consistency"
	if v.chargeRatio <= 0 {
		return Check{Section: SectionBusiness, Name: name, Status: StatusPass,
			Message: "Check disabled (validation.charge_ratio_threshold is 0)"}
	}

	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s
WHERE total_charges < (monthly_charges * tenure_months * %s)
  AND tenure_months > 0`, schema.ViewCompleteProfile, v.session.Dialect().Placeholder(1))

	n, err := v.session.Count(ctx, query, v.chargeRatio)
	if err != nil {
		return failed(SectionBusiness, name, err)
	}
	if n > 0 {
		return Check{Section: SectionBusiness, Name: name, Status: StatusWarn,
			Message: fmt.Sprintf("%d records with potentially inconsistent charges", n)}
	}
	return Check{Section: SectionBusiness, Name: name, Status: StatusPass,
		Message: "Total charges consistent with monthly charges"}
}

// ServiceCounts reports min, max and average services per customer
func (v *Validator) ServiceCounts(ctx context.Context) Check {
	const name = "Service counts"
	query := fmt.Sprintf(`SELECT MIN(total_services), MAX(total_services), ROUND(AVG(total_services), 2)
FROM %s`, schema.ViewCompleteProfile)

	var lo, hi, avg sql.NullFloat64
	if err := v.session.Conn().QueryRowContext(ctx, query).Scan(&lo, &hi, &avg); err != nil {
		return failed(SectionBusiness, name, err)
	}
	if !lo.Valid {
		return Check{Section: SectionBusiness, Name: name, Status: StatusWarn, Message: "No rows to check"}
	}
	return Check{Section: SectionBusiness, Name: name, Status: StatusPass,
		Message: fmt.Sprintf("Service counts: %.0f - %.0f (avg: %.2f)", lo.Float64, hi.Float64, avg.Float64)}
}

// FeatureMatrix compares the feature view row count with customers
func (v *Validator) FeatureMatrix(ctx context.Context, customers int64) Check {
	const name = "Feature matrix completeness"
	n, err := v.session.Count(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", schema.ViewMLFeatureMatrix))
	if err != nil {
		return failed(SectionFeatures, name, err)
	}
	if n != customers {
		return Check{Section: SectionFeatures, Name: name, Status: StatusFail,
			Message: fmt.Sprintf("ML feature matrix incomplete: %d/%d records", n, customers)}
	}
	return Check{Section: SectionFeatures, Name: name, Status: StatusPass,
		Message: fmt.Sprintf("ML feature matrix complete: %d records", n)}
}

// Distributions reports the share of male, senior, partnered and churned customers
func (v *Validator) Distributions(ctx context.Context) Check {
	const name = "Feature distributions"
	query := fmt.Sprintf(`SELECT
    ROUND(AVG(is_male), 3),
    ROUND(AVG(senior_citizen), 3),
    ROUND(AVG(has_partner), 3),
    ROUND(AVG(target_churn), 3)
FROM %s`, schema.ViewMLFeatureMatrix)

	var d [4]sql.NullFloat64
	if err := v.session.Conn().QueryRowContext(ctx, query).Scan(&d[0], &d[1], &d[2], &d[3]); err != nil {
		return failed(SectionFeatures, name, err)
	}
	if !d[0].Valid {
		return Check{Section: SectionFeatures, Name: name, Status: StatusWarn, Message: "No rows to check"}
	}

	return Check{
		Section: SectionFeatures,
		Name:    name,
		Status:  StatusPass,
		Message: "Feature distributions",
		Details: []string{
			fmt.Sprintf("Male: %.1f%%", d[0].Float64*100),
			fmt.Sprintf("Senior: %.1f%%", d[1].Float64*100),
			fmt.Sprintf("Has Partner: %.1f%%", d[2].Float64*100),
			fmt.Sprintf("Churn Rate: %.1f%%", d[3].Float64*100),
		},
	}
}

// Views counts the rows of every derived view
func (v *Validator) Views(ctx context.Context) []Check {
	checks := make([]Check, 0, len(schema.Views))
	for _, view := range schema.Views {
		n, err := v.session.Count(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", view))
		if err != nil {
			checks = append(checks, failed(SectionViews, view, err))
			continue
		}
		checks = append(checks, Check{Section: SectionViews, Name: view, Status: StatusPass,
			Message: fmt.Sprintf("%d rows", n)})
	}
	return checks
}
