package ui

import (
	"fmt"
	"strings"

	"churndb/internal/cleanup"
	"churndb/internal/database"
	"churndb/internal/validate"

	"github.com/fatih/color"
)

// PrintSection prints a section header
func PrintSection(title string) {
	fmt.Fprintf(out, "\n%s %s\n", ColorBold("▶"), ColorBold(title))
	fmt.Fprintln(out, strings.Repeat("─", 50))
}

// PrintKeyValue prints a key-value pair in a formatted way
func PrintKeyValue(key, value string) {
	fmt.Fprintf(out, "  %-20s %s\n", ColorDim(key+":"), value)
}

// PrintStep prints a numbered pipeline step, e.g. "[2/4] Loading data..."
func PrintStep(current, total int, message string) {
	fmt.Fprintf(out, "\n%s %s\n", ColorProgress(fmt.Sprintf("[%d/%d]", current, total)), message)
}

// ShowTableStats prints row counts per table
func ShowTableStats(stats []validate.TableCount) {
	table := NewTable("Table", "Rows")
	table.SetColumnAlignment([]int{0, 2})
	for _, s := range stats {
		rows := FormatCount(s.Rows)
		if s.Rows == 0 {
			rows = color.YellowString(rows)
		}
		table.Append([]string{s.Table, rows})
	}
	table.Render()
}

// ShowQueryTable prints a query result under title
func ShowQueryTable(title string, result *database.Table) {
	fmt.Fprintf(out, "\n%s\n", ColorBold(title+":"))
	if result == nil || len(result.Rows) == 0 {
		fmt.Fprintf(out, "  %s\n", ColorDim("(no rows)"))
		return
	}
	table := NewTable(result.Columns...)
	table.AppendBulk(result.Rows)
	table.Render()
}

func statusString(status validate.Status) string {
	switch status {
	case validate.StatusPass:
		return color.GreenString(string(status))
	case validate.StatusWarn:
		return color.YellowString(string(status))
	default:
		return color.RedString(string(status))
	}
}

// ShowReport prints validation checks grouped by section and a summary
func ShowReport(report *validate.Report) {
	order, grouped := report.Sections()
	for _, section := range order {
		PrintSection(string(section))
		table := NewTable("Check", "Status", "Result")
		for _, c := range grouped[section] {
			table.Append([]string{c.Name, statusString(c.Status), c.Message})
			for _, d := range c.Details {
				table.Append([]string{"", "", d})
			}
		}
		table.Render()
	}

	PrintSection("Summary")
	PrintKeyValue("Passed", fmt.Sprintf("%d", report.Count(validate.StatusPass)))
	PrintKeyValue("Warnings", fmt.Sprintf("%d", report.Count(validate.StatusWarn)))
	PrintKeyValue("Failed", fmt.Sprintf("%d", report.Count(validate.StatusFail)))
}

// ShowCleanup prints the outcome of each dropped object
func ShowCleanup(result *cleanup.Result) {
	table := NewTable("Object", "Type", "Status")
	for _, o := range result.Objects {
		status := color.GreenString("dropped")
		if o.Err != nil {
			status = color.RedString("failed: %v", o.Err)
		}
		table.Append([]string{o.Object.Name, string(o.Object.Type), status})
	}
	table.Render()
}
