package main

// ---------------------------------------------------------------------------
// output.go — format flag, table rendering, report printing
// ---------------------------------------------------------------------------

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/threatlens-project/threatlens/internal/analytics"
)

// OutputFormat enumerates supported output formats.
type OutputFormat int

const (
	FormatJSON OutputFormat = iota
	FormatTable
)

// parseFormat converts a --format string to an OutputFormat.
func parseFormat(s string) OutputFormat {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "table":
		return FormatTable
	default:
		return FormatJSON
	}
}

// printReport writes the report in the requested format.
func printReport(w io.Writer, report *analytics.Report, format OutputFormat) error {
	if format == FormatJSON {
		data, err := json.MarshalIndent(report, "", "    ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	status := report.ModelPerformance.Status
	if status == "Goal Met" {
		status = green(status)
	} else {
		status = yellow(status)
	}
	fmt.Fprintf(w, "\n%s\n\n", bold("MODEL PERFORMANCE"))
	fmt.Fprintf(w, "  accuracy: %s  status: %s\n", report.ModelPerformance.Accuracy, status)

	fmt.Fprintf(w, "\n%s\n\n", bold("THREAT ANALYTICS"))
	fmt.Fprintf(w, "  total threats: %d\n\n", report.ThreatAnalytics.TotalThreatCount)

	top := NewTable(w, "THREAT TYPE", "COUNT", "RISK")
	for _, t := range report.ThreatAnalytics.TopThreatSubclasses.Keys() {
		count, _ := report.ThreatAnalytics.TopThreatSubclasses.Get(t)
		risk, _ := report.ThreatAnalytics.RiskPercentageByEvent.Get(t)
		top.AddRow(t, strconv.Itoa(count), risk)
	}
	top.Render()

	fmt.Fprintf(w, "\n%s\n\n", bold("USER ACTIVITY MONITOR"))
	users := NewTable(w, "USER", "EVENTS", "THREATS", "LAST ACTIVE", "ALERT")
	for _, u := range report.UserActivityMonitor {
		users.AddRow(u.UserID, strconv.Itoa(u.TotalEvents), strconv.Itoa(u.ThreatEvents), u.LastActive, u.AlertReason)
	}
	users.Render()
	return nil
}

// ---------------------------------------------------------------------------
// Table renderer — auto-sized columns with box-drawing borders
// ---------------------------------------------------------------------------

// Table renders aligned, bordered tables to a writer.
type Table struct {
	headers []string
	rows    [][]string
	w       io.Writer
}

// NewTable creates a table with the given column headers.
func NewTable(w io.Writer, headers ...string) *Table {
	return &Table{headers: headers, w: w}
}

// AddRow appends a row. Values are matched positionally to headers.
func (t *Table) AddRow(values ...string) {
	// Pad or truncate to match header count
	row := make([]string, len(t.headers))
	for i := range row {
		if i < len(values) {
			row[i] = values[i]
		}
	}
	t.rows = append(t.rows, row)
}

// Render writes the table with box-drawing borders.
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	// Calculate column widths
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	line := func(left, sep, right string) string {
		s := left
		for i, w := range widths {
			s += strings.Repeat("─", w+2)
			if i < len(widths)-1 {
				s += sep
			}
		}
		return s + right
	}

	printRow := func(cells []string) {
		fmt.Fprint(t.w, "│")
		for i, cell := range cells {
			fmt.Fprintf(t.w, " %-*s │", widths[i], cell)
		}
		fmt.Fprintln(t.w)
	}

	fmt.Fprintln(t.w, line("┌", "┬", "┐"))
	printRow(t.headers)
	fmt.Fprintln(t.w, line("├", "┼", "┤"))
	for _, row := range t.rows {
		printRow(row)
	}
	fmt.Fprintln(t.w, line("└", "┴", "┘"))
}
