package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/threatlens-project/threatlens/internal/core"
	"github.com/xuri/excelize/v2"
)

// requiredColumns are the columns every event log must carry. Order in
// the file is free; extra columns are ignored.
var requiredColumns = []string{
	"timestamp", "user_id", "event_type", "event_value", "device_id",
	"ip_address", "location", "auth_result", "resource_type", "resource_name",
}

// LoadFile parses a CSV or XLSX event log at path into validated raw
// records. It is the pipeline's only I/O operation.
func LoadFile(path string) ([]EventRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening event log: %w", err)
		}
		defer f.Close()
		return LoadCSV(f)
	case ".xlsx", ".xlsm":
		return LoadXLSX(path)
	case ".xls":
		return nil, fmt.Errorf("legacy .xls files are not supported, convert to .csv or .xlsx")
	default:
		return nil, fmt.Errorf("unsupported file extension %q", filepath.Ext(path))
	}
}

// LoadCSV parses a comma-delimited event log with a header row.
func LoadCSV(r io.Reader) ([]EventRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // width checked against the header below

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &core.MalformedInputError{Column: "timestamp", Reason: "empty file, header row missing"}
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	cols, err := indexHeader(header)
	if err != nil {
		return nil, err
	}

	var records []EventRecord
	row := 0
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", row+1, err)
		}
		row++
		// A short CSV row is truncated data, not trimmed cells.
		if len(fields) < len(header) {
			return nil, &core.MalformedInputError{
				Row:    row,
				Reason: fmt.Sprintf("expected %d fields, got %d", len(header), len(fields)),
			}
		}
		rec, err := parseRow(cols, fields, row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// LoadXLSX parses the first sheet of a workbook with the same header
// contract as CSV.
func LoadXLSX(path string) ([]EventRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &core.MalformedInputError{Column: "timestamp", Reason: "workbook has no sheets"}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, &core.MalformedInputError{Column: "timestamp", Reason: "empty sheet, header row missing"}
	}

	cols, err := indexHeader(rows[0])
	if err != nil {
		return nil, err
	}

	var records []EventRecord
	for i, fields := range rows[1:] {
		rec, err := parseRow(cols, fields, i+1)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// indexHeader maps column names to positions and rejects missing
// required columns. Unknown extra columns are allowed.
func indexHeader(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	for _, required := range requiredColumns {
		if _, ok := cols[required]; !ok {
			return nil, &core.MalformedInputError{Column: required, Reason: "required column missing from header"}
		}
	}
	return cols, nil
}

// parseRow validates one data row. row is 1-based for error reporting.
func parseRow(cols map[string]int, fields []string, row int) (EventRecord, error) {
	field := func(name string) string {
		i := cols[name]
		if i >= len(fields) {
			// XLSX readers trim trailing empty cells
			return ""
		}
		return strings.TrimSpace(fields[i])
	}

	ts, err := time.Parse(TimestampLayout, field("timestamp"))
	if err != nil {
		return EventRecord{}, &core.MalformedInputError{
			Row:    row,
			Column: "timestamp",
			Reason: fmt.Sprintf("cannot parse %q as %s", field("timestamp"), TimestampLayout),
		}
	}

	value, err := strconv.Atoi(field("event_value"))
	if err != nil {
		return EventRecord{}, &core.MalformedInputError{
			Row:    row,
			Column: "event_value",
			Reason: fmt.Sprintf("cannot parse %q as an integer", field("event_value")),
		}
	}
	if value < 0 {
		return EventRecord{}, &core.MalformedInputError{
			Row:    row,
			Column: "event_value",
			Reason: fmt.Sprintf("negative value %d", value),
		}
	}

	return EventRecord{
		Timestamp:    ts,
		UserID:       field("user_id"),
		EventType:    field("event_type"),
		EventValue:   value,
		DeviceID:     field("device_id"),
		IPAddress:    field("ip_address"),
		Location:     field("location"),
		AuthResult:   field("auth_result"),
		ResourceType: field("resource_type"),
		ResourceName: field("resource_name"),
	}, nil
}
