package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"strings"
	"testing"

	"github.com/threatlens-project/threatlens/internal/analytics"
)

// ─── suggest ──────────────────────────────────────────────────────────────────

func TestSuggest_PrefixMatch(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"ana", "analyze"},
		{"gen", "generate"},
		{"ser", "serve"},
		{"con", "config"},
		{"ver", "version"},
		{"hel", "help"},
	}
	for _, tc := range tests {
		got := suggest(tc.input)
		if got != tc.want {
			t.Errorf("suggest(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestSuggest_TypoCorrection(t *testing.T) {
	// Single character difference
	got := suggest("servx")
	if got != "serve" {
		t.Errorf("suggest('servx') = %q, want 'serve'", got)
	}
}

func TestSuggest_NoMatch(t *testing.T) {
	got := suggest("zzzzzzzzz")
	if got != "" {
		t.Errorf("suggest('zzzzzzzzz') = %q, want empty", got)
	}
}

func TestSuggest_CaseInsensitive(t *testing.T) {
	got := suggest("ANALYZE")
	if got != "analyze" {
		t.Errorf("suggest('ANALYZE') = %q, want 'analyze'", got)
	}
}

// ─── envConfig ────────────────────────────────────────────────────────────────

func TestEnvConfig_FlagOverride(t *testing.T) {
	got := envConfig("/custom/path.yaml")
	if got != "/custom/path.yaml" {
		t.Errorf("envConfig = %q, want /custom/path.yaml", got)
	}
}

func TestEnvConfig_EnvFallback(t *testing.T) {
	t.Setenv("THREATLENS_CONFIG", "/env/path.yaml")
	got := envConfig(defaultConfigPath)
	if got != "/env/path.yaml" {
		t.Errorf("envConfig = %q, want /env/path.yaml", got)
	}
}

// ─── flagWasSet ───────────────────────────────────────────────────────────────

func TestFlagWasSet(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	seed := fs.Int64("seed", 0, "")
	fs.Int64("other", 0, "")

	if err := fs.Parse([]string{"--seed", "-7"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !flagWasSet(fs, "seed") {
		t.Error("seed was provided but reported unset")
	}
	if *seed != -7 {
		t.Errorf("seed = %d, want -7 (negative seeds are valid)", *seed)
	}
	if flagWasSet(fs, "other") {
		t.Error("other was not provided but reported set")
	}
}

func TestFlagWasSet_ExplicitDefault(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Int64("seed", 0, "")

	if err := fs.Parse([]string{"--seed", "0"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	// Passing the default value explicitly still counts as set.
	if !flagWasSet(fs, "seed") {
		t.Error("explicit default should report set")
	}
}

// ─── OutputFormat ─────────────────────────────────────────────────────────────

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input string
		want  OutputFormat
	}{
		{"json", FormatJSON},
		{"JSON", FormatJSON},
		{"table", FormatTable},
		{"TABLE", FormatTable},
		{" table ", FormatTable},
		{"", FormatJSON},
		{"unknown", FormatJSON},
	}
	for _, tc := range tests {
		got := parseFormat(tc.input)
		if got != tc.want {
			t.Errorf("parseFormat(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

// ─── Table ────────────────────────────────────────────────────────────────────

func TestTable_Render(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTable(&buf, "Name", "Value")
	tbl.AddRow("key1", "val1")
	tbl.AddRow("key2", "val2")
	tbl.Render()

	output := buf.String()
	if !strings.Contains(output, "key1") {
		t.Error("table should contain 'key1'")
	}
	if !strings.Contains(output, "val2") {
		t.Error("table should contain 'val2'")
	}
	// Should have box-drawing characters
	if !strings.Contains(output, "┌") {
		t.Error("table should have box-drawing borders")
	}
}

func TestTable_EmptyHeaders(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTable(&buf)
	tbl.Render()
	if buf.Len() != 0 {
		t.Error("empty headers should produce no output")
	}
}

func TestTable_PadShortRow(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTable(&buf, "A", "B", "C")
	tbl.AddRow("only_one") // fewer values than headers
	tbl.Render()
	// Should not panic
	if !strings.Contains(buf.String(), "only_one") {
		t.Error("table should contain the short row value")
	}
}

// ─── printReport ──────────────────────────────────────────────────────────────

func sampleReport() *analytics.Report {
	threats := analytics.ThreatAnalytics{
		TotalThreatCount:      2,
		ThreatsPerDay:         analytics.NewOrderedMap[int](),
		TopThreatSubclasses:   analytics.NewOrderedMap[int](),
		RiskPercentageByEvent: analytics.NewOrderedMap[string](),
	}
	threats.ThreatsPerDay.Set("2025-01-02", 2)
	threats.TopThreatSubclasses.Set("failed_login", 2)
	threats.RiskPercentageByEvent.Set("failed_login", "100.0%")

	return analytics.AssembleReport(
		analytics.NewModelPerformance(0.99, 0.95),
		threats,
		[]analytics.UserActivity{{
			UserID:          "user_01",
			TotalEvents:     10,
			ThreatEvents:    2,
			LastActive:      "2025-01-02 11:00:00",
			UniqueLocations: []string{"India"},
			AlertReason:     "High Risk: Detected 2 threat event(s) including [failed_login]",
		}},
	)
}

func TestPrintReport_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := printReport(&buf, sampleReport(), FormatJSON); err != nil {
		t.Fatalf("printReport: %v", err)
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if _, ok := decoded["threat_analytics"]; !ok {
		t.Error("JSON output missing threat_analytics")
	}
}

func TestPrintReport_Table(t *testing.T) {
	var buf bytes.Buffer
	if err := printReport(&buf, sampleReport(), FormatTable); err != nil {
		t.Fatalf("printReport: %v", err)
	}
	output := buf.String()
	for _, want := range []string{"MODEL PERFORMANCE", "user_01", "failed_login", "100.0%"} {
		if !strings.Contains(output, want) {
			t.Errorf("table output missing %q", want)
		}
	}
}

// ─── Version / usage ──────────────────────────────────────────────────────────

func TestPrintVersion(t *testing.T) {
	var buf bytes.Buffer
	printVersion(&buf)
	output := buf.String()
	if !strings.Contains(output, "threatlens") {
		t.Error("version output should contain 'threatlens'")
	}
	if !strings.Contains(output, version) {
		t.Errorf("version output should contain version %q", version)
	}
}

func TestPrintUsage(t *testing.T) {
	var buf bytes.Buffer
	printUsage(&buf)
	output := buf.String()
	if !strings.Contains(output, "COMMANDS") {
		t.Error("usage should contain COMMANDS section")
	}
	if !strings.Contains(output, "analyze") {
		t.Error("usage should list 'analyze' command")
	}
}
