package main

// ---------------------------------------------------------------------------
// main.go — command dispatcher for the threatlens CLI
//
// This file is intentionally slim. All command implementations live in
// their own files (cmd_*.go). Shared helpers are in helpers.go and
// output.go.
// ---------------------------------------------------------------------------

import (
	"fmt"
	"io"
	"os"
	goruntime "runtime"
	"runtime/debug"
	"strings"
)

var (
	version   = "0.3.0"
	commit    = "dev"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "--version", "-V":
			printVersion(os.Stdout)
			os.Exit(0)
		case "--help", "-h", "help":
			if len(os.Args) >= 3 {
				cmdHelp(os.Args[2])
			} else {
				printUsage(os.Stdout)
			}
			os.Exit(0)
		}
	}

	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(0)
	}

	subcmd := os.Args[1]
	args := os.Args[2:]

	// Handle -h / --help appended to any subcommand
	for _, a := range args {
		if a == "-h" || a == "--help" {
			cmdHelp(subcmd)
			os.Exit(0)
		}
	}

	switch subcmd {
	case "analyze":
		cmdAnalyze(args)
	case "generate":
		cmdGenerate(args)
	case "serve":
		cmdServe(args)
	case "config":
		cmdConfig(args)
	case "version":
		printVersion(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, red("error: ")+"unknown command %q\n\n", subcmd)
		if s := suggest(subcmd); s != "" {
			fmt.Fprintf(os.Stderr, "       Did you mean %s?\n\n", bold(s))
		}
		printUsage(os.Stderr)
		os.Exit(1)
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "threatlens v%s", version)
	if commit != "dev" {
		fmt.Fprintf(w, " (%s)", commit[:min(7, len(commit))])
	}
	if buildDate != "unknown" {
		fmt.Fprintf(w, " built %s", buildDate)
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		fmt.Fprintf(w, " %s", bi.GoVersion)
	}
	fmt.Fprintf(w, " %s/%s", goruntime.GOOS, goruntime.GOARCH)
	fmt.Fprintln(w)
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "threatlens %s — security event threat analytics\n\n", dim("v"+version))
	fmt.Fprintf(w, "%s\n\n", bold("USAGE"))
	fmt.Fprintf(w, "  threatlens <command> [flags]\n\n")
	fmt.Fprintf(w, "%s\n\n", bold("COMMANDS"))
	fmt.Fprintf(w, "  %-10s  %s\n", bold("analyze"), "Run the analytics pipeline over an event log and print the report")
	fmt.Fprintf(w, "  %-10s  %s\n", bold("generate"), "Write a synthetic event log for testing")
	fmt.Fprintf(w, "  %-10s  %s\n", bold("serve"), "Run the upload API server")
	fmt.Fprintf(w, "  %-10s  %s\n", bold("config"), "Show or initialize configuration")
	fmt.Fprintf(w, "  %-10s  %s\n", bold("version"), "Print version and build info")
	fmt.Fprintf(w, "  %-10s  %s\n", bold("help"), "Show help for a command")
	fmt.Fprintf(w, "\n%s\n\n", bold("ENVIRONMENT VARIABLES"))
	fmt.Fprintf(w, "  %-20s  %s\n", "THREATLENS_CONFIG", "Default config file path")
	fmt.Fprintf(w, "  %-20s  %s\n", "THREATLENS_API_KEY", "API key for serve-mode authentication")
	fmt.Fprintf(w, "\n%s\n\n", bold("EXAMPLES"))
	fmt.Fprintf(w, "  %s\n", dim("# Analyze an event log"))
	fmt.Fprintf(w, "  threatlens analyze --input events.csv\n\n")
	fmt.Fprintf(w, "  %s\n", dim("# Same report as formatted tables"))
	fmt.Fprintf(w, "  threatlens analyze --input events.csv --format table\n\n")
	fmt.Fprintf(w, "  %s\n", dim("# Generate a 1000-row synthetic log"))
	fmt.Fprintf(w, "  threatlens generate --rows 1000 --out events.csv\n\n")
	fmt.Fprintf(w, "  %s\n", dim("# Run the upload API"))
	fmt.Fprintf(w, "  threatlens serve --config threatlens.yaml\n\n")
	fmt.Fprintf(w, "Run %s for detailed help on any command.\n\n", bold("threatlens help <command>"))
}

func cmdHelp(cmd string) {
	switch cmd {
	case "analyze":
		fmt.Println("Usage: threatlens analyze --input <file> [flags]")
		fmt.Println()
		fmt.Println("Runs the full pipeline — load, label, train, aggregate — over a")
		fmt.Println("CSV or XLSX event log and prints the threat analytics report.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  --input <file>    Event log to analyze (.csv or .xlsx, required)")
		fmt.Println("  --config <path>   Config file path")
		fmt.Println("  --format <fmt>    Output format: json, table (default: json)")
		fmt.Println("  --seed <n>        Override the split/training seed")
	case "generate":
		fmt.Println("Usage: threatlens generate --out <file> [flags]")
		fmt.Println()
		fmt.Println("Writes a synthetic security event log. Identical flags produce an")
		fmt.Println("identical file.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  --out <file>    Output CSV path (required)")
		fmt.Println("  --rows <n>      Number of rows (default: 1000)")
		fmt.Println("  --seed <n>      Generator seed (default: 42)")
		fmt.Println("  --start <date>  First day of the 30-day window, YYYY-MM-DD (default: 2025-01-01)")
	case "serve":
		fmt.Println("Usage: threatlens serve [flags]")
		fmt.Println()
		fmt.Println("Runs the upload API server. POST an event log to /api/v1/reports")
		fmt.Println("as multipart form data (field name \"file\") to receive a report.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  --config <path>   Config file path")
	case "config":
		fmt.Println("Usage: threatlens config [--init | --show] [flags]")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  --init            Write a default config file")
		fmt.Println("  --show            Print the effective configuration as YAML")
		fmt.Println("  --config <path>   Config file path")
	case "version":
		fmt.Println("Usage: threatlens version")
	default:
		printUsage(os.Stdout)
	}
}

// suggest offers the closest known command for a typo.
func suggest(input string) string {
	cmds := []string{"analyze", "generate", "serve", "config", "version", "help"}
	input = strings.ToLower(input)
	for _, c := range cmds {
		if strings.HasPrefix(c, input) || strings.HasPrefix(input, c) {
			return c
		}
	}
	for _, c := range cmds {
		if len(c) == len(input) {
			diff := 0
			for i := range c {
				if c[i] != input[i] {
					diff++
				}
			}
			if diff <= 1 {
				return c
			}
		}
	}
	return ""
}
