package main

// ---------------------------------------------------------------------------
// cmd_analyze.go — run the analytics pipeline over an event log
// ---------------------------------------------------------------------------

import (
	"errors"
	"flag"
	"os"

	"github.com/threatlens-project/threatlens/internal/core"
	"github.com/threatlens-project/threatlens/internal/pipeline"
)

func cmdAnalyze(args []string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	input := fs.String("input", "", "Event log to analyze (.csv or .xlsx)")
	configPath := fs.String("config", defaultConfigPath, "Config file path")
	format := fs.String("format", "json", "Output format: json, table")
	seed := fs.Int64("seed", 0, "Override the split/training seed")
	fs.Parse(args)

	if *input == "" {
		errorf("no input file — use --input <file>")
	}

	cfg, err := core.LoadConfig(envConfig(*configPath))
	if err != nil {
		errorf("loading config: %v", err)
	}
	if flagWasSet(fs, "seed") {
		cfg.Analysis.Seed = *seed
	}

	logger := core.NewLogger(cfg.Logging)

	report, err := pipeline.Run(*input, cfg, logger)
	if err != nil {
		var malformed *core.MalformedInputError
		var insufficient *core.InsufficientDataError
		switch {
		case errors.As(err, &malformed):
			errorf("%v", malformed)
		case errors.As(err, &insufficient):
			errorf("%v", insufficient)
		default:
			errorf("analysis failed: %v", err)
		}
	}

	if err := printReport(os.Stdout, report, parseFormat(*format)); err != nil {
		errorf("rendering report: %v", err)
	}
}
