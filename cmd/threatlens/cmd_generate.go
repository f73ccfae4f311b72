package main

// ---------------------------------------------------------------------------
// cmd_generate.go — write a synthetic event log
// ---------------------------------------------------------------------------

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/threatlens-project/threatlens/internal/dataset"
)

func cmdGenerate(args []string) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	out := fs.String("out", "", "Output CSV path")
	rows := fs.Int("rows", 1000, "Number of rows")
	seed := fs.Int64("seed", 42, "Generator seed")
	start := fs.String("start", "2025-01-01", "First day of the window (YYYY-MM-DD)")
	fs.Parse(args)

	if *out == "" {
		errorf("no output file — use --out <file>")
	}

	startDay, err := time.Parse("2006-01-02", *start)
	if err != nil {
		errorf("invalid start date %q: %v", *start, err)
	}

	f, err := os.Create(*out)
	if err != nil {
		errorf("creating %s: %v", *out, err)
	}
	defer f.Close()

	if err := dataset.WriteDataset(f, dataset.GeneratorConfig{
		Rows:  *rows,
		Seed:  *seed,
		Start: startDay,
	}); err != nil {
		errorf("generating dataset: %v", err)
	}

	fmt.Printf("wrote %d rows to %s\n", *rows, *out)
}
