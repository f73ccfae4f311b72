package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"time"
)

// GeneratorConfig controls the synthetic event log writer.
type GeneratorConfig struct {
	Rows  int
	Seed  int64
	Start time.Time
}

var generatorLocations = []string{
	"India", "United States", "Germany", "United Kingdom",
	"Singapore", "Australia", "Canada", "Japan",
}

// generatorEvents are event types with their sampling weights. The
// mix skews heavily toward benign logins and file accesses so the
// threat classes stay rare, as in production traffic.
var generatorEvents = []struct {
	name   string
	weight int
}{
	{"login", 50},
	{"failed_login", 15},
	{"password_reset", 5},
	{"phishing_click", 3},
	{"file_access", 27},
}

// WriteDataset writes a synthetic event log as CSV. Identical config
// yields an identical file.
func WriteDataset(w io.Writer, cfg GeneratorConfig) error {
	if cfg.Rows <= 0 {
		return fmt.Errorf("rows must be positive, got %d", cfg.Rows)
	}
	start := cfg.Start
	if start.IsZero() {
		start = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	cw := csv.NewWriter(w)
	if err := cw.Write(requiredColumns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	totalWeight := 0
	for _, e := range generatorEvents {
		totalWeight += e.weight
	}

	for i := 0; i < cfg.Rows; i++ {
		// Users and devices are paired: user_07 always acts from dev_07.
		idx := rng.Intn(60) + 1
		user := fmt.Sprintf("user_%02d", idx)
		device := fmt.Sprintf("dev_%02d", idx)

		event := pickEvent(rng, totalWeight)

		value := 1
		if event == "file_access" {
			value = rng.Intn(246) + 5
		}

		ts := start.Add(
			time.Duration(rng.Intn(30))*24*time.Hour +
				time.Duration(rng.Intn(24))*time.Hour +
				time.Duration(rng.Intn(60))*time.Minute,
		)

		authResult := "success"
		if event == "failed_login" {
			authResult = "failure"
		}
		resourceType, resourceName := "system", "auth_service"
		if event == "file_access" {
			resourceType, resourceName = "file", "confidential_report"
		}

		row := []string{
			ts.Format(TimestampLayout),
			user,
			event,
			strconv.Itoa(value),
			device,
			fmt.Sprintf("10.0.%d.%d", rng.Intn(6), rng.Intn(254)+1),
			generatorLocations[rng.Intn(len(generatorLocations))],
			authResult,
			resourceType,
			resourceName,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func pickEvent(rng *rand.Rand, totalWeight int) string {
	n := rng.Intn(totalWeight)
	for _, e := range generatorEvents {
		if n < e.weight {
			return e.name
		}
		n -= e.weight
	}
	return generatorEvents[len(generatorEvents)-1].name
}
