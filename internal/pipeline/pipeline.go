package pipeline

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/threatlens-project/threatlens/internal/analytics"
	"github.com/threatlens-project/threatlens/internal/core"
	"github.com/threatlens-project/threatlens/internal/dataset"
	"github.com/threatlens-project/threatlens/internal/ml"
)

// Run executes the full analytics pipeline over the event log at path
// and returns the report, or a typed error. The training branch and
// the aggregation branch both read the labeled snapshot and run in
// parallel; the report is all-or-nothing.
func Run(path string, cfg *core.Config, logger zerolog.Logger) (*analytics.Report, error) {
	log := logger.With().Str("component", "pipeline").Logger()

	records, err := dataset.LoadFile(path)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("records", len(records)).Str("file", path).Msg("event log loaded")

	labeled := dataset.NewLabeler(cfg.Analysis.ThreatEventTypes).Label(records)

	var (
		wg       sync.WaitGroup
		eval     *ml.EvalResult
		trainErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		eval, trainErr = ml.TrainAndEvaluate(labeled, cfg.Analysis)
	}()

	threats := analytics.Aggregate(labeled)
	users := analytics.ProfileUsers(labeled)

	wg.Wait()
	if trainErr != nil {
		return nil, trainErr
	}

	log.Info().
		Int("records", len(records)).
		Int("train", eval.TrainSize).
		Int("test", eval.TestSize).
		Float64("accuracy", eval.Accuracy).
		Int("threats", threats.TotalThreatCount).
		Msg("analysis complete")

	perf := analytics.NewModelPerformance(eval.Accuracy, cfg.Analysis.AccuracyGoal)
	return analytics.AssembleReport(perf, threats, users), nil
}
