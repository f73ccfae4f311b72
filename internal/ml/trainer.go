package ml

import (
	"github.com/threatlens-project/threatlens/internal/core"
	"github.com/threatlens-project/threatlens/internal/dataset"
)

// EvalResult is the outcome of one train/evaluate run.
type EvalResult struct {
	Accuracy  float64
	TrainSize int
	TestSize  int
}

// TrainAndEvaluate runs the full training branch: stratified split,
// encoder fit on the training partition, forest training, and held-out
// accuracy. It fails only when the split is impossible.
func TrainAndEvaluate(records []dataset.EventRecord, cfg core.AnalysisConfig) (*EvalResult, error) {
	train, test, err := StratifiedSplit(records, cfg.TestFraction, cfg.Seed)
	if err != nil {
		return nil, err
	}

	encoder := FitEncoder(train)
	xTrain := encoder.EncodeAll(train)
	xTest := encoder.EncodeAll(test)

	forest := TrainForest(xTrain, labels(train), ForestConfig{
		Trees:           cfg.Trees,
		MaxDepth:        cfg.MaxDepth,
		MinSamplesSplit: cfg.MinSamplesSplit,
		Workers:         cfg.Workers,
		Seed:            cfg.Seed,
	})

	return &EvalResult{
		Accuracy:  forest.Accuracy(xTest, labels(test)),
		TrainSize: len(train),
		TestSize:  len(test),
	}, nil
}

func labels(records []dataset.EventRecord) []int {
	y := make([]int, len(records))
	for i, r := range records {
		if r.IsThreat {
			y[i] = 1
		}
	}
	return y
}
