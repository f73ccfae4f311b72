package ml

import (
	"math"
	"math/rand"
	"runtime"
	"sync"
)

// ForestConfig controls the bagged tree ensemble.
type ForestConfig struct {
	Trees           int
	MaxDepth        int
	MinSamplesSplit int
	Workers         int // 0 = GOMAXPROCS
	Seed            int64
}

// Forest is an ensemble of bagged CART trees. Each tree trains on a
// bootstrap resample with a random feature subset per split; class
// imbalance is corrected by weighting each class inversely to its
// frequency. Prediction is a majority vote, ties resolving to
// non-threat.
type Forest struct {
	trees []*treeNode
}

// TrainForest fits the ensemble. Trees are independent, so they fit
// concurrently; tree i derives its RNG from Seed+i, which keeps the
// result identical regardless of scheduling.
func TrainForest(x [][]float64, y []int, cfg ForestConfig) *Forest {
	n := len(x)
	w := balancedWeights(y)

	featuresPerNode := 1
	if n > 0 {
		if d := len(x[0]); d > 0 {
			featuresPerNode = int(math.Sqrt(float64(d)))
			if featuresPerNode < 1 {
				featuresPerNode = 1
			}
		}
	}

	tc := treeConfig{
		maxDepth:        cfg.MaxDepth,
		minSamplesSplit: cfg.MinSamplesSplit,
		featuresPerNode: featuresPerNode,
	}
	if tc.maxDepth <= 0 {
		tc.maxDepth = 12
	}
	if tc.minSamplesSplit < 2 {
		tc.minSamplesSplit = 2
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	forest := &Forest{trees: make([]*treeNode, cfg.Trees)}
	jobs := make(chan int)
	var wg sync.WaitGroup
	for wkr := 0; wkr < workers; wkr++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				rng := rand.New(rand.NewSource(cfg.Seed + int64(t)))
				idx := make([]int, n)
				for i := range idx {
					idx[i] = rng.Intn(n)
				}
				forest.trees[t] = growTree(x, y, w, idx, tc, rng, 0)
			}
		}()
	}
	for t := 0; t < cfg.Trees; t++ {
		jobs <- t
	}
	close(jobs)
	wg.Wait()

	return forest
}

// Predict returns the majority-vote class for one feature vector.
func (f *Forest) Predict(x []float64) int {
	votes := 0
	for _, t := range f.trees {
		votes += t.predict(x)
	}
	if votes*2 > len(f.trees) {
		return 1
	}
	return 0
}

// Accuracy computes the fraction of correct predictions over a set.
func (f *Forest) Accuracy(x [][]float64, y []int) float64 {
	if len(x) == 0 {
		return 0
	}
	correct := 0
	for i := range x {
		if f.Predict(x[i]) == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(x))
}

// balancedWeights assigns each sample w = n / (numClasses * classCount),
// so both classes contribute equal total weight.
func balancedWeights(y []int) []float64 {
	counts := [2]int{}
	for _, c := range y {
		counts[c]++
	}
	w := make([]float64, len(y))
	for i, c := range y {
		if counts[c] > 0 {
			w[i] = float64(len(y)) / (2 * float64(counts[c]))
		}
	}
	return w
}
