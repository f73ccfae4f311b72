package ml

import (
	"math/rand"
	"sort"
)

// treeNode is one node of a CART decision tree. Leaves carry the
// weighted-majority class; internal nodes route on x[feature] <= threshold.
type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	leaf      bool
	class     int
}

type treeConfig struct {
	maxDepth        int
	minSamplesSplit int
	featuresPerNode int
}

// growTree builds a tree over the sample indices in idx. w holds
// per-sample class weights, which is how class imbalance is corrected:
// the rare threat class contributes as much gini mass as the majority.
func growTree(x [][]float64, y []int, w []float64, idx []int, cfg treeConfig, rng *rand.Rand, depth int) *treeNode {
	if depth >= cfg.maxDepth || len(idx) < cfg.minSamplesSplit || isPure(y, idx) {
		return leafNode(y, w, idx)
	}

	feature, threshold, ok := bestSplit(x, y, w, idx, cfg.featuresPerNode, rng)
	if !ok {
		return leafNode(y, w, idx)
	}

	var left, right []int
	for _, i := range idx {
		if x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return leafNode(y, w, idx)
	}

	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      growTree(x, y, w, left, cfg, rng, depth+1),
		right:     growTree(x, y, w, right, cfg, rng, depth+1),
	}
}

func (n *treeNode) predict(x []float64) int {
	for !n.leaf {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.class
}

func isPure(y []int, idx []int) bool {
	for _, i := range idx[1:] {
		if y[i] != y[idx[0]] {
			return false
		}
	}
	return true
}

func leafNode(y []int, w []float64, idx []int) *treeNode {
	var w0, w1 float64
	for _, i := range idx {
		if y[i] == 1 {
			w1 += w[i]
		} else {
			w0 += w[i]
		}
	}
	class := 0
	if w1 > w0 {
		class = 1
	}
	return &treeNode{leaf: true, class: class}
}

// bestSplit searches a random feature subset for the threshold with
// the lowest weighted gini impurity. Returns ok=false when no split
// separates the samples.
func bestSplit(x [][]float64, y []int, w []float64, idx []int, featuresPerNode int, rng *rand.Rand) (int, float64, bool) {
	width := len(x[idx[0]])
	features := rng.Perm(width)
	if featuresPerNode < width {
		features = features[:featuresPerNode]
	}

	bestScore := gini(y, w, idx)
	bestFeature, bestThreshold := -1, 0.0

	values := make([]float64, 0, len(idx))
	for _, f := range features {
		values = values[:0]
		for _, i := range idx {
			values = append(values, x[i][f])
		}
		sort.Float64s(values)

		for v := 1; v < len(values); v++ {
			if values[v] == values[v-1] {
				continue
			}
			threshold := (values[v] + values[v-1]) / 2
			if score := splitScore(x, y, w, idx, f, threshold); score < bestScore {
				bestScore, bestFeature, bestThreshold = score, f, threshold
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

// gini computes the weighted gini impurity of one index set.
func gini(y []int, w []float64, idx []int) float64 {
	var w0, w1 float64
	for _, i := range idx {
		if y[i] == 1 {
			w1 += w[i]
		} else {
			w0 += w[i]
		}
	}
	total := w0 + w1
	if total == 0 {
		return 0
	}
	p0, p1 := w0/total, w1/total
	return 1 - p0*p0 - p1*p1
}

// splitScore computes the weight-averaged impurity of the two sides.
func splitScore(x [][]float64, y []int, w []float64, idx []int, feature int, threshold float64) float64 {
	var l0, l1, r0, r1 float64
	for _, i := range idx {
		if x[i][feature] <= threshold {
			if y[i] == 1 {
				l1 += w[i]
			} else {
				l0 += w[i]
			}
		} else {
			if y[i] == 1 {
				r1 += w[i]
			} else {
				r0 += w[i]
			}
		}
	}
	lt, rt := l0+l1, r0+r1
	total := lt + rt
	if lt == 0 || rt == 0 {
		return 1 // degenerate split, never preferred over the parent
	}
	giniSide := func(a, b, t float64) float64 {
		pa, pb := a/t, b/t
		return 1 - pa*pa - pb*pb
	}
	return (lt*giniSide(l0, l1, lt) + rt*giniSide(r0, r1, rt)) / total
}
