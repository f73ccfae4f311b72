package ml

import (
	"math/rand"

	"github.com/threatlens-project/threatlens/internal/core"
	"github.com/threatlens-project/threatlens/internal/dataset"
)

// StratifiedSplit partitions labeled records into training and
// held-out sets, preserving the threat/non-threat proportion in each
// within integer rounding. The split is a pure function of the input
// order and the seed, so identical input and seed reproduce the exact
// partitions.
func StratifiedSplit(records []dataset.EventRecord, testFraction float64, seed int64) (train, test []dataset.EventRecord, err error) {
	if len(records) == 0 {
		return nil, nil, &core.InsufficientDataError{}
	}

	var threat, benign []int
	for i, r := range records {
		if r.IsThreat {
			threat = append(threat, i)
		} else {
			benign = append(benign, i)
		}
	}
	if len(benign) < 2 {
		return nil, nil, &core.InsufficientDataError{Class: "non-threat", Count: len(benign)}
	}
	if len(threat) < 2 {
		return nil, nil, &core.InsufficientDataError{Class: "threat", Count: len(threat)}
	}

	rng := rand.New(rand.NewSource(seed))
	for _, class := range [][]int{benign, threat} {
		rng.Shuffle(len(class), func(i, j int) {
			class[i], class[j] = class[j], class[i]
		})
		held := int(float64(len(class))*testFraction + 0.5)
		// Both partitions keep at least one member of each class.
		if held < 1 {
			held = 1
		}
		if held > len(class)-1 {
			held = len(class) - 1
		}
		for _, i := range class[:held] {
			test = append(test, records[i])
		}
		for _, i := range class[held:] {
			train = append(train, records[i])
		}
	}
	return train, test, nil
}
