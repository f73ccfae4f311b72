package ml

import (
	"math"
	"sort"

	"github.com/threatlens-project/threatlens/internal/dataset"
)

// Feature layout: three standardized numeric columns followed by
// one-hot blocks for each categorical column. event_type, timestamp,
// device_id, and ip_address are deliberately excluded — event_type
// leaks the label, the identifiers carry no generalizable signal, and
// the timestamp is already captured by hour/day_of_week.
var categoricalColumns = []string{"user_id", "location", "resource_type", "resource_name", "auth_result"}

const numericWidth = 3 // event_value, hour, day_of_week

// FeatureEncoder converts labeled records into fixed-width numeric
// vectors. Statistics are fit on the training partition only; the
// encoder is reusable on any record set afterwards.
type FeatureEncoder struct {
	mean [numericWidth]float64
	std  [numericWidth]float64

	// per categorical column: category -> offset within the block
	categories []map[string]int
	offsets    []int // block start per categorical column
	width      int
}

// FitEncoder learns per-column mean/std and the observed category sets.
func FitEncoder(records []dataset.EventRecord) *FeatureEncoder {
	e := &FeatureEncoder{
		categories: make([]map[string]int, len(categoricalColumns)),
		offsets:    make([]int, len(categoricalColumns)),
	}

	n := float64(len(records))
	for _, r := range records {
		for i, v := range numericValues(&r) {
			e.mean[i] += v
		}
	}
	if n > 0 {
		for i := range e.mean {
			e.mean[i] /= n
		}
	}
	for _, r := range records {
		for i, v := range numericValues(&r) {
			d := v - e.mean[i]
			e.std[i] += d * d
		}
	}
	for i := range e.std {
		if n > 0 {
			e.std[i] = math.Sqrt(e.std[i] / n)
		}
	}

	for c := range categoricalColumns {
		seen := make(map[string]struct{})
		for _, r := range records {
			seen[categoricalValue(&r, c)] = struct{}{}
		}
		names := make([]string, 0, len(seen))
		for name := range seen {
			names = append(names, name)
		}
		sort.Strings(names)
		idx := make(map[string]int, len(names))
		for i, name := range names {
			idx[name] = i
		}
		e.categories[c] = idx
	}

	e.width = numericWidth
	for c := range e.categories {
		e.offsets[c] = e.width
		e.width += len(e.categories[c])
	}
	return e
}

// Width is the fixed vector dimensionality, determined solely by Fit.
func (e *FeatureEncoder) Width() int { return e.width }

// CategoryIndex returns the vector index of a categorical value, or
// false when the category was unseen at fit time.
func (e *FeatureEncoder) CategoryIndex(column int, value string) (int, bool) {
	i, ok := e.categories[column][value]
	if !ok {
		return 0, false
	}
	return e.offsets[column] + i, true
}

// Encode produces one feature vector. A numeric column with zero
// variance in training encodes as constant zero; a category unseen at
// fit time leaves its block all-zero.
func (e *FeatureEncoder) Encode(r dataset.EventRecord) []float64 {
	x := make([]float64, e.width)
	for i, v := range numericValues(&r) {
		if e.std[i] > 0 {
			x[i] = (v - e.mean[i]) / e.std[i]
		}
	}
	for c := range categoricalColumns {
		if i, ok := e.CategoryIndex(c, categoricalValue(&r, c)); ok {
			x[i] = 1
		}
	}
	return x
}

// EncodeAll encodes a record set into a matrix.
func (e *FeatureEncoder) EncodeAll(records []dataset.EventRecord) [][]float64 {
	x := make([][]float64, len(records))
	for i, r := range records {
		x[i] = e.Encode(r)
	}
	return x
}

func numericValues(r *dataset.EventRecord) [numericWidth]float64 {
	return [numericWidth]float64{float64(r.EventValue), float64(r.Hour), float64(r.DayOfWeek)}
}

func categoricalValue(r *dataset.EventRecord, column int) string {
	switch categoricalColumns[column] {
	case "user_id":
		return r.UserID
	case "location":
		return r.Location
	case "resource_type":
		return r.ResourceType
	case "resource_name":
		return r.ResourceName
	default:
		return r.AuthResult
	}
}
