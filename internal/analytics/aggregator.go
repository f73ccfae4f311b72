package analytics

import (
	"sort"

	"github.com/threatlens-project/threatlens/internal/dataset"
)

// maxTopSubclasses caps the top_threat_subclasses ranking.
const maxTopSubclasses = 10

// Aggregate computes the threat analytics block from labeled records.
// Pure function, no model dependency.
func Aggregate(records []dataset.EventRecord) ThreatAnalytics {
	totalThreats := 0

	perDay := make(map[string]int)

	// Subclass counts keep first-seen order for the ranking tie-break.
	subclassCounts := make(map[string]int)
	var subclassOrder []string

	type eventStats struct{ total, threats int }
	byEvent := make(map[string]*eventStats)

	for _, r := range records {
		st, ok := byEvent[r.EventType]
		if !ok {
			st = &eventStats{}
			byEvent[r.EventType] = st
		}
		st.total++

		if !r.IsThreat {
			continue
		}
		totalThreats++
		st.threats++
		perDay[r.Date()]++
		if _, seen := subclassCounts[r.EventType]; !seen {
			subclassOrder = append(subclassOrder, r.EventType)
		}
		subclassCounts[r.EventType]++
	}

	// threats_per_day: sparse, chronological. Dates with zero threats
	// never appear.
	days := make([]string, 0, len(perDay))
	for d := range perDay {
		days = append(days, d)
	}
	sort.Strings(days)
	threatsPerDay := NewOrderedMap[int]()
	for _, d := range days {
		threatsPerDay.Set(d, perDay[d])
	}

	// top_threat_subclasses: descending by count, ties broken by
	// first-seen order in the input.
	sort.SliceStable(subclassOrder, func(i, j int) bool {
		return subclassCounts[subclassOrder[i]] > subclassCounts[subclassOrder[j]]
	})
	if len(subclassOrder) > maxTopSubclasses {
		subclassOrder = subclassOrder[:maxTopSubclasses]
	}
	topSubclasses := NewOrderedMap[int]()
	for _, t := range subclassOrder {
		topSubclasses.Set(t, subclassCounts[t])
	}

	// risk_percentage_by_event: every observed type, ascending key order.
	types := make([]string, 0, len(byEvent))
	for t := range byEvent {
		types = append(types, t)
	}
	sort.Strings(types)
	risk := NewOrderedMap[string]()
	for _, t := range types {
		st := byEvent[t]
		risk.Set(t, FormatPercent(float64(st.threats)/float64(st.total)*100))
	}

	return ThreatAnalytics{
		TotalThreatCount:      totalThreats,
		ThreatsPerDay:         threatsPerDay,
		TopThreatSubclasses:   topSubclasses,
		RiskPercentageByEvent: risk,
	}
}
