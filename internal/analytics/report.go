package analytics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Report is the final decision-support structure, produced fresh per
// invocation. Key names and section ordering are part of the contract
// consumed by the dashboard.
type Report struct {
	ModelPerformance    ModelPerformance `json:"model_performance"`
	ThreatAnalytics     ThreatAnalytics  `json:"threat_analytics"`
	UserActivityMonitor []UserActivity   `json:"user_activity_monitor"`
}

// ModelPerformance summarizes the held-out evaluation.
type ModelPerformance struct {
	Accuracy string `json:"accuracy"`
	Status   string `json:"status"`
}

// ThreatAnalytics aggregates the labeled records, independent of the
// trained model.
type ThreatAnalytics struct {
	TotalThreatCount      int                 `json:"total_threat_count"`
	ThreatsPerDay         *OrderedMap[int]    `json:"threats_per_day"`
	TopThreatSubclasses   *OrderedMap[int]    `json:"top_threat_subclasses"`
	RiskPercentageByEvent *OrderedMap[string] `json:"risk_percentage_by_event"`
}

// UserActivity is one entry of the user activity monitor.
type UserActivity struct {
	UserID          string   `json:"user_id"`
	TotalEvents     int      `json:"total_events"`
	ThreatEvents    int      `json:"threat_events"`
	LastActive      string   `json:"last_active"`
	UniqueLocations []string `json:"unique_locations"`
	AlertReason     string   `json:"alert_reason"`
}

// AssembleReport merges the three upstream blocks. Pure and infallible
// given valid inputs.
func AssembleReport(perf ModelPerformance, threats ThreatAnalytics, users []UserActivity) *Report {
	return &Report{
		ModelPerformance:    perf,
		ThreatAnalytics:     threats,
		UserActivityMonitor: users,
	}
}

// NewModelPerformance formats an accuracy against the configured goal.
// A missed goal is reported, not raised — the report still ships.
func NewModelPerformance(accuracy, goal float64) ModelPerformance {
	status := "Goal Failed"
	if accuracy > goal {
		status = "Goal Met"
	}
	return ModelPerformance{
		Accuracy: fmt.Sprintf("%.2f%%", accuracy*100),
		Status:   status,
	}
}

// FormatPercent renders a percentage rounded to two decimals with the
// trailing hundredths zero dropped and at least one decimal kept:
// 100 -> "100.0%", 33.333 -> "33.33%", 12.5 -> "12.5%".
func FormatPercent(v float64) string {
	v = math.Round(v*100) / 100
	s := strconv.FormatFloat(v, 'f', 2, 64)
	if strings.HasSuffix(s, "0") {
		s = s[:len(s)-1]
	}
	return s + "%"
}

// OrderedMap is a string-keyed map that marshals to a JSON object in
// key insertion order. The report's ranking sections are ordered maps
// by contract, which a plain Go map cannot express.
type OrderedMap[V any] struct {
	keys   []string
	values map[string]V
}

// NewOrderedMap returns an empty ordered map.
func NewOrderedMap[V any]() *OrderedMap[V] {
	return &OrderedMap[V]{values: make(map[string]V)}
}

// Set inserts or replaces a key; first insertion fixes its position.
func (m *OrderedMap[V]) Set(key string, value V) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get looks up a key.
func (m *OrderedMap[V]) Get(key string) (V, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Len returns the number of entries.
func (m *OrderedMap[V]) Len() int { return len(m.keys) }

// Keys returns the keys in insertion order.
func (m *OrderedMap[V]) Keys() []string { return m.keys }

func (m *OrderedMap[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
