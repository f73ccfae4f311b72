package dataset

import "time"

// TimestampLayout is the canonical event timestamp format.
const TimestampLayout = "2006-01-02 15:04:05"

// EventRecord is one row of a security event log. The derived fields
// are zero until the record passes through the Labeler; downstream
// stages treat labeled records as immutable.
type EventRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	UserID       string    `json:"user_id"`
	EventType    string    `json:"event_type"`
	EventValue   int       `json:"event_value"`
	DeviceID     string    `json:"device_id"`
	IPAddress    string    `json:"ip_address"`
	Location     string    `json:"location"`
	AuthResult   string    `json:"auth_result"`
	ResourceType string    `json:"resource_type"`
	ResourceName string    `json:"resource_name"`

	// Derived by the Labeler.
	IsThreat  bool `json:"is_threat"`
	Hour      int  `json:"hour"`
	DayOfWeek int  `json:"day_of_week"` // Monday=0 .. Sunday=6
}

// TimestampString returns the canonical string form, the value used
// for last_active comparisons.
func (r *EventRecord) TimestampString() string {
	return r.Timestamp.Format(TimestampLayout)
}

// Date returns the calendar date part, the key used for per-day counts.
func (r *EventRecord) Date() string {
	return r.Timestamp.Format("2006-01-02")
}

// Labeler derives is_threat, hour, and day_of_week. The threat event
// set comes from configuration; it is the only input to is_threat.
type Labeler struct {
	threatTypes map[string]struct{}
}

// NewLabeler builds a Labeler for the given threat event set.
func NewLabeler(threatEventTypes []string) *Labeler {
	set := make(map[string]struct{}, len(threatEventTypes))
	for _, t := range threatEventTypes {
		set[t] = struct{}{}
	}
	return &Labeler{threatTypes: set}
}

// IsThreat reports whether an event type is in the configured threat
// set. Unrecognized types are not threats — never an error.
func (l *Labeler) IsThreat(eventType string) bool {
	_, ok := l.threatTypes[eventType]
	return ok
}

// Label returns a new slice of labeled copies; the input is untouched.
func (l *Labeler) Label(records []EventRecord) []EventRecord {
	labeled := make([]EventRecord, len(records))
	for i, r := range records {
		r.IsThreat = l.IsThreat(r.EventType)
		r.Hour = r.Timestamp.Hour()
		// time.Weekday counts Sunday=0; the pipeline counts Monday=0.
		r.DayOfWeek = (int(r.Timestamp.Weekday()) + 6) % 7
		labeled[i] = r
	}
	return labeled
}
