package analytics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/threatlens-project/threatlens/internal/dataset"
)

// maxMonitoredUsers caps the user activity monitor. Truncation is a
// presentation policy: the dashboard carousel shows the top entries.
const maxMonitoredUsers = 5

const noThreatReason = "Normal activity: No threats detected."

type userStats struct {
	userID       string
	totalEvents  int
	threatEvents int
	lastActive   string
	locations    []string
	locationSeen map[string]struct{}
	threatTypes  []string
	threatSeen   map[string]struct{}
}

// ProfileUsers groups labeled records by user and synthesizes the
// ranked activity monitor. Users are grouped in ascending user_id
// order; the descending sort by threat count is stable on top of
// that, and only the top maxMonitoredUsers entries are kept.
func ProfileUsers(records []dataset.EventRecord) []UserActivity {
	byUser := make(map[string]*userStats)
	for _, r := range records {
		st, ok := byUser[r.UserID]
		if !ok {
			st = &userStats{
				userID:       r.UserID,
				locationSeen: make(map[string]struct{}),
				threatSeen:   make(map[string]struct{}),
			}
			byUser[r.UserID] = st
		}
		st.totalEvents++
		if ts := r.TimestampString(); ts > st.lastActive {
			st.lastActive = ts
		}
		if _, seen := st.locationSeen[r.Location]; !seen {
			st.locationSeen[r.Location] = struct{}{}
			st.locations = append(st.locations, r.Location)
		}
		if r.IsThreat {
			st.threatEvents++
			if _, seen := st.threatSeen[r.EventType]; !seen {
				st.threatSeen[r.EventType] = struct{}{}
				st.threatTypes = append(st.threatTypes, r.EventType)
			}
		}
	}

	users := make([]*userStats, 0, len(byUser))
	for _, st := range byUser {
		users = append(users, st)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].userID < users[j].userID })
	sort.SliceStable(users, func(i, j int) bool { return users[i].threatEvents > users[j].threatEvents })
	if len(users) > maxMonitoredUsers {
		users = users[:maxMonitoredUsers]
	}

	monitor := make([]UserActivity, len(users))
	for i, st := range users {
		monitor[i] = UserActivity{
			UserID:          st.userID,
			TotalEvents:     st.totalEvents,
			ThreatEvents:    st.threatEvents,
			LastActive:      st.lastActive,
			UniqueLocations: st.locations,
			AlertReason:     alertReason(st),
		}
	}
	return monitor
}

// alertReason explains why a user was flagged: the threat count plus
// the distinct threat types in the order they were first observed for
// that user.
func alertReason(st *userStats) string {
	if st.threatEvents == 0 {
		return noThreatReason
	}
	return fmt.Sprintf("High Risk: Detected %d threat event(s) including [%s]",
		st.threatEvents, strings.Join(st.threatTypes, ", "))
}
