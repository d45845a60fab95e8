package dateconv

import (
	"time"

	"github.com/greymass/workutils/libraries/timeconv"
)

// State is everything the date panel displays. With Error empty the five
// time fields all denote the same instant.
type State struct {
	Timestamp  string        `json:"timestamp"`
	UTCDate    timeconv.Date `json:"utc_date"`
	UTCISO     string        `json:"utc_iso"`
	CustomZone string        `json:"custom_zone"`
	CustomDate timeconv.Date `json:"custom_date"`
	CustomISO  string        `json:"custom_iso"`
	Block      string        `json:"block"`
	Loading    bool          `json:"loading"`
	Error      string        `json:"error,omitempty"`
}

// DefaultState shows the epoch in UTC in both columns.
func DefaultState() State {
	var s State
	s.render(0, time.UTC)
	s.Block = "0"
	return s
}

func (s *State) render(i timeconv.Instant, zone *time.Location) {
	s.Timestamp = i.String()
	s.UTCDate, s.UTCISO = timeconv.Encode(i, time.UTC)
	s.CustomZone = zone.String()
	s.CustomDate, s.CustomISO = timeconv.Encode(i, zone)
	s.Error = ""
}
