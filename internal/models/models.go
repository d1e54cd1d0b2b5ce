package models

import (
	"time"
)

// Direction of travel along a line. NYC GTFS stop ids encode this as a
// trailing N/S suffix.
type Direction string

const (
	North Direction = "N"
	South Direction = "S"
)

// Location represents a geographic coordinate
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Station represents a subway station
type Station struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Aliases    []string `json:"aliases,omitempty"`
	Lines      []string `json:"lines"`
	GTFSStopID string   `json:"gtfs_stop_id"`
	Location   Location `json:"location"`
	Borough    string   `json:"borough,omitempty"`
}

// ServesLine reports whether the station is on the given line.
func (s *Station) ServesLine(line string) bool {
	for _, l := range s.Lines {
		if l == line {
			return true
		}
	}
	return false
}

// Arrival is a single real-time train arrival prediction at a station.
type Arrival struct {
	Line       string    `json:"line"`
	Direction  Direction `json:"direction"`
	Minutes    int       `json:"minutes"`
	TripID     string    `json:"trip_id,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
}

// RouteSegment is a run of consecutive stops on a single line.
type RouteSegment struct {
	Line          string   `json:"line"`
	FromStationID string   `json:"from"`
	ToStationID   string   `json:"to"`
	StopIDs       []string `json:"stops"`
	TravelMinutes int      `json:"travel_minutes"`
}

// Stops returns the number of hops in the segment.
func (s *RouteSegment) Stops() int {
	if len(s.StopIDs) == 0 {
		return 0
	}
	return len(s.StopIDs) - 1
}

// Route is a complete path between two stations, built fresh per query.
type Route struct {
	Segments     []RouteSegment `json:"segments"`
	TotalMinutes int            `json:"total_minutes"`
	Transfers    int            `json:"transfers"`
}

// CompareRequest names the corridor for a local-vs-express comparison.
// TransferStationID may equal FromStationID when both options board at
// the same station.
type CompareRequest struct {
	FromStationID     string   `json:"from"`
	ToStationID       string   `json:"to"`
	TransferStationID string   `json:"transfer"`
	CurrentLine       string   `json:"current_line"`
	AlternativeLines  []string `json:"alternative_lines"`
}

// CompareOption is one strategy in a comparison. A nil option in the
// result means the strategy could not be evaluated (no live data, or no
// path on the static graph) and was excluded rather than guessed at.
type CompareOption struct {
	Line          string `json:"line"`
	TotalMinutes  int    `json:"total_minutes"`
	WaitMinutes   int    `json:"wait_minutes"`
	TravelMinutes int    `json:"travel_minutes"`
}

// Comparison is the result of a local-vs-express decision. Recommended
// is 1 (stay on the current line) or 2 (take the alternative); ties go
// to 1 since transferring carries missed-connection risk the minute
// totals do not capture.
type Comparison struct {
	FromStationID     string         `json:"from"`
	ToStationID       string         `json:"to"`
	TransferStationID string         `json:"transfer"`
	Stay              *CompareOption `json:"stay,omitempty"`
	Switch            *CompareOption `json:"switch,omitempty"`
	Recommended       int            `json:"recommended"`
}
