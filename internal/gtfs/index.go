package gtfs

import (
	"sort"
	"strings"
)

// Deltas between consecutive stops above this are treated as data noise
// (layovers, depot moves) and dropped.
const maxSegmentSeconds = 1800

type segmentKey struct {
	From  string
	To    string
	Route string
}

// Index maps (from stop, to stop, route) to the minimum scheduled travel
// time in seconds observed across all trips. Keeping the minimum captures
// the fastest scheduled run, which is what separates express from local
// service without any explicit tagging. Immutable once built.
type Index struct {
	seconds map[segmentKey]int
}

// Seconds returns the indexed travel time for a stop pair on a route.
func (i *Index) Seconds(fromStopID, toStopID, routeID string) (int, bool) {
	s, ok := i.seconds[segmentKey{From: fromStopID, To: toStopID, Route: routeID}]
	return s, ok
}

// Len returns the number of indexed segments.
func (i *Index) Len() int {
	return len(i.seconds)
}

// BuildIndex computes the per-segment minimum travel times from a parsed
// schedule. Stop ids are normalized by stripping the trailing N/S
// direction suffix so that both directions key on the parent stop id.
func BuildIndex(sched *Schedule) *Index {
	routeByTrip := make(map[string]string, len(sched.Trips))
	for _, trip := range sched.Trips {
		routeByTrip[trip.ID] = trip.RouteID
	}

	byTrip := make(map[string][]StopTime)
	for _, st := range sched.StopTimes {
		byTrip[st.TripID] = append(byTrip[st.TripID], st)
	}

	idx := &Index{seconds: make(map[segmentKey]int)}
	for tripID, stops := range byTrip {
		routeID := routeByTrip[tripID]
		if routeID == "" {
			continue
		}

		sort.Slice(stops, func(i, j int) bool {
			return stops[i].StopSequence < stops[j].StopSequence
		})

		for i := 0; i < len(stops)-1; i++ {
			depart, ok := parseClock(stops[i].DepartureTime)
			if !ok {
				continue
			}
			arrive, ok := parseClock(stops[i+1].ArrivalTime)
			if !ok {
				continue
			}
			// Scheduled clocks can wrap past midnight mid-trip.
			if arrive < depart {
				arrive += 24 * 3600
			}
			delta := arrive - depart
			if delta < 0 || delta > maxSegmentSeconds {
				continue
			}

			key := segmentKey{
				From:  normalizeStopID(stops[i].StopID),
				To:    normalizeStopID(stops[i+1].StopID),
				Route: routeID,
			}
			if prev, ok := idx.seconds[key]; !ok || delta < prev {
				idx.seconds[key] = delta
			}
		}
	}
	return idx
}

// normalizeStopID strips the single trailing N/S direction suffix used by
// the NYC feeds, so index keys line up with station-level stop ids.
func normalizeStopID(stopID string) string {
	if len(stopID) > 1 && (strings.HasSuffix(stopID, "N") || strings.HasSuffix(stopID, "S")) {
		return stopID[:len(stopID)-1]
	}
	return stopID
}

// parseClock converts an HH:MM:SS value to seconds since midnight. GTFS
// allows hours of 24 and above for service running past midnight.
func parseClock(v string) (int, bool) {
	parts := strings.Split(v, ":")
	if len(parts) != 3 {
		return 0, false
	}
	var total int
	for _, p := range parts {
		n := 0
		if p == "" {
			return 0, false
		}
		for _, c := range p {
			if c < '0' || c > '9' {
				return 0, false
			}
			n = n*10 + int(c-'0')
		}
		total = total*60 + n
	}
	return total, true
}
