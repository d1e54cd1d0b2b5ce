// Package transit implements the routing engine: per-line travel times
// backed by schedule data with an estimated fallback, shortest-path
// planning across the network, and the local-versus-express comparison
// that merges static travel times with live arrivals.
package transit

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/subwaycore/subway-go/internal/graph"
	"github.com/subwaycore/subway-go/internal/gtfs"
	"github.com/subwaycore/subway-go/internal/models"
)

const (
	// fallbackSegmentSeconds estimates one hop when no schedule data
	// covers it.
	fallbackSegmentSeconds = 120

	// transferPenaltySeconds is the cost of changing lines mid-route.
	transferPenaltySeconds = 300
)

// ArrivalSource supplies live arrival predictions for a station. An
// empty result means no real-time data, never that no trains run.
type ArrivalSource interface {
	GetArrivals(ctx context.Context, station *models.Station, lines []string) []models.Arrival
}

// Engine answers routing and comparison queries over the static graph,
// the schedule index and live arrivals. Safe for concurrent use; the
// schedule index is swapped atomically and may be absent, in which case
// every segment uses the estimated fallback.
type Engine struct {
	graph    *graph.Graph
	arrivals ArrivalSource
	schedule atomic.Pointer[gtfs.Index]
}

// NewEngine creates an engine without schedule data. Call
// SetScheduleIndex once the index is available.
func NewEngine(g *graph.Graph, arrivals ArrivalSource) *Engine {
	return &Engine{graph: g, arrivals: arrivals}
}

// SetScheduleIndex atomically installs a schedule index. In-flight
// queries keep using whichever index they already read.
func (e *Engine) SetScheduleIndex(idx *gtfs.Index) {
	e.schedule.Store(idx)
}

// Station resolves a station by id or alias.
func (e *Engine) Station(idOrAlias string) (*models.Station, error) {
	s, ok := e.graph.Resolve(idOrAlias)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStationNotFound, idOrAlias)
	}
	return s, nil
}

// StationsOnLine returns a line's stations in northbound stop order.
func (e *Engine) StationsOnLine(line string) ([]models.Station, error) {
	stops, ok := e.graph.StopsOnLine(line, models.North)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLineNotFound, line)
	}
	return stops, nil
}

// Lines returns all known line labels.
func (e *Engine) Lines() []string {
	return e.graph.Lines()
}

// GetArrivals returns upcoming arrivals at a station, soonest first.
func (e *Engine) GetArrivals(ctx context.Context, stationID string, lines []string) ([]models.Arrival, error) {
	station, err := e.Station(stationID)
	if err != nil {
		return nil, err
	}
	return e.arrivals.GetArrivals(ctx, station, lines), nil
}

// TravelTimeOnLine estimates the minutes to ride from one station to
// another without leaving the given line. It returns ErrUnreachable when
// no direction of the line passes through both stations in order.
func (e *Engine) TravelTimeOnLine(ctx context.Context, fromID, toID, line string) (int, error) {
	from, err := e.Station(fromID)
	if err != nil {
		return 0, err
	}
	to, err := e.Station(toID)
	if err != nil {
		return 0, err
	}
	if !e.graph.HasLine(line) {
		return 0, fmt.Errorf("%w: %s", ErrLineNotFound, line)
	}
	if from.ID == to.ID {
		return 0, nil
	}

	run, _, ok := e.lineRun(line, from.ID, to.ID)
	if !ok {
		return 0, fmt.Errorf("%w: %s to %s on line %s", ErrUnreachable, from.ID, to.ID, line)
	}

	seconds := 0
	for i := 0; i < len(run)-1; i++ {
		seconds += e.segmentSeconds(run[i], run[i+1], line)
	}
	return minutesFromSeconds(seconds), nil
}

// lineRun returns the station ids visited riding the line from one
// station to the other, in whichever direction contains both in order.
func (e *Engine) lineRun(line, fromID, toID string) ([]string, models.Direction, bool) {
	for _, dir := range []models.Direction{models.North, models.South} {
		seq, ok := e.graph.SequenceIDs(line, dir)
		if !ok {
			continue
		}
		fromIdx, toIdx := -1, -1
		for i, id := range seq {
			switch id {
			case fromID:
				fromIdx = i
			case toID:
				toIdx = i
			}
		}
		if fromIdx >= 0 && toIdx >= 0 && fromIdx < toIdx {
			return seq[fromIdx : toIdx+1], dir, true
		}
	}
	return nil, "", false
}

// directionOfTravel reports which direction a rider boards to get from
// one station to the other on a line.
func (e *Engine) directionOfTravel(line, fromID, toID string) (models.Direction, bool) {
	_, dir, ok := e.lineRun(line, fromID, toID)
	return dir, ok
}

// segmentSeconds resolves the travel time of one hop between adjacent
// stops on a line. Precedence: the scheduled minimum for the exact stop
// pair, then the scheduled minimum for the reversed pair (subway timing
// is near-symmetric, and many lines only have trips indexed in one
// direction), then the fixed per-stop estimate.
func (e *Engine) segmentSeconds(fromID, toID, line string) int {
	idx := e.schedule.Load()
	if idx == nil {
		return fallbackSegmentSeconds
	}

	from, ok := e.graph.StationByID(fromID)
	if !ok {
		return fallbackSegmentSeconds
	}
	to, ok := e.graph.StationByID(toID)
	if !ok {
		return fallbackSegmentSeconds
	}

	if sec, ok := idx.Seconds(from.GTFSStopID, to.GTFSStopID, line); ok {
		return sec
	}
	if sec, ok := idx.Seconds(to.GTFSStopID, from.GTFSStopID, line); ok {
		return sec
	}
	return fallbackSegmentSeconds
}

// minutesFromSeconds rounds up so estimates never understate a trip.
func minutesFromSeconds(sec int) int {
	return (sec + 59) / 60
}
