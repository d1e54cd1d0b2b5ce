package transit

import (
	"container/heap"
	"context"
	"fmt"

	"github.com/subwaycore/subway-go/internal/models"
)

// pathState is a Dijkstra node: being at a station having arrived on a
// particular line. Splitting by line lets transfers carry their penalty.
type pathState struct {
	stationID string
	line      string
}

type pathCost struct {
	seconds   int
	transfers int
}

func (c pathCost) better(other pathCost) bool {
	if c.seconds != other.seconds {
		return c.seconds < other.seconds
	}
	return c.transfers < other.transfers
}

type queueItem struct {
	state pathState
	cost  pathCost
	index int
}

type priorityQueue []*queueItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool { return pq[i].cost.better(pq[j].cost) }

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x interface{}) {
	item := x.(*queueItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return item
}

// FindRoute computes the minimum-estimated-minutes path between two
// stations, tie-breaking toward fewer transfers. Each line change costs
// a fixed transfer penalty on top of riding time.
func (e *Engine) FindRoute(ctx context.Context, fromID, toID string) (*models.Route, error) {
	from, err := e.Station(fromID)
	if err != nil {
		return nil, err
	}
	to, err := e.Station(toID)
	if err != nil {
		return nil, err
	}
	if from.ID == to.ID {
		return &models.Route{}, nil
	}

	dist := make(map[pathState]pathCost)
	prev := make(map[pathState]pathState)

	pq := &priorityQueue{}
	heap.Init(pq)
	for _, line := range from.Lines {
		if !e.graph.HasLine(line) {
			continue
		}
		s := pathState{stationID: from.ID, line: line}
		dist[s] = pathCost{}
		heap.Push(pq, &queueItem{state: s, cost: pathCost{}})
	}

	var goal *pathState
	for pq.Len() > 0 {
		item := heap.Pop(pq).(*queueItem)
		if best, ok := dist[item.state]; ok && best.better(item.cost) {
			continue // stale queue entry
		}
		if item.state.stationID == to.ID {
			goal = &item.state
			break
		}

		for _, edge := range e.edgesFrom(item.state) {
			next := pathCost{
				seconds:   item.cost.seconds + edge.seconds,
				transfers: item.cost.transfers + edge.transfers,
			}
			if best, ok := dist[edge.to]; ok && !next.better(best) {
				continue
			}
			dist[edge.to] = next
			prev[edge.to] = item.state
			heap.Push(pq, &queueItem{state: edge.to, cost: next})
		}
	}

	if goal == nil {
		return nil, fmt.Errorf("%w: %s to %s", ErrUnreachable, from.ID, to.ID)
	}
	return e.buildRoute(from.ID, *goal, dist, prev), nil
}

type pathEdge struct {
	to        pathState
	seconds   int
	transfers int
}

func (e *Engine) edgesFrom(s pathState) []pathEdge {
	var edges []pathEdge

	// Ride to an adjacent stop in either direction of the current line.
	for _, dir := range []models.Direction{models.North, models.South} {
		seq, ok := e.graph.SequenceIDs(s.line, dir)
		if !ok {
			continue
		}
		for i, id := range seq {
			if id != s.stationID || i+1 >= len(seq) {
				continue
			}
			edges = append(edges, pathEdge{
				to:      pathState{stationID: seq[i+1], line: s.line},
				seconds: e.segmentSeconds(id, seq[i+1], s.line),
			})
		}
	}

	// Change lines in place.
	station, ok := e.graph.StationByID(s.stationID)
	if !ok {
		return edges
	}
	for _, line := range station.Lines {
		if line == s.line || !e.graph.HasLine(line) {
			continue
		}
		edges = append(edges, pathEdge{
			to:        pathState{stationID: s.stationID, line: line},
			seconds:   transferPenaltySeconds,
			transfers: 1,
		})
	}
	return edges
}

// buildRoute walks the predecessor chain back to the origin and folds
// consecutive same-line hops into segments.
func (e *Engine) buildRoute(fromID string, goal pathState, dist map[pathState]pathCost, prev map[pathState]pathState) *models.Route {
	var states []pathState
	for s := goal; ; {
		states = append(states, s)
		p, ok := prev[s]
		if !ok {
			break
		}
		s = p
	}
	for i, j := 0, len(states)-1; i < j; i, j = i+1, j-1 {
		states[i], states[j] = states[j], states[i]
	}

	route := &models.Route{}
	newSegment := func(s pathState) {
		route.Segments = append(route.Segments, models.RouteSegment{
			Line:          s.line,
			FromStationID: s.stationID,
			ToStationID:   s.stationID,
			StopIDs:       []string{s.stationID},
		})
	}
	for i, s := range states {
		if i == 0 {
			newSegment(s)
			continue
		}
		if states[i-1].stationID == s.stationID {
			// Line change in place; the next ride restarts here.
			newSegment(s)
			continue
		}
		seg := &route.Segments[len(route.Segments)-1]
		seg.StopIDs = append(seg.StopIDs, s.stationID)
		seg.ToStationID = s.stationID
	}

	for i := range route.Segments {
		seg := &route.Segments[i]
		seconds := 0
		for j := 0; j < len(seg.StopIDs)-1; j++ {
			seconds += e.segmentSeconds(seg.StopIDs[j], seg.StopIDs[j+1], seg.Line)
		}
		seg.TravelMinutes = minutesFromSeconds(seconds)
	}

	cost := dist[goal]
	route.TotalMinutes = minutesFromSeconds(cost.seconds)
	route.Transfers = cost.transfers
	return route
}
