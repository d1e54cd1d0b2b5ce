package transit

import (
	"context"
	"errors"
	"testing"

	"github.com/subwaycore/subway-go/internal/graph"
	"github.com/subwaycore/subway-go/internal/models"
)

func TestFindRouteIdentity(t *testing.T) {
	e := newTestEngine(t, nil)

	route, err := e.FindRoute(context.Background(), "a", "a")
	if err != nil {
		t.Fatalf("FindRoute failed: %v", err)
	}
	if route.TotalMinutes != 0 || route.Transfers != 0 || len(route.Segments) != 0 {
		t.Errorf("Expected empty route, got %+v", route)
	}
}

func TestFindRouteDirect(t *testing.T) {
	e := newTestEngine(t, nil)

	route, err := e.FindRoute(context.Background(), "b", "d")
	if err != nil {
		t.Fatalf("FindRoute failed: %v", err)
	}
	if route.TotalMinutes != 4 || route.Transfers != 0 {
		t.Errorf("Expected 4 minutes with no transfers, got %+v", route)
	}
	if len(route.Segments) != 1 || route.Segments[0].Line != "L" {
		t.Fatalf("Expected one segment on L, got %+v", route.Segments)
	}
	want := []string{"b", "c", "d"}
	got := route.Segments[0].StopIDs
	if len(got) != len(want) {
		t.Fatalf("Expected stops %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Stop %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestFindRoutePrefersExpress(t *testing.T) {
	e := newTestEngine(t, nil)

	// Local is 4 hops, express is 2.
	route, err := e.FindRoute(context.Background(), "a", "e")
	if err != nil {
		t.Fatalf("FindRoute failed: %v", err)
	}
	if route.TotalMinutes != 4 || route.Transfers != 0 {
		t.Errorf("Expected the 4-minute express run, got %+v", route)
	}
	if len(route.Segments) != 1 || route.Segments[0].Line != "X" {
		t.Errorf("Expected a single X segment, got %+v", route.Segments)
	}
}

func TestFindRouteWithTransfer(t *testing.T) {
	e := newTestEngine(t, nil)

	// b is only on L, f is only on S; the shuttle connects at c.
	route, err := e.FindRoute(context.Background(), "b", "f")
	if err != nil {
		t.Fatalf("FindRoute failed: %v", err)
	}
	if route.Transfers != 1 {
		t.Errorf("Expected 1 transfer, got %d", route.Transfers)
	}
	// 2 min to c, 5 min penalty, 2 min to f.
	if route.TotalMinutes != 9 {
		t.Errorf("Expected 9 minutes, got %d", route.TotalMinutes)
	}
	if len(route.Segments) != 2 {
		t.Fatalf("Expected 2 segments, got %+v", route.Segments)
	}
	first, second := route.Segments[0], route.Segments[1]
	if first.Line != "L" || first.FromStationID != "b" || first.ToStationID != "c" {
		t.Errorf("Unexpected first segment: %+v", first)
	}
	if second.Line != "S" || second.FromStationID != "c" || second.ToStationID != "f" {
		t.Errorf("Unexpected second segment: %+v", second)
	}
}

func TestFindRouteUnreachable(t *testing.T) {
	e := newTestEngine(t, nil)

	if _, err := e.FindRoute(context.Background(), "a", "island"); !errors.Is(err, ErrUnreachable) {
		t.Errorf("Expected ErrUnreachable, got %v", err)
	}
}

func TestFindRouteUnknownStation(t *testing.T) {
	e := newTestEngine(t, nil)

	if _, err := e.FindRoute(context.Background(), "a", "atlantis"); !errors.Is(err, ErrStationNotFound) {
		t.Errorf("Expected ErrStationNotFound, got %v", err)
	}
}

func TestFindRouteTieBreaksTowardFewerTransfers(t *testing.T) {
	stations := []models.Station{
		{ID: "p", Name: "P", Lines: []string{"1"}, GTFSStopID: "P"},
		{ID: "q", Name: "Q", Lines: []string{"1", "2"}, GTFSStopID: "Q"},
		{ID: "r", Name: "R", Lines: []string{"1", "2"}, GTFSStopID: "R"},
	}
	lines := map[string]graph.LineSequences{
		"1": {North: []string{"p", "q", "r"}},
		"2": {North: []string{"q", "r"}},
	}
	g, err := graph.New(stations, lines)
	if err != nil {
		t.Fatal(err)
	}

	e := NewEngine(g, &fakeArrivals{})
	// Staying on 1: 120 + 480 = 600s. Transferring at q to the faster
	// 2: 120 + 300 penalty + 180 = 600s. Equal time, fewer transfers
	// must win.
	e.SetScheduleIndex(synthIndex(t, []seg{
		{from: "P", to: "Q", route: "1", seconds: 120},
		{from: "Q", to: "R", route: "1", seconds: 480},
		{from: "Q", to: "R", route: "2", seconds: 180},
	}))

	route, err := e.FindRoute(context.Background(), "p", "r")
	if err != nil {
		t.Fatalf("FindRoute failed: %v", err)
	}
	if route.Transfers != 0 {
		t.Errorf("Expected the no-transfer path on the tie, got %d transfers", route.Transfers)
	}
	if len(route.Segments) != 1 || route.Segments[0].Line != "1" {
		t.Errorf("Expected a single segment on line 1, got %+v", route.Segments)
	}
	if route.TotalMinutes != 10 {
		t.Errorf("Expected 10 minutes, got %d", route.TotalMinutes)
	}
}
