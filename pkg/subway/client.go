// Package subway exposes the routing engine behind a client interface,
// so callers do not care whether data comes from in-process computation
// or a remote service.
package subway

import (
	"context"

	"github.com/subwaycore/subway-go/internal/models"
)

// Client is the surface consumed by front ends: HTTP handlers, the CLI
// and any in-process caller.
type Client interface {
	// FindRoute computes the fastest path between two stations.
	FindRoute(ctx context.Context, fromID, toID string) (*models.Route, error)

	// TravelTimeOnLine estimates minutes between two stations riding a
	// single line.
	TravelTimeOnLine(ctx context.Context, fromID, toID, line string) (int, error)

	// GetArrivals returns upcoming arrivals at a station, soonest
	// first. Empty means no live data, not no service.
	GetArrivals(ctx context.Context, stationID string, lines []string) ([]models.Arrival, error)

	// Compare weighs staying on the current line against switching to
	// an alternative across a corridor.
	Compare(ctx context.Context, req models.CompareRequest) (*models.Comparison, error)

	// Station resolves a station by id or alias.
	Station(idOrAlias string) (*models.Station, error)

	// StationsOnLine lists a line's stations in northbound stop order.
	StationsOnLine(line string) ([]models.Station, error)

	// Lines lists all known line labels.
	Lines() []string

	// NearestStations returns up to limit stations by distance from a
	// coordinate.
	NearestStations(lat, lon float64, limit int) []models.Station
}
