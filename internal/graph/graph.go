// Package graph holds the static station and line reference data. It is
// loaded once at startup and is read-only afterwards, so lookups are safe
// from any number of concurrent queries without locking.
package graph

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/subwaycore/subway-go/internal/models"
)

//go:embed data/stations.json
var stationsJSON []byte

type lineData struct {
	North []string `json:"north"`
	South []string `json:"south,omitempty"`
}

type stationData struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Lines      []string `json:"lines"`
	GTFSStopID string   `json:"gtfs_stop_id"`
	Lat        float64  `json:"lat"`
	Lon        float64  `json:"lon"`
	Borough    string   `json:"borough"`
	Aliases    []string `json:"aliases,omitempty"`
}

type fileData struct {
	Stations []stationData       `json:"stations"`
	Lines    map[string]lineData `json:"lines"`
}

// Graph is the static station/line reference data.
type Graph struct {
	stations   map[string]*models.Station
	byGTFSID   map[string]*models.Station
	byAlias    map[string]string
	north      map[string][]string // line -> station ids in northbound order
	south      map[string][]string
	lineLabels []string
}

// Load builds the graph from the embedded reference data.
func Load() (*Graph, error) {
	var fd fileData
	if err := json.Unmarshal(stationsJSON, &fd); err != nil {
		return nil, fmt.Errorf("decoding embedded station data: %w", err)
	}

	stations := make([]models.Station, 0, len(fd.Stations))
	for _, sd := range fd.Stations {
		stations = append(stations, models.Station{
			ID:         sd.ID,
			Name:       sd.Name,
			Aliases:    sd.Aliases,
			Lines:      sd.Lines,
			GTFSStopID: sd.GTFSStopID,
			Location:   models.Location{Lat: sd.Lat, Lon: sd.Lon},
			Borough:    sd.Borough,
		})
	}

	sequences := make(map[string]LineSequences, len(fd.Lines))
	for line, ld := range fd.Lines {
		sequences[line] = LineSequences{North: ld.North, South: ld.South}
	}

	return New(stations, sequences)
}

// LineSequences holds a line's stop order per direction. South may be
// left empty, in which case it is derived by reversing North: the two
// directions are then reverse-consistent in membership by construction.
type LineSequences struct {
	North []string
	South []string
}

// New builds a graph from explicit station and line data. Used by Load
// and by tests that need small synthetic networks.
func New(stations []models.Station, lines map[string]LineSequences) (*Graph, error) {
	g := &Graph{
		stations: make(map[string]*models.Station, len(stations)),
		byGTFSID: make(map[string]*models.Station, len(stations)),
		byAlias:  make(map[string]string),
		north:    make(map[string][]string, len(lines)),
		south:    make(map[string][]string, len(lines)),
	}

	for i := range stations {
		s := &stations[i]
		if s.ID == "" {
			return nil, fmt.Errorf("station %q has no id", s.Name)
		}
		if len(s.Lines) == 0 {
			return nil, fmt.Errorf("station %s serves no lines", s.ID)
		}
		if _, dup := g.stations[s.ID]; dup {
			return nil, fmt.Errorf("duplicate station id %s", s.ID)
		}
		g.stations[s.ID] = s
		if s.GTFSStopID != "" {
			// A few stop ids are shared between complexes; first one wins.
			if _, ok := g.byGTFSID[s.GTFSStopID]; !ok {
				g.byGTFSID[s.GTFSStopID] = s
			}
		}
		for _, a := range s.Aliases {
			g.byAlias[strings.ToLower(a)] = s.ID
		}
	}

	for line, seq := range lines {
		north := g.knownOnly(seq.North)
		south := g.knownOnly(seq.South)
		if len(south) == 0 {
			south = reversed(north)
		}
		if err := validateSequence(line, north); err != nil {
			return nil, err
		}
		if err := validateSequence(line, south); err != nil {
			return nil, err
		}
		g.north[line] = north
		g.south[line] = south
		g.lineLabels = append(g.lineLabels, line)
	}
	sort.Strings(g.lineLabels)

	return g, nil
}

func (g *Graph) knownOnly(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := g.stations[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

func validateSequence(line string, ids []string) error {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return fmt.Errorf("line %s visits station %s twice in one direction", line, id)
		}
		seen[id] = true
	}
	return nil
}

func reversed(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = id
	}
	return out
}

// StationByID returns the station or false if the id is unknown.
func (g *Graph) StationByID(id string) (*models.Station, bool) {
	s, ok := g.stations[id]
	return s, ok
}

// StationByGTFSID maps an external feed stop id (without its direction
// suffix) back to a station.
func (g *Graph) StationByGTFSID(gtfsID string) (*models.Station, bool) {
	s, ok := g.byGTFSID[gtfsID]
	return s, ok
}

// Resolve looks a station up by id, then by stored alias. Full
// natural-language name resolution belongs to the caller; this only
// covers exact ids and curated aliases.
func (g *Graph) Resolve(idOrAlias string) (*models.Station, bool) {
	if s, ok := g.stations[idOrAlias]; ok {
		return s, true
	}
	if id, ok := g.byAlias[strings.ToLower(idOrAlias)]; ok {
		return g.stations[id], true
	}
	return nil, false
}

// LinesThrough returns the lines serving a station.
func (g *Graph) LinesThrough(stationID string) ([]string, bool) {
	s, ok := g.stations[stationID]
	if !ok {
		return nil, false
	}
	return s.Lines, true
}

// HasLine reports whether the line exists in the reference data.
func (g *Graph) HasLine(line string) bool {
	_, ok := g.north[line]
	return ok
}

// Lines returns all line labels in sorted order.
func (g *Graph) Lines() []string {
	out := make([]string, len(g.lineLabels))
	copy(out, g.lineLabels)
	return out
}

// SequenceIDs returns the station ids of a line in stop order for the
// given direction, or false if the line is unknown.
func (g *Graph) SequenceIDs(line string, dir models.Direction) ([]string, bool) {
	var seq []string
	var ok bool
	switch dir {
	case models.South:
		seq, ok = g.south[line]
	default:
		seq, ok = g.north[line]
	}
	return seq, ok
}

// StopsOnLine returns the stations of a line in stop order for the given
// direction.
func (g *Graph) StopsOnLine(line string, dir models.Direction) ([]models.Station, bool) {
	ids, ok := g.SequenceIDs(line, dir)
	if !ok {
		return nil, false
	}
	out := make([]models.Station, len(ids))
	for i, id := range ids {
		out[i] = *g.stations[id]
	}
	return out, true
}

// StationCount returns the number of stations loaded.
func (g *Graph) StationCount() int {
	return len(g.stations)
}

// NearestStations returns up to limit stations ordered by distance from
// the given coordinate.
func (g *Graph) NearestStations(lat, lon float64, limit int) []models.Station {
	type stationDist struct {
		station  *models.Station
		distance float64
	}

	var all []stationDist
	for _, s := range g.stations {
		d := distance(lat, lon, s.Location.Lat, s.Location.Lon)
		all = append(all, stationDist{s, d})
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].distance != all[j].distance {
			return all[i].distance < all[j].distance
		}
		return all[i].station.ID < all[j].station.ID
	})

	result := make([]models.Station, 0, limit)
	for i := 0; i < limit && i < len(all); i++ {
		result = append(result, *all[i].station)
	}
	return result
}

// distance calculates the distance between two points using the Haversine formula
func distance(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371 // Earth's radius in kilometers

	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return R * c
}
