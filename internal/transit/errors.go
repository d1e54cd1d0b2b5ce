package transit

import "errors"

// Sentinel errors returned by the engine. Callers distinguish them with
// errors.Is; everything else coming out of the engine wraps one of these
// with query context.
var (
	// ErrStationNotFound means a station id or alias did not resolve.
	ErrStationNotFound = errors.New("station not found")

	// ErrLineNotFound means a line label is not in the reference data.
	ErrLineNotFound = errors.New("line not found")

	// ErrUnreachable means no path or line run connects the stations in
	// the static graph.
	ErrUnreachable = errors.New("no route between stations")

	// ErrNoViableOption means the comparator could not build either
	// option, typically because no live arrivals were available.
	ErrNoViableOption = errors.New("no viable option to compare")
)
