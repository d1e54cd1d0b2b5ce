package transit

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/subwaycore/subway-go/internal/models"
)

// transferBufferMinutes covers disembarking and walking to the other
// platform. An alternative train arriving inside the buffer is not
// catchable.
const transferBufferMinutes = 1

// Compare weighs staying on the current line against switching to an
// alternative, using live arrivals for waits and the static model for
// riding time. An option that cannot be evaluated (no arrivals, no run
// on the line) is excluded rather than guessed at; if both options are
// excluded the result is ErrNoViableOption.
func (e *Engine) Compare(ctx context.Context, req models.CompareRequest) (*models.Comparison, error) {
	from, err := e.Station(req.FromStationID)
	if err != nil {
		return nil, err
	}
	to, err := e.Station(req.ToStationID)
	if err != nil {
		return nil, err
	}
	transfer := from
	if req.TransferStationID != "" && req.TransferStationID != from.ID {
		if transfer, err = e.Station(req.TransferStationID); err != nil {
			return nil, err
		}
	}
	if !e.graph.HasLine(req.CurrentLine) {
		return nil, fmt.Errorf("%w: %s", ErrLineNotFound, req.CurrentLine)
	}
	for _, line := range req.AlternativeLines {
		if !e.graph.HasLine(line) {
			return nil, fmt.Errorf("%w: %s", ErrLineNotFound, line)
		}
	}

	// Staying is priced the same way in both cases: board at the origin
	// and ride the current line end to end.
	stay := e.sameStationOption(ctx, from, to, req.CurrentLine)

	var alt *models.CompareOption
	if transfer.ID == from.ID {
		alt = e.bestSameStationAlternative(ctx, from, to, req.AlternativeLines)
	} else {
		alt = e.bestTransferAlternative(ctx, from, transfer, to, req.CurrentLine, req.AlternativeLines)
	}

	if stay == nil && alt == nil {
		return nil, fmt.Errorf("%w: %s to %s", ErrNoViableOption, from.ID, to.ID)
	}

	// Ties go to staying; a transfer carries missed-connection risk the
	// minute totals do not capture.
	recommended := 1
	if stay == nil || (alt != nil && alt.TotalMinutes < stay.TotalMinutes) {
		recommended = 2
	}

	return &models.Comparison{
		FromStationID:     from.ID,
		ToStationID:       to.ID,
		TransferStationID: transfer.ID,
		Stay:              stay,
		Switch:            alt,
		Recommended:       recommended,
	}, nil
}

// sameStationOption prices boarding a line at the origin and riding it
// straight to the destination.
func (e *Engine) sameStationOption(ctx context.Context, from, to *models.Station, line string) *models.CompareOption {
	travel, err := e.TravelTimeOnLine(ctx, from.ID, to.ID, line)
	if err != nil {
		return nil
	}
	wait, ok := e.nextWait(ctx, from, to, line)
	if !ok {
		return nil
	}
	return &models.CompareOption{
		Line:          line,
		WaitMinutes:   wait,
		TravelMinutes: travel,
		TotalMinutes:  wait + travel,
	}
}

func (e *Engine) bestSameStationAlternative(ctx context.Context, from, to *models.Station, lines []string) *models.CompareOption {
	var best *models.CompareOption
	for _, line := range lines {
		opt := e.sameStationOption(ctx, from, to, line)
		if opt != nil && (best == nil || opt.TotalMinutes < best.TotalMinutes) {
			best = opt
		}
	}
	return best
}

// bestTransferAlternative prices riding the current line to the transfer
// station and catching an alternative line there. Catchable means the
// alternative arrives no earlier than our own arrival plus the transfer
// buffer.
func (e *Engine) bestTransferAlternative(ctx context.Context, from, transfer, to *models.Station, currentLine string, lines []string) *models.CompareOption {
	ride, err := e.TravelTimeOnLine(ctx, from.ID, transfer.ID, currentLine)
	if err != nil {
		return nil
	}
	wait, ok := e.nextWait(ctx, from, transfer, currentLine)
	if !ok {
		return nil
	}
	atTransfer := wait + ride

	var best *models.CompareOption
	for _, line := range lines {
		travel, err := e.TravelTimeOnLine(ctx, transfer.ID, to.ID, line)
		if err != nil {
			continue
		}
		catch, ok := e.firstCatchable(ctx, transfer, to, line, atTransfer+transferBufferMinutes)
		if !ok {
			log.Debug().
				Str("line", line).
				Str("transfer", transfer.ID).
				Int("earliest", atTransfer+transferBufferMinutes).
				Msg("No catchable arrival for alternative line")
			continue
		}
		opt := &models.CompareOption{
			Line:          line,
			WaitMinutes:   wait + (catch - atTransfer),
			TravelMinutes: ride + travel,
			TotalMinutes:  catch + travel,
		}
		if best == nil || opt.TotalMinutes < best.TotalMinutes {
			best = opt
		}
	}
	return best
}

// nextWait returns the minutes until the next arrival of a line at a
// station, considering only trains heading toward the destination.
func (e *Engine) nextWait(ctx context.Context, at, toward *models.Station, line string) (int, bool) {
	dir, ok := e.directionOfTravel(line, at.ID, toward.ID)
	if !ok {
		return 0, false
	}
	for _, a := range e.arrivals.GetArrivals(ctx, at, []string{line}) {
		if a.Direction == dir || a.Direction == "" {
			return a.Minutes, true
		}
	}
	return 0, false
}

// firstCatchable returns the minutes mark of the first arrival of a line
// at the transfer station, heading toward the destination, at or after
// the earliest catchable mark.
func (e *Engine) firstCatchable(ctx context.Context, at, toward *models.Station, line string, earliest int) (int, bool) {
	dir, ok := e.directionOfTravel(line, at.ID, toward.ID)
	if !ok {
		return 0, false
	}
	for _, a := range e.arrivals.GetArrivals(ctx, at, []string{line}) {
		if a.Direction != dir && a.Direction != "" {
			continue
		}
		if a.Minutes >= earliest {
			return a.Minutes, true
		}
	}
	return 0, false
}
