package breakpoint

import (
	"context"
	"sort"

	"github.com/google/go-dap"

	"github.com/dapcore/runtime/core"
)

// DisambiguateAction names the user action that triggered candidate
// resolution, passed through to a Disambiguator so it can tailor its
// prompt (e.g. a "toggle" shows different wording than an "add").
type DisambiguateAction string

const (
	ActionToggle DisambiguateAction = "toggle"
	ActionAdd    DisambiguateAction = "add"
)

// Disambiguator picks one of several candidate columns an adapter
// offered for the same line, given the original requested Location and
// the action that triggered resolution. It returns the chosen candidate,
// or a nil *core.Location with ok=false if the user declined outright, or
// a nil *core.Location with ok=true if none of the candidates should be
// treated as matching an existing breakpoint (the caller should create a
// fresh one at originalLoc instead).
type Disambiguator func(ctx context.Context, candidates []core.Location, originalLoc core.Location, action DisambiguateAction) (chosen *core.Location, ok bool)

// DefaultDisambiguator implements the headless default policy: the
// candidate with the smallest column greater than or equal to the
// original column, breaking ties by smallest column; if no candidate is at
// or above the original column, the smallest column is chosen. It never
// declines, and reports "no match" only for an empty candidate list —
// callers needing interactive behavior should supply their own
// Disambiguator.
func DefaultDisambiguator(_ context.Context, candidates []core.Location, originalLoc core.Location, _ DisambiguateAction) (*core.Location, bool) {
	if len(candidates) == 0 {
		return nil, true
	}
	sorted := append([]core.Location(nil), candidates...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ColumnOr(0) < sorted[j].ColumnOr(0)
	})
	original := originalLoc.ColumnOr(0)
	for _, c := range sorted {
		if c.ColumnOr(0) >= original {
			chosen := c
			return &chosen, true
		}
	}
	chosen := sorted[0]
	return &chosen, true
}

// ResolveLocation implements the candidate resolution protocol for an
// input Location. If loc already carries a column, or the adapter does
// not advertise breakpointLocations support, loc is returned unchanged.
// Otherwise the adapter is queried for candidate columns on loc's line
// and disambiguate picks among them.
func ResolveLocation(
	ctx context.Context,
	req Requester,
	source dap.Source,
	loc core.Location,
	action DisambiguateAction,
	disambiguate Disambiguator,
) (core.Location, error) {
	if loc.HasColumn() || !req.SupportsBreakpointLocations() {
		return loc, nil
	}

	raw, err := req.BreakpointLocations(ctx, source, loc.Line, nil)
	if err != nil {
		return loc, err
	}
	if len(raw) == 0 {
		return loc, nil
	}

	candidates := make([]core.Location, 0, len(raw))
	for _, bl := range raw {
		candidates = append(candidates, core.NewPointLocation(loc.URI, bl.Line, bl.Column))
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}

	if disambiguate == nil {
		disambiguate = DefaultDisambiguator
	}
	chosen, ok := disambiguate(ctx, candidates, loc, action)
	if !ok {
		return loc, &core.Cancelled{Command: "breakpointLocations"}
	}
	if chosen == nil {
		return loc, nil
	}
	return *chosen, nil
}
