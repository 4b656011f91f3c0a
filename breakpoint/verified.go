package breakpoint

import "github.com/dapcore/runtime/core"

// VerifiedBreakpoint is an adapter's response to one entry of a
// setBreakpoints call: the adapter-assigned ID, whether it was accepted,
// the location actually installed (which may differ from what was
// requested), and a weak back-reference to the UserBreakpoint that
// produced it. Its lifetime is bounded by its Session and its Source:
// syncBreakpoints replaces the whole set atomically.
type VerifiedBreakpoint struct {
	ID                int
	Verified          bool
	Message           string
	RequestedLocation core.Location
	ActualLocation    core.Location
	Origin            *UserBreakpoint
}

// MatchesLocation reports whether loc matches either the location the
// user asked for or the one the adapter actually installed. Both are
// valid match targets; an adapter-adjusted column should not hide a
// breakpoint from a query for its original, requested position.
func (v *VerifiedBreakpoint) MatchesLocation(loc core.Location) bool {
	return v.RequestedLocation.Equal(loc) || v.ActualLocation.Equal(loc)
}
