package breakpoint

import (
	"context"
	"sync"

	"github.com/google/go-dap"

	"github.com/dapcore/runtime/core"
	"github.com/dapcore/runtime/entity"
)

// Source wraps an *entity.Source with the per-(Session,Source) set of
// VerifiedBreakpoints currently installed on the adapter. entity.Source
// stays pure identity (name, path, sourceReference) so package entity
// never depends on package breakpoint; this wrapper is what gives a
// Source its breakpoint state, one instance per Session.
type Source struct {
	Entity *entity.Source
	req    Requester

	// syncMu serializes setBreakpoints calls for this Source: a
	// SyncBreakpoints call blocks until any in-flight one finishes, then
	// reads the Store fresh — which is how a second call made while one
	// is in flight ends up coalesced into one resync with the latest
	// UserBreakpoint state rather than racing it on the wire.
	syncMu sync.Mutex

	mu       sync.Mutex
	verified []*VerifiedBreakpoint
}

// NewSource wraps an entity.Source for breakpoint tracking against req.
func NewSource(e *entity.Source, req Requester) *Source {
	return &Source{Entity: e, req: req}
}

// Verified returns a snapshot of the currently installed
// VerifiedBreakpoints for this Source.
func (s *Source) Verified() []*VerifiedBreakpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*VerifiedBreakpoint(nil), s.verified...)
}

// VerifiedAt returns every VerifiedBreakpoint whose requested or actual
// location matches loc.
func (s *Source) VerifiedAt(loc core.Location) []*VerifiedBreakpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*VerifiedBreakpoint, 0)
	for _, v := range s.verified {
		if v.MatchesLocation(loc) {
			out = append(out, v)
		}
	}
	return out
}

// SyncBreakpoints re-derives the full set of breakpoints to install for
// this Source from store (filtered by URI and enabled flag) and issues
// one setBreakpoints call carrying the complete replacement set. The
// response is stored as the Source's new VerifiedBreakpoints, replacing
// the previous set atomically.
func (s *Source) SyncBreakpoints(ctx context.Context, store *Store, disambiguate Disambiguator, action DisambiguateAction) error {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	candidates := store.ByURI(s.Entity.Path)
	enabled := make([]*UserBreakpoint, 0, len(candidates))
	for _, ub := range candidates {
		if ub.Enabled {
			enabled = append(enabled, ub)
		}
	}

	dapSource := s.Entity.ToDAP()
	resolved := make([]core.Location, len(enabled))
	wire := make([]dap.SourceBreakpoint, len(enabled))
	for i, ub := range enabled {
		loc, err := ResolveLocation(ctx, s.req, dapSource, ub.Location, action, disambiguate)
		if err != nil {
			return err
		}
		resolved[i] = loc
		sb := dap.SourceBreakpoint{Line: loc.Line}
		if loc.HasColumn() {
			sb.Column = loc.ColumnOr(0)
		}
		if ub.Condition != "" {
			sb.Condition = ub.Condition
		}
		if ub.HitCondition != "" {
			sb.HitCondition = ub.HitCondition
		}
		if ub.LogMessage != "" {
			sb.LogMessage = ub.LogMessage
		}
		wire[i] = sb
	}

	resp, err := s.req.SetBreakpoints(ctx, dapSource, wire)
	if err != nil {
		return err
	}

	verified := make([]*VerifiedBreakpoint, 0, len(resp))
	for i, bp := range resp {
		v := &VerifiedBreakpoint{
			ID:             bp.Id,
			Verified:       bp.Verified,
			Message:        bp.Message,
			ActualLocation: core.NewPointLocation(s.Entity.Path, bp.Line, bp.Column),
		}
		if i < len(resolved) {
			v.RequestedLocation = resolved[i]
		}
		if i < len(enabled) {
			v.Origin = enabled[i]
		}
		verified = append(verified, v)
	}

	s.mu.Lock()
	s.verified = verified
	s.mu.Unlock()
	return nil
}

// ApplyBreakpointEvent applies an asynchronous `breakpoint` event to this
// Source. "changed" updates the matching VerifiedBreakpoint in place;
// "removed" deletes it without touching any UserBreakpoint; "new" is
// recorded as a fresh VerifiedBreakpoint with no Origin.
func (s *Source) ApplyBreakpointEvent(reason string, bp dap.Breakpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch reason {
	case "removed":
		for i, v := range s.verified {
			if v.ID == bp.Id {
				s.verified = append(s.verified[:i], s.verified[i+1:]...)
				return
			}
		}
	case "changed":
		for _, v := range s.verified {
			if v.ID == bp.Id {
				v.Verified = bp.Verified
				v.Message = bp.Message
				v.ActualLocation = core.NewPointLocation(s.Entity.Path, bp.Line, bp.Column)
				return
			}
		}
	case "new":
		s.verified = append(s.verified, &VerifiedBreakpoint{
			ID:             bp.Id,
			Verified:       bp.Verified,
			Message:        bp.Message,
			ActualLocation: core.NewPointLocation(s.Entity.Path, bp.Line, bp.Column),
		})
	}
}
