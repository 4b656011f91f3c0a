// Package breakpoint reconciles user-declared breakpoint intent against
// adapter-verified breakpoints: candidate disambiguation when an adapter
// offers multiple stop columns for one line, per-source full-replacement
// sync, and re-installation across session restarts. It depends on
// package entity for Source identity but, like entity, never imports
// package session — a local Requester interface keeps the dependency
// pointing the other way.
package breakpoint

import (
	"context"

	"github.com/google/go-dap"
)

// Requester is the subset of session.Session's typed operations the
// breakpoint engine needs. session.Session satisfies this interface
// structurally.
type Requester interface {
	SetBreakpoints(ctx context.Context, source dap.Source, breakpoints []dap.SourceBreakpoint) ([]dap.Breakpoint, error)
	BreakpointLocations(ctx context.Context, source dap.Source, line int, endLine *int) ([]dap.BreakpointLocation, error)
	SupportsBreakpointLocations() bool
}
