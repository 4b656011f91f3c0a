package entity

import (
	"fmt"

	"github.com/google/go-dap"

	"github.com/dapcore/runtime/core"
)

// Source identifies a DAP source by either a filesystem path or an
// adapter-opaque sourceReference. The zero value is not a valid Source;
// use NewPathSource or NewSourceFromDAP.
type Source struct {
	Name            string
	Path            string
	SourceReference int
}

// NewPathSource builds a path-identified Source.
func NewPathSource(name, path string) *Source {
	return &Source{Name: name, Path: core.NormalizeURI(path)}
}

// NewSourceFromDAP builds a Source from a wire dap.Source.
func NewSourceFromDAP(src *dap.Source) *Source {
	if src == nil {
		return nil
	}
	return &Source{
		Name:            src.Name,
		Path:            core.NormalizeURI(src.Path),
		SourceReference: src.SourceReference,
	}
}

// Key returns a stable identity key. A Source with SourceReference > 0 is
// a distinct identity dimension from any path-keyed Source, even given an
// identical Name, so the two key spaces never collide.
func (s *Source) Key() string {
	if s.SourceReference > 0 {
		return fmt.Sprintf("ref:%d", s.SourceReference)
	}
	return "path:" + s.Path
}

// ToDAP renders the Source back to wire form for requests that need to
// name it (setBreakpoints, breakpointLocations, source).
func (s *Source) ToDAP() dap.Source {
	return dap.Source{
		Name:            s.Name,
		Path:            s.Path,
		SourceReference: s.SourceReference,
	}
}
