package entity

import (
	"context"
	"sync"

	"github.com/google/go-dap"
)

// Frame is one entry of a Thread's Stack, hydrated from a DAP
// stackTrace response. Position fields are 1-based throughout; converting
// to editor-native 0-based coordinates is a consumer concern.
type Frame struct {
	requester Requester

	ID        int
	Name      string
	Source    *Source
	Line      int
	Column    int
	EndLine   *int
	EndColumn *int

	mu     sync.Mutex
	scopes []*Scope
	loaded bool
}

func newFrame(requester Requester, f dap.StackFrame) *Frame {
	frame := &Frame{
		requester: requester,
		ID:        f.Id,
		Name:      f.Name,
		Source:    NewSourceFromDAP(f.Source),
		Line:      f.Line,
		Column:    f.Column,
	}
	if f.EndLine != 0 {
		v := f.EndLine
		frame.EndLine = &v
	}
	if f.EndColumn != 0 {
		v := f.EndColumn
		frame.EndColumn = &v
	}
	return frame
}

// Scopes returns this frame's variable scopes, memoizing the result for
// the lifetime of the current stop.
func (f *Frame) Scopes(ctx context.Context) ([]*Scope, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loaded {
		return f.scopes, nil
	}
	raw, err := f.requester.Scopes(ctx, f.ID)
	if err != nil {
		return nil, err
	}
	scopes := make([]*Scope, 0, len(raw))
	for _, s := range raw {
		scopes = append(scopes, newScope(f.requester, s))
	}
	f.scopes = scopes
	f.loaded = true
	return f.scopes, nil
}
