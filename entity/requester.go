// Package entity implements the lazily-hydrated DAP entity graph: Thread,
// Stack, Frame, Scope, Variable, Source. Everything here is hydrated on
// demand through a small Requester interface rather than a direct import
// of package session, so session can depend on entity (it owns Threads
// and Sources) without entity depending back on session.
package entity

import (
	"context"

	"github.com/google/go-dap"
)

// Requester is the subset of session.Session's typed operations the
// entity graph needs to hydrate itself. session.Session satisfies this
// interface structurally; nothing in this package imports package
// session.
type Requester interface {
	StackTrace(ctx context.Context, threadID, startFrame, levels int) (frames []dap.StackFrame, totalFrames int, err error)
	Scopes(ctx context.Context, frameID int) ([]dap.Scope, error)
	Variables(ctx context.Context, variablesReference int) ([]dap.Variable, error)
}
