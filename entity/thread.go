package entity

import (
	"context"
	"sync"

	"github.com/dapcore/runtime/core"
)

// State is a Thread's run state.
type State int

const (
	ThreadRunning State = iota
	ThreadStopped
)

func (s State) String() string {
	if s == ThreadStopped {
		return "stopped"
	}
	return "running"
}

// Thread is a DAP thread: a schedulable execution context that is either
// running or stopped, with a lazily hydrated call stack while stopped.
type Thread struct {
	requester Requester

	id   int
	name string

	mu         sync.Mutex
	state      State
	stopReason string
	stack      *Stack
}

// NewThread constructs a Thread bound to requester for stack hydration.
// Session (L1) is the sole caller of this constructor; entity itself
// never imports package session.
func NewThread(id int, name string, requester Requester) *Thread {
	return &Thread{id: id, name: name, requester: requester, state: ThreadRunning}
}

func (t *Thread) ID() int { return t.id }

func (t *Thread) Name() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.name
}

func (t *Thread) SetName(name string) {
	t.mu.Lock()
	t.name = name
	t.mu.Unlock()
}

func (t *Thread) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Thread) StopReason() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopReason
}

// MarkStopped transitions the Thread to stopped and records why. Any
// previously memoized Stack is discarded (a stop always follows a run, or
// is the Thread's first stop, so there is nothing stale to preserve).
func (t *Thread) MarkStopped(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = ThreadStopped
	t.stopReason = reason
	t.stack = nil
}

// MarkRunning transitions the Thread to running and discards its memoized
// Stack: a running Thread never carries a stale Stack around.
func (t *Thread) MarkRunning() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = ThreadRunning
	t.stopReason = ""
	t.stack = nil
}

// LoadCurrentStack returns the Thread's memoized Stack, issuing a
// stackTrace request and caching the result on first call after each
// stop. maxFrames <= 0 requests all frames.
func (t *Thread) LoadCurrentStack(ctx context.Context, maxFrames int) (*Stack, error) {
	t.mu.Lock()
	if t.state != ThreadStopped {
		t.mu.Unlock()
		return nil, &core.InvalidState{Expected: "stopped", Actual: t.state.String()}
	}
	if t.stack != nil {
		s := t.stack
		t.mu.Unlock()
		return s, nil
	}
	requester := t.requester
	id := t.id
	t.mu.Unlock()

	levels := maxFrames
	if levels < 0 {
		levels = 0
	}
	raw, total, err := requester.StackTrace(ctx, id, 0, levels)
	if err != nil {
		return nil, err
	}

	frames := make([]*Frame, 0, len(raw))
	for _, f := range raw {
		frames = append(frames, newFrame(requester, f))
	}

	stack := &Stack{frames: frames, totalFrames: total}

	t.mu.Lock()
	defer t.mu.Unlock()
	// A resume raced with this hydration and already cleared state;
	// don't resurrect a stale Stack for a thread that has moved on.
	if t.state != ThreadStopped {
		return nil, &core.InvalidState{Expected: "stopped", Actual: t.state.String()}
	}
	stack.thread = t
	t.stack = stack
	return stack, nil
}
