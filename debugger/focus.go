package debugger

import (
	"context"
	"sync"

	"github.com/dapcore/runtime/core"
	"github.com/dapcore/runtime/entity"
	"github.com/dapcore/runtime/session"
)

// FocusContext holds the three observable slots that name "the" current
// session/thread/frame for every other observer in the process. If Frame
// is non-nil, its Thread and Session must agree with the context's own
// Thread and Session slots.
type FocusContext struct {
	mu sync.Mutex

	SessionSlot *core.Slot[*session.Session]
	ThreadSlot  *core.Slot[*entity.Thread]
	FrameSlot   *core.Slot[*entity.Frame]
}

func newFocusContext() *FocusContext {
	return &FocusContext{
		SessionSlot: core.NewSlot[*session.Session](nil),
		ThreadSlot:  core.NewSlot[*entity.Thread](nil),
		FrameSlot:   core.NewSlot[*entity.Frame](nil),
	}
}

func (f *FocusContext) Session() *session.Session { return f.SessionSlot.Get() }
func (f *FocusContext) Thread() *entity.Thread     { return f.ThreadSlot.Get() }
func (f *FocusContext) Frame() *entity.Frame       { return f.FrameSlot.Get() }

// Clear resets all three slots to unfocused.
func (f *FocusContext) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FrameSlot.Set(nil)
	f.ThreadSlot.Set(nil)
	f.SessionSlot.Set(nil)
}

// FocusThread sets thread (and its owning session) as focused, drops any
// stale Frame, and attempts to load the thread's top frame as the new
// focused Frame. Loading the stack is best-effort: if the thread is not
// currently stopped, Frame simply stays nil.
func (f *FocusContext) FocusThread(ctx context.Context, sess *session.Session, thread *entity.Thread) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SessionSlot.Set(sess)
	f.ThreadSlot.Set(thread)
	f.FrameSlot.Set(nil)

	if thread == nil || thread.State() != entity.ThreadStopped {
		return
	}
	stack, err := thread.LoadCurrentStack(ctx, 1)
	if err != nil || len(stack.Frames()) == 0 {
		return
	}
	f.FrameSlot.Set(stack.Frames()[0])
}

// IsInFocusedContext reports whether sess is the focused session, or no
// session is focused at all.
func (f *FocusContext) IsInFocusedContext(sess *session.Session) bool {
	focused := f.Session()
	return focused == nil || focused == sess
}
