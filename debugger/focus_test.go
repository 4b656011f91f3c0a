package debugger

import (
	"context"
	"testing"

	"github.com/google/go-dap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dapcore/runtime/entity"
	"github.com/dapcore/runtime/session"
)

type fakeThreadRequester struct {
	frames []dap.StackFrame
}

func (f *fakeThreadRequester) StackTrace(ctx context.Context, threadID, startFrame, levels int) ([]dap.StackFrame, int, error) {
	return f.frames, len(f.frames), nil
}
func (f *fakeThreadRequester) Scopes(ctx context.Context, frameID int) ([]dap.Scope, error) {
	return nil, nil
}
func (f *fakeThreadRequester) Variables(ctx context.Context, ref int) ([]dap.Variable, error) {
	return nil, nil
}

func TestFocusThreadLoadsTopFrameWhenStopped(t *testing.T) {
	req := &fakeThreadRequester{frames: []dap.StackFrame{{Id: 1, Name: "main"}, {Id: 2, Name: "caller"}}}
	th := entity.NewThread(1, "main", req)
	th.MarkStopped("breakpoint")

	fc := newFocusContext()
	fc.FocusThread(context.Background(), (*session.Session)(nil), th)

	assert.Same(t, th, fc.Thread())
	require.NotNil(t, fc.Frame())
	assert.Equal(t, 1, fc.Frame().ID)
}

func TestFocusThreadLeavesFrameNilWhenRunning(t *testing.T) {
	req := &fakeThreadRequester{}
	th := entity.NewThread(1, "main", req)

	fc := newFocusContext()
	fc.FocusThread(context.Background(), (*session.Session)(nil), th)

	assert.Same(t, th, fc.Thread())
	assert.Nil(t, fc.Frame())
}

func TestClearResetsAllSlots(t *testing.T) {
	req := &fakeThreadRequester{frames: []dap.StackFrame{{Id: 1, Name: "main"}}}
	th := entity.NewThread(1, "main", req)
	th.MarkStopped("breakpoint")

	fc := newFocusContext()
	fc.FocusThread(context.Background(), (*session.Session)(nil), th)
	fc.Clear()

	assert.Nil(t, fc.Session())
	assert.Nil(t, fc.Thread())
	assert.Nil(t, fc.Frame())
}

func TestIsInFocusedContextTrueWhenUnfocused(t *testing.T) {
	fc := newFocusContext()
	assert.True(t, fc.IsInFocusedContext((*session.Session)(nil)))
}
