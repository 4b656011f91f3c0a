package breakpoint

import (
	"context"
	"testing"

	"github.com/google/go-dap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dapcore/runtime/core"
	"github.com/dapcore/runtime/entity"
)

func TestSourceSyncInstallsEnabledBreakpointsOnly(t *testing.T) {
	store := NewStore()
	store.Add(core.NewLineLocation("/tmp/a.go", 10), Attrs{})
	store.Add(core.NewLineLocation("/tmp/a.go", 20), Attrs{})
	store.Disable(core.NewLineLocation("/tmp/a.go", 20))

	req := &fakeBPRequester{
		setResponse: []dap.Breakpoint{{Id: 1, Verified: true, Line: 10}},
	}
	src := NewSource(entity.NewPathSource("a.go", "/tmp/a.go"), req)

	err := src.SyncBreakpoints(context.Background(), store, nil, ActionAdd)
	require.NoError(t, err)

	require.Len(t, req.setCalls, 1)
	assert.Len(t, req.setCalls[0], 1, "disabled breakpoint must be excluded from the replacement set")
	assert.Equal(t, 10, req.setCalls[0][0].Line)

	verified := src.Verified()
	require.Len(t, verified, 1)
	assert.Equal(t, 1, verified[0].ID)
	assert.True(t, verified[0].Verified)
}

func TestSourceSyncReplacesPreviousVerifiedSetAtomically(t *testing.T) {
	store := NewStore()
	store.Add(core.NewLineLocation("/tmp/a.go", 10), Attrs{})

	req := &fakeBPRequester{setResponse: []dap.Breakpoint{{Id: 1, Verified: true, Line: 10}}}
	src := NewSource(entity.NewPathSource("a.go", "/tmp/a.go"), req)
	require.NoError(t, src.SyncBreakpoints(context.Background(), store, nil, ActionAdd))
	require.Len(t, src.Verified(), 1)

	store.Remove(core.NewLineLocation("/tmp/a.go", 10))
	store.Add(core.NewLineLocation("/tmp/a.go", 30), Attrs{})
	req.setResponse = []dap.Breakpoint{{Id: 2, Verified: true, Line: 30}}

	require.NoError(t, src.SyncBreakpoints(context.Background(), store, nil, ActionAdd))
	verified := src.Verified()
	require.Len(t, verified, 1)
	assert.Equal(t, 2, verified[0].ID)
}

func TestApplyBreakpointEventChangedUpdatesInPlace(t *testing.T) {
	req := &fakeBPRequester{}
	src := NewSource(entity.NewPathSource("a.go", "/tmp/a.go"), req)
	src.verified = []*VerifiedBreakpoint{{ID: 1, Verified: false}}

	src.ApplyBreakpointEvent("changed", dap.Breakpoint{Id: 1, Verified: true, Line: 15, Message: "now valid"})

	verified := src.Verified()
	require.Len(t, verified, 1)
	assert.True(t, verified[0].Verified)
	assert.Equal(t, "now valid", verified[0].Message)
}

func TestApplyBreakpointEventRemovedDropsEntry(t *testing.T) {
	req := &fakeBPRequester{}
	src := NewSource(entity.NewPathSource("a.go", "/tmp/a.go"), req)
	src.verified = []*VerifiedBreakpoint{{ID: 1}, {ID: 2}}

	src.ApplyBreakpointEvent("removed", dap.Breakpoint{Id: 1})

	verified := src.Verified()
	require.Len(t, verified, 1)
	assert.Equal(t, 2, verified[0].ID)
}

func TestApplyBreakpointEventNewDoesNotCreateUserBreakpoint(t *testing.T) {
	store := NewStore()
	req := &fakeBPRequester{}
	src := NewSource(entity.NewPathSource("a.go", "/tmp/a.go"), req)

	src.ApplyBreakpointEvent("new", dap.Breakpoint{Id: 5, Verified: true, Line: 42})

	assert.Len(t, src.Verified(), 1)
	assert.Len(t, store.All(), 0)
}
