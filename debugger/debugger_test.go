package debugger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dapcore/runtime/breakpoint"
	"github.com/dapcore/runtime/core"
)

func TestDebuggerToggleWithNoLiveSessionsStillUpdatesStore(t *testing.T) {
	d := New(nil)
	loc := core.NewLineLocation("/tmp/main.go", 10)

	require.NoError(t, d.Toggle(context.Background(), loc))
	all := d.Store.All()
	require.Len(t, all, 1)
	assert.True(t, all[0].Location.Equal(loc))

	require.NoError(t, d.Toggle(context.Background(), loc))
	assert.Len(t, d.Store.All(), 0)
}

func TestDebuggerClearDropsEveryBreakpoint(t *testing.T) {
	d := New(nil)
	require.NoError(t, d.Add(context.Background(), core.NewLineLocation("/tmp/a.go", 1), breakpoint.Attrs{}))
	require.NoError(t, d.Add(context.Background(), core.NewLineLocation("/tmp/b.go", 1), breakpoint.Attrs{}))

	require.NoError(t, d.Clear(context.Background()))
	assert.Len(t, d.Store.All(), 0)
}
