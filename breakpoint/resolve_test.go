package breakpoint

import (
	"context"
	"testing"

	"github.com/google/go-dap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dapcore/runtime/core"
)

type fakeBPRequester struct {
	supportsLocations bool
	locations         []dap.BreakpointLocation
	setCalls          [][]dap.SourceBreakpoint
	setResponse       []dap.Breakpoint
}

func (f *fakeBPRequester) SetBreakpoints(ctx context.Context, source dap.Source, bps []dap.SourceBreakpoint) ([]dap.Breakpoint, error) {
	f.setCalls = append(f.setCalls, bps)
	return f.setResponse, nil
}

func (f *fakeBPRequester) BreakpointLocations(ctx context.Context, source dap.Source, line int, endLine *int) ([]dap.BreakpointLocation, error) {
	return f.locations, nil
}

func (f *fakeBPRequester) SupportsBreakpointLocations() bool { return f.supportsLocations }

func TestResolveLocationSkipsWhenColumnAlreadyPresent(t *testing.T) {
	req := &fakeBPRequester{supportsLocations: true}
	loc := core.NewPointLocation("/tmp/a.go", 10, 5)

	got, err := ResolveLocation(context.Background(), req, dap.Source{}, loc, ActionAdd, nil)
	require.NoError(t, err)
	assert.True(t, got.Equal(loc))
}

func TestResolveLocationSkipsWhenAdapterLacksSupport(t *testing.T) {
	req := &fakeBPRequester{supportsLocations: false}
	loc := core.NewLineLocation("/tmp/a.go", 10)

	got, err := ResolveLocation(context.Background(), req, dap.Source{}, loc, ActionAdd, nil)
	require.NoError(t, err)
	assert.True(t, got.Equal(loc))
}

func TestResolveLocationSingleCandidateChosenDirectly(t *testing.T) {
	req := &fakeBPRequester{
		supportsLocations: true,
		locations:         []dap.BreakpointLocation{{Line: 20, Column: 5}},
	}
	loc := core.NewLineLocation("/tmp/a.go", 20)

	got, err := ResolveLocation(context.Background(), req, dap.Source{}, loc, ActionAdd, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, got.ColumnOr(0))
}

func TestDefaultDisambiguatorPicksSmallestColumnAtOrAboveOriginal(t *testing.T) {
	req := &fakeBPRequester{
		supportsLocations: true,
		locations: []dap.BreakpointLocation{
			{Line: 20, Column: 5},
			{Line: 20, Column: 12},
		},
	}
	loc := core.NewLineLocation("/tmp/a.go", 20)

	got, err := ResolveLocation(context.Background(), req, dap.Source{}, loc, ActionAdd, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, got.ColumnOr(0))
}

func TestExplicitDisambiguatorChoosesSecondCandidate(t *testing.T) {
	req := &fakeBPRequester{
		supportsLocations: true,
		locations: []dap.BreakpointLocation{
			{Line: 20, Column: 5},
			{Line: 20, Column: 12},
		},
	}
	loc := core.NewLineLocation("/tmp/a.go", 20)

	pickSecond := func(ctx context.Context, candidates []core.Location, originalLoc core.Location, action DisambiguateAction) (*core.Location, bool) {
		chosen := candidates[1]
		return &chosen, true
	}

	got, err := ResolveLocation(context.Background(), req, dap.Source{}, loc, ActionAdd, pickSecond)
	require.NoError(t, err)
	assert.Equal(t, 12, got.ColumnOr(0))
}

func TestDisambiguatorDeclineSurfacesCancelled(t *testing.T) {
	req := &fakeBPRequester{
		supportsLocations: true,
		locations: []dap.BreakpointLocation{
			{Line: 20, Column: 5},
			{Line: 20, Column: 12},
		},
	}
	loc := core.NewLineLocation("/tmp/a.go", 20)

	decline := func(ctx context.Context, candidates []core.Location, originalLoc core.Location, action DisambiguateAction) (*core.Location, bool) {
		return nil, false
	}

	_, err := ResolveLocation(context.Background(), req, dap.Source{}, loc, ActionAdd, decline)
	require.Error(t, err)
	var cancelled *core.Cancelled
	require.ErrorAs(t, err, &cancelled)
}
