package breakpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dapcore/runtime/core"
)

func TestToggleIsIdempotent(t *testing.T) {
	store := NewStore()
	loc := core.NewLineLocation("/tmp/main.go", 10)

	uri, present := store.Toggle(loc)
	assert.Equal(t, "/tmp/main.go", uri)
	assert.True(t, present)
	require.Len(t, store.All(), 1)

	_, present = store.Toggle(loc)
	assert.False(t, present)
	assert.Len(t, store.All(), 0)
}

func TestAddIsIdempotentUnderRepeatedAttrs(t *testing.T) {
	store := NewStore()
	loc := core.NewLineLocation("/tmp/main.go", 10)
	cond := "x > 1"

	store.Add(loc, Attrs{Condition: &cond})
	store.Add(loc, Attrs{Condition: &cond})

	all := store.All()
	require.Len(t, all, 1)
	assert.Equal(t, "x > 1", all[0].Condition)
}

func TestByURIFiltersAndPreservesOrder(t *testing.T) {
	store := NewStore()
	store.Add(core.NewLineLocation("/tmp/a.go", 1), Attrs{})
	store.Add(core.NewLineLocation("/tmp/b.go", 1), Attrs{})
	store.Add(core.NewLineLocation("/tmp/a.go", 2), Attrs{})

	got := store.ByURI("/tmp/a.go")
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Location.Line)
	assert.Equal(t, 2, got[1].Location.Line)
}

func TestClearReturnsAffectedURIs(t *testing.T) {
	store := NewStore()
	store.Add(core.NewLineLocation("/tmp/a.go", 1), Attrs{})
	store.Add(core.NewLineLocation("/tmp/b.go", 1), Attrs{})

	uris := store.Clear()
	assert.ElementsMatch(t, []string{"/tmp/a.go", "/tmp/b.go"}, uris)
	assert.Len(t, store.All(), 0)
}

func TestDisableThenEnableRoundTrips(t *testing.T) {
	store := NewStore()
	loc := core.NewLineLocation("/tmp/a.go", 1)
	store.Add(loc, Attrs{})

	store.Disable(loc)
	assert.False(t, store.All()[0].Enabled)

	store.Enable(loc)
	assert.True(t, store.All()[0].Enabled)
}
