package breakpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dapcore/runtime/entity"
)

func TestRegistrySourceForReusesExistingWrapper(t *testing.T) {
	req := &fakeBPRequester{}
	reg := NewRegistry(req)
	e := entity.NewPathSource("a.go", "/tmp/a.go")

	s1 := reg.SourceFor(e)
	s2 := reg.SourceFor(e)

	assert.Same(t, s1, s2)
	assert.Len(t, reg.All(), 1)
}

func TestRegistryDistinguishesSourcesByKey(t *testing.T) {
	req := &fakeBPRequester{}
	reg := NewRegistry(req)

	reg.SourceFor(entity.NewPathSource("a.go", "/tmp/a.go"))
	reg.SourceFor(entity.NewPathSource("b.go", "/tmp/b.go"))

	assert.Len(t, reg.All(), 2)
}
