package entity

import (
	"context"
	"testing"

	"github.com/google/go-dap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRequester struct {
	stackTraceCalls int
	frames          []dap.StackFrame
	scopes          []dap.Scope
	variables       map[int][]dap.Variable
}

func (f *fakeRequester) StackTrace(ctx context.Context, threadID, startFrame, levels int) ([]dap.StackFrame, int, error) {
	f.stackTraceCalls++
	return f.frames, len(f.frames), nil
}

func (f *fakeRequester) Scopes(ctx context.Context, frameID int) ([]dap.Scope, error) {
	return f.scopes, nil
}

func (f *fakeRequester) Variables(ctx context.Context, variablesReference int) ([]dap.Variable, error) {
	return f.variables[variablesReference], nil
}

func TestThreadLoadCurrentStackMemoizes(t *testing.T) {
	req := &fakeRequester{frames: []dap.StackFrame{{Id: 1, Name: "main"}}}
	th := NewThread(1, "main", req)
	th.MarkStopped("breakpoint")

	s1, err := th.LoadCurrentStack(context.Background(), 20)
	require.NoError(t, err)
	s2, err := th.LoadCurrentStack(context.Background(), 20)
	require.NoError(t, err)

	assert.Same(t, s1, s2)
	assert.Equal(t, 1, req.stackTraceCalls, "second call must not re-issue stackTrace")
}

func TestThreadResumeInvalidatesStack(t *testing.T) {
	req := &fakeRequester{frames: []dap.StackFrame{{Id: 1, Name: "main"}}}
	th := NewThread(1, "main", req)
	th.MarkStopped("breakpoint")

	_, err := th.LoadCurrentStack(context.Background(), 20)
	require.NoError(t, err)
	assert.Equal(t, 1, req.stackTraceCalls)

	th.MarkRunning()
	assert.Equal(t, ThreadRunning, th.State())

	th.MarkStopped("step")
	_, err = th.LoadCurrentStack(context.Background(), 20)
	require.NoError(t, err)
	assert.Equal(t, 2, req.stackTraceCalls, "a fresh stop must re-issue stackTrace, not reuse the prior result")
}

func TestLoadCurrentStackFailsWhenRunning(t *testing.T) {
	req := &fakeRequester{}
	th := NewThread(1, "main", req)

	_, err := th.LoadCurrentStack(context.Background(), 20)
	assert.Error(t, err)
}

func TestScopeVariablesMemoize(t *testing.T) {
	req := &fakeRequester{
		scopes: []dap.Scope{{Name: "Locals", VariablesReference: 42}},
		variables: map[int][]dap.Variable{
			42: {{Name: "x", Value: "1"}},
		},
	}
	frame := newFrame(req, dap.StackFrame{Id: 1, Name: "main"})

	scopes, err := frame.Scopes(context.Background())
	require.NoError(t, err)
	require.Len(t, scopes, 1)
	assert.Equal(t, ScopeLocals, scopes[0].Kind)

	vars, err := scopes[0].Variables(context.Background())
	require.NoError(t, err)
	require.Len(t, vars, 1)
	assert.Equal(t, "x", vars[0].Name)

	again, err := scopes[0].Variables(context.Background())
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Same(t, vars[0], again[0], "second call must return the memoized variables")
}

func TestSourceKeyDistinguishesReferenceFromPath(t *testing.T) {
	byPath := NewPathSource("main.go", "/tmp/main.go")
	byRef := &Source{Name: "main.go", SourceReference: 7}

	assert.NotEqual(t, byPath.Key(), byRef.Key())
}
