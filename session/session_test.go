package session

import (
	"bufio"
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/go-dap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dapcore/runtime/core"
	"github.com/dapcore/runtime/transport"
)

type fakeAdapter struct {
	reader *bufio.Reader
	writer io.Writer
}

func newSessionUnderTest(t *testing.T) (*Session, *fakeAdapter) {
	t.Helper()
	clientReadSide, adapterWriteSide := io.Pipe()
	adapterReadSide, clientWriteSide := io.Pipe()

	c := transport.NewClient(clientReadSide, clientWriteSide, clientWriteSide, core.NopLogger())
	t.Cleanup(func() {
		_ = clientReadSide.Close()
		_ = adapterWriteSide.Close()
		_ = adapterReadSide.Close()
		_ = clientWriteSide.Close()
	})

	return New(c, core.NopLogger()), &fakeAdapter{reader: bufio.NewReader(adapterReadSide), writer: adapterWriteSide}
}

func (a *fakeAdapter) readRequest(t *testing.T) dap.RequestMessage {
	t.Helper()
	msg, err := dap.ReadProtocolMessage(a.reader)
	require.NoError(t, err)
	req, ok := msg.(dap.RequestMessage)
	require.True(t, ok, "expected a request, got %T", msg)
	return req
}

func (a *fakeAdapter) respond(t *testing.T, req dap.RequestMessage, body any) {
	t.Helper()
	switch r := req.(type) {
	case *dap.InitializeRequest:
		require.NoError(t, dap.WriteProtocolMessage(a.writer, &dap.InitializeResponse{
			Response: successResponse(r.GetRequest(), "initialize"),
			Body:     body.(dap.Capabilities),
		}))
	default:
		t.Fatalf("respond: unhandled request type %T", req)
	}
}

func (a *fakeAdapter) send(t *testing.T, msg dap.Message) {
	t.Helper()
	require.NoError(t, dap.WriteProtocolMessage(a.writer, msg))
}

func successResponse(req dap.Request, command string) dap.Response {
	return dap.Response{
		ProtocolMessage: dap.ProtocolMessage{Seq: req.Seq + 1000, Type: "response"},
		RequestSeq:      req.Seq,
		Success:         true,
		Command:         command,
	}
}

func TestSessionStartPerformsFullHandshake(t *testing.T) {
	s, adapter := newSessionUnderTest(t)

	configureCalled := make(chan struct{}, 1)
	cfg := StartConfig{
		ClientInfo: ClientInfo{ClientID: "test", AdapterID: "test-adapter"},
		Body:       map[string]any{"program": "/tmp/prog"},
		OnConfigure: func(ctx context.Context, sess *Session) error {
			configureCalled <- struct{}{}
			return nil
		},
	}

	done := make(chan error, 1)
	go func() {
		done <- s.Start(context.Background(), cfg)
	}()

	initReq := adapter.readRequest(t)
	assert.Equal(t, "initialize", initReq.GetRequest().Command)
	adapter.respond(t, initReq, dap.Capabilities{SupportsBreakpointLocationsRequest: true})

	launchReq := adapter.readRequest(t)
	assert.Equal(t, "launch", launchReq.GetRequest().Command)

	adapter.send(t, &dap.InitializedEvent{
		Event: dap.Event{ProtocolMessage: dap.ProtocolMessage{Seq: 2, Type: "event"}, Event: "initialized"},
	})

	select {
	case <-configureCalled:
	case <-time.After(2 * time.Second):
		t.Fatal("OnConfigure was never invoked")
	}

	cfgDoneReq := adapter.readRequest(t)
	assert.Equal(t, "configurationDone", cfgDoneReq.GetRequest().Command)
	adapter.send(t, &dap.ConfigurationDoneResponse{Response: successResponse(cfgDoneReq.GetRequest(), "configurationDone")})
	adapter.send(t, &dap.LaunchResponse{Response: successResponse(launchReq.GetRequest(), "launch")})

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return")
	}

	assert.Equal(t, Running, s.State.Get())
	assert.True(t, s.SupportsBreakpointLocations())
}

func TestSessionStoppedEventMarksThreadStopped(t *testing.T) {
	s, adapter := newSessionUnderTest(t)
	s.registerEventHandlers()

	done := make(chan struct{}, 1)
	s.transport.On("stopped", func(dap.EventMessage) { done <- struct{}{} })

	adapter.send(t, &dap.StoppedEvent{
		Event: dap.Event{ProtocolMessage: dap.ProtocolMessage{Seq: 1, Type: "event"}, Event: "stopped"},
		Body:  dap.StoppedEventBody{Reason: "breakpoint", ThreadId: 3},
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stopped handler never fired")
	}

	assert.Equal(t, Stopped, s.State.Get())
	threads := s.Threads()
	require.Len(t, threads, 1)
	assert.Equal(t, "breakpoint", threads[0].StopReason())
}
