// Package session drives the DAP handshake and lifecycle state machine
// over one transport.Client, and exposes typed request wrappers used by
// the entity graph and the breakpoint engine. Session satisfies
// entity.Requester and breakpoint.Requester structurally; it imports
// package entity but not package breakpoint, and neither imports it back.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/go-dap"
	"github.com/google/uuid"

	"github.com/dapcore/runtime/core"
	"github.com/dapcore/runtime/entity"
	"github.com/dapcore/runtime/transport"
)

// ClientInfo identifies this runtime to the adapter during initialize.
type ClientInfo struct {
	ClientID  string
	AdapterID string
}

// StartConfig supplies the handshake's moving parts: whether to launch or
// attach, the adapter-specific body for that request, and a hook run once
// the adapter signals `initialized`, before configurationDone is sent —
// the natural place to flush pending breakpoint configuration.
type StartConfig struct {
	ClientInfo
	Attach       bool
	Body         any
	OnConfigure  func(ctx context.Context, s *Session) error
	RestartOnEnd bool
}

// Session is one adapter connection: its Transport, lifecycle state,
// cached Capabilities, and the Threads/Sources it has learned about.
type Session struct {
	log       *slog.Logger
	transport *transport.Client

	// ID identifies this Session for logging and for the focus context;
	// it has no protocol meaning and is never sent to the adapter.
	ID string

	State *core.Slot[State]

	mu           sync.Mutex
	capabilities dap.Capabilities
	exitCode     int

	threadsMu sync.Mutex
	threads   map[int]*entity.Thread

	sourcesMu sync.Mutex
	sources   map[string]*entity.Source

	cfg StartConfig
}

// New wraps an already-connected transport.Client in a Session.
func New(client *transport.Client, log *slog.Logger) *Session {
	if log == nil {
		log = core.NopLogger()
	}
	id := uuid.NewString()
	return &Session{
		log:       log.With("sessionID", id),
		transport: client,
		ID:        id,
		State:     core.NewSlot(Starting),
		threads:   make(map[int]*entity.Thread),
		sources:   make(map[string]*entity.Source),
	}
}

// Capabilities returns the Capabilities cached from the initialize
// response. Safe to call before Start completes; returns the zero value.
func (s *Session) Capabilities() dap.Capabilities {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capabilities
}

// SupportsBreakpointLocations satisfies breakpoint.Requester.
func (s *Session) SupportsBreakpointLocations() bool {
	return s.Capabilities().SupportsBreakpointLocationsRequest
}

// Start performs the full initialize -> launch/attach -> wait-for-
// initialized -> configure -> configurationDone handshake. It registers
// the Session's event handlers before issuing launch/attach so no event
// arriving during the handshake is missed.
func (s *Session) Start(ctx context.Context, cfg StartConfig) error {
	s.cfg = cfg
	s.registerEventHandlers()
	return s.handshake(ctx, cfg)
}

// handshake runs initialize -> launch/attach -> wait-for-initialized ->
// configure -> configurationDone over s.transport. It is the body of
// Start, and is re-run as-is by restart against the same transport, which
// is why it takes cfg explicitly rather than reading s.cfg: Start and
// restart share this sequence but not its caller-facing setup.
func (s *Session) handshake(ctx context.Context, cfg StartConfig) error {
	s.State.Set(Initializing)
	caps, err := s.initialize(ctx, cfg.ClientInfo)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.capabilities = caps
	s.mu.Unlock()

	initialized := make(chan struct{}, 1)
	var once sync.Once
	s.transport.On("initialized", func(dap.EventMessage) {
		once.Do(func() { close(initialized) })
	})

	launchErrCh := make(chan error, 1)
	go func() {
		launchErrCh <- s.launchOrAttach(ctx, cfg)
	}()

	select {
	case <-initialized:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.State.Set(Configuring)
	if cfg.OnConfigure != nil {
		if err := cfg.OnConfigure(ctx, s); err != nil {
			return err
		}
	}

	if _, err := s.transport.Request(ctx, &dap.ConfigurationDoneRequest{
		Request: dap.Request{Command: "configurationDone"},
	}); err != nil {
		return err
	}

	if err := <-launchErrCh; err != nil {
		return err
	}

	// A stopped event (e.g. stopOnEntry) may have already raced ahead of
	// us while launch/attach was in flight; only advance to running if
	// nothing has moved the state machine past configuring yet.
	if s.State.Get() == Configuring {
		s.State.Set(Running)
	}
	return nil
}

// restart re-runs handshake over the existing transport after an adapter-
// requested restart. It runs on its own goroutine: it is invoked from the
// transport's terminated-event dispatch, and handshake blocks on Requests
// whose responses arrive through that same dispatch loop, so running it
// inline would deadlock the read pump against itself.
func (s *Session) restart(ctx context.Context) {
	s.threadsMu.Lock()
	s.threads = make(map[int]*entity.Thread)
	s.threadsMu.Unlock()

	if err := s.handshake(ctx, s.cfg); err != nil {
		s.log.Warn("restart handshake failed", "error", err)
		s.State.Set(Terminated)
	}
}

func (s *Session) initialize(ctx context.Context, info ClientInfo) (dap.Capabilities, error) {
	req := &dap.InitializeRequest{
		Request: dap.Request{Command: "initialize"},
		Arguments: dap.InitializeRequestArguments{
			ClientID:                     info.ClientID,
			AdapterID:                    info.AdapterID,
			PathFormat:                   "path",
			LinesStartAt1:                true,
			ColumnsStartAt1:              true,
			SupportsVariableType:         true,
			SupportsVariablePaging:       true,
			SupportsRunInTerminalRequest: true,
		},
	}
	resp, err := s.transport.Request(ctx, req)
	if err != nil {
		return dap.Capabilities{}, err
	}
	initResp, ok := resp.(*dap.InitializeResponse)
	if !ok {
		return dap.Capabilities{}, &core.ProtocolError{Detail: "initialize response had unexpected shape"}
	}
	return initResp.Body, nil
}

func (s *Session) launchOrAttach(ctx context.Context, cfg StartConfig) error {
	body, err := json.Marshal(cfg.Body)
	if err != nil {
		return fmt.Errorf("dapcore: marshal launch/attach body: %w", err)
	}
	if cfg.Attach {
		_, err := s.transport.Request(ctx, &dap.AttachRequest{
			Request:   dap.Request{Command: "attach"},
			Arguments: body,
		})
		return err
	}
	_, err = s.transport.Request(ctx, &dap.LaunchRequest{
		Request:   dap.Request{Command: "launch"},
		Arguments: body,
	})
	return err
}

// registerEventHandlers wires the Session's lifecycle reaction to stopped,
// continued, thread, terminated and exited events. Breakpoint events are
// left to the debugger layer, which registers its handler through
// OnBreakpointEvent; loadedSource events are not handled.
func (s *Session) registerEventHandlers() {
	s.transport.On("stopped", func(m dap.EventMessage) {
		ev := m.(*dap.StoppedEvent)
		s.State.Set(Stopped)
		if ev.Body.AllThreadsStopped {
			s.threadsMu.Lock()
			for _, t := range s.threads {
				t.MarkStopped(ev.Body.Reason)
			}
			s.threadsMu.Unlock()
			return
		}
		s.threadFor(ev.Body.ThreadId).MarkStopped(ev.Body.Reason)
	})

	s.transport.On("continued", func(m dap.EventMessage) {
		ev := m.(*dap.ContinuedEvent)
		s.State.Set(Running)
		if ev.Body.AllThreadsContinued {
			s.threadsMu.Lock()
			for _, t := range s.threads {
				t.MarkRunning()
			}
			s.threadsMu.Unlock()
			return
		}
		s.threadFor(ev.Body.ThreadId).MarkRunning()
	})

	s.transport.On("thread", func(m dap.EventMessage) {
		ev := m.(*dap.ThreadEvent)
		if ev.Body.Reason == "exited" {
			s.threadsMu.Lock()
			delete(s.threads, ev.Body.ThreadId)
			s.threadsMu.Unlock()
			return
		}
		s.threadFor(ev.Body.ThreadId)
	})

	s.transport.On("exited", func(m dap.EventMessage) {
		ev := m.(*dap.ExitedEvent)
		s.mu.Lock()
		s.exitCode = ev.Body.ExitCode
		s.mu.Unlock()
	})

	s.transport.On("terminated", func(m dap.EventMessage) {
		ev, _ := m.(*dap.TerminatedEvent)
		if ev != nil && ev.Body.Restart != nil && s.cfg.RestartOnEnd {
			s.State.Set(Initializing)
			go s.restart(context.Background())
			return
		}
		s.State.Set(Terminated)
	})
}

// OnBreakpointEvent registers handler against this Session's async
// `breakpoint` events, resolving the event's Source to the Session's
// canonical entity.Source (creating it on first reference) before
// invoking handler. Left to the caller (package debugger) rather than
// handled internally, since only it knows which breakpoint.Registry the
// event belongs to.
func (s *Session) OnBreakpointEvent(handler func(reason string, bp dap.Breakpoint, src *entity.Source)) {
	s.transport.On("breakpoint", func(m dap.EventMessage) {
		ev := m.(*dap.BreakpointEvent)
		src := entity.NewSourceFromDAP(ev.Body.Breakpoint.Source)
		if src == nil {
			s.log.Warn("breakpoint event with no source, dropping", "reason", ev.Body.Reason)
			return
		}
		handler(ev.Body.Reason, ev.Body.Breakpoint, s.SourceFor(src))
	})
}

// threadFor returns the Thread for id, creating it (as a Session-owned
// entity.Thread bound to this Session as its Requester) on first
// reference — mirroring how a previously-unseen Source is created lazily
// from a breakpoint event.
func (s *Session) threadFor(id int) *entity.Thread {
	s.threadsMu.Lock()
	defer s.threadsMu.Unlock()
	if t, ok := s.threads[id]; ok {
		return t
	}
	t := entity.NewThread(id, "", s)
	s.threads[id] = t
	return t
}

// Threads returns a snapshot of every Thread this Session currently
// knows about.
func (s *Session) Threads() []*entity.Thread {
	s.threadsMu.Lock()
	defer s.threadsMu.Unlock()
	out := make([]*entity.Thread, 0, len(s.threads))
	for _, t := range s.threads {
		out = append(out, t)
	}
	return out
}

// SourceFor returns the entity.Source identified by e, registering it if
// this is the first reference to that identity.
func (s *Session) SourceFor(e *entity.Source) *entity.Source {
	s.sourcesMu.Lock()
	defer s.sourcesMu.Unlock()
	if existing, ok := s.sources[e.Key()]; ok {
		return existing
	}
	s.sources[e.Key()] = e
	return e
}

// ExitCode returns the exit code recorded from an `exited` event, if any.
func (s *Session) ExitCode() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitCode
}

// Disconnect sends a disconnect request and transitions towards
// terminated.
func (s *Session) Disconnect(ctx context.Context, terminateDebuggee bool) error {
	s.State.Set(Terminating)
	_, err := s.transport.Request(ctx, &dap.DisconnectRequest{
		Request:   dap.Request{Command: "disconnect"},
		Arguments: dap.DisconnectArguments{TerminateDebuggee: terminateDebuggee},
	})
	return err
}

// Terminate asks the adapter to end the debuggee without tearing down
// the DAP connection itself.
func (s *Session) Terminate(ctx context.Context) error {
	_, err := s.transport.Request(ctx, &dap.TerminateRequest{
		Request: dap.Request{Command: "terminate"},
	})
	return err
}
