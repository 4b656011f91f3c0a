package transport

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/google/go-dap"
	"golang.org/x/sync/errgroup"

	"github.com/dapcore/runtime/core"
)

// Client is a bidirectional DAP message channel over an adapter process.
// It assigns sequence numbers, correlates responses to requests, and fans
// events out to registered handlers. Its read and write pumps run under
// one errgroup.Group, the same shape openllb-hlb's dapserver.Server.Listen
// uses to run its read loop, its send-from-queue loop, and its output
// relay loop together under a single cancellation.
type Client struct {
	log *slog.Logger

	reader *bufio.Reader
	writer io.Writer
	closer io.Closer
	cmd    *exec.Cmd
	conn   net.Conn

	seq atomic.Int64

	mu         sync.Mutex
	pending    map[int]chan pendingResult
	closed     bool
	closeCause error

	handlersMu sync.Mutex
	handlers   map[string][]func(dap.EventMessage)

	outgoing chan dap.Message
	done     chan struct{}
	eg       *errgroup.Group
	egCancel context.CancelFunc
}

type pendingResult struct {
	msg dap.ResponseMessage
	err error
}

// Connect spawns and connects to the adapter process described by spec,
// blocking until the channel is open.
func Connect(ctx context.Context, spec AdapterSpec, log *slog.Logger) (*Client, error) {
	if log == nil {
		log = core.NopLogger()
	}
	switch spec.Kind {
	case Stdio:
		return connectStdio(ctx, spec, log)
	case Server:
		return connectServer(ctx, spec, log)
	default:
		return nil, &core.TransportFailed{Op: "connect", Err: fmt.Errorf("unknown adapter kind %v", spec.Kind)}
	}
}

func connectStdio(ctx context.Context, spec AdapterSpec, log *slog.Logger) (*Client, error) {
	cmd := exec.CommandContext(ctx, spec.Command, spec.Args...)
	if spec.Env != nil {
		cmd.Env = spec.Env
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &core.TransportFailed{Op: "open stdin", Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &core.TransportFailed{Op: "open stdout", Err: err}
	}
	if err := cmd.Start(); err != nil {
		return nil, &core.TransportFailed{Op: "spawn", Err: err}
	}

	c := newClient(stdout, stdin, stdin, log)
	c.cmd = cmd
	c.start()
	return c, nil
}

func connectServer(ctx context.Context, spec AdapterSpec, log *slog.Logger) (*Client, error) {
	if spec.ConnectCondition == nil {
		return nil, &core.TransportFailed{Op: "connect", Err: fmt.Errorf("server adapter spec requires a ConnectCondition")}
	}

	cmd := exec.CommandContext(ctx, spec.Command, spec.Args...)
	if spec.Env != nil {
		cmd.Env = spec.Env
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &core.TransportFailed{Op: "open stdout", Err: err}
	}
	if err := cmd.Start(); err != nil {
		return nil, &core.TransportFailed{Op: "spawn", Err: err}
	}

	addr, err := discoverAddr(stdout, spec.ConnectCondition)
	if err != nil {
		_ = cmd.Process.Kill()
		return nil, &core.TransportFailed{Op: "discover address", Err: err}
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		_ = cmd.Process.Kill()
		return nil, &core.TransportFailed{Op: "dial " + addr, Err: err}
	}

	c := newClient(conn, conn, conn, log)
	c.cmd = cmd
	c.conn = conn
	c.start()
	return c, nil
}

// discoverAddr reads stdout one chunk at a time, re-evaluating cond
// against the accumulated buffer, until cond reports an address.
func discoverAddr(stdout io.Reader, cond ConnectCondition) (string, error) {
	var buf bytes.Buffer
	chunk := make([]byte, 4096)
	for {
		n, err := stdout.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			if addr, ok := cond(buf.Bytes()); ok {
				return addr, nil
			}
		}
		if err != nil {
			return "", fmt.Errorf("adapter stdout ended before a connect address was found: %w", err)
		}
	}
}

func newClient(r io.Reader, w io.Writer, closer io.Closer, log *slog.Logger) *Client {
	return &Client{
		log:      log,
		reader:   bufio.NewReader(r),
		writer:   w,
		closer:   closer,
		pending:  make(map[int]chan pendingResult),
		handlers: make(map[string][]func(dap.EventMessage)),
		outgoing: make(chan dap.Message, 16),
		done:     make(chan struct{}),
	}
}

// NewClient wraps an already-open bidirectional channel (e.g. a net.Conn
// the caller dialed itself, or a pipe in tests) in a Client without
// spawning a process. Unlike Connect, the caller owns the underlying
// process, if any, and is responsible for its lifecycle.
func NewClient(r io.Reader, w io.Writer, closer io.Closer, log *slog.Logger) *Client {
	if log == nil {
		log = core.NopLogger()
	}
	c := newClient(r, w, closer, log)
	c.start()
	return c
}

func (c *Client) start() {
	ctx, cancel := context.WithCancel(context.Background())
	c.egCancel = cancel
	eg, _ := errgroup.WithContext(ctx)
	c.eg = eg

	eg.Go(c.readPump)
	eg.Go(func() error { return c.writePump(ctx) })
}

// readPump is the sole reader of the adapter's outgoing byte stream. It
// dispatches responses to their waiting caller and events to their
// registered handlers, always in the order they arrived on the wire.
func (c *Client) readPump() error {
	for {
		msg, err := dap.ReadProtocolMessage(c.reader)
		if err != nil {
			c.log.Debug("transport read pump ending", "err", err)
			c.shutdown(err)
			return err
		}

		switch m := msg.(type) {
		case dap.ResponseMessage:
			c.deliverResponse(m)
		case dap.EventMessage:
			c.dispatchEvent(m)
		default:
			c.log.Warn("dropping DAP message of unexpected shape", "type", fmt.Sprintf("%T", msg))
		}
	}
}

func (c *Client) deliverResponse(m dap.ResponseMessage) {
	seq := m.GetResponse().RequestSeq
	c.mu.Lock()
	ch, ok := c.pending[seq]
	if ok {
		delete(c.pending, seq)
	}
	c.mu.Unlock()

	if !ok {
		c.log.Warn("dropping response for unknown request seq", "seq", seq)
		return
	}
	ch <- pendingResult{msg: m}
}

func (c *Client) dispatchEvent(m dap.EventMessage) {
	name := m.GetEvent().Event
	c.handlersMu.Lock()
	handlers := append([]func(dap.EventMessage){}, c.handlers[name]...)
	c.handlersMu.Unlock()

	for _, h := range handlers {
		h(m)
	}
}

// writePump is the sole writer to the adapter's incoming byte stream,
// serializing concurrent Request callers onto one outgoing queue so two
// goroutines can never interleave their frames on the wire.
func (c *Client) writePump(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-c.outgoing:
			if !ok {
				return nil
			}
			if err := dap.WriteProtocolMessage(c.writer, msg); err != nil {
				c.shutdown(err)
				return err
			}
		}
	}
}

// On registers a fan-out handler for the named event. Multiple handlers
// for the same event all fire.
func (c *Client) On(event string, handler func(dap.EventMessage)) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.handlers[event] = append(c.handlers[event], handler)
}

// Request assigns a monotonically increasing seq to req, writes it, and
// blocks until the matching response arrives, ctx is cancelled, or the
// Client closes. req must be a pointer to one of go-dap's concrete request
// types; Request mutates its embedded Request.Seq field.
func (c *Client) Request(ctx context.Context, req dap.RequestMessage) (dap.ResponseMessage, error) {
	seq := int(c.seq.Add(1))
	req.GetRequest().Seq = seq
	req.GetRequest().Type = "request"

	ch := make(chan pendingResult, 1)

	c.mu.Lock()
	if c.closed {
		cause := c.closeCause
		c.mu.Unlock()
		return nil, &core.TransportClosed{Err: cause}
	}
	c.pending[seq] = ch
	c.mu.Unlock()

	select {
	case c.outgoing <- req:
	case <-c.done:
		c.removePending(seq)
		return nil, &core.TransportClosed{Err: c.closeCause}
	case <-ctx.Done():
		c.removePending(seq)
		return nil, ctx.Err()
	}

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		if !res.msg.GetResponse().Success {
			return res.msg, &core.AdapterRejected{
				Command: res.msg.GetResponse().Command,
				Message: res.msg.GetResponse().Message,
			}
		}
		return res.msg, nil
	case <-c.done:
		c.removePending(seq)
		return nil, &core.TransportClosed{Err: c.closeCause}
	case <-ctx.Done():
		c.removePending(seq)
		return nil, ctx.Err()
	}
}

func (c *Client) removePending(seq int) {
	c.mu.Lock()
	delete(c.pending, seq)
	c.mu.Unlock()
}

// Close closes the channel. Pending requests are delivered Cancelled. For
// Server transports this also terminates the spawned adapter process.
func (c *Client) Close() error {
	c.shutdown(&core.TransportClosed{})

	if c.conn != nil {
		// Server mode: the adapter process outlives the TCP connection
		// only by accident, so kill it explicitly.
		if c.cmd != nil && c.cmd.Process != nil {
			_ = c.cmd.Process.Kill()
		}
	}
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

// shutdown idempotently closes the done channel, the outgoing queue, and
// cancels the pumps. On a caller-initiated Close every pending request
// fails with Cancelled; otherwise pending requests fail with a
// TransportClosed wrapping cause, and a synthetic `terminated` event is
// dispatched, since a dead read/write pump otherwise leaves every Session
// watching this Client with no signal that its adapter is gone.
func (c *Client) shutdown(cause error) {
	_, deliberate := cause.(*core.TransportClosed)
	if deliberate {
		cause = &core.Cancelled{}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.closeCause = cause
	pending := c.pending
	c.pending = make(map[int]chan pendingResult)
	c.mu.Unlock()

	var pendingErr error = &core.TransportClosed{Err: cause}
	if deliberate {
		pendingErr = cause
	}
	for _, ch := range pending {
		ch <- pendingResult{err: pendingErr}
	}

	close(c.done)
	close(c.outgoing)
	if c.egCancel != nil {
		c.egCancel()
	}
	c.log.Debug("transport shut down", "cause", cause)

	if !deliberate {
		c.dispatchEvent(&dap.TerminatedEvent{
			Event: dap.Event{ProtocolMessage: dap.ProtocolMessage{Type: "event"}, Event: "terminated"},
		})
	}
}

// Wait blocks until both pumps have exited, surfacing the first pump
// error (io.EOF on a clean adapter exit).
func (c *Client) Wait() error {
	if c.eg == nil {
		return nil
	}
	return c.eg.Wait()
}
