package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dapcore/runtime/breakpoint"
	"github.com/dapcore/runtime/core"
	"github.com/dapcore/runtime/debugger"
	"github.com/dapcore/runtime/entity"
	"github.com/dapcore/runtime/session"
)

// toolset binds the MCP tool handlers to one Debugger and the single
// active debug Session dap-mcp exposes at a time. The Debugger itself is
// happy to run many Sessions concurrently; this demo surface keeps one,
// the same shape the tool descriptions below promise a caller.
type toolset struct {
	dbg        *debugger.Debugger
	log        *slog.Logger
	adapterCmd string

	mu   sync.Mutex
	sess *session.Session
}

// registerTools registers the debugger tools with the MCP server.
func registerTools(server *mcp.Server, dbg *debugger.Debugger, adapterCmd string, log *slog.Logger) {
	ts := &toolset{dbg: dbg, log: log, adapterCmd: adapterCmd}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "debug",
		Description: "Start a debugging session. Modes: 'source' (compile & debug), 'binary' (debug executable), 'attach' (connect to a process). Returns full context at the first stop, or a notice when stopped at entry.",
	}, ts.debug)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "stop",
		Description: "End the active debugging session.",
	}, ts.stop)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "breakpoint",
		Description: "Set (or update) a breakpoint at file:line, optionally gated by a condition expression.",
	}, ts.breakpoint)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "clear-breakpoints",
		Description: "Remove breakpoints from one file, or clear all of them.",
	}, ts.clearBreakpoints)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "continue",
		Description: "Resume execution. Returns full context at the next stop, or a termination notice.",
	}, ts.continueExecution)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "step",
		Description: "Step through code. Mode: 'over', 'in', or 'out'. Returns full context at the new location.",
	}, ts.step)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "pause",
		Description: "Pause a running thread.",
	}, ts.pause)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "context",
		Description: "Get full debugging context: current location, stack trace, and scoped variables.",
	}, ts.context)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "evaluate",
		Description: "Evaluate an expression in the context of a stack frame.",
	}, ts.evaluate)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "set-variable",
		Description: "Modify a variable's value inside the debugged program.",
	}, ts.setVariable)
}

// BreakpointSpec specifies a breakpoint location by file and line.
type BreakpointSpec struct {
	File string `json:"file" mcp:"source file path"`
	Line int    `json:"line" mcp:"line number"`
}

// DebugParams defines the parameters for starting a debug session.
type DebugParams struct {
	Mode        string           `json:"mode" mcp:"'source' (compile & debug), 'binary' (debug executable), or 'attach' (connect to process)"`
	Path        string           `json:"path,omitempty" mcp:"program path (required for source/binary modes)"`
	Args        []string         `json:"args,omitempty" mcp:"command line arguments for the program"`
	ProcessID   int              `json:"processId,omitempty" mcp:"process ID (required for attach mode)"`
	Breakpoints []BreakpointSpec `json:"breakpoints,omitempty" mcp:"initial breakpoints"`
	StopOnEntry bool             `json:"stopOnEntry,omitempty" mcp:"stop at program entry instead of running to the first breakpoint"`
}

// StopParams takes no arguments.
type StopParams struct{}

// BreakpointToolParams defines the parameters for setting a breakpoint.
type BreakpointToolParams struct {
	File      string  `json:"file" mcp:"source file path"`
	Line      int     `json:"line" mcp:"line number"`
	Condition *string `json:"condition,omitempty" mcp:"expression gating this breakpoint"`
}

// ClearBreakpointsParams defines the parameters for clearing breakpoints.
type ClearBreakpointsParams struct {
	File string `json:"file,omitempty" mcp:"clear breakpoints only in this file"`
	All  bool   `json:"all,omitempty" mcp:"clear every breakpoint"`
}

// ContinueParams defines the parameters for continuing execution.
type ContinueParams struct {
	ThreadID int `json:"threadId,omitempty" mcp:"thread to continue (0 lets the adapter decide, usually all threads)"`
}

// StepParams defines the parameters for stepping through code.
type StepParams struct {
	Mode     string `json:"mode" mcp:"'over' (next line), 'in' (into function), 'out' (out of function)"`
	ThreadID int    `json:"threadId,omitempty" mcp:"thread to step (default: the current stopped thread)"`
}

// PauseParams defines the parameters for pausing a thread.
type PauseParams struct {
	ThreadID int `json:"threadId" mcp:"thread ID to pause"`
}

// ContextParams defines the parameters for getting debugging context.
type ContextParams struct {
	ThreadID  int `json:"threadId,omitempty" mcp:"thread to inspect (default: the current stopped thread)"`
	FrameID   int `json:"frameId,omitempty" mcp:"frame to focus on (default: top frame)"`
	MaxFrames int `json:"maxFrames,omitempty" mcp:"maximum stack frames (default: 20)"`
}

// EvaluateParams defines the parameters for evaluating an expression.
type EvaluateParams struct {
	Expression string `json:"expression" mcp:"expression to evaluate"`
	FrameID    int    `json:"frameId" mcp:"stack frame ID for evaluation context"`
	Context    string `json:"context,omitempty" mcp:"context for evaluation (watch, repl, hover); default repl"`
}

// SetVariableParams defines the parameters for setting a variable.
type SetVariableParams struct {
	VariablesReference int    `json:"variablesReference" mcp:"reference to the variable container"`
	Name               string `json:"name" mcp:"name of the variable to set"`
	Value              string `json:"value" mcp:"new value for the variable"`
}

func textResult(text string) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

// active returns the session currently exposed through the MCP tools, or
// an error if debug hasn't been called yet.
func (ts *toolset) active() (*session.Session, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.sess == nil {
		return nil, fmt.Errorf("debugger not started")
	}
	return ts.sess, nil
}

// debug starts a complete debugging session: spawns the adapter, drives
// the handshake, installs any initial breakpoints, and runs to the first
// stop. When stopOnEntry is requested, or no initial breakpoints are
// given, it stays stopped at entry and returns a notice instead.
func (ts *toolset) debug(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[DebugParams]) (*mcp.CallToolResultFor[any], error) {
	ts.mu.Lock()
	if ts.sess != nil {
		ts.mu.Unlock()
		return nil, fmt.Errorf("a debug session is already active; call stop first")
	}
	ts.mu.Unlock()

	mode := params.Arguments.Mode
	switch mode {
	case "source", "binary", "attach":
	default:
		return nil, fmt.Errorf("invalid mode: %s (must be 'source', 'binary', or 'attach')", mode)
	}
	if mode == "attach" {
		if params.Arguments.ProcessID == 0 {
			return nil, fmt.Errorf("processId is required for attach mode")
		}
	} else if params.Arguments.Path == "" {
		return nil, fmt.Errorf("path is required for %s mode", mode)
	}

	for _, bp := range params.Arguments.Breakpoints {
		if bp.File == "" || bp.Line == 0 {
			continue
		}
		if err := ts.dbg.Add(ctx, core.NewLineLocation(bp.File, bp.Line), breakpoint.Attrs{}); err != nil {
			return nil, err
		}
	}

	stopOnEntry := params.Arguments.StopOnEntry || len(params.Arguments.Breakpoints) == 0
	body := dlvLaunchBody(mode, params.Arguments.Path, params.Arguments.Args, params.Arguments.ProcessID, stopOnEntry)

	cfg := session.StartConfig{
		ClientInfo: session.ClientInfo{ClientID: "dap-mcp", AdapterID: "delve"},
		Attach:     mode == "attach",
		Body:       body,
	}

	sess, err := ts.dbg.StartSession(ctx, adapterSpec(ts.adapterCmd), cfg)
	if err != nil {
		return nil, err
	}

	ts.mu.Lock()
	ts.sess = sess
	ts.mu.Unlock()

	if stopOnEntry {
		return textResult(fmt.Sprintf("Debug session started for %s, stopped at entry. Use 'continue' to run.", describeTarget(params.Arguments))), nil
	}

	if _, err := sess.Continue(ctx, 0); err != nil {
		return nil, err
	}
	return ts.waitAndReport(ctx, sess)
}

func describeTarget(p DebugParams) string {
	if p.Mode == "attach" {
		return fmt.Sprintf("process %d", p.ProcessID)
	}
	return p.Path
}

// stop ends the active debugging session.
func (ts *toolset) stop(ctx context.Context, _ *mcp.ServerSession, _ *mcp.CallToolParamsFor[StopParams]) (*mcp.CallToolResultFor[any], error) {
	ts.mu.Lock()
	sess := ts.sess
	ts.sess = nil
	ts.mu.Unlock()

	if sess == nil {
		return textResult("No debug session active"), nil
	}
	if err := ts.dbg.TerminateSession(ctx, sess, true); err != nil {
		ts.log.Warn("error terminating debug session", "error", err)
	}
	return textResult("Debug session stopped"), nil
}

// breakpoint sets or updates a breakpoint at file:line. The breakpoint is
// recorded in the Debugger's Store immediately and re-synced against
// every live Session, so the reply can report whether it came back
// verified.
func (ts *toolset) breakpoint(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[BreakpointToolParams]) (*mcp.CallToolResultFor[any], error) {
	if params.Arguments.File == "" || params.Arguments.Line == 0 {
		return nil, fmt.Errorf("file and line are required")
	}
	loc := core.NewLineLocation(params.Arguments.File, params.Arguments.Line)
	if err := ts.dbg.Add(ctx, loc, breakpoint.Attrs{Condition: params.Arguments.Condition}); err != nil {
		return nil, err
	}

	verified := ts.dbg.VerifiedBreakpointsAt(loc)
	if len(verified) == 0 {
		return textResult(fmt.Sprintf("Breakpoint requested at %s:%d (no active session to verify it against yet)", params.Arguments.File, params.Arguments.Line)), nil
	}
	v := verified[0]
	if v.Verified {
		return textResult(fmt.Sprintf("Breakpoint %d verified at %s:%d", v.ID, params.Arguments.File, v.ActualLocation.Line)), nil
	}
	return textResult(fmt.Sprintf("Breakpoint not verified at %s:%d: %s", params.Arguments.File, params.Arguments.Line, v.Message)), nil
}

// clearBreakpoints removes breakpoints from one file, or every breakpoint.
func (ts *toolset) clearBreakpoints(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[ClearBreakpointsParams]) (*mcp.CallToolResultFor[any], error) {
	if params.Arguments.All {
		if err := ts.dbg.Clear(ctx); err != nil {
			return nil, err
		}
		return textResult("Cleared all breakpoints"), nil
	}
	if params.Arguments.File == "" {
		return nil, fmt.Errorf("specify 'file' or 'all'")
	}
	uri := core.NormalizeURI(params.Arguments.File)
	for _, ub := range ts.dbg.Store.ByURI(uri) {
		if err := ts.dbg.Remove(ctx, ub.Location); err != nil {
			return nil, err
		}
	}
	return textResult(fmt.Sprintf("Cleared breakpoints in: %s", params.Arguments.File)), nil
}

// continueExecution resumes execution and returns full context when the
// program next stops, or a termination notice.
func (ts *toolset) continueExecution(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[ContinueParams]) (*mcp.CallToolResultFor[any], error) {
	sess, err := ts.active()
	if err != nil {
		return nil, err
	}
	if _, err := sess.Continue(ctx, params.Arguments.ThreadID); err != nil {
		return nil, err
	}
	return ts.waitAndReport(ctx, sess)
}

// step executes a single step and returns full context at the new
// location, or a termination notice.
func (ts *toolset) step(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[StepParams]) (*mcp.CallToolResultFor[any], error) {
	sess, err := ts.active()
	if err != nil {
		return nil, err
	}
	threadID := params.Arguments.ThreadID
	if threadID == 0 {
		if th := firstStoppedThread(sess); th != nil {
			threadID = th.ID()
		} else {
			threadID = 1
		}
	}

	switch params.Arguments.Mode {
	case "over":
		err = sess.Next(ctx, threadID)
	case "in":
		err = sess.StepIn(ctx, threadID)
	case "out":
		err = sess.StepOut(ctx, threadID)
	default:
		return nil, fmt.Errorf("invalid step mode: %s (must be 'over', 'in', or 'out')", params.Arguments.Mode)
	}
	if err != nil {
		return nil, err
	}
	return ts.waitAndReport(ctx, sess)
}

// pause asks the adapter to suspend a thread.
func (ts *toolset) pause(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[PauseParams]) (*mcp.CallToolResultFor[any], error) {
	sess, err := ts.active()
	if err != nil {
		return nil, err
	}
	if err := sess.Pause(ctx, params.Arguments.ThreadID); err != nil {
		return nil, err
	}
	return textResult("Paused execution"), nil
}

// context returns the full debugging context at the current location.
func (ts *toolset) context(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[ContextParams]) (*mcp.CallToolResultFor[any], error) {
	sess, err := ts.active()
	if err != nil {
		return nil, err
	}
	maxFrames := params.Arguments.MaxFrames
	if maxFrames == 0 {
		maxFrames = 20
	}
	th := threadByIDOrFirstStopped(sess, params.Arguments.ThreadID)
	return ts.fullContext(ctx, th, params.Arguments.FrameID, maxFrames)
}

// evaluate evaluates an expression in the context of a stack frame.
func (ts *toolset) evaluate(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[EvaluateParams]) (*mcp.CallToolResultFor[any], error) {
	sess, err := ts.active()
	if err != nil {
		return nil, err
	}
	evalContext := params.Arguments.Context
	if evalContext == "" {
		evalContext = "repl"
	}
	resp, err := sess.Evaluate(ctx, params.Arguments.Expression, params.Arguments.FrameID, evalContext)
	if err != nil {
		return nil, err
	}
	result := resp.Body.Result
	if resp.Body.Type != "" {
		result = fmt.Sprintf("%s (type: %s)", resp.Body.Result, resp.Body.Type)
	}
	return textResult(result), nil
}

// setVariable sets the value of a variable inside a variable container.
func (ts *toolset) setVariable(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[SetVariableParams]) (*mcp.CallToolResultFor[any], error) {
	sess, err := ts.active()
	if err != nil {
		return nil, err
	}
	if _, err := sess.SetVariable(ctx, params.Arguments.VariablesReference, params.Arguments.Name, params.Arguments.Value); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Set variable %s to %s", params.Arguments.Name, params.Arguments.Value)), nil
}

// waitAndReport blocks until sess next stops or terminates, then renders
// the result as an MCP tool response.
func (ts *toolset) waitAndReport(ctx context.Context, sess *session.Session) (*mcp.CallToolResultFor[any], error) {
	if err := waitForSessionState(ctx, sess, session.Stopped); err != nil {
		return nil, err
	}
	if sess.State.Get() == session.Terminated {
		return textResult(fmt.Sprintf("Program terminated (exit code %d)", sess.ExitCode())), nil
	}
	return ts.fullContext(ctx, firstStoppedThread(sess), 0, 20)
}

// waitForSessionState blocks until sess.State reaches target or
// session.Terminated (whichever comes first), or ctx is done.
func waitForSessionState(ctx context.Context, sess *session.Session, target session.State) error {
	done := make(chan struct{})
	var once sync.Once
	sub := sess.State.UseOnMain(func(s session.State) {
		if s == target || s == session.Terminated {
			once.Do(func() { close(done) })
		}
	})
	defer sub.Cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func firstStoppedThread(sess *session.Session) *entity.Thread {
	for _, th := range sess.Threads() {
		if th.State() == entity.ThreadStopped {
			return th
		}
	}
	return nil
}

func threadByIDOrFirstStopped(sess *session.Session, id int) *entity.Thread {
	if id == 0 {
		return firstStoppedThread(sess)
	}
	for _, th := range sess.Threads() {
		if th.ID() == id {
			return th
		}
	}
	return nil
}

// fullContext renders a complete context dump for th: current location,
// stack trace, and the variables of every scope in the target frame.
func (ts *toolset) fullContext(ctx context.Context, th *entity.Thread, frameID, maxFrames int) (*mcp.CallToolResultFor[any], error) {
	if th == nil {
		return textResult("No stopped thread to inspect"), nil
	}

	stack, err := th.LoadCurrentStack(ctx, maxFrames)
	if err != nil {
		return nil, err
	}
	frames := stack.Frames()

	var out strings.Builder
	if len(frames) > 0 {
		top := frames[0]
		out.WriteString("## Current Location\n")
		fmt.Fprintf(&out, "Function: %s\n", top.Name)
		if top.Source != nil {
			fmt.Fprintf(&out, "File: %s:%d\n", top.Source.Path, top.Line)
		}
		out.WriteString("\n")
	}

	out.WriteString("## Stack Trace\n")
	for i, f := range frames {
		fmt.Fprintf(&out, "#%d (Frame ID: %d) %s", i, f.ID, f.Name)
		if f.Source != nil && f.Source.Path != "" {
			fmt.Fprintf(&out, " at %s:%d", f.Source.Path, f.Line)
		}
		out.WriteString("\n")
	}
	out.WriteString("\n")

	target := pickFrame(frames, frameID)
	if target != nil {
		out.WriteString("## Variables\n")
		scopes, err := target.Scopes(ctx)
		if err != nil {
			out.WriteString("(unable to retrieve scopes)\n")
		}
		for _, sc := range scopes {
			fmt.Fprintf(&out, "### %s\n", sc.Name)
			vars, err := sc.Variables(ctx)
			if err != nil {
				out.WriteString("  (unable to retrieve variables)\n")
				continue
			}
			for _, v := range vars {
				fmt.Fprintf(&out, "  %s", v.Name)
				if v.Type != "" {
					fmt.Fprintf(&out, " (%s)", v.Type)
				}
				fmt.Fprintf(&out, " = %s\n", v.Value)
			}
		}
	}

	return textResult(out.String()), nil
}

func pickFrame(frames []*entity.Frame, frameID int) *entity.Frame {
	if frameID == 0 {
		if len(frames) == 0 {
			return nil
		}
		return frames[0]
	}
	for _, f := range frames {
		if f.ID == frameID {
			return f
		}
	}
	return nil
}
