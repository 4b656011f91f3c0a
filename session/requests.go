package session

import (
	"context"

	"github.com/google/go-dap"

	"github.com/dapcore/runtime/core"
)

// StackTrace satisfies entity.Requester.
func (s *Session) StackTrace(ctx context.Context, threadID, startFrame, levels int) ([]dap.StackFrame, int, error) {
	resp, err := s.transport.Request(ctx, &dap.StackTraceRequest{
		Request: dap.Request{Command: "stackTrace"},
		Arguments: dap.StackTraceArguments{
			ThreadId:   threadID,
			StartFrame: startFrame,
			Levels:     levels,
		},
	})
	if err != nil {
		return nil, 0, err
	}
	r, ok := resp.(*dap.StackTraceResponse)
	if !ok {
		return nil, 0, &core.ProtocolError{Detail: "stackTrace response had unexpected shape"}
	}
	return r.Body.StackFrames, r.Body.TotalFrames, nil
}

// Scopes satisfies entity.Requester.
func (s *Session) Scopes(ctx context.Context, frameID int) ([]dap.Scope, error) {
	resp, err := s.transport.Request(ctx, &dap.ScopesRequest{
		Request:   dap.Request{Command: "scopes"},
		Arguments: dap.ScopesArguments{FrameId: frameID},
	})
	if err != nil {
		return nil, err
	}
	r, ok := resp.(*dap.ScopesResponse)
	if !ok {
		return nil, &core.ProtocolError{Detail: "scopes response had unexpected shape"}
	}
	return r.Body.Scopes, nil
}

// Variables satisfies entity.Requester.
func (s *Session) Variables(ctx context.Context, variablesReference int) ([]dap.Variable, error) {
	resp, err := s.transport.Request(ctx, &dap.VariablesRequest{
		Request:   dap.Request{Command: "variables"},
		Arguments: dap.VariablesArguments{VariablesReference: variablesReference},
	})
	if err != nil {
		return nil, err
	}
	r, ok := resp.(*dap.VariablesResponse)
	if !ok {
		return nil, &core.ProtocolError{Detail: "variables response had unexpected shape"}
	}
	return r.Body.Variables, nil
}

// SetBreakpoints satisfies breakpoint.Requester.
func (s *Session) SetBreakpoints(ctx context.Context, source dap.Source, breakpoints []dap.SourceBreakpoint) ([]dap.Breakpoint, error) {
	resp, err := s.transport.Request(ctx, &dap.SetBreakpointsRequest{
		Request: dap.Request{Command: "setBreakpoints"},
		Arguments: dap.SetBreakpointsArguments{
			Source:      source,
			Breakpoints: breakpoints,
		},
	})
	if err != nil {
		return nil, err
	}
	r, ok := resp.(*dap.SetBreakpointsResponse)
	if !ok {
		return nil, &core.ProtocolError{Detail: "setBreakpoints response had unexpected shape"}
	}
	return r.Body.Breakpoints, nil
}

// BreakpointLocations satisfies breakpoint.Requester.
func (s *Session) BreakpointLocations(ctx context.Context, source dap.Source, line int, endLine *int) ([]dap.BreakpointLocation, error) {
	args := dap.BreakpointLocationsArguments{Source: source, Line: line}
	if endLine != nil {
		args.EndLine = *endLine
	}
	resp, err := s.transport.Request(ctx, &dap.BreakpointLocationsRequest{
		Request:   dap.Request{Command: "breakpointLocations"},
		Arguments: args,
	})
	if err != nil {
		return nil, err
	}
	r, ok := resp.(*dap.BreakpointLocationsResponse)
	if !ok {
		return nil, &core.ProtocolError{Detail: "breakpointLocations response had unexpected shape"}
	}
	return r.Body.Breakpoints, nil
}

// SetExceptionBreakpoints configures which exception classes the adapter
// should stop on.
func (s *Session) SetExceptionBreakpoints(ctx context.Context, filters []string) error {
	_, err := s.transport.Request(ctx, &dap.SetExceptionBreakpointsRequest{
		Request:   dap.Request{Command: "setExceptionBreakpoints"},
		Arguments: dap.SetExceptionBreakpointsArguments{Filters: filters},
	})
	return err
}

// RequestThreads lists the adapter's current threads.
func (s *Session) RequestThreads(ctx context.Context) ([]dap.Thread, error) {
	resp, err := s.transport.Request(ctx, &dap.ThreadsRequest{Request: dap.Request{Command: "threads"}})
	if err != nil {
		return nil, err
	}
	r, ok := resp.(*dap.ThreadsResponse)
	if !ok {
		return nil, &core.ProtocolError{Detail: "threads response had unexpected shape"}
	}
	return r.Body.Threads, nil
}

// Continue resumes the given thread (or all threads, per the adapter's
// interpretation) and reports whether the adapter continued every thread.
func (s *Session) Continue(ctx context.Context, threadID int) (allThreadsContinued bool, err error) {
	resp, err := s.transport.Request(ctx, &dap.ContinueRequest{
		Request:   dap.Request{Command: "continue"},
		Arguments: dap.ContinueArguments{ThreadId: threadID},
	})
	if err != nil {
		return false, err
	}
	r, ok := resp.(*dap.ContinueResponse)
	if !ok {
		return false, &core.ProtocolError{Detail: "continue response had unexpected shape"}
	}
	return r.Body.AllThreadsContinued, nil
}

// Next issues a single-step-over for the given thread.
func (s *Session) Next(ctx context.Context, threadID int) error {
	_, err := s.transport.Request(ctx, &dap.NextRequest{
		Request:   dap.Request{Command: "next"},
		Arguments: dap.NextArguments{ThreadId: threadID},
	})
	return err
}

// StepIn steps into the next function call on the given thread.
func (s *Session) StepIn(ctx context.Context, threadID int) error {
	_, err := s.transport.Request(ctx, &dap.StepInRequest{
		Request:   dap.Request{Command: "stepIn"},
		Arguments: dap.StepInArguments{ThreadId: threadID},
	})
	return err
}

// StepOut steps out of the current function on the given thread.
func (s *Session) StepOut(ctx context.Context, threadID int) error {
	_, err := s.transport.Request(ctx, &dap.StepOutRequest{
		Request:   dap.Request{Command: "stepOut"},
		Arguments: dap.StepOutArguments{ThreadId: threadID},
	})
	return err
}

// Pause asks the adapter to suspend the given thread.
func (s *Session) Pause(ctx context.Context, threadID int) error {
	_, err := s.transport.Request(ctx, &dap.PauseRequest{
		Request:   dap.Request{Command: "pause"},
		Arguments: dap.PauseArguments{ThreadId: threadID},
	})
	return err
}

// SetVariable changes the value of one variable inside the container
// identified by variablesReference.
func (s *Session) SetVariable(ctx context.Context, variablesReference int, name, value string) (*dap.SetVariableResponse, error) {
	resp, err := s.transport.Request(ctx, &dap.SetVariableRequest{
		Request: dap.Request{Command: "setVariable"},
		Arguments: dap.SetVariableArguments{
			VariablesReference: variablesReference,
			Name:               name,
			Value:              value,
		},
	})
	if err != nil {
		return nil, err
	}
	r, ok := resp.(*dap.SetVariableResponse)
	if !ok {
		return nil, &core.ProtocolError{Detail: "setVariable response had unexpected shape"}
	}
	return r, nil
}

// Evaluate evaluates expr in the context of frameID (0 for the global
// context) under the given presentation context (e.g. "watch", "repl",
// "hover").
func (s *Session) Evaluate(ctx context.Context, expr string, frameID int, context string) (*dap.EvaluateResponse, error) {
	resp, err := s.transport.Request(ctx, &dap.EvaluateRequest{
		Request: dap.Request{Command: "evaluate"},
		Arguments: dap.EvaluateArguments{
			Expression: expr,
			FrameId:    frameID,
			Context:    context,
		},
	})
	if err != nil {
		return nil, err
	}
	r, ok := resp.(*dap.EvaluateResponse)
	if !ok {
		return nil, &core.ProtocolError{Detail: "evaluate response had unexpected shape"}
	}
	return r, nil
}
