package entity

import (
	"context"
	"strings"
	"sync"

	"github.com/google/go-dap"
)

// ScopeKind enumerates the well-known variable scope categories.
type ScopeKind int

const (
	ScopeGeneric ScopeKind = iota
	ScopeArguments
	ScopeLocals
	ScopeRegisters
	ScopeGlobals
	ScopeClosure
	ScopeReturnValue
	ScopeException
)

// scopeKindByName maps the well-known DAP scope presentation hints/names
// (vscode-debugadapter-node's Scope.presentationHint values plus the
// common literal Name strings adapters send) to ScopeKind.
var scopeKindByName = map[string]ScopeKind{
	"arguments":    ScopeArguments,
	"locals":       ScopeLocals,
	"registers":    ScopeRegisters,
	"globals":      ScopeGlobals,
	"closure":      ScopeClosure,
	"return value": ScopeReturnValue,
	"returnvalue":  ScopeReturnValue,
	"exception":    ScopeException,
}

// ParseScopeKind classifies a scope by its DAP presentationHint (checked
// first, since it is the normative signal) falling back to its display
// Name.
func ParseScopeKind(name, presentationHint string) ScopeKind {
	if k, ok := scopeKindByName[strings.ToLower(presentationHint)]; ok {
		return k
	}
	if k, ok := scopeKindByName[strings.ToLower(name)]; ok {
		return k
	}
	return ScopeGeneric
}

// Scope is one of a Frame's variable scopes. Variables() memoizes for the
// lifetime of the current stop.
type Scope struct {
	requester Requester

	Name               string
	Kind               ScopeKind
	VariablesReference int
	Expensive          bool

	mu        sync.Mutex
	variables []*Variable
	loaded    bool
}

func newScope(requester Requester, s dap.Scope) *Scope {
	return &Scope{
		requester:          requester,
		Name:               s.Name,
		Kind:               ParseScopeKind(s.Name, s.PresentationHint),
		VariablesReference: s.VariablesReference,
		Expensive:          s.Expensive,
	}
}

// Variables returns this scope's variables, issuing a DAP variables
// request on first call and memoizing the result until the Frame's owning
// Thread resumes (callers discard Scope instances on resume along with
// the rest of the Stack; Scope itself does not watch Thread state).
func (s *Scope) Variables(ctx context.Context) ([]*Variable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.variables, nil
	}
	if s.VariablesReference == 0 {
		s.loaded = true
		return nil, nil
	}
	raw, err := s.requester.Variables(ctx, s.VariablesReference)
	if err != nil {
		return nil, err
	}
	vars := make([]*Variable, 0, len(raw))
	for _, v := range raw {
		vars = append(vars, newVariable(s.requester, v))
	}
	s.variables = vars
	s.loaded = true
	return s.variables, nil
}
