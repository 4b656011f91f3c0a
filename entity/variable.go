package entity

import (
	"context"
	"fmt"

	"github.com/google/go-dap"
)

// Variable is a single named value in a scope or composite variable.
// Expansion re-enters Variables() on VariablesReference and does not
// break cycles itself — consumers must render by VariablesReference
// identity, not by recursing blindly.
type Variable struct {
	requester Requester

	Name               string
	Value              string
	Type               string
	VariablesReference int
	EvaluateName       string
	PresentationHint   *dap.VariablePresentationHint
}

func newVariable(requester Requester, v dap.Variable) *Variable {
	return &Variable{
		requester:          requester,
		Name:               v.Name,
		Value:              v.Value,
		Type:               v.Type,
		VariablesReference: v.VariablesReference,
		EvaluateName:       v.EvaluateName,
		PresentationHint:   v.PresentationHint,
	}
}

// Expandable reports whether Expand has anything to return.
func (v *Variable) Expandable() bool {
	return v.VariablesReference > 0
}

// Expand hydrates this Variable's children by re-issuing a DAP variables
// request against its VariablesReference. Callers detect cycles (e.g. an
// object referencing itself) by comparing VariablesReference identity
// across calls; this method does not break or cache cycles itself.
func (v *Variable) Expand(ctx context.Context) ([]*Variable, error) {
	if !v.Expandable() {
		return nil, fmt.Errorf("entity: variable %q has no children", v.Name)
	}
	raw, err := v.requester.Variables(ctx, v.VariablesReference)
	if err != nil {
		return nil, err
	}
	out := make([]*Variable, 0, len(raw))
	for _, rv := range raw {
		out = append(out, newVariable(v.requester, rv))
	}
	return out, nil
}
