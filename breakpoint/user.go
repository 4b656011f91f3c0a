package breakpoint

import "github.com/dapcore/runtime/core"

// Attrs carries the mutable attributes of a UserBreakpoint. A nil pointer
// field in an update leaves the corresponding attribute unchanged.
type Attrs struct {
	Condition    *string
	HitCondition *string
	LogMessage   *string
}

// UserBreakpoint is user intent: a Location the user wants to stop at,
// plus the attributes to send with it. It owns its identity across
// Sessions and survives session restarts; only an explicit Store.Remove
// or Store.Clear deletes it.
type UserBreakpoint struct {
	Location     core.Location
	Enabled      bool
	Condition    string
	HitCondition string
	LogMessage   string
}

func (u *UserBreakpoint) applyAttrs(a Attrs) {
	if a.Condition != nil {
		u.Condition = *a.Condition
	}
	if a.HitCondition != nil {
		u.HitCondition = *a.HitCondition
	}
	if a.LogMessage != nil {
		u.LogMessage = *a.LogMessage
	}
}

func (u *UserBreakpoint) clone() *UserBreakpoint {
	c := *u
	return &c
}
