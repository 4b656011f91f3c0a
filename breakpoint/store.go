package breakpoint

import (
	"fmt"
	"sync"

	"github.com/dapcore/runtime/core"
)

func locKey(l core.Location) string {
	if l.HasColumn() {
		return fmt.Sprintf("%s:%d:%d", l.URI, l.Line, l.ColumnOr(0))
	}
	return fmt.Sprintf("%s:%d:-", l.URI, l.Line)
}

// Store is the Debugger's order-preserving set of UserBreakpoints, keyed
// by Location. It has no adapter knowledge of its own; callers are
// responsible for re-syncing whichever Sources a mutation affects (Store
// methods report which, if any, URI was touched).
type Store struct {
	mu    sync.Mutex
	order []string
	byKey map[string]*UserBreakpoint
}

// NewStore constructs an empty breakpoint store.
func NewStore() *Store {
	return &Store{byKey: make(map[string]*UserBreakpoint)}
}

// find returns the UserBreakpoint matching loc, if any. Must hold mu.
func (s *Store) find(loc core.Location) *UserBreakpoint {
	return s.byKey[locKey(loc)]
}

// Toggle removes the matching UserBreakpoint if one exists at loc, else
// adds a fresh enabled one. Returns the affected location's URI and
// whether a breakpoint now exists there after the call (false means it
// was just removed).
func (s *Store) Toggle(loc core.Location) (uri string, nowPresent bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := locKey(loc)
	if _, ok := s.byKey[key]; ok {
		delete(s.byKey, key)
		s.removeFromOrder(key)
		return loc.URI, false
	}
	s.byKey[key] = &UserBreakpoint{Location: loc, Enabled: true}
	s.order = append(s.order, key)
	return loc.URI, true
}

// Add inserts a new enabled UserBreakpoint at loc, or merges attrs into
// an existing one at the same Location. Idempotent: Add(L,a); Add(L,a)
// equals a single Add(L,a).
func (s *Store) Add(loc core.Location, attrs Attrs) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := locKey(loc)
	if ub, ok := s.byKey[key]; ok {
		ub.applyAttrs(attrs)
		return loc.URI
	}
	ub := &UserBreakpoint{Location: loc, Enabled: true}
	ub.applyAttrs(attrs)
	s.byKey[key] = ub
	s.order = append(s.order, key)
	return loc.URI
}

// Remove deletes the UserBreakpoint at loc, if any. Idempotent.
func (s *Store) Remove(loc core.Location) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := locKey(loc)
	if _, ok := s.byKey[key]; ok {
		delete(s.byKey, key)
		s.removeFromOrder(key)
	}
	return loc.URI
}

// Enable/Disable flip the enabled flag of the UserBreakpoint at loc, if
// present. Idempotent.
func (s *Store) Enable(loc core.Location) string  { return s.setEnabled(loc, true) }
func (s *Store) Disable(loc core.Location) string { return s.setEnabled(loc, false) }

func (s *Store) setEnabled(loc core.Location, enabled bool) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ub := s.find(loc); ub != nil {
		ub.Enabled = enabled
	}
	return loc.URI
}

// SetCondition finds-or-creates the UserBreakpoint at loc and sets its
// condition.
func (s *Store) SetCondition(loc core.Location, cond string) string {
	return s.Add(loc, Attrs{Condition: &cond})
}

// Clear drops every UserBreakpoint and returns the set of distinct URIs
// that held one, so the caller can re-sync each affected Source.
func (s *Store) Clear() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{})
	uris := make([]string, 0, len(s.byKey))
	for _, ub := range s.byKey {
		if _, ok := seen[ub.Location.URI]; !ok {
			seen[ub.Location.URI] = struct{}{}
			uris = append(uris, ub.Location.URI)
		}
	}
	s.byKey = make(map[string]*UserBreakpoint)
	s.order = nil
	return uris
}

// ByURI returns a stable-ordered snapshot of the UserBreakpoints whose
// Location.URI equals uri. Used by Source.SyncBreakpoints to compute the
// full-replacement set for one source.
func (s *Store) ByURI(uri string) []*UserBreakpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*UserBreakpoint, 0)
	for _, key := range s.order {
		ub := s.byKey[key]
		if ub != nil && ub.Location.URI == uri {
			out = append(out, ub.clone())
		}
	}
	return out
}

// All returns every UserBreakpoint in insertion order.
func (s *Store) All() []*UserBreakpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*UserBreakpoint, 0, len(s.order))
	for _, key := range s.order {
		if ub := s.byKey[key]; ub != nil {
			out = append(out, ub.clone())
		}
	}
	return out
}

// removeFromOrder deletes key from s.order. Must hold mu.
func (s *Store) removeFromOrder(key string) {
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}
