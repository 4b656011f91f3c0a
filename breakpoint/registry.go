package breakpoint

import (
	"sync"

	"github.com/dapcore/runtime/entity"
)

// Registry owns the breakpoint.Source wrappers for one Session, keyed by
// the wrapped entity.Source's identity key. It is the Session-scoped half
// of breakpoint tracking; the Debugger owns one Registry per Session plus
// the single process-wide Store of UserBreakpoints.
type Registry struct {
	req Requester

	mu      sync.Mutex
	sources map[string]*Source
}

// NewRegistry constructs an empty Registry whose Sources will issue
// requests through req.
func NewRegistry(req Requester) *Registry {
	return &Registry{req: req, sources: make(map[string]*Source)}
}

// SourceFor returns the breakpoint.Source wrapping e, creating it on
// first reference. "new" breakpoint events and any operation touching a
// previously-unseen Source both go through this path, matching the rule
// that a "new" event attaches to the Source it names, creating it if
// unknown.
func (r *Registry) SourceFor(e *entity.Source) *Source {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := e.Key()
	if s, ok := r.sources[key]; ok {
		return s
	}
	s := NewSource(e, r.req)
	r.sources[key] = s
	return s
}

// All returns every Source this Registry has created so far.
func (r *Registry) All() []*Source {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Source, 0, len(r.sources))
	for _, s := range r.sources {
		out = append(out, s)
	}
	return out
}
