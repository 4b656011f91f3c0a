// Package debugger is the process-wide root: it owns every Session, the
// single cross-session UserBreakpoint store, and the focus context
// (session, thread, frame) that the rest of the host process observes.
// It is the only runtime package that imports transport, session, entity,
// and breakpoint together (the cmd/dap-mcp consumer does too) — everything
// below it depends only downward.
package debugger

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/go-dap"

	"github.com/dapcore/runtime/breakpoint"
	"github.com/dapcore/runtime/core"
	"github.com/dapcore/runtime/entity"
	"github.com/dapcore/runtime/session"
	"github.com/dapcore/runtime/transport"
)

// Debugger is the multi-session coordinator.
type Debugger struct {
	log *slog.Logger

	Sessions *core.Set[*session.Session]
	Store    *breakpoint.Store

	Disambiguator breakpoint.Disambiguator

	Focus *FocusContext

	mu         sync.Mutex
	registries map[*session.Session]*breakpoint.Registry
}

// New constructs an empty Debugger. log may be nil.
func New(log *slog.Logger) *Debugger {
	if log == nil {
		log = core.NopLogger()
	}
	return &Debugger{
		log:        log,
		Sessions:   core.NewSet[*session.Session](),
		Store:      breakpoint.NewStore(),
		Focus:      newFocusContext(),
		registries: make(map[*session.Session]*breakpoint.Registry),
	}
}

// StartSession spawns (or connects to) an adapter, drives the full
// handshake, and — once the adapter reaches `configuring` — re-syncs
// every Source implied by the current UserBreakpoint store against it, so
// a fresh Session always ends up with the same breakpoints installed as
// every other live Session. The Session is added to d.Sessions only once
// Start succeeds.
func (d *Debugger) StartSession(ctx context.Context, spec transport.AdapterSpec, cfg session.StartConfig) (*session.Session, error) {
	client, err := transport.Connect(ctx, spec, d.log)
	if err != nil {
		return nil, err
	}

	sess := session.New(client, d.log)
	reg := breakpoint.NewRegistry(sess)

	d.mu.Lock()
	d.registries[sess] = reg
	d.mu.Unlock()

	d.wireBreakpointEvents(sess, reg)

	userOnConfigure := cfg.OnConfigure
	cfg.OnConfigure = func(ctx context.Context, s *session.Session) error {
		if err := d.syncAllKnownSources(ctx, s, reg); err != nil {
			return err
		}
		if userOnConfigure != nil {
			return userOnConfigure(ctx, s)
		}
		return nil
	}

	if err := sess.Start(ctx, cfg); err != nil {
		d.mu.Lock()
		delete(d.registries, sess)
		d.mu.Unlock()
		return nil, err
	}

	d.Sessions.Add(sess)
	return sess, nil
}

// TerminateSession disconnects sess and removes it from the Debugger.
// Any focus pointing at it is cleared.
func (d *Debugger) TerminateSession(ctx context.Context, sess *session.Session, terminateDebuggee bool) error {
	err := sess.Disconnect(ctx, terminateDebuggee)

	d.Sessions.Remove(sess, func(a, b *session.Session) bool { return a == b })
	d.mu.Lock()
	delete(d.registries, sess)
	d.mu.Unlock()

	if d.Focus.Session() == sess {
		d.Focus.Clear()
	}
	return err
}

// registryFor returns the breakpoint.Registry owned by sess, if any.
func (d *Debugger) registryFor(sess *session.Session) *breakpoint.Registry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.registries[sess]
}

// syncAllKnownSources walks every URI currently present in the
// UserBreakpoint store and re-syncs the matching Source in sess's
// registry against it — the cross-session re-coherence a newly
// configuring Session needs to end up with the same breakpoints every
// other Session has installed.
func (d *Debugger) syncAllKnownSources(ctx context.Context, sess *session.Session, reg *breakpoint.Registry) error {
	uris := make(map[string]struct{})
	for _, ub := range d.Store.All() {
		uris[ub.Location.URI] = struct{}{}
	}
	for uri := range uris {
		e := sess.SourceFor(entity.NewPathSource(uri, uri))
		src := reg.SourceFor(e)
		if err := src.SyncBreakpoints(ctx, d.Store, d.Disambiguator, breakpoint.ActionAdd); err != nil {
			return err
		}
	}
	return nil
}

// resyncURI re-syncs uri's Source against every live Session. Used by
// every Store-mutating operation below so a breakpoint toggled while
// Sessions are already running takes effect immediately, not just at the
// next Session's configuring phase.
func (d *Debugger) resyncURI(ctx context.Context, uri string, action breakpoint.DisambiguateAction) error {
	for _, sess := range d.Sessions.Members() {
		reg := d.registryFor(sess)
		if reg == nil {
			continue
		}
		e := sess.SourceFor(entity.NewPathSource(uri, uri))
		src := reg.SourceFor(e)
		if err := src.SyncBreakpoints(ctx, d.Store, d.Disambiguator, action); err != nil {
			return err
		}
	}
	return nil
}

// Toggle adds or removes a UserBreakpoint at loc, then re-syncs the
// affected Source against every live Session. The resync uses
// ActionToggle so a Disambiguator can phrase its prompt for a toggle
// rather than a plain add.
func (d *Debugger) Toggle(ctx context.Context, loc core.Location) error {
	uri, _ := d.Store.Toggle(loc)
	return d.resyncURI(ctx, uri, breakpoint.ActionToggle)
}

// Add adds or updates a UserBreakpoint at loc with attrs, then re-syncs.
func (d *Debugger) Add(ctx context.Context, loc core.Location, attrs breakpoint.Attrs) error {
	uri := d.Store.Add(loc, attrs)
	return d.resyncURI(ctx, uri, breakpoint.ActionAdd)
}

// Remove deletes the UserBreakpoint at loc, then re-syncs.
func (d *Debugger) Remove(ctx context.Context, loc core.Location) error {
	uri := d.Store.Remove(loc)
	return d.resyncURI(ctx, uri, breakpoint.ActionAdd)
}

// Enable/Disable flip a UserBreakpoint's enabled flag, then re-sync.
func (d *Debugger) Enable(ctx context.Context, loc core.Location) error {
	uri := d.Store.Enable(loc)
	return d.resyncURI(ctx, uri, breakpoint.ActionAdd)
}

func (d *Debugger) Disable(ctx context.Context, loc core.Location) error {
	uri := d.Store.Disable(loc)
	return d.resyncURI(ctx, uri, breakpoint.ActionAdd)
}

// SetCondition finds-or-creates the UserBreakpoint at loc and updates its
// condition, then re-syncs.
func (d *Debugger) SetCondition(ctx context.Context, loc core.Location, cond string) error {
	uri := d.Store.SetCondition(loc, cond)
	return d.resyncURI(ctx, uri, breakpoint.ActionAdd)
}

// Clear drops every UserBreakpoint and re-syncs every Source it touched
// across every live Session.
func (d *Debugger) Clear(ctx context.Context) error {
	uris := d.Store.Clear()
	for _, uri := range uris {
		if err := d.resyncURI(ctx, uri, breakpoint.ActionAdd); err != nil {
			return err
		}
	}
	return nil
}

// wireBreakpointEvents routes sess's async `breakpoint` events to reg so
// VerifiedBreakpoints stay current without a full re-sync.
func (d *Debugger) wireBreakpointEvents(sess *session.Session, reg *breakpoint.Registry) {
	sess.OnBreakpointEvent(func(reason string, bp dap.Breakpoint, src *entity.Source) {
		reg.SourceFor(src).ApplyBreakpointEvent(reason, bp)
	})
}

// FocusURI resolves the richest entity identified by uri and focuses it:
// the top stopped frame of the first stopped thread, in the first
// Session, whose current stack references a source at that path. If no
// stopped thread references uri, focus is left unchanged.
func (d *Debugger) FocusURI(ctx context.Context, uri string) bool {
	for _, sess := range d.Sessions.Members() {
		for _, th := range sess.Threads() {
			if th.State() != entity.ThreadStopped {
				continue
			}
			stack, err := th.LoadCurrentStack(ctx, 0)
			if err != nil {
				continue
			}
			for _, fr := range stack.Frames() {
				if fr.Source != nil && fr.Source.Path == core.NormalizeURI(uri) {
					d.Focus.FocusThread(ctx, sess, th)
					return true
				}
			}
		}
	}
	return false
}

// IsInFocusedContext reports whether sess is the focused session, or no
// session is focused at all.
func (d *Debugger) IsInFocusedContext(sess *session.Session) bool {
	return d.Focus.IsInFocusedContext(sess)
}

// VerifiedBreakpointsAt returns every VerifiedBreakpoint currently known to
// match loc, across every live Session's registries.
func (d *Debugger) VerifiedBreakpointsAt(loc core.Location) []*breakpoint.VerifiedBreakpoint {
	d.mu.Lock()
	regs := make([]*breakpoint.Registry, 0, len(d.registries))
	for _, r := range d.registries {
		regs = append(regs, r)
	}
	d.mu.Unlock()

	var out []*breakpoint.VerifiedBreakpoint
	for _, reg := range regs {
		for _, src := range reg.All() {
			out = append(out, src.VerifiedAt(loc)...)
		}
	}
	return out
}
