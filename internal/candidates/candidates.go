// Package candidates enumerates the top-level windows a cycle may visit.
package candidates

import (
	"errors"
	"log/slog"

	"sameappswitcher/internal/identity"
	"sameappswitcher/internal/window"
)

// Candidate is one eligible window. The handle is not owned and is only valid
// until the next enumeration pass.
type Candidate struct {
	Handle   window.Handle
	Identity identity.Identity
	// Title is captured only when a diagnostic title channel is attached.
	// It never takes part in matching or ordering.
	Title string
}

// PID returns the owning process id.
func (c Candidate) PID() uint32 { return c.Identity.PID() }

// List is an ordered candidate sequence in raw OS enumeration order.
type List []Candidate

// Len returns the number of candidates.
func (l List) Len() int { return len(l) }

// At returns the candidate at index i.
func (l List) At(i int) Candidate { return l[i] }

// WindowSystem is the read-only slice of the OS window system used for
// enumeration.
type WindowSystem interface {
	// EnumTopLevel calls visit for every top-level window in OS order until
	// visit returns false.
	EnumTopLevel(visit func(window.Handle) bool) error
	IsVisible(h window.Handle) bool
	Styles(h window.Handle) (window.Styles, error)
}

// DesktopService answers "is this window on the active virtual desktop".
type DesktopService interface {
	IsOnCurrentDesktop(h window.Handle) (bool, error)
}

// IdentityResolver resolves the owning process identity of a window.
type IdentityResolver interface {
	Resolve(h window.Handle) (identity.Identity, error)
}

// TitleReader is the optional diagnostic channel for window titles.
type TitleReader interface {
	Title(h window.Handle) string
}

// Enumerator walks top-level windows and filters them down to candidates.
type Enumerator struct {
	windows  WindowSystem
	resolver IdentityResolver
	desktop  DesktopService
	titles   TitleReader
}

// Option configures an Enumerator.
type Option func(*Enumerator)

// WithDesktop attaches the virtual desktop service. Without it the desktop
// filter is skipped entirely.
func WithDesktop(d DesktopService) Option {
	return func(e *Enumerator) { e.desktop = d }
}

// WithTitles attaches the diagnostic title channel.
func WithTitles(t TitleReader) Option {
	return func(e *Enumerator) { e.titles = t }
}

// NewEnumerator creates an Enumerator.
func NewEnumerator(windows WindowSystem, resolver IdentityResolver, opts ...Option) *Enumerator {
	e := &Enumerator{windows: windows, resolver: resolver}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetTitles replaces the diagnostic title channel; nil detaches it.
func (e *Enumerator) SetTitles(t TitleReader) {
	e.titles = t
}

// DesktopFilterAvailable reports whether the virtual desktop filter can run.
func (e *Enumerator) DesktopFilterAvailable() bool {
	return e.desktop != nil
}

// Enumerate returns the windows belonging to target, in OS order. Exclusion
// predicates run in order and short-circuit: visibility, active virtual
// desktop, style, identity. A failure inspecting one window excludes that
// window only.
func (e *Enumerator) Enumerate(target identity.Identity, activeDesktopOnly bool) List {
	var list List
	seen := make(map[window.Handle]struct{})

	err := e.windows.EnumTopLevel(func(h window.Handle) bool {
		if _, dup := seen[h]; dup {
			return true
		}
		seen[h] = struct{}{}

		c, ok := e.inspect(h, target, activeDesktopOnly)
		if ok {
			list = append(list, c)
		}
		return true
	})
	if err != nil {
		// Keep whatever was collected before the OS aborted the walk.
		slog.Warn("[WARN-ENUM] top-level window enumeration ended with error",
			"error", err, "collected", len(list))
	}
	return list
}

func (e *Enumerator) inspect(h window.Handle, target identity.Identity, activeDesktopOnly bool) (Candidate, bool) {
	if !e.windows.IsVisible(h) {
		return Candidate{}, false
	}

	if activeDesktopOnly && e.desktop != nil {
		onCurrent, err := e.desktop.IsOnCurrentDesktop(h)
		if err != nil {
			slog.Warn("[WARN-ENUM] virtual desktop query failed, excluding window",
				"hwnd", h, "error", err)
			return Candidate{}, false
		}
		if !onCurrent {
			return Candidate{}, false
		}
	}

	styles, err := e.windows.Styles(h)
	if err != nil {
		slog.Debug("[DEBUG-ENUM] window styles unreadable, excluding window", "hwnd", h, "error", err)
		return Candidate{}, false
	}
	if styles.Excluded() {
		return Candidate{}, false
	}

	id, err := e.resolver.Resolve(h)
	if err != nil {
		if !errors.Is(err, identity.ErrNotResolvable) {
			slog.Debug("[DEBUG-ENUM] unexpected identity error", "hwnd", h, "error", err)
		}
		return Candidate{}, false
	}
	if !id.Equal(target) {
		return Candidate{}, false
	}

	c := Candidate{Handle: h, Identity: id}
	if e.titles != nil {
		c.Title = e.titles.Title(h)
	}
	return c, true
}
