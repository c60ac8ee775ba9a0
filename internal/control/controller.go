// Package control interprets hotkey events and owns the switching state:
// the candidate list, the cursor and the pause / restore toggles. A
// Controller is not safe for concurrent use; it is driven by the single
// event-processing thread.
package control

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"sameappswitcher/internal/candidates"
	"sameappswitcher/internal/cycle"
	"sameappswitcher/internal/hotkeys"
	"sameappswitcher/internal/identity"
	"sameappswitcher/internal/window"
)

// Hotkey identifiers registered with the OS.
const (
	HotkeyForward       hotkeys.ID = 12
	HotkeyBackward      hotkeys.ID = 13
	HotkeyToggleRestore hotkeys.ID = 14
	HotkeyExitOrPause   hotkeys.ID = 15
)

// ErrForwardHotkey means the forward cycling hotkey could not be registered
// at startup. The utility is useless without it.
var ErrForwardHotkey = errors.New("forward hotkey unavailable")

// Registrar is the hotkey registration shim.
type Registrar interface {
	Register(id hotkeys.ID, b hotkeys.Binding) error
	Unregister(id hotkeys.ID) error
}

// KeyState polls the live state of one virtual key.
type KeyState interface {
	KeyState(vk int) int16
}

// ForegroundSource reports the current foreground window.
type ForegroundSource interface {
	Foreground() (window.Handle, error)
}

// IdentityResolver resolves the owning process identity of a window.
type IdentityResolver interface {
	Resolve(h window.Handle) (identity.Identity, error)
}

// Enumerator builds a candidate list for a target identity.
type Enumerator interface {
	Enumerate(target identity.Identity, activeDesktopOnly bool) candidates.List
}

// Navigator advances the cursor and activates a window.
type Navigator interface {
	Advance(list candidates.List, cursor int, dir cycle.Direction, restoreOnSwitch bool) (int, bool)
}

// Deps are the collaborators of a Controller.
type Deps struct {
	Registrar  Registrar
	Keys       KeyState
	Foreground ForegroundSource
	Resolver   IdentityResolver
	Enumerator Enumerator
	Navigator  Navigator
}

// Bindings are the key combinations of the four hotkeys.
type Bindings struct {
	Forward       hotkeys.Binding
	Backward      hotkeys.Binding
	ToggleRestore hotkeys.Binding
	ExitOrPause   hotkeys.Binding
}

func (b Bindings) forID(id hotkeys.ID) hotkeys.Binding {
	switch id {
	case HotkeyForward:
		return b.Forward
	case HotkeyBackward:
		return b.Backward
	case HotkeyToggleRestore:
		return b.ToggleRestore
	default:
		return b.ExitOrPause
	}
}

// Settings are the tunables of a Controller.
type Settings struct {
	Bindings          Bindings
	RestoreOnSwitch   bool
	ActiveDesktopOnly bool
	// DumpCandidates logs every candidate of a fresh cycle at debug level.
	DumpCandidates bool
}

// Mode is the top-level control state.
type Mode int

const (
	Active Mode = iota
	Paused
)

func (m Mode) String() string {
	if m == Paused {
		return "paused"
	}
	return "active"
}

// State is the process-wide control state. It lives as long as the process
// and is never persisted.
type State struct {
	Mode            Mode
	RestoreOnSwitch bool
	ExitRequested   bool
}

// Status is a read-only snapshot for diagnostics and the control pipe.
type Status struct {
	State
	Candidates int
	Cursor     int
	Gesture    string
}

// Controller is the hotkey-driven control state machine.
type Controller struct {
	deps     Deps
	settings Settings
	state    State

	list    candidates.List
	cursor  int
	gesture uuid.UUID

	newGestureID func() uuid.UUID
}

// New creates a Controller in the Active state.
func New(deps Deps, settings Settings) *Controller {
	return &Controller{
		deps:     deps,
		settings: settings,
		state: State{
			Mode:            Active,
			RestoreOnSwitch: settings.RestoreOnSwitch,
		},
		newGestureID: uuid.New,
	}
}

// Start registers every hotkey. Only a failure to claim the forward hotkey
// is returned (wrapping ErrForwardHotkey); other failures disable their
// feature and are logged.
func (c *Controller) Start() error {
	if err := c.register(HotkeyExitOrPause); err != nil {
		slog.Warn("[WARN-CONTROL] exit disabled", "error", err)
	}
	if err := c.registerCycling(); err != nil {
		return err
	}
	slog.Info("[INFO-CONTROL] hotkeys installed",
		"forward", c.settings.Bindings.Forward,
		"backward", c.settings.Bindings.Backward,
		"toggleRestore", c.settings.Bindings.ToggleRestore,
		"exitOrPause", c.settings.Bindings.ExitOrPause,
	)
	return nil
}

// HandleHotkey processes one WM_HOTKEY notification and reports whether the
// process should exit.
func (c *Controller) HandleHotkey(id hotkeys.ID) bool {
	switch id {
	case HotkeyExitOrPause:
		signal := ClassifyExitOrPause(c.deps.Keys.KeyState(vkLShift), c.deps.Keys.KeyState(vkRShift))
		slog.Debug("[DEBUG-CONTROL] exit-or-pause hotkey", "signal", signal)
		switch signal {
		case Exit:
			c.RequestExit()
		case PauseToggle:
			c.TogglePause()
		}
	case HotkeyToggleRestore:
		c.ToggleRestore()
	case HotkeyForward:
		c.cycle(cycle.Forward)
	case HotkeyBackward:
		c.cycle(cycle.Backward)
	default:
		slog.Debug("[DEBUG-CONTROL] ignoring unknown hotkey id", "id", id)
	}
	return c.state.ExitRequested
}

// TogglePause flips between Active and Paused.
func (c *Controller) TogglePause() {
	c.SetPaused(c.state.Mode != Paused)
}

// SetPaused enters or leaves Paused. Entering releases the cycling and
// restore hotkeys so other applications may claim them; leaving requests
// them again, which may fail if someone else took them meanwhile.
func (c *Controller) SetPaused(paused bool) {
	if c.state.ExitRequested || (c.state.Mode == Paused) == paused {
		return
	}
	if paused {
		c.state.Mode = Paused
		c.unregisterCycling()
		c.resetCycle()
		slog.Info("[INFO-CONTROL] paused")
		return
	}
	c.state.Mode = Active
	if err := c.registerCycling(); err != nil {
		slog.Warn("[WARN-CONTROL] resumed without forward hotkey", "error", err)
	}
	slog.Info("[INFO-CONTROL] resumed")
}

// ToggleRestore flips restore-on-switch. It takes effect on the next switch.
func (c *Controller) ToggleRestore() {
	c.state.RestoreOnSwitch = !c.state.RestoreOnSwitch
	slog.Info("[INFO-CONTROL] restore minimized toggled", "restoreOnSwitch", c.state.RestoreOnSwitch)
}

// RequestExit enters the terminal state.
func (c *Controller) RequestExit() {
	if c.state.ExitRequested {
		return
	}
	c.state.ExitRequested = true
	slog.Info("[INFO-CONTROL] See you later.")
}

// ExitRequested reports whether the terminal transition happened.
func (c *Controller) ExitRequested() bool {
	return c.state.ExitRequested
}

// Status returns a snapshot of the control state.
func (c *Controller) Status() Status {
	s := Status{State: c.state, Candidates: c.list.Len(), Cursor: c.cursor}
	if c.gesture != uuid.Nil {
		s.Gesture = c.gesture.String()
	}
	return s
}

// Reconfigure applies new settings. Changed bindings are re-registered
// (cycling ones only while Active). The runtime toggles are kept.
func (c *Controller) Reconfigure(settings Settings) {
	old := c.settings
	c.settings.ActiveDesktopOnly = settings.ActiveDesktopOnly
	c.settings.DumpCandidates = settings.DumpCandidates

	ids := []hotkeys.ID{HotkeyExitOrPause, HotkeyForward, HotkeyBackward, HotkeyToggleRestore}
	for _, id := range ids {
		before, after := old.Bindings.forID(id), settings.Bindings.forID(id)
		if before.Same(after) {
			continue
		}
		c.setBinding(id, after)
		if id != HotkeyExitOrPause && c.state.Mode == Paused {
			continue
		}
		if err := c.deps.Registrar.Unregister(id); err != nil {
			slog.Warn("[WARN-CONTROL] failed to release old binding", "id", id, "binding", before, "error", err)
		}
		if err := c.register(id); err != nil {
			slog.Warn("[WARN-CONTROL] new binding unavailable", "id", id, "binding", after, "error", err)
		}
	}
}

// Shutdown releases every hotkey.
func (c *Controller) Shutdown() {
	c.unregisterCycling()
	if err := c.deps.Registrar.Unregister(HotkeyExitOrPause); err != nil {
		slog.Warn("[WARN-CONTROL] failed to release exit hotkey", "error", err)
	}
	c.resetCycle()
}

func (c *Controller) setBinding(id hotkeys.ID, b hotkeys.Binding) {
	switch id {
	case HotkeyForward:
		c.settings.Bindings.Forward = b
	case HotkeyBackward:
		c.settings.Bindings.Backward = b
	case HotkeyToggleRestore:
		c.settings.Bindings.ToggleRestore = b
	case HotkeyExitOrPause:
		c.settings.Bindings.ExitOrPause = b
	}
}

func (c *Controller) cycle(dir cycle.Direction) {
	if c.state.Mode == Paused {
		// The cycling hotkeys are unregistered while paused; a late event
		// queued before the release is dropped.
		slog.Debug("[DEBUG-CONTROL] cycling hotkey while paused, ignoring", "direction", dir)
		return
	}

	left, right := gestureKeys(c.settings.Bindings.Forward)
	gesture := ClassifyGesture(ModifierSnapshot{
		Left:  c.deps.Keys.KeyState(left),
		Right: c.deps.Keys.KeyState(right),
	})

	// Every press, hold included, needs a resolvable foreground window. A
	// failure ends the current cycle so a later hold cannot reach into the
	// previous application's windows.
	target, ok := c.foregroundIdentity()
	if !ok {
		c.resetCycle()
		return
	}
	if gesture == Tap || c.list == nil {
		c.rebuild(target)
	}

	logger := slog.With("gesture", c.gesture.String())
	if c.list.Len() < 2 {
		logger.Debug("[DEBUG-CONTROL] nothing to cycle", "candidates", c.list.Len(), "kind", gesture)
		return
	}

	cursor, activated := c.deps.Navigator.Advance(c.list, c.cursor, dir, c.state.RestoreOnSwitch)
	c.cursor = cursor
	logger.Debug("[DEBUG-CONTROL] cycled",
		"kind", gesture, "direction", dir, "cursor", cursor, "activated", activated)
}

func (c *Controller) foregroundIdentity() (identity.Identity, bool) {
	fg, err := c.deps.Foreground.Foreground()
	if err != nil {
		slog.Warn("[WARN-CONTROL] GetForegroundWindow failed", "error", err)
		return identity.Identity{}, false
	}
	target, err := c.deps.Resolver.Resolve(fg)
	if err != nil {
		slog.Debug("[DEBUG-CONTROL] foreground process not resolvable", "hwnd", fg, "error", err)
		return identity.Identity{}, false
	}
	return target, true
}

// rebuild starts a fresh cycle over the windows of target.
func (c *Controller) rebuild(target identity.Identity) {
	c.gesture = c.newGestureID()
	c.list = c.deps.Enumerator.Enumerate(target, c.settings.ActiveDesktopOnly)
	c.cursor = 0

	if c.settings.DumpCandidates {
		logger := slog.With("gesture", c.gesture.String())
		logger.Debug("[DEBUG-CONTROL] #-----------------------------------", "candidates", c.list.Len())
		for _, cand := range c.list {
			logger.Debug("[DEBUG-CONTROL] candidate",
				"file", cand.Identity.Path(), "hwnd", cand.Handle, "pid", cand.PID(), "title", cand.Title)
		}
	}
}

func (c *Controller) resetCycle() {
	c.list = nil
	c.cursor = 0
	c.gesture = uuid.Nil
}

func (c *Controller) register(id hotkeys.ID) error {
	b := c.settings.Bindings.forID(id)
	if err := c.deps.Registrar.Register(id, b); err != nil {
		if errors.Is(err, hotkeys.ErrAlreadyRegistered) {
			slog.Warn("[WARN-CONTROL] Hotkey is already registered by other process.", "binding", b, "id", id)
		} else {
			slog.Warn("[WARN-CONTROL] Failed to register hot key", "binding", b, "id", id, "error", err)
		}
		return err
	}
	return nil
}

// registerCycling requests forward, backward and toggle-restore. A forward
// failure is returned; the others only degrade their feature.
func (c *Controller) registerCycling() error {
	var forwardErr error
	if err := c.register(HotkeyForward); err != nil {
		forwardErr = fmt.Errorf("%w: %w", ErrForwardHotkey, err)
	}
	if err := c.register(HotkeyBackward); err != nil {
		slog.Warn("[WARN-CONTROL] backward disabled")
	}
	if err := c.register(HotkeyToggleRestore); err != nil {
		slog.Warn("[WARN-CONTROL] restore toggle disabled")
	}
	return forwardErr
}

func (c *Controller) unregisterCycling() {
	for _, id := range []hotkeys.ID{HotkeyForward, HotkeyBackward, HotkeyToggleRestore} {
		if err := c.deps.Registrar.Unregister(id); err != nil {
			slog.Warn("[WARN-CONTROL] failed to release hotkey", "id", id, "error", err)
		}
	}
}
