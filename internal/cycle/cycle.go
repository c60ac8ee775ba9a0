// Package cycle implements the cyclic navigation over a candidate list.
package cycle

import (
	"log/slog"

	"sameappswitcher/internal/candidates"
	"sameappswitcher/internal/window"
)

// Direction is the cycling direction.
type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// Activator performs the window-system side effects of a switch.
type Activator interface {
	IsMinimized(h window.Handle) bool
	// Restore asks the OS to restore a minimized window without waiting for
	// completion. It fails when the target runs at a higher integrity level.
	Restore(h window.Handle) error
	// Activate brings the window to the foreground.
	Activate(h window.Handle) error
}

// Navigator advances a cursor through a candidate list and activates the
// window it lands on.
type Navigator struct {
	activator Activator
}

// NewNavigator creates a Navigator.
func NewNavigator(activator Activator) *Navigator {
	return &Navigator{activator: activator}
}

// Step moves cursor one position in dir, wrapping at both ends.
func Step(cursor, length int, dir Direction) int {
	if length <= 0 {
		return 0
	}
	if dir == Backward {
		if cursor <= 0 {
			return length - 1
		}
		return cursor - 1
	}
	cursor++
	if cursor >= length {
		return 0
	}
	return cursor
}

// Advance moves from cursor in dir to the next usable candidate and activates
// it. Minimized candidates are skipped unless restoreOnSwitch is set and the
// restore request is accepted. The search visits at most list.Len() positions,
// so a list of unusable candidates ends as a no-op.
//
// The returned cursor is where the search stopped; activated reports whether
// a window was brought to the foreground.
func (n *Navigator) Advance(list candidates.List, cursor int, dir Direction, restoreOnSwitch bool) (int, bool) {
	length := list.Len()
	if length < 2 {
		return cursor, false
	}
	if cursor < 0 || cursor >= length {
		cursor = 0
	}

	start := cursor
	for range length {
		cursor = Step(cursor, length, dir)
		c := list[cursor]

		if n.activator.IsMinimized(c.Handle) {
			if !restoreOnSwitch {
				continue
			}
			if err := n.activator.Restore(c.Handle); err != nil {
				// Elevated targets reject restore requests; move on.
				slog.Warn("[WARN-CYCLE] restore rejected, skipping candidate",
					"hwnd", c.Handle, "pid", c.PID(), "error", err)
				continue
			}
		}

		if err := n.activator.Activate(c.Handle); err != nil {
			slog.Warn("[WARN-CYCLE] foreground request denied",
				"hwnd", c.Handle, "pid", c.PID(), "error", err)
			return cursor, false
		}
		slog.Debug("[DEBUG-CYCLE] activated candidate",
			"hwnd", c.Handle, "cursor", cursor, "direction", dir)
		return cursor, true
	}

	slog.Debug("[DEBUG-CYCLE] every candidate skipped", "length", length, "direction", dir)
	return start, false
}
