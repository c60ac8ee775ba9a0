package control

import "sameappswitcher/internal/hotkeys"

// Virtual-key codes for the left/right variants of each modifier.
const (
	vkLShift   = 0xA0
	vkRShift   = 0xA1
	vkLControl = 0xA2
	vkRControl = 0xA3
	vkLMenu    = 0xA4
	vkRMenu    = 0xA5
	vkLWin     = 0x5B
	vkRWin     = 0x5C
)

const (
	keyDownBit         = -0x8000 // 0x8000 as int16: key is down now
	keyPressedSinceBit = 0x0001  // pressed since the previous poll
)

// Gesture classifies a cycling hotkey event.
type Gesture int

const (
	// Tap starts a fresh cycle: the candidate list is rebuilt.
	Tap Gesture = iota
	// Hold continues the current cycle with the same list and cursor.
	Hold
)

func (g Gesture) String() string {
	if g == Hold {
		return "hold"
	}
	return "tap"
}

// ModifierSnapshot is the raw GetAsyncKeyState value of the left and right
// variant of the cycling modifier, taken when the hotkey event arrives.
type ModifierSnapshot struct {
	Left  int16
	Right int16
}

// ClassifyGesture decides between a fresh press and a continuation.
//
// A modifier that went down since the last poll marks a fresh press. When
// neither side reports any state (foreground windows of elevated processes
// hide key state from us) the press is treated as fresh too. This is a
// best-effort heuristic: it is known to misjudge some elevated targets and
// is kept as is.
func ClassifyGesture(s ModifierSnapshot) Gesture {
	if s.Left&keyPressedSinceBit != 0 || s.Right&keyPressedSinceBit != 0 {
		return Tap
	}
	if s.Left == 0 && s.Right == 0 {
		return Tap
	}
	return Hold
}

// ExitPauseSignal is the meaning of an exit-or-pause hotkey event.
type ExitPauseSignal int

const (
	Neither ExitPauseSignal = iota
	Exit
	PauseToggle
)

func (s ExitPauseSignal) String() string {
	switch s {
	case Exit:
		return "exit"
	case PauseToggle:
		return "pause-toggle"
	default:
		return "neither"
	}
}

// ClassifyExitOrPause reads the raw left/right shift states: left shift alone
// means exit, right shift alone toggles pause, anything else is ignored.
func ClassifyExitOrPause(leftShift, rightShift int16) ExitPauseSignal {
	leftDown := leftShift&keyDownBit != 0
	rightDown := rightShift&keyDownBit != 0
	switch {
	case leftDown && rightShift == 0:
		return Exit
	case leftShift == 0 && rightDown:
		return PauseToggle
	default:
		return Neither
	}
}

// gestureKeys picks the modifier whose held state tells tap from hold. Alt
// wins when the binding has it, then Ctrl, Win and Shift.
func gestureKeys(b hotkeys.Binding) (left, right int) {
	mods := b.Modifiers()
	switch {
	case mods&hotkeys.ModAlt != 0:
		return vkLMenu, vkRMenu
	case mods&hotkeys.ModControl != 0:
		return vkLControl, vkRControl
	case mods&hotkeys.ModWin != 0:
		return vkLWin, vkRWin
	default:
		return vkLShift, vkRShift
	}
}
