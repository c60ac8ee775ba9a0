package hotkeys

import "errors"

// Modifier represents a Win32 hotkey modifier bitmask.
type Modifier uint32

// VKey represents a Win32 virtual-key code.
type VKey uint32

// ID is an application-defined hotkey identifier delivered with WM_HOTKEY.
type ID int32

var (
	// ErrAlreadyRegistered means another process already claimed the key
	// combination (ERROR_HOTKEY_ALREADY_REGISTERED).
	ErrAlreadyRegistered = errors.New("hotkey is already registered by another process")
	// ErrUnsupported is returned on platforms without global hotkeys.
	ErrUnsupported = errors.New("global hotkeys are currently supported only on Windows")
)

// Binding describes a parsed global hotkey.
// Construct only via ParseBinding to guarantee invariant consistency.
type Binding struct {
	modifiers  Modifier
	key        VKey
	normalized string
}

// Modifiers returns the modifier bitmask.
func (b Binding) Modifiers() Modifier { return b.modifiers }

// Key returns the virtual-key code.
func (b Binding) Key() VKey { return b.key }

// Normalized returns the canonical human-readable binding string.
func (b Binding) Normalized() string { return b.normalized }

// IsZero reports whether b was never parsed.
func (b Binding) IsZero() bool { return b.key == 0 }

// Same reports whether both bindings register the same key combination.
func (b Binding) Same(other Binding) bool {
	return b.modifiers == other.modifiers && b.key == other.key
}

func (b Binding) String() string { return b.normalized }
