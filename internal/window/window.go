// Package window holds the opaque window reference shared by the switching
// engine and the OS adapters.
package window

import "fmt"

// Handle is an opaque top-level window identifier (HWND on Windows).
// It is a weak reference: valid only until the next enumeration pass.
type Handle uintptr

// String formats the handle the way Win32 debug output prints HWNDs.
func (h Handle) String() string {
	return fmt.Sprintf("0x%08X", uintptr(h))
}

// Win32 style bits consulted by the candidate filter.
const (
	StylePopup        uint32 = 0x80000000 // WS_POPUP
	ExStyleToolWindow uint32 = 0x00000080 // WS_EX_TOOLWINDOW
	ExStyleNoActivate uint32 = 0x08000000 // WS_EX_NOACTIVATE
)

// Styles is a snapshot of a window's style and extended style flags.
type Styles struct {
	Style   uint32
	ExStyle uint32
}

// Excluded reports whether the window is a non-activatable overlay, a popup
// or a tool window. Such windows never take part in cycling.
func (s Styles) Excluded() bool {
	return s.ExStyle&ExStyleNoActivate != 0 ||
		s.Style&StylePopup != 0 ||
		s.ExStyle&ExStyleToolWindow != 0
}
