//go:build !windows

package winapi

import "sameappswitcher/internal/window"

// System reports ErrUnsupported for every call.
type System struct{}

// New returns the placeholder adapter.
func New() *System { return &System{} }

func (s *System) EnumTopLevel(_ func(window.Handle) bool) error { return ErrUnsupported }

func (s *System) IsVisible(_ window.Handle) bool { return false }

func (s *System) Styles(_ window.Handle) (window.Styles, error) {
	return window.Styles{}, ErrUnsupported
}

func (s *System) Title(_ window.Handle) string { return "" }

func (s *System) ProcessID(_ window.Handle) (uint32, error) { return 0, ErrUnsupported }

func (s *System) ImagePath(_ uint32) (string, error) { return "", ErrUnsupported }

func (s *System) Foreground() (window.Handle, error) { return 0, ErrUnsupported }

func (s *System) IsMinimized(_ window.Handle) bool { return false }

func (s *System) Restore(_ window.Handle) error { return ErrUnsupported }

func (s *System) Activate(_ window.Handle) error { return ErrUnsupported }

func (s *System) KeyState(_ int) int16 { return 0 }

// DebugString is a no-op without a Win32 debugger channel.
func DebugString(_ string) {}
