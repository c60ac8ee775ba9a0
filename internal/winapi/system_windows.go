//go:build windows

package winapi

import (
	"errors"
	"fmt"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"sameappswitcher/internal/window"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procGetWindowInfo        = user32.NewProc("GetWindowInfo")
	procGetWindowTextLengthW = user32.NewProc("GetWindowTextLengthW")
	procGetWindowTextW       = user32.NewProc("GetWindowTextW")
	procIsIconic             = user32.NewProc("IsIconic")
	procShowWindowAsync      = user32.NewProc("ShowWindowAsync")
	procSetForegroundWindow  = user32.NewProc("SetForegroundWindow")
	procGetAsyncKeyState     = user32.NewProc("GetAsyncKeyState")
	procOutputDebugStringW   = kernel32.NewProc("OutputDebugStringW")
)

const swRestore = 9

// windowInfo mirrors the Win32 WINDOWINFO struct.
type windowInfo struct {
	cbSize          uint32
	rcWindow        windows.Rect
	rcClient        windows.Rect
	dwStyle         uint32
	dwExStyle       uint32
	dwWindowStatus  uint32
	cxWindowBorders uint32
	cyWindowBorders uint32
	atomWindowType  uint16
	wCreatorVersion uint16
}

// EnumWindows accepts a limited number of callbacks per process, so one
// callback is created up front and pointed at the active visitor.
var (
	enumMu       sync.Mutex
	enumVisit    func(window.Handle) bool
	enumStopped  bool
	enumCallback = windows.NewCallback(func(hwnd windows.HWND, _ uintptr) uintptr {
		if enumVisit(window.Handle(hwnd)) {
			return 1
		}
		enumStopped = true
		return 0
	})
)

// System implements the Win32-backed seams of the engine.
type System struct{}

// New returns the Win32 system adapter.
func New() *System { return &System{} }

// EnumTopLevel walks all top-level windows in OS order.
func (s *System) EnumTopLevel(visit func(window.Handle) bool) error {
	enumMu.Lock()
	defer enumMu.Unlock()

	enumVisit = visit
	enumStopped = false
	defer func() { enumVisit = nil }()

	err := windows.EnumWindows(enumCallback, nil)
	if err != nil && !enumStopped {
		return fmt.Errorf("EnumWindows: %w", err)
	}
	return nil
}

// IsVisible reports WS_VISIBLE.
func (s *System) IsVisible(h window.Handle) bool {
	return windows.IsWindowVisible(windows.HWND(h))
}

// Styles reads the style flags through GetWindowInfo.
func (s *System) Styles(h window.Handle) (window.Styles, error) {
	info := windowInfo{}
	info.cbSize = uint32(unsafe.Sizeof(info))
	res, _, err := procGetWindowInfo.Call(uintptr(h), uintptr(unsafe.Pointer(&info)))
	if res == 0 {
		return window.Styles{}, fmt.Errorf("GetWindowInfo: %w", err)
	}
	return window.Styles{Style: info.dwStyle, ExStyle: info.dwExStyle}, nil
}

// Title returns the window caption; an empty string when it cannot be read.
func (s *System) Title(h window.Handle) string {
	n, _, _ := procGetWindowTextLengthW.Call(uintptr(h))
	if n == 0 {
		return ""
	}
	buf := make([]uint16, n+1)
	procGetWindowTextW.Call(uintptr(h), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return windows.UTF16ToString(buf)
}

// ProcessID returns the owning process id of h.
func (s *System) ProcessID(h window.Handle) (uint32, error) {
	var pid uint32
	if _, err := windows.GetWindowThreadProcessId(windows.HWND(h), &pid); err != nil {
		return 0, fmt.Errorf("GetWindowThreadProcessId: %w", err)
	}
	if pid == 0 {
		return 0, errors.New("GetWindowThreadProcessId returned pid 0")
	}
	return pid, nil
}

// ImagePath opens pid with PROCESS_QUERY_LIMITED_INFORMATION and returns its
// full executable path.
func (s *System) ImagePath(pid uint32) (string, error) {
	ph, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return "", fmt.Errorf("OpenProcess(%d): %w", pid, err)
	}
	defer windows.CloseHandle(ph)

	buf := make([]uint16, windows.MAX_PATH)
	for {
		size := uint32(len(buf))
		err = windows.QueryFullProcessImageName(ph, 0, &buf[0], &size)
		if err == nil {
			return windows.UTF16ToString(buf[:size]), nil
		}
		if !errors.Is(err, windows.ERROR_INSUFFICIENT_BUFFER) || len(buf) >= windows.MAX_LONG_PATH {
			return "", fmt.Errorf("QueryFullProcessImageName(%d): %w", pid, err)
		}
		buf = make([]uint16, min(len(buf)*4, windows.MAX_LONG_PATH))
	}
}

// Foreground returns the current foreground window.
func (s *System) Foreground() (window.Handle, error) {
	h := windows.GetForegroundWindow()
	if h == 0 {
		return 0, errors.New("no foreground window")
	}
	return window.Handle(h), nil
}

// IsMinimized reports IsIconic.
func (s *System) IsMinimized(h window.Handle) bool {
	res, _, _ := procIsIconic.Call(uintptr(h))
	return res != 0
}

// Restore posts SW_RESTORE without waiting. Fails with ERROR_ACCESS_DENIED for
// windows of elevated processes.
func (s *System) Restore(h window.Handle) error {
	res, _, err := procShowWindowAsync.Call(uintptr(h), swRestore)
	if res == 0 {
		return fmt.Errorf("ShowWindowAsync: %w", lastError(err))
	}
	return nil
}

// Activate calls SetForegroundWindow.
func (s *System) Activate(h window.Handle) error {
	res, _, err := procSetForegroundWindow.Call(uintptr(h))
	if res == 0 {
		return fmt.Errorf("SetForegroundWindow: %w", lastError(err))
	}
	return nil
}

// KeyState returns the raw GetAsyncKeyState value for vk.
func (s *System) KeyState(vk int) int16 {
	res, _, _ := procGetAsyncKeyState.Call(uintptr(vk))
	return int16(res)
}

// DebugString writes msg to the attached debugger (OutputDebugStringW).
func DebugString(msg string) {
	p, err := windows.UTF16PtrFromString(msg)
	if err != nil {
		return
	}
	procOutputDebugStringW.Call(uintptr(unsafe.Pointer(p)))
}

// lastError keeps the errno from LazyProc.Call but never reports "success" as
// the failure reason.
func lastError(err error) error {
	var errno syscall.Errno
	if errors.As(err, &errno) && errno == 0 {
		return errors.New("call failed without error code")
	}
	return err
}
