//go:build windows

package vdesktop

import (
	"errors"
	"fmt"
	"log/slog"
	"syscall"
	"unsafe"

	ole "github.com/go-ole/go-ole"

	"sameappswitcher/internal/window"
)

var (
	clsidVirtualDesktopManager = ole.NewGUID("{AA509086-5CA9-4C25-8F95-589D3C07B48A}")
	iidIVirtualDesktopManager  = ole.NewGUID("{A5CD92FF-29BE-454C-8D04-D82879FB3F1B}")
)

const sFalse = 0x00000001

// rpcEChangedMode is returned by CoInitializeEx when the thread already has
// a different apartment model; COM is still usable.
const rpcEChangedMode = 0x80010106

// virtualDesktopManagerVtbl mirrors IVirtualDesktopManager's vtable.
type virtualDesktopManagerVtbl struct {
	ole.IUnknownVtbl
	IsWindowOnCurrentVirtualDesktop uintptr
	GetWindowDesktopId              uintptr
	MoveWindowToDesktop             uintptr
}

// Manager holds an IVirtualDesktopManager instance. It must be used from the
// thread that opened it.
type Manager struct {
	unk          *ole.IUnknown
	uninitialize bool
}

// Open initialises COM on the calling thread and creates the virtual desktop
// manager. Any failure is reported as ErrUnavailable with the HRESULT attached.
func Open() (*Manager, error) {
	m := &Manager{}
	if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
		var oleErr *ole.OleError
		if !errors.As(err, &oleErr) || (oleErr.Code() != sFalse && oleErr.Code() != rpcEChangedMode) {
			return nil, fmt.Errorf("%w: CoInitializeEx: %w", ErrUnavailable, err)
		}
		// S_FALSE still needs a matching CoUninitialize.
		m.uninitialize = oleErr.Code() == sFalse
	} else {
		m.uninitialize = true
	}

	unk, err := ole.CreateInstance(clsidVirtualDesktopManager, iidIVirtualDesktopManager)
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("%w: CoCreateInstance CLSID_VirtualDesktopManager: %w", ErrUnavailable, err)
	}
	m.unk = unk
	slog.Debug("[DEBUG-VDESKTOP] virtual desktop manager created")
	return m, nil
}

// IsOnCurrentDesktop asks whether h is on the active virtual desktop.
func (m *Manager) IsOnCurrentDesktop(h window.Handle) (bool, error) {
	if m == nil || m.unk == nil {
		return false, ErrUnavailable
	}
	vtbl := (*virtualDesktopManagerVtbl)(unsafe.Pointer(m.unk.RawVTable))
	var onCurrent int32
	hr, _, _ := syscall.SyscallN(
		vtbl.IsWindowOnCurrentVirtualDesktop,
		uintptr(unsafe.Pointer(m.unk)),
		uintptr(h),
		uintptr(unsafe.Pointer(&onCurrent)),
	)
	if int32(hr) < 0 {
		return false, fmt.Errorf("IsWindowOnCurrentVirtualDesktop: %w", ole.NewError(hr))
	}
	return onCurrent != 0, nil
}

// Close releases the COM object and balances CoInitializeEx.
func (m *Manager) Close() {
	if m == nil {
		return
	}
	if m.unk != nil {
		m.unk.Release()
		m.unk = nil
	}
	if m.uninitialize {
		ole.CoUninitialize()
		m.uninitialize = false
	}
}
