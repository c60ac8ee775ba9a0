//go:build windows

package hotkeys

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32DLL = windows.NewLazySystemDLL("user32.dll")

	procRegisterHotKey     = user32DLL.NewProc("RegisterHotKey")
	procUnregisterHotKey   = user32DLL.NewProc("UnregisterHotKey")
	procGetMessageW        = user32DLL.NewProc("GetMessageW")
	procTranslateMessage   = user32DLL.NewProc("TranslateMessage")
	procDispatchMessageW   = user32DLL.NewProc("DispatchMessageW")
	procPostThreadMessageW = user32DLL.NewProc("PostThreadMessageW")
	procPeekMessageW       = user32DLL.NewProc("PeekMessageW")
)

const (
	wmHotkey   = 0x0312
	wmQuit     = 0x0012
	wmApp      = 0x8000
	wmWake     = wmApp + 1
	pmNoRemove = 0x0000

	errHotkeyAlreadyRegistered syscall.Errno = 1409
)

// point mirrors the Win32 POINT struct.
type point struct {
	x int32
	y int32
}

// winMsg mirrors the Win32 MSG struct (tagMSG from winuser.h).
// Field order and types must not be changed -- the layout must match
// the Win32 binary layout on both 32-bit and 64-bit Windows.
type winMsg struct {
	hWnd     uintptr
	message  uint32
	wParam   uintptr
	lParam   uintptr
	time     uint32
	pt       point
	lPrivate uint32 // reserved by Windows; required for correct struct size
}

// Loop owns the thread that registers global hotkeys and pumps its message
// queue. RegisterHotKey with a NULL window binds the hotkey to the calling
// thread, so Register and Unregister must run on the loop thread (from a
// Handler callback).
type Loop struct {
	mu         sync.Mutex
	threadID   uint32
	registered map[ID]Binding
}

// NewLoop creates an idle Loop.
func NewLoop() *Loop {
	return &Loop{registered: make(map[ID]Binding)}
}

// Run locks an OS thread, starts its message queue and dispatches messages to
// h until h asks to stop, Quit is called or ctx is cancelled. Every hotkey
// still registered when Run returns is released.
func (l *Loop) Run(ctx context.Context, h Handler) error {
	if err := user32DLL.Load(); err != nil {
		return fmt.Errorf("user32.dll is unavailable: %w", err)
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	// PeekMessageW forces Windows to create the thread message queue so that
	// PostThreadMessageW from Wake/Quit can reach it before the first
	// GetMessageW call.
	var qmsg winMsg
	procPeekMessageW.Call(uintptr(unsafe.Pointer(&qmsg)), 0, 0, 0, pmNoRemove)

	l.mu.Lock()
	l.threadID = windows.GetCurrentThreadId()
	l.mu.Unlock()
	defer func() {
		l.unregisterAll()
		l.mu.Lock()
		l.threadID = 0
		l.mu.Unlock()
	}()

	if err := h.OnStart(); err != nil {
		return err
	}
	defer h.OnStop()

	stop := context.AfterFunc(ctx, func() {
		if err := l.Quit(); err != nil {
			slog.Warn("[WARN-HOTKEY] failed to post WM_QUIT on cancellation", "error", err)
		}
	})
	defer stop()

	for {
		var msg winMsg
		ret, _, lastErr := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
		switch int32(ret) {
		case -1:
			return fmt.Errorf("GetMessageW failed: %w", lastErr)
		case 0:
			slog.Debug("[DEBUG-HOTKEY] message loop received WM_QUIT")
			return nil
		}

		switch msg.message {
		case wmHotkey:
			if h.OnHotkey(ID(int32(msg.wParam))) {
				return nil
			}
		case wmWake:
			if h.OnWake() {
				return nil
			}
		default:
			procTranslateMessage.Call(uintptr(unsafe.Pointer(&msg)))
			procDispatchMessageW.Call(uintptr(unsafe.Pointer(&msg)))
		}
	}
}

// Register claims b process-wide under id. Must run on the loop thread.
// A combination owned by another process yields ErrAlreadyRegistered.
func (l *Loop) Register(id ID, b Binding) error {
	if b.IsZero() {
		return fmt.Errorf("register hotkey id=%d: empty binding", id)
	}
	res, _, err := procRegisterHotKey.Call(0, uintptr(id), uintptr(b.Modifiers()), uintptr(b.Key()))
	if res == 0 {
		var errno syscall.Errno
		if errors.As(err, &errno) && errno == errHotkeyAlreadyRegistered {
			return fmt.Errorf("register hotkey %s (id=%d): %w", b, id, ErrAlreadyRegistered)
		}
		if errors.As(err, &errno) && errno == 0 {
			return fmt.Errorf("register hotkey %s (id=%d): RegisterHotKey failed", b, id)
		}
		return fmt.Errorf("register hotkey %s (id=%d): %w", b, id, err)
	}

	l.mu.Lock()
	l.registered[id] = b
	l.mu.Unlock()
	return nil
}

// Unregister releases id. Unregistering an id that is not held is a no-op.
// The id stays tracked until the OS confirms the release. Must run on the
// loop thread.
func (l *Loop) Unregister(id ID) error {
	if !l.Registered(id) {
		return nil
	}
	if err := unregisterHotKeyFn(id); err != nil {
		return fmt.Errorf("unregister hotkey id=%d: %w", id, err)
	}

	l.mu.Lock()
	delete(l.registered, id)
	l.mu.Unlock()
	return nil
}

// unregisterHotKeyFn is a test seam over UnregisterHotKey.
var unregisterHotKeyFn = func(id ID) error {
	res, _, err := procUnregisterHotKey.Call(0, uintptr(id))
	if res == 0 {
		return err
	}
	return nil
}

// Registered reports whether id is currently held by this process.
func (l *Loop) Registered(id ID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.registered[id]
	return ok
}

// Wake asks the loop thread to call Handler.OnWake. Safe from any goroutine.
func (l *Loop) Wake() error {
	return l.post(wmWake)
}

// Quit stops Run. Safe from any goroutine.
func (l *Loop) Quit() error {
	return l.post(wmQuit)
}

func (l *Loop) post(message uint32) error {
	l.mu.Lock()
	threadID := l.threadID
	l.mu.Unlock()
	if threadID == 0 {
		return errors.New("hotkey loop is not running")
	}
	res, _, err := procPostThreadMessageW.Call(uintptr(threadID), uintptr(message), 0, 0)
	if res == 0 {
		return fmt.Errorf("PostThreadMessageW: %w", err)
	}
	return nil
}

func (l *Loop) unregisterAll() {
	l.mu.Lock()
	ids := make([]ID, 0, len(l.registered))
	for id := range l.registered {
		ids = append(ids, id)
	}
	l.mu.Unlock()

	for _, id := range ids {
		if err := l.Unregister(id); err != nil {
			slog.Warn("[WARN-HOTKEY] unregister on loop exit failed", "id", id, "error", err)
		}
	}
}
