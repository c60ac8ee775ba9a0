//go:build windows

package winapi

import (
	"os"
	"strings"
	"testing"
	"unsafe"

	"sameappswitcher/internal/window"
)

func TestWindowInfoSize(t *testing.T) {
	// WINDOWINFO is 60 bytes on both 32-bit and 64-bit Windows.
	if got := unsafe.Sizeof(windowInfo{}); got != 60 {
		t.Fatalf("unsafe.Sizeof(windowInfo{}) = %d, want 60", got)
	}
}

func TestImagePathOfCurrentProcess(t *testing.T) {
	exe, err := os.Executable()
	if err != nil {
		t.Skipf("os.Executable: %v", err)
	}
	got, err := New().ImagePath(uint32(os.Getpid()))
	if err != nil {
		t.Fatalf("ImagePath(self) returned error: %v", err)
	}
	if !strings.EqualFold(got, exe) {
		t.Fatalf("ImagePath(self) = %q, want %q", got, exe)
	}
}

func TestEnumTopLevelStopsEarly(t *testing.T) {
	sys := New()
	visited := 0
	err := sys.EnumTopLevel(func(window.Handle) bool {
		visited++
		return false
	})
	if err != nil {
		t.Fatalf("EnumTopLevel returned error after early stop: %v", err)
	}
	if visited > 1 {
		t.Fatalf("visited %d windows after stop, want at most 1", visited)
	}
}
