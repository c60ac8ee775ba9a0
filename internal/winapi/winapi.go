// Package winapi adapts the Win32 window, process and keyboard APIs to the
// seams used by the switching engine. On other platforms every call reports
// ErrUnsupported.
package winapi

import "errors"

// ErrUnsupported is returned on platforms without the Win32 window system.
var ErrUnsupported = errors.New("win32 window system is not available on this platform")
