// Package vdesktop wraps the optional Windows virtual desktop service.
package vdesktop

import "errors"

// ErrUnavailable means the virtual desktop service is not supported in this
// OS/session. Callers skip desktop filtering entirely.
var ErrUnavailable = errors.New("virtual desktop service unavailable")
