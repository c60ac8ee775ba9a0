// Package singleinstance keeps one switcher per interactive user, since two
// instances would fight over the same global hotkeys.
package singleinstance

import (
	"errors"

	"sameappswitcher/internal/userutil"
)

// ErrAlreadyRunning is returned by TryLock when another instance holds the mutex.
var ErrAlreadyRunning = errors.New("another instance is already running")

// DefaultMutexName returns the per-session mutex name. Hotkeys are scoped to
// the interactive desktop, so the Local namespace is enough.
func DefaultMutexName() string {
	return `Local\sameappswitcher-` + userutil.CurrentUsername()
}
