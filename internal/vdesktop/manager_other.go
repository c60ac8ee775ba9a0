//go:build !windows

package vdesktop

import "sameappswitcher/internal/window"

// Manager is never available off Windows.
type Manager struct{}

// Open always fails with ErrUnavailable.
func Open() (*Manager, error) { return nil, ErrUnavailable }

// IsOnCurrentDesktop always fails with ErrUnavailable.
func (m *Manager) IsOnCurrentDesktop(_ window.Handle) (bool, error) { return false, ErrUnavailable }

// Close is a no-op.
func (m *Manager) Close() {}
