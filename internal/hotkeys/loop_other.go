//go:build !windows

package hotkeys

import "context"

// Loop is a placeholder on platforms without global hotkeys.
type Loop struct{}

// NewLoop creates a Loop.
func NewLoop() *Loop { return &Loop{} }

// Run always fails with ErrUnsupported.
func (l *Loop) Run(_ context.Context, _ Handler) error { return ErrUnsupported }

// Register always fails with ErrUnsupported.
func (l *Loop) Register(_ ID, _ Binding) error { return ErrUnsupported }

// Unregister is a no-op.
func (l *Loop) Unregister(_ ID) error { return nil }

// Registered always reports false.
func (l *Loop) Registered(_ ID) bool { return false }

// Wake always fails with ErrUnsupported.
func (l *Loop) Wake() error { return ErrUnsupported }

// Quit is a no-op.
func (l *Loop) Quit() error { return nil }
