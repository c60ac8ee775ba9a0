// Package identity resolves the owning executable of a window. Two windows
// belong to the same application iff their identities are equal.
package identity

import (
	"errors"
	"fmt"
	"strings"

	"sameappswitcher/internal/window"
)

// ErrNotResolvable is returned when the owning process cannot be opened or its
// image path cannot be read. Callers exclude the window; it is never fatal.
var ErrNotResolvable = errors.New("process identity not resolvable")

// Identity is the stable identity of a process: its executable image path.
type Identity struct {
	path string
	pid  uint32
}

// New builds an Identity from an image path and process id.
func New(path string, pid uint32) Identity {
	return Identity{path: path, pid: pid}
}

// Path returns the executable image path as reported by the OS.
func (id Identity) Path() string { return id.path }

// PID returns the process id the identity was resolved from.
// It does not participate in equality.
func (id Identity) PID() uint32 { return id.pid }

// IsZero reports whether the identity carries no image path.
func (id Identity) IsZero() bool { return id.path == "" }

// Equal compares image paths case-insensitively. No short/long path
// canonicalisation is performed beyond what the OS already returned.
func (id Identity) Equal(other Identity) bool {
	if id.IsZero() || other.IsZero() {
		return false
	}
	return strings.EqualFold(id.path, other.path)
}

func (id Identity) String() string { return id.path }

// ProcessQuerier is the process-introspection seam.
type ProcessQuerier interface {
	// ProcessID returns the id of the process that owns the window.
	ProcessID(h window.Handle) (uint32, error)
	// ImagePath returns the executable image path of pid, queried with
	// least-privilege access.
	ImagePath(pid uint32) (string, error)
}

// Resolver maps windows to process identities.
type Resolver struct {
	querier ProcessQuerier
}

// NewResolver creates a Resolver backed by querier.
func NewResolver(querier ProcessQuerier) *Resolver {
	return &Resolver{querier: querier}
}

// Resolve returns the identity of the process owning h. Every failure is
// reported as ErrNotResolvable with the OS cause attached.
func (r *Resolver) Resolve(h window.Handle) (Identity, error) {
	pid, err := r.querier.ProcessID(h)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: window %s: %w", ErrNotResolvable, h, err)
	}
	path, err := r.querier.ImagePath(pid)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: pid %d: %w", ErrNotResolvable, pid, err)
	}
	if path == "" {
		return Identity{}, fmt.Errorf("%w: pid %d: empty image path", ErrNotResolvable, pid)
	}
	return New(path, pid), nil
}
