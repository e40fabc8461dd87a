// Package transport provides the capability that maps the shared block.
//
// A Transport hands out byte regions keyed by an integer. The client never
// creates the region; the server does, and the client attaches with
// allowCreation=false.
package transport

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by transports. Callers use errors.Is.
var (
	// ErrNotFound is returned when no region exists for the key and
	// creation was not allowed.
	ErrNotFound = errors.New("shared memory region not found")
	// ErrSizeMismatch is returned when an existing region has a different size.
	ErrSizeMismatch = errors.New("shared memory region size mismatch")
	// ErrNotAttached is returned when releasing a key that is not attached.
	ErrNotAttached = errors.New("shared memory region not attached")
	// ErrUnsupported is returned by transports unavailable on this platform.
	ErrUnsupported = errors.New("shared memory transport not supported on this platform")
)

// Transport maps and releases shared regions.
type Transport interface {
	// Allocate attaches the region for key, creating it when allowed.
	// The returned slice aliases the shared mapping.
	Allocate(key, size int, allowCreation bool) ([]byte, error)
	// Release detaches the region for key. The region itself survives
	// until its creator removes it.
	Release(key, size int) error
}

// Names of the transports selectable from configuration.
const (
	NameSysV   = "sysv"
	NameMemory = "memory"
)

// New returns the transport registered under name.
func New(name string) (Transport, error) {
	switch name {
	case NameSysV, "":
		return NewSysV(), nil
	case NameMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown transport %q (must be sysv or memory)", name)
	}
}
