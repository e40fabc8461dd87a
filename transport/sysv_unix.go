//go:build linux || (darwin && !ios)

package transport

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// SysV maps regions with System V shared memory (shmget/shmat).
type SysV struct {
	// Perm is the permission mask used when creating a segment.
	Perm int

	mu       sync.Mutex
	attached map[int][]byte
}

// NewSysV creates a System V transport with 0666 permissions.
func NewSysV() *SysV {
	return &SysV{
		Perm:     0o666,
		attached: make(map[int][]byte),
	}
}

// Allocate implements Transport.
func (s *SysV) Allocate(key, size int, allowCreation bool) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mem, ok := s.attached[key]; ok {
		if len(mem) < size {
			return nil, fmt.Errorf("%w: key %d has %d bytes, want %d", ErrSizeMismatch, key, len(mem), size)
		}
		return mem[:size], nil
	}

	flag := s.Perm
	if allowCreation {
		flag |= unix.IPC_CREAT
	}
	id, err := unix.SysvShmGet(key, size, flag)
	if err != nil {
		switch {
		case errors.Is(err, unix.ENOENT):
			return nil, fmt.Errorf("%w: key %d", ErrNotFound, key)
		case errors.Is(err, unix.EINVAL):
			return nil, fmt.Errorf("%w: key %d: %v", ErrSizeMismatch, key, err)
		default:
			return nil, fmt.Errorf("shmget key %d: %w", key, err)
		}
	}

	mem, err := unix.SysvShmAttach(id, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("shmat key %d: %w", key, err)
	}
	if len(mem) < size {
		_ = unix.SysvShmDetach(mem)
		return nil, fmt.Errorf("%w: key %d has %d bytes, want %d", ErrSizeMismatch, key, len(mem), size)
	}
	s.attached[key] = mem
	return mem[:size], nil
}

// Release implements Transport.
func (s *SysV) Release(key, _ int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mem, ok := s.attached[key]
	if !ok {
		return fmt.Errorf("%w: key %d", ErrNotAttached, key)
	}
	delete(s.attached, key)
	if err := unix.SysvShmDetach(mem); err != nil {
		return fmt.Errorf("shmdt key %d: %w", key, err)
	}
	return nil
}

// Remove marks the segment for key for destruction once every process
// has detached. Servers call it on shutdown.
func (s *SysV) Remove(key, size int) error {
	id, err := unix.SysvShmGet(key, size, s.Perm)
	if err != nil {
		if errors.Is(err, unix.ENOENT) {
			return nil
		}
		return fmt.Errorf("shmget key %d: %w", key, err)
	}
	if _, err := unix.SysvShmCtl(id, unix.IPC_RMID, nil); err != nil {
		return fmt.Errorf("shmctl rmid key %d: %w", key, err)
	}
	return nil
}

// Verify SysV implements Transport.
var _ Transport = (*SysV)(nil)
