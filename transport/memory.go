package transport

import (
	"fmt"
	"sync"
)

// Memory is an in-process Transport. Regions live until Remove is called,
// mirroring System V segments that outlive their attachments.
type Memory struct {
	mu       sync.Mutex
	regions  map[int][]byte
	attached map[int]int
}

// NewMemory creates an empty in-process transport.
func NewMemory() *Memory {
	return &Memory{
		regions:  make(map[int][]byte),
		attached: make(map[int]int),
	}
}

// Allocate implements Transport.
func (m *Memory) Allocate(key, size int, allowCreation bool) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	region, ok := m.regions[key]
	switch {
	case ok && len(region) != size:
		return nil, fmt.Errorf("%w: key %d has %d bytes, want %d", ErrSizeMismatch, key, len(region), size)
	case !ok && !allowCreation:
		return nil, fmt.Errorf("%w: key %d", ErrNotFound, key)
	case !ok:
		region = make([]byte, size)
		m.regions[key] = region
	}
	m.attached[key]++
	return region, nil
}

// Release implements Transport.
func (m *Memory) Release(key, size int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.attached[key] == 0 {
		return fmt.Errorf("%w: key %d", ErrNotAttached, key)
	}
	m.attached[key]--
	return nil
}

// Remove deletes the region for key regardless of attachments.
func (m *Memory) Remove(key int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.regions, key)
	delete(m.attached, key)
}

// Attachments returns the number of live attachments of key.
func (m *Memory) Attachments(key int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attached[key]
}

// Verify Memory implements Transport.
var _ Transport = (*Memory)(nil)
