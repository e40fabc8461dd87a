// Package cache holds results reassembled from chunked transfers and the
// body directory built from scene descriptions.
//
// Chunk buffers are indexed by absolute item offset. Each chunk declares
// its start, its items and how many remain, which fixes the total; the
// buffer is resized to that total and the chunk overwrites its range.
// Replaying a chunk is therefore idempotent.
package cache

import (
	"errors"
	"fmt"
)

// MaxItems bounds the total a chunk may declare.
const MaxItems = 1 << 24

// ErrChunkRange is returned for a chunk whose offsets are unusable.
var ErrChunkRange = errors.New("chunk out of range")

// Chunked is an absolute-offset buffer of T.
type Chunked[T any] struct {
	items []T
}

// Put stores chunk at start and sizes the buffer to start+len(chunk)+remaining.
func (c *Chunked[T]) Put(start int, chunk []T, remaining int) error {
	total, err := chunkTotal(start, len(chunk), remaining)
	if err != nil {
		return err
	}
	c.items = resize(c.items, total)
	copy(c.items[start:], chunk)
	return nil
}

// Len returns the current total.
func (c *Chunked[T]) Len() int {
	return len(c.items)
}

// Reset empties the buffer.
func (c *Chunked[T]) Reset() {
	c.items = nil
}

// Snapshot returns a copy of the buffer.
func (c *Chunked[T]) Snapshot() []T {
	return append([]T{}, c.items...)
}

func chunkTotal(start, copied, remaining int) (int, error) {
	if start < 0 || remaining < 0 {
		return 0, fmt.Errorf("%w: start %d, remaining %d", ErrChunkRange, start, remaining)
	}
	total := start + copied + remaining
	if total > MaxItems || total < start {
		return 0, fmt.Errorf("%w: total %d exceeds %d", ErrChunkRange, total, MaxItems)
	}
	return total, nil
}

func resize[T any](s []T, n int) []T {
	if n <= cap(s) {
		old := len(s)
		s = s[:n]
		var zero T
		for i := old; i < n; i++ {
			s[i] = zero
		}
		return s
	}
	grown := make([]T, n)
	copy(grown, s)
	return grown
}
