package cache

import (
	"fmt"

	"github.com/pithecene-io/physlink/types"
)

type line struct {
	from, to, color types.Float3
}

// Lines accumulates debug line triples.
type Lines struct {
	lines Chunked[line]
}

// Put stores the parallel from, to and color arrays at line index start.
func (l *Lines) Put(start int, from, to, color []types.Float3, remaining int) error {
	if len(to) != len(from) || len(color) != len(from) {
		return fmt.Errorf("%w: %d from, %d to, %d color", ErrChunkRange, len(from), len(to), len(color))
	}
	chunk := make([]line, len(from))
	for i := range chunk {
		chunk[i] = line{from: from[i], to: to[i], color: color[i]}
	}
	return l.lines.Put(start, chunk, remaining)
}

// Len returns the number of lines held.
func (l *Lines) Len() int {
	return l.lines.Len()
}

// Reset drops every line.
func (l *Lines) Reset() {
	l.lines.Reset()
}

// Snapshot returns the lines as parallel arrays of equal length.
func (l *Lines) Snapshot() types.DebugLines {
	n := len(l.lines.items)
	out := types.DebugLines{
		From:  make([]types.Float3, n),
		To:    make([]types.Float3, n),
		Color: make([]types.Float3, n),
	}
	for i, ln := range l.lines.items {
		out.From[i], out.To[i], out.Color[i] = ln.from, ln.to, ln.color
	}
	return out
}
