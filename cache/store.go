package cache

import "github.com/pithecene-io/physlink/types"

// Store groups every per-session cache.
type Store struct {
	Bodies       *Directory
	Camera       Camera
	DebugLines   Lines
	Contacts     Chunked[types.ContactPoint]
	Overlaps     Chunked[types.OverlappingObject]
	VisualShapes Chunked[types.VisualShape]
	States       States
}

// NewStore creates empty caches whose directory strings go through names.
func NewStore(names Names) *Store {
	return &Store{Bodies: NewDirectory(names)}
}

// ResetSimulation drops what a simulation reset invalidates: the body
// directory, the debug lines and the per-body states.
func (s *Store) ResetSimulation() {
	s.DebugLines.Reset()
	s.Bodies.Clear()
	s.States.Reset()
}

// Clear drops every cache.
func (s *Store) Clear() {
	s.ResetSimulation()
	s.Camera.Reset()
	s.Contacts.Reset()
	s.Overlaps.Reset()
	s.VisualShapes.Reset()
}
