package policy

import (
	"context"
	"sync"

	"github.com/pithecene-io/physlink/types"
)

// Sink persists batches of capture records.
type Sink interface {
	// WriteRecords persists a batch, preserving its order.
	WriteRecords(ctx context.Context, records []*types.CaptureRecord) error

	// Close releases any resources held by the sink.
	Close() error
}

// StubSink keeps written records in memory.
type StubSink struct {
	mu sync.Mutex

	Records []*types.CaptureRecord
	Batches int
	Closed  bool

	// ErrorOnWrite, if non-nil, is returned by WriteRecords.
	ErrorOnWrite error
}

// NewStubSink creates an empty stub sink.
func NewStubSink() *StubSink {
	return &StubSink{}
}

// WriteRecords records the batch.
func (s *StubSink) WriteRecords(_ context.Context, records []*types.CaptureRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ErrorOnWrite != nil {
		return s.ErrorOnWrite
	}
	s.Batches++
	s.Records = append(s.Records, records...)
	return nil
}

// Close marks the sink closed.
func (s *StubSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

// Written returns a copy of the records written so far.
func (s *StubSink) Written() []*types.CaptureRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*types.CaptureRecord(nil), s.Records...)
}
