package lode

import (
	"context"

	"github.com/pithecene-io/physlink/metrics"
	"github.com/pithecene-io/physlink/policy"
	"github.com/pithecene-io/physlink/types"
)

// InstrumentedSink counts capture write outcomes on a metrics collector.
type InstrumentedSink struct {
	inner     policy.Sink
	collector *metrics.Collector
}

// NewInstrumentedSink wraps inner. A nil collector is allowed.
func NewInstrumentedSink(inner policy.Sink, collector *metrics.Collector) *InstrumentedSink {
	return &InstrumentedSink{inner: inner, collector: collector}
}

// WriteRecords delegates and records success or failure.
func (s *InstrumentedSink) WriteRecords(ctx context.Context, records []*types.CaptureRecord) error {
	err := s.inner.WriteRecords(ctx, records)
	if err != nil {
		s.collector.IncCaptureWriteFailure()
	} else {
		s.collector.IncCaptureWriteSuccess()
	}
	return err
}

// Close delegates to the inner sink.
func (s *InstrumentedSink) Close() error {
	return s.inner.Close()
}

var _ policy.Sink = (*InstrumentedSink)(nil)
