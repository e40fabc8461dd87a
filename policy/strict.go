package policy

import (
	"context"

	"github.com/pithecene-io/physlink/types"
)

// StrictPolicy writes every record as a batch of one. The caller blocks
// on sink latency and sink errors fail the capture.
type StrictPolicy struct {
	sink  Sink
	stats *statsRecorder
}

// NewStrictPolicy creates a strict policy writing to sink.
func NewStrictPolicy(sink Sink) *StrictPolicy {
	return &StrictPolicy{sink: sink, stats: newStatsRecorder()}
}

// Ingest writes rec immediately.
func (p *StrictPolicy) Ingest(ctx context.Context, rec *types.CaptureRecord) error {
	p.stats.incTotal(rec.Kind)
	if err := p.sink.WriteRecords(ctx, []*types.CaptureRecord{rec}); err != nil {
		p.stats.incErrors()
		return err
	}
	p.stats.incPersisted(1)
	return nil
}

// Flush only counts: nothing is held.
func (p *StrictPolicy) Flush(context.Context) error {
	p.stats.incFlush()
	return nil
}

// Close closes the sink.
func (p *StrictPolicy) Close() error {
	return p.sink.Close()
}

// Stats returns the policy counters.
func (p *StrictPolicy) Stats() Stats {
	return p.stats.snapshot()
}

var _ Policy = (*StrictPolicy)(nil)
