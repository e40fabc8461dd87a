package lode

import (
	"context"
	"errors"
	"testing"

	"github.com/pithecene-io/physlink/metrics"
	"github.com/pithecene-io/physlink/policy"
	"github.com/pithecene-io/physlink/types"
)

func TestSink_DelegatesToClient(t *testing.T) {
	client := NewStubClient()
	sink := NewSink(testConfig(), client)

	if err := sink.WriteRecords(context.Background(), []*types.CaptureRecord{record(types.RecordKindBodies, 1)}); err != nil {
		t.Fatal(err)
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}
	if len(client.Batches) != 1 || !client.Closed {
		t.Errorf("batches = %d, closed = %v, want 1 and true", len(client.Batches), client.Closed)
	}
}

func TestDeriveDay(t *testing.T) {
	if got := DeriveDay(mustTime(t, "2026-10-14T23:30:00-05:00")); got != "2026-10-15" {
		t.Errorf("DeriveDay() = %q, want 2026-10-15", got)
	}
}

func TestInstrumentedSink(t *testing.T) {
	collector := metrics.NewCollector("memory", "sess-1")
	inner := policy.NewStubSink()
	sink := NewInstrumentedSink(inner, collector)
	ctx := context.Background()

	_ = sink.WriteRecords(ctx, []*types.CaptureRecord{record(types.RecordKindBodies, 1)})
	inner.ErrorOnWrite = errors.New("boom")
	_ = sink.WriteRecords(ctx, []*types.CaptureRecord{record(types.RecordKindBodies, 2)})
	_ = sink.WriteRecords(ctx, []*types.CaptureRecord{record(types.RecordKindBodies, 3)})

	snap := collector.Snapshot()
	if snap.CaptureWriteSuccess != 1 || snap.CaptureWriteFailure != 2 {
		t.Errorf("success = %d, failure = %d, want 1 and 2", snap.CaptureWriteSuccess, snap.CaptureWriteFailure)
	}

	if err := sink.Close(); err != nil || !inner.Closed {
		t.Errorf("Close() = %v, closed = %v", err, inner.Closed)
	}
}

func TestInstrumentedSink_NilCollector(t *testing.T) {
	sink := NewInstrumentedSink(policy.NewStubSink(), nil)
	if err := sink.WriteRecords(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
}
