package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/pithecene-io/physlink/types"
)

func rec(kind types.RecordKind, seq int64, count int) *types.CaptureRecord {
	return &types.CaptureRecord{Kind: kind, SessionID: "sess", Seq: seq, Count: count}
}

func TestStrictPolicy_WritesEachRecord(t *testing.T) {
	sink := NewStubSink()
	p := NewStrictPolicy(sink)
	ctx := context.Background()

	for i, kind := range []types.RecordKind{types.RecordKindBodies, types.RecordKindContactPoints} {
		if err := p.Ingest(ctx, rec(kind, int64(i+1), 3)); err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
	}

	if sink.Batches != 2 {
		t.Errorf("Batches = %d, want 2", sink.Batches)
	}
	stats := p.Stats()
	if stats.TotalRecords != 2 || stats.RecordsPersisted != 2 {
		t.Errorf("stats = %+v, want 2 total and 2 persisted", stats)
	}
	if stats.ByKind["contact_points"] != 1 {
		t.Errorf("ByKind[contact_points] = %d, want 1", stats.ByKind["contact_points"])
	}
}

func TestStrictPolicy_SinkError(t *testing.T) {
	sink := NewStubSink()
	sink.ErrorOnWrite = errors.New("disk gone")
	p := NewStrictPolicy(sink)

	if err := p.Ingest(context.Background(), rec(types.RecordKindBodies, 1, 1)); err == nil {
		t.Fatal("Ingest() error = nil, want sink error")
	}
	if got := p.Stats().Errors; got != 1 {
		t.Errorf("Errors = %d, want 1", got)
	}
}

func TestStrictPolicy_CloseClosesSink(t *testing.T) {
	sink := NewStubSink()
	p := NewStrictPolicy(sink)
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if !sink.Closed {
		t.Error("sink not closed")
	}
}

func TestNewBufferedPolicy_RequiresLimit(t *testing.T) {
	if _, err := NewBufferedPolicy(NewStubSink(), BufferedConfig{}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("NewBufferedPolicy() error = %v, want ErrInvalidConfig", err)
	}
}

func TestBufferedPolicy_FlushWritesOneBatch(t *testing.T) {
	sink := NewStubSink()
	p, err := NewBufferedPolicy(sink, DefaultBufferedConfig())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	for i := range 3 {
		if err := p.Ingest(ctx, rec(types.RecordKindDebugLines, int64(i+1), 10)); err != nil {
			t.Fatal(err)
		}
	}
	if len(sink.Written()) != 0 {
		t.Fatal("records written before flush")
	}
	if p.Stats().BufferSize == 0 {
		t.Error("BufferSize = 0 before flush")
	}

	if err := p.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	written := sink.Written()
	if sink.Batches != 1 || len(written) != 3 {
		t.Fatalf("Batches = %d, written = %d, want 1 and 3", sink.Batches, len(written))
	}
	for i, r := range written {
		if r.Seq != int64(i+1) {
			t.Errorf("written[%d].Seq = %d, want %d", i, r.Seq, i+1)
		}
	}
	if stats := p.Stats(); stats.BufferSize != 0 || stats.RecordsPersisted != 3 {
		t.Errorf("stats = %+v, want empty buffer and 3 persisted", stats)
	}
}

func TestBufferedPolicy_FlushFailureKeepsBuffer(t *testing.T) {
	sink := NewStubSink()
	p, _ := NewBufferedPolicy(sink, BufferedConfig{MaxBufferRecords: 4})
	ctx := context.Background()
	_ = p.Ingest(ctx, rec(types.RecordKindBodies, 1, 1))

	sink.ErrorOnWrite = errors.New("throttled")
	if err := p.Flush(ctx); err == nil {
		t.Fatal("Flush() error = nil, want sink error")
	}

	sink.ErrorOnWrite = nil
	if err := p.Flush(ctx); err != nil {
		t.Fatalf("retry Flush() error = %v", err)
	}
	if got := len(sink.Written()); got != 1 {
		t.Errorf("written = %d, want 1", got)
	}
}

func TestBufferedPolicy_Limits(t *testing.T) {
	tests := []struct {
		name   string
		config BufferedConfig
		count  int
		accept int
	}{
		{"record limit", BufferedConfig{MaxBufferRecords: 2}, 1, 2},
		{"byte limit", BufferedConfig{MaxBufferBytes: 1000}, 10, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewBufferedPolicy(NewStubSink(), tt.config)
			if err != nil {
				t.Fatal(err)
			}
			accepted := 0
			for i := range 5 {
				err := p.Ingest(context.Background(), rec(types.RecordKindOverlaps, int64(i), tt.count))
				if err == nil {
					accepted++
					continue
				}
				if !errors.Is(err, ErrBufferFull) {
					t.Fatalf("Ingest() error = %v, want ErrBufferFull", err)
				}
			}
			if accepted != tt.accept {
				t.Errorf("accepted = %d, want %d", accepted, tt.accept)
			}
		})
	}
}

func TestBufferedPolicy_CloseFlushes(t *testing.T) {
	sink := NewStubSink()
	p, _ := NewBufferedPolicy(sink, DefaultBufferedConfig())
	_ = p.Ingest(context.Background(), rec(types.RecordKindCameraImage, 1, 100))

	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if len(sink.Written()) != 1 || !sink.Closed {
		t.Errorf("written = %d, closed = %v, want 1 and true", len(sink.Written()), sink.Closed)
	}
}

func TestEstimateSize(t *testing.T) {
	small := EstimateSize(rec(types.RecordKindOverlaps, 1, 10))
	large := EstimateSize(rec(types.RecordKindContactPoints, 1, 10))
	if small >= large {
		t.Errorf("EstimateSize(overlaps) = %d >= EstimateSize(contacts) = %d", small, large)
	}
}
