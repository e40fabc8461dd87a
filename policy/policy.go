// Package policy decides how capture records reach persistent storage.
package policy

import (
	"context"
	"sync"

	"github.com/pithecene-io/physlink/types"
)

// Policy accepts capture records and hands them to a Sink.
//
// Capture records are never dropped: a policy that cannot accept a record
// returns an error and the capture fails.
type Policy interface {
	// Ingest accepts one record. Records reach the sink in ingest order.
	Ingest(ctx context.Context, rec *types.CaptureRecord) error

	// Flush writes anything still held by the policy.
	Flush(ctx context.Context) error

	// Close flushes on a best-effort basis and closes the sink.
	Close() error

	// Stats returns a consistent snapshot of the policy counters.
	Stats() Stats
}

// Stats holds policy counters.
type Stats struct {
	TotalRecords     int64 `json:"total_records"`
	RecordsPersisted int64 `json:"records_persisted"`
	// BufferSize is the estimated held payload in bytes (buffered only).
	BufferSize int64            `json:"buffer_size"`
	FlushCount int64            `json:"flush_count"`
	Errors     int64            `json:"errors"`
	ByKind     map[string]int64 `json:"by_kind"`
}

// statsRecorder is shared by the policies.
//
// StrictPolicy uses the locking methods. BufferedPolicy uses the Locked
// variants while holding its own mutex so buffer state and counters move
// together.
type statsRecorder struct {
	mu    sync.Mutex
	stats Stats
}

func newStatsRecorder() *statsRecorder {
	return &statsRecorder{stats: Stats{ByKind: make(map[string]int64)}}
}

func (r *statsRecorder) incTotal(kind types.RecordKind) {
	r.mu.Lock()
	r.incTotalLocked(kind)
	r.mu.Unlock()
}

func (r *statsRecorder) incPersisted(n int64) {
	r.mu.Lock()
	r.stats.RecordsPersisted += n
	r.mu.Unlock()
}

func (r *statsRecorder) incErrors() {
	r.mu.Lock()
	r.stats.Errors++
	r.mu.Unlock()
}

func (r *statsRecorder) incFlush() {
	r.mu.Lock()
	r.stats.FlushCount++
	r.mu.Unlock()
}

func (r *statsRecorder) snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked(r.stats.BufferSize)
}

// --- Locked variants. Caller holds BufferedPolicy.mu. ---

func (r *statsRecorder) incTotalLocked(kind types.RecordKind) {
	r.stats.TotalRecords++
	r.stats.ByKind[string(kind)]++
}

func (r *statsRecorder) incPersistedLocked(n int64) { r.stats.RecordsPersisted += n }
func (r *statsRecorder) incErrorsLocked()           { r.stats.Errors++ }
func (r *statsRecorder) incFlushLocked()            { r.stats.FlushCount++ }

func (r *statsRecorder) snapshotLocked(bufferSize int64) Stats {
	s := r.stats
	s.BufferSize = bufferSize
	s.ByKind = make(map[string]int64, len(r.stats.ByKind))
	for k, v := range r.stats.ByKind {
		s.ByKind[k] = v
	}
	return s
}
