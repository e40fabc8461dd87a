package policy

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pithecene-io/physlink/ipc"
	"github.com/pithecene-io/physlink/log"
	"github.com/pithecene-io/physlink/types"
)

// BufferedConfig configures a BufferedPolicy.
type BufferedConfig struct {
	// MaxBufferRecords bounds the number of held records. Zero means no
	// count limit.
	MaxBufferRecords int

	// MaxBufferBytes bounds the estimated held payload. Zero means no byte
	// limit. At least one limit must be set.
	MaxBufferBytes int64

	// Logger is optional.
	Logger *log.Logger
}

// DefaultBufferedConfig returns the limits used when only the policy name
// is configured.
func DefaultBufferedConfig() BufferedConfig {
	return BufferedConfig{
		MaxBufferRecords: 64,
		MaxBufferBytes:   32 * 1024 * 1024,
	}
}

var (
	// ErrBufferFull is returned when a record does not fit the buffer.
	ErrBufferFull = errors.New("buffer full: cannot accept capture record")
	// ErrInvalidConfig is returned when no buffer limit is set.
	ErrInvalidConfig = errors.New("invalid config: at least one of MaxBufferRecords or MaxBufferBytes must be set")
)

// BufferedPolicy holds records until Flush and writes them as one batch.
//
// Flush is at-least-once: on a sink error the buffer is kept intact so a
// retry may write the same records again, but none are lost.
type BufferedPolicy struct {
	sink   Sink
	config BufferedConfig
	logger *log.Logger

	mu          sync.Mutex
	buffer      []*types.CaptureRecord
	bufferBytes int64
	stats       *statsRecorder
}

// NewBufferedPolicy creates a buffered policy writing to sink.
func NewBufferedPolicy(sink Sink, config BufferedConfig) (*BufferedPolicy, error) {
	if config.MaxBufferRecords <= 0 && config.MaxBufferBytes <= 0 {
		return nil, ErrInvalidConfig
	}
	return &BufferedPolicy{
		sink:   sink,
		config: config,
		logger: config.Logger,
		stats:  newStatsRecorder(),
	}, nil
}

// Ingest buffers rec, or returns ErrBufferFull when it does not fit.
func (p *BufferedPolicy) Ingest(_ context.Context, rec *types.CaptureRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.incTotalLocked(rec.Kind)

	size := EstimateSize(rec)
	if !p.hasRoom(size) {
		p.stats.incErrorsLocked()
		p.logOverflow(rec, size)
		return fmt.Errorf("%w: %s record of ~%d bytes", ErrBufferFull, rec.Kind, size)
	}

	p.buffer = append(p.buffer, rec)
	p.bufferBytes += size
	return nil
}

func (p *BufferedPolicy) hasRoom(size int64) bool {
	if p.config.MaxBufferRecords > 0 && len(p.buffer) >= p.config.MaxBufferRecords {
		return false
	}
	if p.config.MaxBufferBytes > 0 && p.bufferBytes+size > p.config.MaxBufferBytes {
		return false
	}
	return true
}

// Flush writes the held records as one batch.
func (p *BufferedPolicy) Flush(ctx context.Context) error {
	p.mu.Lock()
	p.stats.incFlushLocked()
	batch := p.buffer
	p.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	if err := p.sink.WriteRecords(ctx, batch); err != nil {
		p.mu.Lock()
		p.stats.incErrorsLocked()
		p.mu.Unlock()
		p.logFlushFailure(len(batch), err)
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.incPersistedLocked(int64(len(batch)))
	// Records ingested while the batch was in flight stay buffered.
	p.buffer = append([]*types.CaptureRecord(nil), p.buffer[len(batch):]...)
	p.bufferBytes = 0
	for _, rec := range p.buffer {
		p.bufferBytes += EstimateSize(rec)
	}
	return nil
}

// Close flushes on a best-effort basis and closes the sink.
func (p *BufferedPolicy) Close() error {
	_ = p.Flush(context.Background())
	return p.sink.Close()
}

// Stats returns counters taken under the buffer lock.
func (p *BufferedPolicy) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats.snapshotLocked(p.bufferBytes)
}

// EstimateSize approximates the stored size of rec in bytes.
func EstimateSize(rec *types.CaptureRecord) int64 {
	const base = 200

	var item int64
	switch rec.Kind {
	case types.RecordKindContactPoints:
		item = ipc.ContactPointSize
	case types.RecordKindOverlaps:
		item = ipc.OverlappingObjectSize
	case types.RecordKindVisualShapes:
		item = ipc.VisualShapeSize
	case types.RecordKindDebugLines:
		item = ipc.DebugLineSize
	case types.RecordKindCameraImage:
		item = ipc.PixelSize
	default:
		item = 128
	}
	return base + int64(rec.Count)*item
}

func (p *BufferedPolicy) logOverflow(rec *types.CaptureRecord, size int64) {
	if p.logger == nil {
		return
	}
	p.logger.Error("buffer overflow", map[string]any{
		"record_kind": string(rec.Kind),
		"size":        size,
		"policy":      "buffered",
	})
}

func (p *BufferedPolicy) logFlushFailure(n int, err error) {
	if p.logger == nil {
		return
	}
	p.logger.Error("flush failed", map[string]any{
		"records": n,
		"error":   err.Error(),
		"policy":  "buffered",
	})
}

var _ Policy = (*BufferedPolicy)(nil)
