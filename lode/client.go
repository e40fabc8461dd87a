package lode

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/physlink/types"
)

var (
	// ErrMissingRecordKind is returned for a record without a kind.
	ErrMissingRecordKind = errors.New("capture record rejected: missing record_kind")
	// ErrSessionMismatch is returned for a record of another session.
	ErrSessionMismatch = errors.New("capture record rejected: session mismatch")
	// ErrOutOfOrder is returned when seq does not increase across writes.
	ErrOutOfOrder = errors.New("capture record rejected: seq not increasing")
)

// LodeClient writes capture records to a Lode dataset.
type LodeClient struct {
	dataset      lode.Dataset
	config       Config
	storeFactory lode.StoreFactory

	storeOnce sync.Once
	store     lode.Store
	storeErr  error

	mu      sync.Mutex // guards lastSeq and written
	lastSeq map[string]int64 // by capture id
	written map[types.RecordKind]int64
}

// NewLodeClient creates a client over filesystem storage rooted at root.
func NewLodeClient(cfg Config, root string) (*LodeClient, error) {
	return NewLodeClientWithFactory(cfg, lode.NewFSFactory(root))
}

// NewLodeMemoryClient creates a client over process memory. Records live
// until the process exits.
func NewLodeMemoryClient(cfg Config) (*LodeClient, error) {
	return NewLodeClientWithFactory(cfg, lode.NewMemoryFactory())
}

// NewLodeClientWithFactory creates a client over a custom store factory.
// Tests use lode.NewMemoryFactory().
func NewLodeClientWithFactory(cfg Config, factory lode.StoreFactory) (*LodeClient, error) {
	ds, err := NewReadDataset(cfg.Dataset, factory)
	if err != nil {
		return nil, WrapInitError(err, cfg.Dataset)
	}
	return newClient(ds, cfg, factory), nil
}

func newClient(ds lode.Dataset, cfg Config, factory lode.StoreFactory) *LodeClient {
	return &LodeClient{
		dataset:      ds,
		config:       cfg,
		storeFactory: factory,
		lastSeq:      make(map[string]int64),
		written:      make(map[types.RecordKind]int64),
	}
}

// WriteRecords validates and writes a batch as one snapshot.
//
// Every record must carry a kind and the configured session id, and seq
// must increase strictly within a capture across all batches. Counters
// only move after the write succeeds.
func (c *LodeClient) WriteRecords(ctx context.Context, records []*types.CaptureRecord) error {
	if len(records) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	last := make(map[string]int64)
	rows := make([]any, 0, len(records))
	for _, rec := range records {
		prev, seen := last[rec.CaptureID]
		if !seen {
			prev = c.lastSeq[rec.CaptureID]
		}
		switch {
		case rec.Kind == "":
			return fmt.Errorf("%w: seq %d", ErrMissingRecordKind, rec.Seq)
		case rec.SessionID != c.config.SessionID:
			return fmt.Errorf("%w: %q, want %q", ErrSessionMismatch, rec.SessionID, c.config.SessionID)
		case rec.Seq <= prev:
			return fmt.Errorf("%w: %d after %d", ErrOutOfOrder, rec.Seq, prev)
		}
		last[rec.CaptureID] = rec.Seq

		row, err := toRecordMap(rec, c.config)
		if err != nil {
			return fmt.Errorf("encode %s record: %w", rec.Kind, err)
		}
		rows = append(rows, row)
	}

	if _, err := c.dataset.Write(ctx, rows, lode.Metadata{}); err != nil {
		return WrapWriteError(err, c.config.Dataset+"/"+c.config.SessionID)
	}

	for id, seq := range last {
		c.lastSeq[id] = seq
	}
	for _, rec := range records {
		c.written[rec.Kind]++
	}
	return nil
}

// Written returns the number of records of kind written so far.
func (c *LodeClient) Written(kind types.RecordKind) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.written[kind]
}

// Close releases client resources. The dataset holds none.
func (c *LodeClient) Close() error {
	return nil
}

var _ Client = (*LodeClient)(nil)
