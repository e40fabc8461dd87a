// Package lode persists capture records to a Lode dataset.
//
// Records are Hive-partitioned by session_id, day and record_kind. Large
// binary payloads (camera pixels) are written as sidecar files next to the
// partition instead of inline.
package lode

import (
	"context"
	"sync"
	"time"

	"github.com/pithecene-io/physlink/policy"
	"github.com/pithecene-io/physlink/types"
)

// DefaultDataset is the dataset id used when none is configured.
const DefaultDataset = "physlink"

// partitionKeys is the Hive layout shared by the write and read paths.
var partitionKeys = []string{"session_id", "day", "record_kind"}

// DeriveDay returns the UTC partition day of t as YYYY-MM-DD.
func DeriveDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Config holds capture storage configuration.
type Config struct {
	// Dataset is the Lode dataset id.
	Dataset string
	// SessionID partitions records by client session.
	SessionID string
	// Day partitions records by capture day (see DeriveDay).
	Day string
	// Source labels the origin of the records, such as the transport name.
	Source string
	// Checksum adds an MD5 of the encoded payload to every record.
	Checksum bool
}

// Client writes capture records to storage.
type Client interface {
	// WriteRecords writes a batch, preserving its order.
	WriteRecords(ctx context.Context, records []*types.CaptureRecord) error

	// Close releases client resources.
	Close() error
}

// Sink adapts a Client to policy.Sink.
type Sink struct {
	config Config
	client Client
}

// NewSink creates a sink over client.
func NewSink(config Config, client Client) *Sink {
	return &Sink{config: config, client: client}
}

// WriteRecords implements policy.Sink.
func (s *Sink) WriteRecords(ctx context.Context, records []*types.CaptureRecord) error {
	return s.client.WriteRecords(ctx, records)
}

// Close implements policy.Sink.
func (s *Sink) Close() error {
	return s.client.Close()
}

var _ policy.Sink = (*Sink)(nil)

// StubClient keeps batches in memory.
type StubClient struct {
	mu      sync.Mutex
	Batches [][]*types.CaptureRecord
	Closed  bool
}

// NewStubClient creates an empty stub client.
func NewStubClient() *StubClient {
	return &StubClient{}
}

// WriteRecords implements Client.
func (c *StubClient) WriteRecords(_ context.Context, records []*types.CaptureRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Batches = append(c.Batches, records)
	return nil
}

// Close implements Client.
func (c *StubClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Closed = true
	return nil
}

var _ Client = (*StubClient)(nil)
