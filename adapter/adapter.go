// Package adapter publishes capture completion notifications to
// downstream systems.
package adapter

import (
	"context"
	"fmt"
	"time"
)

// EventTypeCaptureCompleted is the only event type published.
const EventTypeCaptureCompleted = "capture_completed"

// CaptureCompletedEvent is published once a capture has been persisted.
type CaptureCompletedEvent struct {
	EventType     string           `json:"event_type"`
	Version       string           `json:"version"`
	CaptureID     string           `json:"capture_id"`
	SessionID     string           `json:"session_id"`
	ShmKey        int              `json:"shm_key"`
	Day           string           `json:"day"`
	Outcome       string           `json:"outcome"`
	StoragePath   string           `json:"storage_path"`
	Timestamp     string           `json:"timestamp"` // RFC 3339
	RecordCount   int64            `json:"record_count"`
	RecordsByKind map[string]int64 `json:"records_by_kind,omitempty"`
	DurationMs    int64            `json:"duration_ms"`
}

// Adapter publishes capture completion events.
type Adapter interface {
	// Publish must respect ctx cancellation and deadlines.
	Publish(ctx context.Context, event *CaptureCompletedEvent) error

	Close() error
}

// DefaultBackoff is the wait before the first retry. It doubles per retry.
const DefaultBackoff = 500 * time.Millisecond

// Retry calls attempt up to 1+retries times with doubling backoff between
// calls. It stops early when attempt succeeds, when permanent reports the
// error as not retriable, or when ctx is done. permanent may be nil.
func Retry(ctx context.Context, retries int, backoff time.Duration, attempt func(context.Context) error, permanent func(error) bool) error {
	if backoff <= 0 {
		backoff = DefaultBackoff
	}

	attempts := 1 + retries
	var lastErr error
	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context canceled: %w", err)
		}
		if i > 0 {
			wait := backoff << uint(i-1)
			select {
			case <-ctx.Done():
				return fmt.Errorf("context canceled during backoff: %w", ctx.Err())
			case <-time.After(wait):
			}
		}

		lastErr = attempt(ctx)
		if lastErr == nil {
			return nil
		}
		if permanent != nil && permanent(lastErr) {
			return fmt.Errorf("non-retriable error: %w", lastErr)
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}
