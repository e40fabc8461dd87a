// Package runtime drives commands through a client session from the
// caller's side: it owns the poll loop, its timeout and backoff, and the
// classification of how a command ended.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pithecene-io/physlink/client"
	"github.com/pithecene-io/physlink/types"
)

// Default poll loop parameters.
const (
	DefaultPollInterval    = 100 * time.Microsecond
	DefaultMaxPollInterval = 10 * time.Millisecond
	DefaultTimeout         = 5 * time.Second
)

var (
	// ErrTimeout is returned when no status surfaced before the deadline.
	ErrTimeout = errors.New("timed out waiting for server status")
	// ErrSubmitRejected is returned when the session refused the command.
	ErrSubmitRejected = errors.New("command not accepted")
)

// Session is the subset of *client.Client the poll loop needs.
type Session interface {
	NextCommand() *types.Command
	Submit(cmd *types.Command) bool
	Poll() *types.Status
}

// Verify *client.Client satisfies Session.
var _ Session = (*client.Client)(nil)

// AwaitConfig tunes the poll loop.
type AwaitConfig struct {
	// Interval is the first sleep between polls. It doubles up to MaxInterval.
	Interval time.Duration
	// MaxInterval caps the sleep between polls.
	MaxInterval time.Duration
	// Timeout bounds the whole wait. Zero means DefaultTimeout; negative
	// waits until ctx is done.
	Timeout time.Duration
}

func (c AwaitConfig) withDefaults() AwaitConfig {
	if c.Interval <= 0 {
		c.Interval = DefaultPollInterval
	}
	if c.MaxInterval < c.Interval {
		c.MaxInterval = max(c.Interval, DefaultMaxPollInterval)
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Await polls s until it surfaces a status, ctx is done or the timeout
// passes. A *client.ProtocolError raised by Poll is returned as an error.
func Await(ctx context.Context, s Session, cfg AwaitConfig) (st *types.Status, err error) {
	cfg = cfg.withDefaults()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			pe, ok := client.AsProtocolError(r)
			if !ok {
				panic(r)
			}
			st, err = nil, pe
		}
	}()

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	interval := cfg.Interval
	for {
		if st := s.Poll(); st != nil {
			return st, nil
		}
		timer.Reset(interval)
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w after %s", ErrTimeout, cfg.Timeout)
			}
			return nil, ctx.Err()
		case <-timer.C:
		}
		interval = min(interval*2, cfg.MaxInterval)
	}
}

// Execute stamps and submits a command of cmdType and waits for its status.
func Execute(ctx context.Context, s Session, cmdType types.CommandType, args types.CommandArgs, cfg AwaitConfig) (*types.Status, error) {
	cmd := s.NextCommand()
	cmd.Type = cmdType
	cmd.Args = args
	if !s.Submit(cmd) {
		return nil, fmt.Errorf("%w: %s", ErrSubmitRejected, cmdType)
	}
	return Await(ctx, s, cfg)
}
