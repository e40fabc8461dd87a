// Package client implements the client half of the shared memory
// command/status protocol.
//
// A Client owns one mapping of the shared block and at most one
// outstanding command. Callers submit a command and then call Poll until
// it returns a status. Poll never blocks; transfers that span several
// round trips (chunked results and multi-body scene loads) are driven
// from inside Poll, which reports nil until the whole logical operation
// is complete.
//
// A Client is not safe for concurrent use.
package client

import (
	"github.com/google/uuid"

	"github.com/pithecene-io/physlink/cache"
	"github.com/pithecene-io/physlink/ipc"
	"github.com/pithecene-io/physlink/log"
	"github.com/pithecene-io/physlink/metrics"
	"github.com/pithecene-io/physlink/scene"
	"github.com/pithecene-io/physlink/transport"
	"github.com/pithecene-io/physlink/types"
)

// Client is one session against a physics server's shared block.
type Client struct {
	tr        transport.Transport
	key       int
	sessionID string
	logger    *log.Logger
	metrics   *metrics.Collector
	decoder   scene.Decoder
	names     cache.Names
	verbose   bool

	block     *ipc.Block
	connected bool
	waiting   bool

	// slot stages the next command; seq stamps it.
	slot types.Command
	seq  uint32
	// lastCommand is the last command published, used to carry request
	// fields into continuations.
	lastCommand types.Command
	lastStatus  types.Status

	// bodyStack holds the bodies of a scene load still awaiting body info.
	bodyStack []int32
	// pendingOuter is the scene load status surfaced once bodyStack drains.
	pendingOuter *types.Status

	caches *cache.Store
}

// Option configures a Client.
type Option func(*Client)

// WithKey sets the shared memory key. Defaults to ipc.DefaultKey.
func WithKey(key int) Option {
	return func(c *Client) { c.key = key }
}

// WithLogger sets the logger. Defaults to a stderr logger for the session.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics sets the collector. A nil collector records nothing.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) { c.metrics = m }
}

// WithNames sets the owner of directory strings.
func WithNames(n cache.Names) Option {
	return func(c *Client) { c.names = n }
}

// WithDecoder sets the scene description decoder.
func WithDecoder(d scene.Decoder) Option {
	return func(c *Client) { c.decoder = d }
}

// WithVerbose enables per-status diagnostics at debug level.
func WithVerbose(v bool) Option {
	return func(c *Client) { c.verbose = v }
}

// WithSessionID overrides the generated session id.
func WithSessionID(id string) Option {
	return func(c *Client) { c.sessionID = id }
}

// New creates a disconnected client over tr.
func New(tr transport.Transport, opts ...Option) *Client {
	c := &Client{
		tr:      tr,
		key:     ipc.DefaultKey,
		decoder: scene.MsgpackDecoder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sessionID == "" {
		c.sessionID = uuid.NewString()
	}
	if c.logger == nil {
		c.logger = log.NewLogger(log.Session{Key: c.key, SessionID: c.sessionID})
	}
	if c.verbose {
		c.logger.SetVerbose(true)
	}
	c.caches = cache.NewStore(c.names)
	return c
}

// SessionID returns the id stamped on this client's logs and captures.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Key returns the shared memory key.
func (c *Client) Key() int {
	return c.key
}
