// Package metrics provides per-session metrics collection.
//
// The Collector accumulates counters during a single client session. It is
// a leaf package with no internal dependencies; status tags are recorded by
// name so the types package stays out of its import graph.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all session metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Connection lifecycle
	Connects        int64
	ConnectFailures int64
	Disconnects     int64

	// Protocol traffic
	CommandsSubmitted int64
	SubmitsRejected   int64
	StatusesConsumed  int64
	Continuations     int64
	BodyInfoRequests  int64

	// Failures
	OperationFailures int64
	FailuresByStatus  map[string]int64
	DecodeFailures    int64
	RejectedChunks    int64

	// Capture storage
	CaptureWriteSuccess int64
	CaptureWriteFailure int64

	// Dimensions (informational, set at construction)
	Transport string
	SessionID string
}

// Collector accumulates metrics during a single session.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	connects        int64
	connectFailures int64
	disconnects     int64

	commandsSubmitted int64
	submitsRejected   int64
	statusesConsumed  int64
	continuations     int64
	bodyInfoRequests  int64

	operationFailures int64
	failuresByStatus  map[string]int64
	decodeFailures    int64
	rejectedChunks    int64

	captureWriteSuccess int64
	captureWriteFailure int64

	transport string
	sessionID string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(transport, sessionID string) *Collector {
	return &Collector{
		failuresByStatus: make(map[string]int64),
		transport:        transport,
		sessionID:        sessionID,
	}
}

func (c *Collector) inc(field *int64) {
	c.mu.Lock()
	*field++
	c.mu.Unlock()
}

// --- Connection lifecycle ---

// IncConnect records a successful connect.
func (c *Collector) IncConnect() {
	if c == nil {
		return
	}
	c.inc(&c.connects)
}

// IncConnectFailure records a connect that found no initialized block.
func (c *Collector) IncConnectFailure() {
	if c == nil {
		return
	}
	c.inc(&c.connectFailures)
}

// IncDisconnect records a release of the shared block.
func (c *Collector) IncDisconnect() {
	if c == nil {
		return
	}
	c.inc(&c.disconnects)
}

// --- Protocol traffic ---

// IncCommandSubmitted records a command published to the server,
// including continuations and chained body-info requests.
func (c *Collector) IncCommandSubmitted() {
	if c == nil {
		return
	}
	c.inc(&c.commandsSubmitted)
}

// IncSubmitRejected records a submit refused while a command was outstanding.
func (c *Collector) IncSubmitRejected() {
	if c == nil {
		return
	}
	c.inc(&c.submitsRejected)
}

// IncStatusConsumed records a status read from the block.
func (c *Collector) IncStatusConsumed() {
	if c == nil {
		return
	}
	c.inc(&c.statusesConsumed)
}

// IncContinuation records an automatically issued chunk request.
func (c *Collector) IncContinuation() {
	if c == nil {
		return
	}
	c.inc(&c.continuations)
}

// IncBodyInfoRequest records a chained body-info request.
func (c *Collector) IncBodyInfoRequest() {
	if c == nil {
		return
	}
	c.inc(&c.bodyInfoRequests)
}

// --- Failures ---

// IncOperationFailure records a failed status by tag name.
func (c *Collector) IncOperationFailure(status string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.operationFailures++
	c.failuresByStatus[status]++
	c.mu.Unlock()
}

// IncDecodeFailure records a scene description that failed to decode.
func (c *Collector) IncDecodeFailure() {
	if c == nil {
		return
	}
	c.inc(&c.decodeFailures)
}

// IncRejectedChunk records a chunk whose declared size did not fit.
func (c *Collector) IncRejectedChunk() {
	if c == nil {
		return
	}
	c.inc(&c.rejectedChunks)
}

// --- Capture storage ---
// Capture counters are per-call, not per-record.

// IncCaptureWriteSuccess records a successful capture write.
func (c *Collector) IncCaptureWriteSuccess() {
	if c == nil {
		return
	}
	c.inc(&c.captureWriteSuccess)
}

// IncCaptureWriteFailure records a failed capture write.
func (c *Collector) IncCaptureWriteFailure() {
	if c == nil {
		return
	}
	c.inc(&c.captureWriteFailure)
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	failures := make(map[string]int64, len(c.failuresByStatus))
	for k, v := range c.failuresByStatus {
		failures[k] = v
	}

	return Snapshot{
		Connects:        c.connects,
		ConnectFailures: c.connectFailures,
		Disconnects:     c.disconnects,

		CommandsSubmitted: c.commandsSubmitted,
		SubmitsRejected:   c.submitsRejected,
		StatusesConsumed:  c.statusesConsumed,
		Continuations:     c.continuations,
		BodyInfoRequests:  c.bodyInfoRequests,

		OperationFailures: c.operationFailures,
		FailuresByStatus:  failures,
		DecodeFailures:    c.decodeFailures,
		RejectedChunks:    c.rejectedChunks,

		CaptureWriteSuccess: c.captureWriteSuccess,
		CaptureWriteFailure: c.captureWriteFailure,

		Transport: c.transport,
		SessionID: c.sessionID,
	}
}
