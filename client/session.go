package client

import (
	"fmt"

	"github.com/pithecene-io/physlink/ipc"
	"github.com/pithecene-io/physlink/types"
)

// Connect maps the shared block. It fails without changing state when the
// block cannot be mapped or the server has not initialized it yet.
// No command is exchanged.
func (c *Client) Connect() bool {
	if c.connected {
		return true
	}

	mem, err := c.tr.Allocate(c.key, ipc.BlockSize, false)
	if err != nil || mem == nil {
		c.logger.Warn("cannot map shared memory", map[string]any{"error": fmt.Sprint(err)})
		c.metrics.IncConnectFailure()
		return false
	}

	block, err := ipc.NewBlock(mem)
	if err != nil {
		c.logger.Error("shared memory block unusable", map[string]any{"error": err.Error()})
		c.release()
		c.metrics.IncConnectFailure()
		return false
	}
	if !block.Initialized() {
		c.logger.Warn("server not started", map[string]any{
			"magic":    block.MagicID(),
			"expected": ipc.MagicNumber,
		})
		c.release()
		c.metrics.IncConnectFailure()
		return false
	}

	c.block = block
	c.connected = true
	c.metrics.IncConnect()
	c.logger.Info("connected to shared memory", nil)
	return true
}

// Disconnect releases the mapping. Cached results stay readable.
// Calling it when disconnected does nothing.
func (c *Client) Disconnect() {
	if err := c.disconnect(); err != nil {
		c.logger.Warn("release shared memory failed", map[string]any{"error": err.Error()})
	}
}

// Close disconnects and drops every cached result.
func (c *Client) Close() error {
	err := c.disconnect()
	c.caches.Clear()
	return err
}

func (c *Client) disconnect() error {
	if !c.connected {
		return nil
	}
	c.connected = false
	c.waiting = false
	c.block = nil
	c.bodyStack = nil
	c.pendingOuter = nil
	c.metrics.IncDisconnect()
	c.logger.Info("disconnected from shared memory", nil)
	return c.release()
}

func (c *Client) release() error {
	return c.tr.Release(c.key, ipc.BlockSize)
}

// IsConnected reports whether a block is mapped.
func (c *Client) IsConnected() bool {
	return c.connected
}

// CanSubmit reports whether a command may be submitted now.
func (c *Client) CanSubmit() bool {
	return c.connected && !c.waiting
}

// NextCommand stamps the staging slot with the next sequence number and
// returns it. The caller fills in the tag and arguments and passes the
// slot to Submit.
func (c *Client) NextCommand() *types.Command {
	c.seq++
	c.slot.Sequence = c.seq
	return &c.slot
}

// Submit publishes cmd to the server. It returns false without touching
// the block when a command is outstanding, the client is disconnected, or
// cmd cannot be encoded.
func (c *Client) Submit(cmd *types.Command) bool {
	if !c.CanSubmit() {
		c.metrics.IncSubmitRejected()
		return false
	}
	if cmd != &c.slot {
		c.slot = *cmd
	}
	if err := c.block.WriteCommand(&c.slot); err != nil {
		c.logger.Error("cannot encode command", map[string]any{
			"command": c.slot.Type.String(),
			"error":   err.Error(),
		})
		c.metrics.IncSubmitRejected()
		return false
	}
	c.lastCommand = c.slot
	c.block.IncClientCommands()
	c.waiting = true
	c.metrics.IncCommandSubmitted()
	return true
}

// submitFollowUp issues a request on the caller's behalf while Poll is
// consuming a status.
func (c *Client) submitFollowUp(cmdType types.CommandType, args types.CommandArgs) {
	cmd := c.NextCommand()
	cmd.Type = cmdType
	cmd.Args = args
	if !c.Submit(cmd) {
		c.fatal(ProtocolFollowUpRejected, fmt.Sprintf("cannot submit %s", cmdType), nil)
	}
}

// UploadStream copies data into the client to server buffer for a
// following command such as a data stream send.
func (c *Client) UploadStream(data []byte) error {
	if !c.connected {
		return ErrNotConnected
	}
	if len(data) >= ipc.MaxStreamChunkSize {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrStreamTooLarge, len(data), ipc.MaxStreamChunkSize)
	}
	copy(c.block.ClientStream(), data)
	return nil
}

func (c *Client) fatal(kind ProtocolErrorKind, msg string, err error) {
	pe := &ProtocolError{Kind: kind, Msg: msg, Err: err}
	c.logger.Error("protocol violation", map[string]any{"kind": kind.String(), "error": pe.Error()})
	panic(pe)
}
