// Package servertest provides an in-process physics server that speaks the
// shared memory protocol over a transport.Memory block. Tests script its
// replies directly; the CLI demo mode runs it against a Sim.
package servertest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pithecene-io/physlink/ipc"
	"github.com/pithecene-io/physlink/transport"
	"github.com/pithecene-io/physlink/types"
)

// Handler answers one client command, usually by calling Server.Reply.
type Handler func(s *Server, cmd *types.Command) error

// Server owns the server side of a shared block.
type Server struct {
	tr      *transport.Memory
	key     int
	block   *ipc.Block
	handled uint32
}

// New creates and initializes the block for key.
func New(tr *transport.Memory, key int) (*Server, error) {
	mem, err := tr.Allocate(key, ipc.BlockSize, true)
	if err != nil {
		return nil, fmt.Errorf("allocate block: %w", err)
	}
	block, err := ipc.NewBlock(mem)
	if err != nil {
		_ = tr.Release(key, ipc.BlockSize)
		return nil, err
	}
	block.SetCounters(0, 0, 0)
	block.SetMagicID(ipc.MagicNumber)
	return &Server{tr: tr, key: key, block: block}, nil
}

// Block exposes the raw block for tests that need to corrupt it.
func (s *Server) Block() *ipc.Block {
	return s.block
}

// Pending returns the oldest unanswered client command.
func (s *Server) Pending() (*types.Command, bool, error) {
	if s.block.NumClientCommands() == s.handled {
		return nil, false, nil
	}
	cmd, err := s.block.ReadCommand()
	if err != nil {
		return nil, false, err
	}
	return cmd, true, nil
}

// Reply publishes st as the answer to the pending command. stream, when
// non-nil, fills the server to client buffer first; a status with zero
// NumDataStreamBytes gets len(stream).
func (s *Server) Reply(st *types.Status, stream func(buf []byte) (int, error)) error {
	if stream != nil {
		n, err := stream(s.block.ServerStream())
		if err != nil {
			return err
		}
		if st.NumDataStreamBytes == 0 {
			st.NumDataStreamBytes = int32(n)
		}
	}
	if err := s.block.WriteStatus(st); err != nil {
		return err
	}
	s.handled = s.block.NumClientCommands()
	s.block.IncServerCommands()
	return nil
}

// Step answers the pending command with h. It reports whether a command
// was handled.
func (s *Server) Step(h Handler) (bool, error) {
	cmd, ok, err := s.Pending()
	if err != nil || !ok {
		return false, err
	}
	if err := h(s, cmd); err != nil {
		return true, fmt.Errorf("handle %s: %w", cmd.Type, err)
	}
	return true, nil
}

// Run answers commands until ctx is done.
func (s *Server) Run(ctx context.Context, h Handler, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := s.Step(h); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close invalidates the block and removes it from the transport.
func (s *Server) Close() {
	s.block.SetMagicID(0)
	_ = s.tr.Release(s.key, ipc.BlockSize)
	s.tr.Remove(s.key)
}
