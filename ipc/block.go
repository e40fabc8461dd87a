// Package ipc implements the fixed layout of the shared memory block that
// carries one command and one status between the client and the simulation
// server.
//
// Layout (native byte order, offsets in bytes):
//
//	0                     magic id (int32) + reserved (4)
//	8                     client command slot (CommandSlotSize)
//	8+C                   server status slot (StatusSlotSize)
//	8+C+S                 numClientCommands, numServerCommands,
//	                      numProcessedServerCommands (uint32 each) + reserved (4)
//	8+C+S+16              client to server stream (MaxStreamChunkSize)
//	8+C+S+16+M            server to client stream (MaxStreamChunkSize)
package ipc

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// Layout constants shared with the server out of band.
const (
	// MagicNumber is written by the server once the block is initialized.
	MagicNumber int32 = 0x50484C4B
	// DefaultKey is the conventional shared memory key.
	DefaultKey = 12347
	// MaxStreamChunkSize is the capacity of each bulk stream buffer.
	MaxStreamChunkSize = 256 * 1024
	// CommandSlotSize is the size of the client command slot.
	CommandSlotSize = 1024
	// StatusSlotSize is the size of the server status slot.
	StatusSlotSize = 2048
	// SlotHeaderSize is the size of the tag/sequence/length header of a slot.
	SlotHeaderSize = 16
)

// Offsets of the block regions.
const (
	magicOffset              = 0
	clientSlotOffset         = 8
	serverSlotOffset         = clientSlotOffset + CommandSlotSize
	countersOffset           = serverSlotOffset + StatusSlotSize
	numClientCommandsOffset  = countersOffset
	numServerCommandsOffset  = countersOffset + 4
	numProcessedServerOffset = countersOffset + 8
	clientStreamOffset       = countersOffset + 16
	serverStreamOffset       = clientStreamOffset + MaxStreamChunkSize
)

// BlockSize is the total size both sides map.
const BlockSize = serverStreamOffset + MaxStreamChunkSize

// Block is a typed view over a mapped shared memory region.
// Counters and the magic id are accessed atomically since the peer process
// writes them concurrently; slots and streams are plain bytes whose
// visibility is ordered by the counters.
type Block struct {
	mem []byte
}

// NewBlock wraps a mapped region. The region must be at least BlockSize
// bytes and 4-byte aligned, which every page-aligned mapping is.
func NewBlock(mem []byte) (*Block, error) {
	if len(mem) < BlockSize {
		return nil, &LayoutError{
			Kind: LayoutErrorTooSmall,
			Msg:  fmt.Sprintf("mapped region of %d bytes is smaller than block size %d", len(mem), BlockSize),
		}
	}
	if uintptr(unsafe.Pointer(&mem[0]))%4 != 0 {
		return nil, &LayoutError{
			Kind: LayoutErrorTooSmall,
			Msg:  "mapped region is not 4-byte aligned",
		}
	}
	return &Block{mem: mem[:BlockSize]}, nil
}

func (b *Block) word(off int) *uint32 {
	return (*uint32)(unsafe.Pointer(&b.mem[off]))
}

// MagicID returns the sentinel the server writes once initialized.
func (b *Block) MagicID() int32 {
	return int32(atomic.LoadUint32(b.word(magicOffset)))
}

// SetMagicID writes the sentinel. Only servers and tests call it.
func (b *Block) SetMagicID(v int32) {
	atomic.StoreUint32(b.word(magicOffset), uint32(v))
}

// Initialized reports whether the magic id matches MagicNumber.
func (b *Block) Initialized() bool {
	return b.MagicID() == MagicNumber
}

// NumClientCommands returns the number of commands the client submitted.
func (b *Block) NumClientCommands() uint32 {
	return atomic.LoadUint32(b.word(numClientCommandsOffset))
}

// IncClientCommands publishes a newly written client command.
func (b *Block) IncClientCommands() {
	atomic.AddUint32(b.word(numClientCommandsOffset), 1)
}

// NumServerCommands returns the number of statuses the server wrote.
func (b *Block) NumServerCommands() uint32 {
	return atomic.LoadUint32(b.word(numServerCommandsOffset))
}

// IncServerCommands publishes a newly written server status.
func (b *Block) IncServerCommands() {
	atomic.AddUint32(b.word(numServerCommandsOffset), 1)
}

// NumProcessedServerCommands returns the number of statuses the client consumed.
func (b *Block) NumProcessedServerCommands() uint32 {
	return atomic.LoadUint32(b.word(numProcessedServerOffset))
}

// IncProcessedServerCommands marks the pending status consumed.
func (b *Block) IncProcessedServerCommands() {
	atomic.AddUint32(b.word(numProcessedServerOffset), 1)
}

// SetCounters overwrites all counters. Only servers and tests call it.
func (b *Block) SetCounters(numClient, numServer, numProcessed uint32) {
	atomic.StoreUint32(b.word(numClientCommandsOffset), numClient)
	atomic.StoreUint32(b.word(numServerCommandsOffset), numServer)
	atomic.StoreUint32(b.word(numProcessedServerOffset), numProcessed)
}

// PendingStatuses returns numServerCommands - numProcessedServerCommands.
// A well-behaved peer keeps this in {0, 1}.
func (b *Block) PendingStatuses() uint32 {
	return b.NumServerCommands() - b.NumProcessedServerCommands()
}

// ClientSlot returns the raw client command slot.
func (b *Block) ClientSlot() []byte {
	return b.mem[clientSlotOffset:serverSlotOffset]
}

// ServerSlot returns the raw server status slot.
func (b *Block) ServerSlot() []byte {
	return b.mem[serverSlotOffset:countersOffset]
}

// ClientStream returns the client to server bulk buffer.
func (b *Block) ClientStream() []byte {
	return b.mem[clientStreamOffset:serverStreamOffset]
}

// ServerStream returns the server to client bulk buffer.
func (b *Block) ServerStream() []byte {
	return b.mem[serverStreamOffset:BlockSize]
}
