package ipc

import (
	"testing"

	"github.com/pithecene-io/physlink/types"
)

func newTestBlock(t *testing.T) *Block {
	t.Helper()
	b, err := NewBlock(make([]byte, BlockSize))
	if err != nil {
		t.Fatalf("NewBlock failed: %v", err)
	}
	return b
}

func TestNewBlock_TooSmall(t *testing.T) {
	_, err := NewBlock(make([]byte, BlockSize-1))
	if err == nil {
		t.Fatal("expected error for undersized region")
	}
	if !IsFatalLayoutError(err) {
		t.Errorf("undersized region should be fatal, got %v", err)
	}
}

func TestBlock_RegionsDoNotOverlap(t *testing.T) {
	b := newTestBlock(t)

	regions := []struct {
		name string
		buf  []byte
		size int
	}{
		{"client slot", b.ClientSlot(), CommandSlotSize},
		{"server slot", b.ServerSlot(), StatusSlotSize},
		{"client stream", b.ClientStream(), MaxStreamChunkSize},
		{"server stream", b.ServerStream(), MaxStreamChunkSize},
	}
	for _, r := range regions {
		if len(r.buf) != r.size {
			t.Errorf("%s length = %d, want %d", r.name, len(r.buf), r.size)
		}
		for i := range r.buf {
			r.buf[i] = 0xAB
		}
	}

	if b.MagicID() != 0 {
		t.Errorf("MagicID = %#x after filling regions, want 0", b.MagicID())
	}
	if b.NumClientCommands() != 0 || b.NumServerCommands() != 0 || b.NumProcessedServerCommands() != 0 {
		t.Error("counters changed after filling regions")
	}
}

func TestBlock_Counters(t *testing.T) {
	b := newTestBlock(t)

	b.SetMagicID(MagicNumber)
	if !b.Initialized() {
		t.Error("Initialized = false after writing magic")
	}

	b.IncClientCommands()
	b.IncServerCommands()
	if got := b.PendingStatuses(); got != 1 {
		t.Errorf("PendingStatuses = %d, want 1", got)
	}
	b.IncProcessedServerCommands()
	if got := b.PendingStatuses(); got != 0 {
		t.Errorf("PendingStatuses = %d, want 0", got)
	}
	if b.NumClientCommands() != 1 {
		t.Errorf("NumClientCommands = %d, want 1", b.NumClientCommands())
	}
}

func TestBlock_PendingStatusesWraps(t *testing.T) {
	b := newTestBlock(t)
	b.SetCounters(0, 0, 1)

	// A processed count ahead of the server count is not a small number.
	if got := b.PendingStatuses(); got <= 1 {
		t.Errorf("PendingStatuses = %d, want a value outside {0,1}", got)
	}
}

func TestBlock_StatusRoundTripThroughSlot(t *testing.T) {
	b := newTestBlock(t)

	st := &types.Status{
		Type:     types.StatusCameraImageCompleted,
		Sequence: 9,
		Args: types.PixelChunkArgs{
			ImageWidth:         10,
			ImageHeight:        10,
			NumPixelsCopied:    100,
			NumRemainingPixels: 0,
		},
	}
	if err := b.WriteStatus(st); err != nil {
		t.Fatalf("WriteStatus failed: %v", err)
	}
	got, err := b.ReadStatus()
	if err != nil {
		t.Fatalf("ReadStatus failed: %v", err)
	}
	if got.Type != st.Type {
		t.Errorf("Type = %v, want %v", got.Type, st.Type)
	}
	args, ok := got.Args.(types.PixelChunkArgs)
	if !ok {
		t.Fatalf("Args = %T, want PixelChunkArgs", got.Args)
	}
	if args.ImageWidth != 10 || args.NumPixelsCopied != 100 {
		t.Errorf("Args = %+v, want width 10 and 100 pixels", args)
	}
}
