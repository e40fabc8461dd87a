package servertest

import (
	"testing"

	"github.com/pithecene-io/physlink/ipc"
	"github.com/pithecene-io/physlink/transport"
	"github.com/pithecene-io/physlink/types"
)

func TestServer_InitializesBlock(t *testing.T) {
	tr := transport.NewMemory()
	srv, err := New(tr, 5)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !srv.Block().Initialized() {
		t.Error("block not initialized")
	}

	srv.Close()
	if _, err := tr.Allocate(5, ipc.BlockSize, false); err == nil {
		t.Error("block still allocatable after Close")
	}
}

func TestServer_StepWithoutCommand(t *testing.T) {
	srv, err := New(transport.NewMemory(), 5)
	if err != nil {
		t.Fatal(err)
	}
	handled, err := srv.Step(NewDemoSim().Handle)
	if err != nil || handled {
		t.Errorf("Step() = %v, %v, want false, nil", handled, err)
	}
}

func TestSim_ChunksDebugLines(t *testing.T) {
	srv, err := New(transport.NewMemory(), 5)
	if err != nil {
		t.Fatal(err)
	}
	sim := NewDemoSim()
	b := srv.Block()

	cmd := &types.Command{Type: types.CommandRequestDebugLines, Sequence: 3, Args: types.DebugLinesArgs{StartingLineIndex: 128}}
	if err := b.WriteCommand(cmd); err != nil {
		t.Fatal(err)
	}
	b.IncClientCommands()

	if handled, err := srv.Step(sim.Handle); err != nil || !handled {
		t.Fatalf("Step() = %v, %v", handled, err)
	}
	st, err := b.ReadStatus()
	if err != nil {
		t.Fatal(err)
	}
	a := st.Args.(types.DebugLinesChunkArgs)
	if a.StartingLineIndex != 128 || a.NumDebugLines != 22 || a.NumRemainingDebugLines != 0 {
		t.Errorf("chunk = %+v, want start 128, 22 lines, 0 remaining", a)
	}
	if st.Sequence != 3 {
		t.Errorf("Sequence = %d, want 3", st.Sequence)
	}
	if b.PendingStatuses() != 1 {
		t.Errorf("PendingStatuses() = %d, want 1", b.PendingStatuses())
	}
}
