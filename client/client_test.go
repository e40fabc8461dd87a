package client

import (
	"errors"
	"testing"

	"github.com/pithecene-io/physlink/ipc"
	"github.com/pithecene-io/physlink/log"
	"github.com/pithecene-io/physlink/metrics"
	"github.com/pithecene-io/physlink/servertest"
	"github.com/pithecene-io/physlink/transport"
	"github.com/pithecene-io/physlink/types"
)

const testKey = 4242

func newSession(t *testing.T, opts ...Option) (*Client, *servertest.Server) {
	t.Helper()
	tr := transport.NewMemory()
	srv, err := servertest.New(tr, testKey)
	if err != nil {
		t.Fatalf("servertest.New() error = %v", err)
	}
	base := []Option{WithKey(testKey), WithLogger(log.NewNop())}
	c := New(tr, append(base, opts...)...)
	if !c.Connect() {
		t.Fatal("Connect() = false, want true")
	}
	t.Cleanup(func() {
		_ = c.Close()
		srv.Close()
	})
	return c, srv
}

func submit(t *testing.T, c *Client, cmdType types.CommandType, args types.CommandArgs) {
	t.Helper()
	cmd := c.NextCommand()
	cmd.Type = cmdType
	cmd.Args = args
	if !c.Submit(cmd) {
		t.Fatalf("Submit(%s) = false, want true", cmdType)
	}
}

// await alternates server steps and polls until the client surfaces a status.
func await(t *testing.T, c *Client, srv *servertest.Server, h servertest.Handler) *types.Status {
	t.Helper()
	for range 10000 {
		if st := c.Poll(); st != nil {
			return st
		}
		if _, err := srv.Step(h); err != nil {
			t.Fatalf("server Step() error = %v", err)
		}
	}
	t.Fatal("no status surfaced")
	return nil
}

func expectProtocolError(t *testing.T, kind ProtocolErrorKind, fn func()) {
	t.Helper()
	defer func() {
		pe, ok := AsProtocolError(recover())
		if !ok {
			t.Fatalf("did not panic with *ProtocolError")
		}
		if pe.Kind != kind {
			t.Errorf("ProtocolError.Kind = %s, want %s", pe.Kind, kind)
		}
	}()
	fn()
}

func TestConnect_NoBlock(t *testing.T) {
	c := New(transport.NewMemory(), WithKey(testKey), WithLogger(log.NewNop()))
	if c.Connect() {
		t.Fatal("Connect() = true without a block")
	}
	if c.IsConnected() || c.CanSubmit() {
		t.Error("client marked connected after failed Connect")
	}
}

func TestConnect_WrongMagic(t *testing.T) {
	tr := transport.NewMemory()
	if _, err := tr.Allocate(testKey, ipc.BlockSize, true); err != nil {
		t.Fatal(err)
	}
	m := metrics.NewCollector("memory", "")
	c := New(tr, WithKey(testKey), WithLogger(log.NewNop()), WithMetrics(m))

	if c.Connect() {
		t.Fatal("Connect() = true for uninitialized block")
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true after magic mismatch")
	}
	// The creator's attachment remains; the client's was released.
	if got := tr.Attachments(testKey); got != 1 {
		t.Errorf("Attachments() = %d, want 1", got)
	}
	if got := m.Snapshot().ConnectFailures; got != 1 {
		t.Errorf("ConnectFailures = %d, want 1", got)
	}
}

func TestDisconnect_Idempotent(t *testing.T) {
	c, _ := newSession(t)
	c.Disconnect()
	c.Disconnect()
	if c.IsConnected() {
		t.Error("IsConnected() = true after Disconnect")
	}
	if st := c.Poll(); st == nil || st.Type != types.StatusSharedMemoryNotInitialized {
		t.Errorf("Poll() after Disconnect = %+v, want not initialized", st)
	}
}

func TestSubmit_SecondSubmissionRejected(t *testing.T) {
	c, srv := newSession(t)
	submit(t, c, types.CommandStepForwardSimulation, nil)
	if c.CanSubmit() {
		t.Fatal("CanSubmit() = true while waiting")
	}

	before := append([]byte(nil), srv.Block().ClientSlot()...)
	counter := srv.Block().NumClientCommands()

	second := &types.Command{Type: types.CommandRequestCameraImage, Sequence: 99, Args: types.CameraImageArgs{PixelWidth: 4}}
	if c.Submit(second) {
		t.Fatal("second Submit() = true, want false")
	}
	if got := srv.Block().ClientSlot(); string(got) != string(before) {
		t.Error("rejected Submit() mutated the client slot")
	}
	if got := srv.Block().NumClientCommands(); got != counter {
		t.Errorf("NumClientCommands() = %d, want %d", got, counter)
	}
}

func TestSubmit_NotConnected(t *testing.T) {
	c := New(transport.NewMemory(), WithLogger(log.NewNop()))
	if c.Submit(&types.Command{Type: types.CommandStepForwardSimulation}) {
		t.Error("Submit() = true while disconnected")
	}
}

func TestSubmit_EncodeFailureHasNoSideEffect(t *testing.T) {
	c, srv := newSession(t)
	bad := &types.Command{Type: types.CommandLoadURDF, Args: types.BodyArgs{BodyUniqueID: 1}}
	if c.Submit(bad) {
		t.Fatal("Submit() = true for mismatched arguments")
	}
	if !c.CanSubmit() {
		t.Error("CanSubmit() = false after failed encode")
	}
	if got := srv.Block().NumClientCommands(); got != 0 {
		t.Errorf("NumClientCommands() = %d, want 0", got)
	}
}

func TestNextCommand_SequenceIncreases(t *testing.T) {
	c := New(transport.NewMemory(), WithLogger(log.NewNop()))
	var last uint32
	for range 5 {
		cmd := c.NextCommand()
		if cmd.Sequence <= last {
			t.Fatalf("Sequence = %d, want > %d", cmd.Sequence, last)
		}
		last = cmd.Sequence
	}
	// Two clients keep independent counters.
	if got := New(transport.NewMemory(), WithLogger(log.NewNop())).NextCommand().Sequence; got != 1 {
		t.Errorf("fresh client Sequence = %d, want 1", got)
	}
}

func TestSubmit_SlotPassedBackIsNotCopied(t *testing.T) {
	c, srv := newSession(t)
	cmd := c.NextCommand()
	cmd.Type = types.CommandRequestBodyInfo
	cmd.Args = types.BodyArgs{BodyUniqueID: 3}
	if !c.Submit(cmd) {
		t.Fatal("Submit() = false")
	}
	got, err := srv.Block().ReadCommand()
	if err != nil {
		t.Fatal(err)
	}
	if got.Type != types.CommandRequestBodyInfo || got.Sequence != cmd.Sequence {
		t.Errorf("published command = %+v, want %+v", got, cmd)
	}
}

func TestPoll_NothingOutstanding(t *testing.T) {
	c, _ := newSession(t)
	if st := c.Poll(); st != nil {
		t.Errorf("Poll() = %+v, want nil", st)
	}
}

func TestPoll_AwaitingServer(t *testing.T) {
	c, _ := newSession(t)
	submit(t, c, types.CommandStepForwardSimulation, nil)
	if st := c.Poll(); st != nil {
		t.Errorf("Poll() before reply = %+v, want nil", st)
	}
}

func TestPoll_MagicInvalidated(t *testing.T) {
	c, srv := newSession(t)
	submit(t, c, types.CommandStepForwardSimulation, nil)
	srv.Block().SetMagicID(0)

	st := c.Poll()
	if st == nil || st.Type != types.StatusSharedMemoryNotInitialized {
		t.Errorf("Poll() = %+v, want not initialized", st)
	}
}

func TestPoll_PendingCountViolation(t *testing.T) {
	c, srv := newSession(t)
	submit(t, c, types.CommandStepForwardSimulation, nil)
	srv.Block().SetCounters(1, 3, 0)

	expectProtocolError(t, ProtocolPendingCount, func() { c.Poll() })
}

func TestPoll_UnknownStatusTag(t *testing.T) {
	c, srv := newSession(t)
	submit(t, c, types.CommandStepForwardSimulation, nil)
	if err := srv.Reply(&types.Status{Type: types.StatusType(999)}, nil); err != nil {
		t.Fatal(err)
	}

	expectProtocolError(t, ProtocolUnknownStatus, func() { c.Poll() })
}

func TestPoll_AckSurfacesAndClearsWaiting(t *testing.T) {
	m := metrics.NewCollector("memory", "")
	c, srv := newSession(t, WithMetrics(m))
	sim := servertest.NewDemoSim()

	submit(t, c, types.CommandStepForwardSimulation, nil)
	st := await(t, c, srv, sim.Handle)

	if st.Type != types.StatusStepForwardSimulationCompleted {
		t.Errorf("status = %s, want step_forward_simulation_completed", st.Type)
	}
	if !c.CanSubmit() {
		t.Error("CanSubmit() = false after status consumed")
	}
	if got := c.LastStatus().Type; got != st.Type {
		t.Errorf("LastStatus().Type = %s, want %s", got, st.Type)
	}
	if got := srv.Block().NumProcessedServerCommands(); got != 1 {
		t.Errorf("NumProcessedServerCommands() = %d, want 1", got)
	}
	if s := m.Snapshot(); s.StatusesConsumed != 1 || s.CommandsSubmitted != 1 {
		t.Errorf("StatusesConsumed = %d, CommandsSubmitted = %d, want 1, 1", s.StatusesConsumed, s.CommandsSubmitted)
	}
}

func TestPoll_FailureSurfaces(t *testing.T) {
	m := metrics.NewCollector("memory", "")
	c, srv := newSession(t, WithMetrics(m))
	sim := servertest.NewDemoSim()

	var args types.URDFArgs
	types.PutFileName(&args.FileName, "missing.urdf")
	submit(t, c, types.CommandLoadURDF, args)
	st := await(t, c, srv, sim.Handle)

	if st.Type != types.StatusURDFLoadingFailed {
		t.Errorf("status = %s, want urdf_loading_failed", st.Type)
	}
	if got := m.Snapshot().FailuresByStatus["urdf_loading_failed"]; got != 1 {
		t.Errorf("FailuresByStatus[urdf_loading_failed] = %d, want 1", got)
	}
}

func TestHandlers_Exhaustive(t *testing.T) {
	if err := checkHandlers(handlers); err != nil {
		t.Fatalf("checkHandlers() error = %v", err)
	}

	partial := buildHandlers()
	delete(partial, types.StatusCameraImageFailed)
	if err := checkHandlers(partial); err == nil {
		t.Error("checkHandlers() = nil with a missing tag")
	}

	extra := buildHandlers()
	extra[types.StatusSharedMemoryNotInitialized] = (*Client).onAck
	if err := checkHandlers(extra); err == nil {
		t.Error("checkHandlers() = nil with the synthetic tag routed")
	}
}

func TestUploadStream(t *testing.T) {
	c, srv := newSession(t)
	if err := c.UploadStream([]byte("payload")); err != nil {
		t.Fatalf("UploadStream() error = %v", err)
	}
	if got := string(srv.Block().ClientStream()[:7]); got != "payload" {
		t.Errorf("client stream = %q, want payload", got)
	}

	err := c.UploadStream(make([]byte, ipc.MaxStreamChunkSize))
	if !errors.Is(err, ErrStreamTooLarge) {
		t.Errorf("UploadStream(max) error = %v, want ErrStreamTooLarge", err)
	}

	c.Disconnect()
	if err := c.UploadStream(nil); !errors.Is(err, ErrNotConnected) {
		t.Errorf("UploadStream() disconnected error = %v, want ErrNotConnected", err)
	}
}
