package client

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/pithecene-io/physlink/ipc"
	"github.com/pithecene-io/physlink/metrics"
	"github.com/pithecene-io/physlink/scene"
	"github.com/pithecene-io/physlink/servertest"
	"github.com/pithecene-io/physlink/types"
)

// trackingNames counts live directory strings.
type trackingNames struct {
	retained, released int
}

func (n *trackingNames) Retain(s string) string {
	n.retained++
	return s
}

func (n *trackingNames) Release(string) {
	n.released++
}

func (n *trackingNames) live() int {
	return n.retained - n.released
}

// replyWith answers the pending command with st and its stream bytes.
func replyWith(t *testing.T, srv *servertest.Server, st *types.Status, fill func(buf []byte) error) {
	t.Helper()
	var stream func([]byte) (int, error)
	if fill != nil {
		stream = func(buf []byte) (int, error) { return 0, fill(buf) }
	}
	if err := srv.Reply(st, stream); err != nil {
		t.Fatalf("Reply() error = %v", err)
	}
}

func TestCameraImage_SingleChunk(t *testing.T) {
	c, srv := newSession(t)
	submit(t, c, types.CommandRequestCameraImage, types.CameraImageArgs{PixelWidth: 10, PixelHeight: 10})

	rgba := make([]byte, 400)
	depth := make([]float32, 100)
	seg := make([]int32, 100)
	for i := range 100 {
		rgba[4*i], rgba[4*i+1], rgba[4*i+2], rgba[4*i+3] = byte(i), byte(i+1), byte(i+2), 255
		depth[i] = float32(i) / 100
		seg[i] = int32(i % 3)
	}
	replyWith(t, srv, &types.Status{
		Type: types.StatusCameraImageCompleted,
		Args: types.PixelChunkArgs{ImageWidth: 10, ImageHeight: 10, StartingPixelIndex: 0, NumPixelsCopied: 100, NumRemainingPixels: 0},
	}, func(buf []byte) error { return ipc.PutPixels(buf, rgba, depth, seg) })

	if n, p := srv.Block().NumServerCommands(), srv.Block().NumProcessedServerCommands(); n != 1 || p != 0 {
		t.Fatalf("counters = %d/%d, want 1/0", n, p)
	}

	st := c.Poll()
	if st == nil || st.Type != types.StatusCameraImageCompleted {
		t.Fatalf("Poll() = %+v, want camera_image_completed", st)
	}
	img := c.CameraImage()
	if img.Width != 10 || img.Height != 10 {
		t.Errorf("image = %dx%d, want 10x10", img.Width, img.Height)
	}
	if !reflect.DeepEqual(img.RGBA, rgba) {
		t.Error("RGBA differs from the transferred pixels")
	}
	if !reflect.DeepEqual(img.Depth, depth) || !reflect.DeepEqual(img.Segmentation, seg) {
		t.Error("depth or segmentation differs from the transferred pixels")
	}
}

func TestDebugLines_ChunkedTransfer(t *testing.T) {
	for _, chunk := range []int{200, 150, 64, 7, 1} {
		t.Run(fmt.Sprintf("chunk=%d", chunk), func(t *testing.T) {
			m := metrics.NewCollector("memory", "")
			c, srv := newSession(t, WithMetrics(m))
			sim := servertest.NewDemoSim()
			sim.ChunkSize = chunk

			submit(t, c, types.CommandRequestDebugLines, types.DebugLinesArgs{DebugMode: 1})
			st := await(t, c, srv, sim.Handle)

			if st.Type != types.StatusDebugLinesCompleted {
				t.Fatalf("status = %s, want debug_lines_completed", st.Type)
			}
			lines := c.DebugLines()
			if !reflect.DeepEqual(lines.From, sim.Lines.From) ||
				!reflect.DeepEqual(lines.To, sim.Lines.To) ||
				!reflect.DeepEqual(lines.Color, sim.Lines.Color) {
				t.Error("cached lines differ from the concatenated chunks")
			}

			chunks := (len(sim.Lines.From) + chunk - 1) / chunk
			if got := m.Snapshot().Continuations; got != int64(chunks-1) {
				t.Errorf("Continuations = %d, want %d", got, chunks-1)
			}
			if got := m.Snapshot().CommandsSubmitted; got != int64(chunks) {
				t.Errorf("CommandsSubmitted = %d, want %d", got, chunks)
			}
			if !c.CanSubmit() {
				t.Error("CanSubmit() = false after transfer completed")
			}
		})
	}
}

func TestContinuation_CarriesRequestFields(t *testing.T) {
	c, srv := newSession(t)
	sim := servertest.NewDemoSim()
	sim.ChunkSize = 2
	for i := range 7 {
		b := int32(2)
		if i%2 == 1 {
			b = 3
		}
		sim.Contacts = append(sim.Contacts, types.ContactPoint{BodyUniqueIDA: 1, BodyUniqueIDB: b, ContactDistance: float64(i)})
	}

	var requests []types.ContactPointArgs
	record := func(s *servertest.Server, cmd *types.Command) error {
		requests = append(requests, cmd.Args.(types.ContactPointArgs))
		return sim.Handle(s, cmd)
	}

	submit(t, c, types.CommandRequestContactPoints, types.ContactPointArgs{ObjectAIndexFilter: 1, ObjectBIndexFilter: 2})
	await(t, c, srv, record)

	points := c.ContactPoints()
	if len(points) != 4 {
		t.Fatalf("len(ContactPoints()) = %d, want 4", len(points))
	}
	for i, p := range points {
		if p.BodyUniqueIDB != 2 || p.ContactDistance != float64(2*i) {
			t.Errorf("ContactPoints()[%d] = %+v", i, p)
		}
	}

	wantStarts := []int32{0, 2}
	if len(requests) != len(wantStarts) {
		t.Fatalf("requests = %d, want %d", len(requests), len(wantStarts))
	}
	for i, r := range requests {
		if r.StartingContactPointIndex != wantStarts[i] || r.ObjectAIndexFilter != 1 || r.ObjectBIndexFilter != 2 {
			t.Errorf("request %d = %+v, want start %d with filters 1, 2", i, r, wantStarts[i])
		}
	}
}

func TestContinuation_VisualShapesUseStatusBody(t *testing.T) {
	c, srv := newSession(t)
	sim := servertest.NewDemoSim()
	sim.ChunkSize = 3
	for i := range 8 {
		sim.Shapes[4] = append(sim.Shapes[4], types.VisualShape{
			ObjectUniqueID:    4,
			LinkIndex:         int32(i - 1),
			MeshAssetFileName: fmt.Sprintf("link%d.obj", i),
		})
	}

	var bodies []int32
	record := func(s *servertest.Server, cmd *types.Command) error {
		bodies = append(bodies, cmd.Args.(types.VisualShapeArgs).BodyUniqueID)
		return sim.Handle(s, cmd)
	}

	submit(t, c, types.CommandRequestVisualShapeInfo, types.VisualShapeArgs{BodyUniqueID: 4})
	st := await(t, c, srv, record)

	if st.Type != types.StatusVisualShapeInfoCompleted {
		t.Fatalf("status = %s", st.Type)
	}
	if !reflect.DeepEqual(c.VisualShapes(), sim.Shapes[4]) {
		t.Errorf("VisualShapes() = %+v, want %+v", c.VisualShapes(), sim.Shapes[4])
	}
	if want := []int32{4, 4, 4}; !reflect.DeepEqual(bodies, want) {
		t.Errorf("requested bodies = %v, want %v", bodies, want)
	}
}

func TestOverlappingObjects_Chunked(t *testing.T) {
	c, srv := newSession(t)
	sim := servertest.NewDemoSim()
	sim.ChunkSize = 4
	for i := range 10 {
		sim.Overlaps = append(sim.Overlaps, types.OverlappingObject{ObjectUniqueID: int32(i), LinkIndex: -1})
	}

	submit(t, c, types.CommandRequestAABBOverlap, types.AABBOverlapArgs{AABBMax: [3]float64{1, 1, 1}})
	await(t, c, srv, sim.Handle)

	if !reflect.DeepEqual(c.OverlappingObjects(), sim.Overlaps) {
		t.Errorf("OverlappingObjects() = %v, want %v", c.OverlappingObjects(), sim.Overlaps)
	}
}

func TestChunk_ZeroCopiedStops(t *testing.T) {
	m := metrics.NewCollector("memory", "")
	c, srv := newSession(t, WithMetrics(m))
	submit(t, c, types.CommandRequestDebugLines, types.DebugLinesArgs{})

	replyWith(t, srv, &types.Status{
		Type: types.StatusDebugLinesCompleted,
		Args: types.DebugLinesChunkArgs{StartingLineIndex: 0, NumDebugLines: 0, NumRemainingDebugLines: 5},
	}, nil)

	st := c.Poll()
	if st == nil || st.Type != types.StatusDebugLinesCompleted {
		t.Fatalf("Poll() = %+v, want the empty chunk surfaced", st)
	}
	if got := m.Snapshot().Continuations; got != 0 {
		t.Errorf("Continuations = %d, want 0", got)
	}
	if !c.CanSubmit() {
		t.Error("CanSubmit() = false, transfer should have stopped")
	}
}

func TestChunk_ReplayIsIdempotent(t *testing.T) {
	c, srv := newSession(t)
	points := []types.ContactPoint{{BodyUniqueIDA: 1, BodyUniqueIDB: 2}, {BodyUniqueIDA: 1, BodyUniqueIDB: 3}}
	final := &types.Status{
		Type: types.StatusContactPointInformationCompleted,
		Args: types.ContactPointChunkArgs{StartingContactPointIndex: 0, NumContactPointsCopied: 2, NumRemainingContactPoints: 0},
	}
	fill := func(buf []byte) error { return ipc.PutContactPoints(buf, points) }

	submit(t, c, types.CommandRequestContactPoints, types.ContactPointArgs{ObjectAIndexFilter: -1, ObjectBIndexFilter: -1})
	replyWith(t, srv, final, fill)
	c.Poll()
	first := c.ContactPoints()

	submit(t, c, types.CommandRequestContactPoints, types.ContactPointArgs{ObjectAIndexFilter: -1, ObjectBIndexFilter: -1})
	replyWith(t, srv, final, fill)
	c.Poll()

	if second := c.ContactPoints(); !reflect.DeepEqual(first, second) {
		t.Errorf("ContactPoints() after replay = %+v, want %+v", second, first)
	}
}

func TestChunk_OversizedCountRejected(t *testing.T) {
	m := metrics.NewCollector("memory", "")
	c, srv := newSession(t, WithMetrics(m))
	sim := servertest.NewDemoSim()

	submit(t, c, types.CommandRequestDebugLines, types.DebugLinesArgs{})
	await(t, c, srv, sim.Handle)
	if c.DebugLines().Len() == 0 {
		t.Fatal("setup: no lines cached")
	}

	submit(t, c, types.CommandRequestDebugLines, types.DebugLinesArgs{})
	replyWith(t, srv, &types.Status{
		Type: types.StatusDebugLinesCompleted,
		Args: types.DebugLinesChunkArgs{NumDebugLines: ipc.MaxStreamChunkSize, NumRemainingDebugLines: 10},
	}, nil)

	st := c.Poll()
	if st == nil || st.Type != types.StatusDebugLinesOverflowFailed {
		t.Fatalf("Poll() = %+v, want debug_lines_overflow_failed", st)
	}
	if got := c.DebugLines().Len(); got != 0 {
		t.Errorf("DebugLines().Len() = %d, want 0", got)
	}
	if !c.CanSubmit() {
		t.Error("rejected chunk issued a continuation")
	}
	if got := m.Snapshot().RejectedChunks; got != 1 {
		t.Errorf("RejectedChunks = %d, want 1", got)
	}
}

func TestChunk_FailureClearsCache(t *testing.T) {
	c, srv := newSession(t)
	sim := servertest.NewDemoSim()
	sim.Width, sim.Height = 4, 4

	submit(t, c, types.CommandRequestCameraImage, types.CameraImageArgs{})
	await(t, c, srv, sim.Handle)
	if got := len(c.CameraImage().Depth); got != 16 {
		t.Fatalf("setup: %d pixels cached, want 16", got)
	}

	submit(t, c, types.CommandRequestCameraImage, types.CameraImageArgs{})
	replyWith(t, srv, &types.Status{Type: types.StatusCameraImageFailed}, nil)

	if st := c.Poll(); st == nil || st.Type != types.StatusCameraImageFailed {
		t.Fatalf("Poll() = %+v, want camera_image_failed", st)
	}
	if img := c.CameraImage(); len(img.RGBA) != 0 || img.Width != 0 {
		t.Errorf("CameraImage() = %dx%d with %d bytes, want empty", img.Width, img.Height, len(img.RGBA))
	}
}

func sceneBlobHandler(t *testing.T, ids []int32, order *[]int32) servertest.Handler {
	return func(s *servertest.Server, cmd *types.Command) error {
		switch cmd.Type {
		case types.CommandLoadSDF:
			var args types.SceneLoadedArgs
			args.NumBodies = int32(len(ids))
			copy(args.BodyUniqueIDs[:], ids)
			return s.Reply(&types.Status{Type: types.StatusSDFLoadingCompleted, Sequence: cmd.Sequence, Args: args}, nil)
		case types.CommandRequestBodyInfo:
			id := cmd.Args.(types.BodyArgs).BodyUniqueID
			*order = append(*order, id)
			blob, err := scene.Encode(false, scene.MultiBodyDoubleData{
				BaseName: fmt.Sprintf("body%d", id),
				Links: []scene.LinkDoubleData{
					{JointType: types.JointRevolute, LinkName: "link", JointName: fmt.Sprintf("joint%d", id), PosVarCount: 1, DofCount: 1},
				},
			})
			if err != nil {
				return err
			}
			return s.Reply(&types.Status{
				Type:     types.StatusBodyInfoCompleted,
				Sequence: cmd.Sequence,
				Args:     types.BodyStreamArgs{BodyUniqueID: id},
			}, func(buf []byte) (int, error) { return copy(buf, blob), nil })
		default:
			t.Fatalf("unexpected command %s", cmd.Type)
			return nil
		}
	}
}

func TestSceneLoad_ChainsBodyInfoLIFO(t *testing.T) {
	m := metrics.NewCollector("memory", "")
	c, srv := newSession(t, WithMetrics(m))

	var order []int32
	var file types.FileArgs
	types.PutFileName(&file.FileName, "world.sdf")
	submit(t, c, types.CommandLoadSDF, file)
	st := await(t, c, srv, sceneBlobHandler(t, []int32{5, 7, 9}, &order))

	if want := []int32{9, 7, 5}; !reflect.DeepEqual(order, want) {
		t.Errorf("body info order = %v, want %v", order, want)
	}
	if st.Type != types.StatusSDFLoadingCompleted {
		t.Fatalf("status = %s, want sdf_loading_completed", st.Type)
	}
	if got := st.Args.(types.SceneLoadedArgs).Bodies(); !reflect.DeepEqual(got, []int32{5, 7, 9}) {
		t.Errorf("surfaced bodies = %v, want [5 7 9]", got)
	}
	if got := m.Snapshot().BodyInfoRequests; got != 3 {
		t.Errorf("BodyInfoRequests = %d, want 3", got)
	}

	if c.NumBodies() != 3 {
		t.Fatalf("NumBodies() = %d, want 3", c.NumBodies())
	}
	for _, id := range []int{5, 7, 9} {
		info, ok := c.BodyInfo(id)
		if !ok || info.BaseName != fmt.Sprintf("body%d", id) || info.NumJoints != 1 {
			t.Errorf("BodyInfo(%d) = %+v, %v", id, info, ok)
		}
		j, ok := c.JointInfo(id, 0)
		if !ok || j.JointName != fmt.Sprintf("joint%d", id) {
			t.Errorf("JointInfo(%d, 0) = %+v, %v", id, j, ok)
		}
	}
	if id, ok := c.BodyUniqueID(0); !ok || id != 9 {
		t.Errorf("BodyUniqueID(0) = %d, %v, want 9, true", id, ok)
	}
}

func TestSceneLoad_NoBodies(t *testing.T) {
	c, srv := newSession(t)
	var order []int32
	submit(t, c, types.CommandLoadSDF, types.FileArgs{})
	st := await(t, c, srv, sceneBlobHandler(t, nil, &order))

	if st.Type != types.StatusSDFLoadingCompleted || len(order) != 0 {
		t.Errorf("status = %s after %d body requests, want sdf_loading_completed after 0", st.Type, len(order))
	}
}

func TestSceneLoad_MJCFWithDemoSim(t *testing.T) {
	c, srv := newSession(t)
	sim := servertest.NewDemoSim()
	sim.DoublePrecision = true

	var file types.FileArgs
	types.PutFileName(&file.FileName, "world.xml")
	submit(t, c, types.CommandLoadMJCF, file)
	st := await(t, c, srv, sim.Handle)

	if st.Type != types.StatusMJCFLoadingCompleted {
		t.Fatalf("status = %s, want mjcf_loading_completed", st.Type)
	}
	if c.NumBodies() != 2 {
		t.Errorf("NumBodies() = %d, want 2", c.NumBodies())
	}
	if c.NumJoints(1) != 2 {
		t.Errorf("NumJoints(1) = %d, want 2", c.NumJoints(1))
	}
}

func TestURDFLoad_IngestsAndReportsState(t *testing.T) {
	c, srv := newSession(t)
	sim := servertest.NewDemoSim()

	var args types.URDFArgs
	types.PutFileName(&args.FileName, "arm.urdf")
	submit(t, c, types.CommandLoadURDF, args)
	st := await(t, c, srv, sim.Handle)

	if st.Type != types.StatusURDFLoadingCompleted {
		t.Fatalf("status = %s, want urdf_loading_completed", st.Type)
	}
	id := int(st.Args.(types.BodyStreamArgs).BodyUniqueID)
	j, ok := c.JointInfo(id, 1)
	if !ok || j.JointName != "elbow" || j.QIndex != 8 || j.Flags&types.JointHasMotorizedPower == 0 {
		t.Errorf("JointInfo(%d, 1) = %+v, %v", id, j, ok)
	}

	submit(t, c, types.CommandStepForwardSimulation, nil)
	await(t, c, srv, sim.Handle)
	submit(t, c, types.CommandRequestActualState, types.BodyArgs{BodyUniqueID: int32(id)})
	await(t, c, srv, sim.Handle)

	state, ok := c.ActualState(id)
	if !ok {
		t.Fatal("ActualState() ok = false")
	}
	if len(state.Q) != 9 || len(state.QDot) != 8 {
		t.Errorf("len(Q), len(QDot) = %d, %d, want 9, 8", len(state.Q), len(state.QDot))
	}
	if state.Q[7] != 0.01 {
		t.Errorf("Q[7] = %v, want 0.01", state.Q[7])
	}
}

func TestURDFLoad_DecodeFailureLeavesBodyAbsent(t *testing.T) {
	m := metrics.NewCollector("memory", "")
	c, srv := newSession(t, WithMetrics(m))
	submit(t, c, types.CommandLoadURDF, types.URDFArgs{})
	replyWith(t, srv, &types.Status{
		Type:               types.StatusURDFLoadingCompleted,
		NumDataStreamBytes: 3,
		Args:               types.BodyStreamArgs{BodyUniqueID: 11},
	}, func(buf []byte) error {
		copy(buf, []byte{0xc1, 0xc1, 0xc1})
		return nil
	})

	st := c.Poll()
	if st == nil || st.Type != types.StatusURDFLoadingCompleted {
		t.Fatalf("Poll() = %+v, want urdf_loading_completed", st)
	}
	if _, ok := c.BodyInfo(11); ok {
		t.Error("BodyInfo(11) present after decode failure")
	}
	if got := m.Snapshot().DecodeFailures; got != 1 {
		t.Errorf("DecodeFailures = %d, want 1", got)
	}
}

func TestReset_ReleasesDirectoryAndLines(t *testing.T) {
	names := &trackingNames{}
	c, srv := newSession(t, WithNames(names))
	sim := servertest.NewDemoSim()

	var file types.FileArgs
	types.PutFileName(&file.FileName, "world.sdf")
	submit(t, c, types.CommandLoadSDF, file)
	await(t, c, srv, sim.Handle)
	submit(t, c, types.CommandRequestDebugLines, types.DebugLinesArgs{})
	await(t, c, srv, sim.Handle)

	if names.live() == 0 || c.NumBodies() != 3 || c.DebugLines().Len() == 0 {
		t.Fatalf("setup: live names %d, bodies %d, lines %d", names.live(), c.NumBodies(), c.DebugLines().Len())
	}

	submit(t, c, types.CommandResetSimulation, nil)
	st := await(t, c, srv, sim.Handle)

	if st.Type != types.StatusResetSimulationCompleted {
		t.Fatalf("status = %s", st.Type)
	}
	if c.NumBodies() != 0 {
		t.Errorf("NumBodies() = %d, want 0", c.NumBodies())
	}
	if got := c.DebugLines().Len(); got != 0 {
		t.Errorf("DebugLines().Len() = %d, want 0", got)
	}
	if got := names.live(); got != 0 {
		t.Errorf("live names = %d after reset, want 0 (retained %d, released %d)", got, names.retained, names.released)
	}
}

func TestDisconnect_KeepsResultsCloseDrops(t *testing.T) {
	c, srv := newSession(t)
	sim := servertest.NewDemoSim()

	var args types.URDFArgs
	types.PutFileName(&args.FileName, "cartpole.urdf")
	submit(t, c, types.CommandLoadURDF, args)
	await(t, c, srv, sim.Handle)

	c.Disconnect()
	if c.NumBodies() != 1 {
		t.Errorf("NumBodies() after Disconnect = %d, want 1", c.NumBodies())
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if c.NumBodies() != 0 {
		t.Errorf("NumBodies() after Close = %d, want 0", c.NumBodies())
	}
}
