package servertest

import (
	"fmt"
	"sort"

	"github.com/pithecene-io/physlink/ipc"
	"github.com/pithecene-io/physlink/scene"
	"github.com/pithecene-io/physlink/types"
)

// Sim is a tiny deterministic world answering every command family.
// Results longer than ChunkSize items are sent in several chunks.
type Sim struct {
	// Models maps a file name to the bodies loading it creates.
	Models map[string][]scene.MultiBodyDoubleData
	// DoublePrecision selects the precision of scene blobs.
	DoublePrecision bool
	// ChunkSize bounds the items per chunk. Zero means the stream capacity.
	ChunkSize int

	Contacts []types.ContactPoint
	Overlaps []types.OverlappingObject
	Shapes   map[int32][]types.VisualShape
	Lines    struct{ From, To, Color []types.Float3 }

	// Width and Height size camera images when the request leaves them 0.
	Width, Height int

	bodies map[int32]scene.MultiBodyDoubleData
	nextID int32
	steps  int
}

// NewDemoSim returns a Sim preloaded with a small scene used by the CLI demo.
func NewDemoSim() *Sim {
	arm := scene.MultiBodyDoubleData{
		BaseName: "arm_base",
		Links: []scene.LinkDoubleData{
			{JointType: types.JointRevolute, LinkName: "upper_arm", JointName: "shoulder", PosVarCount: 1, DofCount: 1, JointDamping: 0.1},
			{JointType: types.JointRevolute, LinkName: "fore_arm", JointName: "elbow", PosVarCount: 1, DofCount: 1, JointDamping: 0.1},
			{JointType: types.JointFixed, LinkName: "tool", JointName: "tool_mount"},
		},
	}
	plane := scene.MultiBodyDoubleData{BaseName: "plane"}
	cart := scene.MultiBodyDoubleData{
		BaseName: "cart",
		Links: []scene.LinkDoubleData{
			{JointType: types.JointPrismatic, LinkName: "pole_mount", JointName: "slider", PosVarCount: 1, DofCount: 1, JointFriction: 0.05},
			{JointType: types.JointRevolute, LinkName: "pole", JointName: "hinge", PosVarCount: 1, DofCount: 1},
		},
	}

	sim := &Sim{
		Models: map[string][]scene.MultiBodyDoubleData{
			"arm.urdf":      {arm},
			"plane.urdf":    {plane},
			"cartpole.urdf": {cart},
			"world.sdf":     {plane, arm, cart},
			"world.xml":     {plane, cart},
		},
		ChunkSize: 64,
		Width:     32,
		Height:    24,
		Shapes:    make(map[int32][]types.VisualShape),
	}
	for i := range 150 {
		f := float32(i)
		sim.Lines.From = append(sim.Lines.From, types.Float3{f, 0, 0})
		sim.Lines.To = append(sim.Lines.To, types.Float3{f, 1, 0})
		sim.Lines.Color = append(sim.Lines.Color, types.Float3{1, f / 150, 0})
	}
	return sim
}

// Handle implements Handler.
func (sim *Sim) Handle(s *Server, cmd *types.Command) error {
	reply := func(t types.StatusType, args types.StatusArgs) error {
		return s.Reply(&types.Status{Type: t, Sequence: cmd.Sequence, Args: args}, nil)
	}

	switch cmd.Type {
	case types.CommandLoadURDF:
		a, _ := cmd.Args.(types.URDFArgs)
		models := sim.Models[types.FileNameString(a.FileName[:])]
		if len(models) == 0 {
			return reply(types.StatusURDFLoadingFailed, nil)
		}
		id := sim.create(models[0])
		return sim.replyBlob(s, cmd, types.StatusURDFLoadingCompleted, id)

	case types.CommandLoadSDF, types.CommandLoadMJCF:
		completed, failed := types.StatusSDFLoadingCompleted, types.StatusSDFLoadingFailed
		if cmd.Type == types.CommandLoadMJCF {
			completed, failed = types.StatusMJCFLoadingCompleted, types.StatusMJCFLoadingFailed
		}
		a, _ := cmd.Args.(types.FileArgs)
		models := sim.Models[types.FileNameString(a.FileName[:])]
		if len(models) == 0 || len(models) > types.MaxSDFBodies {
			return reply(failed, nil)
		}
		var args types.SceneLoadedArgs
		for i, mb := range models {
			args.BodyUniqueIDs[i] = sim.create(mb)
		}
		args.NumBodies = int32(len(models))
		return reply(completed, args)

	case types.CommandRequestBodyInfo:
		a, _ := cmd.Args.(types.BodyArgs)
		if _, ok := sim.bodies[a.BodyUniqueID]; !ok {
			return reply(types.StatusBodyInfoFailed, types.BodyStreamArgs{BodyUniqueID: a.BodyUniqueID})
		}
		return sim.replyBlob(s, cmd, types.StatusBodyInfoCompleted, a.BodyUniqueID)

	case types.CommandStepForwardSimulation:
		sim.steps++
		return reply(types.StatusStepForwardSimulationCompleted, nil)

	case types.CommandResetSimulation:
		sim.bodies = nil
		sim.steps = 0
		return reply(types.StatusResetSimulationCompleted, nil)

	case types.CommandRequestActualState:
		a, _ := cmd.Args.(types.BodyArgs)
		mb, ok := sim.bodies[a.BodyUniqueID]
		if !ok {
			return reply(types.StatusActualStateUpdateFailed, nil)
		}
		return reply(types.StatusActualStateUpdateCompleted, sim.state(a.BodyUniqueID, mb))

	case types.CommandSendDesiredState:
		return reply(types.StatusDesiredStateReceivedCompleted, nil)

	case types.CommandSendBulletDataStream:
		a, _ := cmd.Args.(types.DataStreamArgs)
		if a.NumBytes <= 0 || int(a.NumBytes) >= ipc.MaxStreamChunkSize {
			return reply(types.StatusBulletDataStreamReceivedFailed, nil)
		}
		return reply(types.StatusBulletDataStreamReceivedCompleted, nil)

	case types.CommandRequestDebugLines:
		a, _ := cmd.Args.(types.DebugLinesArgs)
		return sim.replyDebugLines(s, cmd, int(a.StartingLineIndex))

	case types.CommandRequestCameraImage:
		a, _ := cmd.Args.(types.CameraImageArgs)
		return sim.replyCamera(s, cmd, a)

	case types.CommandRequestContactPoints:
		a, _ := cmd.Args.(types.ContactPointArgs)
		return sim.replyContacts(s, cmd, a)

	case types.CommandRequestAABBOverlap:
		a, _ := cmd.Args.(types.AABBOverlapArgs)
		start, n, rest := sim.window(int(a.StartingOverlappingObjectIndex), len(sim.Overlaps), ipc.OverlappingObjectSize)
		return s.Reply(&types.Status{
			Type:     types.StatusAABBOverlapCompleted,
			Sequence: cmd.Sequence,
			Args: types.OverlapChunkArgs{
				StartingOverlappingObjectIndex: int32(start),
				NumOverlappingObjectsCopied:    int32(n),
				NumRemainingOverlappingObjects: int32(rest),
			},
		}, func(buf []byte) (int, error) {
			return n * ipc.OverlappingObjectSize, ipc.PutOverlappingObjects(buf, sim.Overlaps[start:start+n])
		})

	case types.CommandRequestVisualShapeInfo:
		a, _ := cmd.Args.(types.VisualShapeArgs)
		shapes, ok := sim.Shapes[a.BodyUniqueID]
		if !ok {
			return reply(types.StatusVisualShapeInfoFailed, nil)
		}
		start, n, rest := sim.window(int(a.StartingVisualShapeIndex), len(shapes), ipc.VisualShapeSize)
		return s.Reply(&types.Status{
			Type:     types.StatusVisualShapeInfoCompleted,
			Sequence: cmd.Sequence,
			Args: types.VisualShapeChunkArgs{
				BodyUniqueID:             a.BodyUniqueID,
				StartingVisualShapeIndex: int32(start),
				NumVisualShapesCopied:    int32(n),
				NumRemainingVisualShapes: int32(rest),
			},
		}, func(buf []byte) (int, error) {
			return n * ipc.VisualShapeSize, ipc.PutVisualShapes(buf, shapes[start:start+n])
		})

	default:
		return reply(types.StatusClientCommandCompleted, nil)
	}
}

// Steps returns the number of simulation steps taken since the last reset.
func (sim *Sim) Steps() int {
	return sim.steps
}

// BodyIDs returns the live body ids in ascending order.
func (sim *Sim) BodyIDs() []int32 {
	ids := make([]int32, 0, len(sim.bodies))
	for id := range sim.bodies {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (sim *Sim) create(mb scene.MultiBodyDoubleData) int32 {
	if sim.bodies == nil {
		sim.bodies = make(map[int32]scene.MultiBodyDoubleData)
	}
	id := sim.nextID
	sim.nextID++
	sim.bodies[id] = mb
	return id
}

func (sim *Sim) replyBlob(s *Server, cmd *types.Command, t types.StatusType, id int32) error {
	blob, err := scene.Encode(sim.DoublePrecision, sim.bodies[id])
	if err != nil {
		return err
	}
	return s.Reply(&types.Status{
		Type:     t,
		Sequence: cmd.Sequence,
		Args:     types.BodyStreamArgs{BodyUniqueID: id},
	}, func(buf []byte) (int, error) {
		if len(blob) > len(buf) {
			return 0, fmt.Errorf("scene blob of %d bytes exceeds stream", len(blob))
		}
		return copy(buf, blob), nil
	})
}

func (sim *Sim) state(id int32, mb scene.MultiBodyDoubleData) types.ActualStateArgs {
	args := types.ActualStateArgs{BodyUniqueID: id, NumDegreeOfFreedomQ: 7, NumDegreeOfFreedomU: 6}
	for _, l := range mb.Links {
		args.NumDegreeOfFreedomQ += l.PosVarCount
		args.NumDegreeOfFreedomU += l.DofCount
	}
	args.NumDegreeOfFreedomQ = min(args.NumDegreeOfFreedomQ, types.MaxDegreesOfFreedom)
	args.NumDegreeOfFreedomU = min(args.NumDegreeOfFreedomU, types.MaxDegreesOfFreedom)
	// Base at rest at the origin with identity orientation.
	args.ActualStateQ[6] = 1
	for i := 7; i < int(args.NumDegreeOfFreedomQ); i++ {
		args.ActualStateQ[i] = 0.01 * float64(sim.steps)
	}
	return args
}

// window clamps a request for items from start to the chunk size and the
// stream capacity.
func (sim *Sim) window(start, total, itemSize int) (int, int, int) {
	start = max(0, min(start, total))
	n := total - start
	limit := ipc.MaxStreamChunkSize / itemSize
	if sim.ChunkSize > 0 {
		limit = min(limit, sim.ChunkSize)
	}
	n = min(n, limit)
	return start, n, total - start - n
}

func (sim *Sim) replyDebugLines(s *Server, cmd *types.Command, from int) error {
	start, n, rest := sim.window(from, len(sim.Lines.From), ipc.DebugLineSize)
	return s.Reply(&types.Status{
		Type:     types.StatusDebugLinesCompleted,
		Sequence: cmd.Sequence,
		Args: types.DebugLinesChunkArgs{
			StartingLineIndex:      int32(start),
			NumDebugLines:          int32(n),
			NumRemainingDebugLines: int32(rest),
		},
	}, func(buf []byte) (int, error) {
		end := start + n
		return n * ipc.DebugLineSize, ipc.PutDebugLines(buf,
			sim.Lines.From[start:end], sim.Lines.To[start:end], sim.Lines.Color[start:end])
	})
}

func (sim *Sim) replyCamera(s *Server, cmd *types.Command, a types.CameraImageArgs) error {
	w, h := int(a.PixelWidth), int(a.PixelHeight)
	if w == 0 || h == 0 {
		w, h = sim.Width, sim.Height
	}
	if w <= 0 || h <= 0 {
		return s.Reply(&types.Status{Type: types.StatusCameraImageFailed, Sequence: cmd.Sequence}, nil)
	}
	start, n, rest := sim.window(int(a.StartPixelIndex), w*h, ipc.PixelSize)

	rgba := make([]byte, 4*n)
	depth := make([]float32, n)
	seg := make([]int32, n)
	ids := sim.BodyIDs()
	for i := range n {
		p := start + i
		x, y := p%w, p/w
		rgba[4*i] = byte(255 * x / max(1, w-1))
		rgba[4*i+1] = byte(255 * y / max(1, h-1))
		rgba[4*i+2] = byte(sim.steps)
		rgba[4*i+3] = 255
		depth[i] = float32(y) / float32(h)
		seg[i] = int32(-1)
		if len(ids) > 0 && y >= h/2 {
			seg[i] = ids[0]
		}
	}

	return s.Reply(&types.Status{
		Type:     types.StatusCameraImageCompleted,
		Sequence: cmd.Sequence,
		Args: types.PixelChunkArgs{
			ImageWidth:         int32(w),
			ImageHeight:        int32(h),
			StartingPixelIndex: int32(start),
			NumPixelsCopied:    int32(n),
			NumRemainingPixels: int32(rest),
		},
	}, func(buf []byte) (int, error) {
		return n * ipc.PixelSize, ipc.PutPixels(buf, rgba, depth, seg)
	})
}

func (sim *Sim) replyContacts(s *Server, cmd *types.Command, a types.ContactPointArgs) error {
	var matched []types.ContactPoint
	for _, cp := range sim.Contacts {
		if a.ObjectAIndexFilter >= 0 && cp.BodyUniqueIDA != a.ObjectAIndexFilter {
			continue
		}
		if a.ObjectBIndexFilter >= 0 && cp.BodyUniqueIDB != a.ObjectBIndexFilter {
			continue
		}
		matched = append(matched, cp)
	}
	start, n, rest := sim.window(int(a.StartingContactPointIndex), len(matched), ipc.ContactPointSize)
	return s.Reply(&types.Status{
		Type:     types.StatusContactPointInformationCompleted,
		Sequence: cmd.Sequence,
		Args: types.ContactPointChunkArgs{
			StartingContactPointIndex: int32(start),
			NumContactPointsCopied:    int32(n),
			NumRemainingContactPoints: int32(rest),
		},
	}, func(buf []byte) (int, error) {
		return n * ipc.ContactPointSize, ipc.PutContactPoints(buf, matched[start:start+n])
	})
}
