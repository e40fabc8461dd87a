// Package types defines the protocol vocabulary shared by the physlink client,
// the block layout and the scripted test server.
//
//nolint:revive // types is a common Go package naming convention
package types

import "fmt"

// CommandType is the tag of a client command written into the client slot.
// The set is closed: the server rejects anything outside it.
type CommandType int32

// Command tags. Values are part of the block layout and must not be reordered.
const (
	CommandLoadURDF CommandType = iota + 1
	CommandLoadSDF
	CommandLoadMJCF
	CommandLoadBullet
	CommandSaveBullet
	CommandSaveWorld
	CommandSendBulletDataStream
	CommandCreateRigidBody
	CommandInitPose
	CommandSendDesiredState
	CommandRequestActualState
	CommandStepForwardSimulation
	CommandResetSimulation
	CommandRequestBodyInfo
	CommandRequestDebugLines
	CommandRequestCameraImage
	CommandRequestContactPoints
	CommandRequestAABBOverlap
	CommandRequestVisualShapeInfo
	CommandUpdateVisualShape
	CommandLoadTexture
	CommandCalculateInverseDynamics
	CommandCalculateInverseKinematics
	CommandUserDebugDraw
	CommandUserConstraint
)

var commandNames = map[CommandType]string{
	CommandLoadURDF:                   "load_urdf",
	CommandLoadSDF:                    "load_sdf",
	CommandLoadMJCF:                   "load_mjcf",
	CommandLoadBullet:                 "load_bullet",
	CommandSaveBullet:                 "save_bullet",
	CommandSaveWorld:                  "save_world",
	CommandSendBulletDataStream:       "send_bullet_data_stream",
	CommandCreateRigidBody:            "create_rigid_body",
	CommandInitPose:                   "init_pose",
	CommandSendDesiredState:           "send_desired_state",
	CommandRequestActualState:         "request_actual_state",
	CommandStepForwardSimulation:      "step_forward_simulation",
	CommandResetSimulation:            "reset_simulation",
	CommandRequestBodyInfo:            "request_body_info",
	CommandRequestDebugLines:          "request_debug_lines",
	CommandRequestCameraImage:         "request_camera_image",
	CommandRequestContactPoints:       "request_contact_points",
	CommandRequestAABBOverlap:         "request_aabb_overlap",
	CommandRequestVisualShapeInfo:     "request_visual_shape_info",
	CommandUpdateVisualShape:          "update_visual_shape",
	CommandLoadTexture:                "load_texture",
	CommandCalculateInverseDynamics:   "calculate_inverse_dynamics",
	CommandCalculateInverseKinematics: "calculate_inverse_kinematics",
	CommandUserDebugDraw:              "user_debug_draw",
	CommandUserConstraint:             "user_constraint",
}

func (c CommandType) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("command(%d)", int32(c))
}

// Valid reports whether c is a member of the closed command set.
func (c CommandType) Valid() bool {
	_, ok := commandNames[c]
	return ok
}

// Command is the tagged union written into the single client slot.
// Args is nil for commands that carry no payload.
type Command struct {
	Type     CommandType
	Sequence uint32
	Args     CommandArgs
}

// CommandArgs is implemented by every command payload.
type CommandArgs interface {
	commandArgs()
}

// MaxFileNameLength bounds file names carried in load/save commands.
const MaxFileNameLength = 256

// FileArgs names a file for the load/save family (SDF, MJCF, .bullet, world).
type FileArgs struct {
	FileName [MaxFileNameLength]byte
}

// URDFArgs is the payload of CommandLoadURDF.
type URDFArgs struct {
	FileName     [MaxFileNameLength]byte
	Flags        int32
	UseFixedBase int32
	Position     [3]float64
	Orientation  [4]float64
}

// BodyArgs addresses a single body (body info, actual state).
type BodyArgs struct {
	BodyUniqueID int32
}

// DebugLinesArgs requests a chunk of debug lines.
type DebugLinesArgs struct {
	DebugMode         int32
	StartingLineIndex int32
}

// CameraImageArgs requests a chunk of a rendered camera image.
type CameraImageArgs struct {
	StartPixelIndex  int32
	PixelWidth       int32
	PixelHeight      int32
	ViewMatrix       [16]float32
	ProjectionMatrix [16]float32
}

// ContactPointArgs requests a chunk of contact points, optionally filtered
// by body. A filter of -1 matches every body.
type ContactPointArgs struct {
	StartingContactPointIndex int32
	ObjectAIndexFilter        int32
	ObjectBIndexFilter        int32
}

// AABBOverlapArgs requests a chunk of objects overlapping an axis aligned box.
type AABBOverlapArgs struct {
	StartingOverlappingObjectIndex int32
	AABBMin                        [3]float64
	AABBMax                        [3]float64
}

// VisualShapeArgs requests a chunk of visual shapes of one body.
type VisualShapeArgs struct {
	BodyUniqueID             int32
	StartingVisualShapeIndex int32
}

// DataStreamArgs announces a payload previously uploaded into the
// client to server buffer.
type DataStreamArgs struct {
	NumBytes int32
}

// RawArgs carries an opaque payload for commands whose arguments are
// composed by the caller. It is copied into the slot verbatim.
type RawArgs []byte

func (FileArgs) commandArgs()         {}
func (URDFArgs) commandArgs()         {}
func (BodyArgs) commandArgs()         {}
func (DebugLinesArgs) commandArgs()   {}
func (CameraImageArgs) commandArgs()  {}
func (ContactPointArgs) commandArgs() {}
func (AABBOverlapArgs) commandArgs()  {}
func (VisualShapeArgs) commandArgs()  {}
func (DataStreamArgs) commandArgs()   {}
func (RawArgs) commandArgs()          {}

// PutFileName copies name into a fixed file name field, truncating to fit
// and always leaving a terminating zero byte.
func PutFileName(dst *[MaxFileNameLength]byte, name string) {
	*dst = [MaxFileNameLength]byte{}
	copy(dst[:MaxFileNameLength-1], name)
}

// FileNameString returns the zero-terminated contents of a fixed name field.
func FileNameString(src []byte) string {
	for i, b := range src {
		if b == 0 {
			return string(src[:i])
		}
	}
	return string(src)
}
