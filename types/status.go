package types

import (
	"fmt"
	"strings"
)

// StatusType is the outcome tag of a server status written into the server slot.
type StatusType int32

// Status tags. Values are part of the block layout and must not be reordered.
// StatusSharedMemoryNotInitialized is synthesized by the client and never
// written by a server.
const (
	StatusSharedMemoryNotInitialized StatusType = iota
	StatusClientCommandCompleted
	StatusURDFLoadingCompleted
	StatusURDFLoadingFailed
	StatusSDFLoadingCompleted
	StatusSDFLoadingFailed
	StatusMJCFLoadingCompleted
	StatusMJCFLoadingFailed
	StatusBulletLoadingCompleted
	StatusBulletLoadingFailed
	StatusBulletSavingCompleted
	StatusBulletSavingFailed
	StatusSaveWorldCompleted
	StatusSaveWorldFailed
	StatusBulletDataStreamReceivedCompleted
	StatusBulletDataStreamReceivedFailed
	StatusRigidBodyCreationCompleted
	StatusDesiredStateReceivedCompleted
	StatusActualStateUpdateCompleted
	StatusActualStateUpdateFailed
	StatusStepForwardSimulationCompleted
	StatusResetSimulationCompleted
	StatusBodyInfoCompleted
	StatusBodyInfoFailed
	StatusDebugLinesCompleted
	StatusDebugLinesOverflowFailed
	StatusCameraImageCompleted
	StatusCameraImageFailed
	StatusContactPointInformationCompleted
	StatusContactPointInformationFailed
	StatusAABBOverlapCompleted
	StatusAABBOverlapFailed
	StatusVisualShapeInfoCompleted
	StatusVisualShapeInfoFailed
	StatusVisualShapeUpdateCompleted
	StatusVisualShapeUpdateFailed
	StatusLoadTextureCompleted
	StatusLoadTextureFailed
	StatusInverseDynamicsCompleted
	StatusInverseDynamicsFailed
	StatusInverseKinematicsCompleted
	StatusInverseKinematicsFailed
	StatusUserDebugDrawCompleted
	StatusUserDebugDrawFailed
	StatusUserConstraintCompleted
	StatusUserConstraintFailed

	statusTypeCount
)

var statusNames = [statusTypeCount]string{
	StatusSharedMemoryNotInitialized:        "shared_memory_not_initialized",
	StatusClientCommandCompleted:            "client_command_completed",
	StatusURDFLoadingCompleted:              "urdf_loading_completed",
	StatusURDFLoadingFailed:                 "urdf_loading_failed",
	StatusSDFLoadingCompleted:               "sdf_loading_completed",
	StatusSDFLoadingFailed:                  "sdf_loading_failed",
	StatusMJCFLoadingCompleted:              "mjcf_loading_completed",
	StatusMJCFLoadingFailed:                 "mjcf_loading_failed",
	StatusBulletLoadingCompleted:            "bullet_loading_completed",
	StatusBulletLoadingFailed:               "bullet_loading_failed",
	StatusBulletSavingCompleted:             "bullet_saving_completed",
	StatusBulletSavingFailed:                "bullet_saving_failed",
	StatusSaveWorldCompleted:                "save_world_completed",
	StatusSaveWorldFailed:                   "save_world_failed",
	StatusBulletDataStreamReceivedCompleted: "bullet_data_stream_received_completed",
	StatusBulletDataStreamReceivedFailed:    "bullet_data_stream_received_failed",
	StatusRigidBodyCreationCompleted:        "rigid_body_creation_completed",
	StatusDesiredStateReceivedCompleted:     "desired_state_received_completed",
	StatusActualStateUpdateCompleted:        "actual_state_update_completed",
	StatusActualStateUpdateFailed:           "actual_state_update_failed",
	StatusStepForwardSimulationCompleted:    "step_forward_simulation_completed",
	StatusResetSimulationCompleted:          "reset_simulation_completed",
	StatusBodyInfoCompleted:                 "body_info_completed",
	StatusBodyInfoFailed:                    "body_info_failed",
	StatusDebugLinesCompleted:               "debug_lines_completed",
	StatusDebugLinesOverflowFailed:          "debug_lines_overflow_failed",
	StatusCameraImageCompleted:              "camera_image_completed",
	StatusCameraImageFailed:                 "camera_image_failed",
	StatusContactPointInformationCompleted:  "contact_point_information_completed",
	StatusContactPointInformationFailed:     "contact_point_information_failed",
	StatusAABBOverlapCompleted:              "aabb_overlap_completed",
	StatusAABBOverlapFailed:                 "aabb_overlap_failed",
	StatusVisualShapeInfoCompleted:          "visual_shape_info_completed",
	StatusVisualShapeInfoFailed:             "visual_shape_info_failed",
	StatusVisualShapeUpdateCompleted:        "visual_shape_update_completed",
	StatusVisualShapeUpdateFailed:           "visual_shape_update_failed",
	StatusLoadTextureCompleted:              "load_texture_completed",
	StatusLoadTextureFailed:                 "load_texture_failed",
	StatusInverseDynamicsCompleted:          "inverse_dynamics_completed",
	StatusInverseDynamicsFailed:             "inverse_dynamics_failed",
	StatusInverseKinematicsCompleted:        "inverse_kinematics_completed",
	StatusInverseKinematicsFailed:           "inverse_kinematics_failed",
	StatusUserDebugDrawCompleted:            "user_debug_draw_completed",
	StatusUserDebugDrawFailed:               "user_debug_draw_failed",
	StatusUserConstraintCompleted:           "user_constraint_completed",
	StatusUserConstraintFailed:              "user_constraint_failed",
}

func (s StatusType) String() string {
	if s >= 0 && s < statusTypeCount {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", int32(s))
}

// Valid reports whether s is a member of the closed status set.
func (s StatusType) Valid() bool {
	return s >= 0 && s < statusTypeCount
}

// Failed reports whether s is the failure half of an operation family.
func (s StatusType) Failed() bool {
	return s.Valid() && strings.HasSuffix(statusNames[s], "_failed")
}

// StatusTypes returns every tag a server may write, in declaration order.
// The synthetic not-initialized tag is excluded.
func StatusTypes() []StatusType {
	out := make([]StatusType, 0, statusTypeCount-1)
	for s := StatusClientCommandCompleted; s < statusTypeCount; s++ {
		out = append(out, s)
	}
	return out
}

// Status is the tagged union read from the single server slot.
type Status struct {
	Type     StatusType
	Sequence uint32
	// NumDataStreamBytes is the size of the payload the server placed in
	// the server to client buffer alongside this status.
	NumDataStreamBytes int32
	Args               StatusArgs
}

// StatusArgs is implemented by every status payload.
type StatusArgs interface {
	statusArgs()
}

// ChunkArgs is implemented by the payloads of the chunked transfer families.
type ChunkArgs interface {
	StatusArgs
	// Chunk returns the absolute starting index, the number of items in
	// this chunk and the number still held by the server.
	Chunk() (start, copied, remaining int)
}

// MaxSDFBodies bounds the body ids a scene load can report in one status.
const MaxSDFBodies = 128

// MaxDegreesOfFreedom bounds the state vectors of an actual state status.
const MaxDegreesOfFreedom = 64

// BodyStreamArgs accompanies a scene blob describing one body.
type BodyStreamArgs struct {
	BodyUniqueID int32
}

// SceneLoadedArgs lists the bodies created by a multi-body scene load.
type SceneLoadedArgs struct {
	NumBodies     int32
	BodyUniqueIDs [MaxSDFBodies]int32
}

// ActualStateArgs carries the generalized coordinates of one body.
type ActualStateArgs struct {
	BodyUniqueID        int32
	NumDegreeOfFreedomQ int32
	NumDegreeOfFreedomU int32
	ActualStateQ        [MaxDegreesOfFreedom]float64
	ActualStateQdot     [MaxDegreesOfFreedom]float64
}

// DebugLinesChunkArgs describes one chunk of debug lines.
type DebugLinesChunkArgs struct {
	StartingLineIndex      int32
	NumDebugLines          int32
	NumRemainingDebugLines int32
}

// PixelChunkArgs describes one chunk of a camera image.
type PixelChunkArgs struct {
	ImageWidth         int32
	ImageHeight        int32
	StartingPixelIndex int32
	NumPixelsCopied    int32
	NumRemainingPixels int32
}

// ContactPointChunkArgs describes one chunk of contact points.
type ContactPointChunkArgs struct {
	StartingContactPointIndex int32
	NumContactPointsCopied    int32
	NumRemainingContactPoints int32
}

// OverlapChunkArgs describes one chunk of overlapping objects.
type OverlapChunkArgs struct {
	StartingOverlappingObjectIndex int32
	NumOverlappingObjectsCopied    int32
	NumRemainingOverlappingObjects int32
}

// VisualShapeChunkArgs describes one chunk of visual shapes of a body.
type VisualShapeChunkArgs struct {
	BodyUniqueID             int32
	StartingVisualShapeIndex int32
	NumVisualShapesCopied    int32
	NumRemainingVisualShapes int32
}

func (BodyStreamArgs) statusArgs()        {}
func (SceneLoadedArgs) statusArgs()       {}
func (ActualStateArgs) statusArgs()       {}
func (DebugLinesChunkArgs) statusArgs()   {}
func (PixelChunkArgs) statusArgs()        {}
func (ContactPointChunkArgs) statusArgs() {}
func (OverlapChunkArgs) statusArgs()      {}
func (VisualShapeChunkArgs) statusArgs()  {}

func (a DebugLinesChunkArgs) Chunk() (int, int, int) {
	return int(a.StartingLineIndex), int(a.NumDebugLines), int(a.NumRemainingDebugLines)
}

func (a PixelChunkArgs) Chunk() (int, int, int) {
	return int(a.StartingPixelIndex), int(a.NumPixelsCopied), int(a.NumRemainingPixels)
}

func (a ContactPointChunkArgs) Chunk() (int, int, int) {
	return int(a.StartingContactPointIndex), int(a.NumContactPointsCopied), int(a.NumRemainingContactPoints)
}

func (a OverlapChunkArgs) Chunk() (int, int, int) {
	return int(a.StartingOverlappingObjectIndex), int(a.NumOverlappingObjectsCopied), int(a.NumRemainingOverlappingObjects)
}

func (a VisualShapeChunkArgs) Chunk() (int, int, int) {
	return int(a.StartingVisualShapeIndex), int(a.NumVisualShapesCopied), int(a.NumRemainingVisualShapes)
}

// Bodies returns the reported body ids, bounded by NumBodies and the array size.
func (a SceneLoadedArgs) Bodies() []int32 {
	n := int(a.NumBodies)
	if n < 0 {
		n = 0
	}
	if n > MaxSDFBodies {
		n = MaxSDFBodies
	}
	out := make([]int32, n)
	copy(out, a.BodyUniqueIDs[:n])
	return out
}
