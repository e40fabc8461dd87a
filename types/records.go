package types

// Float3 is a single precision 3-vector as carried in the debug line stream.
type Float3 [3]float32

// JointType classifies a joint of a multi-body.
type JointType int32

// Joint types as encoded in scene blobs.
const (
	JointRevolute JointType = iota
	JointPrismatic
	JointSpherical
	JointPlanar
	JointFixed
)

func (j JointType) String() string {
	switch j {
	case JointRevolute:
		return "revolute"
	case JointPrismatic:
		return "prismatic"
	case JointSpherical:
		return "spherical"
	case JointPlanar:
		return "planar"
	case JointFixed:
		return "fixed"
	default:
		return "unknown"
	}
}

// JointHasMotorizedPower is set in JointInfo.Flags for joints a velocity or
// position motor can drive.
const JointHasMotorizedPower = 1

// JointInfo describes one joint of a body, normalized from either precision
// of the scene blob.
type JointInfo struct {
	LinkName   string    `json:"link_name"`
	JointName  string    `json:"joint_name"`
	JointType  JointType `json:"joint_type"`
	QIndex     int       `json:"q_index"`
	UIndex     int       `json:"u_index"`
	JointIndex int       `json:"joint_index"`
	Flags      int       `json:"flags"`
	Damping    float64   `json:"damping"`
	Friction   float64   `json:"friction"`
}

// BodyInfo is the directory view of one body.
type BodyInfo struct {
	BodyUniqueID int    `json:"body_unique_id"`
	BaseName     string `json:"base_name"`
	NumJoints    int    `json:"num_joints"`
}

// ContactPoint is one contact between two bodies, in world space.
type ContactPoint struct {
	ContactFlags     int32      `json:"contact_flags"`
	BodyUniqueIDA    int32      `json:"body_unique_id_a"`
	BodyUniqueIDB    int32      `json:"body_unique_id_b"`
	LinkIndexA       int32      `json:"link_index_a"`
	LinkIndexB       int32      `json:"link_index_b"`
	PositionOnA      [3]float64 `json:"position_on_a"`
	PositionOnB      [3]float64 `json:"position_on_b"`
	ContactNormalOnB [3]float64 `json:"contact_normal_on_b"`
	ContactDistance  float64    `json:"contact_distance"`
	NormalForce      float64    `json:"normal_force"`
}

// OverlappingObject identifies one link inside a queried bounding box.
type OverlappingObject struct {
	ObjectUniqueID int32 `json:"object_unique_id"`
	LinkIndex      int32 `json:"link_index"`
}

// VisualShapeMaxPathLength bounds the mesh file name of a visual shape.
const VisualShapeMaxPathLength = 128

// VisualShape describes the visual geometry attached to one link.
type VisualShape struct {
	ObjectUniqueID     int32      `json:"object_unique_id"`
	LinkIndex          int32      `json:"link_index"`
	VisualGeometryType int32      `json:"visual_geometry_type"`
	Dimensions         [3]float64 `json:"dimensions"`
	MeshAssetFileName  string     `json:"mesh_asset_file_name"`
	LocalInertiaFrame  [7]float64 `json:"local_inertia_frame"`
	RGBAColor          [4]float64 `json:"rgba_color"`
}

// CameraImage is a snapshot of the reassembled camera image.
// RGBA holds four bytes per pixel; Depth and Segmentation one value per pixel.
type CameraImage struct {
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	RGBA         []byte    `json:"-"`
	Depth        []float32 `json:"-"`
	Segmentation []int32   `json:"-"`
}

// Complete reports whether every pixel of the declared size is present.
func (c CameraImage) Complete() bool {
	return c.Width > 0 && c.Height > 0 && len(c.RGBA) == 4*c.Width*c.Height
}

// DebugLines holds parallel arrays of equal length.
type DebugLines struct {
	From  []Float3 `json:"from"`
	To    []Float3 `json:"to"`
	Color []Float3 `json:"color"`
}

// Len returns the number of lines.
func (d DebugLines) Len() int { return len(d.From) }

// ActualState is the last reported generalized state of one body.
type ActualState struct {
	BodyUniqueID int       `json:"body_unique_id"`
	Q            []float64 `json:"q"`
	QDot         []float64 `json:"qdot"`
}
