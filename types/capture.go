package types

// RecordKind discriminates the result snapshots persisted by a capture.
type RecordKind string

const (
	RecordKindBodies        RecordKind = "bodies"
	RecordKindActualState   RecordKind = "actual_state"
	RecordKindContactPoints RecordKind = "contact_points"
	RecordKindOverlaps      RecordKind = "overlapping_objects"
	RecordKindVisualShapes  RecordKind = "visual_shapes"
	RecordKindDebugLines    RecordKind = "debug_lines"
	RecordKindCameraImage   RecordKind = "camera_image"
)

// RecordKinds returns every kind in persistence order.
func RecordKinds() []RecordKind {
	return []RecordKind{
		RecordKindBodies,
		RecordKindActualState,
		RecordKindContactPoints,
		RecordKindOverlaps,
		RecordKindVisualShapes,
		RecordKindDebugLines,
		RecordKindCameraImage,
	}
}

// CaptureRecord is one retrieved result snapshot.
type CaptureRecord struct {
	Kind      RecordKind `json:"record_kind"`
	CaptureID string     `json:"capture_id"`
	SessionID string     `json:"session_id"`
	// Seq orders records within a capture, starting at 1.
	Seq int64 `json:"seq"`
	// Ts is RFC 3339 in UTC.
	Ts string `json:"ts"`
	// Count is the number of items in Payload.
	Count   int `json:"count"`
	Payload any `json:"payload"`
}

// BodyRecord is the payload item of a RecordKindBodies record.
type BodyRecord struct {
	BodyUniqueID int         `json:"body_unique_id"`
	BaseName     string      `json:"base_name"`
	Joints       []JointInfo `json:"joints"`
}
