package ipc

import (
	"encoding/binary"
	"fmt"

	"github.com/pithecene-io/physlink/types"
)

// Per-item sizes of the records carried in the stream buffers.
const (
	// DebugLineSize covers one from, one to and one color triple.
	DebugLineSize = 3 * 3 * 4
	// PixelSize covers four RGBA bytes, one depth float and one segmentation id.
	PixelSize = 4 + 4 + 4
	// ContactPointSize is the packed size of types.ContactPoint.
	ContactPointSize = 5*4 + 11*8
	// OverlappingObjectSize is the packed size of types.OverlappingObject.
	OverlappingObjectSize = 2 * 4
	// VisualShapeSize is the packed size of visualShapeRecord.
	VisualShapeSize = 3*4 + 3*8 + types.VisualShapeMaxPathLength + 7*8 + 4*8
)

// visualShapeRecord is the stream form of types.VisualShape.
type visualShapeRecord struct {
	ObjectUniqueID     int32
	LinkIndex          int32
	VisualGeometryType int32
	Dimensions         [3]float64
	MeshAssetFileName  [types.VisualShapeMaxPathLength]byte
	LocalInertiaFrame  [7]float64
	RGBAColor          [4]float64
}

// checkCount validates that n records of size bytes fit in buf.
func checkCount(buf []byte, n, size int, what string) error {
	if n < 0 {
		return &LayoutError{
			Kind: LayoutErrorNegative,
			Msg:  fmt.Sprintf("%s: negative item count %d", what, n),
		}
	}
	if n > len(buf)/size {
		return &LayoutError{
			Kind: LayoutErrorOverflow,
			Msg:  fmt.Sprintf("%s: %d items of %d bytes exceed stream capacity %d", what, n, size, len(buf)),
		}
	}
	return nil
}

func decodeInto(buf []byte, v any, what string) error {
	if _, err := binary.Decode(buf, order, v); err != nil {
		return &LayoutError{Kind: LayoutErrorCodec, Msg: what + ": decode failed", Err: err}
	}
	return nil
}

func encodeFrom(buf []byte, v any, what string) error {
	if _, err := binary.Encode(buf, order, v); err != nil {
		return &LayoutError{Kind: LayoutErrorCodec, Msg: what + ": encode failed", Err: err}
	}
	return nil
}

// DebugLines reads n lines laid out as n from triples, then n to triples,
// then n color triples.
func DebugLines(buf []byte, n int) (from, to, color []types.Float3, err error) {
	if err := checkCount(buf, n, DebugLineSize, "debug lines"); err != nil {
		return nil, nil, nil, err
	}
	stride := n * 12
	from = make([]types.Float3, n)
	to = make([]types.Float3, n)
	color = make([]types.Float3, n)
	if n == 0 {
		return from, to, color, nil
	}
	if err := decodeInto(buf[:stride], from, "debug lines"); err != nil {
		return nil, nil, nil, err
	}
	if err := decodeInto(buf[stride:2*stride], to, "debug lines"); err != nil {
		return nil, nil, nil, err
	}
	if err := decodeInto(buf[2*stride:3*stride], color, "debug lines"); err != nil {
		return nil, nil, nil, err
	}
	return from, to, color, nil
}

// PutDebugLines writes parallel line arrays in the DebugLines layout.
func PutDebugLines(buf []byte, from, to, color []types.Float3) error {
	n := len(from)
	if len(to) != n || len(color) != n {
		return &LayoutError{Kind: LayoutErrorMismatch, Msg: "debug lines: arrays differ in length"}
	}
	if err := checkCount(buf, n, DebugLineSize, "debug lines"); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	stride := n * 12
	if err := encodeFrom(buf[:stride], from, "debug lines"); err != nil {
		return err
	}
	if err := encodeFrom(buf[stride:2*stride], to, "debug lines"); err != nil {
		return err
	}
	return encodeFrom(buf[2*stride:3*stride], color, "debug lines")
}

// Pixels reads n pixels laid out as 4n RGBA bytes at offset 0, n depth
// floats at offset 4n and n segmentation ids at offset 8n.
func Pixels(buf []byte, n int) (rgba []byte, depth []float32, seg []int32, err error) {
	if err := checkCount(buf, n, PixelSize, "pixels"); err != nil {
		return nil, nil, nil, err
	}
	rgba = make([]byte, 4*n)
	copy(rgba, buf[:4*n])
	depth = make([]float32, n)
	seg = make([]int32, n)
	if n == 0 {
		return rgba, depth, seg, nil
	}
	if err := decodeInto(buf[4*n:8*n], depth, "pixels"); err != nil {
		return nil, nil, nil, err
	}
	if err := decodeInto(buf[8*n:12*n], seg, "pixels"); err != nil {
		return nil, nil, nil, err
	}
	return rgba, depth, seg, nil
}

// PutPixels writes one pixel chunk in the Pixels layout.
func PutPixels(buf []byte, rgba []byte, depth []float32, seg []int32) error {
	n := len(depth)
	if len(rgba) != 4*n || len(seg) != n {
		return &LayoutError{Kind: LayoutErrorMismatch, Msg: "pixels: arrays differ in length"}
	}
	if err := checkCount(buf, n, PixelSize, "pixels"); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	copy(buf[:4*n], rgba)
	if err := encodeFrom(buf[4*n:8*n], depth, "pixels"); err != nil {
		return err
	}
	return encodeFrom(buf[8*n:12*n], seg, "pixels")
}

// ContactPoints reads n packed contact point records.
func ContactPoints(buf []byte, n int) ([]types.ContactPoint, error) {
	if err := checkCount(buf, n, ContactPointSize, "contact points"); err != nil {
		return nil, err
	}
	out := make([]types.ContactPoint, n)
	if n == 0 {
		return out, nil
	}
	if err := decodeInto(buf[:n*ContactPointSize], out, "contact points"); err != nil {
		return nil, err
	}
	return out, nil
}

// PutContactPoints writes packed contact point records.
func PutContactPoints(buf []byte, points []types.ContactPoint) error {
	if err := checkCount(buf, len(points), ContactPointSize, "contact points"); err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}
	return encodeFrom(buf[:len(points)*ContactPointSize], points, "contact points")
}

// OverlappingObjects reads n packed overlapping object records.
func OverlappingObjects(buf []byte, n int) ([]types.OverlappingObject, error) {
	if err := checkCount(buf, n, OverlappingObjectSize, "overlapping objects"); err != nil {
		return nil, err
	}
	out := make([]types.OverlappingObject, n)
	if n == 0 {
		return out, nil
	}
	if err := decodeInto(buf[:n*OverlappingObjectSize], out, "overlapping objects"); err != nil {
		return nil, err
	}
	return out, nil
}

// PutOverlappingObjects writes packed overlapping object records.
func PutOverlappingObjects(buf []byte, objects []types.OverlappingObject) error {
	if err := checkCount(buf, len(objects), OverlappingObjectSize, "overlapping objects"); err != nil {
		return err
	}
	if len(objects) == 0 {
		return nil
	}
	return encodeFrom(buf[:len(objects)*OverlappingObjectSize], objects, "overlapping objects")
}

// VisualShapes reads n packed visual shape records.
func VisualShapes(buf []byte, n int) ([]types.VisualShape, error) {
	if err := checkCount(buf, n, VisualShapeSize, "visual shapes"); err != nil {
		return nil, err
	}
	out := make([]types.VisualShape, n)
	if n == 0 {
		return out, nil
	}
	records := make([]visualShapeRecord, n)
	if err := decodeInto(buf[:n*VisualShapeSize], records, "visual shapes"); err != nil {
		return nil, err
	}
	for i, r := range records {
		out[i] = types.VisualShape{
			ObjectUniqueID:     r.ObjectUniqueID,
			LinkIndex:          r.LinkIndex,
			VisualGeometryType: r.VisualGeometryType,
			Dimensions:         r.Dimensions,
			MeshAssetFileName:  types.FileNameString(r.MeshAssetFileName[:]),
			LocalInertiaFrame:  r.LocalInertiaFrame,
			RGBAColor:          r.RGBAColor,
		}
	}
	return out, nil
}

// PutVisualShapes writes packed visual shape records. Mesh file names are
// truncated to fit their fixed field.
func PutVisualShapes(buf []byte, shapes []types.VisualShape) error {
	if err := checkCount(buf, len(shapes), VisualShapeSize, "visual shapes"); err != nil {
		return err
	}
	if len(shapes) == 0 {
		return nil
	}
	records := make([]visualShapeRecord, len(shapes))
	for i, s := range shapes {
		records[i] = visualShapeRecord{
			ObjectUniqueID:     s.ObjectUniqueID,
			LinkIndex:          s.LinkIndex,
			VisualGeometryType: s.VisualGeometryType,
			Dimensions:         s.Dimensions,
			LocalInertiaFrame:  s.LocalInertiaFrame,
			RGBAColor:          s.RGBAColor,
		}
		copy(records[i].MeshAssetFileName[:types.VisualShapeMaxPathLength-1], s.MeshAssetFileName)
	}
	return encodeFrom(buf[:len(shapes)*VisualShapeSize], records, "visual shapes")
}
