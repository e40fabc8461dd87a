// Package scene decodes scene-description blobs sent by the server after a
// model load and normalizes them into joint records.
//
// A blob is a msgpack map carrying a flags word and a list of multi-body
// records. The flags word selects the numeric precision of every record
// in the blob:
//
//	{"flags": uint32, "multi_bodies": [record, ...]}
//
// FlagDoublePrecision set means each record is a MultiBodyDoubleData,
// otherwise a MultiBodyFloatData.
package scene

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/physlink/types"
)

// FlagDoublePrecision marks a blob whose records use float64 fields.
const FlagDoublePrecision uint32 = 1 << 0

// Offsets of the first joint coordinate past the floating base
// (position plus quaternion, and linear plus angular velocity).
const (
	baseQOffset = 7
	baseUOffset = 6
)

// ErrDecode is wrapped by every decoding failure.
var ErrDecode = errors.New("scene description not decoded")

// LinkFloatData is one link of a single precision multi-body.
type LinkFloatData struct {
	JointType     types.JointType `msgpack:"joint_type"`
	LinkName      string          `msgpack:"link_name"`
	JointName     string          `msgpack:"joint_name"`
	PosVarCount   int32           `msgpack:"pos_var_count"`
	DofCount      int32           `msgpack:"dof_count"`
	JointDamping  float32         `msgpack:"joint_damping"`
	JointFriction float32         `msgpack:"joint_friction"`
}

// MultiBodyFloatData is a single precision multi-body record.
type MultiBodyFloatData struct {
	BaseName string          `msgpack:"base_name"`
	Links    []LinkFloatData `msgpack:"links"`
}

// LinkDoubleData is one link of a double precision multi-body.
type LinkDoubleData struct {
	JointType     types.JointType `msgpack:"joint_type"`
	LinkName      string          `msgpack:"link_name"`
	JointName     string          `msgpack:"joint_name"`
	PosVarCount   int32           `msgpack:"pos_var_count"`
	DofCount      int32           `msgpack:"dof_count"`
	JointDamping  float64         `msgpack:"joint_damping"`
	JointFriction float64         `msgpack:"joint_friction"`
}

// MultiBodyDoubleData is a double precision multi-body record.
type MultiBodyDoubleData struct {
	BaseName string           `msgpack:"base_name"`
	Links    []LinkDoubleData `msgpack:"links"`
}

// MultiBody is a decoded record with its joints already normalized.
type MultiBody struct {
	BaseName string
	Joints   []types.JointInfo
}

// Decoder turns a blob into multi-body records.
type Decoder interface {
	Decode(data []byte) ([]MultiBody, error)
}

// blobProbe peeks at the precision flag without decoding the records.
type blobProbe struct {
	Flags uint32 `msgpack:"flags"`
}

type floatBlob struct {
	MultiBodies []MultiBodyFloatData `msgpack:"multi_bodies"`
}

type doubleBlob struct {
	MultiBodies []MultiBodyDoubleData `msgpack:"multi_bodies"`
}

// MsgpackDecoder decodes msgpack scene blobs.
type MsgpackDecoder struct{}

// Decode implements Decoder.
func (MsgpackDecoder) Decode(data []byte) ([]MultiBody, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty blob", ErrDecode)
	}

	var probe blobProbe
	if err := msgpack.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: flags: %v", ErrDecode, err)
	}

	if probe.Flags&FlagDoublePrecision != 0 {
		var blob doubleBlob
		if err := msgpack.Unmarshal(data, &blob); err != nil {
			return nil, fmt.Errorf("%w: double precision records: %v", ErrDecode, err)
		}
		out := make([]MultiBody, 0, len(blob.MultiBodies))
		for _, mb := range blob.MultiBodies {
			out = append(out, MultiBody{BaseName: mb.BaseName, Joints: jointsFromDouble(mb.Links)})
		}
		return out, nil
	}

	var blob floatBlob
	if err := msgpack.Unmarshal(data, &blob); err != nil {
		return nil, fmt.Errorf("%w: float precision records: %v", ErrDecode, err)
	}
	out := make([]MultiBody, 0, len(blob.MultiBodies))
	for _, mb := range blob.MultiBodies {
		out = append(out, MultiBody{BaseName: mb.BaseName, Joints: jointsFromFloat(mb.Links)})
	}
	return out, nil
}

// Verify MsgpackDecoder implements Decoder.
var _ Decoder = MsgpackDecoder{}

func jointsFromFloat(links []LinkFloatData) []types.JointInfo {
	d := make([]LinkDoubleData, len(links))
	for i, l := range links {
		d[i] = LinkDoubleData{
			JointType:     l.JointType,
			LinkName:      l.LinkName,
			JointName:     l.JointName,
			PosVarCount:   l.PosVarCount,
			DofCount:      l.DofCount,
			JointDamping:  float64(l.JointDamping),
			JointFriction: float64(l.JointFriction),
		}
	}
	return jointsFromDouble(d)
}

// jointsFromDouble assigns each link its coordinate offsets. Links without
// degrees of freedom get -1 indices.
func jointsFromDouble(links []LinkDoubleData) []types.JointInfo {
	joints := make([]types.JointInfo, 0, len(links))
	qOffset, uOffset := baseQOffset, baseUOffset
	for i, l := range links {
		info := types.JointInfo{
			LinkName:   l.LinkName,
			JointName:  l.JointName,
			JointType:  l.JointType,
			QIndex:     -1,
			UIndex:     -1,
			JointIndex: i,
			Damping:    l.JointDamping,
			Friction:   l.JointFriction,
		}
		if l.PosVarCount > 0 && l.DofCount > 0 {
			info.QIndex = qOffset
			info.UIndex = uOffset
		}
		if l.PosVarCount == 1 && l.DofCount == 1 {
			info.Flags |= types.JointHasMotorizedPower
		}
		qOffset += int(l.PosVarCount)
		uOffset += int(l.DofCount)
		joints = append(joints, info)
	}
	return joints
}

// Encode builds a blob from double precision records, narrowing to single
// precision unless double is set. Servers and tests use it.
func Encode(double bool, bodies ...MultiBodyDoubleData) ([]byte, error) {
	if double {
		return msgpack.Marshal(&struct {
			Flags       uint32                `msgpack:"flags"`
			MultiBodies []MultiBodyDoubleData `msgpack:"multi_bodies"`
		}{FlagDoublePrecision, bodies})
	}
	narrow := make([]MultiBodyFloatData, len(bodies))
	for i, mb := range bodies {
		links := make([]LinkFloatData, len(mb.Links))
		for j, l := range mb.Links {
			links[j] = LinkFloatData{
				JointType:     l.JointType,
				LinkName:      l.LinkName,
				JointName:     l.JointName,
				PosVarCount:   l.PosVarCount,
				DofCount:      l.DofCount,
				JointDamping:  float32(l.JointDamping),
				JointFriction: float32(l.JointFriction),
			}
		}
		narrow[i] = MultiBodyFloatData{BaseName: mb.BaseName, Links: links}
	}
	return msgpack.Marshal(&struct {
		Flags       uint32               `msgpack:"flags"`
		MultiBodies []MultiBodyFloatData `msgpack:"multi_bodies"`
	}{0, narrow})
}
