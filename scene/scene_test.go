package scene

import (
	"errors"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/physlink/types"
)

func twoLinkArm() MultiBodyDoubleData {
	return MultiBodyDoubleData{
		BaseName: "arm_base",
		Links: []LinkDoubleData{
			{JointType: types.JointRevolute, LinkName: "upper", JointName: "shoulder", PosVarCount: 1, DofCount: 1, JointDamping: 0.5, JointFriction: 0.25},
			{JointType: types.JointFixed, LinkName: "mount", JointName: "weld"},
			{JointType: types.JointSpherical, LinkName: "hand", JointName: "wrist", PosVarCount: 4, DofCount: 3},
			{JointType: types.JointPrismatic, LinkName: "finger", JointName: "slide", PosVarCount: 1, DofCount: 1},
		},
	}
}

func TestMsgpackDecoder_BothPrecisions(t *testing.T) {
	for _, double := range []bool{false, true} {
		blob, err := Encode(double, twoLinkArm())
		if err != nil {
			t.Fatalf("Encode(%v) error = %v", double, err)
		}

		bodies, err := MsgpackDecoder{}.Decode(blob)
		if err != nil {
			t.Fatalf("Decode(double=%v) error = %v", double, err)
		}
		if len(bodies) != 1 {
			t.Fatalf("len(bodies) = %d, want 1", len(bodies))
		}
		if bodies[0].BaseName != "arm_base" {
			t.Errorf("BaseName = %q, want %q", bodies[0].BaseName, "arm_base")
		}

		want := []types.JointInfo{
			{LinkName: "upper", JointName: "shoulder", JointType: types.JointRevolute, QIndex: 7, UIndex: 6, JointIndex: 0, Flags: types.JointHasMotorizedPower, Damping: 0.5, Friction: 0.25},
			{LinkName: "mount", JointName: "weld", JointType: types.JointFixed, QIndex: -1, UIndex: -1, JointIndex: 1},
			{LinkName: "hand", JointName: "wrist", JointType: types.JointSpherical, QIndex: 8, UIndex: 7, JointIndex: 2},
			{LinkName: "finger", JointName: "slide", JointType: types.JointPrismatic, QIndex: 12, UIndex: 10, JointIndex: 3, Flags: types.JointHasMotorizedPower},
		}
		got := bodies[0].Joints
		if len(got) != len(want) {
			t.Fatalf("len(Joints) = %d, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("double=%v Joints[%d] = %+v, want %+v", double, i, got[i], want[i])
			}
		}
	}
}

func TestMsgpackDecoder_Errors(t *testing.T) {
	notAMap, _ := msgpack.Marshal([]int{1, 2})
	badRecords, _ := msgpack.Marshal(map[string]any{"flags": 0, "multi_bodies": "nope"})

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte{0xc1, 0xc1}},
		{"not a map", notAMap},
		{"bad records", badRecords},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MsgpackDecoder{}.Decode(tt.data)
			if !errors.Is(err, ErrDecode) {
				t.Errorf("Decode() error = %v, want ErrDecode", err)
			}
		})
	}
}

func TestIngest_FoldsRecords(t *testing.T) {
	second := MultiBodyDoubleData{
		BaseName: "gripper",
		Links:    []LinkDoubleData{{JointType: types.JointRevolute, LinkName: "jaw", JointName: "hinge", PosVarCount: 1, DofCount: 1}},
	}
	blob, err := Encode(true, twoLinkArm(), second)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	body, err := Ingest(nil, blob)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if body.BaseName != "gripper" {
		t.Errorf("BaseName = %q, want %q", body.BaseName, "gripper")
	}
	if len(body.Joints) != 5 {
		t.Fatalf("len(Joints) = %d, want 5", len(body.Joints))
	}
	if got := body.Joints[4].JointIndex; got != 4 {
		t.Errorf("Joints[4].JointIndex = %d, want 4", got)
	}
}

type failingDecoder struct{}

func (failingDecoder) Decode([]byte) ([]MultiBody, error) {
	return nil, ErrDecode
}

func TestIngest_DecodeFailure(t *testing.T) {
	body, err := Ingest(failingDecoder{}, []byte{1})
	if !errors.Is(err, ErrDecode) {
		t.Errorf("Ingest() error = %v, want ErrDecode", err)
	}
	if body != nil {
		t.Errorf("Ingest() body = %+v, want nil", body)
	}
}
