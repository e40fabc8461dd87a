package ipc

import (
	"encoding/binary"
	"fmt"
	"reflect"

	"github.com/pithecene-io/physlink/types"
)

// order is the byte order of every multi-byte field in the block. Both
// peers run on the same host, so native order matches raw struct layout.
var order = binary.NativeEndian

// commandArgTypes maps each command tag to its fixed-size payload type.
// Tags absent from the map carry either nothing or types.RawArgs.
var commandArgTypes = map[types.CommandType]reflect.Type{
	types.CommandLoadURDF:               reflect.TypeFor[types.URDFArgs](),
	types.CommandLoadSDF:                reflect.TypeFor[types.FileArgs](),
	types.CommandLoadMJCF:               reflect.TypeFor[types.FileArgs](),
	types.CommandLoadBullet:             reflect.TypeFor[types.FileArgs](),
	types.CommandSaveBullet:             reflect.TypeFor[types.FileArgs](),
	types.CommandSaveWorld:              reflect.TypeFor[types.FileArgs](),
	types.CommandLoadTexture:            reflect.TypeFor[types.FileArgs](),
	types.CommandSendBulletDataStream:   reflect.TypeFor[types.DataStreamArgs](),
	types.CommandRequestActualState:     reflect.TypeFor[types.BodyArgs](),
	types.CommandRequestBodyInfo:        reflect.TypeFor[types.BodyArgs](),
	types.CommandRequestDebugLines:      reflect.TypeFor[types.DebugLinesArgs](),
	types.CommandRequestCameraImage:     reflect.TypeFor[types.CameraImageArgs](),
	types.CommandRequestContactPoints:   reflect.TypeFor[types.ContactPointArgs](),
	types.CommandRequestAABBOverlap:     reflect.TypeFor[types.AABBOverlapArgs](),
	types.CommandRequestVisualShapeInfo: reflect.TypeFor[types.VisualShapeArgs](),
}

// statusArgTypes maps each status tag to its fixed-size payload type.
var statusArgTypes = map[types.StatusType]reflect.Type{
	types.StatusURDFLoadingCompleted:             reflect.TypeFor[types.BodyStreamArgs](),
	types.StatusBodyInfoCompleted:                reflect.TypeFor[types.BodyStreamArgs](),
	types.StatusBodyInfoFailed:                   reflect.TypeFor[types.BodyStreamArgs](),
	types.StatusSDFLoadingCompleted:              reflect.TypeFor[types.SceneLoadedArgs](),
	types.StatusMJCFLoadingCompleted:             reflect.TypeFor[types.SceneLoadedArgs](),
	types.StatusActualStateUpdateCompleted:       reflect.TypeFor[types.ActualStateArgs](),
	types.StatusDebugLinesCompleted:              reflect.TypeFor[types.DebugLinesChunkArgs](),
	types.StatusCameraImageCompleted:             reflect.TypeFor[types.PixelChunkArgs](),
	types.StatusContactPointInformationCompleted: reflect.TypeFor[types.ContactPointChunkArgs](),
	types.StatusAABBOverlapCompleted:             reflect.TypeFor[types.OverlapChunkArgs](),
	types.StatusVisualShapeInfoCompleted:         reflect.TypeFor[types.VisualShapeChunkArgs](),
}

// WriteCommand encodes cmd into the client slot. It does not publish the
// command; the caller increments the client counter afterwards.
func (b *Block) WriteCommand(cmd *types.Command) error {
	return EncodeCommand(b.ClientSlot(), cmd)
}

// ReadCommand decodes the client slot.
func (b *Block) ReadCommand() (*types.Command, error) {
	return DecodeCommand(b.ClientSlot())
}

// WriteStatus encodes st into the server slot.
func (b *Block) WriteStatus(st *types.Status) error {
	return EncodeStatus(b.ServerSlot(), st)
}

// ReadStatus decodes the server slot.
func (b *Block) ReadStatus() (*types.Status, error) {
	return DecodeStatus(b.ServerSlot())
}

// EncodeCommand encodes cmd into a command slot.
func EncodeCommand(slot []byte, cmd *types.Command) error {
	if len(slot) < CommandSlotSize {
		return slotTooSmall("command", len(slot), CommandSlotSize)
	}
	var args any
	if cmd.Args != nil {
		args = cmd.Args
	}
	n, err := encodeArgs(slot[SlotHeaderSize:CommandSlotSize], commandArgTypes[cmd.Type], args)
	if err != nil {
		return fmt.Errorf("command %s: %w", cmd.Type, err)
	}
	order.PutUint32(slot[0:4], uint32(cmd.Type))
	order.PutUint32(slot[4:8], cmd.Sequence)
	order.PutUint32(slot[8:12], uint32(n))
	order.PutUint32(slot[12:16], 0)
	return nil
}

// DecodeCommand decodes a command slot.
func DecodeCommand(slot []byte) (*types.Command, error) {
	if len(slot) < CommandSlotSize {
		return nil, slotTooSmall("command", len(slot), CommandSlotSize)
	}
	cmd := &types.Command{
		Type:     types.CommandType(int32(order.Uint32(slot[0:4]))),
		Sequence: order.Uint32(slot[4:8]),
	}
	args, err := decodeArgs(slot[SlotHeaderSize:CommandSlotSize], order.Uint32(slot[8:12]), commandArgTypes[cmd.Type])
	if err != nil {
		return nil, fmt.Errorf("command %s: %w", cmd.Type, err)
	}
	switch a := args.(type) {
	case nil:
	case []byte:
		cmd.Args = types.RawArgs(a)
	default:
		cmd.Args = a.(types.CommandArgs)
	}
	return cmd, nil
}

// EncodeStatus encodes st into a status slot. Statuses have no raw payload
// form; bulk data travels in the server stream.
func EncodeStatus(slot []byte, st *types.Status) error {
	if len(slot) < StatusSlotSize {
		return slotTooSmall("status", len(slot), StatusSlotSize)
	}
	var args any
	if st.Args != nil {
		args = st.Args
	}
	n, err := encodeArgs(slot[SlotHeaderSize:StatusSlotSize], statusArgTypes[st.Type], args)
	if err != nil {
		return fmt.Errorf("status %s: %w", st.Type, err)
	}
	order.PutUint32(slot[0:4], uint32(st.Type))
	order.PutUint32(slot[4:8], st.Sequence)
	order.PutUint32(slot[8:12], uint32(st.NumDataStreamBytes))
	order.PutUint32(slot[12:16], uint32(n))
	return nil
}

// DecodeStatus decodes a status slot. Tags outside the closed set decode
// without arguments; rejecting them is the dispatcher's decision.
func DecodeStatus(slot []byte) (*types.Status, error) {
	if len(slot) < StatusSlotSize {
		return nil, slotTooSmall("status", len(slot), StatusSlotSize)
	}
	st := &types.Status{
		Type:               types.StatusType(int32(order.Uint32(slot[0:4]))),
		Sequence:           order.Uint32(slot[4:8]),
		NumDataStreamBytes: int32(order.Uint32(slot[8:12])),
	}
	want := statusArgTypes[st.Type]
	if want == nil {
		return st, nil
	}
	args, err := decodeArgs(slot[SlotHeaderSize:StatusSlotSize], order.Uint32(slot[12:16]), want)
	if err != nil {
		return nil, fmt.Errorf("status %s: %w", st.Type, err)
	}
	st.Args = args.(types.StatusArgs)
	return st, nil
}

// encodeArgs writes args into dst and returns the encoded length.
func encodeArgs(dst []byte, want reflect.Type, args any) (int, error) {
	if args == nil {
		return 0, nil
	}
	if raw, ok := args.(types.RawArgs); ok {
		if want != nil {
			return 0, &LayoutError{
				Kind: LayoutErrorMismatch,
				Msg:  fmt.Sprintf("raw arguments given where %s is required", want),
			}
		}
		if len(raw) > len(dst) {
			return 0, &LayoutError{
				Kind: LayoutErrorOverflow,
				Msg:  fmt.Sprintf("raw arguments of %d bytes exceed slot capacity %d", len(raw), len(dst)),
			}
		}
		return copy(dst, raw), nil
	}
	if got := reflect.TypeOf(args); got != want {
		return 0, &LayoutError{
			Kind: LayoutErrorMismatch,
			Msg:  fmt.Sprintf("arguments of type %s do not match tag (want %v)", got, want),
		}
	}
	n, err := binary.Encode(dst, order, args)
	if err != nil {
		return 0, &LayoutError{Kind: LayoutErrorCodec, Msg: "failed to encode arguments", Err: err}
	}
	return n, nil
}

// decodeArgs reads a payload of declared length n from src. It returns nil
// for an empty untyped payload, []byte for a raw one, or a value of want.
func decodeArgs(src []byte, n uint32, want reflect.Type) (any, error) {
	if uint64(n) > uint64(len(src)) {
		return nil, &LayoutError{
			Kind: LayoutErrorOverflow,
			Msg:  fmt.Sprintf("declared argument length %d exceeds slot capacity %d", n, len(src)),
		}
	}
	if want == nil {
		if n == 0 {
			return nil, nil
		}
		raw := make([]byte, n)
		copy(raw, src[:n])
		return raw, nil
	}
	v := reflect.New(want)
	if _, err := binary.Decode(src, order, v.Interface()); err != nil {
		return nil, &LayoutError{Kind: LayoutErrorCodec, Msg: "failed to decode arguments", Err: err}
	}
	return v.Elem().Interface(), nil
}

func slotTooSmall(kind string, got, want int) error {
	return &LayoutError{
		Kind: LayoutErrorTooSmall,
		Msg:  fmt.Sprintf("%s slot of %d bytes is smaller than %d", kind, got, want),
	}
}
