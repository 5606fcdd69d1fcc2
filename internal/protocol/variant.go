package protocol

import (
	"fmt"
	"math"
)

// Variant argument type ids.
const (
	variantFloat  = 1
	variantString = 2
	variantVec2   = 3
	variantVec3   = 4
	variantUint   = 5
	variantInt    = 9
)

// Vec2 is a two-component float argument.
type Vec2 struct{ X, Y float32 }

// Vec3 is a three-component float argument.
type Vec3 struct{ X, Y, Z float32 }

// CallOption adjusts the tank header of a call frame.
type CallOption func(*Tank)

// WithNetID targets the call at a specific net id (e.g. talk bubbles).
func WithNetID(id int32) CallOption {
	return func(t *Tank) { t.NetID = id }
}

// WithDelay delays execution on the client, in milliseconds.
func WithDelay(ms float32) CallOption {
	return func(t *Tank) { t.Value = ms }
}

// Call builds a CallFunction tank frame for fn with args.
// Supported argument types: string, float32, float64, int, int32, uint32, Vec2, Vec3.
func Call(fn string, args []any, opts ...CallOption) []byte {
	t := &Tank{
		Type:  TankCallFunction,
		NetID: -1,
		State: StateExtended,
	}
	for _, o := range opts {
		o(t)
	}
	t.Data = EncodeVariants(append([]any{fn}, args...)...)
	return t.Encode()
}

// EncodeVariants encodes a variant list. Unsupported argument types panic:
// the argument set is chosen by server code, never by the client.
func EncodeVariants(args ...any) []byte {
	w := NewWriter(64)
	w.WriteByte(byte(len(args)))
	for i, a := range args {
		w.WriteByte(byte(i))
		switch v := a.(type) {
		case string:
			w.WriteByte(variantString)
			w.WriteStringU32(v)
		case float32:
			w.WriteByte(variantFloat)
			w.WriteF32(v)
		case float64:
			w.WriteByte(variantFloat)
			w.WriteF32(float32(v))
		case uint32:
			w.WriteByte(variantUint)
			w.WriteU32(v)
		case int32:
			w.WriteByte(variantInt)
			w.WriteI32(v)
		case int:
			if v < math.MinInt32 || v > math.MaxInt32 {
				panic(fmt.Sprintf("variant %d: int %d out of range", i, v))
			}
			w.WriteByte(variantInt)
			w.WriteI32(int32(v))
		case Vec2:
			w.WriteByte(variantVec2)
			w.WriteF32(v.X)
			w.WriteF32(v.Y)
		case Vec3:
			w.WriteByte(variantVec3)
			w.WriteF32(v.X)
			w.WriteF32(v.Y)
			w.WriteF32(v.Z)
		default:
			panic(fmt.Sprintf("variant %d: unsupported type %T", i, a))
		}
	}
	return w.Bytes()
}

// DecodeVariants decodes a variant list. Ints decode as int32, uints as uint32.
func DecodeVariants(data []byte) ([]any, error) {
	r := NewReader(data)
	n, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("variant count: %w", err)
	}
	out := make([]any, n)
	for range int(n) {
		idx, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("variant index: %w", err)
		}
		if int(idx) >= len(out) {
			return nil, fmt.Errorf("%w: variant index %d out of range", ErrMalformed, idx)
		}
		typ, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("variant type: %w", err)
		}
		var v any
		switch typ {
		case variantString:
			v, err = r.ReadStringU32()
		case variantFloat:
			v, err = r.ReadF32()
		case variantUint:
			v, err = r.ReadU32()
		case variantInt:
			v, err = r.ReadI32()
		case variantVec2:
			var x, y float32
			if x, err = r.ReadF32(); err == nil {
				y, err = r.ReadF32()
			}
			v = Vec2{x, y}
		case variantVec3:
			var x, y, z float32
			if x, err = r.ReadF32(); err == nil {
				if y, err = r.ReadF32(); err == nil {
					z, err = r.ReadF32()
				}
			}
			v = Vec3{x, y, z}
		default:
			return nil, fmt.Errorf("%w: variant type %d", ErrMalformed, typ)
		}
		if err != nil {
			return nil, fmt.Errorf("variant %d: %w", idx, err)
		}
		out[idx] = v
	}
	return out, nil
}

// ConsoleMessage builds an OnConsoleMessage call.
func ConsoleMessage(msg string) []byte {
	return Call("OnConsoleMessage", []any{msg})
}

// TalkBubble builds an OnTalkBubble call attached to netID.
func TalkBubble(netID int32, msg string) []byte {
	return Call("OnTalkBubble", []any{netID, msg, 0})
}

// DialogRequest builds an OnDialogRequest call.
func DialogRequest(dialog string) []byte {
	return Call("OnDialogRequest", []any{dialog})
}
