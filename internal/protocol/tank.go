package protocol

import (
	"fmt"
)

// TankType is the sub-type byte of a tank frame.
type TankType uint8

const (
	TankState                      TankType = 0
	TankCallFunction               TankType = 1
	TankTileChangeRequest          TankType = 3
	TankSendMapData                TankType = 4
	TankSendTileUpdateData         TankType = 5
	TankSendTileUpdateDataMultiple TankType = 6
	TankTileApplyDamage            TankType = 8
	TankSendInventoryState         TankType = 9
	TankItemActivateObjectRequest  TankType = 11
	TankModifyItemInventory        TankType = 13
	TankItemChangeObject           TankType = 14
	TankSendItemDatabaseData       TankType = 16
	TankSetCharacterState          TankType = 20
	TankPingRequest                TankType = 22
	TankAppCheckResponse           TankType = 24
)

// TankHeaderSize is the fixed size of a tank header, without the tag.
const TankHeaderSize = 56

// Tank state flags.
const (
	StateExtended uint32 = 0x08
	StateFlipped  uint32 = 0x10
)

// MaxTankData bounds the payload a client may declare.
const MaxTankData = 1 << 20

// Tank is a fixed-layout gameplay frame. Value carries the call delay for
// CallFunction frames and the item amount for ItemChangeObject frames.
type Tank struct {
	Type     TankType
	Object   uint8
	Jump     uint8
	Count    uint8
	NetID    int32
	Target   int32
	State    uint32
	Value    float32
	Info     int32
	X        float32
	Y        float32
	SpeedX   float32
	SpeedY   float32
	Rotation int32
	PunchX   int32
	PunchY   int32
	Data     []byte
}

// DecodeTank decodes a tank body (the frame without its tag).
// The declared payload length is checked against the buffer before it is read.
func DecodeTank(body []byte) (*Tank, error) {
	if len(body) < TankHeaderSize {
		return nil, fmt.Errorf("%w: tank header %d bytes, need %d", ErrMalformed, len(body), TankHeaderSize)
	}
	r := NewReader(body)
	t := &Tank{}

	typ, _ := r.ReadByte()
	t.Type = TankType(typ)
	t.Object, _ = r.ReadByte()
	t.Jump, _ = r.ReadByte()
	t.Count, _ = r.ReadByte()
	t.NetID, _ = r.ReadI32()
	t.Target, _ = r.ReadI32()
	t.State, _ = r.ReadU32()
	t.Value, _ = r.ReadF32()
	t.Info, _ = r.ReadI32()
	t.X, _ = r.ReadF32()
	t.Y, _ = r.ReadF32()
	t.SpeedX, _ = r.ReadF32()
	t.SpeedY, _ = r.ReadF32()
	t.Rotation, _ = r.ReadI32()
	t.PunchX, _ = r.ReadI32()
	t.PunchY, _ = r.ReadI32()
	n, _ := r.ReadU32()

	if n > MaxTankData || int64(n) > int64(r.Remaining()) {
		return nil, fmt.Errorf("%w: tank data length %d, remaining %d", ErrMalformed, n, r.Remaining())
	}
	if n > 0 {
		data, err := r.ReadBytes(int(n))
		if err != nil {
			return nil, err
		}
		t.Data = data
	}
	return t, nil
}

// Encode returns the full frame including the tank tag.
func (t *Tank) Encode() []byte {
	w := NewWriter(TagSize + TankHeaderSize + len(t.Data))
	t.WriteTo(w)
	return w.Copy()
}

// WriteTo writes the full frame (tag, header, payload) to w.
func (t *Tank) WriteTo(w *Writer) {
	w.WriteU32(uint32(TagTank))
	w.WriteByte(byte(t.Type))
	w.WriteByte(t.Object)
	w.WriteByte(t.Jump)
	w.WriteByte(t.Count)
	w.WriteI32(t.NetID)
	w.WriteI32(t.Target)
	w.WriteU32(t.State)
	w.WriteF32(t.Value)
	w.WriteI32(t.Info)
	w.WriteF32(t.X)
	w.WriteF32(t.Y)
	w.WriteF32(t.SpeedX)
	w.WriteF32(t.SpeedY)
	w.WriteI32(t.Rotation)
	w.WriteI32(t.PunchX)
	w.WriteI32(t.PunchY)
	w.WriteU32(uint32(len(t.Data)))
	w.WriteBytes(t.Data)
}
