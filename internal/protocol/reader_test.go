package protocol

import (
	"encoding/binary"
	"errors"
	"testing"
)

func TestReader_ReadU32(t *testing.T) {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, 0x12345678)

	r := NewReader(data)
	val, err := r.ReadU32()
	if err != nil {
		t.Fatalf("ReadU32 failed: %v", err)
	}
	if val != 0x12345678 {
		t.Errorf("expected 0x12345678, got 0x%08X", val)
	}
	if r.Remaining() != 0 {
		t.Errorf("expected 0 remaining bytes, got %d", r.Remaining())
	}
}

func TestReader_NotEnoughData(t *testing.T) {
	r := NewReader([]byte{1, 2, 3})

	if _, err := r.ReadU32(); !errors.Is(err, ErrMalformed) {
		t.Errorf("ReadU32 on 3 bytes: got %v, want ErrMalformed", err)
	}
	if r.Position() != 0 {
		t.Errorf("failed read moved position to %d", r.Position())
	}
	if _, err := r.ReadBytes(-1); err == nil {
		t.Error("ReadBytes(-1) should fail")
	}
}

func TestReader_StringLengthExceedsData(t *testing.T) {
	w := NewWriter(8)
	w.WriteU32(100)
	w.WriteBytes([]byte("abc"))

	r := NewReader(w.Bytes())
	if _, err := r.ReadStringU32(); !errors.Is(err, ErrMalformed) {
		t.Errorf("ReadStringU32 with oversized length: got %v, want ErrMalformed", err)
	}
	if r.Position() != 0 {
		t.Errorf("failed string read moved position to %d", r.Position())
	}
}

func TestWriter_Strings(t *testing.T) {
	w := GetWriter()
	defer w.Put()

	w.WriteStringU16("door")
	w.WriteStringU32("sign")
	w.WriteF32(2.5)

	r := NewReader(w.Bytes())
	s16, err := r.ReadStringU16()
	if err != nil || s16 != "door" {
		t.Errorf("ReadStringU16 = %q, %v", s16, err)
	}
	s32, err := r.ReadStringU32()
	if err != nil || s32 != "sign" {
		t.Errorf("ReadStringU32 = %q, %v", s32, err)
	}
	f, err := r.ReadF32()
	if err != nil || f != 2.5 {
		t.Errorf("ReadF32 = %v, %v", f, err)
	}
}

func TestWriter_PatchU32(t *testing.T) {
	w := NewWriter(8)
	w.WriteU32(0)
	w.WriteByte(9)
	w.PatchU32(0, 0xFFFFFFFF)

	if got := binary.LittleEndian.Uint32(w.Bytes()); got != 0xFFFFFFFF {
		t.Errorf("PatchU32: got 0x%08X", got)
	}
	if w.Len() != 5 {
		t.Errorf("Len() = %d, want 5", w.Len())
	}
}
