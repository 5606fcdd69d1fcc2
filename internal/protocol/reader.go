package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Reader decodes little-endian frame fields from a byte slice.
// A read that would run past the end fails with ErrMalformed and leaves the
// position unchanged.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// take returns the next n bytes and advances past them.
func (r *Reader) take(n int, what string) ([]byte, error) {
	if n < 0 || n > len(r.data)-r.pos {
		return nil, fmt.Errorf("%w: %s needs %d bytes at offset %d, have %d",
			ErrMalformed, what, n, r.pos, len(r.data)-r.pos)
	}
	b := r.data[r.pos : r.pos+n : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadByte reads one byte.
func (r *Reader) ReadByte() (byte, error) {
	b, err := r.take(1, "byte")
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU16 reads a uint16.
func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.take(2, "u16")
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadU32 reads a uint32.
func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.take(4, "u32")
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadI32 reads an int32.
func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

// ReadF32 reads a float32.
func (r *Reader) ReadF32() (float32, error) {
	v, err := r.ReadU32()
	return math.Float32frombits(v), err
}

// ReadStringU16 reads a string behind a u16 byte length.
func (r *Reader) ReadStringU16() (string, error) {
	start := r.pos
	n, err := r.ReadU16()
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n), "string")
	if err != nil {
		r.pos = start
		return "", err
	}
	return string(b), nil
}

// ReadStringU32 reads a string behind a u32 byte length.
func (r *Reader) ReadStringU32() (string, error) {
	start := r.pos
	n, err := r.ReadU32()
	if err != nil {
		return "", err
	}
	if int64(n) > int64(r.Remaining()) {
		r.pos = start
		return "", fmt.Errorf("%w: string length %d exceeds remaining %d", ErrMalformed, n, r.Remaining())
	}
	b, _ := r.take(int(n), "string")
	return string(b), nil
}

// ReadBytes returns the next n bytes without copying. Callers must not modify them.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	return r.take(n, "bytes")
}

// Remaining is the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Position is the offset of the next read.
func (r *Reader) Position() int {
	return r.pos
}
