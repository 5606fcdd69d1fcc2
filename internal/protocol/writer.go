package protocol

import (
	"bytes"
	"encoding/binary"
	"math"
	"sync"
)

// Writer appends little-endian frame fields to a growing buffer.
type Writer struct {
	b []byte
}

var writerPool = sync.Pool{
	New: func() any { return &Writer{b: make([]byte, 0, 512)} },
}

// GetWriter returns an empty pooled Writer.
func GetWriter() *Writer {
	w := writerPool.Get().(*Writer)
	w.Reset()
	return w
}

// Put returns w to the pool. Neither w nor slices from Bytes may be used afterwards.
func (w *Writer) Put() {
	writerPool.Put(w)
}

// NewWriter creates a writer with room for capacity bytes.
func NewWriter(capacity int) *Writer {
	return &Writer{b: make([]byte, 0, capacity)}
}

// WriteByte appends one byte. It never fails.
func (w *Writer) WriteByte(c byte) error {
	w.b = append(w.b, c)
	return nil
}

func (w *Writer) WriteU16(v uint16)  { w.b = binary.LittleEndian.AppendUint16(w.b, v) }
func (w *Writer) WriteU32(v uint32)  { w.b = binary.LittleEndian.AppendUint32(w.b, v) }
func (w *Writer) WriteI32(v int32)   { w.WriteU32(uint32(v)) }
func (w *Writer) WriteF32(v float32) { w.WriteU32(math.Float32bits(v)) }

// WriteStringU16 appends s behind its u16 byte length.
func (w *Writer) WriteStringU16(s string) {
	w.WriteU16(uint16(len(s)))
	w.b = append(w.b, s...)
}

// WriteStringU32 appends s behind its u32 byte length.
func (w *Writer) WriteStringU32(s string) {
	w.WriteU32(uint32(len(s)))
	w.b = append(w.b, s...)
}

// WriteBytes appends raw bytes.
func (w *Writer) WriteBytes(data []byte) {
	w.b = append(w.b, data...)
}

// PatchU32 overwrites 4 already written bytes at offset.
func (w *Writer) PatchU32(offset int, v uint32) {
	binary.LittleEndian.PutUint32(w.b[offset:], v)
}

// Bytes returns the written bytes, aliasing the buffer.
func (w *Writer) Bytes() []byte { return w.b }

// Copy returns the written bytes in a fresh slice that survives Put.
func (w *Writer) Copy() []byte { return bytes.Clone(w.b) }

func (w *Writer) Len() int { return len(w.b) }

// Reset empties the writer and keeps its capacity.
func (w *Writer) Reset() { w.b = w.b[:0] }
