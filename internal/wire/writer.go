package wire

import (
	"encoding/binary"
	"math"
)

// Writer accumulates the field-level payload of a packet before it is handed
// to Encode for framing. All multi-byte values are written big-endian, per
// the Minecraft wire format.
type Writer struct {
	buf []byte
}

// NewWriter creates a field writer with the given initial capacity.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// WriteByte writes a single unsigned byte.
func (w *Writer) WriteByte(b byte) {
	w.buf = append(w.buf, b)
}

// WriteI8 writes a signed byte.
func (w *Writer) WriteI8(v int8) {
	w.buf = append(w.buf, byte(v))
}

// WriteBool writes a boolean as a single byte.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteByte(1)
	} else {
		w.WriteByte(0)
	}
}

// WriteI16 writes a big-endian int16.
func (w *Writer) WriteI16(v int16) {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], uint16(v))
	w.buf = append(w.buf, tmp[:]...)
}

// WriteU16 writes a big-endian uint16.
func (w *Writer) WriteU16(v uint16) {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

// WriteF32 writes a big-endian float32.
func (w *Writer) WriteF32(v float32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], math.Float32bits(v))
	w.buf = append(w.buf, tmp[:]...)
}

// WriteF64 writes a big-endian float64.
func (w *Writer) WriteF64(v float64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], math.Float64bits(v))
	w.buf = append(w.buf, tmp[:]...)
}

// WriteVarInt writes a VarInt-encoded field.
func (w *Writer) WriteVarInt(v int32) {
	w.buf = AppendVarInt(w.buf, v)
}

// WriteString writes a VarInt-length-prefixed UTF-8 string.
func (w *Writer) WriteString(s string) {
	w.WriteVarInt(int32(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteBytes writes raw bytes.
func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// Bytes returns the accumulated payload.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the current length of the accumulated payload.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Reset clears the buffer for reuse.
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
}
