package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Reader provides methods for reading the handful of Minecraft protocol 754
// field types the session controller needs to decode (strings, booleans,
// varints and big-endian numerics). All multi-byte values are big-endian, per
// the Minecraft wire format.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a new field reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// ReadByte reads a single unsigned byte.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, fmt.Errorf("ReadByte: not enough data (pos=%d, len=%d)", r.pos, len(r.data))
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadI8 reads a signed byte.
func (r *Reader) ReadI8() (int8, error) {
	b, err := r.ReadByte()
	return int8(b), err
}

// ReadBool reads a single byte as a boolean (non-zero is true).
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadByte()
	return b != 0, err
}

// ReadI16 reads a big-endian int16 (ID field of a transaction packet).
func (r *Reader) ReadI16() (int16, error) {
	if r.pos+2 > len(r.data) {
		return 0, fmt.Errorf("ReadI16: not enough data (pos=%d, len=%d)", r.pos, len(r.data))
	}
	val := int16(binary.BigEndian.Uint16(r.data[r.pos:]))
	r.pos += 2
	return val, nil
}

// ReadU16 reads a big-endian uint16 (e.g. server_port in Handshake).
func (r *Reader) ReadU16() (uint16, error) {
	if r.pos+2 > len(r.data) {
		return 0, fmt.Errorf("ReadU16: not enough data (pos=%d, len=%d)", r.pos, len(r.data))
	}
	val := binary.BigEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return val, nil
}

// ReadF32 reads a big-endian float32 (yaw/pitch).
func (r *Reader) ReadF32() (float32, error) {
	if r.pos+4 > len(r.data) {
		return 0, fmt.Errorf("ReadF32: not enough data (pos=%d, len=%d)", r.pos, len(r.data))
	}
	bits := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return math.Float32frombits(bits), nil
}

// ReadF64 reads a big-endian float64 (x/y/z).
func (r *Reader) ReadF64() (float64, error) {
	if r.pos+8 > len(r.data) {
		return 0, fmt.Errorf("ReadF64: not enough data (pos=%d, len=%d)", r.pos, len(r.data))
	}
	bits := binary.BigEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return math.Float64frombits(bits), nil
}

// ReadVarInt reads a VarInt-encoded field (e.g. teleport_id, protocol_version).
func (r *Reader) ReadVarInt() (int32, error) {
	val, n, err := ReadVarIntBytes(r.data[r.pos:])
	if err != nil {
		return 0, fmt.Errorf("ReadVarInt: %w", err)
	}
	r.pos += n
	return val, nil
}

// ReadString reads a VarInt-length-prefixed UTF-8 string.
func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadVarInt()
	if err != nil {
		return "", fmt.Errorf("ReadString: reading length: %w", err)
	}
	if n < 0 {
		return "", fmt.Errorf("ReadString: negative length %d", n)
	}
	if r.pos+int(n) > len(r.data) {
		return "", fmt.Errorf("ReadString: not enough data (pos=%d, need=%d, len=%d)", r.pos, n, len(r.data))
	}
	s := string(r.data[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

// ReadBytes reads n bytes (zero-copy — returns a subslice of the reader's data).
// Callers must not mutate the returned slice.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("ReadBytes: negative count %d", n)
	}
	if r.pos+n > len(r.data) {
		return nil, fmt.Errorf("ReadBytes: not enough data (pos=%d, need=%d, len=%d)", r.pos, n, len(r.data))
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Position returns the current read offset.
func (r *Reader) Position() int {
	return r.pos
}
