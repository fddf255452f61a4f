package wire

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// RawFrame is one protocol frame as it appears on the wire, with the outer
// VarInt length prefix already stripped. Immutable after construction: callers
// must treat Data as read-only and never mutate it in place, since the same
// backing array may be shared by multiple in-flight sends (e.g. a ServerData
// frame broadcast to two peer writers).
type RawFrame struct {
	Data []byte
}

// ReadFrame reads one length-prefixed frame from r.
func ReadFrame(r io.Reader) (RawFrame, error) {
	length, err := ReadVarInt(r)
	if err != nil {
		return RawFrame{}, err
	}
	if length < 0 {
		return RawFrame{}, fmt.Errorf("wire: negative frame length %d", length)
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return RawFrame{}, fmt.Errorf("wire: reading frame body: %w", err)
	}
	return RawFrame{Data: data}, nil
}

// WriteFrame writes one length-prefixed frame to w.
func WriteFrame(w io.Writer, f RawFrame) error {
	if err := WriteVarInt(w, int32(len(f.Data))); err != nil {
		return fmt.Errorf("wire: writing frame length: %w", err)
	}
	if _, err := w.Write(f.Data); err != nil {
		return fmt.Errorf("wire: writing frame body: %w", err)
	}
	return nil
}

// DecodedPacket is a RawFrame whose outer (optional) zlib compression has been
// removed, exposing the packet ID and an (possibly zero-copy) payload slice.
type DecodedPacket struct {
	ID      int32
	Payload []byte
}

// Decode removes the compressed-frame layer (if threshold is non-nil) and
// splits out the VarInt packet ID and payload. The controller calls PeekID
// first and only reaches for Decode once it knows, from the ID alone, that
// it needs the payload too — every other frame is routed as RawFrame
// without ever reaching this function.
func Decode(f RawFrame, threshold *int32) (DecodedPacket, error) {
	if threshold == nil {
		return decodeUncompressed(f.Data)
	}

	dataLength, n, err := ReadVarIntBytes(f.Data)
	if err != nil {
		return DecodedPacket{}, fmt.Errorf("wire: reading data length: %w", err)
	}
	rest := f.Data[n:]

	if dataLength == 0 {
		// Below the compression threshold: packet body follows uncompressed.
		return decodeUncompressed(rest)
	}

	zr, err := zlib.NewReader(bytes.NewReader(rest))
	if err != nil {
		return DecodedPacket{}, fmt.Errorf("wire: opening zlib reader: %w", err)
	}
	defer zr.Close()

	decompressed := make([]byte, dataLength)
	if _, err := io.ReadFull(zr, decompressed); err != nil {
		return DecodedPacket{}, fmt.Errorf("wire: decompressing packet: %w", err)
	}
	return decodeUncompressed(decompressed)
}

func decodeUncompressed(buf []byte) (DecodedPacket, error) {
	id, n, err := ReadVarIntBytes(buf)
	if err != nil {
		return DecodedPacket{}, fmt.Errorf("wire: reading packet id: %w", err)
	}
	return DecodedPacket{ID: id, Payload: buf[n:]}, nil
}

// PeekID reads just the packet ID out of a frame, without paying for a full
// Decode. Below the compression threshold (or when compression was never
// negotiated) this is exactly as cheap as Decode, since the ID sits in the
// clear either way; above it, it reads the VarInt directly off the zlib
// stream instead of decompressing the whole packet body, so a caller that
// only wants to route most frames untouched never pays for their
// decompression. Decode is still the right call once a caller actually
// needs the payload.
func PeekID(f RawFrame, threshold *int32) (int32, error) {
	if threshold == nil {
		id, _, err := ReadVarIntBytes(f.Data)
		if err != nil {
			return 0, fmt.Errorf("wire: peeking packet id: %w", err)
		}
		return id, nil
	}

	dataLength, n, err := ReadVarIntBytes(f.Data)
	if err != nil {
		return 0, fmt.Errorf("wire: reading data length: %w", err)
	}
	rest := f.Data[n:]

	if dataLength == 0 {
		id, _, err := ReadVarIntBytes(rest)
		if err != nil {
			return 0, fmt.Errorf("wire: peeking packet id: %w", err)
		}
		return id, nil
	}

	zr, err := zlib.NewReader(bytes.NewReader(rest))
	if err != nil {
		return 0, fmt.Errorf("wire: opening zlib reader: %w", err)
	}
	defer zr.Close()

	id, err := ReadVarInt(zr)
	if err != nil {
		return 0, fmt.Errorf("wire: peeking packet id: %w", err)
	}
	return id, nil
}

// Encode builds a RawFrame for (packetID, payload), framed correctly for the
// given compression threshold (nil means compression was never negotiated).
// This is how the controller satisfies invariant I5 when synthesising a frame
// for a peer: it always encodes against the session's one negotiated
// threshold, since cheat, legit and upstream share a single threshold
// (compression is negotiated once, during login, for the whole session).
func Encode(threshold *int32, packetID int32, payload []byte) (RawFrame, error) {
	inner := AppendVarInt(make([]byte, 0, SizeVarInt(packetID)+len(payload)), packetID)
	inner = append(inner, payload...)

	if threshold == nil {
		return RawFrame{Data: inner}, nil
	}

	if int32(len(inner)) < *threshold {
		// Below threshold: data length 0 signals "not compressed" per the protocol.
		out := AppendVarInt(make([]byte, 0, 1+len(inner)), 0)
		out = append(out, inner...)
		return RawFrame{Data: out}, nil
	}

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(inner); err != nil {
		return RawFrame{}, fmt.Errorf("wire: compressing packet: %w", err)
	}
	if err := zw.Close(); err != nil {
		return RawFrame{}, fmt.Errorf("wire: closing zlib writer: %w", err)
	}

	out := AppendVarInt(make([]byte, 0, SizeVarInt(int32(len(inner)))+compressed.Len()), int32(len(inner)))
	out = append(out, compressed.Bytes()...)
	return RawFrame{Data: out}, nil
}
