package wire

import (
	"bytes"
	"testing"
)

func TestWriteFrame_ReadFrame_RoundTrip(t *testing.T) {
	want := RawFrame{Data: []byte{0x01, 0x02, 0x03}}

	var buf bytes.Buffer
	if err := WriteFrame(&buf, want); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if !bytes.Equal(got.Data, want.Data) {
		t.Errorf("ReadFrame round trip: got %x, want %x", got.Data, want.Data)
	}
}

func TestReadFrame_NegativeLength(t *testing.T) {
	var buf bytes.Buffer
	_ = WriteVarInt(&buf, -1)

	if _, err := ReadFrame(&buf); err == nil {
		t.Error("expected error reading a frame with negative length")
	}
}

func TestEncode_Decode_Uncompressed(t *testing.T) {
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}

	frame, err := Encode(nil, 0x03, payload)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := Decode(frame, nil)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.ID != 0x03 {
		t.Errorf("expected packet ID 0x03, got 0x%X", decoded.ID)
	}
	if !bytes.Equal(decoded.Payload, payload) {
		t.Errorf("expected payload %x, got %x", payload, decoded.Payload)
	}
}

func TestEncode_Decode_BelowThreshold(t *testing.T) {
	threshold := int32(256)
	payload := []byte{0x01, 0x02, 0x03}

	frame, err := Encode(&threshold, 0x11, payload)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := Decode(frame, &threshold)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.ID != 0x11 {
		t.Errorf("expected packet ID 0x11, got 0x%X", decoded.ID)
	}
	if !bytes.Equal(decoded.Payload, payload) {
		t.Errorf("expected payload %x, got %x", payload, decoded.Payload)
	}
}

func TestEncode_Decode_AboveThreshold(t *testing.T) {
	threshold := int32(8)
	payload := bytes.Repeat([]byte{0xAB}, 64)

	frame, err := Encode(&threshold, 0x21, payload)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := Decode(frame, &threshold)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.ID != 0x21 {
		t.Errorf("expected packet ID 0x21, got 0x%X", decoded.ID)
	}
	if !bytes.Equal(decoded.Payload, payload) {
		t.Errorf("expected payload of %d bytes, got %d bytes", len(payload), len(decoded.Payload))
	}
}

func TestEncode_RoundTrip_ThroughWriteReadFrame(t *testing.T) {
	threshold := int32(4)
	payload := bytes.Repeat([]byte{0x5A}, 32)

	frame, err := Encode(&threshold, 0x00, payload)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteFrame(&buf, frame); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	readBack, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}

	decoded, err := Decode(readBack, &threshold)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.ID != 0x00 {
		t.Errorf("expected packet ID 0x00, got 0x%X", decoded.ID)
	}
	if !bytes.Equal(decoded.Payload, payload) {
		t.Error("payload mismatch after full encode/write/read/decode round trip")
	}
}

func TestDecode_MalformedZlib(t *testing.T) {
	threshold := int32(4)
	// data length says 10, but what follows is not valid zlib data.
	var buf []byte
	buf = AppendVarInt(buf, 10)
	buf = append(buf, 0xFF, 0xFF, 0xFF, 0xFF)

	_, err := Decode(RawFrame{Data: buf}, &threshold)
	if err == nil {
		t.Error("expected error decoding malformed zlib payload")
	}
}
