package wire

import (
	"bytes"
	"testing"
)

func TestAppendVarInt_KnownValues(t *testing.T) {
	tests := []struct {
		name  string
		value int32
		want  []byte
	}{
		{"zero", 0, []byte{0x00}},
		{"one", 1, []byte{0x01}},
		{"127", 127, []byte{0x7F}},
		{"128", 128, []byte{0x80, 0x01}},
		{"255", 255, []byte{0xFF, 0x01}},
		{"25565", 25565, []byte{0xDD, 0xC7, 0x01}},
		{"2097151", 2097151, []byte{0xFF, 0xFF, 0x7F}},
		{"-1", -1, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x0F}},
		{"min int32", -2147483648, []byte{0x80, 0x80, 0x80, 0x80, 0x08}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AppendVarInt(nil, tt.value)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("AppendVarInt(%d) = %x, want %x", tt.value, got, tt.want)
			}
		})
	}
}

func TestReadVarIntBytes_RoundTrip(t *testing.T) {
	values := []int32{0, 1, -1, 127, 128, 300, 25565, 2097151, 2147483647, -2147483648}

	for _, v := range values {
		buf := AppendVarInt(nil, v)
		got, n, err := ReadVarIntBytes(buf)
		if err != nil {
			t.Fatalf("ReadVarIntBytes(%d) failed: %v", v, err)
		}
		if got != v {
			t.Errorf("ReadVarIntBytes round trip: got %d, want %d", got, v)
		}
		if n != len(buf) {
			t.Errorf("ReadVarIntBytes consumed %d bytes, want %d", n, len(buf))
		}
	}
}

func TestReadVarInt_FromReader(t *testing.T) {
	buf := bytes.NewReader([]byte{0xDD, 0xC7, 0x01, 0x99})

	got, err := ReadVarInt(buf)
	if err != nil {
		t.Fatalf("ReadVarInt failed: %v", err)
	}
	if got != 25565 {
		t.Errorf("expected 25565, got %d", got)
	}
	if buf.Len() != 1 {
		t.Errorf("expected 1 trailing byte left unread, got %d", buf.Len())
	}
}

func TestReadVarIntBytes_TooBig(t *testing.T) {
	buf := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

	_, _, err := ReadVarIntBytes(buf)
	if err == nil {
		t.Error("expected error reading an oversized VarInt")
	}
}

func TestReadVarIntBytes_Truncated(t *testing.T) {
	buf := []byte{0x80, 0x80}

	_, _, err := ReadVarIntBytes(buf)
	if err == nil {
		t.Error("expected error reading a truncated VarInt")
	}
}

func TestSizeVarInt_MatchesEncodedLength(t *testing.T) {
	values := []int32{0, 1, 127, 128, 25565, 2097151, -1}

	for _, v := range values {
		want := len(AppendVarInt(nil, v))
		got := SizeVarInt(v)
		if got != want {
			t.Errorf("SizeVarInt(%d) = %d, want %d", v, got, want)
		}
	}
}

func TestWriteVarInt(t *testing.T) {
	var buf bytes.Buffer

	if err := WriteVarInt(&buf, 25565); err != nil {
		t.Fatalf("WriteVarInt failed: %v", err)
	}

	want := []byte{0xDD, 0xC7, 0x01}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("WriteVarInt wrote %x, want %x", buf.Bytes(), want)
	}
}
