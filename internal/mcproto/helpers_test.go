package mcproto

import "github.com/kauri-off/voxelproxy/internal/wire"

func writerWithString(s string) []byte {
	w := wire.NewWriter(len(s) + 2)
	w.WriteString(s)
	return w.Bytes()
}

func varintBytes(v int32) []byte {
	return wire.AppendVarInt(nil, v)
}

func positionPayload(x, y, z float64, onGround bool) []byte {
	w := wire.NewWriter(32)
	w.WriteF64(x)
	w.WriteF64(y)
	w.WriteF64(z)
	w.WriteBool(onGround)
	return w.Bytes()
}

func positionLookPayload(x, y, z float64, yaw, pitch float32, onGround bool) []byte {
	w := wire.NewWriter(32)
	w.WriteF64(x)
	w.WriteF64(y)
	w.WriteF64(z)
	w.WriteF32(yaw)
	w.WriteF32(pitch)
	w.WriteBool(onGround)
	return w.Bytes()
}

func lookPayload(yaw, pitch float32, onGround bool) []byte {
	w := wire.NewWriter(16)
	w.WriteF32(yaw)
	w.WriteF32(pitch)
	w.WriteBool(onGround)
	return w.Bytes()
}
