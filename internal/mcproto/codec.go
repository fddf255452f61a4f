package mcproto

import (
	"fmt"

	"github.com/kauri-off/voxelproxy/internal/wire"
)

// DecodeHandshake parses a Handshake payload (packet ID already stripped).
func DecodeHandshake(payload []byte) (Handshake, error) {
	r := wire.NewReader(payload)

	protocolVersion, err := r.ReadVarInt()
	if err != nil {
		return Handshake{}, fmt.Errorf("mcproto: handshake protocol_version: %w", err)
	}
	addr, err := r.ReadString()
	if err != nil {
		return Handshake{}, fmt.Errorf("mcproto: handshake server_address: %w", err)
	}
	port, err := r.ReadU16()
	if err != nil {
		return Handshake{}, fmt.Errorf("mcproto: handshake server_port: %w", err)
	}
	nextState, err := r.ReadVarInt()
	if err != nil {
		return Handshake{}, fmt.Errorf("mcproto: handshake next_state: %w", err)
	}

	return Handshake{
		ProtocolVersion: protocolVersion,
		ServerAddress:   addr,
		ServerPort:      port,
		NextState:       nextState,
	}, nil
}

// EncodeHandshake builds the payload (without packet ID or frame) for a
// Handshake, used when the proxy sends the upstream server the handshake
// it builds from the configured upstream address.
func EncodeHandshake(h Handshake) []byte {
	w := wire.NewWriter(16 + len(h.ServerAddress))
	w.WriteVarInt(h.ProtocolVersion)
	w.WriteString(h.ServerAddress)
	w.WriteU16(h.ServerPort)
	w.WriteVarInt(h.NextState)
	return w.Bytes()
}

// DecodeLoginStart parses a LoginStart payload.
func DecodeLoginStart(payload []byte) (LoginStart, error) {
	r := wire.NewReader(payload)
	name, err := r.ReadString()
	if err != nil {
		return LoginStart{}, fmt.Errorf("mcproto: login_start name: %w", err)
	}
	return LoginStart{Name: name}, nil
}

// DecodeSetCompression parses a SetCompression payload.
func DecodeSetCompression(payload []byte) (SetCompression, error) {
	r := wire.NewReader(payload)
	threshold, err := r.ReadVarInt()
	if err != nil {
		return SetCompression{}, fmt.Errorf("mcproto: set_compression threshold: %w", err)
	}
	return SetCompression{Threshold: threshold}, nil
}

// DecodeLoginDisconnect parses a LoginDisconnect payload, returning the raw
// JSON chat-component reason string.
func DecodeLoginDisconnect(payload []byte) (string, error) {
	r := wire.NewReader(payload)
	reason, err := r.ReadString()
	if err != nil {
		return "", fmt.Errorf("mcproto: login_disconnect reason: %w", err)
	}
	return reason, nil
}

// EncodeLoginDisconnect builds the payload for a LoginDisconnect with a
// plain-text reason wrapped as a JSON chat component.
func EncodeLoginDisconnect(reason string) []byte {
	w := wire.NewWriter(len(reason) + 16)
	w.WriteString(fmt.Sprintf(`{"text":%q}`, reason))
	return w.Bytes()
}

// DecodeTransaction parses a Transaction payload (identical layout for
// s2c::Transaction 0x11 and c2s::Transaction 0x07).
func DecodeTransaction(payload []byte) (Transaction, error) {
	r := wire.NewReader(payload)
	windowID, err := r.ReadI8()
	if err != nil {
		return Transaction{}, fmt.Errorf("mcproto: transaction window_id: %w", err)
	}
	action, err := r.ReadI16()
	if err != nil {
		return Transaction{}, fmt.Errorf("mcproto: transaction action: %w", err)
	}
	accepted, err := r.ReadBool()
	if err != nil {
		return Transaction{}, fmt.Errorf("mcproto: transaction accepted: %w", err)
	}
	return Transaction{WindowID: windowID, Action: action, Accepted: accepted}, nil
}

// EncodeTransaction builds the payload for a Transaction packet. The
// controller uses it to synthesise a replayed confirmation after a
// failover; server transactions are broadcast as the raw frames received.
func EncodeTransaction(t Transaction) []byte {
	w := wire.NewWriter(4)
	w.WriteI8(t.WindowID)
	w.WriteI16(t.Action)
	w.WriteBool(t.Accepted)
	return w.Bytes()
}

// DecodePosition parses a Position (0x12) payload.
func DecodePosition(payload []byte) (Position, error) {
	r := wire.NewReader(payload)
	x, err := r.ReadF64()
	if err != nil {
		return Position{}, fmt.Errorf("mcproto: position x: %w", err)
	}
	y, err := r.ReadF64()
	if err != nil {
		return Position{}, fmt.Errorf("mcproto: position y: %w", err)
	}
	z, err := r.ReadF64()
	if err != nil {
		return Position{}, fmt.Errorf("mcproto: position z: %w", err)
	}
	onGround, err := r.ReadBool()
	if err != nil {
		return Position{}, fmt.Errorf("mcproto: position on_ground: %w", err)
	}
	return Position{X: x, Y: y, Z: z, OnGround: onGround}, nil
}

// DecodePositionLook parses a PositionLook (0x13) payload.
func DecodePositionLook(payload []byte) (PositionLook, error) {
	r := wire.NewReader(payload)
	x, err := r.ReadF64()
	if err != nil {
		return PositionLook{}, fmt.Errorf("mcproto: position_look x: %w", err)
	}
	y, err := r.ReadF64()
	if err != nil {
		return PositionLook{}, fmt.Errorf("mcproto: position_look y: %w", err)
	}
	z, err := r.ReadF64()
	if err != nil {
		return PositionLook{}, fmt.Errorf("mcproto: position_look z: %w", err)
	}
	yaw, err := r.ReadF32()
	if err != nil {
		return PositionLook{}, fmt.Errorf("mcproto: position_look yaw: %w", err)
	}
	pitch, err := r.ReadF32()
	if err != nil {
		return PositionLook{}, fmt.Errorf("mcproto: position_look pitch: %w", err)
	}
	onGround, err := r.ReadBool()
	if err != nil {
		return PositionLook{}, fmt.Errorf("mcproto: position_look on_ground: %w", err)
	}
	return PositionLook{X: x, Y: y, Z: z, Yaw: yaw, Pitch: pitch, OnGround: onGround}, nil
}

// DecodeLook parses a Look (0x14) payload.
func DecodeLook(payload []byte) (Look, error) {
	r := wire.NewReader(payload)
	yaw, err := r.ReadF32()
	if err != nil {
		return Look{}, fmt.Errorf("mcproto: look yaw: %w", err)
	}
	pitch, err := r.ReadF32()
	if err != nil {
		return Look{}, fmt.Errorf("mcproto: look pitch: %w", err)
	}
	onGround, err := r.ReadBool()
	if err != nil {
		return Look{}, fmt.Errorf("mcproto: look on_ground: %w", err)
	}
	return Look{Yaw: yaw, Pitch: pitch, OnGround: onGround}, nil
}

// DecodePlayerPositionLook parses a PlayerPositionLook (0x34) payload.
func DecodePlayerPositionLook(payload []byte) (PlayerPositionLook, error) {
	r := wire.NewReader(payload)
	x, err := r.ReadF64()
	if err != nil {
		return PlayerPositionLook{}, fmt.Errorf("mcproto: player_position_look x: %w", err)
	}
	y, err := r.ReadF64()
	if err != nil {
		return PlayerPositionLook{}, fmt.Errorf("mcproto: player_position_look y: %w", err)
	}
	z, err := r.ReadF64()
	if err != nil {
		return PlayerPositionLook{}, fmt.Errorf("mcproto: player_position_look z: %w", err)
	}
	yaw, err := r.ReadF32()
	if err != nil {
		return PlayerPositionLook{}, fmt.Errorf("mcproto: player_position_look yaw: %w", err)
	}
	pitch, err := r.ReadF32()
	if err != nil {
		return PlayerPositionLook{}, fmt.Errorf("mcproto: player_position_look pitch: %w", err)
	}
	flags, err := r.ReadI8()
	if err != nil {
		return PlayerPositionLook{}, fmt.Errorf("mcproto: player_position_look flags: %w", err)
	}
	teleportID, err := r.ReadVarInt()
	if err != nil {
		return PlayerPositionLook{}, fmt.Errorf("mcproto: player_position_look teleport_id: %w", err)
	}
	return PlayerPositionLook{X: x, Y: y, Z: z, Yaw: yaw, Pitch: pitch, Flags: flags, TeleportID: teleportID}, nil
}

// EncodePlayerPositionLook builds the payload for the synthesised
// server-to-client teleport (0x34) sent to the passive client whenever the
// active client moves.
func EncodePlayerPositionLook(p PlayerPositionLook) []byte {
	w := wire.NewWriter(34)
	w.WriteF64(p.X)
	w.WriteF64(p.Y)
	w.WriteF64(p.Z)
	w.WriteF32(p.Yaw)
	w.WriteF32(p.Pitch)
	w.WriteI8(p.Flags)
	w.WriteVarInt(p.TeleportID)
	return w.Bytes()
}
