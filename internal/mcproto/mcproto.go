// Package mcproto defines the typed packet payloads for the handful of
// Minecraft protocol 754 packet IDs the session controller acts on.
// Everything else stays as opaque framed bytes (wire.RawFrame /
// wire.DecodedPacket) and is never decoded into these types — see the
// controller's dispatch table.
package mcproto

// ProtocolVersion is the only protocol version this proxy supports.
const ProtocolVersion = 754

// Handshake next_state values.
const (
	NextStateStatus = 1
	NextStateLogin  = 2
)

// Packet IDs this package decodes or builds, grouped by direction and
// connection state. Handshake and status-state packets live in the base
// state; everything else here is login or play state, which is unambiguous
// because the controller only runs after login has completed.
const (
	// Handshake state (shared by both directions' first packet).
	PacketHandshake = 0x00

	// Login state, client to server.
	PacketLoginStart = 0x00

	// Login state, server to client.
	PacketLoginDisconnect    = 0x00
	PacketEncryptionRequest  = 0x01
	PacketLoginSuccess       = 0x02
	PacketSetCompression     = 0x03

	// Status state.
	PacketStatusRequest = 0x00
	PacketStatusPing    = 0x01

	// Play state, client to server.
	PacketTransactionServerbound = 0x07
	PacketPosition               = 0x12
	PacketPositionLook           = 0x13
	PacketLook                   = 0x14

	// Play state, server to client.
	PacketTransactionClientbound = 0x11
	PacketPlayerPositionLook     = 0x34
)

// Handshake is the first packet on any connection; it selects the
// connection's subsequent state (status query or login).
type Handshake struct {
	ProtocolVersion int32
	ServerAddress   string
	ServerPort      uint16
	NextState       int32
}

// LoginStart is the client's login-state hello. The proxy only ever reads
// the player name out of it; the declared UUID (if present, 1.16.5 does not
// send one) is not acted on.
type LoginStart struct {
	Name string
}

// SetCompression negotiates the compression threshold for the rest of the
// connection. A session has exactly one threshold, shared by all three
// peers, set once during login handoff.
type SetCompression struct {
	Threshold int32
}

// Transaction is the window-confirmation packet, identical field layout in
// both directions (0x11 server to client, 0x07 client to server).
type Transaction struct {
	WindowID int8
	Action   int16
	Accepted bool
}

// Position is the client's movement-only update (no look).
type Position struct {
	X, Y, Z  float64
	OnGround bool
}

// PositionLook is the client's movement+look update.
type PositionLook struct {
	X, Y, Z    float64
	Yaw, Pitch float32
	OnGround   bool
}

// Look is the client's look-only update.
type Look struct {
	Yaw, Pitch float32
	OnGround   bool
}

// PlayerPositionLook (0x34) is the server-to-client teleport packet the
// controller synthesises for the passive client to keep its world view in
// sync with the active client's movement.
type PlayerPositionLook struct {
	X, Y, Z      float64
	Yaw, Pitch   float32
	Flags        int8
	TeleportID   int32
}
