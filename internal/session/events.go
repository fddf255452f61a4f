package session

import "github.com/kauri-off/voxelproxy/internal/wire"

// Event is one item on the controller's merged event queue. The three
// reader actors are the only producers; the controller is the sole
// consumer.
type Event interface {
	isEvent()
}

// ClientData is a frame read from one of the two client sockets.
type ClientData struct {
	Who   Peer
	Frame wire.RawFrame
}

func (ClientData) isEvent() {}

// ClientDisconnected signals that a client reader actor has exited, either
// because of a read error, EOF, or a closed connection.
type ClientDisconnected struct {
	Who Peer
}

func (ClientDisconnected) isEvent() {}

// ServerData is a frame read from the upstream socket.
type ServerData struct {
	Frame wire.RawFrame
}

func (ServerData) isEvent() {}

// UpstreamClosed signals that the upstream reader actor has exited. The
// session always ends when this arrives — there is no reconnection.
type UpstreamClosed struct{}

func (UpstreamClosed) isEvent() {}
