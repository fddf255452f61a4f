package session

import (
	"log/slog"
	"net"

	"github.com/kauri-off/voxelproxy/internal/wire"
)

// RunClientReader reads framed packets from a client connection and emits
// them onto events as ClientData(who, ...), until a read fails, at which
// point it emits exactly one ClientDisconnected(who) and returns. Readers
// never decode packets or retry failed reads — both are the controller's
// job and a terminal condition for the actor, respectively.
func RunClientReader(who Peer, conn net.Conn, events chan<- Event, log *slog.Logger) {
	for {
		frame, err := wire.ReadFrame(conn)
		if err != nil {
			log.Debug("client reader stopped", "peer", who, "error", err)
			events <- ClientDisconnected{Who: who}
			return
		}
		events <- ClientData{Who: who, Frame: frame}
	}
}

// RunUpstreamReader reads framed packets from the upstream connection and
// emits them as ServerData, until a read fails, at which point it emits
// UpstreamClosed and returns. There is no reconnection: the session always
// ends when the upstream reader exits.
func RunUpstreamReader(conn net.Conn, events chan<- Event, log *slog.Logger) {
	for {
		frame, err := wire.ReadFrame(conn)
		if err != nil {
			log.Debug("upstream reader stopped", "error", err)
			events <- UpstreamClosed{}
			return
		}
		events <- ServerData{Frame: frame}
	}
}
