// Package status answers the Minecraft server-list ping: a status-intent
// handshake gets a fixed JSON response, and the subsequent ping frame is
// echoed back verbatim.
package status

import (
	"encoding/json"
	"fmt"
	"net"

	"github.com/kauri-off/voxelproxy/internal/mcproto"
	"github.com/kauri-off/voxelproxy/internal/wire"
)

// Response is the JSON body served for a status request.
type Response struct {
	Version     VersionInfo `json:"version"`
	Players     PlayersInfo `json:"players"`
	Description string      `json:"description"`
}

type VersionInfo struct {
	Name     string `json:"name"`
	Protocol int    `json:"protocol"`
}

type PlayersInfo struct {
	Max    int `json:"max"`
	Online int `json:"online"`
}

// Default is the status advertised by this proxy: it never reflects real
// player counts, since the proxy itself isn't the authoritative server.
var Default = Response{
	Version:     VersionInfo{Name: "1.16.5", Protocol: mcproto.ProtocolVersion},
	Players:     PlayersInfo{Max: 20, Online: 0},
	Description: "A Minecraft Server",
}

// Serve answers one status-intent connection: the JSON status response to
// the status request (packet ID 0), then an echo of whatever ping frame
// (packet ID 1) follows, until the peer disconnects.
func Serve(conn net.Conn, resp Response) error {
	for {
		frame, err := wire.ReadFrame(conn)
		if err != nil {
			return nil // peer disconnected; nothing left to serve
		}
		dp, err := wire.Decode(frame, nil)
		if err != nil {
			return fmt.Errorf("status: decoding frame: %w", err)
		}

		switch dp.ID {
		case mcproto.PacketStatusRequest:
			if err := writeStatusResponse(conn, resp); err != nil {
				return err
			}
		case mcproto.PacketStatusPing:
			if err := wire.WriteFrame(conn, frame); err != nil {
				return fmt.Errorf("status: echoing ping: %w", err)
			}
		}
	}
}

func writeStatusResponse(conn net.Conn, resp Response) error {
	body, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("status: marshalling response: %w", err)
	}
	w := wire.NewWriter(len(body) + 4)
	w.WriteString(string(body))
	frame, err := wire.Encode(nil, mcproto.PacketStatusRequest, w.Bytes())
	if err != nil {
		return fmt.Errorf("status: encoding response frame: %w", err)
	}
	return wire.WriteFrame(conn, frame)
}
