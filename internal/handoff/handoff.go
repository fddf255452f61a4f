// Package handoff implements the login handoff orchestration: the routine
// that runs once per session, before the controller exists, to make two
// independent client connections look like a single player to the upstream
// server.
package handoff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/kauri-off/voxelproxy/internal/mcproto"
	"github.com/kauri-off/voxelproxy/internal/wire"
)

// ErrAborted is returned when the handoff could not complete and both
// clients have already been sent a LoginDisconnect explaining why. Callers
// should simply close both connections; no further action is needed.
var ErrAborted = errors.New("handoff: aborted")

// Dialer opens the upstream connection. Implementations typically resolve
// the configured address first (see internal/resolver) before dialing.
type Dialer func(ctx context.Context) (net.Conn, error)

// Result is everything the caller needs to start the session's reader,
// writer and controller actors.
type Result struct {
	Upstream   net.Conn
	Threshold  *int32
	PlayerName string
}

// ReadHandshake reads and decodes the first packet of a new connection.
// Handshakes are always uncompressed, since compression is never
// negotiated before login.
func ReadHandshake(conn net.Conn) (mcproto.Handshake, error) {
	frame, err := wire.ReadFrame(conn)
	if err != nil {
		return mcproto.Handshake{}, fmt.Errorf("handoff: reading handshake frame: %w", err)
	}
	dp, err := wire.Decode(frame, nil)
	if err != nil {
		return mcproto.Handshake{}, fmt.Errorf("handoff: decoding handshake frame: %w", err)
	}
	if dp.ID != mcproto.PacketHandshake {
		return mcproto.Handshake{}, fmt.Errorf("handoff: expected handshake (id 0x00), got 0x%02X", dp.ID)
	}
	return mcproto.DecodeHandshake(dp.Payload)
}

// ReadLoginStart reads and decodes a client's login-state LoginStart.
func ReadLoginStart(conn net.Conn) (mcproto.LoginStart, error) {
	frame, err := wire.ReadFrame(conn)
	if err != nil {
		return mcproto.LoginStart{}, fmt.Errorf("handoff: reading login_start frame: %w", err)
	}
	dp, err := wire.Decode(frame, nil)
	if err != nil {
		return mcproto.LoginStart{}, fmt.Errorf("handoff: decoding login_start frame: %w", err)
	}
	if dp.ID != mcproto.PacketLoginStart {
		return mcproto.LoginStart{}, fmt.Errorf("handoff: expected login_start (id 0x00), got 0x%02X", dp.ID)
	}
	return mcproto.DecodeLoginStart(dp.Payload)
}

// sendLoginDisconnect sends a human-readable LoginDisconnect to conn. Errors
// are deliberately swallowed by callers that are already on an abort path —
// there is nothing left to do about a disconnect write failing.
func sendLoginDisconnect(conn net.Conn, reason string) error {
	frame, err := wire.Encode(nil, mcproto.PacketLoginDisconnect, mcproto.EncodeLoginDisconnect(reason))
	if err != nil {
		return fmt.Errorf("handoff: encoding login_disconnect: %w", err)
	}
	return wire.WriteFrame(conn, frame)
}

// abort sends reason to both clients as a LoginDisconnect and returns
// ErrAborted. Write failures are logged but don't change the returned
// error — the session is ending either way.
func abort(cheat, legit net.Conn, reason string, log *slog.Logger) error {
	if err := sendLoginDisconnect(cheat, reason); err != nil {
		log.Debug("failed to send login_disconnect to cheat client", "error", err)
	}
	if err := sendLoginDisconnect(legit, reason); err != nil {
		log.Debug("failed to send login_disconnect to legit client", "error", err)
	}
	return ErrAborted
}

// Perform runs steps 2 through 4 of the handoff: it expects the caller has
// already accepted the two connections in order and read each one's
// Handshake (step 1 belongs to internal/proxy, which also owns diverting
// status-intent handshakes away from this routine entirely).
func Perform(ctx context.Context, cheat, legit net.Conn, cheatProtocol, legitProtocol int32, upstreamAddress string, dial Dialer, log *slog.Logger) (*Result, error) {
	cheatLogin, err := ReadLoginStart(cheat)
	if err != nil {
		return nil, fmt.Errorf("handoff: reading cheat login_start: %w", err)
	}
	log.Info("cheat client connected", "name", cheatLogin.Name)

	if _, err := ReadLoginStart(legit); err != nil {
		return nil, fmt.Errorf("handoff: reading legit login_start: %w", err)
	}
	log.Info("legit client connected")

	if cheatProtocol != legitProtocol {
		return nil, abort(cheat, legit, "Версии клиентов различаются", log)
	}
	if cheatProtocol != mcproto.ProtocolVersion {
		return nil, abort(cheat, legit, "Для стабильности поддерживается только 1.16.5", log)
	}

	upstream, err := dial(ctx)
	if err != nil {
		return nil, abort(cheat, legit, "Ошибка при подключении к удаленному серверу", log)
	}

	if err := relayHandshakeAndLogin(upstream, cheatProtocol, upstreamAddress, cheatLogin); err != nil {
		_ = upstream.Close()
		return nil, fmt.Errorf("handoff: relaying handshake/login_start upstream: %w", err)
	}

	threshold, err := pumpLoginResponses(upstream, cheat, legit, log)
	if err != nil {
		_ = upstream.Close()
		if errors.Is(err, ErrAborted) {
			return nil, err
		}
		return nil, fmt.Errorf("handoff: reading upstream login responses: %w", err)
	}

	log.Info("login handoff complete", "name", cheatLogin.Name, "compression_threshold", thresholdValue(threshold))
	return &Result{Upstream: upstream, Threshold: threshold, PlayerName: cheatLogin.Name}, nil
}

func thresholdValue(t *int32) any {
	if t == nil {
		return "none"
	}
	return *t
}

// relayHandshakeAndLogin sends the upstream server the handshake that makes
// it think it's talking to one client, followed by the cheat client's
// LoginStart verbatim. server_port is fixed at 25565 — the address the
// dialer actually connected to is a resolver concern, not a protocol one.
func relayHandshakeAndLogin(upstream net.Conn, protocolVersion int32, upstreamAddress string, login mcproto.LoginStart) error {
	hsFrame, err := wire.Encode(nil, mcproto.PacketHandshake, mcproto.EncodeHandshake(mcproto.Handshake{
		ProtocolVersion: protocolVersion,
		ServerAddress:   upstreamAddress,
		ServerPort:      25565,
		NextState:       mcproto.NextStateLogin,
	}))
	if err != nil {
		return fmt.Errorf("encoding handshake: %w", err)
	}
	if err := wire.WriteFrame(upstream, hsFrame); err != nil {
		return fmt.Errorf("writing handshake: %w", err)
	}

	lsPayload := func() []byte {
		w := wire.NewWriter(len(login.Name) + 2)
		w.WriteString(login.Name)
		return w.Bytes()
	}()
	lsFrame, err := wire.Encode(nil, mcproto.PacketLoginStart, lsPayload)
	if err != nil {
		return fmt.Errorf("encoding login_start: %w", err)
	}
	return wire.WriteFrame(upstream, lsFrame)
}

// pumpLoginResponses reads upstream's login-state packets until Login
// Success, per §4.4 step 4. Returns the negotiated compression threshold
// (nil if SetCompression never arrived).
func pumpLoginResponses(upstream, cheat, legit net.Conn, log *slog.Logger) (*int32, error) {
	var threshold *int32

	for {
		frame, err := wire.ReadFrame(upstream)
		if err != nil {
			return nil, fmt.Errorf("reading upstream login packet: %w", err)
		}
		dp, err := wire.Decode(frame, threshold)
		if err != nil {
			return nil, fmt.Errorf("decoding upstream login packet: %w", err)
		}

		switch dp.ID {
		case mcproto.PacketLoginDisconnect:
			reason, derr := mcproto.DecodeLoginDisconnect(dp.Payload)
			if derr != nil {
				reason = "сервер разорвал соединение"
			}
			return nil, abort(cheat, legit, reason, log)

		case mcproto.PacketEncryptionRequest:
			return nil, abort(cheat, legit, "Лицензионный сервер пока не поддерживается", log)

		case mcproto.PacketSetCompression:
			sc, err := mcproto.DecodeSetCompression(dp.Payload)
			if err != nil {
				return nil, fmt.Errorf("decoding set_compression: %w", err)
			}
			// SetCompression itself is always relayed uncompressed — both
			// clients are still expecting the old (no compression) frame
			// layout when they receive it. The new threshold only applies
			// to whatever follows.
			if err := relayFrameTo(nil, dp, cheat, legit); err != nil {
				return nil, err
			}
			threshold = &sc.Threshold
			log.Debug("compression negotiated", "threshold", sc.Threshold)

		case mcproto.PacketLoginSuccess:
			if err := relayFrameTo(threshold, dp, cheat, legit); err != nil {
				return nil, err
			}
			return threshold, nil

		default:
			return nil, fmt.Errorf("unexpected upstream login packet id 0x%02X", dp.ID)
		}
	}
}

// relayFrameTo re-frames a decoded login packet for the given compression
// threshold and writes it to both clients.
func relayFrameTo(threshold *int32, dp wire.DecodedPacket, cheat, legit net.Conn) error {
	frame, err := wire.Encode(threshold, dp.ID, dp.Payload)
	if err != nil {
		return fmt.Errorf("re-framing packet 0x%02X: %w", dp.ID, err)
	}
	if err := wire.WriteFrame(cheat, frame); err != nil {
		return fmt.Errorf("writing packet 0x%02X to cheat client: %w", dp.ID, err)
	}
	if err := wire.WriteFrame(legit, frame); err != nil {
		return fmt.Errorf("writing packet 0x%02X to legit client: %w", dp.ID, err)
	}
	return nil
}
