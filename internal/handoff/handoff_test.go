package handoff

import (
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kauri-off/voxelproxy/internal/mcproto"
	"github.com/kauri-off/voxelproxy/internal/wire"
)

const testTimeout = 500 * time.Millisecond

func withDeadline(t *testing.T, conns ...net.Conn) {
	t.Helper()
	for _, c := range conns {
		require.NoError(t, c.SetDeadline(time.Now().Add(testTimeout)))
	}
}

func writeLoginStart(t *testing.T, conn net.Conn, name string) {
	t.Helper()
	w := wire.NewWriter(len(name) + 2)
	w.WriteString(name)
	frame, err := wire.Encode(nil, mcproto.PacketLoginStart, w.Bytes())
	require.NoError(t, err)
	require.NoError(t, wire.WriteFrame(conn, frame))
}

func readLoginDisconnect(t *testing.T, conn net.Conn) string {
	t.Helper()
	frame, err := wire.ReadFrame(conn)
	require.NoError(t, err)
	dp, err := wire.Decode(frame, nil)
	require.NoError(t, err)
	require.Equal(t, int32(mcproto.PacketLoginDisconnect), dp.ID)
	reason, err := mcproto.DecodeLoginDisconnect(dp.Payload)
	require.NoError(t, err)
	return reason
}

func TestPerform_VersionMismatchAbortsBeforeDialing(t *testing.T) {
	cheatServer, cheatClient := net.Pipe()
	legitServer, legitClient := net.Pipe()
	withDeadline(t, cheatServer, cheatClient, legitServer, legitClient)

	go writeLoginStart(t, cheatClient, "Alice")
	go writeLoginStart(t, legitClient, "Bob")

	dialCalled := false
	dial := func(ctx context.Context) (net.Conn, error) {
		dialCalled = true
		return nil, nil
	}

	resultCh := make(chan error, 1)
	go func() {
		_, err := Perform(context.Background(), cheatServer, legitServer, 754, 755, "play.example.com", dial, slog.Default())
		resultCh <- err
	}()

	reason := readLoginDisconnect(t, cheatClient)
	require.Contains(t, reason, "различаются")
	readLoginDisconnect(t, legitClient)

	require.ErrorIs(t, <-resultCh, ErrAborted)
	require.False(t, dialCalled)
}

func TestPerform_UnsupportedProtocolAborts(t *testing.T) {
	cheatServer, cheatClient := net.Pipe()
	legitServer, legitClient := net.Pipe()
	withDeadline(t, cheatServer, cheatClient, legitServer, legitClient)

	go writeLoginStart(t, cheatClient, "Alice")
	go writeLoginStart(t, legitClient, "Bob")

	dial := func(ctx context.Context) (net.Conn, error) { return nil, nil }

	resultCh := make(chan error, 1)
	go func() {
		_, err := Perform(context.Background(), cheatServer, legitServer, 755, 755, "play.example.com", dial, slog.Default())
		resultCh <- err
	}()

	readLoginDisconnect(t, cheatClient)
	readLoginDisconnect(t, legitClient)
	require.ErrorIs(t, <-resultCh, ErrAborted)
}

func TestPerform_HappyPath(t *testing.T) {
	cheatServer, cheatClient := net.Pipe()
	legitServer, legitClient := net.Pipe()
	upstreamServer, upstreamClient := net.Pipe()
	withDeadline(t, cheatServer, cheatClient, legitServer, legitClient, upstreamServer, upstreamClient)

	go writeLoginStart(t, cheatClient, "Alice")
	go writeLoginStart(t, legitClient, "Bob")

	dial := func(ctx context.Context) (net.Conn, error) { return upstreamClient, nil }

	resultCh := make(chan *Result, 1)
	errCh := make(chan error, 1)
	go func() {
		res, err := Perform(context.Background(), cheatServer, legitServer, 754, 754, "play.example.com", dial, slog.Default())
		resultCh <- res
		errCh <- err
	}()

	// Upstream side: read handshake + login start, then answer with
	// SetCompression followed by LoginSuccess.
	hsFrame, err := wire.ReadFrame(upstreamServer)
	require.NoError(t, err)
	hsDP, err := wire.Decode(hsFrame, nil)
	require.NoError(t, err)
	require.Equal(t, int32(mcproto.PacketHandshake), hsDP.ID)
	hs, err := mcproto.DecodeHandshake(hsDP.Payload)
	require.NoError(t, err)
	require.Equal(t, "play.example.com", hs.ServerAddress)
	require.EqualValues(t, 25565, hs.ServerPort)

	lsFrame, err := wire.ReadFrame(upstreamServer)
	require.NoError(t, err)
	lsDP, err := wire.Decode(lsFrame, nil)
	require.NoError(t, err)
	require.Equal(t, int32(mcproto.PacketLoginStart), lsDP.ID)
	ls, err := mcproto.DecodeLoginStart(lsDP.Payload)
	require.NoError(t, err)
	require.Equal(t, "Alice", ls.Name)

	scFrame, err := wire.Encode(nil, mcproto.PacketSetCompression, mcprotoSetCompressionPayload(256))
	require.NoError(t, err)
	require.NoError(t, wire.WriteFrame(upstreamServer, scFrame))

	// Both clients receive the SetCompression (uncompressed) before the
	// handoff loops back to read the next upstream packet.
	cheatSC, err := wire.ReadFrame(cheatClient)
	require.NoError(t, err)
	cheatSCDP, err := wire.Decode(cheatSC, nil)
	require.NoError(t, err)
	require.Equal(t, int32(mcproto.PacketSetCompression), cheatSCDP.ID)

	legitSC, err := wire.ReadFrame(legitClient)
	require.NoError(t, err)
	_, err = wire.Decode(legitSC, nil)
	require.NoError(t, err)

	lsuFrame, err := wire.Encode(func() *int32 { v := int32(256); return &v }(), mcproto.PacketLoginSuccess, []byte("opaque-login-success-body"))
	require.NoError(t, err)
	require.NoError(t, wire.WriteFrame(upstreamServer, lsuFrame))

	threshold := int32(256)
	cheatLS, err := wire.ReadFrame(cheatClient)
	require.NoError(t, err)
	cheatLSDP, err := wire.Decode(cheatLS, &threshold)
	require.NoError(t, err)
	require.Equal(t, int32(mcproto.PacketLoginSuccess), cheatLSDP.ID)

	legitLS, err := wire.ReadFrame(legitClient)
	require.NoError(t, err)
	_, err = wire.Decode(legitLS, &threshold)
	require.NoError(t, err)

	res := <-resultCh
	require.NoError(t, <-errCh)
	require.NotNil(t, res)
	require.Equal(t, "Alice", res.PlayerName)
	require.NotNil(t, res.Threshold)
	require.EqualValues(t, 256, *res.Threshold)
	require.Equal(t, upstreamClient, res.Upstream)
}

func mcprotoSetCompressionPayload(threshold int32) []byte {
	w := wire.NewWriter(4)
	w.WriteVarInt(threshold)
	return w.Bytes()
}
