// Package proxy owns the listening socket: it accepts connections, reads
// each one's Handshake to tell status pings from login attempts apart,
// pairs the first two login-intent connections into one session, and
// wires the login handoff into a running controller.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kauri-off/voxelproxy/internal/config"
	"github.com/kauri-off/voxelproxy/internal/handoff"
	"github.com/kauri-off/voxelproxy/internal/mcproto"
	"github.com/kauri-off/voxelproxy/internal/resolver"
	"github.com/kauri-off/voxelproxy/internal/session"
	"github.com/kauri-off/voxelproxy/internal/status"
)

// Server is the proxy's single listening socket and the pairing logic
// that turns a stream of inbound connections into sessions.
type Server struct {
	cfg config.Config
	log *slog.Logger

	listener net.Listener

	// pairMu guards pending/pendingHS/hasPending: handshakes are read
	// concurrently (one goroutine per accepted connection), but pairing
	// them is a shared, ordered decision.
	pairMu sync.Mutex
	// pending holds a login-intent connection plus its handshake while we
	// wait for its pairing partner. Only one pairing can be in flight at a
	// time, since §4.4 pairs the first two *consecutive* login-intent
	// connections.
	pending    net.Conn
	pendingHS  mcproto.Handshake
	hasPending bool
}

// NewServer builds a Server ready to Run.
func NewServer(cfg config.Config, log *slog.Logger) *Server {
	return &Server{cfg: cfg, log: log}
}

// Addr returns the address the server is listening on, or nil before Run.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run starts the listener and serves until ctx is cancelled or a fatal
// error occurs.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr())
	if err != nil {
		return fmt.Errorf("proxy: listening on %s: %w", s.cfg.ListenAddr(), err)
	}
	s.listener = ln
	return s.Serve(ctx, ln)
}

// Serve accepts connections from ln until ctx is cancelled. Exposed
// separately from Run so tests can supply their own listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		return ln.Close()
	})

	s.log.Info("voxelproxy starting", "listen", ln.Addr())
	if ip, err := localIP(); err == nil {
		s.log.Info("connect the cheat client first", "local_ip", ip, "port", s.cfg.ListenPort)
	}

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Error("accept failed", "error", err)
			continue
		}
		g.Go(func() error {
			s.handleConnection(gctx, conn)
			return nil
		})
	}
}

// handleConnection reads the inbound Handshake and routes the connection:
// status-intent goes to internal/status, login-intent is diverted into
// the cheat/legit pairing state machine.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	hs, err := handoff.ReadHandshake(conn)
	if err != nil {
		s.log.Debug("failed to read handshake, dropping connection", "error", err)
		conn.Close()
		return
	}

	switch hs.NextState {
	case mcproto.NextStateStatus:
		if err := status.Serve(conn, s.statusResponse()); err != nil {
			s.log.Debug("status handler exited with error", "error", err)
		}
		conn.Close()
	case mcproto.NextStateLogin:
		s.pairLogin(ctx, conn, hs)
	default:
		s.log.Debug("handshake requested unknown next_state, dropping", "next_state", hs.NextState)
		conn.Close()
	}
}

func (s *Server) statusResponse() status.Response {
	resp := status.Default
	resp.Description = s.cfg.StatusDescription
	return resp
}

// pairLogin implements the strict pairing rule: the first login-intent
// connection waits as cheat, the second completes the pair as legit and
// starts the session. Only one pairing is ever in flight.
func (s *Server) pairLogin(ctx context.Context, conn net.Conn, hs mcproto.Handshake) {
	s.pairMu.Lock()
	if !s.hasPending {
		s.pending = conn
		s.pendingHS = hs
		s.hasPending = true
		s.pairMu.Unlock()
		s.log.Info("cheat client connected, waiting for legit client", "remote", conn.RemoteAddr())
		return
	}

	cheatConn, cheatHS := s.pending, s.pendingHS
	s.pending, s.hasPending = nil, false
	s.pairMu.Unlock()

	s.runSession(ctx, cheatConn, cheatHS, conn, hs)
}

// runSession performs the login handoff and, on success, runs the
// reader/writer/controller actors until the session ends.
func (s *Server) runSession(ctx context.Context, cheat net.Conn, cheatHS mcproto.Handshake, legit net.Conn, legitHS mcproto.Handshake) {
	defer cheat.Close()
	defer legit.Close()

	log := s.log.With("player", "pending")

	dial := func(ctx context.Context) (net.Conn, error) {
		addr, err := resolver.Resolve(ctx, s.cfg.UpstreamAddress)
		if err != nil {
			return nil, err
		}
		var d net.Dialer
		return d.DialContext(ctx, "tcp", addr)
	}

	result, err := handoff.Perform(ctx, cheat, legit, cheatHS.ProtocolVersion, legitHS.ProtocolVersion, s.cfg.UpstreamAddress, dial, log)
	if err != nil {
		if !errors.Is(err, handoff.ErrAborted) {
			log.Error("login handoff failed", "error", err)
		}
		return
	}
	defer result.Upstream.Close()

	log = log.With("player", result.PlayerName)
	log.Info("session starting")

	events := make(chan session.Event, 3*s.cfg.WriterQueueCapacity)

	cheatWriter := session.NewWriter("cheat", cheat, log, s.cfg.WriterQueueCapacity)
	legitWriter := session.NewWriter("legit", legit, log, s.cfg.WriterQueueCapacity)
	upstreamWriter := session.NewWriter("upstream", result.Upstream, log, s.cfg.WriterQueueCapacity)

	var wg errgroup.Group
	wg.Go(func() error { cheatWriter.Run(); return nil })
	wg.Go(func() error { legitWriter.Run(); return nil })
	wg.Go(func() error { upstreamWriter.Run(); return nil })
	wg.Go(func() error { session.RunClientReader(session.Cheat, cheat, events, log); return nil })
	wg.Go(func() error { session.RunClientReader(session.Legit, legit, events, log); return nil })
	wg.Go(func() error { session.RunUpstreamReader(result.Upstream, events, log); return nil })

	ctrl := session.NewController(session.NewState(result.Threshold), events, cheatWriter, legitWriter, upstreamWriter, log)
	ctrl.Run()

	// The controller has decided the session is over. Closing every
	// connection unblocks the reader actors (their next read fails) and
	// the writer actors (closeCh), without racing a send on a closed
	// events channel — nothing reads events once Run has returned, so it
	// is simply left for the garbage collector.
	cheatWriter.Close()
	legitWriter.Close()
	upstreamWriter.Close()

	wg.Wait()
	log.Info("session ended")
}

// localIP returns the first non-loopback IPv4 address of this host, for
// the operator-facing "connect to this address" log line.
func localIP() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4.String(), nil
		}
	}
	return "", fmt.Errorf("proxy: no non-loopback IPv4 address found")
}
