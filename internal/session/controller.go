package session

import (
	"log/slog"

	"github.com/kauri-off/voxelproxy/internal/mcproto"
	"github.com/kauri-off/voxelproxy/internal/wire"
)

// Controller is the single owner of session state. It consumes the merged
// event stream produced by the three reader actors and decides which peer
// writers receive each frame. Nothing else in the session ever reads or
// mutates State — that's what lets this run lock-free.
type Controller struct {
	state State
	log   *slog.Logger

	events <-chan Event

	cheatWriter    *Writer
	legitWriter    *Writer
	upstreamWriter *Writer
}

// NewController builds a controller ready to run. state is normally the
// result of NewState right after a successful login handoff.
func NewController(state State, events <-chan Event, cheatWriter, legitWriter, upstreamWriter *Writer, log *slog.Logger) *Controller {
	return &Controller{
		state:          state,
		log:            log,
		events:         events,
		cheatWriter:    cheatWriter,
		legitWriter:    legitWriter,
		upstreamWriter: upstreamWriter,
	}
}

// Run consumes events until the session ends: both clients disconnected, or
// the upstream reader exits. It never returns early for any other reason.
func (c *Controller) Run() {
	for ev := range c.events {
		switch e := ev.(type) {
		case ClientData:
			c.handleClientData(e.Who, e.Frame)
		case ClientDisconnected:
			if c.handleDisconnect(e.Who) {
				return
			}
		case ServerData:
			c.handleServerData(e.Frame)
		case UpstreamClosed:
			c.log.Info("session ending: upstream reader closed")
			return
		}
	}
}

func (c *Controller) writerFor(p Peer) *Writer {
	if p == Cheat {
		return c.cheatWriter
	}
	return c.legitWriter
}

// routeOpaque applies the base routing contract: only the active client's
// frames reach upstream; the passive client's frames are always dropped
// here (P1, P2).
func (c *Controller) routeOpaque(who Peer, frame wire.RawFrame) {
	if who == c.state.Active {
		c.upstreamWriter.Send(frame)
	}
}

// handleClientData only pays for PeekID's cheap ID lookup on the common
// path; the small set of packet IDs the controller actually acts on is the
// only thing that ever reaches a full Decode.
func (c *Controller) handleClientData(who Peer, frame wire.RawFrame) {
	id, err := wire.PeekID(frame, c.state.Threshold)
	if err != nil {
		// Malformed frame: don't attempt to repair it, route opaquely per
		// the normal contract (forwarded if active, dropped if passive).
		c.log.Debug("failed to peek client frame id, routing opaquely", "peer", who, "error", err)
		c.routeOpaque(who, frame)
		return
	}

	switch id {
	case mcproto.PacketTransactionServerbound:
		c.handleClientTransaction(who, frame)
	case mcproto.PacketPosition, mcproto.PacketPositionLook, mcproto.PacketLook:
		c.handleClientMovement(who, frame, id)
	default:
		c.routeOpaque(who, frame)
	}
}

func (c *Controller) handleClientMovement(who Peer, frame wire.RawFrame, packetID int32) {
	if who == c.state.Active && c.state.bothAlive() {
		dp, err := wire.Decode(frame, c.state.Threshold)
		if err != nil {
			c.log.Debug("failed to decode movement packet, skipping pose sync", "peer", who, "error", err)
		} else if err := c.applyMovement(packetID, dp.Payload); err != nil {
			c.log.Debug("failed to decode movement packet, skipping pose sync", "peer", who, "error", err)
		} else {
			c.syncPassivePose(who.Other())
		}
	}
	c.routeOpaque(who, frame)
}

func (c *Controller) applyMovement(packetID int32, payload []byte) error {
	switch packetID {
	case mcproto.PacketPosition:
		p, err := mcproto.DecodePosition(payload)
		if err != nil {
			return err
		}
		c.state.Position.X, c.state.Position.Y, c.state.Position.Z = p.X, p.Y, p.Z
	case mcproto.PacketPositionLook:
		p, err := mcproto.DecodePositionLook(payload)
		if err != nil {
			return err
		}
		c.state.Position.X, c.state.Position.Y, c.state.Position.Z = p.X, p.Y, p.Z
		c.state.Position.Yaw, c.state.Position.Pitch = p.Yaw, p.Pitch
	case mcproto.PacketLook:
		l, err := mcproto.DecodeLook(payload)
		if err != nil {
			return err
		}
		c.state.Position.Yaw, c.state.Position.Pitch = l.Yaw, l.Pitch
	}
	return nil
}

// syncPassivePose synthesises the teleport that keeps the passive client's
// view of the avatar consistent with the active client's latest pose (§4.1.1).
func (c *Controller) syncPassivePose(passive Peer) {
	payload := mcproto.EncodePlayerPositionLook(mcproto.PlayerPositionLook{
		X:          c.state.Position.X,
		Y:          c.state.Position.Y,
		Z:          c.state.Position.Z,
		Yaw:        c.state.Position.Yaw,
		Pitch:      c.state.Position.Pitch,
		Flags:      0,
		TeleportID: 0,
	})
	frame, err := wire.Encode(c.state.Threshold, mcproto.PacketPlayerPositionLook, payload)
	if err != nil {
		c.log.Error("failed to encode pose sync frame", "error", err)
		return
	}
	c.writerFor(passive).Send(frame)
}

func (c *Controller) handleClientTransaction(who Peer, frame wire.RawFrame) {
	dp, err := wire.Decode(frame, c.state.Threshold)
	if err != nil {
		c.log.Debug("failed to decode transaction ack, routing opaquely", "peer", who, "error", err)
		c.routeOpaque(who, frame)
		return
	}
	t, err := mcproto.DecodeTransaction(dp.Payload)
	if err != nil {
		c.log.Debug("failed to decode transaction ack, routing opaquely", "peer", who, "error", err)
		c.routeOpaque(who, frame)
		return
	}

	if c.state.bothAlive() {
		for i := range c.state.Pending {
			if c.state.Pending[i].Action != t.Action {
				continue
			}
			c.state.Pending[i] = c.state.Pending[i].confirm(who)
			if c.state.Pending[i].bothConfirmed() {
				c.state.Pending = append(c.state.Pending[:i], c.state.Pending[i+1:]...)
			}
			break
		}
		c.routeOpaque(who, frame)
		return
	}

	// Degraded: who is the sole remaining client. If the head of the queue
	// matches this ack and was already confirmed by the now-dead peer, the
	// head is dropped and this ack does not reach upstream.
	dead := who.Other()
	if len(c.state.Pending) > 0 {
		head := c.state.Pending[0]
		if head.Action == t.Action && head.confirmed(dead) {
			c.state.Pending = c.state.Pending[1:]
			c.log.Debug("dropping redundant transaction ack", "action", t.Action)
			return
		}
	}
	c.routeOpaque(who, frame)
}

func (c *Controller) handleServerData(frame wire.RawFrame) {
	id, err := wire.PeekID(frame, c.state.Threshold)
	if err == nil && id == mcproto.PacketTransactionClientbound {
		dp, derr := wire.Decode(frame, c.state.Threshold)
		if derr != nil {
			c.log.Debug("failed to decode server transaction frame", "error", derr)
		} else if t, terr := mcproto.DecodeTransaction(dp.Payload); terr == nil {
			c.state.Pending = append(c.state.Pending, PendingTransaction{Action: t.Action})
		} else {
			c.log.Debug("failed to decode server transaction", "error", terr)
		}
	}
	c.broadcast(frame)
}

// broadcast delivers a server frame, unchanged, to every currently alive
// client (P4).
func (c *Controller) broadcast(frame wire.RawFrame) {
	if c.state.CheatAlive {
		c.cheatWriter.Send(frame)
	}
	if c.state.LegitAlive {
		c.legitWriter.Send(frame)
	}
}

// handleDisconnect applies §4.1.3/§4.1.4. It returns true when the session
// must end (the second client just went away).
func (c *Controller) handleDisconnect(who Peer) bool {
	if !c.state.Alive(who) {
		// Already marked dead; nothing left to do but this shouldn't recur
		// in practice since the reader that produced it has exited once.
		// The session ends only if the other client is gone as well.
		return !c.state.Alive(who.Other())
	}

	otherWasAlive := c.state.Alive(who.Other())
	c.state.setAlive(who, false)

	if who == c.state.Active && otherWasAlive {
		newActive := who.Other()
		c.state.Active = newActive
		c.log.Info("active client disconnected, failing over", "from", who, "to", newActive)
		c.replayTransactions(newActive)
	} else {
		c.log.Info("client disconnected", "peer", who)
	}

	return !otherWasAlive
}

// replayTransactions implements §4.1.2's failover replay: every pending
// entry the new-active client already confirmed gets its confirmation
// replayed upstream, in arrival order, ahead of any further client
// traffic; entries it never confirmed are dropped.
func (c *Controller) replayTransactions(newActive Peer) {
	kept := c.state.Pending[:0]
	for _, pt := range c.state.Pending {
		if !pt.confirmed(newActive) {
			continue
		}
		payload := mcproto.EncodeTransaction(mcproto.Transaction{
			WindowID: 0,
			Action:   pt.Action,
			Accepted: true,
		})
		frame, err := wire.Encode(c.state.Threshold, mcproto.PacketTransactionServerbound, payload)
		if err != nil {
			c.log.Error("failed to encode replayed transaction", "action", pt.Action, "error", err)
			continue
		}
		c.upstreamWriter.Send(frame)
		kept = append(kept, pt)
	}
	c.state.Pending = kept
}
