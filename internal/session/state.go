// Package session implements the dual-client controller: the state machine
// that routes frames between a cheat client, a legit client and the
// upstream server, keeps the passive client's pose in sync, preserves the
// transaction protocol across a failover, and handles partial disconnects
// without tearing down the upstream connection.
package session

// Peer identifies one of the two game clients sharing the session. The
// upstream server is never a Peer — it is addressed directly by the
// controller and never switches role.
type Peer int

const (
	Cheat Peer = iota
	Legit
)

func (p Peer) String() string {
	if p == Cheat {
		return "cheat"
	}
	return "legit"
}

// Other returns the peer that isn't p.
func (p Peer) Other() Peer {
	if p == Cheat {
		return Legit
	}
	return Cheat
}

// Position is the shared avatar's authoritative pose. Position packets only
// touch x/y/z, Look packets only touch yaw/pitch, PositionLook touches all
// five — unset axes always preserve the previous value.
type Position struct {
	X, Y, Z    float64
	Yaw, Pitch float32
}

// PendingTransaction tracks one outstanding server-initiated confirmation
// that both clients are expected to acknowledge before it's dropped.
type PendingTransaction struct {
	Action         int16
	CheatConfirmed bool
	LegitConfirmed bool
}

// confirmed reports whether the given peer's bit is set.
func (pt PendingTransaction) confirmed(p Peer) bool {
	if p == Cheat {
		return pt.CheatConfirmed
	}
	return pt.LegitConfirmed
}

// confirm sets the given peer's bit and returns the updated entry.
func (pt PendingTransaction) confirm(p Peer) PendingTransaction {
	if p == Cheat {
		pt.CheatConfirmed = true
	} else {
		pt.LegitConfirmed = true
	}
	return pt
}

func (pt PendingTransaction) bothConfirmed() bool {
	return pt.CheatConfirmed && pt.LegitConfirmed
}

// State is the controller's single owned aggregate. It is never touched by
// any actor other than the controller goroutine — this is what lets the
// controller dispense with locks entirely.
type State struct {
	Active     Peer
	CheatAlive bool
	LegitAlive bool
	// Threshold is the compression threshold negotiated once during login.
	// nil means compression was never negotiated for this session.
	Threshold *int32
	Position  Position
	Pending   []PendingTransaction
}

// NewState builds the state the controller starts from right after login
// handoff completes: both clients alive, cheat active, no pose yet recorded
// and nothing pending.
func NewState(threshold *int32) State {
	return State{
		Active:     Cheat,
		CheatAlive: true,
		LegitAlive: true,
		Threshold:  threshold,
	}
}

// Alive reports whether peer p is currently alive.
func (s *State) Alive(p Peer) bool {
	if p == Cheat {
		return s.CheatAlive
	}
	return s.LegitAlive
}

func (s *State) setAlive(p Peer, alive bool) {
	if p == Cheat {
		s.CheatAlive = alive
	} else {
		s.LegitAlive = alive
	}
}

// bothAlive reports whether both clients are still connected.
func (s *State) bothAlive() bool {
	return s.CheatAlive && s.LegitAlive
}
