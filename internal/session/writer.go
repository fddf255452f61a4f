package session

import (
	"log/slog"
	"net"
	"sync"

	"github.com/kauri-off/voxelproxy/internal/wire"
)

// DefaultQueueCapacity is the recommended bound on a peer writer's private
// frame queue. A slow peer fills its queue and the controller's send to it
// then blocks, propagating backpressure to whichever reader produced the
// frame — this is the only backpressure mechanism in the session.
const DefaultQueueCapacity = 100

// Writer owns the write half of one peer's socket (cheat, legit or
// upstream). It dequeues frames from its private channel and writes them
// sequentially; it never touches session state and is never read from by
// anything other than its own goroutine.
type Writer struct {
	name string
	conn net.Conn
	log  *slog.Logger

	sendCh  chan wire.RawFrame
	closeCh chan struct{}
	closeOnce sync.Once
}

// NewWriter creates a writer actor for conn. Call Run in its own goroutine.
func NewWriter(name string, conn net.Conn, log *slog.Logger, capacity int) *Writer {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Writer{
		name:    name,
		conn:    conn,
		log:     log,
		sendCh:  make(chan wire.RawFrame, capacity),
		closeCh: make(chan struct{}),
	}
}

// Send enqueues a frame for writing. It blocks if the queue is full,
// which is the intended backpressure path. It silently drops the frame if
// the writer has already stopped.
func (w *Writer) Send(f wire.RawFrame) {
	select {
	case w.sendCh <- f:
	case <-w.closeCh:
	}
}

// Close stops the writer and releases its socket. Safe to call more than
// once and from multiple goroutines.
func (w *Writer) Close() {
	w.closeOnce.Do(func() {
		close(w.closeCh)
		_ = w.conn.Close()
	})
}

// Run drains the send queue and writes each frame to the socket in order,
// until Close is called or a write fails. Frames still queued when Close is
// called are not written. Intended to run in its own goroutine for the life
// of the session.
func (w *Writer) Run() {
	defer w.Close()
	for {
		select {
		case f := <-w.sendCh:
			if err := wire.WriteFrame(w.conn, f); err != nil {
				w.log.Debug("writer stopped on write error", "peer", w.name, "error", err)
				return
			}
		case <-w.closeCh:
			return
		}
	}
}
