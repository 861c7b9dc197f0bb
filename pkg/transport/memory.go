package transport

import (
	"sync/atomic"

	"github.com/arxos-protocol/arxos-go/pkg/binder"
)

// MemoryTransport is one end of an in-process link.
type MemoryTransport struct {
	in     *inbox
	peer   *MemoryTransport
	closed atomic.Bool
}

// NewMemoryPair returns two connected transports. Frames sent on one are
// received on the other. size bounds each direction's buffer.
func NewMemoryPair(size int) (*MemoryTransport, *MemoryTransport) {
	a := &MemoryTransport{in: newInbox(size)}
	b := &MemoryTransport{in: newInbox(size)}
	a.peer, b.peer = b, a
	return a, b
}

// Send copies data into the peer's buffer.
func (t *MemoryTransport) Send(data []byte) error {
	if t.closed.Load() || t.peer.closed.Load() {
		return binder.ErrNotConnected
	}
	t.peer.in.push(append([]byte(nil), data...))
	return nil
}

// TryReceive pops the oldest buffered frame.
func (t *MemoryTransport) TryReceive() ([]byte, bool) {
	return t.in.pop()
}

// Inject places a frame into this end's buffer as if the peer had sent it.
// Used to simulate duplicated, reordered or forged deliveries.
func (t *MemoryTransport) Inject(data []byte) {
	t.in.push(append([]byte(nil), data...))
}

// Pending returns the number of buffered inbound frames.
func (t *MemoryTransport) Pending() int {
	return t.in.len()
}

// Dropped returns the number of inbound frames lost to a full buffer.
func (t *MemoryTransport) Dropped() uint64 {
	return t.in.droppedCount()
}

// Close disconnects this end. Sends in either direction then fail.
func (t *MemoryTransport) Close() error {
	t.closed.Store(true)
	return nil
}
