// Package replay rejects frames that were already accepted.
//
// Two acceptors are provided:
//
//   - Guard keeps, per sender, the last N accepted tokens and rejects exact
//     repeats among them. It does not detect repeats older than N accepted
//     frames and does not enforce ordering. This is the default.
//   - Window keeps, per sender, an IPsec-style bitmap over the most recent
//     nonces. It accepts unique nonces arriving out of order inside the
//     window and rejects duplicates and anything older than the window.
//
// Neither type is internally synchronized. Wrap with Locked when an acceptor
// is shared between goroutines.
package replay

import "sync"

// DefaultCapacity is the per-sender history size used when none is given.
const DefaultCapacity = 64

// Acceptor decides whether an authenticated (sender, token) pair is fresh.
// Accept records the token and returns true, or returns false for a replay.
type Acceptor interface {
	Accept(sender uint16, token uint64) bool
}

// Guard is a bounded per-sender FIFO of accepted tokens.
type Guard struct {
	capacity int
	seen     map[uint16][]uint64
}

// NewGuard creates a guard keeping capacity tokens per sender.
// A non-positive capacity selects DefaultCapacity.
func NewGuard(capacity int) *Guard {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Guard{
		capacity: capacity,
		seen:     make(map[uint16][]uint64),
	}
}

// Accept returns false if token is among the sender's retained tokens.
// Otherwise it records token, evicting the oldest entries beyond capacity.
func (g *Guard) Accept(sender uint16, token uint64) bool {
	fifo := g.seen[sender]
	for _, t := range fifo {
		if t == token {
			return false
		}
	}

	fifo = append(fifo, token)
	if over := len(fifo) - g.capacity; over > 0 {
		// Shift in place so the backing array does not grow without bound.
		n := copy(fifo, fifo[over:])
		fifo = fifo[:n]
	}
	g.seen[sender] = fifo
	return true
}

// Capacity returns the per-sender history size.
func (g *Guard) Capacity() int {
	return g.capacity
}

// Len returns the number of tokens retained for sender.
func (g *Guard) Len(sender uint16) int {
	return len(g.seen[sender])
}

// Reset forgets all senders.
func (g *Guard) Reset() {
	g.seen = make(map[uint16][]uint64)
}

// Locked serializes access to an Acceptor.
type Locked struct {
	mu sync.Mutex
	a  Acceptor
}

// NewLocked wraps a so it can be shared between goroutines.
func NewLocked(a Acceptor) *Locked {
	return &Locked{a: a}
}

// Accept calls the wrapped acceptor under the lock.
func (l *Locked) Accept(sender uint16, token uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Accept(sender, token)
}

// Compile-time interface satisfaction checks.
var (
	_ Acceptor = (*Guard)(nil)
	_ Acceptor = (*Window)(nil)
	_ Acceptor = (*Locked)(nil)
)
