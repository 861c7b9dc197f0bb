package binder

import "errors"

// Transport errors. Implementations wrap one of these so callers can
// classify failures with errors.Is.
var (
	// ErrIO indicates an I/O failure on the underlying link.
	ErrIO = errors.New("transport: i/o error")

	// ErrNotConnected indicates the link is down or was closed.
	ErrNotConnected = errors.New("transport: not connected")
)

// Transport moves opaque sealed frames between two peers.
//
// Delivery may drop, duplicate or reorder frames. Send may block for the
// time it takes to hand the frame to the link. TryReceive never blocks.
type Transport interface {
	// Send transmits one frame.
	Send(data []byte) error

	// TryReceive returns the next buffered inbound frame, if any.
	TryReceive() ([]byte, bool)
}
