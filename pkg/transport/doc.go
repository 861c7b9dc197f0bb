// Package transport provides binder.Transport implementations.
//
// Three transports are provided:
//
//   - MemoryTransport: a bounded in-process queue pair, for tests and for
//     wiring two binders in one process.
//   - StreamTransport: sealed frames over any byte stream (TCP, a serial
//     port, a pipe), each framed with a 4-byte big-endian length prefix.
//   - UDPTransport: one sealed frame per datagram, for IP gateways that
//     bridge a radio link.
//
// # Stream Framing
//
//	┌──────────────────┬──────────────────────────────┐
//	│ length (4B, BE)  │ sealed frame (length bytes)  │
//	└──────────────────┴──────────────────────────────┘
//
// Network transports run a reader goroutine that fills a bounded inbox.
// TryReceive only pops from the inbox and never blocks. When the inbox is
// full the oldest frame is dropped and counted.
package transport
