// Package log provides structured protocol logging for radio links.
//
// The core sealing and polling paths drop bad frames silently: a frame that
// fails authentication simply contributes no records. This package gives
// integrators the visibility that silent drop must be paired with. Every
// sent frame, accepted frame, rejection and transport failure can be
// captured as an Event.
//
// It is separate from operational logging (slog). Protocol capture provides
// a complete machine-readable event trace for debugging and analysis.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	logger := log.NewSlogAdapter(slog.Default())
//
//	// For field capture: write to a binary file
//	logger, _ := log.NewFileLogger("/var/log/arxos/link.alog")
//
//	// Both
//	logger := log.NewMultiLogger(slogAdapter, fileLogger)
//
// # Event Types
//
// Events are captured at three layers:
//   - Transport: raw bytes handed to or taken from the Transport
//   - Seal: authentication outcomes (RejectEvent on failure)
//   - Link: binder and mesh state (nonce reservations, counters)
//
// # File Format
//
// Log files are a stream of CBOR-encoded events with integer keys and the
// .alog extension. The arx-log CLI views and summarizes them.
package log
