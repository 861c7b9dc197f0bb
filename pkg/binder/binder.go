// Package binder exchanges sealed record frames with one peer over a
// point-to-point Transport, for device pairing and offline sync.
//
// A Binder owns a shared key, a sender identity, a nonce counter and an
// inbound replay acceptor. Send packs records with a frame index header,
// seals every frame under a fresh nonce and hands the wire bytes to the
// transport. Poll drains the transport and returns the records of every
// frame that authenticates and is not a replay. Rejected frames are dropped
// silently; Stats and the protocol log make them visible.
//
// A Binder is not safe for concurrent use. Each link should be owned by a
// single goroutine.
package binder

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/arxos-protocol/arxos-go/pkg/auth"
	"github.com/arxos-protocol/arxos-go/pkg/frame"
	"github.com/arxos-protocol/arxos-go/pkg/log"
	"github.com/arxos-protocol/arxos-go/pkg/persistence"
	"github.com/arxos-protocol/arxos-go/pkg/record"
	"github.com/arxos-protocol/arxos-go/pkg/replay"
	"github.com/arxos-protocol/arxos-go/pkg/seal"
)

// DefaultNonceBlock is the number of nonces reserved per store write.
const DefaultNonceBlock = 1024

// ErrNonceReservation indicates the nonce store could not persist a new
// reservation. No frame is sent under an unreserved nonce.
var ErrNonceReservation = errors.New("binder: nonce reservation failed")

// Config configures a Binder.
type Config struct {
	// Key is the shared 32-byte link key.
	Key auth.Key

	// SenderID and KeyVersion are written into every security header.
	SenderID   uint16
	KeyVersion uint8

	// Frame is the frame budget, for example frame.MeshtasticLoRa.
	Frame frame.Config

	// ReplayCapacity is the inbound replay history per sender.
	// Zero selects replay.DefaultCapacity.
	ReplayCapacity int

	// InitialNonce is the first nonce used when no nonce store is set or
	// the store holds nothing for this link.
	InitialNonce uint32
}

// Stats counts frames by outcome.
type Stats struct {
	FramesSent      uint64
	RecordsSent     uint64
	FramesAccepted  uint64
	RecordsReceived uint64
	Malformed       uint64
	AuthFailed      uint64
	Replayed        uint64
	TransportErrors uint64
}

// Rejected returns the total number of inbound frames dropped.
func (s Stats) Rejected() uint64 {
	return s.Malformed + s.AuthFailed + s.Replayed
}

// Option configures optional Binder behavior.
type Option func(*Binder)

// WithLogger sets the protocol event logger.
func WithLogger(logger log.Logger) Option {
	return func(b *Binder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithNonceStore persists nonce reservations so a restarted binder never
// reuses a nonce. block is the reservation size; non-positive selects
// DefaultNonceBlock.
func WithNonceStore(store persistence.NonceStore, block int) Option {
	return func(b *Binder) {
		b.store = store
		if block > 0 {
			b.block = uint32(block)
		}
	}
}

// WithAcceptor replaces the default replay.Guard, for example with a
// replay.Window or an acceptor shared between links.
func WithAcceptor(a replay.Acceptor) Option {
	return func(b *Binder) {
		if a != nil {
			b.guard = a
		}
	}
}

// WithLinkID sets the identifier used in log events. The default is a
// random UUID.
func WithLinkID(id string) Option {
	return func(b *Binder) {
		if id != "" {
			b.linkID = id
		}
	}
}

// Binder is one end of a sealed point-to-point link.
type Binder struct {
	cfg       Config
	mac       auth.MAC
	transport Transport
	guard     replay.Acceptor
	logger    log.Logger
	linkID    string

	nonce uint32

	store     persistence.NonceStore
	block     uint32
	remaining uint32

	stats Stats
}

// New creates a binder over transport.
func New(cfg Config, transport Transport, opts ...Option) (*Binder, error) {
	if transport == nil {
		return nil, fmt.Errorf("binder: nil transport")
	}
	if err := cfg.Frame.Validate(); err != nil {
		return nil, fmt.Errorf("binder: %w", err)
	}

	b := &Binder{
		cfg:       cfg,
		mac:       auth.NewMAC(cfg.Key),
		transport: transport,
		guard:     replay.NewGuard(cfg.ReplayCapacity),
		logger:    log.NoopLogger{},
		linkID:    uuid.New().String(),
		nonce:     cfg.InitialNonce,
		block:     DefaultNonceBlock,
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.store != nil {
		next, ok, err := b.store.LoadNonce(b.linkKey())
		if err != nil {
			return nil, fmt.Errorf("binder: load nonce: %w", err)
		}
		if ok {
			b.nonce = next
		}
	}

	b.logState(log.StateEntityLink, "", "OPEN", "")
	return b, nil
}

// LinkID returns the identifier used in log events.
func (b *Binder) LinkID() string {
	return b.linkID
}

// NextNonce returns the nonce the next sealed frame will use.
func (b *Binder) NextNonce() uint32 {
	return b.nonce
}

// Stats returns a snapshot of the frame counters.
func (b *Binder) Stats() Stats {
	return b.stats
}

// Send packs, seals and transmits records. It returns the number of frames
// handed to the transport. An empty record list sends one signaling frame.
//
// On a transport failure Send stops and returns the frames sent so far
// together with the wrapped error. The nonce of the failed frame is not
// reused.
func (b *Binder) Send(records []record.Record) (int, error) {
	frames := frame.Pack(b.cfg.Frame, records, frame.IndexHeader(b.cfg.Frame.HeaderLen))

	for i, f := range frames {
		nonce, err := b.takeNonce()
		if err != nil {
			return i, err
		}

		sec := seal.SecurityHeader{
			SenderID:   b.cfg.SenderID,
			KeyVersion: b.cfg.KeyVersion,
			Nonce:      nonce,
		}
		wire := seal.WireBytes(seal.Seal(b.cfg.Frame, f, sec, b.mac))

		if err := b.transport.Send(wire); err != nil {
			b.stats.TransportErrors++
			b.logError(log.LayerTransport, err, "send")
			return i, fmt.Errorf("send frame %d of %d: %w", i+1, len(frames), err)
		}

		b.stats.FramesSent++
		b.stats.RecordsSent += uint64(f.RecordCount())
		b.logger.Log(log.Event{
			Timestamp: timeNow(),
			LinkID:    b.linkID,
			Direction: log.DirectionOut,
			Layer:     log.LayerSeal,
			Category:  log.CategoryFrame,
			SenderID:  b.cfg.SenderID,
			Frame:     frameEvent(wire, nonce, f),
		})
	}
	return len(frames), nil
}

// Poll drains every frame currently buffered by the transport and returns
// the records of the accepted ones in arrival order. Rejected frames
// contribute nothing.
func (b *Binder) Poll() []record.Record {
	var out []record.Record
	for {
		data, ok := b.transport.TryReceive()
		if !ok {
			return out
		}
		out = append(out, b.receive(data)...)
	}
}

func (b *Binder) receive(data []byte) []record.Record {
	sealed, err := seal.SplitWire(b.cfg.Frame, data)
	if err != nil {
		b.stats.Malformed++
		b.logReject(log.RejectMalformed, data, seal.SecurityHeader{})
		return nil
	}

	sec, inner, err := seal.OpenHeader(b.cfg.Frame, sealed, b.mac, b.guard)
	switch {
	case err == nil:
	case errors.Is(err, seal.ErrAuthFailed):
		b.stats.AuthFailed++
		b.logReject(log.RejectAuthFailed, data, sec)
		return nil
	case errors.Is(err, seal.ErrReplayed):
		b.stats.Replayed++
		b.logReject(log.RejectReplayed, data, sec)
		return nil
	default:
		b.stats.Malformed++
		b.logReject(log.RejectMalformed, data, sec)
		return nil
	}

	records := frame.Unpack([]frame.Frame{inner})
	b.stats.FramesAccepted++
	b.stats.RecordsReceived += uint64(len(records))

	b.logger.Log(log.Event{
		Timestamp: timeNow(),
		LinkID:    b.linkID,
		Direction: log.DirectionIn,
		Layer:     log.LayerSeal,
		Category:  log.CategoryFrame,
		SenderID:  sec.SenderID,
		Frame:     frameEvent(data, sec.Nonce, inner),
	})
	return records
}

// takeNonce returns the next nonce, reserving a new block first when a
// store is configured and the current block is used up.
func (b *Binder) takeNonce() (uint32, error) {
	if b.store != nil && b.remaining == 0 {
		limit := b.nonce + b.block
		if err := b.store.SaveNonce(b.linkKey(), limit); err != nil {
			b.logError(log.LayerLink, err, "reserve nonces")
			return 0, fmt.Errorf("%w: %v", ErrNonceReservation, err)
		}
		b.remaining = b.block
		b.logState(log.StateEntityNonce, fmt.Sprint(b.nonce), fmt.Sprint(limit), "reserved")
	}

	n := b.nonce
	b.nonce++
	if b.store != nil {
		b.remaining--
	}
	return n, nil
}

func (b *Binder) linkKey() persistence.LinkKey {
	return persistence.LinkKey{SenderID: b.cfg.SenderID, KeyVersion: b.cfg.KeyVersion}
}
