package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/arxos-protocol/arxos-go/pkg/auth"
	"github.com/arxos-protocol/arxos-go/pkg/binder"
	"github.com/arxos-protocol/arxos-go/pkg/config"
	"github.com/arxos-protocol/arxos-go/pkg/frame"
	"github.com/arxos-protocol/arxos-go/pkg/log"
	"github.com/arxos-protocol/arxos-go/pkg/mesh"
	"github.com/arxos-protocol/arxos-go/pkg/persistence"
	"github.com/arxos-protocol/arxos-go/pkg/record"
	"github.com/arxos-protocol/arxos-go/pkg/replay"
	"github.com/arxos-protocol/arxos-go/pkg/seal"
)

// endpoint is what the commands drive: a point-to-point binder or a mesh
// gateway.
type endpoint interface {
	Send(records []record.Record) (int, error)
	Poll() []record.Record
	Summary() string
}

type binderEndpoint struct {
	*binder.Binder
}

func (b binderEndpoint) Summary() string {
	s := b.Stats()
	return fmt.Sprintf("next nonce %d, sent %d frames / %d records, accepted %d frames / %d records, rejected %d (malformed %d, auth %d, replay %d), transport errors %d",
		b.NextNonce(), s.FramesSent, s.RecordsSent, s.FramesAccepted, s.RecordsReceived,
		s.Rejected(), s.Malformed, s.AuthFailed, s.Replayed, s.TransportErrors)
}

// meshStats counts gateway outcomes.
type meshStats struct {
	PacketsSent     uint64
	PacketsReceived uint64
	NotForUs        uint64
	BadEnvelope     uint64
	Rejected        uint64
	Messages        uint64
}

// meshGateway bridges mesh packets, wrapped in the CBOR envelope, over an
// IP transport. Outbound broadcasts take their nonce seed from the same
// reservation scheme the binder uses.
type meshGateway struct {
	cfg      frame.Config
	mac      auth.MAC
	tr       binder.Transport
	acceptor replay.Acceptor
	reasm    *mesh.Reassembler
	logger   log.Logger
	linkID   string

	nodeID     uint32
	dest       uint32
	senderID   uint16
	keyVersion uint8
	seq        uint32

	seed      uint32
	store     persistence.NonceStore
	block     uint32
	remaining uint32

	stats meshStats
}

func newMeshGateway(lc config.LinkConfig, key auth.Key, tr binder.Transport, store persistence.NonceStore, logger log.Logger, linkID string) (*meshGateway, error) {
	g := &meshGateway{
		cfg:      lc.Frame,
		mac:      auth.NewMAC(key),
		tr:       tr,
		acceptor: lc.Acceptor(),
		reasm: mesh.NewReassembler(
			mesh.WithTimeout(time.Duration(lc.Mesh.ReassemblyTimeout)),
			mesh.WithMaxPending(lc.Mesh.MaxPending),
		),
		logger:     logger,
		linkID:     linkID,
		nodeID:     lc.Mesh.NodeID,
		dest:       mesh.BroadcastAddr,
		senderID:   lc.SenderID,
		keyVersion: lc.KeyVersion,
		store:      store,
		block:      uint32(lc.NonceStore.Block),
	}
	if g.block == 0 {
		g.block = binder.DefaultNonceBlock
	}

	if store != nil {
		next, ok, err := store.LoadNonce(g.linkKey())
		if err != nil {
			return nil, fmt.Errorf("load nonce: %w", err)
		}
		if ok {
			g.seed = next
		}
	}
	return g, nil
}

func (g *meshGateway) linkKey() persistence.LinkKey {
	return persistence.LinkKey{SenderID: g.senderID, KeyVersion: g.keyVersion}
}

// reserve makes sure n nonces starting at g.seed are covered by a persisted
// reservation.
func (g *meshGateway) reserve(n int) error {
	if g.store == nil || uint32(n) <= g.remaining {
		return nil
	}
	size := g.block
	if uint32(n) > size {
		size = uint32(n)
	}
	if err := g.store.SaveNonce(g.linkKey(), g.seed+size); err != nil {
		return fmt.Errorf("%w: %v", binder.ErrNonceReservation, err)
	}
	g.remaining = size
	return nil
}

// Send broadcasts records as one mesh message.
func (g *meshGateway) Send(records []record.Record) (int, error) {
	frames := frame.Count(g.cfg, len(records))
	if err := g.reserve(frames); err != nil {
		return 0, err
	}

	packets := mesh.CreateBroadcast(mesh.BroadcastParams{
		Source:     g.nodeID,
		Dest:       g.dest,
		SeqStart:   g.seq,
		Config:     g.cfg,
		MAC:        g.mac,
		SenderID:   g.senderID,
		KeyVersion: g.keyVersion,
		NonceSeed:  g.seed,
	}, records)

	// The whole message's nonces count as used even if a send fails.
	g.seed = mesh.NextSeed(g.seed, len(packets))
	g.seq += uint32(len(packets))
	if g.store != nil {
		g.remaining -= uint32(len(packets))
	}

	for i, p := range packets {
		data, err := mesh.MarshalPacket(p)
		if err != nil {
			return i, err
		}
		if err := g.tr.Send(data); err != nil {
			return i, fmt.Errorf("send packet %d of %d: %w", i+1, len(packets), err)
		}
		g.stats.PacketsSent++
	}
	return len(packets), nil
}

// Poll drains the transport and returns the records of every message that
// completed, in completion order.
func (g *meshGateway) Poll() []record.Record {
	g.reasm.Expire()

	var out []record.Record
	for {
		data, ok := g.tr.TryReceive()
		if !ok {
			return out
		}
		g.stats.PacketsReceived++

		p, err := mesh.UnmarshalPacket(data)
		if err != nil {
			g.stats.BadEnvelope++
			g.logReject(log.RejectMalformed, data, seal.SecurityHeader{})
			continue
		}
		if p.Dest != mesh.BroadcastAddr && p.Dest != g.nodeID {
			g.stats.NotForUs++
			continue
		}

		d, err := mesh.DecodeFrame(g.cfg, p.Payload, g.mac, g.acceptor)
		if err != nil {
			g.stats.Rejected++
			g.logReject(rejectReason(err), p.Payload, d.Security)
			continue
		}

		if recs, done := g.reasm.Add(p.Source, d); done {
			g.stats.Messages++
			out = append(out, recs...)
		}
	}
}

func (g *meshGateway) Summary() string {
	s := g.stats
	expired, evicted := g.reasm.Dropped()
	return fmt.Sprintf("node %d, next seed %d, sent %d packets, received %d (not for us %d, bad envelope %d, rejected %d), messages %d, pending %d, expired %d, evicted %d",
		g.nodeID, g.seed, s.PacketsSent, s.PacketsReceived, s.NotForUs, s.BadEnvelope, s.Rejected,
		s.Messages, g.reasm.Pending(), expired, evicted)
}

func (g *meshGateway) logReject(reason log.RejectReason, data []byte, sec seal.SecurityHeader) {
	g.logger.Log(log.Event{
		Timestamp: time.Now(),
		LinkID:    g.linkID,
		Direction: log.DirectionIn,
		Layer:     log.LayerLink,
		Category:  log.CategoryReject,
		SenderID:  sec.SenderID,
		Reject: &log.RejectEvent{
			Reason: reason,
			Size:   len(data),
			Nonce:  sec.Nonce,
		},
	})
}

func rejectReason(err error) log.RejectReason {
	switch {
	case errors.Is(err, seal.ErrAuthFailed):
		return log.RejectAuthFailed
	case errors.Is(err, seal.ErrReplayed):
		return log.RejectReplayed
	default:
		return log.RejectMalformed
	}
}
