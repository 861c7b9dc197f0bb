package mesh

import (
	"github.com/arxos-protocol/arxos-go/pkg/auth"
	"github.com/arxos-protocol/arxos-go/pkg/frame"
	"github.com/arxos-protocol/arxos-go/pkg/record"
	"github.com/arxos-protocol/arxos-go/pkg/replay"
	"github.com/arxos-protocol/arxos-go/pkg/seal"
)

// BroadcastParams configures CreateBroadcast.
type BroadcastParams struct {
	Source   uint32
	Dest     uint32
	SeqStart uint32

	Config frame.Config
	MAC    auth.MAC

	SenderID   uint16
	KeyVersion uint8

	// NonceSeed is the nonce of frame 0; frame i uses NonceSeed+i.
	NonceSeed uint32
}

// CreateBroadcast packs, seals and addresses records as broadcast packets,
// one per frame. Nonce and sequence number both advance by one per frame
// and wrap at 2^32.
//
// The caller must not reuse a nonce range under the same key and sender;
// NextSeed returns the seed following a broadcast.
func CreateBroadcast(p BroadcastParams, records []record.Record) []Packet {
	frames := frame.Pack(p.Config, records, frame.IndexHeader(p.Config.HeaderLen))

	packets := make([]Packet, 0, len(frames))
	for i, f := range frames {
		sec := seal.SecurityHeader{
			SenderID:   p.SenderID,
			KeyVersion: p.KeyVersion,
			Nonce:      p.NonceSeed + uint32(i),
		}
		sealed := seal.Seal(p.Config, f, sec, p.MAC)

		packets = append(packets, Packet{
			Source:  p.Source,
			Dest:    p.Dest,
			Kind:    KindBroadcast,
			Seq:     p.SeqStart + uint32(i),
			Payload: seal.WireBytes(sealed),
		})
	}
	return packets
}

// NextSeed returns the nonce seed to use after a broadcast of n packets
// created with seed.
func NextSeed(seed uint32, n int) uint32 {
	return seed + uint32(n)
}

// Decoded is one opened broadcast frame.
type Decoded struct {
	// Security is the verified security header.
	Security seal.SecurityHeader

	// Index and Total come from the frame index header. HasIndex is false
	// when the configured header is too short to carry them.
	Index    uint16
	Total    uint16
	HasIndex bool

	Records []record.Record
}

// MessageSeed returns the nonce seed of the broadcast this frame belongs to.
func (d Decoded) MessageSeed() uint32 {
	return d.Security.Nonce - uint32(d.Index)
}

// DecodeFrame splits, opens and unpacks one packet payload.
// Errors are those of seal.SplitWire and seal.OpenHeader. On an open error
// Security holds the unverified header, if it could be parsed.
func DecodeFrame(cfg frame.Config, payload []byte, mac auth.MAC, guard replay.Acceptor) (Decoded, error) {
	sealed, err := seal.SplitWire(cfg, payload)
	if err != nil {
		return Decoded{}, err
	}

	sec, inner, err := seal.OpenHeader(cfg, sealed, mac, guard)
	if err != nil {
		return Decoded{Security: sec}, err
	}

	d := Decoded{
		Security: sec,
		Records:  frame.Unpack([]frame.Frame{inner}),
	}
	d.Index, d.Total, d.HasIndex = frame.ParseIndexHeader(inner.Header)
	return d, nil
}

// DecodeBroadcast returns the records of a single packet payload.
// It does not aggregate frames of a multi-frame message.
func DecodeBroadcast(cfg frame.Config, payload []byte, mac auth.MAC, guard replay.Acceptor) ([]record.Record, error) {
	d, err := DecodeFrame(cfg, payload, mac, guard)
	if err != nil {
		return nil, err
	}
	return d.Records, nil
}
