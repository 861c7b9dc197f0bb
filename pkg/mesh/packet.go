package mesh

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// BroadcastAddr is the destination address reaching every node.
const BroadcastAddr uint32 = 0xFFFFFFFF

// PacketKind distinguishes broadcast from directed packets.
type PacketKind uint8

const (
	// KindBroadcast is flooded to every node.
	KindBroadcast PacketKind = 0
	// KindDirect is addressed to one node.
	KindDirect PacketKind = 1
)

// String returns the packet kind name.
func (k PacketKind) String() string {
	switch k {
	case KindBroadcast:
		return "BROADCAST"
	case KindDirect:
		return "DIRECT"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(k))
	}
}

// Packet is one addressed mesh packet carrying sealed frame bytes.
type Packet struct {
	Source  uint32     `cbor:"1,keyasint"`
	Dest    uint32     `cbor:"2,keyasint"`
	Kind    PacketKind `cbor:"3,keyasint"`
	Seq     uint32     `cbor:"4,keyasint"`
	Payload []byte     `cbor:"5,keyasint"`
}

// ErrInvalidPacket indicates an envelope that does not decode to a Packet.
var ErrInvalidPacket = errors.New("mesh: invalid packet envelope")

var (
	// packetEncMode is deterministic so equal packets encode identically.
	packetEncMode cbor.EncMode
	packetDecMode cbor.DecMode
)

func init() {
	var err error

	packetEncMode, err = cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsEmpty,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("mesh: cbor encoder mode: %v", err))
	}

	packetDecMode, err = cbor.DecOptions{
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
		IndefLength:      cbor.IndefLengthForbidden,
		MaxArrayElements: 16,
		MaxMapPairs:      16,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("mesh: cbor decoder mode: %v", err))
	}
}

// MarshalPacket encodes p as a CBOR envelope.
func MarshalPacket(p Packet) ([]byte, error) {
	return packetEncMode.Marshal(p)
}

// UnmarshalPacket decodes a CBOR envelope produced by MarshalPacket.
func UnmarshalPacket(data []byte) (Packet, error) {
	var p Packet
	if err := packetDecMode.Unmarshal(data, &p); err != nil {
		return Packet{}, fmt.Errorf("%w: %v", ErrInvalidPacket, err)
	}
	if p.Kind > KindDirect {
		return Packet{}, fmt.Errorf("%w: kind %d", ErrInvalidPacket, p.Kind)
	}
	return p, nil
}
