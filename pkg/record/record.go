package record

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Size is the encoded size of a Record in bytes.
const Size = 13

// Field offsets within the encoded record.
const (
	offBuildingID = 0
	offKind       = 2
	offX          = 3
	offY          = 5
	offZ          = 7
	offProperties = 9
)

// ErrShortRecord indicates fewer than Size bytes were supplied to Parse.
var ErrShortRecord = errors.New("record: short buffer")

// Record is one building element or sensor datum.
// Records are plain values; two records are equal when all fields are equal.
type Record struct {
	BuildingID uint16
	Kind       Kind
	X          uint16
	Y          uint16
	Z          uint16
	Properties [4]byte
}

// New creates a record with zeroed properties.
func New(buildingID uint16, kind Kind, x, y, z uint16) Record {
	return Record{BuildingID: buildingID, Kind: kind, X: x, Y: y, Z: z}
}

// Bytes encodes the record into its fixed 13-byte form.
func (r Record) Bytes() [Size]byte {
	var b [Size]byte
	r.put(b[:])
	return b
}

// AppendBinary appends the encoded record to dst and returns the extended slice.
func (r Record) AppendBinary(dst []byte) []byte {
	n := len(dst)
	dst = append(dst, make([]byte, Size)...)
	r.put(dst[n:])
	return dst
}

func (r Record) put(b []byte) {
	binary.LittleEndian.PutUint16(b[offBuildingID:], r.BuildingID)
	b[offKind] = byte(r.Kind)
	binary.LittleEndian.PutUint16(b[offX:], r.X)
	binary.LittleEndian.PutUint16(b[offY:], r.Y)
	binary.LittleEndian.PutUint16(b[offZ:], r.Z)
	copy(b[offProperties:Size], r.Properties[:])
}

// FromBytes decodes a record. It never fails.
func FromBytes(b [Size]byte) Record {
	return decode(b[:])
}

// Parse decodes the first Size bytes of b.
// Returns ErrShortRecord if b is shorter than Size.
func Parse(b []byte) (Record, error) {
	if len(b) < Size {
		return Record{}, fmt.Errorf("%w: %d < %d", ErrShortRecord, len(b), Size)
	}
	return decode(b), nil
}

func decode(b []byte) Record {
	r := Record{
		BuildingID: binary.LittleEndian.Uint16(b[offBuildingID:]),
		Kind:       Kind(b[offKind]),
		X:          binary.LittleEndian.Uint16(b[offX:]),
		Y:          binary.LittleEndian.Uint16(b[offY:]),
		Z:          binary.LittleEndian.Uint16(b[offZ:]),
	}
	copy(r.Properties[:], b[offProperties:Size])
	return r
}

// String returns a compact human-readable form used by the CLI and logs.
func (r Record) String() string {
	return fmt.Sprintf("bldg=0x%04x %s @(%d,%d,%d)mm props=%02x%02x%02x%02x",
		r.BuildingID, r.Kind, r.X, r.Y, r.Z,
		r.Properties[0], r.Properties[1], r.Properties[2], r.Properties[3])
}
