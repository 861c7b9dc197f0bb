// Package invite encodes access capabilities as compact records.
//
// An invite is a Record of kind ACCESS_INVITE with zeroed coordinates and
// properties [role, hours, tag0, tag1], where the tag is the first two bytes
// of the link MAC over [role, hours, seed (4 bytes LE)].
//
// A 16-bit tag only makes tampering evident. It is meant for short-lived,
// physically proximate provisioning where seed is a session-scoped value
// shared out of band; it is not a strong credential.
package invite

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/arxos-protocol/arxos-go/pkg/auth"
	"github.com/arxos-protocol/arxos-go/pkg/record"
)

// ErrInvalidCapability indicates a record that is not a valid invite for
// the given key and seed.
var ErrInvalidCapability = errors.New("invite: invalid capability")

// Role is the access level granted by an invite.
type Role uint8

// Roles.
const (
	RoleViewer     Role = 1
	RoleTechnician Role = 2
	RoleAdmin      Role = 3
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r >= RoleViewer && r <= RoleAdmin
}

// String returns the lowercase role name.
func (r Role) String() string {
	switch r {
	case RoleViewer:
		return "viewer"
	case RoleTechnician:
		return "technician"
	case RoleAdmin:
		return "admin"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

// ParseRole parses a role name, case-insensitively.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "viewer":
		return RoleViewer, nil
	case "technician", "tech":
		return RoleTechnician, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return 0, fmt.Errorf("unknown role %q", s)
	}
}

// Create builds an invite record for buildingID.
func Create(buildingID uint16, role Role, hours uint8, mac auth.MAC, seed uint32) record.Record {
	tag := mac.Generate(tagInput(role, hours, seed))

	inv := record.New(buildingID, record.KindAccessInvite, 0, 0, 0)
	inv.Properties = [4]byte{byte(role), hours, tag[0], tag[1]}
	return inv
}

// Verify checks an invite against mac and seed and returns the granted
// role and duration in hours.
func Verify(inv record.Record, mac auth.MAC, seed uint32) (Role, uint8, error) {
	if inv.Kind != record.KindAccessInvite {
		return 0, 0, fmt.Errorf("%w: kind %s", ErrInvalidCapability, inv.Kind)
	}

	role, hours := Role(inv.Properties[0]), inv.Properties[1]
	if !role.Valid() {
		return 0, 0, fmt.Errorf("%w: unknown role %d", ErrInvalidCapability, uint8(role))
	}

	tag := mac.Generate(tagInput(role, hours, seed))
	if tag[0] != inv.Properties[2] || tag[1] != inv.Properties[3] {
		return 0, 0, fmt.Errorf("%w: tag mismatch", ErrInvalidCapability)
	}
	return role, hours, nil
}

func tagInput(role Role, hours uint8, seed uint32) []byte {
	buf := make([]byte, 2, 6)
	buf[0] = byte(role)
	buf[1] = hours
	return binary.LittleEndian.AppendUint32(buf, seed)
}
