package invite

import (
	"encoding/hex"
	"errors"
	"strconv"
	"strings"

	"github.com/arxos-protocol/arxos-go/pkg/record"
)

// Text code constants.
const (
	// CodePrefix starts every invite text code.
	CodePrefix = "ARX"

	// CodeVersion is the current text code version.
	CodeVersion = 1
)

// Text code errors.
var (
	ErrInvalidCode    = errors.New("invite: invalid code")
	ErrInvalidPrefix  = errors.New("invite: code must start with ARX:")
	ErrInvalidVersion = errors.New("invite: unsupported code version")
)

// Code renders an invite as a text code for QR codes and out-of-band
// sharing.
//
// Format: ARX:<version>:<26 hex digits of the 13-byte record>
//
// Example: ARX:1:3412f0000000000000020c9a41
func Code(inv record.Record) string {
	b := inv.Bytes()
	return CodePrefix + ":" + strconv.Itoa(CodeVersion) + ":" + hex.EncodeToString(b[:])
}

// ParseCode parses a text code produced by Code. It checks the format only;
// use Verify to check the capability.
func ParseCode(s string) (record.Record, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, CodePrefix+":") {
		return record.Record{}, ErrInvalidPrefix
	}

	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return record.Record{}, ErrInvalidCode
	}

	version, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil || version != CodeVersion {
		return record.Record{}, ErrInvalidVersion
	}

	if len(parts[2]) != 2*record.Size {
		return record.Record{}, ErrInvalidCode
	}
	raw, err := hex.DecodeString(parts[2])
	if err != nil {
		return record.Record{}, ErrInvalidCode
	}
	return record.Parse(raw)
}
