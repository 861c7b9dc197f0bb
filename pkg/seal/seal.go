// Package seal authenticates frames for transmission over an untrusted link.
//
// # Sealed Frame Layout
//
//	┌─────────────────┬──────────────┬──────────────────┬──────────┐
//	│ SecurityHeader  │  app header  │ payload (N×13B)  │ tag 16B  │
//	│       8B        │  header_len  │                  │          │
//	└─────────────────┴──────────────┴──────────────────┴──────────┘
//	 \____________ sealed header ___/ \_________ sealed payload ___/
//
// The tag covers the security header, the application header and the
// payload. Sealing provides integrity and sender authenticity only; the
// payload is not encrypted.
//
// # Opening
//
// Open rejects, in order: frames too short to hold the security header and
// tag (ErrMalformed), frames whose tag does not verify (ErrAuthFailed), and
// authentic frames whose (sender, nonce) was already accepted (ErrReplayed).
// Replay state is only touched after the tag verifies, so forged frames
// cannot consume replay slots.
package seal

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/arxos-protocol/arxos-go/pkg/auth"
	"github.com/arxos-protocol/arxos-go/pkg/frame"
	"github.com/arxos-protocol/arxos-go/pkg/replay"
)

// HeaderSize is the size of the SecurityHeader in bytes.
const HeaderSize = 8

// TagSize is the size of the authentication tag appended to the payload.
const TagSize = auth.TagSize

// Open errors.
var (
	// ErrMalformed indicates a frame shorter than the header or tag minimums.
	ErrMalformed = errors.New("seal: malformed frame")

	// ErrAuthFailed indicates the authentication tag did not verify.
	ErrAuthFailed = errors.New("seal: authentication failed")

	// ErrReplayed indicates an authentic frame that was already accepted.
	ErrReplayed = errors.New("seal: replayed frame")
)

// SecurityHeader identifies the sender and the per-frame nonce.
type SecurityHeader struct {
	SenderID   uint16
	KeyVersion uint8
	Reserved   uint8
	Nonce      uint32
}

// Bytes encodes the header as sender_id:u16 | key_version:u8 | reserved:u8 | nonce:u32, little-endian.
func (h SecurityHeader) Bytes() [HeaderSize]byte {
	var b [HeaderSize]byte
	binary.LittleEndian.PutUint16(b[0:], h.SenderID)
	b[2] = h.KeyVersion
	b[3] = h.Reserved
	binary.LittleEndian.PutUint32(b[4:], h.Nonce)
	return b
}

// ParseSecurityHeader decodes the first HeaderSize bytes of b.
func ParseSecurityHeader(b []byte) (SecurityHeader, error) {
	if len(b) < HeaderSize {
		return SecurityHeader{}, fmt.Errorf("%w: security header %d < %d bytes", ErrMalformed, len(b), HeaderSize)
	}
	return SecurityHeader{
		SenderID:   binary.LittleEndian.Uint16(b[0:]),
		KeyVersion: b[2],
		Reserved:   b[3],
		Nonce:      binary.LittleEndian.Uint32(b[4:]),
	}, nil
}

// Token combines nonce and sender into the replay token.
func Token(sender uint16, nonce uint32) uint64 {
	return uint64(nonce)<<16 | uint64(sender)
}

// Seal prepends sec to the frame header and appends the tag to the payload.
// The input frame is not modified.
func Seal(cfg frame.Config, f frame.Frame, sec SecurityHeader, mac auth.MAC) frame.Frame {
	secBytes := sec.Bytes()

	header := make([]byte, 0, HeaderSize+len(f.Header))
	header = append(header, secBytes[:]...)
	header = append(header, f.Header...)

	tag := mac.Generate(authData(header, f.Payload))

	payload := make([]byte, 0, len(f.Payload)+TagSize)
	payload = append(payload, f.Payload...)
	payload = append(payload, tag[:]...)

	return frame.Frame{Header: header, Payload: payload}
}

// Open verifies a sealed frame and returns the inner frame.
// The replay acceptor is consulted only after the tag verifies.
func Open(cfg frame.Config, sealed frame.Frame, mac auth.MAC, guard replay.Acceptor) (frame.Frame, error) {
	_, inner, err := OpenHeader(cfg, sealed, mac, guard)
	return inner, err
}

// OpenHeader is Open that also returns the parsed SecurityHeader.
// On ErrAuthFailed and ErrReplayed the header is returned for diagnostics;
// it is only trustworthy when err is nil.
func OpenHeader(cfg frame.Config, sealed frame.Frame, mac auth.MAC, guard replay.Acceptor) (SecurityHeader, frame.Frame, error) {
	if len(sealed.Header) < HeaderSize || len(sealed.Payload) < TagSize {
		return SecurityHeader{}, frame.Frame{}, fmt.Errorf("%w: header %d bytes, payload %d bytes",
			ErrMalformed, len(sealed.Header), len(sealed.Payload))
	}

	sec, _ := ParseSecurityHeader(sealed.Header)
	body := sealed.Payload[:len(sealed.Payload)-TagSize]

	var tag [TagSize]byte
	copy(tag[:], sealed.Payload[len(sealed.Payload)-TagSize:])

	if !mac.Verify(authData(sealed.Header, body), tag) {
		return sec, frame.Frame{}, ErrAuthFailed
	}

	if !guard.Accept(sec.SenderID, Token(sec.SenderID, sec.Nonce)) {
		return sec, frame.Frame{}, fmt.Errorf("%w: sender %d nonce %d", ErrReplayed, sec.SenderID, sec.Nonce)
	}

	inner := frame.Frame{
		Header:  append([]byte{}, sealed.Header[HeaderSize:]...),
		Payload: append([]byte{}, body...),
	}
	return sec, inner, nil
}

// WireBytes concatenates a sealed frame's header and payload.
func WireBytes(sealed frame.Frame) []byte {
	out := make([]byte, 0, len(sealed.Header)+len(sealed.Payload))
	out = append(out, sealed.Header...)
	return append(out, sealed.Payload...)
}

// SplitWire splits raw sealed bytes into header and payload using the
// minimum-length contract: the header is HeaderSize+cfg.HeaderLen bytes and
// the payload is the remainder, which must hold at least the tag.
func SplitWire(cfg frame.Config, wire []byte) (frame.Frame, error) {
	headerLen := HeaderSize + max(0, cfg.HeaderLen)
	if len(wire) < headerLen+TagSize {
		return frame.Frame{}, fmt.Errorf("%w: %d wire bytes, need at least %d",
			ErrMalformed, len(wire), headerLen+TagSize)
	}
	return frame.Frame{
		Header:  wire[:headerLen],
		Payload: wire[headerLen:],
	}, nil
}

// authData is sec || app header || payload; the sealed header already holds
// the first two.
func authData(header, payload []byte) []byte {
	data := make([]byte, 0, len(header)+len(payload))
	data = append(data, header...)
	return append(data, payload...)
}
