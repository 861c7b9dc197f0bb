// Package frame packs records into MTU-bounded frames and unpacks them.
//
// A frame is an application header followed by a payload made of whole
// 13-byte records. Records are never split across frames, their order is
// preserved, and the total count is conserved.
package frame

import (
	"errors"
	"fmt"

	"github.com/arxos-protocol/arxos-go/pkg/record"
)

// Config describes the byte budget of one frame.
type Config struct {
	// MTU is the total number of bytes available per frame.
	MTU int `yaml:"mtu" toml:"mtu"`

	// HeaderLen is the size of the application header in bytes.
	HeaderLen int `yaml:"header_len" toml:"header_len"`
}

// Config errors.
var (
	ErrInvalidMTU       = errors.New("frame: mtu must be positive")
	ErrInvalidHeaderLen = errors.New("frame: header length must not be negative")
)

// RecordsPerFrame returns how many whole records fit after the header.
// Returns 0 when the header leaves no room; Pack clamps that to 1.
func (c Config) RecordsPerFrame() int {
	if c.MTU <= c.HeaderLen {
		return 0
	}
	return max(1, (c.MTU-c.HeaderLen)/record.Size)
}

// Validate checks that the configuration is usable.
// A configuration with no payload room is valid; it yields one record per frame.
func (c Config) Validate() error {
	if c.MTU <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMTU, c.MTU)
	}
	if c.HeaderLen < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidHeaderLen, c.HeaderLen)
	}
	return nil
}

// Frame is one transmission unit.
type Frame struct {
	Header  []byte
	Payload []byte
}

// RecordCount returns the number of whole records in the payload.
func (f Frame) RecordCount() int {
	return len(f.Payload) / record.Size
}

// HeaderFunc builds the application header for frame index of total.
type HeaderFunc func(index, total int) []byte

// Count returns the number of frames Pack produces for n records. It is at
// least 1.
func Count(cfg Config, n int) int {
	if n <= 0 {
		return 1
	}
	per := max(1, cfg.RecordsPerFrame())
	return (n + per - 1) / per
}

// Pack splits records into frames of at most RecordsPerFrame records each.
//
// An empty record list yields exactly one frame with header headerFn(0, 1)
// and an empty payload, used for signaling and keep-alive. A nil headerFn
// produces frames with an empty header.
func Pack(cfg Config, records []record.Record, headerFn HeaderFunc) []Frame {
	if headerFn == nil {
		headerFn = func(int, int) []byte { return []byte{} }
	}
	if len(records) == 0 {
		return []Frame{{Header: headerFn(0, 1), Payload: []byte{}}}
	}

	per := max(1, cfg.RecordsPerFrame())
	total := Count(cfg, len(records))

	frames := make([]Frame, 0, total)
	for i := 0; i < total; i++ {
		start := i * per
		end := min(start+per, len(records))

		payload := make([]byte, 0, (end-start)*record.Size)
		for _, r := range records[start:end] {
			payload = r.AppendBinary(payload)
		}
		frames = append(frames, Frame{
			Header:  headerFn(i, total),
			Payload: payload,
		})
	}
	return frames
}

// Unpack concatenates the payloads of frames in the order given and parses
// every complete record. A trailing partial record is dropped.
//
// Payloads must already be stripped of any authentication tag.
func Unpack(frames []Frame) []record.Record {
	n := 0
	for _, f := range frames {
		n += len(f.Payload)
	}

	buf := make([]byte, 0, n)
	for _, f := range frames {
		buf = append(buf, f.Payload...)
	}

	records := make([]record.Record, 0, len(buf)/record.Size)
	for off := 0; off+record.Size <= len(buf); off += record.Size {
		r, _ := record.Parse(buf[off : off+record.Size])
		records = append(records, r)
	}
	return records
}
