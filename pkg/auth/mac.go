// Package auth provides the keyed message authentication primitive used to
// seal frames and sign invites.
//
// The MAC is keyed BLAKE2b with a 16-byte output. Keys are always passed
// explicitly; there is no package-level key state, so independently keyed
// links can coexist in one process.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/hkdf"
)

// Sizes.
const (
	// KeySize is the size of a link key in bytes.
	KeySize = 32

	// TagSize is the size of an authentication tag in bytes.
	TagSize = 16
)

// ErrInvalidKey indicates a key of the wrong length.
var ErrInvalidKey = errors.New("auth: invalid key")

// MAC generates and verifies authentication tags.
type MAC interface {
	// Generate returns the tag over data. It is deterministic.
	Generate(data []byte) [TagSize]byte

	// Verify reports whether tag is the valid tag for data.
	Verify(data []byte, tag [TagSize]byte) bool
}

// Key is a 32-byte link key.
type Key [KeySize]byte

// KeyFromBytes copies a key from b.
func KeyFromBytes(b []byte) (Key, error) {
	var k Key
	if len(b) != KeySize {
		return k, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKey, len(b), KeySize)
	}
	copy(k[:], b)
	return k, nil
}

// Blake2bMAC is a keyed BLAKE2b-128 MAC.
type Blake2bMAC struct {
	key Key
}

// NewMAC creates a MAC for the given key.
func NewMAC(key Key) *Blake2bMAC {
	return &Blake2bMAC{key: key}
}

// Generate returns the 16-byte tag over data.
func (m *Blake2bMAC) Generate(data []byte) [TagSize]byte {
	// blake2b.New only fails for out-of-range sizes or keys longer than 64
	// bytes; both are fixed here.
	h, err := blake2b.New(TagSize, m.key[:])
	if err != nil {
		panic(fmt.Sprintf("blake2b: %v", err))
	}
	h.Write(data)

	var tag [TagSize]byte
	copy(tag[:], h.Sum(nil))
	return tag
}

// Verify compares the expected tag for data with tag in constant time.
func (m *Blake2bMAC) Verify(data []byte, tag [TagSize]byte) bool {
	want := m.Generate(data)
	return subtle.ConstantTimeCompare(want[:], tag[:]) == 1
}

// DeriveKey derives a link key from a shared secret using HKDF-SHA256.
// info binds the key to its purpose, e.g. "arxos link v1".
func DeriveKey(secret, salt []byte, info string) (Key, error) {
	var k Key
	r := hkdf.New(sha256.New, secret, salt, []byte(info))
	if _, err := io.ReadFull(r, k[:]); err != nil {
		return k, fmt.Errorf("derive key: %w", err)
	}
	return k, nil
}

// Compile-time interface satisfaction check.
var _ MAC = (*Blake2bMAC)(nil)
