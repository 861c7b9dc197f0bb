// Package config loads link configuration from YAML or TOML files.
//
// The file format is chosen by extension: .yaml and .yml are YAML, .toml
// is TOML. Unset fields take the values of Default.
//
// The link key is given either as 64 hex digits (key) or as a passphrase,
// which is stretched with HKDF-SHA256 using the site salt.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arxos-protocol/arxos-go/pkg/auth"
	"github.com/arxos-protocol/arxos-go/pkg/frame"
	"github.com/arxos-protocol/arxos-go/pkg/replay"
)

// Config errors.
var (
	ErrNoKey         = errors.New("config: key or passphrase is required")
	ErrKeyConflict   = errors.New("config: key and passphrase are mutually exclusive")
	ErrUnknownFormat = errors.New("config: unknown file format")
	ErrInvalidOption = errors.New("config: invalid option")
)

// keyInfo separates link keys from other keys derived from the same
// passphrase.
const keyInfo = "arxos link key v1"

// Replay modes.
const (
	ReplayGuard  = "guard"
	ReplayWindow = "window"
)

// Transport kinds.
const (
	TransportUDP = "udp"
	TransportTCP = "tcp"
)

// Nonce store kinds.
const (
	StoreNone   = ""
	StoreJSON   = "json"
	StoreBadger = "badger"
)

// LinkConfig is the configuration of one sealed link endpoint.
type LinkConfig struct {
	// Profile names a radio profile (meshtastic, lora, sdr). Frame, when
	// its MTU is set, overrides it.
	Profile string       `yaml:"profile" toml:"profile"`
	Frame   frame.Config `yaml:"frame" toml:"frame"`

	SenderID   uint16 `yaml:"sender_id" toml:"sender_id"`
	KeyVersion uint8  `yaml:"key_version" toml:"key_version"`

	Key        string `yaml:"key" toml:"key"`
	Passphrase string `yaml:"passphrase" toml:"passphrase"`
	Salt       string `yaml:"salt" toml:"salt"`

	Replay     ReplayConfig     `yaml:"replay" toml:"replay"`
	Transport  TransportConfig  `yaml:"transport" toml:"transport"`
	NonceStore NonceStoreConfig `yaml:"nonce_store" toml:"nonce_store"`
	Mesh       MeshConfig       `yaml:"mesh" toml:"mesh"`
	Discovery  DiscoveryConfig  `yaml:"discovery" toml:"discovery"`

	// LogFile receives the CBOR protocol event log when set.
	LogFile string `yaml:"log_file" toml:"log_file"`
}

// ReplayConfig selects the inbound replay acceptor.
type ReplayConfig struct {
	Mode     string `yaml:"mode" toml:"mode"`
	Capacity int    `yaml:"capacity" toml:"capacity"`
}

// TransportConfig selects and addresses the transport.
type TransportConfig struct {
	Kind      string `yaml:"kind" toml:"kind"`
	Listen    string `yaml:"listen" toml:"listen"`
	Peer      string `yaml:"peer" toml:"peer"`
	InboxSize int    `yaml:"inbox_size" toml:"inbox_size"`
}

// NonceStoreConfig selects nonce persistence.
type NonceStoreConfig struct {
	Kind  string `yaml:"kind" toml:"kind"`
	Path  string `yaml:"path" toml:"path"`
	Block int    `yaml:"block" toml:"block"`
}

// MeshConfig configures mesh addressing and reassembly.
type MeshConfig struct {
	NodeID            uint32   `yaml:"node_id" toml:"node_id"`
	ReassemblyTimeout Duration `yaml:"reassembly_timeout" toml:"reassembly_timeout"`
	MaxPending        int      `yaml:"max_pending" toml:"max_pending"`
}

// DiscoveryConfig controls mDNS advertisement of the gateway.
type DiscoveryConfig struct {
	Enabled  bool   `yaml:"enabled" toml:"enabled"`
	Instance string `yaml:"instance" toml:"instance"`
}

// Duration is a time.Duration written as a string such as "30s".
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Default returns a configuration for the Meshtastic LoRa profile over UDP
// with the FIFO replay guard and no nonce persistence. Frame stays zero
// until Validate resolves it from Profile.
func Default() LinkConfig {
	return LinkConfig{
		Profile:    "meshtastic",
		SenderID:   1,
		KeyVersion: 1,
		Salt:       "arxos",
		Replay: ReplayConfig{
			Mode:     ReplayGuard,
			Capacity: replay.DefaultCapacity,
		},
		Transport: TransportConfig{
			Kind:   TransportUDP,
			Listen: ":4790",
		},
		NonceStore: NonceStoreConfig{
			Block: 1024,
		},
		Mesh: MeshConfig{
			NodeID:            1,
			ReassemblyTimeout: Duration(30 * time.Second),
			MaxPending:        32,
		},
	}
}

// Validate checks the configuration and resolves Frame from Profile.
func (c *LinkConfig) Validate() error {
	if c.Frame.MTU == 0 && c.Profile != "" {
		p, err := frame.ProfileByName(c.Profile)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidOption, err)
		}
		c.Frame = p
	}
	if err := c.Frame.Validate(); err != nil {
		return err
	}

	if c.Key == "" && c.Passphrase == "" {
		return ErrNoKey
	}
	if c.Key != "" && c.Passphrase != "" {
		return ErrKeyConflict
	}
	if c.Key != "" {
		if _, err := parseHexKey(c.Key); err != nil {
			return err
		}
	}

	switch c.Replay.Mode {
	case ReplayGuard, ReplayWindow, "":
	default:
		return fmt.Errorf("%w: replay mode %q", ErrInvalidOption, c.Replay.Mode)
	}
	if c.Replay.Mode == ReplayWindow && c.Replay.Capacity > replay.MaxWindowSize {
		return fmt.Errorf("%w: window capacity %d > %d", ErrInvalidOption, c.Replay.Capacity, replay.MaxWindowSize)
	}

	switch c.Transport.Kind {
	case TransportUDP, TransportTCP:
	default:
		return fmt.Errorf("%w: transport kind %q", ErrInvalidOption, c.Transport.Kind)
	}

	switch c.NonceStore.Kind {
	case StoreNone:
	case StoreJSON, StoreBadger:
		if strings.TrimSpace(c.NonceStore.Path) == "" {
			return fmt.Errorf("%w: nonce_store.path is required for %s", ErrInvalidOption, c.NonceStore.Kind)
		}
	default:
		return fmt.Errorf("%w: nonce store kind %q", ErrInvalidOption, c.NonceStore.Kind)
	}
	return nil
}

// LinkKey returns the 32-byte link key.
func (c *LinkConfig) LinkKey() (auth.Key, error) {
	switch {
	case c.Key != "":
		return parseHexKey(c.Key)
	case c.Passphrase != "":
		return auth.DeriveKey([]byte(c.Passphrase), []byte(c.Salt), keyInfo)
	default:
		return auth.Key{}, ErrNoKey
	}
}

// Acceptor builds the configured inbound replay acceptor.
func (c *LinkConfig) Acceptor() replay.Acceptor {
	if c.Replay.Mode == ReplayWindow {
		return replay.NewWindow(c.Replay.Capacity)
	}
	return replay.NewGuard(c.Replay.Capacity)
}

func parseHexKey(s string) (auth.Key, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return auth.Key{}, fmt.Errorf("%w: key is not hex", auth.ErrInvalidKey)
	}
	return auth.KeyFromBytes(raw)
}
