package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arxos-protocol/arxos-go/pkg/auth"
	"github.com/arxos-protocol/arxos-go/pkg/frame"
	"github.com/arxos-protocol/arxos-go/pkg/replay"
)

var hexKey = strings.Repeat("0f", auth.KeySize)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "link.yaml", `
profile: sdr
sender_id: 42
key_version: 3
key: `+hexKey+`
replay:
  mode: window
  capacity: 32
transport:
  kind: tcp
  listen: ":9000"
  peer: "10.0.0.2:9000"
nonce_store:
  kind: json
  path: /var/lib/arx/nonce.json
mesh:
  node_id: 7
  reassembly_timeout: 45s
discovery:
  enabled: true
  instance: roof-gateway
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, frame.SDR, cfg.Frame)
	assert.Equal(t, uint16(42), cfg.SenderID)
	assert.Equal(t, uint8(3), cfg.KeyVersion)
	assert.Equal(t, ReplayWindow, cfg.Replay.Mode)
	assert.Equal(t, TransportTCP, cfg.Transport.Kind)
	assert.Equal(t, "10.0.0.2:9000", cfg.Transport.Peer)
	assert.Equal(t, StoreJSON, cfg.NonceStore.Kind)
	assert.Equal(t, 1024, cfg.NonceStore.Block, "default kept")
	assert.Equal(t, uint32(7), cfg.Mesh.NodeID)
	assert.Equal(t, Duration(45*time.Second), cfg.Mesh.ReassemblyTimeout)
	assert.Equal(t, 32, cfg.Mesh.MaxPending, "default kept")
	assert.True(t, cfg.Discovery.Enabled)

	_, ok := cfg.Acceptor().(*replay.Window)
	assert.True(t, ok)

	key, err := cfg.LinkKey()
	require.NoError(t, err)
	assert.Equal(t, byte(0x0f), key[31])
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "link.toml", `
sender_id = 9
passphrase = "correct horse battery staple"
salt = "building-1234"

[frame]
mtu = 200
header_len = 4

[transport]
kind = "udp"
listen = ":4790"

[mesh]
reassembly_timeout = "10s"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, frame.Config{MTU: 200, HeaderLen: 4}, cfg.Frame, "explicit frame overrides profile")
	assert.Equal(t, uint16(9), cfg.SenderID)
	assert.Equal(t, Duration(10*time.Second), cfg.Mesh.ReassemblyTimeout)

	_, ok := cfg.Acceptor().(*replay.Guard)
	assert.True(t, ok)

	k1, err := cfg.LinkKey()
	require.NoError(t, err)

	cfg.Salt = "building-5678"
	k2, err := cfg.LinkKey()
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2, "salt separates sites")
}

func TestLoadProfileSelectsFrame(t *testing.T) {
	for _, tt := range []struct{ name, content string }{
		{"link.yaml", "profile: sdr\nkey: " + hexKey + "\n"},
		{"link.toml", "profile = \"sdr\"\nkey = \"" + hexKey + "\"\n"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeFile(t, tt.name, tt.content))
			require.NoError(t, err)
			assert.Equal(t, frame.SDR, cfg.Frame)
			assert.Equal(t, 78, cfg.Frame.RecordsPerFrame())
		})
	}

	cfg, err := Load(writeFile(t, "plain.yaml", "key: "+hexKey+"\n"))
	require.NoError(t, err)
	assert.Equal(t, frame.MeshtasticLoRa, cfg.Frame, "default profile")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for _, ext := range []string{"yaml", "toml"} {
		t.Run(ext, func(t *testing.T) {
			cfg := Default()
			cfg.Key = hexKey
			cfg.SenderID = 77
			cfg.Mesh.ReassemblyTimeout = Duration(time.Minute)
			require.NoError(t, cfg.Validate())

			path := filepath.Join(t.TempDir(), "link."+ext)
			require.NoError(t, Save(path, cfg))

			got, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, got)
		})
	}
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("unknown extension", func(t *testing.T) {
		_, err := Load(writeFile(t, "link.json", "{}"))
		assert.ErrorIs(t, err, ErrUnknownFormat)
	})

	t.Run("parse error", func(t *testing.T) {
		_, err := Load(writeFile(t, "link.toml", "sender_id = [oops"))
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *LinkConfig)
		want   error
	}{
		{"no key", func(c *LinkConfig) { c.Key = "" }, ErrNoKey},
		{"both keys", func(c *LinkConfig) { c.Passphrase = "x" }, ErrKeyConflict},
		{"short key", func(c *LinkConfig) { c.Key = "abcd" }, auth.ErrInvalidKey},
		{"non-hex key", func(c *LinkConfig) { c.Key = strings.Repeat("zz", 32) }, auth.ErrInvalidKey},
		{"unknown profile", func(c *LinkConfig) { c.Frame = frame.Config{}; c.Profile = "wifi" }, ErrInvalidOption},
		{"bad mtu", func(c *LinkConfig) { c.Frame = frame.Config{MTU: -1} }, frame.ErrInvalidMTU},
		{"bad replay mode", func(c *LinkConfig) { c.Replay.Mode = "bitmap" }, ErrInvalidOption},
		{"window too wide", func(c *LinkConfig) { c.Replay = ReplayConfig{Mode: ReplayWindow, Capacity: 128} }, ErrInvalidOption},
		{"bad transport", func(c *LinkConfig) { c.Transport.Kind = "ble" }, ErrInvalidOption},
		{"store without path", func(c *LinkConfig) { c.NonceStore.Kind = StoreBadger }, ErrInvalidOption},
		{"bad store", func(c *LinkConfig) { c.NonceStore.Kind = "redis" }, ErrInvalidOption},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Key = hexKey
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}

func TestDefaultNeedsOnlyKey(t *testing.T) {
	cfg := Default()
	assert.ErrorIs(t, cfg.Validate(), ErrNoKey)

	cfg.Passphrase = "secret"
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 19, cfg.Frame.RecordsPerFrame())
}
