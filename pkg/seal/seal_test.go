package seal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arxos-protocol/arxos-go/pkg/auth"
	"github.com/arxos-protocol/arxos-go/pkg/frame"
	"github.com/arxos-protocol/arxos-go/pkg/record"
	"github.com/arxos-protocol/arxos-go/pkg/replay"
)

var cfg = frame.MeshtasticLoRa

func testMAC(seed byte) auth.MAC {
	var k auth.Key
	for i := range k {
		k[i] = seed ^ byte(i*7)
	}
	return auth.NewMAC(k)
}

func testFrame(n int) frame.Frame {
	recs := make([]record.Record, n)
	for i := range recs {
		recs[i] = record.New(0x1234, record.KindThermostat, uint16(i), 2, 3)
	}
	return frame.Pack(cfg, recs, frame.IndexHeader(cfg.HeaderLen))[0]
}

func assertFrameEqual(t *testing.T, want, got frame.Frame) {
	t.Helper()
	assert.Equal(t, want.Header, got.Header, "header")
	assert.Equal(t, want.Payload, got.Payload, "payload")
}

func TestSecurityHeaderLayout(t *testing.T) {
	h := SecurityHeader{SenderID: 0x0102, KeyVersion: 3, Reserved: 0, Nonce: 0x0A0B0C0D}
	b := h.Bytes()
	assert.Equal(t, [HeaderSize]byte{0x02, 0x01, 0x03, 0x00, 0x0D, 0x0C, 0x0B, 0x0A}, b)

	got, err := ParseSecurityHeader(b[:])
	require.NoError(t, err)
	assert.Equal(t, h, got)

	_, err = ParseSecurityHeader(b[:7])
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestSealLayout(t *testing.T) {
	f := testFrame(2)
	sec := SecurityHeader{SenderID: 9, KeyVersion: 1, Nonce: 77}

	sealed := Seal(cfg, f, sec, testMAC(1))

	secBytes := sec.Bytes()
	assert.Equal(t, secBytes[:], sealed.Header[:HeaderSize])
	assert.Equal(t, f.Header, sealed.Header[HeaderSize:])
	assert.Equal(t, f.Payload, sealed.Payload[:len(f.Payload)])
	assert.Len(t, sealed.Payload, len(f.Payload)+TagSize)
}

func TestSealOpenRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		frame frame.Frame
		sec   SecurityHeader
	}{
		{"empty payload", testFrame(0), SecurityHeader{SenderID: 1, Nonce: 0}},
		{"one record", testFrame(1), SecurityHeader{SenderID: 2, KeyVersion: 4, Nonce: 99}},
		{"full frame", testFrame(19), SecurityHeader{SenderID: 0xFFFF, KeyVersion: 0xFF, Reserved: 0xFF, Nonce: 0xFFFFFFFF}},
		{"no app header", frame.Frame{Header: []byte{}, Payload: []byte{1, 2, 3}}, SecurityHeader{SenderID: 5}},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mac := testMAC(byte(i))
			sealed := Seal(cfg, tt.frame, tt.sec, mac)

			sec, got, err := OpenHeader(cfg, sealed, mac, replay.NewGuard(8))
			require.NoError(t, err)
			assert.Equal(t, tt.sec, sec)
			assertFrameEqual(t, tt.frame, got)
		})
	}
}

func TestOpenTamperedTag(t *testing.T) {
	mac := testMAC(1)
	sealed := Seal(cfg, testFrame(3), SecurityHeader{SenderID: 1, Nonce: 5}, mac)
	sealed.Payload[len(sealed.Payload)-1] ^= 0x01

	guard := replay.NewGuard(8)
	_, err := Open(cfg, sealed, mac, guard)
	assert.ErrorIs(t, err, ErrAuthFailed)
	assert.Equal(t, 0, guard.Len(1), "auth failure must not consume replay state")
}

func TestOpenTamperedAnywhere(t *testing.T) {
	mac := testMAC(1)
	orig := Seal(cfg, testFrame(2), SecurityHeader{SenderID: 1, Nonce: 5}, mac)

	wire := WireBytes(orig)
	for i := range wire {
		tampered := append([]byte(nil), wire...)
		tampered[i] ^= 0x80

		sealed, err := SplitWire(cfg, tampered)
		require.NoError(t, err)
		_, err = Open(cfg, sealed, mac, replay.NewGuard(8))
		assert.ErrorIs(t, err, ErrAuthFailed, "byte %d", i)
	}
}

func TestOpenWrongKey(t *testing.T) {
	sealed := Seal(cfg, testFrame(1), SecurityHeader{SenderID: 1, Nonce: 1}, testMAC(1))
	_, err := Open(cfg, sealed, testMAC(2), replay.NewGuard(8))
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestOpenReplay(t *testing.T) {
	mac := testMAC(3)
	sealed := Seal(cfg, testFrame(4), SecurityHeader{SenderID: 12, Nonce: 1000}, mac)
	guard := replay.NewGuard(8)

	_, err := Open(cfg, sealed, mac, guard)
	require.NoError(t, err)

	_, err = Open(cfg, sealed, mac, guard)
	assert.ErrorIs(t, err, ErrReplayed)
}

func TestOpenMalformed(t *testing.T) {
	mac := testMAC(1)
	tests := []struct {
		name string
		f    frame.Frame
	}{
		{"empty", frame.Frame{}},
		{"short header", frame.Frame{Header: make([]byte, 7), Payload: make([]byte, 32)}},
		{"short payload", frame.Frame{Header: make([]byte, 12), Payload: make([]byte, 15)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(cfg, tt.f, mac, replay.NewGuard(8))
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestOpenDoesNotAliasInput(t *testing.T) {
	mac := testMAC(1)
	sealed := Seal(cfg, testFrame(1), SecurityHeader{SenderID: 1, Nonce: 1}, mac)

	got, err := Open(cfg, sealed, mac, replay.NewGuard(8))
	require.NoError(t, err)

	want := sealed.Payload[0]
	got.Payload[0] ^= 0xFF
	assert.Equal(t, want, sealed.Payload[0])
}

func TestSplitWire(t *testing.T) {
	mac := testMAC(1)
	sealed := Seal(cfg, testFrame(2), SecurityHeader{SenderID: 1, Nonce: 2}, mac)

	split, err := SplitWire(cfg, WireBytes(sealed))
	require.NoError(t, err)
	assertFrameEqual(t, sealed, split)

	_, err = SplitWire(cfg, make([]byte, HeaderSize+cfg.HeaderLen+TagSize-1))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestToken(t *testing.T) {
	assert.Equal(t, uint64(0x0000_0001_0002), Token(2, 1))
	assert.Equal(t, uint64(0xFFFF_FFFF_FFFF), Token(0xFFFF, 0xFFFFFFFF))
}
