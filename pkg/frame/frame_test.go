package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arxos-protocol/arxos-go/pkg/record"
)

func makeRecords(n int) []record.Record {
	out := make([]record.Record, n)
	for i := range out {
		out[i] = record.Record{
			BuildingID: uint16(0x1000 + i),
			Kind:       record.KindOutlet,
			X:          uint16(i * 10),
			Y:          uint16(i * 20),
			Z:          uint16(i * 30),
			Properties: [4]byte{byte(i), byte(i >> 8), 0xAB, 0xCD},
		}
	}
	return out
}

func TestRecordsPerFrame(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want int
	}{
		{"meshtastic", MeshtasticLoRa, 19},
		{"sdr", SDR, 78},
		{"exact one", Config{MTU: 13, HeaderLen: 0}, 1},
		{"less than one record", Config{MTU: 10, HeaderLen: 4}, 1},
		{"header equals mtu", Config{MTU: 8, HeaderLen: 8}, 0},
		{"header exceeds mtu", Config{MTU: 4, HeaderLen: 8}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.RecordsPerFrame())
		})
	}
}

func TestPackUnpackConservation(t *testing.T) {
	for _, n := range []int{0, 1, 19, 20, 50} {
		records := makeRecords(n)
		frames := Pack(MeshtasticLoRa, records, IndexHeader(MeshtasticLoRa.HeaderLen))

		got := Unpack(frames)
		assert.Len(t, got, n, "n=%d", n)
		if n > 0 {
			assert.Equal(t, records, got, "n=%d", n)
		}
	}
}

func TestPackEmptyEmitsSignalFrame(t *testing.T) {
	var calls [][2]int
	frames := Pack(MeshtasticLoRa, nil, func(index, total int) []byte {
		calls = append(calls, [2]int{index, total})
		return []byte{0xAA}
	})

	require.Len(t, frames, 1)
	assert.Empty(t, frames[0].Payload)
	assert.NotNil(t, frames[0].Payload)
	assert.Equal(t, []byte{0xAA}, frames[0].Header)
	assert.Equal(t, [][2]int{{0, 1}}, calls)
}

func TestPackFiftyRecordsMeshtastic(t *testing.T) {
	records := makeRecords(50)
	frames := Pack(MeshtasticLoRa, records, IndexHeader(4))

	require.Len(t, frames, 3)
	assert.Equal(t, 19, frames[0].RecordCount())
	assert.Equal(t, 19, frames[1].RecordCount())
	assert.Equal(t, 12, frames[2].RecordCount())

	for i, f := range frames {
		index, total, ok := ParseIndexHeader(f.Header)
		require.True(t, ok)
		assert.Equal(t, uint16(i), index)
		assert.Equal(t, uint16(3), total)
		assert.LessOrEqual(t, len(f.Header)+len(f.Payload), MeshtasticLoRa.MTU)
	}

	got := Unpack(frames)
	require.Len(t, got, 50)
	assert.Equal(t, records[0], got[0])
	assert.Equal(t, records[49], got[49])
}

func TestPackZeroCapacityClampsToOne(t *testing.T) {
	cfg := Config{MTU: 4, HeaderLen: 4}
	records := makeRecords(3)

	frames := Pack(cfg, records, IndexHeader(cfg.HeaderLen))
	require.Len(t, frames, 3)
	for _, f := range frames {
		assert.Equal(t, 1, f.RecordCount())
	}
	assert.Equal(t, records, Unpack(frames))
}

func TestUnpackDropsTrailingPartial(t *testing.T) {
	rec := makeRecords(2)
	payload := rec[0].AppendBinary(nil)
	payload = rec[1].AppendBinary(payload)
	payload = append(payload, 0x01, 0x02, 0x03)

	got := Unpack([]Frame{{Payload: payload}})
	assert.Equal(t, rec, got)
}

func TestUnpackUsesGivenOrder(t *testing.T) {
	records := makeRecords(40)
	frames := Pack(MeshtasticLoRa, records, IndexHeader(4))
	require.Len(t, frames, 3)

	reordered := []Frame{frames[2], frames[0], frames[1]}
	got := Unpack(reordered)

	want := append(append(append([]record.Record{}, records[38:]...), records[:19]...), records[19:38]...)
	assert.Equal(t, want, got)
}

func TestUnpackSpansFrameBoundaries(t *testing.T) {
	// Partial spans in one payload combine with the next one.
	enc := makeRecords(1)[0].Bytes()
	got := Unpack([]Frame{{Payload: enc[:5]}, {Payload: enc[5:]}})
	require.Len(t, got, 1)
	assert.Equal(t, makeRecords(1)[0], got[0])
}

func TestIndexHeader(t *testing.T) {
	h := IndexHeader(4)(2, 3)
	assert.Equal(t, []byte{0x02, 0x00, 0x03, 0x00}, h)

	padded := IndexHeader(8)(0x0102, 0x0304)
	assert.Equal(t, []byte{0x02, 0x01, 0x04, 0x03, 0, 0, 0, 0}, padded)

	truncated := IndexHeader(2)(5, 9)
	assert.Equal(t, []byte{0x05, 0x00}, truncated)
	_, _, ok := ParseIndexHeader(truncated)
	assert.False(t, ok)

	assert.Empty(t, IndexHeader(0)(1, 1))
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, MeshtasticLoRa.Validate())
	assert.NoError(t, Config{MTU: 4, HeaderLen: 4}.Validate())
	assert.ErrorIs(t, Config{MTU: 0}.Validate(), ErrInvalidMTU)
	assert.ErrorIs(t, Config{MTU: 10, HeaderLen: -1}.Validate(), ErrInvalidHeaderLen)
}

func TestProfileByName(t *testing.T) {
	cfg, err := ProfileByName("Meshtastic")
	require.NoError(t, err)
	assert.Equal(t, MeshtasticLoRa, cfg)

	cfg, err = ProfileByName("sdr")
	require.NoError(t, err)
	assert.Equal(t, SDR, cfg)

	_, err = ProfileByName("wifi")
	assert.Error(t, err)
}

func TestPackNilHeaderFunc(t *testing.T) {
	records := makeRecords(40)
	frames := Pack(MeshtasticLoRa, records, nil)
	require.Len(t, frames, 3)
	for _, f := range frames {
		assert.Empty(t, f.Header)
	}
	assert.Equal(t, records, Unpack(frames))

	empty := Pack(MeshtasticLoRa, nil, nil)
	require.Len(t, empty, 1)
	assert.Empty(t, empty[0].Header)
	assert.Empty(t, empty[0].Payload)
}

func TestCount(t *testing.T) {
	tests := []struct {
		cfg  Config
		n    int
		want int
	}{
		{MeshtasticLoRa, 0, 1},
		{MeshtasticLoRa, 1, 1},
		{MeshtasticLoRa, 19, 1},
		{MeshtasticLoRa, 20, 2},
		{MeshtasticLoRa, 114, 6},
		{SDR, 79, 2},
		{Config{MTU: 4, HeaderLen: 8}, 3, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Count(tt.cfg, tt.n), "n=%d cfg=%+v", tt.n, tt.cfg)
		assert.Len(t, Pack(tt.cfg, makeRecords(tt.n), nil), tt.want, "n=%d cfg=%+v", tt.n, tt.cfg)
	}
}
