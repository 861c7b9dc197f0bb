package frame

import "encoding/binary"

// IndexHeaderSize is the full size of the frame index header.
const IndexHeaderSize = 4

// IndexHeader returns a HeaderFunc writing frame_index:u16 LE followed by
// total_frames:u16 LE, sized to headerLen.
//
// Headers shorter than IndexHeaderSize carry a truncated encoding; longer
// headers are zero padded.
func IndexHeader(headerLen int) HeaderFunc {
	return func(index, total int) []byte {
		var full [IndexHeaderSize]byte
		binary.LittleEndian.PutUint16(full[0:], uint16(index))
		binary.LittleEndian.PutUint16(full[2:], uint16(total))

		h := make([]byte, max(0, headerLen))
		copy(h, full[:])
		return h
	}
}

// ParseIndexHeader reads frame_index and total_frames from an application
// header. ok is false when the header is too short to hold both fields.
func ParseIndexHeader(h []byte) (index, total uint16, ok bool) {
	if len(h) < IndexHeaderSize {
		return 0, 0, false
	}
	return binary.LittleEndian.Uint16(h[0:]), binary.LittleEndian.Uint16(h[2:]), true
}
