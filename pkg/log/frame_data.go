package log

// MaxFrameDataSize bounds the raw bytes kept in a FrameEvent.
const MaxFrameDataSize = 1024

// NewFrameEvent builds a FrameEvent from raw sealed bytes, truncating the
// captured data to MaxFrameDataSize.
func NewFrameEvent(data []byte, nonce uint32, records int) *FrameEvent {
	fe := &FrameEvent{
		Size:    len(data),
		Nonce:   nonce,
		Records: records,
	}
	if len(data) > MaxFrameDataSize {
		fe.Data = append([]byte(nil), data[:MaxFrameDataSize]...)
		fe.Truncated = true
	} else {
		fe.Data = append([]byte(nil), data...)
	}
	return fe
}
