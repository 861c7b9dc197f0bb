package replay

// MaxWindowSize is the largest supported bitmap window.
const MaxWindowSize = 64

// Window is a per-sender sliding bitmap over nonces.
//
// The nonce is taken from the token's upper bits (token >> 16), matching
// the token layout produced by the sealer. Nonces are compared with serial
// arithmetic so the window keeps working across u32 wraparound.
type Window struct {
	size    uint32
	senders map[uint16]*windowState
}

type windowState struct {
	highest uint32
	// bit i set means nonce highest-i was accepted.
	bitmap uint64
}

// NewWindow creates a window tracking size nonces per sender.
// size is clamped to [1, MaxWindowSize].
func NewWindow(size int) *Window {
	size = min(max(size, 1), MaxWindowSize)
	return &Window{
		size:    uint32(size),
		senders: make(map[uint16]*windowState),
	}
}

// Accept rejects duplicates and nonces older than the window.
func (w *Window) Accept(sender uint16, token uint64) bool {
	nonce := uint32(token >> 16)

	st, ok := w.senders[sender]
	if !ok {
		w.senders[sender] = &windowState{highest: nonce, bitmap: 1}
		return true
	}

	if diff := nonce - st.highest; diff != 0 && diff < 1<<31 {
		// Ahead of the window: slide forward.
		if diff >= MaxWindowSize {
			st.bitmap = 0
		} else {
			st.bitmap <<= diff
		}
		st.bitmap |= 1
		st.highest = nonce
		return true
	}

	behind := st.highest - nonce
	if behind >= w.size {
		return false
	}
	bit := uint64(1) << behind
	if st.bitmap&bit != 0 {
		return false
	}
	st.bitmap |= bit
	return true
}

// Highest returns the highest nonce accepted from sender.
func (w *Window) Highest(sender uint16) (uint32, bool) {
	st, ok := w.senders[sender]
	if !ok {
		return 0, false
	}
	return st.highest, true
}
