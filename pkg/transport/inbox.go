package transport

import "sync"

// DefaultInboxSize is the number of inbound frames buffered per transport.
const DefaultInboxSize = 256

// inbox is a bounded FIFO of received frames. Pushing into a full inbox
// drops the oldest frame.
type inbox struct {
	mu      sync.Mutex
	frames  [][]byte
	limit   int
	dropped uint64
}

func newInbox(limit int) *inbox {
	if limit <= 0 {
		limit = DefaultInboxSize
	}
	return &inbox{limit: limit}
}

func (b *inbox) push(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.frames) >= b.limit {
		b.frames[0] = nil
		b.frames = b.frames[1:]
		b.dropped++
	}
	b.frames = append(b.frames, data)
}

func (b *inbox) pop() ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.frames) == 0 {
		return nil, false
	}
	data := b.frames[0]
	b.frames[0] = nil
	b.frames = b.frames[1:]
	return data, true
}

func (b *inbox) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.frames)
}

func (b *inbox) droppedCount() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
