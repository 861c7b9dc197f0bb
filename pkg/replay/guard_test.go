package replay

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func token(sender uint16, nonce uint32) uint64 {
	return uint64(nonce)<<16 | uint64(sender)
}

func TestGuardRejectsDuplicate(t *testing.T) {
	g := NewGuard(4)

	assert.True(t, g.Accept(1, token(1, 100)))
	assert.False(t, g.Accept(1, token(1, 100)))
	assert.Equal(t, 1, g.Len(1))
}

func TestGuardPerSender(t *testing.T) {
	g := NewGuard(4)

	// Same token value under two senders is tracked independently.
	assert.True(t, g.Accept(1, 42))
	assert.True(t, g.Accept(2, 42))
	assert.False(t, g.Accept(1, 42))
	assert.False(t, g.Accept(2, 42))
}

func TestGuardEvictsOldestFirst(t *testing.T) {
	g := NewGuard(3)

	for n := uint32(1); n <= 4; n++ {
		assert.True(t, g.Accept(7, token(7, n)))
	}
	assert.Equal(t, 3, g.Len(7))

	// Nonce 1 was evicted and is accepted again; 2..4 are still retained.
	assert.True(t, g.Accept(7, token(7, 1)))
	assert.False(t, g.Accept(7, token(7, 3)))
	assert.False(t, g.Accept(7, token(7, 4)))
	assert.True(t, g.Accept(7, token(7, 2)), "2 was evicted by the re-accepted 1")
}

func TestGuardAcceptsOutOfOrder(t *testing.T) {
	g := NewGuard(8)
	for _, n := range []uint32{5, 1, 9, 3} {
		assert.True(t, g.Accept(1, token(1, n)))
	}
}

func TestGuardDefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, NewGuard(0).Capacity())
	assert.Equal(t, DefaultCapacity, NewGuard(-3).Capacity())
}

func TestGuardReset(t *testing.T) {
	g := NewGuard(2)
	g.Accept(1, 10)
	g.Reset()
	assert.Equal(t, 0, g.Len(1))
	assert.True(t, g.Accept(1, 10))
}

func TestWindowOutOfOrder(t *testing.T) {
	w := NewWindow(8)

	assert.True(t, w.Accept(1, token(1, 10)))
	assert.True(t, w.Accept(1, token(1, 8)))
	assert.True(t, w.Accept(1, token(1, 12)))
	assert.True(t, w.Accept(1, token(1, 11)))

	assert.False(t, w.Accept(1, token(1, 10)))
	assert.False(t, w.Accept(1, token(1, 8)))
	assert.False(t, w.Accept(1, token(1, 12)))

	hi, ok := w.Highest(1)
	assert.True(t, ok)
	assert.Equal(t, uint32(12), hi)
}

func TestWindowRejectsStale(t *testing.T) {
	w := NewWindow(4)

	assert.True(t, w.Accept(1, token(1, 100)))
	assert.True(t, w.Accept(1, token(1, 97)))
	assert.False(t, w.Accept(1, token(1, 96)), "outside the window")
}

func TestWindowLargeJump(t *testing.T) {
	w := NewWindow(64)

	assert.True(t, w.Accept(1, token(1, 1)))
	assert.True(t, w.Accept(1, token(1, 1000)))
	assert.False(t, w.Accept(1, token(1, 1)))
	assert.True(t, w.Accept(1, token(1, 999)))
}

func TestWindowWraparound(t *testing.T) {
	w := NewWindow(16)

	assert.True(t, w.Accept(1, token(1, 0xFFFFFFFE)))
	assert.True(t, w.Accept(1, token(1, 0xFFFFFFFF)))
	assert.True(t, w.Accept(1, token(1, 0)))
	assert.True(t, w.Accept(1, token(1, 1)))
	assert.False(t, w.Accept(1, token(1, 0xFFFFFFFF)))

	hi, _ := w.Highest(1)
	assert.Equal(t, uint32(1), hi)
}

func TestNewWindowClamps(t *testing.T) {
	assert.Equal(t, uint32(1), NewWindow(0).size)
	assert.Equal(t, uint32(MaxWindowSize), NewWindow(1000).size)
}

func TestLockedConcurrent(t *testing.T) {
	l := NewLocked(NewGuard(1024))

	var wg sync.WaitGroup
	accepted := make(chan bool, 800)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := uint32(0); n < 100; n++ {
				accepted <- l.Accept(1, token(1, n))
			}
		}()
	}
	wg.Wait()
	close(accepted)

	count := 0
	for ok := range accepted {
		if ok {
			count++
		}
	}
	assert.Equal(t, 100, count, "each nonce accepted exactly once")
}
