package mesh

import (
	"sync"
	"time"

	"github.com/arxos-protocol/arxos-go/pkg/record"
)

// Reassembler defaults.
const (
	DefaultReassemblyTimeout = 30 * time.Second
	DefaultMaxPending        = 32
)

// messageKey identifies one multi-frame broadcast. Frames of a broadcast
// share source, sender and nonce seed (nonce minus frame index).
type messageKey struct {
	source uint32
	sender uint16
	seed   uint32
}

type partial struct {
	total    uint16
	frames   map[uint16][]record.Record
	received int
	started  time.Time
}

// ReassemblerOption configures a Reassembler.
type ReassemblerOption func(*Reassembler)

// WithTimeout sets how long an incomplete message is kept.
func WithTimeout(d time.Duration) ReassemblerOption {
	return func(r *Reassembler) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithMaxPending caps the number of incomplete messages. When the cap is
// reached the oldest incomplete message is dropped.
func WithMaxPending(n int) ReassemblerOption {
	return func(r *Reassembler) {
		if n > 0 {
			r.maxPending = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ReassemblerOption {
	return func(r *Reassembler) {
		if now != nil {
			r.now = now
		}
	}
}

// Reassembler collects decoded frames into complete messages.
// It is safe for concurrent use.
type Reassembler struct {
	mu         sync.Mutex
	timeout    time.Duration
	maxPending int
	now        func() time.Time
	pending    map[messageKey]*partial

	expired int
	evicted int
}

// NewReassembler creates a reassembler.
func NewReassembler(opts ...ReassemblerOption) *Reassembler {
	r := &Reassembler{
		timeout:    DefaultReassemblyTimeout,
		maxPending: DefaultMaxPending,
		now:        time.Now,
		pending:    make(map[messageKey]*partial),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add stores a decoded frame received from source. When it completes a
// message, Add returns the message's records in frame index order and true.
//
// Frames without an index header, with total zero, or with an index outside
// total are ignored. A duplicate index keeps the first copy. A frame whose
// total disagrees with the pending message restarts that message.
func (r *Reassembler) Add(source uint32, d Decoded) ([]record.Record, bool) {
	if !d.HasIndex || d.Total == 0 || d.Index >= d.Total {
		return nil, false
	}
	if d.Total == 1 {
		return d.Records, true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.expireLocked(now)

	key := messageKey{source: source, sender: d.Security.SenderID, seed: d.MessageSeed()}
	p, ok := r.pending[key]
	if ok && p.total != d.Total {
		delete(r.pending, key)
		ok = false
	}
	if !ok {
		if len(r.pending) >= r.maxPending {
			r.evictOldestLocked()
		}
		p = &partial{
			total:   d.Total,
			frames:  make(map[uint16][]record.Record, d.Total),
			started: now,
		}
		r.pending[key] = p
	}

	if _, dup := p.frames[d.Index]; dup {
		return nil, false
	}
	p.frames[d.Index] = d.Records
	p.received++

	if p.received < int(p.total) {
		return nil, false
	}

	delete(r.pending, key)
	var out []record.Record
	for i := uint16(0); i < p.total; i++ {
		out = append(out, p.frames[i]...)
	}
	return out, true
}

// Expire drops incomplete messages older than the timeout and returns how
// many were dropped.
func (r *Reassembler) Expire() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.expireLocked(r.now())
}

// Pending returns the number of incomplete messages.
func (r *Reassembler) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Dropped returns the number of incomplete messages dropped by timeout and
// by capacity eviction.
func (r *Reassembler) Dropped() (expired, evicted int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.expired, r.evicted
}

func (r *Reassembler) expireLocked(now time.Time) int {
	n := 0
	for key, p := range r.pending {
		if now.Sub(p.started) >= r.timeout {
			delete(r.pending, key)
			n++
		}
	}
	r.expired += n
	return n
}

func (r *Reassembler) evictOldestLocked() {
	var (
		oldestKey messageKey
		oldest    *partial
	)
	for key, p := range r.pending {
		if oldest == nil || p.started.Before(oldest.started) {
			oldestKey, oldest = key, p
		}
	}
	if oldest != nil {
		delete(r.pending, oldestKey)
		r.evicted++
	}
}
