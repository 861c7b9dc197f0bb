package transport

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arxos-protocol/arxos-go/pkg/binder"
	"github.com/arxos-protocol/arxos-go/pkg/log"
)

// MaxDatagramSize is the largest datagram read.
const MaxDatagramSize = 2048

// Read error backoff defaults.
const (
	ReadBackoffInitial = 10 * time.Millisecond
	ReadBackoffMax     = time.Second
)

// UDPConfig configures a UDPTransport.
type UDPConfig struct {
	// Listen is the local address, for example ":4790".
	Listen string

	// Peer is the remote address frames are sent to. When empty, frames go
	// to the source of the most recent datagram.
	Peer string

	// AcceptAny accepts datagrams from any source. Otherwise, when Peer is
	// set, datagrams from other sources are dropped.
	AcceptAny bool

	// InboxSize bounds buffered inbound frames. Zero selects DefaultInboxSize.
	InboxSize int

	// ReadBackoff spaces retries after socket read errors. Zero fields
	// select ReadBackoffInitial and ReadBackoffMax.
	ReadBackoff BackoffConfig

	Logger log.Logger
	LinkID string
}

// packetConn is the part of *net.UDPConn the transport uses.
type packetConn interface {
	ReadFromUDP(b []byte) (int, *net.UDPAddr, error)
	WriteToUDP(b []byte, addr *net.UDPAddr) (int, error)
	LocalAddr() net.Addr
	Close() error
}

// UDPTransport carries one sealed frame per datagram.
type UDPTransport struct {
	conn      packetConn
	in        *inbox
	backoff   *Backoff
	acceptAny bool
	logger    log.Logger
	linkID    string

	mu     sync.Mutex
	peer   *net.UDPAddr
	fixed  bool
	closed atomic.Bool
	stop   chan struct{}
	done   chan struct{}

	foreign    atomic.Uint64
	readErrors atomic.Uint64
}

// ListenUDP binds the local address and starts the reader goroutine.
func ListenUDP(cfg UDPConfig) (*UDPTransport, error) {
	laddr, err := net.ResolveUDPAddr("udp", cfg.Listen)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", cfg.Listen, err)
	}

	var peer *net.UDPAddr
	if cfg.Peer != "" {
		peer, err = net.ResolveUDPAddr("udp", cfg.Peer)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", cfg.Peer, err)
		}
	}

	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("%w: listen %s: %v", binder.ErrIO, cfg.Listen, err)
	}
	return newUDPTransport(conn, peer, cfg), nil
}

func newUDPTransport(conn packetConn, peer *net.UDPAddr, cfg UDPConfig) *UDPTransport {
	if cfg.ReadBackoff.Initial <= 0 {
		cfg.ReadBackoff.Initial = ReadBackoffInitial
	}
	if cfg.ReadBackoff.Max <= 0 {
		cfg.ReadBackoff.Max = ReadBackoffMax
	}

	t := &UDPTransport{
		conn:      conn,
		in:        newInbox(cfg.InboxSize),
		backoff:   NewBackoff(cfg.ReadBackoff),
		acceptAny: cfg.AcceptAny,
		logger:    cfg.Logger,
		linkID:    cfg.LinkID,
		peer:      peer,
		fixed:     peer != nil,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go t.readLoop()
	return t
}

func (t *UDPTransport) readLoop() {
	defer close(t.done)

	buf := make([]byte, MaxDatagramSize)
	for {
		n, from, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			if t.closed.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			// Back off across consecutive failures and log only the first.
			t.readErrors.Add(1)
			if t.backoff.Attempts() == 0 {
				t.logError(err, "read")
			}
			select {
			case <-t.stop:
				return
			case <-time.After(t.backoff.Next()):
			}
			continue
		}
		if t.backoff.Attempts() > 0 {
			t.backoff.Reset()
		}
		if n == 0 {
			continue
		}

		t.mu.Lock()
		if t.fixed && !t.acceptAny && !sameAddr(from, t.peer) {
			t.mu.Unlock()
			t.foreign.Add(1)
			continue
		}
		if !t.fixed {
			t.peer = from
		}
		t.mu.Unlock()

		data := append([]byte(nil), buf[:n]...)
		if t.logger != nil {
			ev := transportEvent(t.linkID, log.DirectionIn, data)
			ev.RemoteAddr = from.String()
			t.logger.Log(ev)
		}
		t.in.push(data)
	}
}

// Send writes data as one datagram to the peer. With no configured peer and
// nothing received yet it returns binder.ErrNotConnected.
func (t *UDPTransport) Send(data []byte) error {
	if t.closed.Load() {
		return binder.ErrNotConnected
	}

	t.mu.Lock()
	peer := t.peer
	t.mu.Unlock()
	if peer == nil {
		return fmt.Errorf("%w: no peer address", binder.ErrNotConnected)
	}

	if _, err := t.conn.WriteToUDP(data, peer); err != nil {
		t.logError(err, "send")
		return fmt.Errorf("%w: %v", binder.ErrIO, err)
	}
	if t.logger != nil {
		ev := transportEvent(t.linkID, log.DirectionOut, data)
		ev.RemoteAddr = peer.String()
		t.logger.Log(ev)
	}
	return nil
}

// TryReceive pops the oldest buffered datagram.
func (t *UDPTransport) TryReceive() ([]byte, bool) {
	return t.in.pop()
}

// LocalAddr returns the bound address.
func (t *UDPTransport) LocalAddr() *net.UDPAddr {
	return t.conn.LocalAddr().(*net.UDPAddr)
}

// Foreign returns the number of datagrams dropped for coming from a source
// other than the configured peer.
func (t *UDPTransport) Foreign() uint64 {
	return t.foreign.Load()
}

// Dropped returns the number of inbound datagrams lost to a full inbox.
func (t *UDPTransport) Dropped() uint64 {
	return t.in.droppedCount()
}

// ReadErrors returns the number of failed socket reads.
func (t *UDPTransport) ReadErrors() uint64 {
	return t.readErrors.Load()
}

// Close closes the socket and waits for the reader to exit.
func (t *UDPTransport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	close(t.stop)
	err := t.conn.Close()
	<-t.done
	return err
}

func (t *UDPTransport) logError(err error, context string) {
	if t.logger == nil {
		return
	}
	t.logger.Log(log.Event{
		Timestamp: time.Now(),
		LinkID:    t.linkID,
		Layer:     log.LayerTransport,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerTransport,
			Message: err.Error(),
			Context: context,
		},
	})
}

func sameAddr(a, b *net.UDPAddr) bool {
	return a.Port == b.Port && a.IP.Equal(b.IP)
}

// Compile-time interface satisfaction checks.
var (
	_ binder.Transport = (*MemoryTransport)(nil)
	_ binder.Transport = (*StreamTransport)(nil)
	_ binder.Transport = (*UDPTransport)(nil)
)
