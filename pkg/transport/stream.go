package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/arxos-protocol/arxos-go/pkg/binder"
	"github.com/arxos-protocol/arxos-go/pkg/log"
)

// StreamConfig configures a StreamTransport.
type StreamConfig struct {
	// MaxMessageSize bounds one frame. Zero selects DefaultMaxMessageSize.
	MaxMessageSize uint32

	// InboxSize bounds buffered inbound frames. Zero selects DefaultInboxSize.
	InboxSize int

	// Logger receives transport-layer frame and error events.
	Logger log.Logger

	// LinkID tags log events.
	LinkID string
}

// StreamTransport carries length-prefixed frames over a byte stream.
type StreamTransport struct {
	conn   io.ReadWriteCloser
	framer *Framer
	in     *inbox
	logger log.Logger
	linkID string

	mu     sync.Mutex
	closed bool
	err    error
	done   chan struct{}
}

// NewStreamTransport wraps conn and starts the reader goroutine.
func NewStreamTransport(conn io.ReadWriteCloser, cfg StreamConfig) *StreamTransport {
	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = DefaultMaxMessageSize
	}

	t := &StreamTransport{
		conn:   conn,
		framer: NewFramerWithMaxSize(conn, cfg.MaxMessageSize),
		in:     newInbox(cfg.InboxSize),
		logger: cfg.Logger,
		linkID: cfg.LinkID,
		done:   make(chan struct{}),
	}
	if cfg.Logger != nil {
		t.framer.SetLogger(cfg.Logger, cfg.LinkID)
	}

	go t.readLoop()
	return t
}

// DialStream connects to a TCP address, retrying with backoff until ctx
// is done.
func DialStream(ctx context.Context, address string, backoff BackoffConfig, cfg StreamConfig) (*StreamTransport, error) {
	b := NewBackoff(backoff)
	dialer := &net.Dialer{}

	for {
		conn, err := dialer.DialContext(ctx, "tcp", address)
		if err == nil {
			return NewStreamTransport(conn, cfg), nil
		}

		delay := b.Next()
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: dial %s: %v", binder.ErrNotConnected, address, err)
		case <-time.After(delay):
		}
	}
}

// AcceptStream waits for one TCP connection on ln.
func AcceptStream(ctx context.Context, ln net.Listener, cfg StreamConfig) (*StreamTransport, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := ln.Accept()
		ch <- result{conn, err}
	}()

	select {
	case <-ctx.Done():
		ln.Close()
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("%w: accept: %v", binder.ErrIO, r.err)
		}
		return NewStreamTransport(r.conn, cfg), nil
	}
}

func (t *StreamTransport) readLoop() {
	defer close(t.done)

	for {
		data, err := t.framer.ReadFrame()
		if err != nil {
			t.fail(err)
			return
		}
		t.in.push(data)
	}
}

func (t *StreamTransport) fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.err != nil || t.closed {
		return
	}
	t.err = err
	if t.logger != nil && !errors.Is(err, io.EOF) {
		t.logger.Log(log.Event{
			Timestamp: time.Now(),
			LinkID:    t.linkID,
			Direction: log.DirectionIn,
			Layer:     log.LayerTransport,
			Category:  log.CategoryError,
			Error: &log.ErrorEventData{
				Layer:   log.LayerTransport,
				Message: err.Error(),
				Context: "read",
			},
		})
	}
}

// Send writes one frame. After the stream failed or was closed it returns
// binder.ErrNotConnected; write failures wrap binder.ErrIO.
func (t *StreamTransport) Send(data []byte) error {
	t.mu.Lock()
	closed, readErr := t.closed, t.err
	t.mu.Unlock()

	if closed || readErr != nil {
		return binder.ErrNotConnected
	}
	if err := t.framer.WriteFrame(data); err != nil {
		return fmt.Errorf("%w: %v", binder.ErrIO, err)
	}
	return nil
}

// TryReceive pops the oldest buffered frame. Frames received before the
// stream ended remain available.
func (t *StreamTransport) TryReceive() ([]byte, bool) {
	return t.in.pop()
}

// Err returns the error that stopped the reader, or nil while it runs.
// A peer closing the stream reports io.EOF.
func (t *StreamTransport) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Done is closed when the reader goroutine exits.
func (t *StreamTransport) Done() <-chan struct{} {
	return t.done
}

// Dropped returns the number of inbound frames lost to a full inbox.
func (t *StreamTransport) Dropped() uint64 {
	return t.in.droppedCount()
}

// Close closes the stream and waits for the reader to exit.
func (t *StreamTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	err := t.conn.Close()
	<-t.done
	return err
}
