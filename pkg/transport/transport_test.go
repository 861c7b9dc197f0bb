package transport

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arxos-protocol/arxos-go/pkg/binder"
	"github.com/arxos-protocol/arxos-go/pkg/log"
)

func TestMemoryPair(t *testing.T) {
	a, b := NewMemoryPair(4)

	_, ok := b.TryReceive()
	assert.False(t, ok, "empty buffer")

	msg := []byte{1, 2, 3}
	require.NoError(t, a.Send(msg))
	msg[0] = 9

	got, ok := b.TryReceive()
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, got, "send copies")

	_, ok = a.TryReceive()
	assert.False(t, ok, "no loopback")
}

func TestMemoryPairOverflowDropsOldest(t *testing.T) {
	a, b := NewMemoryPair(2)
	for i := byte(0); i < 3; i++ {
		require.NoError(t, a.Send([]byte{i}))
	}

	assert.Equal(t, 2, b.Pending())
	assert.Equal(t, uint64(1), b.Dropped())

	got, _ := b.TryReceive()
	assert.Equal(t, []byte{1}, got)
}

func TestMemoryPairClosed(t *testing.T) {
	a, b := NewMemoryPair(2)
	require.NoError(t, b.Close())

	assert.ErrorIs(t, a.Send([]byte{1}), binder.ErrNotConnected)
	assert.ErrorIs(t, b.Send([]byte{1}), binder.ErrNotConnected)

	b.Inject([]byte{7})
	got, ok := b.TryReceive()
	require.True(t, ok)
	assert.Equal(t, []byte{7}, got)
}

func TestStreamTransport(t *testing.T) {
	c1, c2 := net.Pipe()
	a := NewStreamTransport(c1, StreamConfig{})
	b := NewStreamTransport(c2, StreamConfig{})
	defer a.Close()
	defer b.Close()

	require.NoError(t, a.Send([]byte("frame-1")))
	require.NoError(t, a.Send([]byte("frame-2")))

	var got [][]byte
	require.Eventually(t, func() bool {
		for {
			data, ok := b.TryReceive()
			if !ok {
				break
			}
			got = append(got, data)
		}
		return len(got) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, [][]byte{[]byte("frame-1"), []byte("frame-2")}, got)
}

func TestStreamTransportPeerClose(t *testing.T) {
	c1, c2 := net.Pipe()
	a := NewStreamTransport(c1, StreamConfig{})
	b := NewStreamTransport(c2, StreamConfig{})
	defer b.Close()

	require.NoError(t, a.Close())

	select {
	case <-b.Done():
	case <-time.After(time.Second):
		t.Fatal("reader did not stop")
	}
	assert.Error(t, b.Err())
	assert.ErrorIs(t, b.Send([]byte("x")), binder.ErrNotConnected)
	assert.ErrorIs(t, a.Send([]byte("x")), binder.ErrNotConnected)
}

func TestDialAndAcceptStream(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	accepted := make(chan *StreamTransport, 1)
	go func() {
		s, err := AcceptStream(ctx, ln, StreamConfig{})
		if err == nil {
			accepted <- s
		}
		close(accepted)
	}()

	client, err := DialStream(ctx, ln.Addr().String(), BackoffConfig{Initial: 10 * time.Millisecond}, StreamConfig{})
	require.NoError(t, err)
	defer client.Close()

	server := <-accepted
	require.NotNil(t, server)
	defer server.Close()

	require.NoError(t, client.Send([]byte("ping")))
	require.Eventually(t, func() bool {
		data, ok := server.TryReceive()
		return ok && string(data) == "ping"
	}, time.Second, 5*time.Millisecond)
}

func TestDialStreamGivesUp(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err = DialStream(ctx, addr, BackoffConfig{Initial: 10 * time.Millisecond}, StreamConfig{})
	assert.ErrorIs(t, err, binder.ErrNotConnected)
}

func TestUDPTransport(t *testing.T) {
	a, err := ListenUDP(UDPConfig{Listen: "127.0.0.1:0"})
	require.NoError(t, err)
	defer a.Close()

	assert.ErrorIs(t, a.Send([]byte("x")), binder.ErrNotConnected, "no peer yet")

	b, err := ListenUDP(UDPConfig{Listen: "127.0.0.1:0", Peer: a.LocalAddr().String()})
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Send([]byte("hello")))
	require.Eventually(t, func() bool {
		data, ok := a.TryReceive()
		return ok && string(data) == "hello"
	}, time.Second, 5*time.Millisecond)

	// a learned b's address from the datagram.
	require.NoError(t, a.Send([]byte("reply")))
	require.Eventually(t, func() bool {
		data, ok := b.TryReceive()
		return ok && string(data) == "reply"
	}, time.Second, 5*time.Millisecond)
}

func TestUDPTransportDropsForeign(t *testing.T) {
	peer, err := ListenUDP(UDPConfig{Listen: "127.0.0.1:0"})
	require.NoError(t, err)
	defer peer.Close()

	u, err := ListenUDP(UDPConfig{Listen: "127.0.0.1:0", Peer: peer.LocalAddr().String()})
	require.NoError(t, err)
	defer u.Close()

	conn, err := net.DialUDP("udp", nil, u.LocalAddr())
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte("spoof"))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return u.Foreign() == 1 }, time.Second, 5*time.Millisecond)
	_, ok := u.TryReceive()
	assert.False(t, ok)
}

func TestUDPTransportClose(t *testing.T) {
	u, err := ListenUDP(UDPConfig{Listen: "127.0.0.1:0", Peer: "127.0.0.1:9"})
	require.NoError(t, err)

	require.NoError(t, u.Close())
	require.NoError(t, u.Close())
	assert.ErrorIs(t, u.Send([]byte("x")), binder.ErrNotConnected)
}

// brokenConn fails every read until closed.
type brokenConn struct {
	reads  atomic.Int64
	closed atomic.Bool
}

func (c *brokenConn) ReadFromUDP([]byte) (int, *net.UDPAddr, error) {
	c.reads.Add(1)
	if c.closed.Load() {
		return 0, nil, net.ErrClosed
	}
	return 0, nil, errors.New("socket broken")
}

func (c *brokenConn) WriteToUDP(b []byte, _ *net.UDPAddr) (int, error) { return len(b), nil }
func (c *brokenConn) LocalAddr() net.Addr { return &net.UDPAddr{} }

func (c *brokenConn) Close() error {
	c.closed.Store(true)
	return nil
}

func TestUDPTransportReadErrorsBackOff(t *testing.T) {
	conn := &brokenConn{}
	rec := &log.Recorder{}
	u := newUDPTransport(conn, nil, UDPConfig{
		ReadBackoff: BackoffConfig{Initial: 20 * time.Millisecond, Max: 20 * time.Millisecond, Jitter: -1},
		Logger:      rec,
	})

	time.Sleep(110 * time.Millisecond)
	reads := conn.reads.Load()
	assert.GreaterOrEqual(t, reads, int64(2))
	assert.LessOrEqual(t, reads, int64(10), "reader must not spin on a failing socket")
	assert.GreaterOrEqual(t, u.ReadErrors()+1, uint64(reads))
	assert.Equal(t, 1, rec.Count(log.CategoryError), "one log entry per failure streak")

	closed := make(chan struct{})
	go func() {
		_ = u.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close blocked behind the read backoff")
	}
}

func TestBackoff(t *testing.T) {
	b := NewBackoff(BackoffConfig{Initial: time.Second, Max: 4 * time.Second, Jitter: -1})

	assert.Equal(t, time.Second, b.Next())
	assert.Equal(t, 2*time.Second, b.Next())
	assert.Equal(t, 4*time.Second, b.Next())
	assert.Equal(t, 4*time.Second, b.Next(), "capped")
	assert.Equal(t, 4, b.Attempts())

	b.Reset()
	assert.Equal(t, time.Second, b.Current())
	assert.Equal(t, 0, b.Attempts())
}

func TestBackoffJitterBounds(t *testing.T) {
	b := NewBackoff(BackoffConfig{Initial: 100 * time.Millisecond, Jitter: 0.5})
	for i := 0; i < 20; i++ {
		base := b.Current()
		d := b.Next()
		assert.GreaterOrEqual(t, d, base)
		assert.LessOrEqual(t, d, base+base/2)
	}
}
