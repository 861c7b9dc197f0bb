package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/google/uuid"

	"github.com/arxos-protocol/arxos-go/pkg/auth"
	"github.com/arxos-protocol/arxos-go/pkg/binder"
	"github.com/arxos-protocol/arxos-go/pkg/config"
	"github.com/arxos-protocol/arxos-go/pkg/discovery"
	"github.com/arxos-protocol/arxos-go/pkg/log"
	"github.com/arxos-protocol/arxos-go/pkg/persistence"
	"github.com/arxos-protocol/arxos-go/pkg/transport"
)

// link holds everything opened for one run: transport, nonce store,
// protocol log and mDNS advertisement.
type link struct {
	cfg    config.LinkConfig
	key    auth.Key
	linkID string
	logger log.Logger
	slog   *slog.Logger

	tr    binder.Transport
	port  int
	store persistence.NonceStore

	advertiser *discovery.MDNSAdvertiser
	closers    []io.Closer
}

func openLink(ctx context.Context, cfg config.LinkConfig, slogger *slog.Logger) (_ *link, err error) {
	key, err := cfg.LinkKey()
	if err != nil {
		return nil, err
	}

	l := &link{
		cfg:    cfg,
		key:    key,
		linkID: uuid.NewString(),
		slog:   slogger,
	}
	defer func() {
		if err != nil {
			l.Close()
		}
	}()

	loggers := []log.Logger{log.NewSlogAdapter(slogger)}
	if cfg.LogFile != "" {
		fl, err := log.NewFileLogger(cfg.LogFile)
		if err != nil {
			return nil, fmt.Errorf("open protocol log: %w", err)
		}
		l.closers = append(l.closers, fl)
		loggers = append(loggers, fl)
	}
	l.logger = log.NewMultiLogger(loggers...)

	if err := l.openStore(); err != nil {
		return nil, err
	}
	if err := l.openTransport(ctx); err != nil {
		return nil, err
	}

	if cfg.Discovery.Enabled {
		if err := l.advertise(); err != nil {
			// Discovery is a convenience; the link works without it.
			slogger.Warn("mDNS advertisement failed", "error", err)
		}
	}
	return l, nil
}

func (l *link) openStore() error {
	switch l.cfg.NonceStore.Kind {
	case config.StoreJSON:
		l.store = persistence.NewLinkStateStore(l.cfg.NonceStore.Path)
	case config.StoreBadger:
		s, err := persistence.OpenBadgerNonceStore(l.cfg.NonceStore.Path)
		if err != nil {
			return fmt.Errorf("open nonce store: %w", err)
		}
		l.store = s
		l.closers = append(l.closers, s)
	}
	return nil
}

func (l *link) openTransport(ctx context.Context) error {
	tc := l.cfg.Transport

	switch tc.Kind {
	case config.TransportTCP:
		sc := transport.StreamConfig{InboxSize: tc.InboxSize, Logger: l.logger, LinkID: l.linkID}
		if tc.Peer != "" {
			l.slog.Info("dialing", "peer", tc.Peer)
			t, err := transport.DialStream(ctx, tc.Peer, transport.BackoffConfig{}, sc)
			if err != nil {
				return err
			}
			l.tr = t
			l.closers = append(l.closers, t)
			return nil
		}

		ln, err := net.Listen("tcp", tc.Listen)
		if err != nil {
			return fmt.Errorf("listen %s: %w", tc.Listen, err)
		}
		defer ln.Close()
		l.port = ln.Addr().(*net.TCPAddr).Port
		l.advertiseEarly()

		l.slog.Info("waiting for peer", "listen", ln.Addr().String())
		t, err := transport.AcceptStream(ctx, ln, sc)
		if err != nil {
			return err
		}
		l.tr = t
		l.closers = append(l.closers, t)

	default:
		t, err := transport.ListenUDP(transport.UDPConfig{
			Listen:    tc.Listen,
			Peer:      tc.Peer,
			InboxSize: tc.InboxSize,
			Logger:    l.logger,
			LinkID:    l.linkID,
		})
		if err != nil {
			return err
		}
		l.tr = t
		l.port = t.LocalAddr().Port
		l.closers = append(l.closers, t)
		l.slog.Info("udp link open", "listen", t.LocalAddr().String(), "peer", tc.Peer)
	}
	return nil
}

// advertiseEarly advertises a TCP listener before blocking in accept, so
// peers can find it.
func (l *link) advertiseEarly() {
	if !l.cfg.Discovery.Enabled {
		return
	}
	if err := l.advertise(); err != nil {
		l.slog.Warn("mDNS advertisement failed", "error", err)
	}
}

func (l *link) gatewayInfo() *discovery.GatewayInfo {
	return &discovery.GatewayInfo{
		Instance:        l.cfg.Discovery.Instance,
		Port:            uint16(l.port),
		SenderID:        l.cfg.SenderID,
		KeyVersion:      l.cfg.KeyVersion,
		Profile:         l.cfg.Profile,
		RecordsPerFrame: l.cfg.Frame.RecordsPerFrame(),
		Transport:       l.cfg.Transport.Kind,
	}
}

func (l *link) advertise() error {
	if l.advertiser != nil || l.port == 0 {
		return nil
	}
	adv := discovery.NewMDNSAdvertiser(discovery.DefaultAdvertiserConfig())
	info := l.gatewayInfo()
	if err := adv.Advertise(info); err != nil {
		return err
	}
	l.advertiser = adv
	l.slog.Info("advertising gateway", "instance", discovery.InstanceName(info), "port", l.port)
	return nil
}

// endpoint returns a mesh gateway when mesh is set, otherwise a binder.
func (l *link) endpoint(meshMode bool) (endpoint, error) {
	if meshMode {
		return newMeshGateway(l.cfg, l.key, l.tr, l.store, l.logger, l.linkID)
	}

	opts := []binder.Option{
		binder.WithLogger(l.logger),
		binder.WithLinkID(l.linkID),
		binder.WithAcceptor(l.cfg.Acceptor()),
	}
	if l.store != nil {
		opts = append(opts, binder.WithNonceStore(l.store, l.cfg.NonceStore.Block))
	}

	b, err := binder.New(binder.Config{
		Key:        l.key,
		SenderID:   l.cfg.SenderID,
		KeyVersion: l.cfg.KeyVersion,
		Frame:      l.cfg.Frame,
	}, l.tr, opts...)
	if err != nil {
		return nil, err
	}
	return binderEndpoint{b}, nil
}

// Close stops advertising and closes everything in reverse open order.
func (l *link) Close() error {
	if l.advertiser != nil {
		l.advertiser.Stop()
		l.advertiser = nil
	}
	var first error
	for i := len(l.closers) - 1; i >= 0; i-- {
		if err := l.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	l.closers = nil
	return first
}
