// Command arx-link sends and receives sealed record frames over a UDP or TCP
// link, either point-to-point or as a mesh gateway.
//
// Usage:
//
//	arx-link <command> [flags]
//
// Commands:
//
//	send      Send a YAML record batch
//	listen    Print records as they arrive
//	console   Interactive shell around one link
//	invite    Create or verify an access invite code
//	discover  Browse for gateways via mDNS
//	keygen    Print a random 32-byte link key
//
// Link settings come from a YAML or TOML file (-config). Flags override
// individual settings.
//
// Examples:
//
//	# Send a batch point-to-point to a peer
//	arx-link send -config link.yaml -peer 10.0.0.2:4790 records.yaml
//
//	# Run a mesh gateway that prints completed broadcasts
//	arx-link listen -config gateway.toml -mesh
//
//	# Create a technician invite valid for 12 hours
//	arx-link invite -config link.yaml -building 0x1234 -role tech -hours 12
//
//	# Verify an invite
//	arx-link invite -config link.yaml -seed 3405691582 ARX:1:3412f0000000000000020c9a41
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/arxos-protocol/arxos-go/pkg/auth"
	"github.com/arxos-protocol/arxos-go/pkg/config"
	"github.com/arxos-protocol/arxos-go/pkg/frame"
	"github.com/arxos-protocol/arxos-go/pkg/record"
)

const usage = `arx-link - Sealed Record Link

Usage:
  arx-link <command> [flags]

Commands:
  send      Send a YAML record batch
  listen    Print records as they arrive
  console   Interactive shell around one link
  invite    Create or verify an access invite code
  discover  Browse for gateways via mDNS
  keygen    Print a random 32-byte link key

Use "arx-link <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "send":
		err = runSend(args)
	case "listen":
		err = runListen(args)
	case "console":
		err = runConsole(args)
	case "invite":
		err = runInvite(args)
	case "discover":
		err = runDiscover(args)
	case "keygen":
		err = runKeygen()
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// linkFlags are the flags shared by every command that opens a link.
type linkFlags struct {
	configFile string
	logLevel   string
	logFile    string
	key        string
	passphrase string
	senderID   uint
	profile    string
	transport  string
	listen     string
	peer       string
	mesh       bool
	discovery  bool
}

func addLinkFlags(fs *flag.FlagSet) *linkFlags {
	f := &linkFlags{}
	fs.StringVar(&f.configFile, "config", "", "Configuration file (.yaml, .yml, .toml)")
	fs.StringVar(&f.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fs.StringVar(&f.logFile, "log", "", "Protocol event log file (.alog)")
	fs.StringVar(&f.key, "key", "", "Link key, 64 hex digits")
	fs.StringVar(&f.passphrase, "passphrase", "", "Derive the link key from a passphrase")
	fs.UintVar(&f.senderID, "sender", 0, "Sender ID (overrides config)")
	fs.StringVar(&f.profile, "profile", "", "Radio profile: meshtastic, lora, sdr")
	fs.StringVar(&f.transport, "transport", "", "Transport: udp, tcp")
	fs.StringVar(&f.listen, "listen", "", "Local address")
	fs.StringVar(&f.peer, "peer", "", "Peer address")
	fs.BoolVar(&f.mesh, "mesh", false, "Run as a mesh gateway (CBOR-wrapped broadcast packets)")
	fs.BoolVar(&f.discovery, "advertise", false, "Advertise this gateway via mDNS")
	return f
}

// load reads the configuration file, if any, and applies flag overrides.
func (f *linkFlags) load() (config.LinkConfig, error) {
	cfg := config.Default()
	if f.configFile != "" {
		var err error
		if cfg, err = config.Load(f.configFile); err != nil {
			return config.LinkConfig{}, err
		}
	}

	if f.key != "" {
		cfg.Key, cfg.Passphrase = f.key, ""
	}
	if f.passphrase != "" {
		cfg.Key, cfg.Passphrase = "", f.passphrase
	}
	if f.senderID > 0 {
		if f.senderID > 0xFFFF {
			return config.LinkConfig{}, fmt.Errorf("%w: sender %d", config.ErrInvalidOption, f.senderID)
		}
		cfg.SenderID = uint16(f.senderID)
	}
	if f.profile != "" {
		cfg.Profile = f.profile
		cfg.Frame = frame.Config{}
	}
	if f.transport != "" {
		cfg.Transport.Kind = f.transport
	}
	if f.listen != "" {
		cfg.Transport.Listen = f.listen
	}
	if f.peer != "" {
		cfg.Transport.Peer = f.peer
	}
	if f.logFile != "" {
		cfg.LogFile = f.logFile
	}
	if f.discovery {
		cfg.Discovery.Enabled = true
	}

	if err := cfg.Validate(); err != nil {
		return config.LinkConfig{}, err
	}
	return cfg, nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}

// switchWriter lets log output be redirected once the console owns the
// terminal.
type switchWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *switchWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (s *switchWriter) Set(w io.Writer) {
	s.mu.Lock()
	s.w = w
	s.mu.Unlock()
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newFlagSet(name, synopsis, usageLine string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "arx-link %s - %s\n\nUsage:\n  %s\n\nFlags:\n", name, synopsis, usageLine)
		fs.PrintDefaults()
	}
	return fs
}

func runSend(args []string) error {
	fs := newFlagSet("send", "Send a YAML record batch", "arx-link send [flags] <records.yaml|->")
	lf := addLinkFlags(fs)
	demo := fs.Int("demo", 0, "Send n synthetic records instead of a file")
	building := fs.Uint("building", 1, "Building ID for -demo records")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var records []record.Record
	switch {
	case *demo > 0:
		records = demoRecords(uint16(*building), *demo)
	case fs.NArg() == 1:
		var err error
		if records, err = loadRecords(fs.Arg(0)); err != nil {
			return err
		}
	default:
		fs.Usage()
		return fmt.Errorf("records file or -demo required")
	}

	cfg, err := lf.load()
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, lf.logLevel)

	ctx, cancel := signalContext()
	defer cancel()

	l, err := openLink(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer l.Close()

	ep, err := l.endpoint(lf.mesh)
	if err != nil {
		return err
	}
	n, err := ep.Send(records)
	if err != nil {
		return fmt.Errorf("sent %d frames: %w", n, err)
	}
	logger.Info("sent", "records", len(records), "frames", n)
	return nil
}

func runListen(args []string) error {
	fs := newFlagSet("listen", "Print records as they arrive", "arx-link listen [flags]")
	lf := addLinkFlags(fs)
	out := fs.String("o", "", "Also write received records to this YAML file on exit")
	duration := fs.Duration("duration", 0, "Stop after this long (default: until interrupted)")
	interval := fs.Duration("interval", 100*time.Millisecond, "Poll interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := lf.load()
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, lf.logLevel)

	ctx, cancel := signalContext()
	defer cancel()
	if *duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	l, err := openLink(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer l.Close()

	ep, err := l.endpoint(lf.mesh)
	if err != nil {
		return err
	}

	received := listen(ctx, ep, *interval, os.Stdout)
	logger.Info("stopped", "records", len(received), "stats", ep.Summary())

	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		defer f.Close()
		return writeRecords(f, received)
	}
	return nil
}

// listen polls ep until ctx is done, printing each record to w, and returns
// everything received.
func listen(ctx context.Context, ep endpoint, interval time.Duration, w io.Writer) []record.Record {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var all []record.Record
	for {
		for _, r := range ep.Poll() {
			fmt.Fprintln(w, r)
			all = append(all, r)
		}
		select {
		case <-ctx.Done():
			return all
		case <-ticker.C:
		}
	}
}

func runConsole(args []string) error {
	fs := newFlagSet("console", "Interactive shell around one link", "arx-link console [flags]")
	lf := addLinkFlags(fs)
	building := fs.Uint("building", 1, "Building ID for invites and demo records")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := lf.load()
	if err != nil {
		return err
	}
	out := &switchWriter{w: os.Stderr}
	logger := newLogger(out, lf.logLevel)

	ctx, cancel := signalContext()
	defer cancel()

	l, err := openLink(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer l.Close()

	ep, err := l.endpoint(lf.mesh)
	if err != nil {
		return err
	}

	c, err := newConsole(ep, auth.NewMAC(l.key), uint16(*building))
	if err != nil {
		return err
	}
	// Route log output through readline so it does not garble the prompt.
	out.Set(c.Stderr())

	go c.Run(ctx, cancel)
	<-ctx.Done()
	return nil
}

func runInvite(args []string) error {
	fs := newFlagSet("invite", "Create or verify an access invite code", "arx-link invite [flags] [code]")
	lf := addLinkFlags(fs)
	building := fs.Uint("building", 1, "Building ID")
	role := fs.String("role", "viewer", "Role: viewer, technician, admin")
	hours := fs.Uint("hours", 24, "Validity in hours (0-255)")
	seed := fs.Uint("seed", 0, "Seed shared with the verifier (default: random when creating)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	key, err := inviteKey(lf)
	if err != nil {
		return err
	}
	mac := auth.NewMAC(key)

	if fs.NArg() == 1 {
		desc, err := verifyInvite(mac, fs.Arg(0), uint32(*seed))
		if err != nil {
			return err
		}
		fmt.Println(desc)
		return nil
	}

	if *hours > 255 || *building > 0xFFFF {
		return fmt.Errorf("%w: hours must fit a byte and building 16 bits", config.ErrInvalidOption)
	}
	code, used, err := createInvite(mac, uint16(*building), *role, uint8(*hours), uint32(*seed))
	if err != nil {
		return err
	}
	fmt.Printf("%s\nseed: %d\n", code, used)
	return nil
}

// inviteKey resolves only the link key; invites need no transport.
func inviteKey(lf *linkFlags) (auth.Key, error) {
	cfg, err := lf.load()
	if err != nil {
		return auth.Key{}, err
	}
	return cfg.LinkKey()
}

func runDiscover(args []string) error {
	fs := newFlagSet("discover", "Browse for gateways via mDNS", "arx-link discover [flags]")
	timeout := fs.Duration("timeout", 3*time.Second, "Browse duration")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	services := browseGateways(ctx, *timeout)
	if len(services) == 0 {
		fmt.Println("No gateways found")
		return nil
	}
	printGateways(os.Stdout, services)
	return nil
}

func runKeygen() error {
	var k auth.Key
	if _, err := io.ReadFull(rand.Reader, k[:]); err != nil {
		return err
	}
	fmt.Println(hex.EncodeToString(k[:]))
	return nil
}
