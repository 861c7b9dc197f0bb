package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/arxos-protocol/arxos-go/pkg/auth"
	"github.com/arxos-protocol/arxos-go/pkg/discovery"
	"github.com/arxos-protocol/arxos-go/pkg/record"
)

// console is the interactive shell around one endpoint.
type console struct {
	ep       endpoint
	mac      auth.MAC
	building uint16
	rl       *readline.Instance
	out      io.Writer
}

func newConsole(ep endpoint, mac auth.MAC, building uint16) (*console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "arx> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("send"),
			readline.PcItem("demo"),
			readline.PcItem("poll"),
			readline.PcItem("watch"),
			readline.PcItem("stats"),
			readline.PcItem("invite",
				readline.PcItem("viewer"),
				readline.PcItem("technician"),
				readline.PcItem("admin"),
			),
			readline.PcItem("verify"),
			readline.PcItem("discover"),
			readline.PcItem("help"),
			readline.PcItem("quit"),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &console{ep: ep, mac: mac, building: building, rl: rl, out: rl.Stdout()}, nil
}

// Stdout returns a writer that coordinates with the prompt, for log output.
func (c *console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Stderr returns a writer that coordinates with the prompt.
func (c *console) Stderr() io.Writer {
	return c.rl.Stderr()
}

// Run reads commands until quit, EOF or ctx is done.
func (c *console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		if quit := c.exec(ctx, line); quit {
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}
	}
}

// exec runs one command line and reports whether the shell should exit.
func (c *console) exec(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd, args := strings.ToLower(parts[0]), parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()
	case "send", "s":
		c.cmdSend(args)
	case "demo":
		c.cmdDemo(args)
	case "poll", "p":
		c.cmdPoll()
	case "watch", "w":
		c.cmdWatch(ctx, args)
	case "stats":
		fmt.Fprintln(c.out, c.ep.Summary())
	case "invite":
		c.cmdInvite(args)
	case "verify":
		c.cmdVerify(args)
	case "discover":
		c.cmdDiscover(ctx)
	case "quit", "exit", "q":
		return true
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (c *console) printHelp() {
	fmt.Fprintln(c.out, `
Link Console Commands:
  Traffic:
    send <records.yaml>                 - Send a YAML record batch
    demo [n]                            - Send n synthetic records (default 25)
    poll                                - Print records received so far
    watch [seconds]                     - Poll repeatedly (default 10 s)
    stats                               - Show link counters

  Access:
    invite <role> <hours> [seed]        - Create an invite code
    verify <code> <seed>                - Verify an invite code

  General:
    discover                            - Browse for gateways via mDNS
    help                                - Show this help
    quit                                - Exit`)
}

func (c *console) send(records []record.Record) {
	n, err := c.ep.Send(records)
	if err != nil {
		fmt.Fprintf(c.out, "Sent %d frames before error: %v\n", n, err)
		return
	}
	fmt.Fprintf(c.out, "Sent %d records in %d frames\n", len(records), n)
}

func (c *console) cmdSend(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: send <records.yaml>")
		return
	}
	records, err := loadRecords(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	c.send(records)
}

func (c *console) cmdDemo(args []string) {
	n := 25
	if len(args) > 0 {
		v, err := parseUint(args[0], 16)
		if err != nil {
			fmt.Fprintf(c.out, "Invalid count: %s\n", args[0])
			return
		}
		n = int(v)
	}
	c.send(demoRecords(c.building, n))
}

func (c *console) cmdPoll() int {
	records := c.ep.Poll()
	for _, r := range records {
		fmt.Fprintf(c.out, "  %s\n", r)
	}
	if len(records) > 0 {
		fmt.Fprintf(c.out, "Received %d records\n", len(records))
	}
	return len(records)
}

func (c *console) cmdWatch(ctx context.Context, args []string) {
	d := 10 * time.Second
	if len(args) > 0 {
		v, err := parseUint(args[0], 16)
		if err != nil {
			fmt.Fprintf(c.out, "Invalid duration: %s\n", args[0])
			return
		}
		d = time.Duration(v) * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	total := 0
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(c.out, "Watched %s, %d records\n", d, total)
			return
		case <-ticker.C:
			total += c.cmdPoll()
		}
	}
}

func (c *console) cmdInvite(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.out, "Usage: invite <role> <hours> [seed]")
		return
	}
	hours, err := parseUint(args[1], 8)
	if err != nil {
		fmt.Fprintf(c.out, "Invalid hours: %s\n", args[1])
		return
	}
	var seed uint64
	if len(args) > 2 {
		if seed, err = parseUint(args[2], 32); err != nil {
			fmt.Fprintf(c.out, "Invalid seed: %s\n", args[2])
			return
		}
	}

	code, used, err := createInvite(c.mac, c.building, args[0], uint8(hours), uint32(seed))
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Invite: %s\nSeed:   %d\n", code, used)
}

func (c *console) cmdVerify(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(c.out, "Usage: verify <code> <seed>")
		return
	}
	seed, err := parseUint(args[1], 32)
	if err != nil {
		fmt.Fprintf(c.out, "Invalid seed: %s\n", args[1])
		return
	}
	desc, err := verifyInvite(c.mac, args[0], uint32(seed))
	if err != nil {
		fmt.Fprintf(c.out, "Rejected: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Valid: %s\n", desc)
}

func (c *console) cmdDiscover(ctx context.Context) {
	fmt.Fprintln(c.out, "Browsing for gateways...")
	services := browseGateways(ctx, 3*time.Second)
	if len(services) == 0 {
		fmt.Fprintln(c.out, "No gateways found")
		return
	}
	printGateways(c.out, services)
}

// browseGateways collects gateways advertised within d.
func browseGateways(ctx context.Context, d time.Duration) []*discovery.GatewayService {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	browser := discovery.NewMDNSBrowser(discovery.DefaultBrowserConfig())
	defer browser.Stop()

	results, err := browser.BrowseGateways(ctx)
	if err != nil {
		return nil
	}
	var out []*discovery.GatewayService
	for svc := range results {
		out = append(out, svc)
	}
	return out
}

func printGateways(w io.Writer, services []*discovery.GatewayService) {
	fmt.Fprintf(w, "Found %d gateway(s):\n", len(services))
	for i, s := range services {
		fmt.Fprintf(w, "  %d. %s at %s (sender %d, key v%d, %s", i+1, s.Instance, s.Endpoint(), s.SenderID, s.KeyVersion, s.Transport)
		if s.Profile != "" {
			fmt.Fprintf(w, ", %s", s.Profile)
		}
		if s.RecordsPerFrame > 0 {
			fmt.Fprintf(w, ", %d records/frame", s.RecordsPerFrame)
		}
		fmt.Fprintln(w, ")")
	}
}
