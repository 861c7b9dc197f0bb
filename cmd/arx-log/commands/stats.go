package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/arxos-protocol/arxos-go/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	RejectsByReason   map[log.RejectReason]int
	Links             map[string]*LinkStats
	Senders           map[uint16]*SenderStats
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// LinkStats holds statistics for a single link endpoint.
type LinkStats struct {
	FirstSeen   time.Time
	LastSeen    time.Time
	Events      int
	FramesIn    int
	FramesOut   int
	RecordsIn   int
	RecordsOut  int
	Rejects     int
	LastState   string
	Reservation int
}

// SenderStats tracks inbound nonces from one sender. Missing counts nonces
// skipped between the lowest and highest accepted nonce.
type SenderStats struct {
	Frames  int
	Lowest  uint32
	Highest uint32
	Missing int
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := newStats()
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}
	stats.finish()

	printStats(w, stats)
	return nil
}

func newStats() *Stats {
	return &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		RejectsByReason:   make(map[log.RejectReason]int),
		Links:             make(map[string]*LinkStats),
		Senders:           make(map[uint16]*SenderStats),
	}
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	link, ok := s.Links[event.LinkID]
	if !ok {
		link = &LinkStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
		s.Links[event.LinkID] = link
	}
	link.Events++
	if event.Timestamp.After(link.LastSeen) {
		link.LastSeen = event.Timestamp
	}

	switch {
	case event.Frame != nil:
		if event.Direction == log.DirectionOut {
			link.FramesOut++
			link.RecordsOut += event.Frame.Records
			break
		}
		link.FramesIn++
		link.RecordsIn += event.Frame.Records
		s.addInbound(event.SenderID, event.Frame.Nonce)

	case event.Reject != nil:
		link.Rejects++
		s.RejectsByReason[event.Reject.Reason]++

	case event.StateChange != nil:
		switch event.StateChange.Entity {
		case log.StateEntityLink:
			link.LastState = event.StateChange.NewState
		case log.StateEntityNonce:
			link.Reservation++
		}

	case event.Error != nil:
		s.Errors++
	}
}

func (s *Stats) addInbound(sender uint16, nonce uint32) {
	st, ok := s.Senders[sender]
	if !ok {
		s.Senders[sender] = &SenderStats{Frames: 1, Lowest: nonce, Highest: nonce}
		return
	}
	st.Frames++
	if nonce < st.Lowest {
		st.Lowest = nonce
	}
	if nonce > st.Highest {
		st.Highest = nonce
	}
}

func (s *Stats) finish() {
	for _, st := range s.Senders {
		span := int(st.Highest-st.Lowest) + 1
		if span > st.Frames {
			st.Missing = span - st.Frames
		}
	}
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Link Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerTransport, log.LayerSeal, log.LayerLink} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryFrame, log.CategoryReject, log.CategoryState, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if len(stats.RejectsByReason) > 0 {
		fmt.Fprintln(w, "Rejects by Reason:")
		for _, r := range []log.RejectReason{log.RejectMalformed, log.RejectAuthFailed, log.RejectReplayed} {
			if count := stats.RejectsByReason[r]; count > 0 {
				fmt.Fprintf(w, "  %-12s %d\n", r.String()+":", count)
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Links: %d\n", len(stats.Links))
	if len(stats.Links) > 0 {
		type linkInfo struct {
			id    string
			stats *LinkStats
		}
		links := make([]linkInfo, 0, len(stats.Links))
		for id, ls := range stats.Links {
			links = append(links, linkInfo{id, ls})
		}
		sort.Slice(links, func(i, j int) bool {
			return links[i].stats.FirstSeen.Before(links[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, l := range links {
			duration := l.stats.LastSeen.Sub(l.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortenLinkID(l.id), l.stats.Events, duration)
			fmt.Fprintf(w, "           Frames: %d in / %d out, Records: %d in / %d out\n",
				l.stats.FramesIn, l.stats.FramesOut, l.stats.RecordsIn, l.stats.RecordsOut)
			if l.stats.Rejects > 0 {
				fmt.Fprintf(w, "           Rejects: %d\n", l.stats.Rejects)
			}
			if l.stats.Reservation > 0 {
				fmt.Fprintf(w, "           Nonce reservations: %d\n", l.stats.Reservation)
			}
			if l.stats.LastState != "" {
				fmt.Fprintf(w, "           State: %s\n", l.stats.LastState)
			}
		}
	}

	if len(stats.Senders) > 0 {
		ids := make([]int, 0, len(stats.Senders))
		for id := range stats.Senders {
			ids = append(ids, int(id))
		}
		sort.Ints(ids)

		fmt.Fprintln(w)
		fmt.Fprintln(w, "Inbound Senders:")
		for _, id := range ids {
			st := stats.Senders[uint16(id)]
			fmt.Fprintf(w, "  sender %-5d %d frames, nonces %d..%d, missing %d\n",
				id, st.Frames, st.Lowest, st.Highest, st.Missing)
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
