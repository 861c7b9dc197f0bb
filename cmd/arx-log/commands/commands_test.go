package commands

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/arxos-protocol/arxos-go/pkg/log"
)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.alog")

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	return path
}

var ts = time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)

func sampleEvents() []log.Event {
	return []log.Event{
		{
			Timestamp: ts, LinkID: "link-aaaa-1111", Layer: log.LayerLink, Category: log.CategoryState,
			StateChange: &log.StateChangeEvent{Entity: log.StateEntityLink, NewState: "OPEN"},
		},
		{
			Timestamp: ts.Add(time.Second), LinkID: "link-aaaa-1111", Direction: log.DirectionOut,
			Layer: log.LayerLink, Category: log.CategoryFrame, SenderID: 1,
			Frame: &log.FrameEvent{Size: 263, Nonce: 0, Records: 19, Index: 0, Total: 2, Data: []byte{0xde, 0xad}},
		},
		{
			Timestamp: ts.Add(2 * time.Second), LinkID: "link-bbbb-2222", Direction: log.DirectionIn,
			Layer: log.LayerLink, Category: log.CategoryFrame, SenderID: 1,
			Frame: &log.FrameEvent{Size: 263, Nonce: 4, Records: 19},
		},
		{
			Timestamp: ts.Add(3 * time.Second), LinkID: "link-bbbb-2222", Direction: log.DirectionIn,
			Layer: log.LayerLink, Category: log.CategoryFrame, SenderID: 1,
			Frame: &log.FrameEvent{Size: 263, Nonce: 7, Records: 19},
		},
		{
			Timestamp: ts.Add(4 * time.Second), LinkID: "link-bbbb-2222", Direction: log.DirectionIn,
			Layer: log.LayerSeal, Category: log.CategoryReject, SenderID: 1,
			Reject: &log.RejectEvent{Reason: log.RejectReplayed, Size: 263, Nonce: 7},
		},
		{
			Timestamp: ts.Add(5 * time.Second), LinkID: "link-aaaa-1111", Direction: log.DirectionOut,
			Layer: log.LayerTransport, Category: log.CategoryError,
			Error: &log.ErrorEventData{Layer: log.LayerTransport, Message: "transport: i/o error", Context: "send"},
		},
	}
}

func TestViewFormatsEvents(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"2026-03-14T09:26:53.589793Z [link:link-aaa]",
		"OUT LINK Frame sender=1",
		"Fragment: 1/2",
		"Data: dead",
		"Reason: REPLAYED",
		"State: OPEN",
		"Error: transport: i/o error",
		"Context: send",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestViewFilters(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	cat := log.CategoryReject
	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{Category: &cat}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	out := buf.String()
	if strings.Count(out, "[link:") != 1 {
		t.Errorf("expected exactly one event, got:\n%s", out)
	}
	if !strings.Contains(out, "Reject") {
		t.Errorf("expected reject event, got:\n%s", out)
	}
}

func TestParseFlags(t *testing.T) {
	if l, err := ParseLayerFlag("SEAL"); err != nil || l != log.LayerSeal {
		t.Errorf("ParseLayerFlag(SEAL) = %v, %v", l, err)
	}
	if _, err := ParseLayerFlag("wire"); err == nil {
		t.Error("expected error for unknown layer")
	}
	if d, err := ParseDirectionFlag("out"); err != nil || d != log.DirectionOut {
		t.Errorf("ParseDirectionFlag(out) = %v, %v", d, err)
	}
	if _, err := ParseDirectionFlag("sideways"); err == nil {
		t.Error("expected error for unknown direction")
	}
	if c, err := ParseCategoryFlag("Reject"); err != nil || c != log.CategoryReject {
		t.Errorf("ParseCategoryFlag(Reject) = %v, %v", c, err)
	}
	if _, err := ParseCategoryFlag("message"); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestExportJSONL(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "out.jsonl")

	if err := RunExport(path, "jsonl", out); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var event log.Event
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			t.Fatalf("line %d: %v", lines, err)
		}
		lines++
	}
	if lines != len(sampleEvents()) {
		t.Errorf("expected %d lines, got %d", len(sampleEvents()), lines)
	}
}

func TestExportCSV(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "out.csv")

	if err := RunExport(path, "csv", out); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != len(sampleEvents())+1 {
		t.Fatalf("expected %d rows, got %d", len(sampleEvents())+1, len(rows))
	}
	if rows[0][1] != "link_id" {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[5][8] != "REPLAYED" {
		t.Errorf("reject row detail = %q", rows[5][8])
	}
}

func TestExportUnknownFormat(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	if err := RunExport(path, "xml", filepath.Join(t.TempDir(), "x")); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestFilterWritesMatching(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "filtered.alog")

	n, err := RunFilter(path, FilterOptions{
		Output:    out,
		LinkID:    "link-bbbb-2222",
		Direction: "in",
		Category:  "frame",
	})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 events, got %d", n)
	}

	reader, err := log.NewReader(out)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()
	e, err := reader.Next()
	if err != nil {
		t.Fatal(err)
	}
	if e.Frame == nil || e.Frame.Nonce != 4 {
		t.Errorf("unexpected first event %+v", e)
	}
}

func TestBuildFilterErrors(t *testing.T) {
	for _, opts := range []FilterOptions{
		{SenderID: "70000"},
		{TimeStart: "yesterday"},
		{TimeEnd: "tomorrow"},
		{Layer: "wire"},
		{Direction: "up"},
		{Category: "snapshot"},
	} {
		if _, err := BuildFilter(opts); err == nil {
			t.Errorf("expected error for %+v", opts)
		}
	}

	f, err := BuildFilter(FilterOptions{SenderID: "0x10", TimeStart: "2026-03-14T00:00:00Z"})
	if err != nil {
		t.Fatal(err)
	}
	if f.SenderID == nil || *f.SenderID != 16 || f.TimeStart == nil {
		t.Errorf("unexpected filter %+v", f)
	}
}

func TestStats(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Total Events: 6",
		"TRANSPORT:",
		"SEAL:",
		"LINK:",
		"REJECT:",
		"REPLAYED:",
		"Links: 2",
		"Frames: 0 in / 1 out, Records: 0 in / 19 out",
		"Frames: 2 in / 0 out, Records: 38 in / 0 out",
		"State: OPEN",
		"nonces 4..7, missing 2",
		"Errors: 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestStatsEmptyFile(t *testing.T) {
	path := createTestLogFile(t, nil)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Total Events: 0") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}
