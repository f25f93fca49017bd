package commands

import (
	"bytes"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/homewire/homewire-go/pkg/log"
)

var base = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.cbor")
	fl, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create capture file: %v", err)
	}
	for _, e := range events {
		fl.Log(e)
	}
	if err := fl.Close(); err != nil {
		t.Fatalf("failed to close capture file: %v", err)
	}
	return path
}

func sampleEvents() []log.Event {
	rtt := 12 * time.Millisecond
	return []log.Event{
		{
			Timestamp: base, TransportID: "6f1c2a90-aaaa-bbbb-cccc-000000000001",
			Direction: log.DirectionOut, Layer: log.LayerTransport, Category: log.CategoryFrame,
			Frame: log.NewFrameEvent([]byte{0x01, 0x21, 0x03}),
		},
		{
			Timestamp: base.Add(10 * time.Millisecond), TransportID: "6f1c2a90-aaaa-bbbb-cccc-000000000001",
			Direction: log.DirectionIn, Layer: log.LayerTransport, Category: log.CategoryFrame,
			Frame: &log.FrameEvent{Size: 2, Data: []byte{0x01, 0x01}},
		},
		{
			Timestamp: base.Add(12 * time.Millisecond), TransportID: "6f1c2a90-aaaa-bbbb-cccc-000000000001",
			Layer: log.LayerService, Category: log.CategoryCall, Endpoint: "board",
			Call: &log.CallEvent{Service: "get-relay", SeqID: 1, Outcome: log.CallResolved, RoundTrip: &rtt},
		},
		{
			Timestamp: base.Add(time.Second), TransportID: "0b7e11c4-aaaa-bbbb-cccc-000000000002",
			Direction: log.DirectionIn, Layer: log.LayerDevice, Category: log.CategoryDrop,
			Endpoint: "door", Address: "a4c138010203",
			Drop: &log.DropEvent{Reason: log.DropUnknownRoute, Size: 3, Detail: "no event for discriminator"},
		},
		{
			Timestamp: base.Add(2 * time.Second), TransportID: "0b7e11c4-aaaa-bbbb-cccc-000000000002",
			Layer: log.LayerTransport, Category: log.CategoryState,
			StateChange: &log.StateChangeEvent{Entity: log.StateEntityTransport, OldState: "CONNECTED", NewState: "DISCONNECTED", Reason: "idle timeout"},
		},
		{
			Timestamp: base.Add(3 * time.Second), TransportID: "0b7e11c4-aaaa-bbbb-cccc-000000000002",
			Layer: log.LayerTransport, Category: log.CategoryError,
			Error: &log.ErrorEventData{Layer: log.LayerTransport, Message: "no address", Context: "resolve"},
		},
	}
}

func TestRunViewFormatsEvents(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunView(path, Selection{}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"2026-03-14T09:30:00.000000Z [tr:6f1c2a90] OUT TRANSPORT FRAME -",
		"Data: 012103",
		"get-relay #1 RESOLVED in 12.000ms",
		"DEVICE DROP door@a4c138010203",
		"Reason: UNKNOWN_ROUTE (3 bytes)",
		"CONNECTED -> DISCONNECTED",
		"Context: resolve",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRunViewByLayer(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunView(path, Selection{Layer: "service"}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "get-relay") {
		t.Errorf("expected call event, got:\n%s", out)
	}
	if strings.Contains(out, "FRAME") {
		t.Errorf("transport frames should be filtered out, got:\n%s", out)
	}
}

func TestSelectionRejectsBadValues(t *testing.T) {
	for _, sel := range []Selection{
		{Layer: "wire"},
		{Direction: "sideways"},
		{Category: "message"},
		{TimeStart: "yesterday"},
	} {
		if _, err := sel.Filter(); err == nil {
			t.Errorf("expected error for %+v", sel)
		}
	}
}

func TestRunFilter(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "filtered.cbor")

	n, err := RunFilter(path, out, Selection{Transport: "0b7e11c4-aaaa-bbbb-cccc-000000000002", TimeEnd: base.Add(3 * time.Second).Format(time.RFC3339)})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 events, got %d", n)
	}

	reader, err := log.NewReader(out)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer reader.Close()

	count := 0
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("failed to read event: %v", err)
		}
		if event.TransportID != "0b7e11c4-aaaa-bbbb-cccc-000000000002" {
			t.Errorf("unexpected transport %s", event.TransportID)
		}
		count++
	}
	if count != 2 {
		t.Errorf("expected 2 events in output, got %d", count)
	}
}

func TestRunExportCSV(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunExport(path, "csv", Selection{Category: "call"}, &buf); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header and 1 row, got %d rows", len(rows))
	}
	if rows[1][5] != "board" || rows[1][7] != "get-relay#1 RESOLVED" {
		t.Errorf("unexpected row: %v", rows[1])
	}
}

func TestRunExportJSONL(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunExport(path, "jsonl", Selection{}, &buf); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 6 {
		t.Errorf("expected 6 lines, got %d", len(lines))
	}

	if err := RunExport(path, "xml", Selection{}, &buf); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestCollectStats(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	stats, err := Collect(path)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if stats.TotalEvents != 6 {
		t.Errorf("expected 6 events, got %d", stats.TotalEvents)
	}
	if stats.Calls[log.CallResolved] != 1 {
		t.Errorf("expected 1 resolved call, got %d", stats.Calls[log.CallResolved])
	}
	if stats.Drops[log.DropUnknownRoute] != 1 {
		t.Errorf("expected 1 drop, got %d", stats.Drops[log.DropUnknownRoute])
	}
	if stats.Errors != 1 {
		t.Errorf("expected 1 error, got %d", stats.Errors)
	}
	tr := stats.Transports["6f1c2a90-aaaa-bbbb-cccc-000000000001"]
	if tr == nil || tr.FramesIn != 1 || tr.FramesOut != 1 {
		t.Errorf("unexpected transport stats: %+v", tr)
	}

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	for _, want := range []string{"Total Events: 6", "UNKNOWN_ROUTE:", "Transports: 2", "[6f1c2a90] 3 events"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("expected %q in stats:\n%s", want, buf.String())
		}
	}
}
