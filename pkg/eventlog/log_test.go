package eventlog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"aegismesh/pkg/telemetry"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "logs", "events.log"), nil)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreFetchReverseOrder(t *testing.T) {
	store := openTestStore(t)

	ips := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4", "10.0.0.5"}
	for _, ip := range ips {
		if err := store.Append(telemetry.Event{SourceIP: ip, Service: "http"}); err != nil {
			t.Fatalf("Append() failed: %v", err)
		}
	}

	records, err := store.Fetch(2)
	if err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Fetch(2) returned %d records", len(records))
	}

	var first, second telemetry.Event
	if err := json.Unmarshal(records[0], &first); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}
	if err := json.Unmarshal(records[1], &second); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}
	if first.SourceIP != "10.0.0.5" || second.SourceIP != "10.0.0.4" {
		t.Errorf("Fetch(2) order = %s, %s; want 10.0.0.5, 10.0.0.4", first.SourceIP, second.SourceIP)
	}
}

func TestStoreSkipsMalformedLines(t *testing.T) {
	store := openTestStore(t)

	if err := store.Append(telemetry.Event{SourceIP: "10.0.0.1", Service: "ssh"}); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	// Corrupt line injected between two valid records.
	if err := os.WriteFile(store.path, append(mustRead(t, store.path), []byte("{not json\n")...), 0o644); err != nil {
		t.Fatalf("corrupting log: %v", err)
	}
	if err := store.Append(telemetry.Event{SourceIP: "10.0.0.2", Service: "ssh"}); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	records, err := store.Fetch(10)
	if err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("Fetch() returned %d records, want 2 (malformed line skipped)", len(records))
	}
}

func TestStoreSkipsOversizedLines(t *testing.T) {
	store := openTestStore(t)

	if err := store.Append(telemetry.Event{SourceIP: "10.0.0.1", Service: "ssh"}); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	// A record past the line bound is skipped like any malformed line;
	// records appended after it stay reachable.
	huge := `{"payload":"` + strings.Repeat("a", maxLineBytes) + "\"}\n"
	if err := os.WriteFile(store.path, append(mustRead(t, store.path), huge...), 0o644); err != nil {
		t.Fatalf("appending oversized line: %v", err)
	}
	if err := store.Append(telemetry.Event{SourceIP: "10.0.0.2", Service: "ssh"}); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	records, err := store.Fetch(10)
	if err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Fetch() returned %d records, want 2 (oversized line skipped)", len(records))
	}
	var newest telemetry.Event
	if err := json.Unmarshal(records[0], &newest); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}
	if newest.SourceIP != "10.0.0.2" {
		t.Errorf("newest record source = %s, want 10.0.0.2", newest.SourceIP)
	}
}

func TestStoreFetchLimitSemantics(t *testing.T) {
	store := openTestStore(t)

	if err := store.Append(telemetry.Event{SourceIP: "10.0.0.1", Service: "http"}); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	records, err := store.Fetch(0)
	if err != nil {
		t.Fatalf("Fetch(0) failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Fetch(0) returned %d records, want 0", len(records))
	}

	records, err = store.Fetch(-1)
	if err != nil {
		t.Fatalf("Fetch(-1) failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("Fetch(-1) returned %d records, want 1 (default limit)", len(records))
	}
}

func TestStoreScoredRecordShape(t *testing.T) {
	store := openTestStore(t)

	ev := telemetry.Event{SourceIP: "10.0.0.1", Service: "http", Path: "/admin"}.WithScore(0.5)
	if err := store.Append(ScoredRecord{ScoredEvent: ev}); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	records, err := store.Fetch(1)
	if err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}
	var rec ScoredRecord
	if err := json.Unmarshal(records[0], &rec); err != nil {
		t.Fatalf("unmarshal scored record: %v", err)
	}
	if rec.ScoredEvent.RiskScore == nil || *rec.ScoredEvent.RiskScore != 0.5 {
		t.Errorf("scored record lost risk score: %+v", rec.ScoredEvent)
	}
}

func TestStoreFetchEmpty(t *testing.T) {
	store := openTestStore(t)

	records, err := store.Fetch(10)
	if err != nil {
		t.Fatalf("Fetch() on empty log failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Fetch() on empty log returned %d records", len(records))
	}
}

func mustRead(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return data
}
