package storage

import (
	"fmt"
	"testing"
	"time"

	"reclist/pkg/types"
)

func newRecord(i int, at time.Time) *types.ScanRecord {
	return &types.ScanRecord{
		ID:         fmt.Sprintf("scan-%d", i),
		Directory:  "/gravacoes/team1",
		Count:      i,
		TotalBytes: int64(i * 100),
		DurationMS: 3,
		ScannedAt:  at,
	}
}

func TestHistoryStore_RecordAndRecent(t *testing.T) {
	tempDir := t.TempDir()

	store, err := New(tempDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	start := time.Now().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		if err := store.RecordScan(newRecord(i, start.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("Failed to record scan %d: %v", i, err)
		}
	}

	recent, err := store.RecentScans(3)
	if err != nil {
		t.Fatalf("Failed to read recent scans: %v", err)
	}

	if len(recent) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(recent))
	}

	for i, want := range []string{"scan-4", "scan-3", "scan-2"} {
		if recent[i].ID != want {
			t.Errorf("Expected record %d to be %s, got %s", i, want, recent[i].ID)
		}
	}

	if !recent[0].ScannedAt.Equal(start.Add(4 * time.Second)) {
		t.Errorf("Expected scanned_at %v, got %v", start.Add(4*time.Second), recent[0].ScannedAt)
	}

	all, err := store.RecentScans(0)
	if err != nil {
		t.Fatalf("Failed to read all scans: %v", err)
	}
	if len(all) != 5 {
		t.Errorf("Expected 5 records, got %d", len(all))
	}
}

func TestHistoryStore_EmptyStore(t *testing.T) {
	store, err := New("")
	if err != nil {
		t.Fatalf("Failed to create in-memory store: %v", err)
	}
	defer store.Close()

	recent, err := store.RecentScans(10)
	if err != nil {
		t.Fatalf("Failed to read recent scans: %v", err)
	}
	if recent == nil || len(recent) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", recent)
	}

	count, err := store.CountScans()
	if err != nil {
		t.Fatalf("Failed to count scans: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 records, got %d", count)
	}

	if err := store.RunGarbageCollection(); err != nil {
		t.Errorf("Expected in-memory garbage collection to be a no-op, got %v", err)
	}
}

func TestHistoryStore_RequiresID(t *testing.T) {
	store, err := New("")
	if err != nil {
		t.Fatalf("Failed to create in-memory store: %v", err)
	}
	defer store.Close()

	rec := newRecord(1, time.Now())
	rec.ID = ""
	if err := store.RecordScan(rec); err == nil {
		t.Error("Expected error for record without id")
	}
}

func TestHistoryStore_Prune(t *testing.T) {
	store, err := New("")
	if err != nil {
		t.Fatalf("Failed to create in-memory store: %v", err)
	}
	defer store.Close()

	start := time.Now()
	for i := 0; i < 10; i++ {
		if err := store.RecordScan(newRecord(i, start.Add(time.Duration(i)*time.Millisecond))); err != nil {
			t.Fatalf("Failed to record scan %d: %v", i, err)
		}
	}

	removed, err := store.Prune(4)
	if err != nil {
		t.Fatalf("Failed to prune: %v", err)
	}
	if removed != 6 {
		t.Errorf("Expected 6 removed, got %d", removed)
	}

	count, err := store.CountScans()
	if err != nil {
		t.Fatalf("Failed to count scans: %v", err)
	}
	if count != 4 {
		t.Errorf("Expected 4 remaining, got %d", count)
	}

	recent, err := store.RecentScans(0)
	if err != nil {
		t.Fatalf("Failed to read recent scans: %v", err)
	}
	if recent[len(recent)-1].ID != "scan-6" {
		t.Errorf("Expected oldest kept record scan-6, got %s", recent[len(recent)-1].ID)
	}

	removed, err = store.Prune(4)
	if err != nil {
		t.Fatalf("Failed to prune again: %v", err)
	}
	if removed != 0 {
		t.Errorf("Expected nothing removed, got %d", removed)
	}
}

func TestHistoryStore_Persistence(t *testing.T) {
	tempDir := t.TempDir()

	store1, err := New(tempDir)
	if err != nil {
		t.Fatalf("Failed to create first store: %v", err)
	}

	if err := store1.RecordScan(newRecord(7, time.Now())); err != nil {
		t.Fatalf("Failed to record scan: %v", err)
	}
	store1.Close()

	store2, err := New(tempDir)
	if err != nil {
		t.Fatalf("Failed to create second store: %v", err)
	}
	defer store2.Close()

	recent, err := store2.RecentScans(1)
	if err != nil {
		t.Fatalf("Failed to read recent scans: %v", err)
	}
	if len(recent) != 1 || recent[0].ID != "scan-7" {
		t.Errorf("Expected persisted scan-7, got %#v", recent)
	}
}
