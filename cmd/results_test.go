package main

import (
	"testing"
	"time"

	"github.com/phystat/chifit/internal/store"
)

func infoAt(jobID string, age time.Duration) store.RecordInfo {
	return store.RecordInfo{
		JobID:     jobID,
		Status:    "converged",
		Timestamp: time.Now().Add(-age),
	}
}

func TestSelectRecordsForDeletion_OlderThan(t *testing.T) {
	infos := []store.RecordInfo{
		infoAt("fresh", time.Hour),
		infoAt("old", 10*24*time.Hour),
		infoAt("ancient", 40*24*time.Hour),
	}

	toDelete := selectRecordsForDeletion(infos, 0, 7)

	if len(toDelete) != 2 {
		t.Fatalf("Expected 2 records to delete, got %d", len(toDelete))
	}
	for _, info := range toDelete {
		if info.JobID == "fresh" {
			t.Error("Fresh record should not be selected")
		}
	}
}

func TestSelectRecordsForDeletion_KeepLast(t *testing.T) {
	infos := []store.RecordInfo{
		infoAt("a", 3*time.Hour),
		infoAt("b", 2*time.Hour),
		infoAt("c", time.Hour),
	}

	toDelete := selectRecordsForDeletion(infos, 2, 0)

	if len(toDelete) != 1 {
		t.Fatalf("Expected 1 record to delete, got %d", len(toDelete))
	}
	if toDelete[0].JobID != "a" {
		t.Errorf("Expected oldest record a, got %s", toDelete[0].JobID)
	}
}

func TestSelectRecordsForDeletion_NoDuplicates(t *testing.T) {
	infos := []store.RecordInfo{
		infoAt("old", 40*24*time.Hour),
		infoAt("new", time.Hour),
	}

	// old matches both the age rule and the keep-last pruning
	toDelete := selectRecordsForDeletion(infos, 1, 7)

	if len(toDelete) != 1 {
		t.Fatalf("Expected 1 record to delete, got %d", len(toDelete))
	}
	if toDelete[0].JobID != "old" {
		t.Errorf("Expected old record, got %s", toDelete[0].JobID)
	}
}

func TestSelectRecordsForDeletion_NothingMatches(t *testing.T) {
	infos := []store.RecordInfo{infoAt("a", time.Hour)}

	if got := selectRecordsForDeletion(infos, 5, 7); len(got) != 0 {
		t.Errorf("Expected no deletions, got %d", len(got))
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{3 * 1024 * 1024, "3.0 MB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.bytes); got != tt.want {
			t.Errorf("formatBytes(%d) = %s, want %s", tt.bytes, got, tt.want)
		}
	}
}
