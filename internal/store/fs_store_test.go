package store

import (
	"errors"
	"io"
	"math"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *FSStore {
	t.Helper()
	fs, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	return fs
}

func TestSaveAndLoadRecord(t *testing.T) {
	fs := newTestStore(t)
	r := testRecord()

	if err := fs.SaveRecord(r.JobID, r); err != nil {
		t.Fatalf("SaveRecord failed: %v", err)
	}

	loaded, err := fs.LoadRecord(r.JobID)
	if err != nil {
		t.Fatalf("LoadRecord failed: %v", err)
	}
	if loaded.JobID != r.JobID {
		t.Errorf("JobID mismatch: %s vs %s", loaded.JobID, r.JobID)
	}
	if loaded.Status != "converged" || !loaded.Success {
		t.Errorf("Outcome fields mismatch: %s %v", loaded.Status, loaded.Success)
	}
	if len(loaded.Params) != 2 || loaded.Params[0] != r.Params[0] {
		t.Errorf("Params mismatch: %v", loaded.Params)
	}
	if loaded.Config.Model != "expdecay" {
		t.Errorf("Config not persisted: %+v", loaded.Config)
	}
}

func TestLoadRecordNotFound(t *testing.T) {
	fs := newTestStore(t)

	_, err := fs.LoadRecord("missing")
	if err == nil {
		t.Fatal("Expected error for missing record")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSaveRecordRejectsInvalid(t *testing.T) {
	fs := newTestStore(t)

	if err := fs.SaveRecord("", testRecord()); err == nil {
		t.Error("Empty jobID should be rejected")
	}
	if err := fs.SaveRecord("job-1", nil); err == nil {
		t.Error("Nil record should be rejected")
	}

	bad := testRecord()
	bad.Status = ""
	if err := fs.SaveRecord(bad.JobID, bad); err == nil {
		t.Error("Invalid record should be rejected")
	}
}

func TestSaveRecordOverwrites(t *testing.T) {
	fs := newTestStore(t)
	r := testRecord()

	if err := fs.SaveRecord(r.JobID, r); err != nil {
		t.Fatalf("First SaveRecord failed: %v", err)
	}

	r.Iterations = 12
	if err := fs.SaveRecord(r.JobID, r); err != nil {
		t.Fatalf("Second SaveRecord failed: %v", err)
	}

	loaded, err := fs.LoadRecord(r.JobID)
	if err != nil {
		t.Fatalf("LoadRecord failed: %v", err)
	}
	if loaded.Iterations != 12 {
		t.Errorf("Expected overwritten record, got iterations %d", loaded.Iterations)
	}
}

func TestListRecords(t *testing.T) {
	fs := newTestStore(t)

	infos, err := fs.ListRecords()
	if err != nil {
		t.Fatalf("ListRecords on empty store failed: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("Expected empty listing, got %d", len(infos))
	}

	for _, id := range []string{"job-a", "job-b", "job-c"} {
		r := testRecord()
		r.JobID = id
		if err := fs.SaveRecord(id, r); err != nil {
			t.Fatalf("SaveRecord %s failed: %v", id, err)
		}
	}

	infos, err = fs.ListRecords()
	if err != nil {
		t.Fatalf("ListRecords failed: %v", err)
	}
	if len(infos) != 3 {
		t.Errorf("Expected 3 records, got %d", len(infos))
	}
}

func TestDeleteRecord(t *testing.T) {
	fs := newTestStore(t)
	r := testRecord()

	if err := fs.SaveRecord(r.JobID, r); err != nil {
		t.Fatalf("SaveRecord failed: %v", err)
	}
	if err := fs.DeleteRecord(r.JobID); err != nil {
		t.Fatalf("DeleteRecord failed: %v", err)
	}

	if _, err := fs.LoadRecord(r.JobID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := fs.DeleteRecord(r.JobID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Double delete should return ErrNotFound, got %v", err)
	}
}

func TestTraceRoundtrip(t *testing.T) {
	dir := t.TempDir()

	tw, err := NewTraceWriter(dir, "job-t")
	if err != nil {
		t.Fatalf("NewTraceWriter failed: %v", err)
	}

	entries := []TraceEntry{
		{Iteration: 1, Chi2: 95.2, FuncCalls: 13, Params: []float64{0.15, 950}, Timestamp: time.Now()},
		{Iteration: 2, Chi2: 3.7, FuncCalls: 26, Params: []float64{0.102, 995}, Timestamp: time.Now()},
		{Iteration: 3, Chi2: 0.44, FuncCalls: 39, Params: []float64{0.0985, 1001}, Timestamp: time.Now()},
	}
	for _, e := range entries {
		if err := tw.Write(e); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	tr, err := NewTraceReader(dir, "job-t")
	if err != nil {
		t.Fatalf("NewTraceReader failed: %v", err)
	}
	defer tr.Close()

	got, err := tr.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("Expected %d entries, got %d", len(entries), len(got))
	}
	for i := range got {
		if got[i].Iteration != entries[i].Iteration {
			t.Errorf("Entry %d: iteration %d, want %d", i, got[i].Iteration, entries[i].Iteration)
		}
		if math.Abs(got[i].Chi2-entries[i].Chi2) > 1e-12 {
			t.Errorf("Entry %d: chi2 %v, want %v", i, got[i].Chi2, entries[i].Chi2)
		}
		if len(got[i].Params) != 2 {
			t.Errorf("Entry %d: params not preserved: %v", i, got[i].Params)
		}
	}

	if _, err := tr.Read(); err != io.EOF {
		t.Errorf("Expected io.EOF after ReadAll, got %v", err)
	}
}

func TestTraceReaderNotFound(t *testing.T) {
	_, err := NewTraceReader(t.TempDir(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestTraceFlushMakesEntriesVisible(t *testing.T) {
	dir := t.TempDir()

	tw, err := NewTraceWriter(dir, "job-f")
	if err != nil {
		t.Fatalf("NewTraceWriter failed: %v", err)
	}
	defer tw.Close()

	if err := tw.Write(TraceEntry{Iteration: 1, Chi2: 1.0, Timestamp: time.Now()}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := tw.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	tr, err := NewTraceReader(dir, "job-f")
	if err != nil {
		t.Fatalf("NewTraceReader failed: %v", err)
	}
	defer tr.Close()

	got, err := tr.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Expected 1 entry after flush, got %d", len(got))
	}
}
