package store

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestTraceWriter_WriteAndRead(t *testing.T) {
	tmpDir := t.TempDir()
	budget := 3.0

	writer, err := NewTraceWriter(tmpDir, "0", false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}

	entries := []TraceEntry{
		{Trial: 1, ConfigID: 1, Config: map[string]any{"x0": 1.0}, Cost: 10, Status: "success", Incumbent: true, Timestamp: time.Now()},
		{Trial: 2, ConfigID: 2, Config: map[string]any{"x0": 2.0}, Cost: 12, Status: "success", Timestamp: time.Now()},
		{Trial: 3, ConfigID: 3, Config: map[string]any{"x0": 3.0}, Budget: &budget, Cost: 4, Status: "success", Incumbent: true, Timestamp: time.Now()},
	}
	for _, entry := range entries {
		if err := writer.Write(entry); err != nil {
			t.Fatalf("Failed to write entry: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	tracePath := filepath.Join(tmpDir, "0", "trace.jsonl")
	if writer.Path() != tracePath {
		t.Errorf("Path = %s, want %s", writer.Path(), tracePath)
	}

	reader, err := NewTraceReader(tmpDir, "0")
	if err != nil {
		t.Fatalf("Failed to create trace reader: %v", err)
	}
	defer reader.Close()

	got, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("Failed to read entries: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("Expected %d entries, got %d", len(entries), len(got))
	}
	for i, entry := range got {
		if entry.Trial != entries[i].Trial || entry.Cost != entries[i].Cost || entry.Incumbent != entries[i].Incumbent {
			t.Errorf("Entry %d mismatch: %+v", i, entry)
		}
	}
	if got[2].Budget == nil || *got[2].Budget != 3.0 {
		t.Errorf("Budget not round-tripped: %v", got[2].Budget)
	}
}

func TestTraceWriter_Append(t *testing.T) {
	tmpDir := t.TempDir()

	for i := 1; i <= 2; i++ {
		writer, err := NewTraceWriter(tmpDir, "0", true)
		if err != nil {
			t.Fatal(err)
		}
		if err := writer.Write(TraceEntry{Trial: i, Timestamp: time.Now()}); err != nil {
			t.Fatal(err)
		}
		if err := writer.Flush(); err != nil {
			t.Fatal(err)
		}
		writer.Close()
	}

	reader, err := NewTraceReader(tmpDir, "0")
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()

	first, err := reader.Read()
	if err != nil || first.Trial != 1 {
		t.Fatalf("Expected trial 1, got %v (%v)", first, err)
	}
	second, err := reader.Read()
	if err != nil || second.Trial != 2 {
		t.Fatalf("Expected trial 2, got %v (%v)", second, err)
	}
	if _, err := reader.Read(); err != io.EOF {
		t.Errorf("Expected io.EOF, got %v", err)
	}
}

func TestTraceWriter_Truncate(t *testing.T) {
	tmpDir := t.TempDir()

	w, _ := NewTraceWriter(tmpDir, "0", false)
	w.Write(TraceEntry{Trial: 1})
	w.Close()

	w, _ = NewTraceWriter(tmpDir, "0", false)
	w.Close()

	info, err := os.Stat(filepath.Join(tmpDir, "0", "trace.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 0 {
		t.Errorf("Non-append writer should truncate, size=%d", info.Size())
	}
}

func TestTraceReader_NotFound(t *testing.T) {
	_, err := NewTraceReader(t.TempDir(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestTraceReader_Corrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	os.WriteFile(path, []byte("{\"trial\":1}\nnot-json\n"), 0644)

	reader, err := OpenTrace(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()

	if _, err := reader.ReadAll(); err == nil {
		t.Fatal("Expected error for corrupted line")
	}
}
