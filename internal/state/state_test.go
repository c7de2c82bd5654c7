package state

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoadRunInfo_None(t *testing.T) {
	s := New(t.TempDir())
	info, err := s.LoadRunInfo()
	if err != nil {
		t.Fatal(err)
	}
	if info != nil {
		t.Fatalf("expected nil, got %+v", info)
	}
}

func TestRunInfo_SaveAndLoad(t *testing.T) {
	s := New(t.TempDir())
	original := NewRunInfo("codex", "/proj")
	original.Iteration = 4
	original.Status = StatusExhausted
	if err := s.SaveRunInfo(original); err != nil {
		t.Fatal(err)
	}

	loaded, err := s.LoadRunInfo()
	if err != nil {
		t.Fatal(err)
	}
	if loaded.RunID != original.RunID || loaded.RunID == "" {
		t.Fatalf("RunID = %q, want %q", loaded.RunID, original.RunID)
	}
	if loaded.Agent != "codex" || loaded.Iteration != 4 || loaded.Status != StatusExhausted {
		t.Fatalf("got %+v", loaded)
	}
}

func TestNewRunInfo_UniqueIDs(t *testing.T) {
	a := NewRunInfo("claude", "/p")
	b := NewRunInfo("claude", "/p")
	if a.RunID == b.RunID {
		t.Fatal("run IDs should differ")
	}
	if a.Status != StatusRunning {
		t.Fatalf("Status = %q", a.Status)
	}
}

func TestTiming_StartEndFlush(t *testing.T) {
	s := New(t.TempDir())
	tm := &Timing{}
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tm.AddStart(1, start)
	tm.AddEnd(1, start.Add(3*time.Minute+7*time.Second), 2)

	if err := s.FlushTiming(tm); err != nil {
		t.Fatal(err)
	}
	loaded, err := s.LoadTiming()
	if err != nil {
		t.Fatal(err)
	}
	e, ok := loaded.Find(1)
	if !ok {
		t.Fatal("entry for iteration 1 missing")
	}
	if e.Duration != "3m 07s" || e.ExitCode != 2 {
		t.Fatalf("got %+v", e)
	}
}

func TestTiming_NoFile(t *testing.T) {
	s := New(t.TempDir())
	tm, err := s.LoadTiming()
	if err != nil {
		t.Fatal(err)
	}
	if len(tm.Entries) != 0 {
		t.Fatalf("expected no entries, got %v", tm.Entries)
	}
}

func TestTiming_OpenEntryOmitsEnd(t *testing.T) {
	s := New(t.TempDir())
	tm := &Timing{}
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tm.AddStart(1, start)
	tm.AddEnd(1, start.Add(time.Second), 0)
	tm.AddStart(2, start.Add(2*time.Second))

	if err := s.FlushTiming(tm); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(s.timingPath())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "0001-01-01") {
		t.Fatalf("open entry serialized a zero end time:\n%s", data)
	}
	if got := strings.Count(string(data), `"end"`); got != 1 {
		t.Fatalf("expected one end field, got %d:\n%s", got, data)
	}

	loaded, err := s.LoadTiming()
	if err != nil {
		t.Fatal(err)
	}
	if e, _ := loaded.Find(2); e.End != nil {
		t.Fatalf("open entry has end %v", e.End)
	}
	if e, _ := loaded.Find(1); e.End == nil || !e.End.Equal(start.Add(time.Second)) {
		t.Fatalf("closed entry end = %v", e.End)
	}
}
