package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// TimingEntry is one iteration's span. End is nil while it is in flight.
type TimingEntry struct {
	Iteration int        `json:"iteration"`
	Start     time.Time  `json:"start"`
	End       *time.Time `json:"end,omitempty"`
	Duration  string     `json:"duration,omitempty"`
	ExitCode  int        `json:"exit_code"`
}

// Timing is the per-iteration timeline of one run.
type Timing struct {
	Entries []TimingEntry `json:"entries"`
}

func (s *Store) timingPath() string {
	return filepath.Join(s.Dir, "timing.json")
}

// LoadTiming reads timing.json, returning an empty Timing if absent.
func (s *Store) LoadTiming() (*Timing, error) {
	data, err := os.ReadFile(s.timingPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Timing{}, nil
		}
		return nil, err
	}
	var t Timing
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// AddStart appends an entry for iteration n.
func (t *Timing) AddStart(n int, start time.Time) {
	t.Entries = append(t.Entries, TimingEntry{Iteration: n, Start: start})
}

// AddEnd closes the open entry for iteration n.
func (t *Timing) AddEnd(n int, end time.Time, exitCode int) {
	for i := len(t.Entries) - 1; i >= 0; i-- {
		e := &t.Entries[i]
		if e.Iteration == n && e.End == nil {
			e.End = &end
			e.Duration = FormatDuration(end.Sub(e.Start))
			e.ExitCode = exitCode
			return
		}
	}
}

// Find returns the latest entry for iteration n.
func (t *Timing) Find(n int) (TimingEntry, bool) {
	for i := len(t.Entries) - 1; i >= 0; i-- {
		if t.Entries[i].Iteration == n {
			return t.Entries[i], true
		}
	}
	return TimingEntry{}, false
}

// FlushTiming writes timing.json.
func (s *Store) FlushTiming(t *Timing) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	return overwrite(s.timingPath(), string(data)+"\n")
}

// FormatDuration renders d as "3m 07s".
func FormatDuration(d time.Duration) string {
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %02ds", m, s)
}
