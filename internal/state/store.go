package state

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// File names inside the state directory.
const (
	ContextFile   = "context.md"
	PromptFile    = "effective_prompt.md"
	IterationFile = "iteration.txt"
	StartFile     = "last_start_utc.txt"
	EndFile       = "last_end_utc.txt"
	RunsDir       = "runs"
)

const contextPlaceholder = `# Persistent Context

This file is included verbatim in every prompt. Use it to carry knowledge
between iterations: decisions made, conventions discovered, commands that
work, pitfalls to avoid.

Keep it short and current. Remove entries that no longer apply.
`

// Store owns one state directory. Every path the orchestrator reads or
// writes is derived from Dir; nothing reaches for a global location.
type Store struct {
	Dir string

	// Now is the clock used for markers. Defaults to time.Now.
	Now func() time.Time
}

// New returns a Store rooted at dir.
func New(dir string) *Store {
	return &Store{Dir: dir, Now: time.Now}
}

// Init creates the state directory and runs/ subdirectory and seeds
// context.md with placeholder guidance. An existing context file is never
// touched. Init is safe to call any number of times.
func (s *Store) Init() error {
	for _, d := range []string{s.Dir, s.RunsDir()} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("creating state dir %s: %w", d, err)
		}
	}

	f, err := os.OpenFile(s.ContextPath(), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil
		}
		return fmt.Errorf("seeding context: %w", err)
	}
	if _, err := f.WriteString(contextPlaceholder); err != nil {
		f.Close()
		return fmt.Errorf("seeding context: %w", err)
	}
	return f.Close()
}

// ContextPath returns the persistent context file path.
func (s *Store) ContextPath() string {
	return filepath.Join(s.Dir, ContextFile)
}

// PromptPath returns the effective prompt path, overwritten every iteration.
func (s *Store) PromptPath() string {
	return filepath.Join(s.Dir, PromptFile)
}

// RunsDir returns the directory holding per-iteration logs and statuses.
func (s *Store) RunsDir() string {
	return filepath.Join(s.Dir, RunsDir)
}

// StderrPath returns where iteration n's stderr goes for agents that echo
// the prompt on stderr. It is kept out of completion detection.
func (s *Store) StderrPath(n int) string {
	return filepath.Join(s.RunsDir(), fmt.Sprintf("%d.stderr.log", n))
}

// LogPath returns the captured-output path for iteration n.
func (s *Store) LogPath(n int) string {
	return filepath.Join(s.RunsDir(), fmt.Sprintf("%d.log", n))
}

// StatusPath returns the status marker path for iteration n.
func (s *Store) StatusPath(n int) string {
	return filepath.Join(s.RunsDir(), fmt.Sprintf("%d.status", n))
}

// IterationPath returns the path of the current-iteration marker.
func (s *Store) IterationPath() string {
	return filepath.Join(s.Dir, IterationFile)
}

func (s *Store) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// BeginIteration records iteration n as in flight along with its UTC start
// time, and returns that time. A status marker left for n by an earlier run
// is removed.
func (s *Store) BeginIteration(n int) (time.Time, error) {
	start := s.now()
	if err := os.Remove(s.StatusPath(n)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return start, fmt.Errorf("clearing status marker: %w", err)
	}
	if err := overwrite(s.IterationPath(), strconv.Itoa(n)+"\n"); err != nil {
		return start, fmt.Errorf("writing iteration marker: %w", err)
	}
	if err := overwrite(filepath.Join(s.Dir, StartFile), start.Format(time.RFC3339)+"\n"); err != nil {
		return start, fmt.Errorf("writing start marker: %w", err)
	}
	return start, nil
}

// Outcome is what the agent runner reported for one iteration.
type Outcome struct {
	ExitCode int
	NotFound bool
}

// String renders the outcome as stored in runs/<n>.status.
func (o Outcome) String() string {
	switch {
	case o.NotFound:
		return fmt.Sprintf("not-found exit=%d", o.ExitCode)
	case o.ExitCode != 0:
		return fmt.Sprintf("failed exit=%d", o.ExitCode)
	default:
		return "ok exit=0"
	}
}

// EndIteration records the UTC end time and the status marker for
// iteration n, and returns the end time.
func (s *Store) EndIteration(n int, o Outcome) (time.Time, error) {
	end := s.now()
	if err := overwrite(filepath.Join(s.Dir, EndFile), end.Format(time.RFC3339)+"\n"); err != nil {
		return end, fmt.Errorf("writing end marker: %w", err)
	}
	if err := overwrite(s.StatusPath(n), o.String()+"\n"); err != nil {
		return end, fmt.Errorf("writing status marker: %w", err)
	}
	return end, nil
}

// LastIteration returns the number in iteration.txt, or 0 if no iteration
// has started yet.
func (s *Store) LastIteration() (int, error) {
	data, err := os.ReadFile(s.IterationPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", IterationFile, err)
	}
	return n, nil
}

// ReadStatus returns the status marker of iteration n, or "" if the
// iteration never finished.
func (s *Store) ReadStatus(n int) string {
	data, err := os.ReadFile(s.StatusPath(n))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// overwrite replaces path's content with data by writing a temporary file
// and renaming it over the target, so readers never see a torn marker.
func overwrite(path, data string) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
