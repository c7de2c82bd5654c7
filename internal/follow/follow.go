// Package follow streams iteration logs from a state directory while a run
// is in progress, switching to each new iteration as it starts.
package follow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/jorge-barreto/ralph/internal/state"
	"github.com/jorge-barreto/ralph/internal/ux"
)

// Follower copies the current iteration's log to Out.
type Follower struct {
	Store  *state.Store
	Out    io.Writer
	Logger zerolog.Logger

	current int
	file    *os.File
}

// New returns a Follower for the given state directory.
func New(st *state.Store, out io.Writer, logger zerolog.Logger) *Follower {
	return &Follower{Store: st, Out: out, Logger: logger}
}

// CopyLast writes the most recent iteration's log to Out once.
func (f *Follower) CopyLast() error {
	n, err := f.Store.LastIteration()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no iterations recorded in %s", f.Store.Dir)
	}
	data, err := os.ReadFile(f.Store.LogPath(n))
	if err != nil {
		return fmt.Errorf("reading iteration %d log: %w", n, err)
	}
	f.header(n)
	_, err = f.Out.Write(data)
	return err
}

// Run follows the logs until ctx is cancelled.
func (f *Follower) Run(ctx context.Context) error {
	if _, err := os.Stat(f.Store.RunsDir()); err != nil {
		return fmt.Errorf("no state directory at %s (has 'ralph run' started?)", f.Store.Dir)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	for _, dir := range []string{f.Store.Dir, f.Store.RunsDir()} {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	defer f.closeFile()

	n, err := f.Store.LastIteration()
	if err != nil {
		return err
	}
	f.switchTo(n)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			f.handle(ev)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			f.Logger.Error().Err(err).Msg("watcher error")
		}
	}
}

func (f *Follower) handle(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return
	}
	switch ev.Name {
	case f.Store.IterationPath():
		n, err := f.Store.LastIteration()
		if err != nil {
			f.Logger.Debug().Err(err).Msg("reading iteration marker")
			return
		}
		if n != f.current {
			f.drain()
			f.switchTo(n)
		}
	case f.Store.LogPath(f.current):
		if f.file == nil {
			f.open()
		}
		f.drain()
	}
}

func (f *Follower) switchTo(n int) {
	f.closeFile()
	f.current = n
	if n == 0 {
		return
	}
	f.header(n)
	f.open()
	f.drain()
}

func (f *Follower) open() {
	file, err := os.Open(f.Store.LogPath(f.current))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			f.Logger.Debug().Err(err).Int("iteration", f.current).Msg("opening log")
		}
		return
	}
	f.file = file
}

// drain copies everything written since the last read. A log truncated by
// a new run is re-read from the start.
func (f *Follower) drain() {
	if f.file == nil {
		return
	}
	if info, err := f.file.Stat(); err == nil {
		if pos, err := f.file.Seek(0, io.SeekCurrent); err == nil && info.Size() < pos {
			f.file.Seek(0, io.SeekStart)
		}
	}
	if _, err := io.Copy(f.Out, f.file); err != nil {
		f.Logger.Debug().Err(err).Msg("copying log")
	}
}

func (f *Follower) closeFile() {
	if f.file != nil {
		f.file.Close()
		f.file = nil
	}
}

func (f *Follower) header(n int) {
	fmt.Fprintf(f.Out, "\n%s==> iteration %d: %s <==%s\n", ux.Dim, n, f.Store.LogPath(n), ux.Reset)
}
