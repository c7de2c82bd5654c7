// Package logging sets up the orchestrator's structured event log.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// FileName is the event log inside the state directory.
const FileName = "ralph.log"

// Options controls where events go.
type Options struct {
	Dir     string    // state directory; empty disables the file sink
	Verbose bool      // debug level plus a console sink
	Console io.Writer // console sink, defaults to os.Stderr
}

// Logger owns the zerolog logger and its file.
type Logger struct {
	zerolog.Logger
	file *os.File
}

// New opens <Dir>/ralph.log in append mode and returns a JSON logger.
// With Verbose, events are mirrored to Console in human form.
func New(opts Options) (*Logger, error) {
	var writers []io.Writer
	var file *os.File

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(opts.Dir, FileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		file = f
		writers = append(writers, f)
	}

	level := zerolog.InfoLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
		out := opts.Console
		if out == nil {
			out = os.Stderr
		}
		writers = append(writers, zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen})
	}

	var w io.Writer
	switch len(writers) {
	case 0:
		w = io.Discard
	case 1:
		w = writers[0]
	default:
		w = zerolog.MultiLevelWriter(writers...)
	}

	return &Logger{
		Logger: zerolog.New(w).Level(level).With().Timestamp().Logger(),
		file:   file,
	}, nil
}

// Nop returns a logger that drops everything.
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
