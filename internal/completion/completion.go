// Package completion decides whether an iteration's output carries the
// completion token. Matching is an exact, case- and whitespace-sensitive
// substring test; nothing is normalised.
package completion

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
)

const chunkSize = 64 * 1024

// Contains reports whether token occurs in text. An empty token never
// matches.
func Contains(text, token string) bool {
	return token != "" && strings.Contains(text, token)
}

// FileContains reports whether token occurs anywhere in the file at path.
// The file is scanned in chunks so large logs are not read into memory.
func FileContains(path, token string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	return ReaderContains(f, token)
}

// ReaderContains reports whether token occurs in the stream r.
func ReaderContains(r io.Reader, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	needle := []byte(token)
	keep := len(needle) - 1

	// window holds the tail of the previous chunk so a token straddling
	// two reads is still found.
	window := make([]byte, 0, chunkSize+keep)
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			window = append(window, buf[:n]...)
			if bytes.Contains(window, needle) {
				return true, nil
			}
			if len(window) > keep {
				window = append(window[:0], window[len(window)-keep:]...)
			}
		}
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
	}
}
