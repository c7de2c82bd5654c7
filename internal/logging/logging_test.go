package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesJSONToStateDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")

	l, err := New(Options{Dir: dir})
	require.NoError(t, err)
	l.Info().Int("iteration", 3).Msg("iteration started")
	l.Debug().Msg("hidden")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var ev map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &ev))
	assert.Equal(t, "info", ev["level"])
	assert.Equal(t, "iteration started", ev["message"])
	assert.EqualValues(t, 3, ev["iteration"])
	assert.Contains(t, ev, "time")
}

func TestNew_Appends(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		l, err := New(Options{Dir: dir})
		require.NoError(t, err)
		l.Info().Msg("run")
		require.NoError(t, l.Close())
	}
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), `"message":"run"`))
}

func TestNew_VerboseMirrorsToConsole(t *testing.T) {
	var console bytes.Buffer
	l, err := New(Options{Dir: t.TempDir(), Verbose: true, Console: &console})
	require.NoError(t, err)
	defer l.Close()

	l.Debug().Msg("composing prompt")
	assert.Contains(t, console.String(), "composing prompt")
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info().Msg("dropped")
	assert.NoError(t, l.Close())
}
