package completion

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const token = "<DONE/>"

func TestContains(t *testing.T) {
	cases := []struct {
		name string
		text string
		want bool
	}{
		{"embedded", "...done <DONE/> now exiting...", true},
		{"own line", "work\n<DONE/>\n", true},
		{"altered case", "...<done/>...", false},
		{"inner whitespace", "...<DONE />...", false},
		{"split across lines", "...<DO\nNE/>...", false},
		{"absent", "still working", false},
		{"empty text", "", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, Contains(c.text, token))
		})
	}
}

func TestContains_EmptyTokenNeverMatches(t *testing.T) {
	assert.False(t, Contains("anything", ""))
}

func TestFileContains(t *testing.T) {
	dir := t.TempDir()
	done := filepath.Join(dir, "1.log")
	notDone := filepath.Join(dir, "2.log")
	require.NoError(t, os.WriteFile(done, []byte("...done <DONE/> now exiting..."), 0644))
	require.NoError(t, os.WriteFile(notDone, []byte("...done <Done/> now exiting..."), 0644))

	ok, err := FileContains(done, token)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = FileContains(notDone, token)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileContains_Missing(t *testing.T) {
	_, err := FileContains(filepath.Join(t.TempDir(), "nope.log"), token)
	require.Error(t, err)
}

func TestReaderContains_TokenStraddlesChunks(t *testing.T) {
	// Place the token across the first chunk boundary.
	text := strings.Repeat("x", chunkSize-3) + token + strings.Repeat("y", 10)
	ok, err := ReaderContains(strings.NewReader(text), token)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReaderContains_OneByteReads(t *testing.T) {
	r := iotest.OneByteReader(strings.NewReader("abc <DONE/> def"))
	ok, err := ReaderContains(r, token)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReaderContains_LargeWithoutToken(t *testing.T) {
	text := strings.Repeat("<DONE", chunkSize/2)
	ok, err := ReaderContains(strings.NewReader(text), token)
	require.NoError(t, err)
	assert.False(t, ok)
}
