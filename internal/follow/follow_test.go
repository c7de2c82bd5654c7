package follow

import (
	"bytes"
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jorge-barreto/ralph/internal/state"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func appendFile(t *testing.T, path, s string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(s)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestRun_FollowsAcrossIterations(t *testing.T) {
	st := state.New(t.TempDir())
	require.NoError(t, st.Init())
	_, err := st.BeginIteration(1)
	require.NoError(t, err)
	appendFile(t, st.LogPath(1), "first\n")

	out := &syncBuffer{}
	f := New(st, out, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	contains := func(s string) func() bool {
		return func() bool { return bytes.Contains([]byte(out.String()), []byte(s)) }
	}

	require.Eventually(t, contains("first"), 2*time.Second, 10*time.Millisecond)

	appendFile(t, st.LogPath(1), "second\n")
	require.Eventually(t, contains("second"), 2*time.Second, 10*time.Millisecond)

	_, err = st.BeginIteration(2)
	require.NoError(t, err)
	appendFile(t, st.LogPath(2), "third\n")
	require.Eventually(t, contains("third"), 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, out.String(), "iteration 2")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("follower did not stop after cancel")
	}
}

func TestRun_NoStateDir(t *testing.T) {
	f := New(state.New(t.TempDir()+"/missing"), &syncBuffer{}, zerolog.Nop())
	err := f.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no state directory")
}

func TestCopyLast(t *testing.T) {
	st := state.New(t.TempDir())
	require.NoError(t, st.Init())

	out := &syncBuffer{}
	f := New(st, out, zerolog.Nop())
	require.Error(t, f.CopyLast())

	for n := 1; n <= 2; n++ {
		_, err := st.BeginIteration(n)
		require.NoError(t, err)
	}
	appendFile(t, st.LogPath(1), "old\n")
	appendFile(t, st.LogPath(2), "latest\n")

	require.NoError(t, f.CopyLast())
	assert.Contains(t, out.String(), "latest")
	assert.NotContains(t, out.String(), "old")
}
