package routerlog

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() (*logrus.Entry, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logrus.NewEntry(logger), hook
}

func appendLine(t *testing.T, path, line string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(line + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func messages(hook *test.Hook) []string {
	var out []string
	for _, e := range hook.AllEntries() {
		out = append(out, e.Message)
	}
	return out
}

func TestFollowSkipsExistingContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log-router-0.txt")
	appendLine(t, path, "old session line")

	logger, hook := newTestLogger()
	f, err := Follow(path, logger)
	require.NoError(t, err)
	defer f.Stop()

	time.Sleep(100 * time.Millisecond)
	appendLine(t, path, "2024/05/01 10:00:00.000 INFO  [main] Router: Starting")
	appendLine(t, path, "2024/05/01 10:00:01.000 ERROR [NTCP] Transport: bind failed")

	require.Eventually(t, func() bool { return f.Lines() == 2 }, 5*time.Second, 20*time.Millisecond)
	assert.NotContains(t, messages(hook), "old session line")

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, logrus.DebugLevel, entries[0].Level)
	assert.Equal(t, logrus.WarnLevel, entries[1].Level)
}

func TestFollowWaitsForFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log-router-0.txt")

	logger, hook := newTestLogger()
	f, err := Follow(path, logger)
	require.NoError(t, err)
	defer f.Stop()

	appendLine(t, path, "router created its log")
	require.Eventually(t, func() bool { return f.Lines() == 1 }, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{"router created its log"}, messages(hook))
}

func TestStopIsIdempotent(t *testing.T) {
	logger, _ := newTestLogger()
	f, err := Follow(filepath.Join(t.TempDir(), "log"), logger)
	require.NoError(t, err)

	f.Stop()
	f.Stop()
}

func TestLevel(t *testing.T) {
	assert.Equal(t, logrus.WarnLevel, Level("2024/05/01 10:00:01.000 CRIT  [main] Router: shutdown"))
	assert.Equal(t, logrus.DebugLevel, Level("2024/05/01 10:00:01.000 WARN  [main] Router: slow"))
}

// lockedBuffer is written by Show's goroutine and read by the test.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestShowLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log-router-0.txt")
	for _, line := range []string{"one", "two", "three", "four"} {
		appendLine(t, path, line)
	}

	var out bytes.Buffer
	require.NoError(t, Show(context.Background(), path, 2, false, &out))
	assert.Equal(t, "three\nfour\n", out.String())

	out.Reset()
	require.NoError(t, Show(context.Background(), path, -1, false, &out))
	assert.Equal(t, "one\ntwo\nthree\nfour\n", out.String())

	out.Reset()
	require.NoError(t, Show(context.Background(), path, 50, false, &out))
	assert.Equal(t, "one\ntwo\nthree\nfour\n", out.String())
}

func TestShowMissingFile(t *testing.T) {
	err := Show(context.Background(), filepath.Join(t.TempDir(), "absent"), 10, false, &bytes.Buffer{})
	assert.True(t, os.IsNotExist(err))
}

func TestShowFollowsNewLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log-router-0.txt")
	appendLine(t, path, "old one")
	appendLine(t, path, "old two")

	ctx, cancel := context.WithCancel(context.Background())
	var out lockedBuffer
	done := make(chan error, 1)
	go func() {
		done <- Show(ctx, path, 1, true, &out)
	}()

	require.Eventually(t, func() bool { return out.String() == "old two\n" }, 5*time.Second, 20*time.Millisecond)
	appendLine(t, path, "new line")
	require.Eventually(t, func() bool { return out.String() == "old two\nnew line\n" }, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Show did not return after cancellation")
	}
}

func TestShowFollowWaitsForFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log-router-0.txt")
	ctx, cancel := context.WithCancel(context.Background())

	var out lockedBuffer
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Show(ctx, path, 50, true, &out)
	}()

	time.Sleep(100 * time.Millisecond)
	appendLine(t, path, "router created its log")
	require.Eventually(t, func() bool { return out.String() == "router created its log\n" }, 5*time.Second, 20*time.Millisecond)
	cancel()
	<-done
}
