package display

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSocketPath(t *testing.T) {
	tests := []struct {
		address string
		path    string
		local   bool
		wantErr bool
	}{
		{":0", "/tmp/.X11-unix/X0", true, false},
		{":1.0", "/tmp/.X11-unix/X1", true, false},
		{"unix:2", "/tmp/.X11-unix/X2", true, false},
		{"vnc-host:0", "", false, false},
		{"nodisplay", "", false, true},
		{":abc", "", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			path, local, err := SocketPath(DefaultSocketDir, tt.address)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.local, local)
			assert.Equal(t, tt.path, path)
		})
	}
}

func TestWaitReadyExistingSocket(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "X5"), nil, 0600))
	assert.NoError(t, WaitReadyIn(context.Background(), dir, ":5", time.Second))
}

func TestWaitReadySocketAppearsLater(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, ".X11-unix")

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = os.MkdirAll(dir, 0777)
		time.Sleep(50 * time.Millisecond)
		_ = os.WriteFile(filepath.Join(dir, "X3"), nil, 0600)
	}()

	start := time.Now()
	require.NoError(t, WaitReadyIn(context.Background(), dir, ":3", 5*time.Second))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestWaitReadyTimeout(t *testing.T) {
	err := WaitReadyIn(context.Background(), t.TempDir(), ":9", 100*time.Millisecond)
	assert.True(t, errors.Is(err, ErrTimeout))
}

func TestWaitReadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WaitReadyIn(ctx, t.TempDir(), ":9", time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWaitReadySkipsRemoteAndDisabled(t *testing.T) {
	assert.NoError(t, WaitReadyIn(context.Background(), t.TempDir(), "remote:0", time.Minute))
	assert.NoError(t, WaitReadyIn(context.Background(), t.TempDir(), ":9", 0))
}
