// Package display waits for a local X server to accept connections before the
// browser is started.
package display

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSocketDir is where X servers create their listening sockets.
const DefaultSocketDir = "/tmp/.X11-unix"

// ErrTimeout is returned when the socket did not appear in time.
var ErrTimeout = stderrors.New("display not ready before timeout")

// pollInterval backs up fsnotify on filesystems that do not deliver events.
const pollInterval = 500 * time.Millisecond

// SocketPath maps a display address to its unix socket. Only local addresses
// (":N", ":N.S", "unix:N") have one; for remote displays ok is false.
func SocketPath(socketDir, address string) (path string, ok bool, err error) {
	host, rest, found := strings.Cut(address, ":")
	if !found {
		return "", false, fmt.Errorf("invalid display address %q", address)
	}
	if host != "" && host != "unix" {
		return "", false, nil
	}
	number, _, _ := strings.Cut(rest, ".")
	if _, err := strconv.Atoi(number); err != nil {
		return "", false, fmt.Errorf("invalid display number in %q", address)
	}
	return filepath.Join(socketDir, "X"+number), true, nil
}

// WaitReady waits up to timeout for the X socket of address. Remote displays
// and a zero timeout return immediately.
func WaitReady(ctx context.Context, address string, timeout time.Duration) error {
	return WaitReadyIn(ctx, DefaultSocketDir, address, timeout)
}

// WaitReadyIn is WaitReady with an explicit socket directory.
func WaitReadyIn(ctx context.Context, socketDir, address string, timeout time.Duration) error {
	if timeout <= 0 {
		return nil
	}
	path, local, err := SocketPath(socketDir, address)
	if err != nil || !local {
		return err
	}
	return WaitForPath(ctx, path, timeout)
}

// WaitForPath blocks until path exists, ctx is cancelled or timeout elapses.
// The parent directory may itself not exist yet.
func WaitForPath(ctx context.Context, path string, timeout time.Duration) error {
	if exists(path) {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	watched := watchNearest(watcher, dir)

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		// Re-check after arming the watch so a socket created in between is seen.
		if exists(path) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("%w: %s", ErrTimeout, path)
		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			if watched != dir && event.Op&fsnotify.Create != 0 && exists(dir) {
				watched = watchNearest(watcher, dir)
			}
		case <-watcher.Errors:
		case <-ticker.C:
		}
	}
}

// watchNearest watches dir, or its closest existing ancestor, and returns what
// it watched.
func watchNearest(watcher *fsnotify.Watcher, dir string) string {
	for candidate := dir; ; candidate = filepath.Dir(candidate) {
		if exists(candidate) {
			if err := watcher.Add(candidate); err == nil {
				return candidate
			}
		}
		if parent := filepath.Dir(candidate); parent == candidate {
			return ""
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
