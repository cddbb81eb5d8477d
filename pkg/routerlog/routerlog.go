// Package routerlog follows the router's log file and forwards its lines to the
// portal logger so router problems show up in the container output.
package routerlog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hpcloud/tail"
	"github.com/sirupsen/logrus"
)

// Follower tails one log file until stopped.
type Follower struct {
	path   string
	logger *logrus.Entry
	tail   *tail.Tail

	lines    atomic.Int64
	done     chan struct{}
	stopOnce sync.Once
}

// Follow starts tailing path. The file may not exist yet; it is picked up when
// the router creates it and reopened if the router rotates it. Content already
// present is skipped so a restarted container does not replay old sessions.
func Follow(path string, logger *logrus.Entry) (*Follower, error) {
	cfg := followConfig()
	if _, err := os.Stat(path); err == nil {
		cfg.Location = &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd}
	}

	t, err := tail.TailFile(path, cfg)
	if err != nil {
		return nil, err
	}

	f := &Follower{
		path:   path,
		logger: logger.WithField("file", path),
		tail:   t,
		done:   make(chan struct{}),
	}
	go f.forward()
	return f, nil
}

// followConfig tails across router log rotation without logging tail's own chatter.
func followConfig() tail.Config {
	return tail.Config{
		Follow: true,
		ReOpen: true,
		Logger: stdlog.New(io.Discard, "", 0),
	}
}

func (f *Follower) forward() {
	defer close(f.done)
	for line := range f.tail.Lines {
		if line.Err != nil {
			f.logger.WithError(line.Err).Debug("Router log read error")
			continue
		}
		text := strings.TrimRight(line.Text, "\r")
		if text == "" {
			continue
		}
		f.lines.Add(1)
		f.logger.Log(Level(text), text)
	}
}

// Level maps a router log line to the level it is forwarded at. Router errors
// are surfaced as warnings; everything else is debug output.
func Level(line string) logrus.Level {
	for _, marker := range []string{" CRIT ", " ERROR "} {
		if strings.Contains(line, marker) {
			return logrus.WarnLevel
		}
	}
	return logrus.DebugLevel
}

// Lines returns how many lines have been forwarded.
func (f *Follower) Lines() int64 {
	return f.lines.Load()
}

// Stop ends tailing and waits for the forwarding goroutine. Safe to call more than once.
func (f *Follower) Stop() {
	f.stopOnce.Do(func() {
		_ = f.tail.Stop()
		f.tail.Cleanup()
		<-f.done
	})
}

// Show writes the last n complete lines of path to w; a negative n writes the
// whole file. With follow it then keeps writing new lines until ctx is done.
// A missing file is an error unless following, in which case Show waits for it.
func Show(ctx context.Context, path string, n int, follow bool, w io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil && !(follow && os.IsNotExist(err)) {
		return err
	}

	// An unterminated last line is left for the follower.
	complete := data
	if !follow {
		complete = bytes.TrimRight(data, "\n")
	} else if i := bytes.LastIndexByte(data, '\n'); i >= 0 {
		complete = data[:i]
	} else {
		complete = nil
	}
	for _, line := range lastLines(complete, n) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if !follow {
		return nil
	}

	cfg := followConfig()
	if len(complete) > 0 {
		cfg.Location = &tail.SeekInfo{Offset: int64(len(complete)) + 1, Whence: io.SeekStart}
	}
	t, err := tail.TailFile(path, cfg)
	if err != nil {
		return err
	}
	defer t.Cleanup()

	for {
		select {
		case <-ctx.Done():
			_ = t.Stop()
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			if line.Err != nil {
				continue
			}
			if _, err := fmt.Fprintln(w, strings.TrimRight(line.Text, "\r")); err != nil {
				_ = t.Stop()
				return err
			}
		}
	}
}

func lastLines(data []byte, n int) []string {
	if len(data) == 0 || n == 0 {
		return nil
	}
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
