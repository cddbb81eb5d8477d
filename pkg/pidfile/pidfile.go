// Package pidfile records the router's process ID so teardown can find it
// without holding the launch handle.
package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/grovetools/i2pportal/pkg/process"
)

// File is a PID file at a fixed path.
type File struct {
	path string
}

// New returns a File for path. Nothing is touched on disk.
func New(path string) *File {
	return &File{path: path}
}

// Path returns the file location.
func (f *File) Path() string {
	return f.path
}

// Write records pid, creating the parent directory if needed. The write goes
// through a temp file and rename so readers never observe a partial value.
func (f *File) Write(pid int) error {
	if pid <= 0 {
		return fmt.Errorf("invalid pid %d", pid)
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create pid directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to write pid file: %w", err)
	}
	if _, err := tmp.WriteString(strconv.Itoa(pid) + "\n"); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write pid file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write pid file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write pid file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write pid file: %w", err)
	}
	return nil
}

// Read returns the recorded PID. A missing file yields ok=false and no error.
func (f *File) Read() (pid int, ok bool, err error) {
	content, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	pidStr := strings.TrimSpace(string(content))
	pid, err = strconv.Atoi(pidStr)
	if err != nil || pid <= 0 {
		return 0, false, fmt.Errorf("invalid pid file %s: %q", f.path, pidStr)
	}
	return pid, true, nil
}

// Clear removes the file. Removing an absent file is not an error.
func (f *File) Clear() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// IsRunning reports whether the recorded process is alive.
func (f *File) IsRunning() (bool, int, error) {
	pid, ok, err := f.Read()
	if err != nil || !ok {
		return false, 0, err
	}
	return process.IsProcessAlive(pid), pid, nil
}
