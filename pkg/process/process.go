// Package process provides liveness checks and signalling for processes the
// portal does not hold an exec.Cmd for, typically ones known only by PID file.
package process

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// IsProcessAlive checks if a process with the given PID is still running.
// It uses a signal-sending method that is cross-platform for Unix-like systems (macOS, Linux).
func IsProcessAlive(pid int) bool {
	// PID 0 or less is invalid.
	if pid <= 0 {
		return false
	}

	// Find the process. This doesn't fail on Unix if the process doesn't exist.
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Signal 0 checks for existence without delivering anything.
	// EPERM means the process exists but belongs to someone else.
	err = process.Signal(syscall.Signal(0))
	return err == nil || os.IsPermission(err)
}

// Signaler delivers signals to a process tree and reports whether it is alive.
type Signaler interface {
	Signal(pid int, sig syscall.Signal) error
	Alive(pid int) bool
}

// GroupSignaler signals the process group led by pid, falling back to the single
// process when pid does not lead a group. Launched processes are placed in their
// own group so the whole tree receives the signal.
type GroupSignaler struct{}

// Signal sends sig to the group led by pid, or to pid alone.
func (GroupSignaler) Signal(pid int, sig syscall.Signal) error {
	if pid <= 0 {
		return unix.ESRCH
	}
	err := unix.Kill(-pid, sig)
	if err == unix.ESRCH {
		err = unix.Kill(pid, sig)
	}
	return err
}

// Alive reports whether pid or any member of its process group still exists.
func (GroupSignaler) Alive(pid int) bool {
	if IsProcessAlive(pid) {
		return true
	}
	if pid <= 0 {
		return false
	}
	err := unix.Kill(-pid, 0)
	return err == nil || err == unix.EPERM
}
