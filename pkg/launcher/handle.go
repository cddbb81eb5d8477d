package launcher

import (
	stderrors "errors"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// Kind identifies a managed process.
type Kind string

const (
	KindRouter  Kind = "router"
	KindBrowser Kind = "browser"
)

func (k Kind) String() string {
	return string(k)
}

// Handle identifies a spawned process. The router's handle also names the PID
// file that outlives this process; the browser's handle lives only in memory.
type Handle struct {
	Kind      Kind
	PID       int
	PIDFile   string
	StartedAt time.Time

	done     chan struct{}
	mu       sync.Mutex
	exitCode int
	waitErr  error
}

func newHandle(kind Kind, pid int, pidFile string) *Handle {
	return &Handle{
		Kind:      kind,
		PID:       pid,
		PIDFile:   pidFile,
		StartedAt: time.Now(),
		done:      make(chan struct{}),
		exitCode:  -1,
	}
}

// Done is closed once the process has exited and been reaped.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Exited reports whether the process has been reaped.
func (h *Handle) Exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// ExitCode returns the process exit code once Done is closed, or -1 before.
// A process killed by a signal reports 128 plus the signal number.
func (h *Handle) ExitCode() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitCode
}

// Err returns the wait error for failures other than a non-zero exit.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.waitErr
}

// reap waits for cmd and records how it ended. Reaping promptly keeps a dead
// child from lingering as a zombie that still answers liveness probes.
func (h *Handle) reap(cmd *exec.Cmd) {
	err := cmd.Wait()

	h.mu.Lock()
	h.exitCode, h.waitErr = exitStatus(cmd, err)
	h.mu.Unlock()
	close(h.done)
}

func exitStatus(cmd *exec.Cmd, err error) (int, error) {
	if cmd.ProcessState != nil {
		if ws, ok := cmd.ProcessState.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal()), nil
		}
		return cmd.ProcessState.ExitCode(), nil
	}
	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}
