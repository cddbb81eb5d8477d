package command

import (
	"context"
	"os"
	"os/exec"
)

// Executor creates exec.Cmd values. Tests substitute one that records or
// redirects what would have been run.
type Executor interface {
	CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd
}

// RealExecutor creates plain os/exec commands. Env entries are added on top of
// the inherited environment of every command it creates; later entries win.
type RealExecutor struct {
	Env []string
}

// CommandContext creates a context-aware exec.Cmd.
func (e *RealExecutor) CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	if len(e.Env) > 0 {
		cmd.Env = append(os.Environ(), e.Env...)
	}
	return cmd
}

// WithEnv returns an executor whose commands additionally carry env.
func (e *RealExecutor) WithEnv(env ...string) *RealExecutor {
	merged := make([]string, 0, len(e.Env)+len(env))
	merged = append(merged, e.Env...)
	merged = append(merged, env...)
	return &RealExecutor{Env: merged}
}

// LookPathFunc resolves an executable name to a path, like exec.LookPath.
type LookPathFunc func(name string) (string, error)
