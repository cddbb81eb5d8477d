// Package privdrop runs commands as an unprivileged identity. When the current
// process is root the command is wrapped in the first available privilege-drop
// tool; otherwise it runs directly.
package privdrop

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/grovetools/i2pportal/command"
	"github.com/grovetools/i2pportal/errors"
	"golang.org/x/sys/unix"
)

// Tools lists the supported privilege-drop tools in order of preference.
var Tools = []string{"gosu", "su-exec", "setpriv", "runuser"}

// Dropper builds commands that run as a target identity.
type Dropper struct {
	executor   command.Executor
	lookPath   command.LookPathFunc
	privileged func() bool
	validator  *command.SafeBuilder

	once     sync.Once
	tool     string
	toolPath string
}

// Option configures a Dropper.
type Option func(*Dropper)

// WithExecutor overrides how exec.Cmd values are created.
func WithExecutor(e command.Executor) Option {
	return func(d *Dropper) { d.executor = e }
}

// WithLookPath overrides executable resolution.
func WithLookPath(fn command.LookPathFunc) Option {
	return func(d *Dropper) { d.lookPath = fn }
}

// WithPrivilegeProbe overrides the effective-uid check.
func WithPrivilegeProbe(fn func() bool) Option {
	return func(d *Dropper) { d.privileged = fn }
}

// New creates a Dropper.
func New(opts ...Option) *Dropper {
	d := &Dropper{
		executor:   &command.RealExecutor{},
		lookPath:   exec.LookPath,
		privileged: IsPrivileged,
		validator:  command.NewSafeBuilder(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// IsPrivileged reports whether the effective uid is root.
func IsPrivileged() bool {
	return unix.Geteuid() == 0
}

// Privileged reports whether commands will be wrapped.
func (d *Dropper) Privileged() bool {
	return d.privileged()
}

// Tool returns the selected privilege-drop tool, or "" if none was found.
func (d *Dropper) Tool() string {
	d.resolve()
	return d.tool
}

func (d *Dropper) resolve() {
	d.once.Do(func() {
		for _, name := range Tools {
			if path, err := d.lookPath(name); err == nil {
				d.tool = name
				d.toolPath = path
				return
			}
		}
	})
}

// Argv returns the argument vector that runs name as identity. The first
// element is the executable to start.
func (d *Dropper) Argv(identity, name string, args ...string) ([]string, error) {
	if err := d.validator.Validate("identity", identity); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "invalid unprivileged identity")
	}
	if name == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "command name cannot be empty")
	}

	if !d.privileged() {
		return append([]string{name}, args...), nil
	}

	d.resolve()
	var prefix []string
	switch d.tool {
	case "gosu", "su-exec":
		prefix = []string{d.toolPath, identity}
	case "setpriv":
		prefix = []string{d.toolPath, "--reuid=" + identity, "--regid=" + identity, "--init-groups", "--"}
	case "runuser":
		prefix = []string{d.toolPath, "-u", identity, "--"}
	default:
		return nil, errors.PrivDropUnavailable(identity, Tools)
	}

	argv := append(prefix, name)
	return append(argv, args...), nil
}

// Command returns an unstarted command that runs name as identity. Stdio is
// left to the caller.
func (d *Dropper) Command(ctx context.Context, identity, name string, args ...string) (*exec.Cmd, error) {
	argv, err := d.Argv(identity, name, args...)
	if err != nil {
		return nil, err
	}
	return d.executor.CommandContext(ctx, argv[0], argv[1:]...), nil
}

// Run executes name as identity with inherited stdio and returns its exit status.
// A non-zero exit is reported through the status, not the error.
func (d *Dropper) Run(ctx context.Context, identity, name string, args ...string) (int, error) {
	cmd, err := d.Command(ctx, identity, name, args...)
	if err != nil {
		return -1, err
	}
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, errors.CommandFailed(fmt.Sprintf("%s %v", name, args), err)
	}
	return 0, nil
}
