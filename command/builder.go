package command

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

// DefaultTimeout is the default timeout for short-lived helper commands
const DefaultTimeout = 10 * time.Second

var (
	identityPattern = regexp.MustCompile(`^[a-z_][a-z0-9_-]*\$?$`)
	windowIDPattern = regexp.MustCompile(`^(0x[0-9a-fA-F]+|[0-9]+)$`)
	heapPattern     = regexp.MustCompile(`^[0-9]+[kKmMgG]?$`)
)

// SafeBuilder provides validated execution of short-lived helper commands
type SafeBuilder struct {
	defaultTimeout time.Duration
	validators     map[string]func(string) error
	executor       Executor
}

// NewSafeBuilder creates a new SafeBuilder instance with a RealExecutor
func NewSafeBuilder() *SafeBuilder {
	return NewSafeBuilderWithExecutor(&RealExecutor{})
}

// NewSafeBuilderWithExecutor creates a new SafeBuilder with a custom Executor
func NewSafeBuilderWithExecutor(exec Executor) *SafeBuilder {
	return &SafeBuilder{
		defaultTimeout: DefaultTimeout,
		validators:     makeDefaultValidators(),
		executor:       exec,
	}
}

func makeDefaultValidators() map[string]func(string) error {
	return map[string]func(string) error{
		"identity": validateIdentity,
		"windowID": validateWindowID,
		"heapSize": validateHeapSize,
	}
}

// validateIdentity ensures a user name is safe to pass to privilege-drop tools
func validateIdentity(name string) error {
	if name == "" {
		return fmt.Errorf("identity cannot be empty")
	}
	if len(name) > 32 {
		return fmt.Errorf("identity too long: %s (max 32 characters)", name)
	}
	if !identityPattern.MatchString(name) {
		return fmt.Errorf("invalid identity: %s (must be a POSIX user name)", name)
	}
	return nil
}

// validateWindowID ensures window ids are decimal or hexadecimal X11 ids
func validateWindowID(id string) error {
	if !windowIDPattern.MatchString(id) {
		return fmt.Errorf("invalid window id: %q", id)
	}
	return nil
}

// validateHeapSize ensures JVM heap sizes look like 512m, 1g or 1048576
func validateHeapSize(size string) error {
	if !heapPattern.MatchString(size) {
		return fmt.Errorf("invalid heap size: %q", size)
	}
	return nil
}

// Command represents a validated helper command with a bounded lifetime
type Command struct {
	ctx      context.Context
	cancel   context.CancelFunc
	name     string
	args     []string
	timeout  time.Duration
	executor Executor
}

// Build creates a new command bound to the default timeout
func (sb *SafeBuilder) Build(ctx context.Context, name string, args ...string) (*Command, error) {
	if name == "" {
		return nil, fmt.Errorf("command name cannot be empty")
	}

	c := &Command{
		name:     name,
		args:     args,
		executor: sb.executor,
	}
	c.setTimeout(ctx, sb.defaultTimeout)
	return c, nil
}

func (c *Command) setTimeout(parent context.Context, timeout time.Duration) {
	c.ctx, c.cancel = context.WithTimeout(parent, timeout)
	c.timeout = timeout
}

// Validate validates specific arguments
func (sb *SafeBuilder) Validate(argType string, value string) error {
	validator, exists := sb.validators[argType]
	if !exists {
		return fmt.Errorf("no validator for argument type: %s", argType)
	}

	return validator(value)
}

// Exec creates and returns an exec.Cmd. The caller must call Release once the
// command has finished.
func (c *Command) Exec() *exec.Cmd {
	return c.executor.CommandContext(c.ctx, c.name, c.args...) //nolint:gosec // SafeBuilder provides validation
}

// Release frees the timeout context held by the command.
func (c *Command) Release() {
	c.cancel()
}

// CombinedOutput runs the command to completion and releases it.
func (c *Command) CombinedOutput() (string, error) {
	defer c.Release()
	output, err := c.Exec().CombinedOutput()
	return string(output), err
}

// String returns the command line for log messages.
func (c *Command) String() string {
	return strings.TrimSpace(c.name + " " + strings.Join(c.args, " "))
}
