package errors

import (
	"fmt"
	"os/exec"
	"strings"
)

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *PortalError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// InvalidSetting creates an error for an environment or file setting that failed to parse.
func InvalidSetting(name, value string, err error) *PortalError {
	return Wrap(err, ErrCodeConfigInvalid, fmt.Sprintf("invalid value %q for %s", value, name)).
		WithDetail("setting", name).
		WithDetail("value", value)
}

// Filesystem creates an error for a path that could not be created or written
func Filesystem(path string, err error) *PortalError {
	return Wrap(err, ErrCodeFilesystem, fmt.Sprintf("cannot prepare path: %s", path)).
		WithDetail("path", path)
}

// PrivDropUnavailable creates an error for a privileged process with no way to drop privileges
func PrivDropUnavailable(identity string, searched []string) *PortalError {
	return New(ErrCodePrivDropUnavailable,
		fmt.Sprintf("running privileged but no privilege-drop tool found to switch to '%s' (searched: %s)",
			identity, strings.Join(searched, ", "))).
		WithDetail("identity", identity).
		WithDetail("searched", searched)
}

// CommandNotFound creates an error for a required executable that cannot be resolved
func CommandNotFound(name string, err error) *PortalError {
	return Wrap(err, ErrCodeCommandNotFound, fmt.Sprintf("required executable not found: %s", name)).
		WithDetail("command", name)
}

// RouterHomeMissing creates an error for a router install directory that does not exist
func RouterHomeMissing(path string) *PortalError {
	return New(ErrCodeRouterHomeMissing, fmt.Sprintf("router home directory does not exist: %s", path)).
		WithDetail("path", path)
}

// AlreadyStarted creates an error for a second start of the same process kind
func AlreadyStarted(kind string, pid int) *PortalError {
	return New(ErrCodeAlreadyStarted, fmt.Sprintf("%s already started with PID %d", kind, pid)).
		WithDetail("kind", kind).
		WithDetail("pid", pid)
}

// CommandFailed creates a command execution failure error
func CommandFailed(cmd string, err error) *PortalError {
	portalErr := Wrap(err, ErrCodeCommandFailed, fmt.Sprintf("command failed: %s", cmd)).
		WithDetail("command", cmd)

	// Extract exit code if available
	if exitErr, ok := err.(*exec.ExitError); ok {
		portalErr = portalErr.WithDetail("exitCode", exitErr.ExitCode())
	}

	return portalErr
}
