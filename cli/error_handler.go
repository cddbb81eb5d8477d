package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/grovetools/i2pportal/errors"
	"github.com/grovetools/i2pportal/logging"
)

// ErrorHandler prints operator-facing explanations for startup failures.
type ErrorHandler struct {
	Verbose bool
	out     io.Writer
	pretty  *logging.PrettyLogger
}

// NewErrorHandler creates an error handler writing to stderr.
func NewErrorHandler(verbose bool) *ErrorHandler {
	return NewErrorHandlerTo(os.Stderr, verbose)
}

// NewErrorHandlerTo creates an error handler writing to w.
func NewErrorHandlerTo(w io.Writer, verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
		out:     w,
		pretty:  logging.NewPrettyLogger().WithWriter(w),
	}
}

// Handle explains err and returns it unchanged. Bare exit codes are not errors
// worth explaining and are passed through silently.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}
	if exitErr, ok := err.(*ExitError); ok && exitErr.Cause == nil {
		return err
	}

	portalErr, _ := errors.As(err)
	detail := func(key string) interface{} {
		if portalErr == nil {
			return nil
		}
		return portalErr.Details[key]
	}

	switch errors.GetCode(err) {
	case errors.ErrCodeConfigInvalid:
		h.pretty.ErrorPretty("Invalid configuration", err)
		h.hint("Check the environment variables and the settings file, then run 'i2pportal config' to see the resolved values.")

	case errors.ErrCodeFilesystem:
		h.pretty.ErrorPretty(fmt.Sprintf("Cannot prepare %v", detail("path")), err)
		h.hint("Make sure the config root is a writable volume.")

	case errors.ErrCodeRouterHomeMissing:
		h.pretty.ErrorPretty(fmt.Sprintf("Router home %v does not exist", detail("path")), nil)
		h.hint("Set I2P_HOME to the router install directory.")

	case errors.ErrCodeCommandNotFound:
		h.pretty.ErrorPretty(fmt.Sprintf("Required executable '%v' not found", detail("command")), nil)
		h.hint("Check ROUTER_COMMAND, BROWSER_BIN and PATH.")

	case errors.ErrCodePrivDropUnavailable:
		searched, _ := detail("searched").([]string)
		h.pretty.ErrorPretty(fmt.Sprintf("Cannot switch to user '%v'", detail("identity")), nil)
		h.hint(fmt.Sprintf("Install one of %s in the image, or run the container as the target user.", strings.Join(searched, ", ")))

	default:
		h.pretty.ErrorPretty("Error", err)
	}

	if h.Verbose && portalErr != nil {
		fmt.Fprintf(h.out, "\nError details:\n%s\n", portalErr.ToJSON())
	}
	return err
}

func (h *ErrorHandler) hint(text string) {
	fmt.Fprintf(h.out, "  %s\n", text)
}
