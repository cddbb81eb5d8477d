// Package window finds the browser's top-level window and arranges it. Window
// tools are optional: without one every operation is a no-op.
package window

import (
	"context"
	"fmt"
	"strings"

	"github.com/grovetools/i2pportal/command"
	"github.com/grovetools/i2pportal/config"
)

// Match is a window found by title. It is looked up on demand and never cached.
type Match struct {
	ID    string
	Title string
}

// Driver wraps a window automation tool.
type Driver interface {
	// Name identifies the tool for logs.
	Name() string
	// Available is false for the no-op driver.
	Available() bool
	// Find returns the first window whose title contains pattern, or nil.
	Find(ctx context.Context, pattern string) (*Match, error)
	Unmaximize(ctx context.Context, m Match) error
	Maximize(ctx context.Context, m Match) error
	// Fill moves the window to the origin and resizes it to geometry.
	Fill(ctx context.Context, m Match, geometry config.Geometry) error
	Activate(ctx context.Context, m Match) error
}

// Detect picks a driver once from the tools on PATH. xdotool is preferred for
// queries; when wmctrl is also present it handles the maximize toggles.
func Detect(display string, lookPath command.LookPathFunc) Driver {
	executor := (&command.RealExecutor{}).WithEnv("DISPLAY=" + display)
	builder := command.NewSafeBuilderWithExecutor(executor)

	var wmctrl *runner
	if path, err := lookPath("wmctrl"); err == nil {
		wmctrl = &runner{bin: path, builder: builder}
	}
	if path, err := lookPath("xdotool"); err == nil {
		return &XDoTool{
			run:    &runner{bin: path, builder: builder},
			wmctrl: wmctrl,
		}
	}
	if wmctrl != nil {
		return &WMCtrl{run: wmctrl}
	}
	return Nop{}
}

// Nop is used when no window tool is installed.
type Nop struct{}

func (Nop) Name() string {
	return "none"
}

func (Nop) Available() bool {
	return false
}

func (Nop) Find(context.Context, string) (*Match, error) {
	return nil, nil
}

func (Nop) Unmaximize(context.Context, Match) error {
	return nil
}

func (Nop) Maximize(context.Context, Match) error {
	return nil
}

func (Nop) Fill(context.Context, Match, config.Geometry) error {
	return nil
}

func (Nop) Activate(context.Context, Match) error {
	return nil
}

// runner executes one tool binary. Its builder's executor carries DISPLAY.
type runner struct {
	bin     string
	builder *command.SafeBuilder
}

func (r *runner) run(ctx context.Context, args ...string) (string, error) {
	cmd, err := r.builder.Build(ctx, r.bin, args...)
	if err != nil {
		return "", fmt.Errorf("failed to build command: %w", err)
	}
	defer cmd.Release()

	output, err := cmd.Exec().Output()
	if err != nil {
		return string(output), fmt.Errorf("%s failed: %w", cmd.String(), err)
	}
	return string(output), nil
}

func (r *runner) windowID(id string) error {
	return r.builder.Validate("windowID", id)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(line)
}
