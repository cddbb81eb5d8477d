package window

import (
	"context"
	stderrors "errors"
	"os/exec"
	"regexp"
	"strconv"

	"github.com/grovetools/i2pportal/config"
)

// XDoTool drives windows through xdotool. Title search takes a regular
// expression, so the pattern is quoted to keep plain substring semantics.
type XDoTool struct {
	run    *runner
	wmctrl *runner
}

func (x *XDoTool) Name() string {
	if x.wmctrl != nil {
		return "xdotool+wmctrl"
	}
	return "xdotool"
}

func (x *XDoTool) Available() bool { return true }

func (x *XDoTool) Find(ctx context.Context, pattern string) (*Match, error) {
	out, err := x.run.run(ctx, "search", "--name", regexp.QuoteMeta(pattern))
	if err != nil {
		// xdotool exits 1 with no output when nothing matches.
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) && exitErr.ExitCode() == 1 && firstLine(out) == "" {
			return nil, nil
		}
		return nil, err
	}

	id := firstLine(out)
	if id == "" {
		return nil, nil
	}
	if err := x.run.windowID(id); err != nil {
		return nil, err
	}

	m := &Match{ID: id}
	if name, err := x.run.run(ctx, "getwindowname", id); err == nil {
		m.Title = firstLine(name)
	}
	return m, nil
}

func (x *XDoTool) Unmaximize(ctx context.Context, m Match) error {
	if x.wmctrl != nil {
		return wmctrlState(ctx, x.wmctrl, m, "remove")
	}
	_, err := x.run.run(ctx, "windowstate", "--remove", "MAXIMIZED_VERT,MAXIMIZED_HORZ", m.ID)
	return err
}

func (x *XDoTool) Maximize(ctx context.Context, m Match) error {
	if x.wmctrl != nil {
		return wmctrlState(ctx, x.wmctrl, m, "add")
	}
	_, err := x.run.run(ctx, "windowstate", "--add", "MAXIMIZED_VERT,MAXIMIZED_HORZ", m.ID)
	return err
}

func (x *XDoTool) Fill(ctx context.Context, m Match, geometry config.Geometry) error {
	if _, err := x.run.run(ctx, "windowmove", m.ID, "0", "0"); err != nil {
		return err
	}
	_, err := x.run.run(ctx, "windowsize", m.ID, strconv.Itoa(geometry.Width), strconv.Itoa(geometry.Height))
	return err
}

func (x *XDoTool) Activate(ctx context.Context, m Match) error {
	_, err := x.run.run(ctx, "windowactivate", m.ID)
	return err
}
