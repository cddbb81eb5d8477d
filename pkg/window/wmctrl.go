package window

import (
	"context"
	"fmt"
	"strings"

	"github.com/grovetools/i2pportal/config"
)

// WMCtrl drives windows through wmctrl.
type WMCtrl struct {
	run *runner
}

func (w *WMCtrl) Name() string {
	return "wmctrl"
}

func (w *WMCtrl) Available() bool {
	return true
}

func (w *WMCtrl) Find(ctx context.Context, pattern string) (*Match, error) {
	out, err := w.run.run(ctx, "-l")
	if err != nil {
		return nil, err
	}
	for _, m := range ParseWMCtrlList(out) {
		if strings.Contains(m.Title, pattern) {
			match := m
			return &match, nil
		}
	}
	return nil, nil
}

func (w *WMCtrl) Unmaximize(ctx context.Context, m Match) error {
	return wmctrlState(ctx, w.run, m, "remove")
}

func (w *WMCtrl) Maximize(ctx context.Context, m Match) error {
	return wmctrlState(ctx, w.run, m, "add")
}

func (w *WMCtrl) Fill(ctx context.Context, m Match, geometry config.Geometry) error {
	if err := w.run.windowID(m.ID); err != nil {
		return err
	}
	_, err := w.run.run(ctx, "-i", "-r", m.ID, "-e", fmt.Sprintf("0,0,0,%d,%d", geometry.Width, geometry.Height))
	return err
}

func (w *WMCtrl) Activate(ctx context.Context, m Match) error {
	if err := w.run.windowID(m.ID); err != nil {
		return err
	}
	_, err := w.run.run(ctx, "-i", "-a", m.ID)
	return err
}

func wmctrlState(ctx context.Context, r *runner, m Match, action string) error {
	if err := r.windowID(m.ID); err != nil {
		return err
	}
	_, err := r.run(ctx, "-i", "-r", m.ID, "-b", action+",maximized_vert,maximized_horz")
	return err
}

// ParseWMCtrlList parses `wmctrl -l` output: id, desktop, host, then the title.
func ParseWMCtrlList(out string) []Match {
	var matches []Match
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		title := ""
		if len(fields) > 3 {
			// Re-slice the original line so runs of spaces in the title survive.
			rest := line
			for i := 0; i < 3; i++ {
				rest = strings.TrimLeft(rest, " \t")
				rest = rest[len(fields[i]):]
			}
			title = strings.TrimSpace(rest)
		}
		matches = append(matches, Match{ID: fields[0], Title: title})
	}
	return matches
}
