package window

import (
	"context"
	"time"

	"github.com/grovetools/i2pportal/config"
	"github.com/sirupsen/logrus"
)

// Normalizer waits for the browser window and arranges it once. It never fails
// the session: lookup and action errors are logged and the loop carries on or
// stops as if nothing happened.
type Normalizer struct {
	Driver   Driver
	Pattern  string
	Attempts int
	Interval time.Duration
	Geometry config.Geometry
	Logger   *logrus.Entry
}

// Result describes a finished normalization pass.
type Result struct {
	Match    *Match
	Attempts int
	// Actions counts the normalization steps that succeeded.
	Actions int
}

// Run polls up to Attempts times, Interval apart, for a window whose title
// contains Pattern. On the first match it unmaximizes, maximizes, fills the
// display and activates the window, then stops for good. It returns early when
// ctx is cancelled.
func (n *Normalizer) Run(ctx context.Context) Result {
	var res Result
	log := n.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	if n.Driver == nil || !n.Driver.Available() {
		log.Debug("No window tool available, skipping window normalization")
		return res
	}
	log = log.WithFields(logrus.Fields{"tool": n.Driver.Name(), "pattern": n.Pattern})

	for attempt := 1; attempt <= n.Attempts; attempt++ {
		if ctx.Err() != nil {
			log.Debug("Window normalization cancelled")
			return res
		}
		res.Attempts = attempt

		m, err := n.Driver.Find(ctx, n.Pattern)
		if err != nil {
			log.WithError(err).WithField("attempt", attempt).Debug("Window lookup failed")
		}
		if m != nil {
			res.Match = m
			res.Actions = n.apply(ctx, log, *m)
			return res
		}

		if attempt == n.Attempts {
			break
		}
		timer := time.NewTimer(n.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Debug("Window normalization cancelled")
			return res
		case <-timer.C:
		}
	}

	log.WithField("attempts", res.Attempts).Debug("Browser window not found, leaving it as is")
	return res
}

func (n *Normalizer) apply(ctx context.Context, log *logrus.Entry, m Match) int {
	log = log.WithFields(logrus.Fields{"window": m.ID, "title": m.Title})

	steps := []struct {
		name string
		fn   func() error
	}{
		{"unmaximize", func() error { return n.Driver.Unmaximize(ctx, m) }},
		{"maximize", func() error { return n.Driver.Maximize(ctx, m) }},
		{"fill", func() error { return n.Driver.Fill(ctx, m, n.Geometry) }},
		{"activate", func() error { return n.Driver.Activate(ctx, m) }},
	}

	done := 0
	for _, step := range steps {
		if err := step.fn(); err != nil {
			log.WithError(err).WithField("step", step.name).Debug("Window action failed")
			continue
		}
		done++
	}
	log.WithField("actions", done).Info("Browser window normalized")
	return done
}
