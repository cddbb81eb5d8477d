// Package supervisor runs one portal session: it starts the router and the
// browser in order, arranges the browser window in the background, waits for
// the browser or a signal, and tears everything down exactly once.
package supervisor

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/grovetools/i2pportal/pkg/launcher"
	"github.com/grovetools/i2pportal/pkg/pidfile"
	"github.com/grovetools/i2pportal/pkg/process"
	"github.com/grovetools/i2pportal/pkg/profiling"
	"github.com/grovetools/i2pportal/pkg/window"
	"github.com/sirupsen/logrus"
)

// Launcher starts the managed processes.
type Launcher interface {
	Preflight() error
	StartRouter(ctx context.Context) (*launcher.Handle, error)
	StartBrowser(ctx context.Context) (*launcher.Handle, error)
}

// LogFollower is a background log forwarder stopped during teardown.
type LogFollower interface {
	Stop()
}

// NotifyFunc subscribes c to the shutdown signals and returns an unsubscribe func.
type NotifyFunc func(c chan<- os.Signal) (stop func())

// NotifyShutdownSignals subscribes to SIGINT and SIGTERM.
func NotifyShutdownSignals(c chan<- os.Signal) func() {
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	return func() { signal.Stop(c) }
}

// Options wires the supervisor's collaborators.
type Options struct {
	Launcher Launcher
	// PIDFile is the router record read and removed during teardown.
	PIDFile *pidfile.File
	// Stopper terminates the router. Its budget should fit the container's stop timeout.
	Stopper *process.Stopper
	// BrowserStopper terminates the browser group once the router is down.
	// It defaults to Stopper capped at BrowserStopAttempts polls.
	BrowserStopper *process.Stopper
	// Normalizer is optional.
	Normalizer *window.Normalizer
	// WaitDisplay is optional; a failure is logged and startup continues.
	WaitDisplay func(ctx context.Context) error
	// FollowRouterLog is optional; it is started once the router is up.
	FollowRouterLog func() (LogFollower, error)
	// Notify defaults to NotifyShutdownSignals.
	Notify NotifyFunc
	Logger *logrus.Entry
}

// BrowserStopAttempts caps the default browser stop budget. The router gets the
// full budget first; the browser is only an X client of it.
const BrowserStopAttempts = 3

// Supervisor owns one session.
type Supervisor struct {
	opts   Options
	logger *logrus.Entry

	state atomic.Int32

	mu       sync.Mutex
	router   *launcher.Handle
	browser  *launcher.Handle
	follower LogFollower
	trigger  Trigger
	signal   os.Signal

	teardownOnce sync.Once
	teardowns    atomic.Int32
}

// New creates a supervisor.
func New(opts Options) *Supervisor {
	if opts.Notify == nil {
		opts.Notify = NotifyShutdownSignals
	}
	if opts.Stopper == nil {
		opts.Stopper = process.NewStopper(process.DefaultStopAttempts, process.DefaultStopInterval, opts.Logger)
	}
	if opts.BrowserStopper == nil {
		bounded := *opts.Stopper
		if bounded.Attempts > BrowserStopAttempts {
			bounded.Attempts = BrowserStopAttempts
		}
		opts.BrowserStopper = &bounded
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Supervisor{opts: opts, logger: logger}
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

func (s *Supervisor) setState(next State) {
	prev := State(s.state.Swap(int32(next)))
	if prev != next {
		s.logger.WithFields(logrus.Fields{"from": prev.String(), "to": next.String()}).Debug("State transition")
	}
}

// Trigger returns what ended the session, once it has ended.
func (s *Supervisor) Trigger() Trigger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trigger
}

// setTrigger records the first trigger only.
func (s *Supervisor) setTrigger(t Trigger, sig os.Signal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.trigger != TriggerNone {
		return false
	}
	s.trigger = t
	s.signal = sig
	return true
}

// Run executes the session and returns the process exit code: the browser's
// own code when it exits by itself, or 128 plus the signal number when a signal
// ended the session. A startup failure returns a non-nil error after anything
// already started has been torn down.
func (s *Supervisor) Run(ctx context.Context) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Signals are observed before anything is spawned so no child can outlive an
	// early interrupt.
	sigCh := make(chan os.Signal, 4)
	stopNotify := s.opts.Notify(sigCh)
	defer stopNotify()

	watchDone := make(chan struct{})
	defer close(watchDone)
	go s.watchSignals(sigCh, cancel, watchDone)

	code, err := s.run(ctx)
	s.setState(StateTerminated)
	return code, err
}

func (s *Supervisor) watchSignals(sigCh <-chan os.Signal, cancel context.CancelFunc, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case sig := <-sigCh:
			if s.setTrigger(TriggerSignal, sig) {
				s.logger.WithField("signal", sig.String()).Info("Received signal, shutting down")
				cancel()
				continue
			}
			s.logger.WithField("signal", sig.String()).Info("Shutdown already in progress, ignoring signal")
		}
	}
}

func (s *Supervisor) run(ctx context.Context) (int, error) {
	span := profiling.Start("preflight")
	err := s.opts.Launcher.Preflight()
	span.Stop()
	if err != nil {
		s.setTrigger(TriggerStartup, nil)
		return 1, err
	}

	span = profiling.Start("router-start")
	router, err := s.opts.Launcher.StartRouter(ctx)
	span.Stop()
	if err != nil {
		if ctx.Err() != nil {
			return s.teardownAfterSignal(), nil
		}
		s.setTrigger(TriggerStartup, nil)
		return 1, err
	}
	s.mu.Lock()
	s.router = router
	s.mu.Unlock()
	s.setState(StateRouterStarted)

	s.startLogFollower()

	if s.opts.WaitDisplay != nil {
		span = profiling.Start("display-wait")
		if err := s.opts.WaitDisplay(ctx); err != nil && ctx.Err() == nil {
			s.logger.WithError(err).Warn("Display not confirmed ready, starting browser anyway")
		}
		span.Stop()
	}
	if ctx.Err() != nil {
		return s.teardownAfterSignal(), nil
	}

	span = profiling.Start("browser-start")
	browser, err := s.opts.Launcher.StartBrowser(ctx)
	span.Stop()
	if err != nil {
		if ctx.Err() != nil {
			return s.teardownAfterSignal(), nil
		}
		s.setTrigger(TriggerStartup, nil)
		s.Teardown()
		return 1, err
	}
	s.mu.Lock()
	s.browser = browser
	s.mu.Unlock()
	s.setState(StateBrowserStarted)
	s.setState(StateRunning)
	running := profiling.Start("running")

	normCtx, stopNormalizer := context.WithCancel(ctx)
	normDone := make(chan struct{})
	go func() {
		defer close(normDone)
		if s.opts.Normalizer != nil {
			s.opts.Normalizer.Run(normCtx)
		}
	}()

	var code int
	select {
	case <-browser.Done():
		if s.setTrigger(TriggerBrowserExit, nil) {
			code = browser.ExitCode()
			s.logger.WithField("exit_code", code).Info("Browser exited")
		} else {
			code = s.signalExitCode()
		}
	case <-ctx.Done():
		code = s.signalExitCode()
	}

	running.Stop()
	stopNormalizer()
	<-normDone
	s.Teardown()
	return code, nil
}

func (s *Supervisor) teardownAfterSignal() int {
	code := s.signalExitCode()
	s.Teardown()
	return code
}

// signalExitCode follows the shell convention of 128 plus the signal number.
// A parent context cancelled without a signal counts as SIGTERM.
func (s *Supervisor) signalExitCode() int {
	s.setTrigger(TriggerSignal, syscall.SIGTERM)
	s.mu.Lock()
	defer s.mu.Unlock()
	if sig, ok := s.signal.(syscall.Signal); ok {
		return 128 + int(sig)
	}
	return 128 + int(syscall.SIGTERM)
}

func (s *Supervisor) startLogFollower() {
	if s.opts.FollowRouterLog == nil {
		return
	}
	follower, err := s.opts.FollowRouterLog()
	if err != nil {
		s.logger.WithError(err).Warn("Cannot follow router log")
		return
	}
	s.mu.Lock()
	s.follower = follower
	s.mu.Unlock()
}

// Teardown stops everything the session started. It runs at most once no
// matter how many exit triggers fire; later calls return immediately. Errors
// are logged and never propagated.
func (s *Supervisor) Teardown() {
	s.teardownOnce.Do(s.teardown)
}

// Teardowns reports how many times the teardown body ran.
func (s *Supervisor) Teardowns() int {
	return int(s.teardowns.Load())
}

func (s *Supervisor) teardown() {
	s.teardowns.Add(1)
	s.setState(StateTearingDown)
	defer profiling.Start("teardown").Stop()

	s.mu.Lock()
	browser, follower, trigger := s.browser, s.follower, s.trigger
	s.mu.Unlock()
	log := s.logger.WithField("trigger", string(trigger))

	// The router is stopped first, with the full budget.
	s.stopRouter(log)

	// The browser leader may already be gone; its helper processes share its group.
	if browser != nil {
		if outcome, err := s.opts.BrowserStopper.Stop(browser.PID); err != nil {
			log.WithError(err).Warn("Failed to stop browser")
		} else if outcome != process.AlreadyGone {
			log.WithField("outcome", outcome.String()).Info("Browser stopped")
		}
	}

	if follower != nil {
		follower.Stop()
	}
	log.Info("Teardown complete")
}

func (s *Supervisor) stopRouter(log *logrus.Entry) {
	if s.opts.PIDFile == nil {
		return
	}

	pid, ok, err := s.opts.PIDFile.Read()
	if err != nil {
		log.WithError(err).Warn("Cannot read router PID file")
	}
	if ok {
		outcome, err := s.opts.Stopper.Stop(pid)
		if err != nil {
			log.WithError(err).WithField("pid", pid).Warn("Failed to stop router")
		} else {
			log.WithFields(logrus.Fields{"pid": pid, "outcome": outcome.String()}).Info("Router stopped")
		}
	} else if err == nil {
		log.Debug("No router PID recorded, nothing to stop")
	}

	if err := s.opts.PIDFile.Clear(); err != nil {
		log.WithError(err).Warn("Failed to remove router PID file")
	}
}
