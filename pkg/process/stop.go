package process

import (
	"fmt"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

const (
	// DefaultStopAttempts is how many liveness checks follow the graceful signal.
	DefaultStopAttempts = 10
	// DefaultStopInterval is the pause between liveness checks.
	DefaultStopInterval = time.Second
)

// StopOutcome describes how a Stop call ended.
type StopOutcome int

const (
	// AlreadyGone means the process did not exist when the graceful signal was sent.
	AlreadyGone StopOutcome = iota
	// Graceful means the process exited within the liveness budget.
	Graceful
	// Forced means SIGKILL was sent after the budget ran out.
	Forced
)

func (o StopOutcome) String() string {
	switch o {
	case AlreadyGone:
		return "already-gone"
	case Graceful:
		return "graceful"
	case Forced:
		return "forced"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Stopper terminates a process: SIGTERM, a bounded liveness poll, then SIGKILL.
// It never blocks longer than Attempts*Interval plus signal delivery.
type Stopper struct {
	Signaler Signaler
	Attempts int
	Interval time.Duration
	Logger   *logrus.Entry

	// Sleep defaults to time.Sleep.
	Sleep func(time.Duration)
}

// NewStopper returns a Stopper using process-group signalling.
func NewStopper(attempts int, interval time.Duration, logger *logrus.Entry) *Stopper {
	return &Stopper{
		Signaler: GroupSignaler{},
		Attempts: attempts,
		Interval: interval,
		Logger:   logger,
	}
}

// Stop terminates pid and reports how. An error is returned only when a signal
// could not be delivered for a reason other than the process being gone.
func (s *Stopper) Stop(pid int) (StopOutcome, error) {
	log := s.logger().WithField("pid", pid)

	if err := s.Signaler.Signal(pid, syscall.SIGTERM); err != nil {
		if err == unix.ESRCH {
			log.Debug("Process already exited")
			return AlreadyGone, nil
		}
		log.WithError(err).Warn("Graceful termination failed, escalating")
	} else {
		log.Debug("Sent SIGTERM")
	}

	sleep := s.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	for attempt := 0; attempt < s.Attempts; attempt++ {
		if !s.Signaler.Alive(pid) {
			log.WithField("attempt", attempt).Debug("Process exited after SIGTERM")
			return Graceful, nil
		}
		sleep(s.Interval)
	}

	if !s.Signaler.Alive(pid) {
		return Graceful, nil
	}

	log.Warn("Process still alive after graceful wait, sending SIGKILL")
	if err := s.Signaler.Signal(pid, syscall.SIGKILL); err != nil && err != unix.ESRCH {
		return Forced, fmt.Errorf("failed to kill process %d: %w", pid, err)
	}
	return Forced, nil
}

func (s *Stopper) logger() *logrus.Entry {
	if s.Logger != nil {
		return s.Logger
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
