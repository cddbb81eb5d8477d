package profiling

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// CobraProfiler manages the profiling flags of the portal commands.
type CobraProfiler struct {
	cpuProfileFile *os.File
	cpuProfilePath string
	memProfilePath string
	timing         bool
	logger         *logrus.Entry
}

// NewCobraProfiler creates a profiler that reports problems to logger.
func NewCobraProfiler(logger *logrus.Entry) *CobraProfiler {
	return &CobraProfiler{logger: logger}
}

// AddFlags adds the profiling flags to cmd.
func (p *CobraProfiler) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&p.cpuProfilePath, "cpu-profile", "", "Write a CPU profile of the session to file")
	cmd.PersistentFlags().StringVar(&p.memProfilePath, "mem-profile", "", "Write a heap profile to file on exit")
	cmd.PersistentFlags().BoolVar(&p.timing, "timing", false, "Print startup and teardown phase timings on exit")
}

// PreRun is a PersistentPreRunE hook.
func (p *CobraProfiler) PreRun(cmd *cobra.Command, args []string) error {
	if p.timing {
		Enable()
	}

	if p.cpuProfilePath != "" {
		f, err := os.Create(p.cpuProfilePath)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		p.cpuProfileFile = f
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			p.cpuProfileFile = nil
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
	}
	return nil
}

// Finish writes the profiles and prints timings. It is called after the command
// returns, whatever its outcome, since a session usually ends with a non-zero code.
func (p *CobraProfiler) Finish() {
	if p.cpuProfileFile != nil {
		pprof.StopCPUProfile()
		p.cpuProfileFile.Close()
		p.cpuProfileFile = nil
		p.logger.WithField("path", p.cpuProfilePath).Info("CPU profile written")
	}

	if p.memProfilePath != "" {
		if err := writeHeapProfile(p.memProfilePath); err != nil {
			p.logger.WithError(err).Warn("Could not write heap profile")
		} else {
			p.logger.WithField("path", p.memProfilePath).Info("Heap profile written")
		}
	}

	if p.timing {
		Summarize(os.Stderr)
	}
}

func writeHeapProfile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	runtime.GC()
	return pprof.WriteHeapProfile(f)
}
