package profiling

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Span is a running timed phase.
type Span interface {
	Stop()
}

type phase struct {
	name     string
	start    time.Time
	duration time.Duration
	done     bool
}

// Recorder collects the durations of session phases in the order they started.
// Phases may overlap; each is measured on its own.
type Recorder struct {
	mu      sync.Mutex
	enabled bool
	began   time.Time
	phases  []*phase
	now     func() time.Time
}

// NewRecorder returns an enabled recorder.
func NewRecorder() *Recorder {
	r := &Recorder{now: time.Now}
	r.enable()
	return r
}

var defaultRecorder = &Recorder{now: time.Now}

// Enable turns on the global recorder.
func Enable() {
	defaultRecorder.enable()
}

// Start begins a phase on the global recorder. It is a no-op unless Enable was called.
func Start(name string) Span {
	return defaultRecorder.Start(name)
}

// Summarize prints the global recorder's phases to w.
func Summarize(w io.Writer) {
	defaultRecorder.Summarize(w)
}

func (r *Recorder) enable() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.enabled {
		return
	}
	r.enabled = true
	r.began = r.now()
}

// Start begins a phase.
func (r *Recorder) Start(name string) Span {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled {
		return noopSpan{}
	}
	p := &phase{name: name, start: r.now()}
	r.phases = append(r.phases, p)
	return &span{recorder: r, phase: p}
}

// Summarize prints one line per phase with its share of the total elapsed time.
// Phases still running are reported up to now and marked as such.
func (r *Recorder) Summarize(w io.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled || len(r.phases) == 0 {
		return
	}

	now := r.now()
	total := now.Sub(r.began)
	fmt.Fprintln(w, "\n--- Session Timing ---")
	for _, p := range r.phases {
		d := p.duration
		suffix := ""
		if !p.done {
			d = now.Sub(p.start)
			suffix = " running"
		}
		pct := 0.0
		if total > 0 {
			pct = float64(d) / float64(total) * 100
		}
		fmt.Fprintf(w, "- %s (%v, %.1f%%)%s\n", p.name, d.Round(100*time.Microsecond), pct, suffix)
	}
	fmt.Fprintf(w, "total %v\n", total.Round(time.Millisecond))
}

type span struct {
	recorder *Recorder
	phase    *phase
	once     sync.Once
}

func (s *span) Stop() {
	s.once.Do(func() {
		s.recorder.mu.Lock()
		defer s.recorder.mu.Unlock()
		s.phase.duration = s.recorder.now().Sub(s.phase.start)
		s.phase.done = true
	})
}

type noopSpan struct{}

func (noopSpan) Stop() {}
