// Package launcher starts the router and the browser, in that order, as the
// unprivileged session identity.
package launcher

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/grovetools/i2pportal/command"
	"github.com/grovetools/i2pportal/config"
	"github.com/grovetools/i2pportal/errors"
	"github.com/grovetools/i2pportal/logging"
	"github.com/grovetools/i2pportal/pkg/pidfile"
	"github.com/grovetools/i2pportal/pkg/privdrop"
	"github.com/sirupsen/logrus"
)

// RouterOutputFile receives the router's stdout and stderr inside the log dir.
const RouterOutputFile = "router.out"

// RouterConsoleURL is where the router serves its web console once it is up.
const RouterConsoleURL = "http://localhost:7657"

// Launcher spawns the managed processes for one session. At most one process of
// each kind is started per Launcher.
type Launcher struct {
	session  *config.Session
	dropper  *privdrop.Dropper
	pidFile  *pidfile.File
	lookPath command.LookPathFunc
	logger   *logrus.Entry

	stdin          io.Reader
	stdout, stderr io.Writer

	mu       sync.Mutex
	handles  map[Kind]*Handle
	sequence []Kind
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithLookPath overrides executable resolution during Preflight.
func WithLookPath(fn command.LookPathFunc) Option {
	return func(l *Launcher) { l.lookPath = fn }
}

// WithLogger sets the logger.
func WithLogger(logger *logrus.Entry) Option {
	return func(l *Launcher) { l.logger = logger }
}

// WithBrowserStdio overrides the stdio the browser inherits.
func WithBrowserStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(l *Launcher) {
		l.stdin, l.stdout, l.stderr = stdin, stdout, stderr
	}
}

// New creates a Launcher for session.
func New(session *config.Session, dropper *privdrop.Dropper, opts ...Option) *Launcher {
	l := &Launcher{
		session:  session,
		dropper:  dropper,
		pidFile:  pidfile.New(session.PIDFile),
		lookPath: exec.LookPath,
		logger:   logging.NewLogger("launcher"),
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		handles:  make(map[Kind]*Handle),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// PIDFile returns the router PID file record.
func (l *Launcher) PIDFile() *pidfile.File {
	return l.pidFile
}

// Preflight checks everything startup depends on before any process is spawned:
// the router home, the router and browser executables, and a privilege-drop tool
// when running privileged.
func (l *Launcher) Preflight() error {
	s := l.session

	info, err := os.Stat(s.RouterHome)
	if err != nil || !info.IsDir() {
		return errors.RouterHomeMissing(s.RouterHome)
	}
	if _, err := l.lookPath(s.RouterCommand); err != nil {
		return errors.CommandNotFound(s.RouterCommand, err)
	}
	if _, err := l.lookPath(s.BrowserBin); err != nil {
		return errors.CommandNotFound(s.BrowserBin, err)
	}
	if l.dropper.Privileged() && l.dropper.Tool() == "" {
		return errors.PrivDropUnavailable(s.Identity, privdrop.Tools)
	}
	return nil
}

// StartRouter launches the router in its own process group and records its PID.
// It returns as soon as the process exists; router readiness is not awaited.
func (l *Launcher) StartRouter(ctx context.Context) (*Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if h, ok := l.handles[KindRouter]; ok {
		return nil, errors.AlreadyStarted(string(KindRouter), h.PID)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := l.session
	if s.ExtPort != 0 {
		patched, err := PatchPort(s.RouterConfigDir, s.ExtPort)
		if err != nil {
			return nil, errors.Filesystem(s.RouterConfigDir, err)
		}
		l.logger.WithFields(logrus.Fields{"port": s.ExtPort, "files": len(patched)}).Info("Applied external port")
	}

	if pid, ok, _ := l.pidFile.Read(); ok {
		l.logger.WithField("pid", pid).Warn("Removing stale router PID file")
	}
	if err := l.pidFile.Clear(); err != nil {
		return nil, errors.Filesystem(l.pidFile.Path(), err)
	}

	// The router must survive ctx cancellation; teardown stops it gracefully.
	cmd, err := l.dropper.Command(context.Background(), s.Identity, s.RouterCommand)
	if err != nil {
		return nil, err
	}
	cmd.Dir = s.RouterHome
	cmd.Env = append(os.Environ(), RouterEnv(s)...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := os.MkdirAll(s.RouterLogDir, 0755); err != nil {
		return nil, errors.Filesystem(s.RouterLogDir, err)
	}
	out, err := os.OpenFile(filepath.Join(s.RouterLogDir, RouterOutputFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.Filesystem(s.RouterLogDir, err)
	}
	defer out.Close()
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Start(); err != nil {
		return nil, errors.CommandFailed(s.RouterCommand, err)
	}

	h := newHandle(KindRouter, cmd.Process.Pid, l.pidFile.Path())
	go h.reap(cmd)

	if err := l.pidFile.Write(h.PID); err != nil {
		_ = syscall.Kill(-h.PID, syscall.SIGKILL)
		return nil, errors.Filesystem(l.pidFile.Path(), err)
	}

	l.record(h)
	l.logger.WithFields(logrus.Fields{"pid": h.PID, "pidfile": h.PIDFile, "console": RouterConsoleURL}).Info("Router started")
	return h, nil
}

// StartBrowser launches the browser on the session profile. The router must
// have been started first since the browser proxies through it.
func (l *Launcher) StartBrowser(ctx context.Context) (*Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.handles[KindRouter]; !ok {
		return nil, errors.New(errors.ErrCodeInternal, "browser start requested before the router was started")
	}
	if h, ok := l.handles[KindBrowser]; ok {
		return nil, errors.AlreadyStarted(string(KindBrowser), h.PID)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := l.session
	cmd, err := l.dropper.Command(context.Background(), s.Identity, s.BrowserBin, BrowserArgs(s)...)
	if err != nil {
		return nil, err
	}
	cmd.Env = append(os.Environ(), "DISPLAY="+s.Display)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Stdin = l.stdin
	cmd.Stdout = l.stdout
	cmd.Stderr = l.stderr

	if err := cmd.Start(); err != nil {
		return nil, errors.CommandFailed(s.BrowserBin, err)
	}

	h := newHandle(KindBrowser, cmd.Process.Pid, "")
	go h.reap(cmd)

	l.record(h)
	l.logger.WithFields(logrus.Fields{"pid": h.PID, "profile": s.BrowserProfile}).Info("Browser started")
	return h, nil
}

func (l *Launcher) record(h *Handle) {
	l.handles[h.Kind] = h
	l.sequence = append(l.sequence, h.Kind)
}

// Handle returns the handle for kind, or nil if it was never started.
func (l *Launcher) Handle(kind Kind) *Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.handles[kind]
}

// Sequence returns the kinds in the order they were started.
func (l *Launcher) Sequence() []Kind {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Kind(nil), l.sequence...)
}

// RouterEnv returns the environment the router runtime reads its heap and
// directory layout from.
func RouterEnv(s *config.Session) []string {
	javaOpts := []string{
		"-Xmx" + s.JVMHeap,
		"-Di2p.dir.config=" + s.RouterConfigDir,
		"-Di2p.dir.log=" + s.RouterLogDir,
		"-Di2p.dir.pid=" + s.RouterPIDDir,
	}
	return []string{
		"I2P=" + s.RouterHome,
		"JAVA_OPTS=" + strings.Join(javaOpts, " "),
	}
}

// BrowserArgs returns the browser arguments for the session profile.
func BrowserArgs(s *config.Session) []string {
	return []string{"--no-remote", "--profile", s.BrowserProfile}
}
