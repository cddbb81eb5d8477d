// Package config resolves the immutable session configuration from the
// environment, an optional portal.yml/portal.toml file and built-in defaults,
// and prepares the persisted state tree under the config root.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/grovetools/i2pportal/command"
	"github.com/grovetools/i2pportal/errors"
	"github.com/grovetools/i2pportal/logging"
)

// Defaults.
const (
	DefaultDisplay          = ":0"
	DefaultDisplayGeometry  = "1280x1024"
	DefaultDisplayDepth     = 24
	DefaultDisplayWait      = 30 * time.Second
	DefaultIdentity         = "i2p"
	DefaultConfigRoot       = "/config"
	DefaultRouterHome       = "/i2p"
	DefaultRouterScript     = "runplain.sh"
	DefaultJVMHeap          = "512m"
	DefaultBrowserBin       = "firefox"
	DefaultBrowserWindow    = "Firefox"
	DefaultWindowAttempts   = 30
	DefaultWindowInterval   = time.Second
	DefaultTeardownAttempts = 10
	DefaultTeardownInterval = time.Second
	DefaultSeedRoot         = "/defaults"

	// PIDFileName is the router PID file inside the router pid directory.
	PIDFileName = "router.pid"
	// RouterLogFileName is the router's main log inside the router log directory.
	RouterLogFileName = "log-router-0.txt"
)

// Geometry is a display resolution.
type Geometry struct {
	Width  int
	Height int
}

func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d", g.Width, g.Height)
}

// ParseGeometry parses WIDTHxHEIGHT.
func ParseGeometry(s string) (Geometry, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return Geometry{}, fmt.Errorf("expected WIDTHxHEIGHT")
	}
	width, err := strconv.Atoi(w)
	if err != nil || width <= 0 {
		return Geometry{}, fmt.Errorf("invalid width %q", w)
	}
	height, err := strconv.Atoi(h)
	if err != nil || height <= 0 {
		return Geometry{}, fmt.Errorf("invalid height %q", h)
	}
	return Geometry{Width: width, Height: height}, nil
}

// Session is the resolved configuration for one container session. It is
// created once at startup and treated as read-only afterwards.
type Session struct {
	Identity   string
	ConfigRoot string

	RouterHome      string
	RouterConfigDir string
	RouterLogDir    string
	RouterPIDDir    string
	PIDFile         string
	RouterCommand   string
	JVMHeap         string
	// ExtPort is 0 when no external port override is set.
	ExtPort int

	Display     string
	Geometry    Geometry
	Depth       int
	DisplayWait time.Duration

	BrowserBin     string
	BrowserProfile string
	BrowserWindow  string

	WindowAttempts   int
	WindowInterval   time.Duration
	TeardownAttempts int
	TeardownInterval time.Duration

	SeedRoot string

	// ConfigFile is the settings file that was loaded, or "".
	ConfigFile string
	Logging    logging.Config
}

// RouterLogFile returns the path of the router's main log.
func (s *Session) RouterLogFile() string {
	return filepath.Join(s.RouterLogDir, RouterLogFileName)
}

// ProfilePrefsFile returns the browser profile's user.js.
func (s *Session) ProfilePrefsFile() string {
	return filepath.Join(s.BrowserProfile, "user.js")
}

// FromEnviron resolves the session from the process environment.
func FromEnviron() (*Session, error) {
	return Resolve(EnvironMap(os.Environ()))
}

// EnvironMap converts KEY=VALUE pairs into a map.
func EnvironMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// Resolve builds the session from env and the config file it names (PORTAL_CONFIG)
// or that sits in the config root. For each setting a non-empty environment value
// wins over the file, and the file wins over the default. Resolution has no side
// effects; calling it twice with the same inputs yields equal sessions.
func Resolve(env map[string]string) (*Session, error) {
	var settings Settings

	path, err := findConfigFile(env)
	if err != nil {
		return nil, err
	}
	if path != "" {
		fileSettings, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		settings = *fileSettings
	}

	envSettings, err := decodeEnv(env)
	if err != nil {
		return nil, err
	}
	overlay(&settings, envSettings)

	session, err := build(&settings)
	if err != nil {
		return nil, err
	}
	session.ConfigFile = path

	var logCfg logging.Config
	if settings.Logging != nil {
		logCfg = *settings.Logging
	}
	session.Logging = logCfg.ApplyEnv(func(k string) string { return env[k] })
	return session, nil
}

func build(s *Settings) (*Session, error) {
	root := cleanPath(str(s.ConfigRoot, DefaultConfigRoot))
	home := cleanPath(str(s.RouterHome, DefaultRouterHome))
	pidDir := cleanPath(str(s.RouterPIDDir, filepath.Join(root, "i2p", "run")))

	session := &Session{
		Identity:        str(s.Identity, DefaultIdentity),
		ConfigRoot:      root,
		RouterHome:      home,
		RouterConfigDir: cleanPath(str(s.RouterConfigDir, filepath.Join(root, "i2p"))),
		RouterLogDir:    cleanPath(str(s.RouterLogDir, filepath.Join(root, "i2p", "logs"))),
		RouterPIDDir:    pidDir,
		PIDFile:         filepath.Join(pidDir, PIDFileName),
		RouterCommand:   str(s.RouterCommand, filepath.Join(home, DefaultRouterScript)),
		JVMHeap:         str(s.JVMHeap, DefaultJVMHeap),
		Display:         str(s.Display, DefaultDisplay),
		Depth:           num(s.DisplayDepth, DefaultDisplayDepth),
		BrowserBin:      str(s.BrowserBin, DefaultBrowserBin),
		BrowserProfile:  cleanPath(str(s.BrowserProfile, filepath.Join(root, "firefox", "i2p.default"))),
		BrowserWindow:   str(s.BrowserWindow, DefaultBrowserWindow),
		SeedRoot:        cleanPath(str(s.SeedRoot, DefaultSeedRoot)),

		WindowAttempts:   num(s.WindowAttempts, DefaultWindowAttempts),
		TeardownAttempts: num(s.TeardownAttempts, DefaultTeardownAttempts),
	}

	validator := command.NewSafeBuilder()
	if err := validator.Validate("identity", session.Identity); err != nil {
		return nil, errors.InvalidSetting("I2P_USER", session.Identity, err)
	}
	if err := validator.Validate("heapSize", session.JVMHeap); err != nil {
		return nil, errors.InvalidSetting("JVM_HEAP", session.JVMHeap, err)
	}

	geometry := str(s.DisplayGeometry, DefaultDisplayGeometry)
	g, err := ParseGeometry(geometry)
	if err != nil {
		return nil, errors.InvalidSetting("DISPLAY_GEOMETRY", geometry, err)
	}
	session.Geometry = g

	if session.Depth <= 0 {
		return nil, errors.InvalidSetting("DISPLAY_DEPTH", strconv.Itoa(session.Depth), fmt.Errorf("must be positive"))
	}
	if session.WindowAttempts < 0 {
		return nil, errors.InvalidSetting("WINDOW_ATTEMPTS", strconv.Itoa(session.WindowAttempts), fmt.Errorf("must not be negative"))
	}
	if session.TeardownAttempts < 0 {
		return nil, errors.InvalidSetting("TEARDOWN_ATTEMPTS", strconv.Itoa(session.TeardownAttempts), fmt.Errorf("must not be negative"))
	}

	if s.ExtPort != nil {
		if *s.ExtPort < 1 || *s.ExtPort > 65535 {
			return nil, errors.InvalidSetting("EXT_PORT", strconv.Itoa(*s.ExtPort), fmt.Errorf("must be between 1 and 65535"))
		}
		session.ExtPort = *s.ExtPort
	}

	durations := []struct {
		name   string
		value  *string
		def    time.Duration
		target *time.Duration
	}{
		{"DISPLAY_WAIT", s.DisplayWait, DefaultDisplayWait, &session.DisplayWait},
		{"WINDOW_INTERVAL", s.WindowInterval, DefaultWindowInterval, &session.WindowInterval},
		{"TEARDOWN_INTERVAL", s.TeardownInterval, DefaultTeardownInterval, &session.TeardownInterval},
	}
	for _, d := range durations {
		*d.target = d.def
		if d.value == nil {
			continue
		}
		parsed, err := ParseInterval(*d.value)
		if err != nil {
			return nil, errors.InvalidSetting(d.name, *d.value, err)
		}
		*d.target = parsed
	}

	return session, nil
}

// maxIntervalSeconds is the longest bare-seconds interval a time.Duration can hold.
const maxIntervalSeconds = float64(math.MaxInt64) / float64(time.Second)

// ParseInterval accepts a Go duration ("500ms", "2s") or a bare number of seconds.
func ParseInterval(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	var d time.Duration
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(secs) {
			return 0, fmt.Errorf("not a number")
		}
		if secs < 0 {
			return 0, fmt.Errorf("must not be negative")
		}
		if secs >= maxIntervalSeconds {
			return 0, fmt.Errorf("too large (max %s)", time.Duration(math.MaxInt64))
		}
		d = time.Duration(secs * float64(time.Second))
	} else {
		d, err = time.ParseDuration(s)
		if err != nil {
			return 0, err
		}
	}
	if d < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return d, nil
}

// Settings returns the fully populated settings that reproduce this session.
// It is what the config command prints.
func (s *Session) Settings() Settings {
	logCfg := s.Logging
	out := Settings{
		Display:          ptr(s.Display),
		DisplayGeometry:  ptr(s.Geometry.String()),
		DisplayDepth:     ptr(s.Depth),
		DisplayWait:      ptr(s.DisplayWait.String()),
		Identity:         ptr(s.Identity),
		ConfigRoot:       ptr(s.ConfigRoot),
		RouterHome:       ptr(s.RouterHome),
		RouterConfigDir:  ptr(s.RouterConfigDir),
		RouterLogDir:     ptr(s.RouterLogDir),
		RouterPIDDir:     ptr(s.RouterPIDDir),
		RouterCommand:    ptr(s.RouterCommand),
		JVMHeap:          ptr(s.JVMHeap),
		BrowserBin:       ptr(s.BrowserBin),
		BrowserProfile:   ptr(s.BrowserProfile),
		BrowserWindow:    ptr(s.BrowserWindow),
		WindowAttempts:   ptr(s.WindowAttempts),
		WindowInterval:   ptr(s.WindowInterval.String()),
		TeardownAttempts: ptr(s.TeardownAttempts),
		TeardownInterval: ptr(s.TeardownInterval.String()),
		SeedRoot:         ptr(s.SeedRoot),
		Logging:          &logCfg,
	}
	if s.ExtPort != 0 {
		out.ExtPort = ptr(s.ExtPort)
	}
	return out
}

func ptr[T any](v T) *T {
	return &v
}

func str(v *string, def string) string {
	if v != nil && strings.TrimSpace(*v) != "" {
		return strings.TrimSpace(*v)
	}
	return def
}

func num(v *int, def int) int {
	if v != nil {
		return *v
	}
	return def
}

func cleanPath(p string) string {
	return filepath.Clean(p)
}
