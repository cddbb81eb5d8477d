package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grovetools/i2pportal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDefaults(t *testing.T) {
	root := t.TempDir()
	s, err := Resolve(map[string]string{"CONFIG_ROOT": root})
	require.NoError(t, err)

	assert.Equal(t, "i2p", s.Identity)
	assert.Equal(t, root, s.ConfigRoot)
	assert.Equal(t, "/i2p", s.RouterHome)
	assert.Equal(t, filepath.Join(root, "i2p"), s.RouterConfigDir)
	assert.Equal(t, filepath.Join(root, "i2p", "logs"), s.RouterLogDir)
	assert.Equal(t, filepath.Join(root, "i2p", "run"), s.RouterPIDDir)
	assert.Equal(t, filepath.Join(root, "i2p", "run", "router.pid"), s.PIDFile)
	assert.Equal(t, "/i2p/runplain.sh", s.RouterCommand)
	assert.Equal(t, filepath.Join(root, "firefox", "i2p.default"), s.BrowserProfile)
	assert.Equal(t, ":0", s.Display)
	assert.Equal(t, Geometry{Width: 1280, Height: 1024}, s.Geometry)
	assert.Equal(t, 24, s.Depth)
	assert.Equal(t, "512m", s.JVMHeap)
	assert.Zero(t, s.ExtPort)
	assert.Equal(t, 30, s.WindowAttempts)
	assert.Equal(t, time.Second, s.WindowInterval)
	assert.Equal(t, 10, s.TeardownAttempts)
	assert.Equal(t, time.Second, s.TeardownInterval)
	assert.Equal(t, 30*time.Second, s.DisplayWait)
	assert.Empty(t, s.ConfigFile)
}

func TestResolveOverrides(t *testing.T) {
	root := t.TempDir()
	env := map[string]string{
		"CONFIG_ROOT":       root,
		"I2P_USER":          "router",
		"I2P_HOME":          "/opt/i2p",
		"I2P_LOG_DIR":       "/var/log/i2p",
		"DISPLAY":           ":1",
		"DISPLAY_GEOMETRY":  "1920x1080",
		"DISPLAY_DEPTH":     "16",
		"JVM_HEAP":          "1g",
		"EXT_PORT":          "24567",
		"WINDOW_ATTEMPTS":   "5",
		"WINDOW_INTERVAL":   "250ms",
		"TEARDOWN_INTERVAL": "2",
		"BROWSER_WINDOW":    "Mozilla Firefox",
		"I2P_PID_DIR":       "",
	}
	s, err := Resolve(env)
	require.NoError(t, err)

	assert.Equal(t, "router", s.Identity)
	assert.Equal(t, "/opt/i2p", s.RouterHome)
	assert.Equal(t, "/opt/i2p/runplain.sh", s.RouterCommand)
	assert.Equal(t, "/var/log/i2p", s.RouterLogDir)
	assert.Equal(t, filepath.Join(root, "i2p", "run"), s.RouterPIDDir, "empty override falls back to default")
	assert.Equal(t, ":1", s.Display)
	assert.Equal(t, Geometry{Width: 1920, Height: 1080}, s.Geometry)
	assert.Equal(t, 16, s.Depth)
	assert.Equal(t, "1g", s.JVMHeap)
	assert.Equal(t, 24567, s.ExtPort)
	assert.Equal(t, 5, s.WindowAttempts)
	assert.Equal(t, 250*time.Millisecond, s.WindowInterval)
	assert.Equal(t, 2*time.Second, s.TeardownInterval)
	assert.Equal(t, "Mozilla Firefox", s.BrowserWindow)
}

func TestResolveIsIdempotent(t *testing.T) {
	env := map[string]string{"CONFIG_ROOT": t.TempDir(), "EXT_PORT": "9000", "I2P_CONFIG_DIR": "/srv/i2p"}
	first, err := Resolve(env)
	require.NoError(t, err)
	second, err := Resolve(env)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolveInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad geometry", "DISPLAY_GEOMETRY", "big"},
		{"zero width", "DISPLAY_GEOMETRY", "0x100"},
		{"non numeric depth", "DISPLAY_DEPTH", "deep"},
		{"port out of range", "EXT_PORT", "70000"},
		{"port not a number", "EXT_PORT", "http"},
		{"bad heap", "JVM_HEAP", "lots"},
		{"bad identity", "I2P_USER", "not a user"},
		{"negative attempts", "TEARDOWN_ATTEMPTS", "-1"},
		{"bad interval", "WINDOW_INTERVAL", "soon"},
		{"negative interval", "TEARDOWN_INTERVAL", "-1s"},
		{"overflowing interval", "WINDOW_INTERVAL", "1e300"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(map[string]string{"CONFIG_ROOT": t.TempDir(), tt.key: tt.val})
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetCode(err))
		})
	}
}

func TestResolveConfigFilePrecedence(t *testing.T) {
	root := t.TempDir()
	content := `
user: portal
display: ":5"
ext_port: 12345
window_interval: 3s
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(root, "portal.yml"), []byte(content), 0644))

	s, err := Resolve(map[string]string{"CONFIG_ROOT": root, "DISPLAY": ":9"})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "portal.yml"), s.ConfigFile)
	assert.Equal(t, "portal", s.Identity, "file beats default")
	assert.Equal(t, ":9", s.Display, "environment beats file")
	assert.Equal(t, 12345, s.ExtPort)
	assert.Equal(t, 3*time.Second, s.WindowInterval)
	assert.Equal(t, "debug", s.Logging.Level)
}

func TestResolveLoggingEnv(t *testing.T) {
	s, err := Resolve(map[string]string{"CONFIG_ROOT": t.TempDir(), "PORTAL_LOG_LEVEL": "warn", "PORTAL_LOG_FORMAT": "JSON"})
	require.NoError(t, err)
	assert.Equal(t, "warn", s.Logging.Level)
	assert.Equal(t, "json", s.Logging.Format.Preset)
}

func TestResolveExplicitConfigMissing(t *testing.T) {
	_, err := Resolve(map[string]string{"PORTAL_CONFIG": filepath.Join(t.TempDir(), "nope.yml")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConfigInvalid))
}

func TestSettingsRoundTrip(t *testing.T) {
	root := t.TempDir()
	s, err := Resolve(map[string]string{"CONFIG_ROOT": root, "EXT_PORT": "4567", "WINDOW_INTERVAL": "1500ms"})
	require.NoError(t, err)

	settings := s.Settings()
	again, err := build(&settings)
	require.NoError(t, err)
	again.Logging = s.Logging
	assert.Equal(t, s, again)
	assert.Equal(t, "1.5s", *settings.WindowInterval)
}

func TestParseGeometry(t *testing.T) {
	g, err := ParseGeometry(" 800X600 ")
	require.NoError(t, err)
	assert.Equal(t, "800x600", g.String())

	for _, bad := range []string{"", "800", "x600", "800x", "-1x5"} {
		_, err := ParseGeometry(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseInterval(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"2", 2 * time.Second},
		{"0.25", 250 * time.Millisecond},
		{" 1.5s ", 1500 * time.Millisecond},
		{"0", 0},
	}
	for _, tt := range tests {
		got, err := ParseInterval(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	errs := map[string]string{
		"1e300": "too large",
		"+Inf":  "too large",
		"NaN":   "not a number",
		"-3":    "must not be negative",
		"-Inf":  "must not be negative",
		"-2s":   "must not be negative",
	}
	for in, want := range errs {
		_, err := ParseInterval(in)
		require.Error(t, err, in)
		assert.Contains(t, err.Error(), want, in)
	}
}

func TestEnvironMap(t *testing.T) {
	env := EnvironMap([]string{"A=1", "B=x=y", "C=", "broken"})
	assert.Equal(t, map[string]string{"A": "1", "B": "x=y", "C": ""}, env)
}
