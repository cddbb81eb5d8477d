package cmd

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"

	"github.com/grovetools/i2pportal/cli"
	"github.com/grovetools/i2pportal/config"
	"github.com/grovetools/i2pportal/errors"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// isolate points every path setting at a temp dir so the host has no influence.
func isolate(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("CONFIG_ROOT", filepath.Join(root, "config"))
	t.Setenv("I2P_HOME", filepath.Join(root, "i2p"))
	t.Setenv("SEED_ROOT", filepath.Join(root, "defaults"))
	t.Setenv("PORTAL_CONFIG", "")
	t.Setenv("TEARDOWN_INTERVAL", "50ms")
	t.Setenv("PORTAL_LOG_LEVEL", "error")
	return root
}

func execute(t *testing.T, sub *cobra.Command, args ...string) (string, error) {
	t.Helper()
	root := cli.NewStandardCommand("i2pportal", "test root")
	root.AddCommand(sub)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{sub.Name()}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestConfigPrintsResolvedSettings(t *testing.T) {
	isolate(t)
	t.Setenv("I2P_USER", "portal")
	t.Setenv("EXT_PORT", "7654")

	out, err := execute(t, NewConfigCmd())
	require.NoError(t, err)

	var settings config.Settings
	require.NoError(t, yaml.Unmarshal([]byte(out), &settings))
	require.NotNil(t, settings.Identity)
	assert.Equal(t, "portal", *settings.Identity)
	require.NotNil(t, settings.ExtPort)
	assert.Equal(t, 7654, *settings.ExtPort)
	assert.Equal(t, config.DefaultJVMHeap, *settings.JVMHeap)
}

func TestConfigFlagSelectsSettingsFile(t *testing.T) {
	root := isolate(t)
	path := filepath.Join(root, "custom.yml")
	require.NoError(t, os.WriteFile(path, []byte("jvm_heap: 1g\n"), 0644))

	out, err := execute(t, NewConfigCmd(), "--config", path, "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"jvm_heap": "1g"`)
}

func TestConfigRejectsInvalidEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("DISPLAY_GEOMETRY", "wide")

	_, err := execute(t, NewConfigCmd())
	require.Error(t, err)
	assert.Equal(t, 1, cli.ExitCode(err))
	assert.True(t, errors.Is(err, errors.ErrCodeConfigInvalid))
}

func TestConfigSchema(t *testing.T) {
	out, err := execute(t, NewConfigCmd(), "--schema")
	require.NoError(t, err)
	assert.Contains(t, out, `"router_home"`)
	assert.Contains(t, out, `"additionalProperties": false`)
}

func TestStatusWithoutRouter(t *testing.T) {
	isolate(t)

	out, err := execute(t, NewStatusCmd())
	assert.Equal(t, 1, cli.ExitCode(err))
	assert.Contains(t, out, "Router stopped")
}

func TestStopRunningRouter(t *testing.T) {
	isolate(t)
	session, err := config.FromEnviron()
	require.NoError(t, err)

	proc := exec.Command("sleep", "30")
	proc.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	require.NoError(t, proc.Start())
	reaped := make(chan struct{})
	go func() {
		_ = proc.Wait()
		close(reaped)
	}()
	t.Cleanup(func() { _ = syscall.Kill(-proc.Process.Pid, syscall.SIGKILL) })

	require.NoError(t, os.MkdirAll(filepath.Dir(session.PIDFile), 0755))
	require.NoError(t, os.WriteFile(session.PIDFile, []byte(strconv.Itoa(proc.Process.Pid)), 0644))

	out, err := execute(t, NewStatusCmd())
	require.NoError(t, err)
	assert.Contains(t, out, "Router running")

	out, err = execute(t, NewStopCmd())
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "stopped (graceful)"), out)
	assert.NoFileExists(t, session.PIDFile)
	<-reaped
}

func TestStopWithoutPIDFile(t *testing.T) {
	isolate(t)

	out, err := execute(t, NewStopCmd())
	require.NoError(t, err)
	assert.Contains(t, out, "not running")
}

func TestLogsPrintsTail(t *testing.T) {
	root := isolate(t)
	logDir := filepath.Join(root, "logs")
	t.Setenv("I2P_LOG_DIR", logDir)
	require.NoError(t, os.MkdirAll(logDir, 0755))

	var content strings.Builder
	for i := 1; i <= 60; i++ {
		content.WriteString("line " + strconv.Itoa(i) + "\n")
	}
	require.NoError(t, os.WriteFile(filepath.Join(logDir, config.RouterLogFileName), []byte(content.String()), 0644))

	out, err := execute(t, NewLogsCmd())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, DefaultLogLines)
	assert.Equal(t, "line 11", lines[0])
	assert.Equal(t, "line 60", lines[len(lines)-1])

	out, err = execute(t, NewLogsCmd(), "-n", "3")
	require.NoError(t, err)
	assert.Equal(t, "line 58\nline 59\nline 60\n", out)
}

func TestLogsWithoutRouterLog(t *testing.T) {
	root := isolate(t)
	t.Setenv("I2P_LOG_DIR", filepath.Join(root, "logs"))

	_, err := execute(t, NewLogsCmd())
	require.Error(t, err)
	assert.Equal(t, 1, cli.ExitCode(err))
	assert.Contains(t, err.Error(), "no router log")
}

func TestRunFailsPreflightWithoutRouterHome(t *testing.T) {
	isolate(t)
	t.Setenv("BROWSER_BIN", "/bin/true")

	_, err := execute(t, NewRunCmd())
	require.Error(t, err)
	assert.Equal(t, 1, cli.ExitCode(err))
	assert.True(t, errors.Is(err, errors.ErrCodeRouterHomeMissing))
}
