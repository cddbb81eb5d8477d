package cli

import (
	"bytes"
	stderrors "errors"
	"testing"

	"github.com/grovetools/i2pportal/errors"
	"github.com/grovetools/i2pportal/logging"
	"github.com/grovetools/i2pportal/version"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(stderrors.New("boom")))
	assert.Equal(t, 143, ExitCode(Exit(143, nil)))
	assert.Equal(t, 1, ExitCode(Exit(0, stderrors.New("startup"))))
	assert.Nil(t, Exit(0, nil))
}

func TestExitErrorUnwraps(t *testing.T) {
	cause := errors.RouterHomeMissing("/i2p")
	err := Exit(1, cause)
	assert.True(t, errors.Is(err, errors.ErrCodeRouterHomeMissing))
	assert.Contains(t, err.Error(), "/i2p")
	assert.Equal(t, "exit status 3", Exit(3, nil).Error())
}

func TestOptionsApply(t *testing.T) {
	opts := CommandOptions{ConfigFile: "/etc/portal.yml", Verbose: true, JSONOutput: true}

	cfg := opts.LoggingConfig(logging.Config{Level: "warn"})
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "json", cfg.Format.Preset)

	env := opts.Environ([]string{"I2P_USER=portal", "PORTAL_CONFIG=/other.yml"})
	assert.Equal(t, "portal", env["I2P_USER"])
	assert.Equal(t, "/etc/portal.yml", env["PORTAL_CONFIG"])

	env = CommandOptions{}.Environ([]string{"PORTAL_CONFIG=/other.yml"})
	assert.Equal(t, "/other.yml", env["PORTAL_CONFIG"])
}

func TestGetOptions(t *testing.T) {
	cmd := NewStandardCommand("i2pportal", "test")
	require.NoError(t, cmd.ParseFlags([]string{"-v", "--config", "x.toml"}))

	opts := GetOptions(cmd)
	assert.True(t, opts.Verbose)
	assert.False(t, opts.JSONOutput)
	assert.Equal(t, "x.toml", opts.ConfigFile)
}

func TestErrorHandlerHints(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"router home", errors.RouterHomeMissing("/i2p"), "Set I2P_HOME"},
		{"missing command", errors.CommandNotFound("firefox", stderrors.New("not found")), "'firefox' not found"},
		{"privdrop", errors.PrivDropUnavailable("i2p", []string{"gosu", "su-exec"}), "gosu, su-exec"},
		{"config", errors.ConfigInvalid("bad"), "Invalid configuration"},
		{"generic", stderrors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := NewErrorHandlerTo(&buf, false).Handle(Exit(1, tt.err))
			require.Error(t, err)
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestErrorHandlerSilentForBareExitCode(t *testing.T) {
	var buf bytes.Buffer
	NewErrorHandlerTo(&buf, true).Handle(Exit(3, nil))
	assert.Empty(t, buf.String())
}

func TestErrorHandlerVerboseDetails(t *testing.T) {
	var buf bytes.Buffer
	NewErrorHandlerTo(&buf, true).Handle(errors.RouterHomeMissing("/i2p"))
	assert.Contains(t, buf.String(), `"code": "ROUTER_HOME_MISSING"`)
}

func TestWrapText(t *testing.T) {
	assert.Equal(t, "short", wrapText("short", 20))
	assert.Equal(t, "one two\nthree", wrapText("one two three", 8))
	assert.Equal(t, "a\nb", wrapText("a\nb", 8))
}

func TestStyledHelp(t *testing.T) {
	root := NewStandardCommand("i2pportal", "Run a portal")
	root.AddCommand(&cobra.Command{Use: "status", Short: "Check the router", Run: func(*cobra.Command, []string) {}})
	ApplyStyledHelpRecursive(root)

	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"--help"})
	require.NoError(t, root.Execute())

	out := buf.String()
	assert.Contains(t, out, "I2PPORTAL")
	assert.Contains(t, out, "COMMANDS")
	assert.Contains(t, out, "status")
	assert.Contains(t, out, "--verbose")
}

func TestUsageErrorReportedOnce(t *testing.T) {
	root := NewStandardCommand("i2pportal", "Run a portal")
	root.Run = func(*cobra.Command, []string) {}
	ApplyStyledHelpRecursive(root)

	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs([]string{"--no-such-flag"})
	err := root.Execute()
	require.Error(t, err)
	assert.Empty(t, out.String())
	assert.Empty(t, errOut.String())

	var handled bytes.Buffer
	NewErrorHandlerTo(&handled, false).Handle(err)
	assert.Contains(t, handled.String(), "unknown flag: --no-such-flag")
}

func TestVersionCommandJSON(t *testing.T) {
	info := version.Info{Version: "v1.2.3", Commit: "abc", Platform: "linux/amd64"}
	root := NewStandardCommand("i2pportal", "test")
	root.AddCommand(NewVersionCommand("i2pportal", info))

	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "i2pportal v1.2.3")

	buf.Reset()
	root.SetArgs([]string{"version", "--json"})
	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), `"version": "v1.2.3"`)
}
