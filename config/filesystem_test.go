package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/grovetools/i2pportal/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	return logrus.NewEntry(logger)
}

func TestPrepareCreatesTreeAndSeeds(t *testing.T) {
	root := filepath.Join(t.TempDir(), "config")
	seedRoot := t.TempDir()
	writeTree(t, seedRoot, map[string]string{
		"profile/prefs.js":   "// defaults",
		"i2p/router.config":  "i2np.udp.port=@EXT_PORT@\n",
		"i2p/clients.config": "clientApp.0.main=net.i2p.router.web.RouterConsoleRunner\n",
	})

	s, err := Resolve(map[string]string{"CONFIG_ROOT": root, "SEED_ROOT": seedRoot})
	require.NoError(t, err)
	require.NoError(t, s.Prepare(testLogger(), PrepareOptions{}))

	for _, dir := range []string{s.RouterConfigDir, s.RouterLogDir, s.RouterPIDDir, s.BrowserProfile} {
		assert.DirExists(t, dir)
	}
	assert.FileExists(t, filepath.Join(s.RouterConfigDir, "router.config"))
	assert.FileExists(t, filepath.Join(s.BrowserProfile, "prefs.js"))
	assert.FileExists(t, s.ProfilePrefsFile())

	// Second run keeps user edits.
	edited := filepath.Join(s.RouterConfigDir, "router.config")
	require.NoError(t, os.WriteFile(edited, []byte("i2np.udp.port=5555\n"), 0644))
	require.NoError(t, s.Prepare(testLogger(), PrepareOptions{}))
	data, err := os.ReadFile(edited)
	require.NoError(t, err)
	assert.Equal(t, "i2np.udp.port=5555\n", string(data))
}

func TestPrepareUnwritableRoot(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	s, err := Resolve(map[string]string{"CONFIG_ROOT": filepath.Join(blocker, "config")})
	require.NoError(t, err)

	err = s.Prepare(testLogger(), PrepareOptions{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeFilesystem, errors.GetCode(err))
}

func TestPreparePrivilegedChownsToSelf(t *testing.T) {
	root := t.TempDir()
	s, err := Resolve(map[string]string{"CONFIG_ROOT": root, "SEED_ROOT": filepath.Join(root, "none")})
	require.NoError(t, err)

	uid, gid := os.Getuid(), os.Getgid()
	looked := ""
	err = s.Prepare(testLogger(), PrepareOptions{
		Privileged: true,
		Lookup: func(name string) (int, int, error) {
			looked = name
			return uid, gid, nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "i2p", looked)
}

func TestPrepareOwnershipFailureIsNotFatal(t *testing.T) {
	s, err := Resolve(map[string]string{"CONFIG_ROOT": t.TempDir()})
	require.NoError(t, err)

	err = s.Prepare(testLogger(), PrepareOptions{
		Privileged: true,
		Lookup:     func(string) (int, int, error) { return 0, 0, fmt.Errorf("no such user") },
	})
	assert.NoError(t, err)
}

func TestWithin(t *testing.T) {
	assert.True(t, within("/config", "/config"))
	assert.True(t, within("/config", "/config/i2p/run"))
	assert.False(t, within("/config", "/configs"))
	assert.False(t, within("/config", "/var/log"))
	assert.False(t, within("/config", "/..config"))
}
