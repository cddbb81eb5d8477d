package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetInfoDefaults(t *testing.T) {
	info := GetInfo()
	assert.Equal(t, "dev", info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.False(t, info.IsRelease())
	assert.Contains(t, info.String(), "dev (")
}

func TestReleaseString(t *testing.T) {
	info := Info{Version: "v1.0.0", Commit: "abc123", BuildDate: "2026-01-01", Platform: "linux/amd64"}
	assert.True(t, info.IsRelease())
	assert.Equal(t, "v1.0.0 (abc123, built 2026-01-01, linux/amd64)", info.String())
}
