package version

import (
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func withBuildInfo(t *testing.T, info *debug.BuildInfo) {
	t.Helper()
	oldRead, oldVersion, oldCommit, oldTime := readBuildInfo, Version, GitCommit, BuildTime
	t.Cleanup(func() {
		readBuildInfo, Version, GitCommit, BuildTime = oldRead, oldVersion, oldCommit, oldTime
	})
	readBuildInfo = func() (*debug.BuildInfo, bool) { return info, info != nil }
	Version, GitCommit, BuildTime = "unknown", "unknown", "unknown"
}

func TestFillFromBuildInfo(t *testing.T) {
	withBuildInfo(t, &debug.BuildInfo{
		Main: debug.Module{Version: "v1.4.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123abcd"},
			{Key: "vcs.time", Value: "2026-10-19T08:00:00Z"},
		},
	})

	fillFromBuildInfo()

	assert.Equal(t, "v1.4.0", Version)
	assert.Equal(t, "0123abcd", GitCommit)
	assert.Equal(t, "2026-10-19T08:00:00Z", BuildTime)
}

func TestLinkerFlagsWin(t *testing.T) {
	withBuildInfo(t, &debug.BuildInfo{
		Main:     debug.Module{Version: "v1.4.0"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "0123abcd"}},
	})
	Version = "v2.0.0"

	fillFromBuildInfo()

	assert.Equal(t, "v2.0.0", Version)
	assert.Equal(t, "0123abcd", GitCommit)
}

func TestDevelBuildKeepsUnknown(t *testing.T) {
	withBuildInfo(t, &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})

	fillFromBuildInfo()

	assert.Equal(t, "unknown", Version)
	assert.Equal(t, "modjar unknown", CreatedBy())
}

func TestSummary(t *testing.T) {
	withBuildInfo(t, nil)
	Version, GitCommit, BuildTime = "v1.0.0", "abc", "today"

	assert.Equal(t, "modjar v1.0.0 (commit abc, built today, "+runtime.Version()+")", Summary())
}
