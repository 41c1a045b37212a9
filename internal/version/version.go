package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set at link time:
// go build -ldflags "-X git.home.luguber.info/inful/modjar/internal/version.Version=v0.3.0".
var (
	Version   = "unknown"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var readBuildInfo = debug.ReadBuildInfo

func init() {
	fillFromBuildInfo()
}

// fillFromBuildInfo uses the module version and VCS stamp recorded by the Go
// toolchain for anything the linker flags left unset.
func fillFromBuildInfo() {
	info, ok := readBuildInfo()
	if !ok {
		return
	}
	if Version == "unknown" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch {
		case s.Key == "vcs.revision" && GitCommit == "unknown":
			GitCommit = s.Value
		case s.Key == "vcs.time" && BuildTime == "unknown":
			BuildTime = s.Value
		}
	}
}

// CreatedBy is the toolchain identity recorded in artifact manifests.
func CreatedBy() string {
	return "modjar " + Version
}

// Summary is the one-line description printed by the version command.
func Summary() string {
	return fmt.Sprintf("modjar %s (commit %s, built %s, %s)", Version, GitCommit, BuildTime, runtime.Version())
}
