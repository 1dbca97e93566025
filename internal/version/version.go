package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version contains the application version information.
// Set it at build time:
// go build -ldflags "-X git.home.luguber.info/inful/assetpack/internal/version.Version=v0.3.0".
var Version = "unknown"

// BuildInfo contains additional build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Resolved returns Version, falling back to the module version recorded by
// `go install` when no ldflags were given.
func Resolved() string {
	if Version != "unknown" && Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}

// String formats the full version line printed by --version.
func String() string {
	return fmt.Sprintf("assetpack %s (commit %s, built %s, %s %s/%s)",
		Resolved(), GitCommit, BuildTime, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
