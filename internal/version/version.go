// Package version holds build metadata injected with -ldflags.
package version

import (
	"fmt"
	"runtime"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Info returns the build metadata as JSON-friendly fields.
func Info() map[string]string {
	return map[string]string{
		"version":    Version,
		"build_time": BuildTime,
		"git_commit": GitCommit,
		"go_version": runtime.Version(),
	}
}

// String formats the build metadata for the command line.
func String() string {
	return fmt.Sprintf("School Portal %s\nBuild Time: %s\nGit Commit: %s\nGo: %s", Version, BuildTime, GitCommit, runtime.Version())
}
