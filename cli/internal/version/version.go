// Package version reports CLI build information.
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the version of the CLI
	Version = "0.1.0"
	// GitCommit is the git commit hash
	GitCommit = "unknown"
)

// String returns a formatted version string.
func String() string {
	return fmt.Sprintf("recordql version %s (%s/%s %s)", Version, runtime.GOOS, runtime.GOARCH, runtime.Version())
}
