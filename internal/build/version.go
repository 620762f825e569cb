// Package build houses build metadata and the logging infrastructure shared
// by the binaries: version information stamped at link time, a fan-out log
// handler for dual console/file output, and a size-capped rotating file
// writer.
package build

import (
	"fmt"
	"runtime"
	"strings"
)

// Version components. These follow semantic versioning 2.0.0.
const (
	appMajor uint = 0
	appMinor uint = 1
	appPatch uint = 0

	// appPreRelease must contain only alphanumerics and hyphens.
	appPreRelease = "beta"
)

var (
	// Commit is the full commit hash, set by the linker via ldflags.
	Commit string

	// CommitHash is the abbreviated commit hash, set by the linker.
	CommitHash string

	// RawTags is the comma-separated list of build tags, set by the
	// linker.
	RawTags string

	// GoVersion is the Go toolchain version used for the build, set by
	// the linker.
	GoVersion string
)

// Version returns the application version as a properly formed string.
func Version() string {
	version := fmt.Sprintf("%d.%d.%d", appMajor, appMinor, appPatch)

	if appPreRelease != "" {
		version = fmt.Sprintf("%s-%s", version, appPreRelease)
	}

	return version
}

// Tags returns the build tags the binary was compiled with.
func Tags() []string {
	if RawTags == "" {
		return nil
	}

	return strings.Split(RawTags, ",")
}

// init ensures GoVersion has a value even when the linker did not stamp one.
func init() {
	if GoVersion == "" {
		GoVersion = runtime.Version()
	}
}
